// Package main provides the kaicopy CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kailayerhq/kai-copytree/internal/config"
	"github.com/kailayerhq/kai-copytree/internal/copypair"
	"github.com/kailayerhq/kai-copytree/internal/copytree"
	"github.com/kailayerhq/kai-copytree/internal/ra"
	"github.com/kailayerhq/kai-copytree/internal/wc"
)

const (
	adminDir    = ".kaicopy"
	adminDBFile = "admin.sqlite"
	remotesFile = "remotes.yaml"
)

var rootCmd = &cobra.Command{
	Use:   "kaicopy",
	Short: "Copy or move paths across a working copy and a repository",
}

var copySources []string
var copyAsChild bool
var copyMessage string

var copyCmd = &cobra.Command{
	Use:   "copy <dst>",
	Short: "Copy one or more sources to dst",
	Args:  cobra.ExactArgs(1),
	RunE:  runCopy,
}

var moveSources []string
var moveAsChild bool
var moveForce bool
var moveMessage string

var moveCmd = &cobra.Command{
	Use:   "move <dst>",
	Short: "Move one or more sources to dst",
	Args:  cobra.ExactArgs(1),
	RunE:  runMove,
}

func init() {
	copyCmd.Flags().StringArrayVar(&copySources, "source", nil, "path[@peg[:op]] to copy; repeatable")
	copyCmd.Flags().BoolVar(&copyAsChild, "as-child", false, "place sources under dst: always with several sources, and for one source only if dst already exists")
	copyCmd.Flags().StringVarP(&copyMessage, "message", "m", "", "commit log message (repository-side copies only)")

	moveCmd.Flags().StringArrayVar(&moveSources, "source", nil, "path[@peg[:op]] to move; repeatable")
	moveCmd.Flags().BoolVar(&moveAsChild, "as-child", false, "place sources under dst: always with several sources, and for one source only if dst already exists")
	moveCmd.Flags().BoolVar(&moveForce, "force", false, "bypass the local-modification check on a WC delete")
	moveCmd.Flags().StringVarP(&moveMessage, "message", "m", "", "commit log message (repository-side moves only)")

	rootCmd.AddCommand(copyCmd)
	rootCmd.AddCommand(moveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCopy(cmd *cobra.Command, args []string) error {
	if len(copySources) == 0 {
		return fmt.Errorf("at least one --source is required")
	}

	remotes, err := loadRemotes()
	if err != nil {
		return err
	}
	sources, err := parseSources(copySources, remotes)
	if err != nil {
		return err
	}
	dst := remotes.Resolve(args[0])

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	info, err := copytree.Copy(store, openSession, sources, dst, copyAsChild, callbacks(copyMessage))
	return report(info, err)
}

func runMove(cmd *cobra.Command, args []string) error {
	if len(moveSources) == 0 {
		return fmt.Errorf("at least one --source is required")
	}

	remotes, err := loadRemotes()
	if err != nil {
		return err
	}
	sources, err := parseSources(moveSources, remotes)
	if err != nil {
		return err
	}
	dst := remotes.Resolve(args[0])

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	info, err := copytree.Move(store, openSession, sources, dst, moveForce, moveAsChild, callbacks(moveMessage))
	return report(info, err)
}

func report(info *copytree.CommitInfo, err error) error {
	if err != nil {
		return err
	}
	if info != nil {
		fmt.Printf("committed revision %d\n", info.Revision)
	}
	return nil
}

func openSession(url string) (ra.Session, error) {
	return ra.Open(url)
}

func openStore() (*wc.Store, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	dir := filepath.Join(cwd, adminDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", adminDir, err)
	}
	return wc.Open(filepath.Join(dir, adminDBFile), cwd)
}

func loadRemotes() (config.Remotes, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return config.Remotes{}, fmt.Errorf("getting working directory: %w", err)
	}
	return config.LoadOrEmpty(filepath.Join(cwd, remotesFile))
}

func callbacks(message string) copytree.Callbacks {
	cb := copytree.Callbacks{Notify: notify}
	if message != "" {
		cb.GetLogMsg = func(items []copytree.CommitItem) (string, bool) {
			return message, true
		}
	}
	return cb
}

func notify(e copytree.NotifyEvent) {
	size := ""
	if info, err := os.Stat(e.Path); err == nil && !info.IsDir() {
		size = " (" + humanize.Bytes(uint64(info.Size())) + ")"
	}
	fmt.Printf("%s  %s%s\n", e.Action, e.Path, size)
}

// parseSources resolves each raw "path[@peg[:op]]" flag value against
// remotes, then splits off its peg/op revision selectors.
func parseSources(raw []string, remotes config.Remotes) ([]copypair.CopySource, error) {
	sources := make([]copypair.CopySource, 0, len(raw))
	for _, r := range raw {
		path, pegTok, opTok := splitSourceSpec(r)
		path = remotes.Resolve(path)

		peg, err := parseRevision(pegTok)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", r, err)
		}
		op, err := parseRevision(opTok)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", r, err)
		}
		sources = append(sources, copypair.CopySource{Path: path, PegRevision: peg, Revision: op})
	}
	return sources, nil
}

func splitSourceSpec(raw string) (path, peg, op string) {
	path = raw
	at := strings.IndexByte(raw, '@')
	if at < 0 {
		return path, "", ""
	}
	path = raw[:at]
	rest := raw[at+1:]
	if colon := strings.IndexByte(rest, ':'); colon >= 0 {
		return path, rest[:colon], rest[colon+1:]
	}
	return path, rest, ""
}

func parseRevision(tok string) (copypair.Revision, error) {
	switch strings.ToUpper(tok) {
	case "":
		return copypair.Revision{Kind: copypair.RevUnspecified}, nil
	case "HEAD":
		return copypair.Revision{Kind: copypair.RevHead}, nil
	case "WORKING":
		return copypair.Revision{Kind: copypair.RevWorking}, nil
	case "BASE":
		return copypair.Revision{Kind: copypair.RevBase}, nil
	case "COMMITTED":
		return copypair.Revision{Kind: copypair.RevCommitted}, nil
	case "PREV":
		return copypair.Revision{Kind: copypair.RevPrevious}, nil
	default:
		n, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return copypair.Revision{}, fmt.Errorf("invalid revision %q", tok)
		}
		return copypair.Revision{Kind: copypair.RevNumber, Number: n}, nil
	}
}
