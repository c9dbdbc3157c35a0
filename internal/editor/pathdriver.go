package editor

import (
	"sort"
	"strings"

	"github.com/kailayerhq/kai-copytree/internal/pathutil"
)

// Callback is invoked once per path, in parent-before-child order, with
// the baton of path's immediate parent directory (the glossary: "Path
// driver"). It is the caller's responsibility to call AddFile,
// AddDirectory, or DeleteEntry on ed as appropriate -- the driver itself
// only manages directory traversal order and baton bookkeeping.
type Callback func(ed CommitEditor, path string, parent DirBaton) error

// Drive walks paths in depth-first (parent-before-child) order, opening
// every ancestor directory along the way, invokes callback once per
// path, then closes every directory it opened. It does not call
// CloseEdit; that is left to the caller. If a callback or CloseDir fails,
// it aborts the edit and returns the error. Depth-first ordering over
// the union of affected paths ensures parents exist before children.
func Drive(ed CommitEditor, paths []string, callback Callback) error {
	sorted := sortedByDepth(paths)

	root, err := ed.OpenRoot()
	if err != nil {
		return err
	}
	open := map[string]DirBaton{"": root}
	openOrder := []string{""}

	ensureOpen := func(dir string) (DirBaton, error) {
		if b, ok := open[dir]; ok {
			return b, nil
		}
		parentDir := pathutil.Dirname(dir)
		parentBaton, err := ensureOpenRec(ed, open, &openOrder, parentDir)
		if err != nil {
			return "", err
		}
		b, err := ed.OpenDirectory(dir, parentBaton)
		if err != nil {
			return "", err
		}
		open[dir] = b
		openOrder = append(openOrder, dir)
		return b, nil
	}

	for _, p := range sorted {
		if p == "" {
			continue
		}
		parentDir := pathutil.Dirname(p)
		parentBaton, err := ensureOpen(parentDir)
		if err != nil {
			return err
		}
		if err := callback(ed, p, parentBaton); err != nil {
			_ = ed.AbortEdit()
			return err
		}
	}

	for i := len(openOrder) - 1; i >= 0; i-- {
		if err := ed.CloseDir(open[openOrder[i]]); err != nil {
			_ = ed.AbortEdit()
			return err
		}
	}

	return nil
}

// ensureOpenRec is a free function (rather than a closure method on the
// outer ensureOpen) so it can recurse into its own ancestor before the
// enclosing closure has finished defining itself.
func ensureOpenRec(ed CommitEditor, open map[string]DirBaton, openOrder *[]string, dir string) (DirBaton, error) {
	if b, ok := open[dir]; ok {
		return b, nil
	}
	parentDir := pathutil.Dirname(dir)
	parentBaton, err := ensureOpenRec(ed, open, openOrder, parentDir)
	if err != nil {
		return "", err
	}
	b, err := ed.OpenDirectory(dir, parentBaton)
	if err != nil {
		return "", err
	}
	open[dir] = b
	*openOrder = append(*openOrder, dir)
	return b, nil
}

// sortedByDepth orders paths so that every ancestor precedes its
// descendants: first by segment depth, then lexically within a depth so
// ordering is deterministic ("pairs are processed in input
// order... the path-driver imposes depth-first ordering").
func sortedByDepth(paths []string) []string {
	out := append([]string(nil), paths...)
	sort.Slice(out, func(i, j int) bool {
		di, dj := strings.Count(out[i], "/"), strings.Count(out[j], "/")
		if di != dj {
			return di < dj
		}
		return out[i] < out[j]
	})
	return out
}
