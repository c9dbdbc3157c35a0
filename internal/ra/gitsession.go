package ra

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/google/uuid"

	"github.com/kailayerhq/kai-copytree/internal/editor"
	"github.com/kailayerhq/kai-copytree/internal/idhash"
	"github.com/kailayerhq/kai-copytree/internal/nodekind"
)

// SplitURL splits a repository URL of the form "<repoRootPath>#<relPath>"
// into its two halves ("Repository URLs are opaque strings...
// the '#'-joined pair lets a single string carry both 'which Git object
// store' and 'which path inside it'"). If url has no '#', relPath is "".
func SplitURL(url string) (repoRoot, relPath string) {
	idx := strings.LastIndexByte(url, '#')
	if idx < 0 {
		return url, ""
	}
	return url[:idx], url[idx+1:]
}

// JoinURL is the inverse of SplitURL.
func JoinURL(repoRoot, relPath string) string {
	return repoRoot + "#" + relPath
}

// GitSession is the concrete RA session backed by a go-git repository.
type GitSession struct {
	repo     *git.Repository
	repoRoot string
	anchor   string // repository-relative path the session is anchored at

	// revs holds every commit hash on the tracked ref, oldest first, so
	// that revs[n] is the tree as of revision n ("a
	// 'revision' is the ordinal position of a commit ... counted from
	// the root commit").
	revs []plumbing.Hash
}

// Open opens a Git-backed RA session anchored at url.
func Open(url string) (*GitSession, error) {
	repoRoot, relPath := SplitURL(url)
	repo, err := git.PlainOpen(repoRoot)
	if err != nil {
		return nil, fmt.Errorf("opening repository at %q: %w", repoRoot, err)
	}

	s := &GitSession{repo: repo, repoRoot: repoRoot, anchor: relPath}
	if err := s.loadRevisionIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *GitSession) loadRevisionIndex() error {
	head, err := s.repo.Head()
	if err != nil {
		// An empty repository (no commits yet) has no HEAD; treat it as
		// revision -1 (no youngest revision).
		s.revs = nil
		return nil
	}

	iter, err := s.repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return fmt.Errorf("walking commit log: %w", err)
	}
	var hashes []plumbing.Hash
	err = iter.ForEach(func(c *object.Commit) error {
		hashes = append(hashes, c.Hash)
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking commit log: %w", err)
	}

	// repo.Log walks back from HEAD following every parent, not only the
	// first; reverse it so that, on a linear history, revs[0] is the
	// repository's root commit.
	for i, j := 0, len(hashes)-1; i < j; i, j = i+1, j-1 {
		hashes[i], hashes[j] = hashes[j], hashes[i]
	}
	s.revs = hashes
	return nil
}

func (s *GitSession) Reparent(url string) error {
	repoRoot, relPath := SplitURL(url)
	if repoRoot != s.repoRoot {
		return fmt.Errorf("ra: cannot reparent across repositories (%q != %q)", repoRoot, s.repoRoot)
	}
	s.anchor = relPath
	return nil
}

func (s *GitSession) AnchorURL() string { return JoinURL(s.repoRoot, s.anchor) }

func (s *GitSession) LatestRevnum() (int64, error) {
	return int64(len(s.revs)) - 1, nil
}

func (s *GitSession) commitAt(rev int64) (*object.Commit, error) {
	if rev < 0 || rev >= int64(len(s.revs)) {
		return nil, fmt.Errorf("ra: revision %d out of range (have 0..%d)", rev, len(s.revs)-1)
	}
	return s.repo.CommitObject(s.revs[rev])
}

func (s *GitSession) resolveRev(rev int64) (int64, error) {
	if rev < 0 {
		return s.LatestRevnum()
	}
	return rev, nil
}

func (s *GitSession) CheckPath(relPath string, rev int64) (nodekind.Kind, error) {
	rev, err := s.resolveRev(rev)
	if err != nil {
		return nodekind.KindNone, err
	}
	if rev < 0 {
		return nodekind.KindNone, nil
	}
	commit, err := s.commitAt(rev)
	if err != nil {
		return nodekind.KindNone, err
	}
	tree, err := commit.Tree()
	if err != nil {
		return nodekind.KindNone, fmt.Errorf("reading tree at rev %d: %w", rev, err)
	}
	return lookupKind(tree, relPath), nil
}

func lookupKind(tree *object.Tree, relPath string) nodekind.Kind {
	relPath = strings.Trim(relPath, "/")
	if relPath == "" {
		return nodekind.KindDir
	}
	if _, err := tree.Tree(relPath); err == nil {
		return nodekind.KindDir
	}
	if _, err := tree.File(relPath); err == nil {
		return nodekind.KindFile
	}
	return nodekind.KindNone
}

func (s *GitSession) GetUUID() (uuid.UUID, error) {
	if len(s.revs) == 0 {
		return uuid.Nil, fmt.Errorf("ra: cannot derive UUID of an empty repository")
	}
	return idhash.RepositoryUUID(s.revs[0][:])
}

func (s *GitSession) GetReposRoot() (string, error) {
	return JoinURL(s.repoRoot, ""), nil
}

func (s *GitSession) GetFile(relPath string, rev int64, w io.Writer) (int64, map[string]string, error) {
	rev, err := s.resolveRev(rev)
	if err != nil {
		return 0, nil, err
	}
	commit, err := s.commitAt(rev)
	if err != nil {
		return 0, nil, err
	}
	tree, err := commit.Tree()
	if err != nil {
		return 0, nil, fmt.Errorf("reading tree at rev %d: %w", rev, err)
	}
	f, err := tree.File(strings.Trim(relPath, "/"))
	if err != nil {
		return 0, nil, fmt.Errorf("reading file %q at rev %d: %w", relPath, rev, err)
	}
	r, err := f.Reader()
	if err != nil {
		return 0, nil, fmt.Errorf("opening file %q: %w", relPath, err)
	}
	defer r.Close()

	if _, err := io.Copy(w, r); err != nil {
		return 0, nil, fmt.Errorf("streaming file %q: %w", relPath, err)
	}
	return rev, readProps(tree, relPath), nil
}

// GetProps reads relPath's versioned properties without touching file
// content, so it works uniformly for both file and directory nodes.
func (s *GitSession) GetProps(relPath string, rev int64) (map[string]string, error) {
	rev, err := s.resolveRev(rev)
	if err != nil {
		return nil, err
	}
	commit, err := s.commitAt(rev)
	if err != nil {
		return nil, err
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("reading tree at rev %d: %w", rev, err)
	}
	return readProps(tree, relPath), nil
}

func (s *GitSession) OldestRevAtPath(relPath string, rev int64) (int64, error) {
	rev, err := s.resolveRev(rev)
	if err != nil {
		return -1, err
	}
	relPath = strings.Trim(relPath, "/")

	last := int64(-1)
	for r := rev; r >= 0; r-- {
		commit, err := s.commitAt(r)
		if err != nil {
			return -1, err
		}
		tree, err := commit.Tree()
		if err != nil {
			return -1, err
		}
		if lookupKind(tree, relPath) == nodekind.KindNone {
			break
		}
		last = r
	}
	return last, nil
}

func (s *GitSession) GetCommitEditor(revprops map[string]string) (editor.CommitEditor, error) {
	var base int64 = -1
	if len(s.revs) > 0 {
		base = int64(len(s.revs)) - 1
	}
	return newGitEditor(s, revprops, base), nil
}

func (s *GitSession) ReadTree(rev int64, path string) (map[string]editor.TreeFile, error) {
	rev, err := s.resolveRev(rev)
	if err != nil {
		return nil, err
	}
	if rev < 0 {
		return map[string]editor.TreeFile{}, nil
	}
	commit, err := s.commitAt(rev)
	if err != nil {
		return nil, err
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, err
	}

	prefix := strings.Trim(path, "/")
	out := map[string]editor.TreeFile{}
	err = tree.Files().ForEach(func(f *object.File) error {
		if prefix != "" && f.Name != prefix && !strings.HasPrefix(f.Name, prefix+"/") {
			return nil
		}
		content, err := f.Contents()
		if err != nil {
			return fmt.Errorf("reading %q: %w", f.Name, err)
		}
		out[f.Name] = editor.TreeFile{Content: []byte(content), Kind: nodekind.KindFile}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// readProps reads the sidecar property blob for relPath, if any (see
// materialize in gitcommit.go: directory/file properties are persisted as
// a hidden ".kaiprops" blob since Git trees carry no native property
// slot).
func readProps(tree *object.Tree, relPath string) map[string]string {
	propsPath := propsBlobPath(relPath)
	f, err := tree.File(propsPath)
	if err != nil {
		return nil
	}
	content, err := f.Contents()
	if err != nil {
		return nil
	}
	return decodeProps(content)
}

func propsBlobPath(relPath string) string {
	relPath = strings.Trim(relPath, "/")
	if relPath == "" {
		return ".kaiprops"
	}
	return relPath + ".kaiprops"
}

func decodeProps(content string) map[string]string {
	props := map[string]string{}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		if idx := strings.IndexByte(line, '='); idx >= 0 {
			props[line[:idx]] = line[idx+1:]
		}
	}
	return props
}

func encodeProps(props map[string]string) string {
	var b strings.Builder
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sortStrings(keys)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(props[k])
		b.WriteByte('\n')
	}
	return b.String()
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
