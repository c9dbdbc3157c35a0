package ra

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage"

	"github.com/kailayerhq/kai-copytree/internal/editor"
	"github.com/kailayerhq/kai-copytree/internal/nodekind"
)

// nodeChange is one staged mutation against the base tree. gitEditor keeps
// these in a flat path-keyed map and only materializes git objects when
// CloseEdit runs, matching the "one CloseEdit, one commit" contract of
// editor.CommitEditor.
type nodeChange struct {
	kind    nodekind.Kind
	content []byte
	props   map[string]string
	deleted bool
}

// gitEditor is the concrete editor.CommitEditor backing a GitSession.
type gitEditor struct {
	session  *GitSession
	revprops map[string]string
	baseRev  int64

	staged map[string]*nodeChange
	closed bool
}

func newGitEditor(s *GitSession, revprops map[string]string, baseRev int64) *gitEditor {
	return &gitEditor{
		session:  s,
		revprops: revprops,
		baseRev:  baseRev,
		staged:   map[string]*nodeChange{},
	}
}

func normPath(p string) string {
	return strings.Trim(p, "/")
}

func (e *gitEditor) OpenRoot() (editor.DirBaton, error) {
	return editor.DirBaton(""), nil
}

func (e *gitEditor) OpenDirectory(path string, parent editor.DirBaton) (editor.DirBaton, error) {
	return editor.DirBaton(normPath(path)), nil
}

func (e *gitEditor) AddDirectory(path string, parent editor.DirBaton, copyFrom string, copyFromRev int64) (editor.DirBaton, error) {
	path = normPath(path)
	e.staged[path] = &nodeChange{kind: nodekind.KindDir}

	if copyFrom == "" {
		return editor.DirBaton(path), nil
	}

	files, err := e.session.ReadTree(copyFromRev, copyFrom)
	if err != nil {
		return "", fmt.Errorf("resolving copy-from %q@%d: %w", copyFrom, copyFromRev, err)
	}
	copyFrom = normPath(copyFrom)
	for srcPath, tf := range files {
		suffix := strings.TrimPrefix(normPath(srcPath), copyFrom)
		dst := path + suffix
		e.staged[dst] = &nodeChange{kind: nodekind.KindFile, content: tf.Content}
	}
	return editor.DirBaton(path), nil
}

func (e *gitEditor) AddFile(path string, parent editor.DirBaton, copyFrom string, copyFromRev int64) (editor.FileBaton, error) {
	path = normPath(path)
	change := &nodeChange{kind: nodekind.KindFile}

	if copyFrom != "" {
		files, err := e.session.ReadTree(copyFromRev, copyFrom)
		if err != nil {
			return "", fmt.Errorf("resolving copy-from %q@%d: %w", copyFrom, copyFromRev, err)
		}
		if tf, ok := files[normPath(copyFrom)]; ok {
			change.content = tf.Content
		}
	}
	e.staged[path] = change
	return editor.FileBaton(path), nil
}

func (e *gitEditor) SetFileText(fb editor.FileBaton, content []byte) error {
	path := string(fb)
	change, ok := e.staged[path]
	if !ok {
		change = &nodeChange{kind: nodekind.KindFile}
		e.staged[path] = change
	}
	change.content = content
	return nil
}

func (e *gitEditor) DeleteEntry(path string, parent editor.DirBaton) error {
	path = normPath(path)
	e.staged[path] = &nodeChange{deleted: true}
	return nil
}

func (e *gitEditor) ChangeDirProp(db editor.DirBaton, name, value string) error {
	return e.setProp(string(db), nodekind.KindDir, name, value)
}

func (e *gitEditor) ChangeFileProp(fb editor.FileBaton, name, value string) error {
	return e.setProp(string(fb), nodekind.KindFile, name, value)
}

func (e *gitEditor) setProp(path string, kind nodekind.Kind, name, value string) error {
	path = normPath(path)
	change, ok := e.staged[path]
	if !ok {
		change = &nodeChange{kind: kind}
		e.staged[path] = change
	}
	if change.props == nil {
		change.props = map[string]string{}
	}
	change.props[name] = value
	return nil
}

func (e *gitEditor) CloseFile(fb editor.FileBaton) error { return nil }

func (e *gitEditor) CloseDir(db editor.DirBaton) error { return nil }

func (e *gitEditor) CloseEdit() (editor.CommitInfo, error) {
	if e.closed {
		return editor.CommitInfo{}, fmt.Errorf("ra: edit already closed")
	}

	files, err := e.materialize()
	if err != nil {
		return editor.CommitInfo{}, err
	}

	treeHash, err := buildTree(e.session.repo.Storer, files)
	if err != nil {
		return editor.CommitInfo{}, fmt.Errorf("building tree: %w", err)
	}

	var parents []plumbing.Hash
	if e.baseRev >= 0 {
		parents = []plumbing.Hash{e.session.revs[e.baseRev]}
	}

	author := e.revprops["author"]
	if author == "" {
		author = "kai-copytree"
	}
	message := e.revprops["svn:log"]

	commit := &object.Commit{
		Author: object.Signature{
			Name: author,
			When: commitTimestamp(e.revprops),
		},
		Committer: object.Signature{
			Name: author,
			When: commitTimestamp(e.revprops),
		},
		Message:      message,
		TreeHash:     treeHash,
		ParentHashes: parents,
	}
	commitHash, err := storeCommit(e.session.repo.Storer, commit)
	if err != nil {
		return editor.CommitInfo{}, fmt.Errorf("storing commit: %w", err)
	}

	if err := e.updateRef(commitHash); err != nil {
		return editor.CommitInfo{}, err
	}

	e.session.revs = append(e.session.revs, commitHash)
	e.closed = true

	return editor.CommitInfo{
		Revision: int64(len(e.session.revs)) - 1,
		Author:   author,
		Date:     commit.Author.When.Format(time.RFC3339),
	}, nil
}

func commitTimestamp(revprops map[string]string) time.Time {
	if ts, ok := revprops["date"]; ok {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (e *gitEditor) updateRef(commitHash plumbing.Hash) error {
	head, err := e.session.repo.Head()
	if err != nil {
		// Empty repository: create the default branch.
		ref := plumbing.NewHashReference("refs/heads/master", commitHash)
		return e.session.repo.Storer.SetReference(ref)
	}
	ref := plumbing.NewHashReference(head.Name(), commitHash)
	return e.session.repo.Storer.SetReference(ref)
}

func (e *gitEditor) AbortEdit() error {
	if e.closed {
		return nil
	}
	e.staged = map[string]*nodeChange{}
	e.closed = true
	return nil
}

// materialize applies e.staged on top of the base revision's file listing
// and returns the resulting path -> content map, including the
// ".kaiprops" sidecar blobs that carry directory and file properties
// (git trees have no native property slot).
func (e *gitEditor) materialize() (map[string][]byte, error) {
	files := map[string][]byte{}
	if e.baseRev >= 0 {
		base, err := e.session.ReadTree(e.baseRev, "")
		if err != nil {
			return nil, fmt.Errorf("reading base tree: %w", err)
		}
		for p, tf := range base {
			files[p] = tf.Content
		}
	}

	paths := make([]string, 0, len(e.staged))
	for p := range e.staged {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		change := e.staged[p]
		if change.deleted {
			prefix := p + "/"
			for existing := range files {
				if existing == p || strings.HasPrefix(existing, prefix) {
					delete(files, existing)
				}
			}
			delete(files, propsBlobPath(p))
			continue
		}
		if change.kind == nodekind.KindFile {
			files[p] = change.content
		}
		if change.props != nil {
			files[propsBlobPath(p)] = []byte(encodeProps(change.props))
		}
	}
	return files, nil
}

// buildTree writes one blob per file in flat and one tree object per
// directory level, bottom-up, and returns the root tree's hash.
func buildTree(storer storage.Storer, flat map[string][]byte) (plumbing.Hash, error) {
	root := newTreeNode()
	for path, content := range flat {
		root.insert(strings.Split(path, "/"), content)
	}
	return root.write(storer)
}

type treeNode struct {
	files map[string][]byte
	dirs  map[string]*treeNode
}

func newTreeNode() *treeNode {
	return &treeNode{files: map[string][]byte{}, dirs: map[string]*treeNode{}}
}

func (n *treeNode) insert(segments []string, content []byte) {
	if len(segments) == 1 {
		n.files[segments[0]] = content
		return
	}
	child, ok := n.dirs[segments[0]]
	if !ok {
		child = newTreeNode()
		n.dirs[segments[0]] = child
	}
	child.insert(segments[1:], content)
}

func (n *treeNode) write(storer storage.Storer) (plumbing.Hash, error) {
	var entries []object.TreeEntry

	names := make([]string, 0, len(n.files))
	for name := range n.files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		hash, err := storeBlob(storer, n.files[name])
		if err != nil {
			return plumbing.ZeroHash, err
		}
		entries = append(entries, object.TreeEntry{Name: name, Mode: filemode.Regular, Hash: hash})
	}

	dirNames := make([]string, 0, len(n.dirs))
	for name := range n.dirs {
		dirNames = append(dirNames, name)
	}
	sort.Strings(dirNames)
	for _, name := range dirNames {
		hash, err := n.dirs[name].write(storer)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		entries = append(entries, object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: hash})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	tree := &object.Tree{Entries: entries}
	return storeTree(storer, tree)
}

func storeBlob(storer storage.Storer, content []byte) (plumbing.Hash, error) {
	obj := storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if _, err := w.Write(content); err != nil {
		w.Close()
		return plumbing.ZeroHash, err
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, err
	}
	return storer.SetEncodedObject(obj)
}

func storeTree(storer storage.Storer, tree *object.Tree) (plumbing.Hash, error) {
	obj := storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, err
	}
	return storer.SetEncodedObject(obj)
}

func storeCommit(storer storage.Storer, commit *object.Commit) (plumbing.Hash, error) {
	obj := storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return plumbing.ZeroHash, err
	}
	return storer.SetEncodedObject(obj)
}
