// Package editor implements the commit-editor / path-driver contract
// (component C11): a visitor-style interface that receives
// add/delete/property-change calls in depth-first order and commits
// them all as a single new revision when closed.
package editor

import "github.com/kailayerhq/kai-copytree/internal/nodekind"

// DirBaton and FileBaton are the opaque per-node handles the editor
// hands back to the path driver ("baton-passed callbacks"). They are
// modeled as the repository-relative path itself, since that is all
// this editor's flat-map implementation needs to identify a node -- an
// owned handle whose type is fixed by the editor interface, not
// necessarily an opaque pointer.
type DirBaton string

// FileBaton is the per-file handle returned by AddFile.
type FileBaton string

// CommitInfo is returned once CloseEdit succeeds.
type CommitInfo struct {
	Revision int64
	Date     string
	Author   string
}

// TreeFile is one file read back from a TreeReader.
type TreeFile struct {
	Content []byte
	Kind    nodekind.Kind
}

// TreeReader lets the editor resolve a copy-from source that lives in an
// earlier revision of the same repository (used when AddDirectory or
// AddFile carries copyfrom metadata -- ADD action "copy from
// source URL@revnum"). It is implemented by the RA session that created
// this editor.
type TreeReader interface {
	// ReadTree returns every file under path as it existed at rev, keyed
	// by path relative to the repository root. An empty path means "the
	// whole tree".
	ReadTree(rev int64, path string) (map[string]TreeFile, error)
}
