// Package ra implements the remote-access (RA) session layer (component
// C10): a live handle to a remote repository anchored at some URL. The
// concrete Session is backed by a Git object store opened through
// go-git, wrapping *git.Repository.
package ra

import (
	"io"

	"github.com/google/uuid"

	"github.com/kailayerhq/kai-copytree/internal/editor"
	"github.com/kailayerhq/kai-copytree/internal/nodekind"
)

// Session is the RA-layer contract consumed by C5, C6, and C7:
// open/reparent a session, check paths, fetch files, and obtain a
// commit editor.
type Session interface {
	// Reparent moves the session's anchor URL without reopening the
	// underlying connection ("reparenting moves its anchor
	// without reopening").
	Reparent(url string) error

	// AnchorURL returns the session's current anchor.
	AnchorURL() string

	// LatestRevnum returns the repository's youngest revision.
	LatestRevnum() (int64, error)

	// CheckPath reports the kind of the node at relPath (relative to the
	// repository root) as of rev, or KindNone if it does not exist.
	CheckPath(relPath string, rev int64) (nodekind.Kind, error)

	// GetUUID returns the repository's UUID.
	GetUUID() (uuid.UUID, error)

	// GetReposRoot returns the URL of the repository root.
	GetReposRoot() (string, error)

	// GetFile streams the content of the file at relPath as of rev into
	// w, and returns the revision actually used (meaningful when rev is
	// the "head" sentinel) plus the file's versioned properties.
	GetFile(relPath string, rev int64, w io.Writer) (realRev int64, props map[string]string, err error)

	// GetProps returns the versioned properties of the node (file or
	// directory) at relPath as of rev, without fetching file content.
	// Used to read a source node's explicit svn:mergeinfo.
	GetProps(relPath string, rev int64) (props map[string]string, err error)

	// OldestRevAtPath returns the oldest revision at which relPath
	// existed, walking back from peg revision rev for as long as a node
	// exists at relPath. Renames are not followed.
	// Returns -1 if the node has no history.
	OldestRevAtPath(relPath string, rev int64) (int64, error)

	// GetCommitEditor obtains a commit editor for a single new revision,
	// with the given revision properties (e.g. "svn:log").
	GetCommitEditor(revprops map[string]string) (editor.CommitEditor, error)

	// ReadTree satisfies editor.TreeReader so a commit editor created
	// from this session can resolve copy-from sources.
	ReadTree(rev int64, path string) (map[string]editor.TreeFile, error)
}
