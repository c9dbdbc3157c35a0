package editor

// CommitEditor is the delta-editor contract consumed by the repo->repo
// (C5) and WC->repo (C6) handlers . One CommitEditor drives
// exactly one commit: every Add/Delete/property change is staged and
// only takes effect in the repository when CloseEdit succeeds.
type CommitEditor interface {
	// OpenRoot returns the baton for the edit's root directory.
	OpenRoot() (DirBaton, error)

	// OpenDirectory opens an already-existing directory for traversal
	// (not creation) so descendants can be visited; parent is the
	// baton of path's parent directory.
	OpenDirectory(path string, parent DirBaton) (DirBaton, error)

	// AddDirectory adds a new directory at path. If copyFrom is
	// non-empty, the new directory's content is copied from that
	// repository-relative path at copyFromRev ("copy from
	// source URL@revnum").
	AddDirectory(path string, parent DirBaton, copyFrom string, copyFromRev int64) (DirBaton, error)

	// AddFile adds a new file at path, optionally as a copy.
	AddFile(path string, parent DirBaton, copyFrom string, copyFromRev int64) (FileBaton, error)

	// SetFileText stages content as fb's full text, replacing whatever
	// AddFile's copyFrom may have populated. Called for a plain add (no
	// copy-from) or when a working-copy file's local edits must be
	// applied on top of a copy (WC->repo handler streams
	// local file content through here).
	SetFileText(fb FileBaton, content []byte) error

	// DeleteEntry removes path (file or directory) from parent.
	DeleteEntry(path string, parent DirBaton) error

	// ChangeDirProp stages a property change on an open directory.
	ChangeDirProp(db DirBaton, name, value string) error

	// ChangeFileProp stages a property change on an open file.
	ChangeFileProp(fb FileBaton, name, value string) error

	// CloseFile finalizes a file baton. Directory batons stay open for
	// their children until CloseDir, so CloseFile has no directory
	// analogue.
	CloseFile(fb FileBaton) error

	// CloseDir finalizes a directory baton.
	CloseDir(db DirBaton) error

	// CloseEdit commits every staged change as one new revision.
	CloseEdit() (CommitInfo, error)

	// AbortEdit discards every staged change; the repository is left
	// untouched. Safe to call after CloseEdit has already succeeded (a
	// no-op) so callers can unconditionally defer it.
	AbortEdit() error
}
