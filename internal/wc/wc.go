// Package wc implements the working-copy (WC) administrative layer
// consumed as a narrow collaborator by the C4/C6/C7 handlers :
// entry storage, admin locks ("access batons"), and the add/delete/
// checkout primitives a WC-side copy or move drives. The concrete Store
// is backed by SQLite for entry/lock bookkeeping and the local
// filesystem for file content: SQLite metadata alongside content on
// disk.
package wc

import (
	"github.com/kailayerhq/kai-copytree/internal/mergeinfo"
	"github.com/kailayerhq/kai-copytree/internal/nodekind"
)

// Schedule is the pending-commit state of a WC entry.
type Schedule int

const (
	ScheduleNormal Schedule = iota
	ScheduleAdd
	ScheduleDelete
)

// Entry mirrors one row of WC metadata for a versioned path: its kind,
// the URL/revision it was checked out from, and, when scheduled for
// addition with history, the copy-from source that produced it.
type Entry struct {
	Path         string
	Kind         nodekind.Kind
	URL          string
	ReposRoot    string
	ReposUUID    string
	Revision     int64
	Schedule     Schedule
	CopyFromURL  string
	CopyFromRev  int64
	HasLocalMods bool
	Properties   map[string]string
}

// AdmAccess is an opaque admin-lock handle ("access baton") scoped to
// one directory. It is directory-scoped and
// exclusive: a second AdmOpen/AdmProbeOpen on the same path fails until
// the first is closed.
type AdmAccess struct {
	path  string
	store *Store
}

// Path returns the directory this access baton locks.
func (a *AdmAccess) Path() string { return a.path }

// AdminStore is the WC-layer contract consumed by C4 (WC->WC), C6
// (WC->repo), and C7 (repo->WC).
type AdminStore interface {
	// AdmOpen acquires an exclusive admin lock on parent. depth bounds
	// how many directory levels below parent are locked along with it
	// (0 means parent only); cancel is polled before the lock is taken.
	AdmOpen(parent string, depth int, cancel func() error) (*AdmAccess, error)

	// AdmProbeOpen is AdmOpen but tolerant of path not yet being a
	// versioned WC directory (used when the destination might not exist
	// yet).
	AdmProbeOpen(path string) (*AdmAccess, error)

	// AdmRetrieve returns the access baton already covering path,
	// sourced from a lock opened at one of its ancestors: retrieve the
	// dest lock from the source's access baton.
	AdmRetrieve(adm *AdmAccess, path string) (*AdmAccess, error)

	// AdmClose releases adm. Safe to call once; a second call is a
	// no-op.
	AdmClose(adm *AdmAccess) error

	// Entry reads the WC entry at path, or nil if path is unversioned.
	Entry(path string) (*Entry, error)

	// Copy duplicates the on-disk tree at src into
	// filepath.Join(adm.Path(), baseName), scheduling the new entry (and,
	// recursively, every entry beneath it) as added-with-history from
	// src's own URL/revision.
	Copy(src string, adm *AdmAccess, baseName string) error

	// Delete removes src from disk and drops its entry, and every entry
	// beneath it, from the admin store. If src carries local
	// modifications and force is false, it fails rather than discard
	// them.
	Delete(src string, adm *AdmAccess, force bool) error

	// AddWithHistory schedules the tree already present on disk at dst
	// (e.g. freshly checked out) as added-with-history from
	// (srcURL, srcRev).
	AddWithHistory(dst string, adm *AdmAccess, srcURL string, srcRev int64) error

	// AddReposFile moves the file at textPath into dst, schedules it
	// added, attaches props, and (when srcURL is non-empty) records it
	// as added-with-history from (srcURL, srcRev).
	AddReposFile(dst string, adm *AdmAccess, textPath string, props map[string]string, srcURL string, srcRev int64) error

	// Checkout materializes srcURL as of revision op (-1 for head) onto
	// disk at dst, unversioned, and returns the concrete revision it
	// landed on. peg and depth are not consulted.
	Checkout(srcURL string, dst string, peg, op int64, depth int) (int64, error)

	// ParseMergeinfo reads entry's recorded svn:mergeinfo property, if
	// any; path is not consulted.
	ParseMergeinfo(entry *Entry, path string) (mergeinfo.Mergeinfo, error)

	// RecordMergeinfo writes info as path's svn:mergeinfo property.
	RecordMergeinfo(path string, info mergeinfo.Mergeinfo, adm *AdmAccess) error
}
