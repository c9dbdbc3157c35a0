// Package copytree implements the dispatch core (components C4-C8):
// given normalized copy pairs, route them to the locality-appropriate
// handler and drive it to completion as one WC-local batch or one
// atomic repository commit.
package copytree

import (
	"time"

	"github.com/kailayerhq/kai-copytree/internal/editor"
	"github.com/kailayerhq/kai-copytree/internal/nodekind"
)

// CommitItem describes one pending change to a repository commit, the
// unit a log-message callback is shown and a path-driver visits.
type CommitItem struct {
	Path        string
	Kind        nodekind.Kind
	IsAdd       bool
	IsDelete    bool
	CopyFromURL string
	CopyFromRev int64
}

// NotifyEvent is one user-visible progress notification.
type NotifyEvent struct {
	Action string // "add", "delete", "update"
	Path   string
}

// Callbacks are the cooperative hooks the dispatch core polls or
// invokes: a cancellation callback polled at every pair boundary, a
// progress notifier, and a log-message provider. Every field may be
// nil; a nil Cancel is never
// cancelled, a nil Notify is silent, a nil GetLogMsg supplies an empty
// message (never aborts).
type Callbacks struct {
	Cancel    func() error
	Notify    func(NotifyEvent)
	GetLogMsg func(items []CommitItem) (message string, ok bool)
}

func (c Callbacks) cancel() error {
	if c.Cancel == nil {
		return nil
	}
	return c.Cancel()
}

func (c Callbacks) notify(event NotifyEvent) {
	if c.Notify != nil {
		c.Notify(event)
	}
}

func (c Callbacks) logMessage(items []CommitItem) (string, bool) {
	if c.GetLogMsg == nil {
		return "", true
	}
	return c.GetLogMsg(items)
}

// CommitInfo is what a repo-side commit returns; callers use it to learn
// the new revision. It is nil when a call never touched a repository
// (pure WC->WC).
type CommitInfo = editor.CommitInfo

// sleepForTimestamps is invoked after any WC mutation so that subsequent
// stat-based modification checks can distinguish the mutation from
// earlier state despite filesystem timestamp granularity. Kept as a
// process-wide var so tests can stub it out.
var sleepForTimestamps = func() {
	time.Sleep(time.Millisecond)
}
