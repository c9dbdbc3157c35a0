package kerrors

import "strings"

// Compose implements the three-phase composite chaining rules for the
// WC->Repo path: commit, unlock, and cleanup each produce an optional
// error, and they are combined into a single message.
func Compose(commitErr, unlockErr, cleanupErr error) error {
	if commitErr == nil && unlockErr == nil && cleanupErr == nil {
		return nil
	}

	var b strings.Builder
	if commitErr != nil {
		b.WriteString("Commit failed (details follow):\n")
		b.WriteString(commitErr.Error())
	} else {
		b.WriteString("Commit succeeded, but other errors follow:")
	}

	if unlockErr != nil {
		b.WriteString("\nError unlocking locked dirs (details follow):\n")
		b.WriteString(unlockErr.Error())
	}
	if cleanupErr != nil {
		b.WriteString("\nError in post-commit clean-up (details follow):\n")
		b.WriteString(cleanupErr.Error())
	}

	return &compositeError{msg: b.String(), commit: commitErr, unlock: unlockErr, cleanup: cleanupErr}
}

// compositeError preserves the three underlying errors for callers that
// want to inspect a specific phase, while Error() renders the chained
// human-readable message requires.
type compositeError struct {
	msg                     string
	commit, unlock, cleanup error
}

func (c *compositeError) Error() string { return c.msg }

// Commit returns the commit-phase error, if any.
func (c *compositeError) Commit() error { return c.commit }

// Unlock returns the unlock-phase error, if any.
func (c *compositeError) Unlock() error { return c.unlock }

// Cleanup returns the cleanup-phase error, if any.
func (c *compositeError) Cleanup() error { return c.cleanup }
