// Package kerrors defines the stable error surface of the copy/move
// subsystem as typed values instead of bare strings.
package kerrors

import "fmt"

// Kind is one of the stable error codes the copy/move subsystem can
// surface at its API boundary.
type Kind int

const (
	// NodeUnknownKind: a working-copy source path does not exist.
	NodeUnknownKind Kind = iota
	// EntryExists: a working-copy destination already exists.
	EntryExists
	// FsAlreadyExists: a repository destination already exists.
	FsAlreadyExists
	// FsNotFound: source absent at the requested repository revision.
	FsNotFound
	// WcNotDirectory: destination parent is not a directory.
	WcNotDirectory
	// WcObstructedUpdate: a WC entry exists for dst but its working file
	// is missing and it is not scheduled for deletion.
	WcObstructedUpdate
	// UnsupportedFeature covers: mixed-locality sources, self-move,
	// cross-repo move, foreign-UUID directory copy, cross-boundary move,
	// copy into own child.
	UnsupportedFeature
	// ClientBadRevision: peg revision of a URL source is a WC-only kind.
	ClientBadRevision
	// RaIllegalURL: an RA session could not be opened at the computed URL.
	RaIllegalURL
	// ClientMultipleSourcesDisallowed: multiple sources without as_child.
	ClientMultipleSourcesDisallowed
	// EntryMissingURL: WC->repo promotion but the WC entry has no URL.
	EntryMissingURL
)

func (k Kind) String() string {
	switch k {
	case NodeUnknownKind:
		return "node_unknown_kind"
	case EntryExists:
		return "entry_exists"
	case FsAlreadyExists:
		return "fs_already_exists"
	case FsNotFound:
		return "fs_not_found"
	case WcNotDirectory:
		return "wc_not_directory"
	case WcObstructedUpdate:
		return "wc_obstructed_update"
	case UnsupportedFeature:
		return "unsupported_feature"
	case ClientBadRevision:
		return "client_bad_revision"
	case RaIllegalURL:
		return "ra_illegal_url"
	case ClientMultipleSourcesDisallowed:
		return "client_multiple_sources_disallowed"
	case EntryMissingURL:
		return "entry_missing_url"
	default:
		return "unknown"
	}
}

// Error is the structured error type this subsystem returns. Every
// instance carries the offending path so the message is actionable
// without the caller re-deriving it.
type Error struct {
	Kind    Kind
	Path    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Path)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error with no wrapped cause.
func New(kind Kind, path, message string) *Error {
	return &Error{Kind: kind, Path: path, Message: message}
}

// Wrap builds an *Error around an existing error.
func Wrap(kind Kind, path, message string, cause error) *Error {
	return &Error{Kind: kind, Path: path, Message: message, Cause: cause}
}

// Is reports whether err itself is a *Error of the given kind; errors
// wrapping a *Error are not unwrapped.
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	return e.Kind == kind
}
