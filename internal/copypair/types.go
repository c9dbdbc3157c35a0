// Package copypair implements the Pair Normalizer (component C1):
// turning user-supplied (sources, dst) into validated CopyPair values
// with peg/op revisions resolved and locality checked.
package copypair

import (
	"strings"

	"github.com/kailayerhq/kai-copytree/internal/nodekind"
)

// RevisionKind is the selector kind of a peg or operational revision
// ("peg_revision", "revision").
type RevisionKind int

const (
	// RevUnspecified means the caller did not name a revision; Normalize
	// fills in the appropriate default (head for URLs, working for local
	// paths, per step 3).
	RevUnspecified RevisionKind = iota
	// RevNumber is a concrete revision number (Revision.Number is valid).
	RevNumber
	// RevHead is the repository's youngest revision.
	RevHead
	// RevWorking is "the working copy's current, possibly-modified state".
	RevWorking
	// RevBase is "the revision the WC entry was last updated to".
	RevBase
	// RevCommitted is "the revision the WC entry was last changed at".
	RevCommitted
	// RevPrevious is "one revision before RevCommitted".
	RevPrevious
)

// wcOnlyKinds are the revision kinds that are meaningless for a URL
// source (step 1: "Reject if peg revision for a URL source is
// a WC-only kind").
var wcOnlyKinds = map[RevisionKind]bool{
	RevBase:      true,
	RevCommitted: true,
	RevPrevious:  true,
}

// Revision is a resolved-or-unresolved revision selector.
type Revision struct {
	Kind   RevisionKind
	Number int64
}

// IsWCOnly reports whether k only makes sense relative to a working-copy
// path rather than a repository URL.
func (k RevisionKind) IsWCOnly() bool { return wcOnlyKinds[k] }

// CopySource is the user-supplied description of one copy/move source
// .
type CopySource struct {
	// Path is a URL or a local working-copy path.
	Path string
	// Revision is the operational revision.
	Revision Revision
	// PegRevision is the revision in which Path is interpreted.
	PegRevision Revision
}

// CopyPair is the internal working record produced by Normalize and
// mutated in place by each locality handler .
type CopyPair struct {
	// Src is rewritten to a canonical URL when a WC source must be
	// treated as a repo source (step 7).
	Src string
	// SrcOriginal is Src before any peg relocation; used only by C7 for
	// checkout reporting.
	SrcOriginal string
	// SrcAbs is the absolute form of a local Src.
	SrcAbs string
	// SrcKind is filled in by the handler after an existence check.
	SrcKind nodekind.Kind
	SrcPegRevision, SrcOpRevision Revision
	// SrcRevnum is the resolved integer revision, once known.
	SrcRevnum int64
	// SrcRel is Src made relative to the RA session's anchor URL,
	// URI-decoded.
	SrcRel string

	Dst string
	// DstParent and BaseName are Dst split into parent and final
	// component.
	DstParent, BaseName string
	// DstRel is Dst made relative to the RA session anchor.
	DstRel string

	// SrcIsURL / DstIsURL record the locality of each endpoint, decided
	// once by Normalize and never recomputed by a handler.
	SrcIsURL, DstIsURL bool

	// Resurrection is set when src == dst for a repo->repo copy: a
	// legitimate reinstatement of a deleted node, not an error.
	Resurrection bool
}

// IsURL reports whether p is syntactically a URL rather than a local
// filesystem path: either a "scheme://" prefix (mirroring the
// original's svn_path_is_url check: a scheme is any run of
// letters/digits/+/-/. followed by "://"), or this module's own opaque
// "<repo-root>#<rel-path>" repository encoding (ra.JoinURL), which
// carries no scheme at all. A local working-copy path never contains
// "#".
func IsURL(p string) bool {
	if strings.ContainsRune(p, '#') {
		return true
	}
	i := 0
	for i < len(p) && isSchemeChar(p[i]) {
		i++
	}
	return i > 0 && i+2 < len(p) && p[i] == ':' && p[i+1] == '/' && p[i+2] == '/'
}

func isSchemeChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '+' || c == '-' || c == '.'
}
