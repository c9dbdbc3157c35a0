// Package ancestor implements the Ancestor Computer (component C2):
// computing the longest common path ancestor across all sources and all
// destinations of a batch of copy pairs.
package ancestor

import (
	"github.com/kailayerhq/kai-copytree/internal/copypair"
	"github.com/kailayerhq/kai-copytree/internal/pathutil"
)

// Common holds the three ancestors defines.
type Common struct {
	// Src is the longest common ancestor of every pair's Src.
	Src string
	// Dst is the longest common ancestor of every pair's Dst. For a
	// single pair this is the destination itself, not its parent: with
	// one pair, dst_ancestor is the single dst itself.
	Dst string
	// Cross is the longest ancestor of Src and Dst together -- the URL
	// at which an RA session must be opened for repo->repo operations.
	Cross string
}

// Compute implements common_ancestors. Paths are compared as
// "/"-separated segments (not raw string prefixes), matching the
// original's path-segment semantics.
func Compute(pairs []copypair.CopyPair) Common {
	if len(pairs) == 0 {
		return Common{}
	}

	srcAncestor := pairs[0].Src
	dstAncestor := pairs[0].Dst
	for _, p := range pairs[1:] {
		srcAncestor = pathutil.CommonAncestorSegments(srcAncestor, p.Src)
		dstAncestor = pathutil.CommonAncestorSegments(dstAncestor, p.Dst)
	}

	cross := pathutil.CommonAncestorSegments(srcAncestor, dstAncestor)
	return Common{Src: srcAncestor, Dst: dstAncestor, Cross: cross}
}
