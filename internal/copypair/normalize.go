package copypair

import (
	"path/filepath"
	"strings"

	"github.com/kailayerhq/kai-copytree/internal/kerrors"
	"github.com/kailayerhq/kai-copytree/internal/pathutil"
)

// EntryReader is the narrow slice of the WC layer that WC->repo
// promotion (step 7) needs: the URL and revision a WC entry was last
// recorded at (wc layer "entry(path)").
type EntryReader interface {
	EntryURL(path string) (url string, revision int64, ok bool, err error)
}

// Normalize turns user-supplied sources and a destination into validated
// CopyPair values . entries may be nil; it is only consulted
// for the WC->repo promotion step, which never applies to move.
func Normalize(sources []CopySource, dst string, isMove bool, entries EntryReader) ([]CopyPair, error) {
	if len(sources) == 0 {
		return nil, kerrors.New(kerrors.UnsupportedFeature, "", "no sources given")
	}

	// Step 1: reject WC-only peg revisions on URL sources.
	for _, s := range sources {
		if IsURL(s.Path) && s.PegRevision.Kind.IsWCOnly() {
			return nil, kerrors.New(kerrors.ClientBadRevision, s.Path, "revision kind not valid for a URL")
		}
	}

	// Step 4: enforce locality homogeneity across sources.
	srcsAreURLs := IsURL(sources[0].Path)
	for _, s := range sources[1:] {
		if IsURL(s.Path) != srcsAreURLs {
			return nil, kerrors.New(kerrors.UnsupportedFeature, "", "Cannot mix repository and working copy sources")
		}
	}
	dstIsURL := IsURL(dst)

	pairs := make([]CopyPair, 0, len(sources))
	for _, s := range sources {
		pair := CopyPair{
			Src:         s.Path,
			SrcOriginal: s.Path,
			SrcIsURL:    srcsAreURLs,
			DstIsURL:    dstIsURL,
		}

		// Step 3: resolve peg/op revisions.
		pair.SrcPegRevision = s.PegRevision
		if pair.SrcPegRevision.Kind == RevUnspecified {
			if srcsAreURLs {
				pair.SrcPegRevision = Revision{Kind: RevHead}
			} else {
				pair.SrcPegRevision = Revision{Kind: RevWorking}
			}
		}
		pair.SrcOpRevision = s.Revision
		if pair.SrcOpRevision.Kind == RevUnspecified {
			pair.SrcOpRevision = pair.SrcPegRevision
		}

		// Step 2: multi-source destinations are treated as a directory;
		// a single source uses dst verbatim.
		pairDst := dst
		if len(sources) > 1 {
			base := pathutil.Basename(stripTrailingSlash(s.Path))
			if srcsAreURLs {
				pairDst = pathutil.Join2(dst, base)
			} else {
				pairDst = filepath.Join(dst, base)
			}
		}
		pair.Dst = pairDst

		// Step 5: no-copy-into-own-child, local-only.
		if !srcsAreURLs && !dstIsURL {
			if isLocalAncestor(s.Path, pairDst) {
				return nil, kerrors.New(kerrors.UnsupportedFeature, s.Path, "Cannot copy path into its own child")
			}
		}

		// Step 6: move-specific rules.
		if isMove {
			if srcsAreURLs != dstIsURL {
				return nil, kerrors.New(kerrors.UnsupportedFeature, s.Path, "Cannot move between working copy and repository")
			}
			if s.Path == pairDst {
				return nil, kerrors.New(kerrors.UnsupportedFeature, s.Path, "Cannot move path into itself")
			}
		}

		pairs = append(pairs, pair)
	}

	// Step 7: WC->repo promotion.
	if !isMove && !srcsAreURLs && entries != nil {
		promote := false
		for i := range pairs {
			if pairs[i].SrcOpRevision.Kind != RevUnspecified && pairs[i].SrcOpRevision.Kind != RevWorking {
				promote = true
				break
			}
		}
		if promote {
			for i := range pairs {
				url, rev, ok, err := entries.EntryURL(pairs[i].Src)
				if err != nil {
					return nil, err
				}
				if !ok || url == "" {
					return nil, kerrors.New(kerrors.EntryMissingURL, pairs[i].Src, "entry has no URL")
				}
				pairs[i].Src = url
				pairs[i].SrcIsURL = true
				pairs[i].SrcPegRevision = Revision{Kind: RevNumber, Number: rev}
			}
			srcsAreURLs = true
		}
	}

	return pairs, nil
}

func stripTrailingSlash(p string) string {
	for len(p) > 1 && p[len(p)-1] == '/' {
		p = p[:len(p)-1]
	}
	return p
}

// isLocalAncestor reports whether dst is src or a descendant of src on
// the local filesystem (step 5).
func isLocalAncestor(src, dst string) bool {
	srcAbs, err1 := filepath.Abs(src)
	dstAbs, err2 := filepath.Abs(dst)
	if err1 != nil || err2 != nil {
		srcAbs, dstAbs = src, dst
	}
	rel, err := filepath.Rel(srcAbs, dstAbs)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return !strings.HasPrefix(rel, "..")
}
