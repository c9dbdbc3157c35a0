package copytree

import (
	"path/filepath"

	"github.com/kailayerhq/kai-copytree/internal/copypair"
	"github.com/kailayerhq/kai-copytree/internal/kerrors"
	"github.com/kailayerhq/kai-copytree/internal/pathutil"
	"github.com/kailayerhq/kai-copytree/internal/ra"
	"github.com/kailayerhq/kai-copytree/internal/wc"
)

// OpenSession opens (or reopens) an RA session anchored at url. Injected
// by callers so the dispatch core never hard-codes a transport.
type OpenSession func(url string) (ra.Session, error)

// Copy implements multi-pair copy entry point. It normalizes
// sources against dst, dispatches by locality (matrix), and
// on copyAsChild retries once against dst/basename(src) if the first
// attempt failed because the destination already existed.
func Copy(store wc.AdminStore, openSession OpenSession, sources []copypair.CopySource, dst string, copyAsChild bool, cb Callbacks) (*CommitInfo, error) {
	if !copyAsChild && len(sources) > 1 {
		return nil, kerrors.New(kerrors.ClientMultipleSourcesDisallowed, dst, "multiple sources require copy_as_child")
	}

	entries := wcEntryReader{store: store}
	pairs, err := copypair.Normalize(sources, dst, false, entries)
	if err != nil {
		return nil, err
	}

	info, err := dispatchPairs(store, openSession, pairs, false, false, cb)
	if copyAsChild && len(sources) == 1 && retryableAsChild(err) {
		childDst := joinChild(dst, sources[0].Path)
		childPairs, err2 := copypair.Normalize(sources, childDst, false, entries)
		if err2 != nil {
			return nil, err2
		}
		return dispatchPairs(store, openSession, childPairs, false, false, cb)
	}
	return info, err
}

// Move implements multi-pair move entry point. force bypasses
// the WC delete's local-modification check; moveAsChild retries exactly
// as Copy's copyAsChild does.
func Move(store wc.AdminStore, openSession OpenSession, sources []copypair.CopySource, dst string, force, moveAsChild bool, cb Callbacks) (*CommitInfo, error) {
	if !moveAsChild && len(sources) > 1 {
		return nil, kerrors.New(kerrors.ClientMultipleSourcesDisallowed, dst, "multiple sources require move_as_child")
	}

	pairs, err := copypair.Normalize(sources, dst, true, nil)
	if err != nil {
		return nil, err
	}

	info, err := dispatchPairs(store, openSession, pairs, true, force, cb)
	if moveAsChild && len(sources) == 1 && retryableAsChild(err) {
		childDst := joinChild(dst, sources[0].Path)
		childPairs, err2 := copypair.Normalize(sources, childDst, true, nil)
		if err2 != nil {
			return nil, err2
		}
		return dispatchPairs(store, openSession, childPairs, true, force, cb)
	}
	return info, err
}

// CopyOne is the single-source legacy adapter describes: a
// one-element Copy call that always retries as-child on conflict.
func CopyOne(store wc.AdminStore, openSession OpenSession, source copypair.CopySource, dst string, cb Callbacks) (*CommitInfo, error) {
	return Copy(store, openSession, []copypair.CopySource{source}, dst, true, cb)
}

// MoveOne is CopyOne's move counterpart.
func MoveOne(store wc.AdminStore, openSession OpenSession, source copypair.CopySource, dst string, force bool, cb Callbacks) (*CommitInfo, error) {
	return Move(store, openSession, []copypair.CopySource{source}, dst, force, true, cb)
}

func retryableAsChild(err error) bool {
	return kerrors.Is(err, kerrors.EntryExists) || kerrors.Is(err, kerrors.FsAlreadyExists)
}

func joinChild(dst, src string) string {
	base := pathutil.Basename(src)
	if copypair.IsURL(dst) {
		return pathutil.Join2(dst, base)
	}
	return filepath.Join(dst, base)
}

// dispatchPairs implements locality matrix. All pairs share
// one (srcsAreURLs, dstIsURL) locality, enforced by Normalize.
func dispatchPairs(store wc.AdminStore, openSession OpenSession, pairs []copypair.CopyPair, isMove, force bool, cb Callbacks) (*CommitInfo, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	srcsAreURLs := pairs[0].SrcIsURL
	dstIsURL := pairs[0].DstIsURL

	switch {
	case !srcsAreURLs && !dstIsURL:
		if isMove {
			return nil, doWCToWCMove(store, pairs, force, cb)
		}
		return nil, doWCToWCCopy(store, pairs, cb)

	case !srcsAreURLs && dstIsURL:
		return doWCToRepo(store, openSession, pairs, isMove, cb)

	case srcsAreURLs && !dstIsURL:
		return nil, doRepoToWC(store, openSession, pairs, cb)

	default:
		return doRepoToRepo(openSession, pairs, isMove, cb)
	}
}
