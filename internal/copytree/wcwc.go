package copytree

import (
	"os"

	"github.com/kailayerhq/kai-copytree/internal/copypair"
	"github.com/kailayerhq/kai-copytree/internal/kerrors"
	"github.com/kailayerhq/kai-copytree/internal/nodekind"
	"github.com/kailayerhq/kai-copytree/internal/pathutil"
	"github.com/kailayerhq/kai-copytree/internal/wc"
)

// statKind reports the nodekind.Kind of a local filesystem path, or
// KindNone if it does not exist.
func statKind(path string) (nodekind.Kind, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nodekind.KindNone, nil
	}
	if err != nil {
		return nodekind.KindNone, err
	}
	if info.IsDir() {
		return nodekind.KindDir, nil
	}
	return nodekind.KindFile, nil
}

// preflightWCWC runs pre-flight loop: src must exist, dst
// must not, and dst's parent must be a directory. It fills in
// SrcKind/DstParent/BaseName on each pair.
func preflightWCWC(pairs []copypair.CopyPair) error {
	for i := range pairs {
		kind, err := statKind(pairs[i].Src)
		if err != nil {
			return err
		}
		if kind == nodekind.KindNone {
			return kerrors.New(kerrors.NodeUnknownKind, pairs[i].Src, "path does not exist")
		}
		pairs[i].SrcKind = kind

		dstKind, err := statKind(pairs[i].Dst)
		if err != nil {
			return err
		}
		if dstKind != nodekind.KindNone {
			return kerrors.New(kerrors.EntryExists, pairs[i].Dst, "path already exists")
		}

		pairs[i].DstParent = pathutil.Dirname(pairs[i].Dst)
		pairs[i].BaseName = pathutil.Basename(pairs[i].Dst)

		parentKind, err := statKind(pairs[i].DstParent)
		if err != nil {
			return err
		}
		if parentKind != nodekind.KindDir {
			return kerrors.New(kerrors.WcNotDirectory, pairs[i].DstParent, "destination parent is not a directory")
		}
	}
	return nil
}

// doWCToWCCopy implements copy execution: one admin lock on
// the shared destination parent, one WC copy per pair. The sources
// themselves are not locked.
func doWCToWCCopy(store wc.AdminStore, pairs []copypair.CopyPair, cb Callbacks) error {
	if err := preflightWCWC(pairs); err != nil {
		return err
	}

	adm, err := store.AdmOpen(pairs[0].DstParent, 0, cb.cancel)
	if err != nil {
		return err
	}

	var firstErr error
	for _, p := range pairs {
		if err := cb.cancel(); err != nil {
			firstErr = err
			break
		}
		if err := store.Copy(p.Src, adm, p.BaseName); err != nil {
			firstErr = err
			break
		}
		cb.notify(NotifyEvent{Action: "add", Path: p.Dst})
	}

	sleepForTimestamps()
	if closeErr := store.AdmClose(adm); closeErr != nil && firstErr == nil {
		firstErr = closeErr
	}
	return firstErr
}

// doWCToWCMove implements move execution: per pair, lock the
// source's parent (and the destination's, unless shared or retrievable
// from the source lock), copy then delete.
func doWCToWCMove(store wc.AdminStore, pairs []copypair.CopyPair, force bool, cb Callbacks) error {
	if err := preflightWCWC(pairs); err != nil {
		return err
	}

	var firstErr error
	for _, p := range pairs {
		if err := cb.cancel(); err != nil {
			firstErr = err
			break
		}

		srcParent := pathutil.Dirname(p.Src)
		srcDepth := 0
		if p.SrcKind == nodekind.KindDir {
			srcDepth = -1
		}

		srcAdm, err := store.AdmOpen(srcParent, srcDepth, cb.cancel)
		if err != nil {
			firstErr = err
			break
		}

		var dstAdm *wc.AdmAccess
		switch {
		case srcParent == p.DstParent:
			dstAdm = srcAdm
		case p.SrcKind == nodekind.KindDir && pathutil.IsProperAncestor(srcParent, p.DstParent):
			dstAdm, err = store.AdmRetrieve(srcAdm, p.DstParent)
		default:
			dstAdm, err = store.AdmOpen(p.DstParent, 0, cb.cancel)
		}
		if err != nil {
			store.AdmClose(srcAdm)
			firstErr = err
			break
		}

		copyErr := store.Copy(p.Src, dstAdm, p.BaseName)
		var delErr error
		if copyErr == nil {
			delErr = store.Delete(p.Src, srcAdm, force)
		}

		if dstAdm != srcAdm {
			store.AdmClose(dstAdm)
		}
		store.AdmClose(srcAdm)

		if copyErr != nil {
			firstErr = copyErr
			break
		}
		if delErr != nil {
			firstErr = delErr
			break
		}
		cb.notify(NotifyEvent{Action: "add", Path: p.Dst})
	}

	sleepForTimestamps()
	return firstErr
}
