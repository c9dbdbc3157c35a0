package copytree

import (
	"os"
	"path/filepath"

	"github.com/kailayerhq/kai-copytree/internal/ancestor"
	"github.com/kailayerhq/kai-copytree/internal/copypair"
	"github.com/kailayerhq/kai-copytree/internal/kerrors"
	"github.com/kailayerhq/kai-copytree/internal/mergeinfo"
	"github.com/kailayerhq/kai-copytree/internal/nodekind"
	"github.com/kailayerhq/kai-copytree/internal/pathutil"
	"github.com/kailayerhq/kai-copytree/internal/ra"
	"github.com/kailayerhq/kai-copytree/internal/wc"
)

// doRepoToWC handles the case where every source is a repository URL and
// every destination an unversioned working-copy path. Unlike C5/C6 this
// never produces a commit -- it only materializes content on disk and
// records WC metadata, so it returns no CommitInfo.
func doRepoToWC(store wc.AdminStore, openSession func(url string) (ra.Session, error), pairs []copypair.CopyPair, cb Callbacks) error {
	if len(pairs) == 0 {
		return nil
	}

	var srcAnchor string
	if len(pairs) == 1 {
		root, rel := ra.SplitURL(pairs[0].Src)
		srcAnchor = ra.JoinURL(root, pathutil.Dirname(rel))
	} else {
		srcAnchor = ancestor.Compute(pairs).Src
	}

	session, err := openSession(srcAnchor)
	if err != nil {
		return kerrors.Wrap(kerrors.RaIllegalURL, srcAnchor, "opening RA session", err)
	}

	head, err := session.LatestRevnum()
	if err != nil {
		return err
	}

	var dstAnchor string
	if len(pairs) == 1 {
		dstAnchor = pathutil.Dirname(pairs[0].Dst)
	} else {
		dstAnchor = ancestor.Compute(pairs).Dst
	}

	adm, err := store.AdmProbeOpen(dstAnchor)
	if err != nil {
		return err
	}
	defer store.AdmClose(adm)

	sameRepositories := reposMatch(session, store, dstAnchor)

	for i := range pairs {
		if err := cb.cancel(); err != nil {
			return err
		}
		p := &pairs[i]

		srcRevnum := p.SrcOpRevision.Number
		if p.SrcOpRevision.Kind == copypair.RevHead || p.SrcOpRevision.Kind == copypair.RevUnspecified {
			srcRevnum = head
		}
		p.SrcRevnum = srcRevnum

		_, srcRel := ra.SplitURL(p.Src)
		srcRel = pathutil.URIDecode(srcRel)

		srcKind, err := session.CheckPath(srcRel, srcRevnum)
		if err != nil {
			return err
		}
		if srcKind == nodekind.KindNone {
			return kerrors.New(kerrors.FsNotFound, p.Src, "source does not exist at the requested revision")
		}
		p.SrcKind = srcKind

		if err := checkDestination(p.Dst); err != nil {
			return err
		}
		if err := checkLogicalObstruction(store, p.Dst); err != nil {
			return err
		}

		switch srcKind {
		case nodekind.KindDir:
			if err := checkoutDir(store, session, adm, p, srcRel, sameRepositories, cb); err != nil {
				return err
			}
		default:
			if err := copyFileFromRepo(store, session, adm, p, srcRel, sameRepositories, cb); err != nil {
				return err
			}
			sleepForTimestamps()
		}
	}

	return nil
}

// reposMatch compares the source session's repository UUID against the
// UUID the destination's enclosing WC is already tracking, if any. Either
// side being unobtainable is treated as "different" ("assume
// foreign when uncertain").
func reposMatch(session ra.Session, store wc.AdminStore, dstAnchor string) bool {
	srcUUID, err := session.GetUUID()
	if err != nil {
		return false
	}
	entry, err := store.Entry(dstAnchor)
	if err != nil || entry == nil || entry.ReposUUID == "" {
		return false
	}
	return entry.ReposUUID == srcUUID.String()
}

func checkDestination(dst string) error {
	dstKind, err := statKind(dst)
	if err != nil {
		return err
	}
	if dstKind != nodekind.KindNone {
		return kerrors.New(kerrors.EntryExists, dst, "destination already exists")
	}
	parentKind, err := statKind(pathutil.Dirname(dst))
	if err != nil {
		return err
	}
	if parentKind != nodekind.KindDir {
		return kerrors.New(kerrors.WcNotDirectory, pathutil.Dirname(dst), "destination parent is not a directory")
	}
	return nil
}

// checkLogicalObstruction reports a WC entry already tracking dst while
// its working file is absent and it is not scheduled for deletion -- a
// state that would make checking dst out again inconsistent .
func checkLogicalObstruction(store wc.AdminStore, dst string) error {
	entry, err := store.Entry(dst)
	if err != nil {
		return err
	}
	if entry == nil {
		return nil
	}
	kind, err := statKind(dst)
	if err != nil {
		return err
	}
	if kind == nodekind.KindNone && entry.Schedule != wc.ScheduleDelete {
		return kerrors.New(kerrors.WcObstructedUpdate, dst, "a WC entry already tracks this path")
	}
	return nil
}

func checkoutDir(store wc.AdminStore, session ra.Session, adm *wc.AdmAccess, p *copypair.CopyPair, srcRel string, sameRepositories bool, cb Callbacks) error {
	dstRev, err := store.Checkout(p.Src, p.Dst, p.SrcPegRevision.Number, p.SrcRevnum, -1)
	if err != nil {
		return err
	}

	if !sameRepositories {
		return kerrors.New(kerrors.UnsupportedFeature, p.Dst, "foreign repository; leaving as disjoint WC")
	}

	if err := store.AddWithHistory(p.Dst, adm, p.Src, dstRev); err != nil {
		return err
	}
	if err := recordCopyMergeinfo(store, session, adm, p.Dst, srcRel, p.SrcRevnum); err != nil {
		return err
	}

	cb.notify(NotifyEvent{Action: "add", Path: p.Dst})
	return nil
}

func copyFileFromRepo(store wc.AdminStore, session ra.Session, adm *wc.AdmAccess, p *copypair.CopyPair, srcRel string, sameRepositories bool, cb Callbacks) error {
	tmp, err := os.CreateTemp(pathutil.Dirname(p.Dst), ".kaicopy-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	realRev, props, err := session.GetFile(srcRel, p.SrcRevnum, tmp)
	closeErr := tmp.Close()
	if err != nil {
		os.Remove(tmpPath)
		return err
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return closeErr
	}

	srcURL, srcRev := "", int64(0)
	if sameRepositories {
		srcURL, srcRev = p.Src, realRev
	}
	if err := store.AddReposFile(p.Dst, adm, tmpPath, props, srcURL, srcRev); err != nil {
		return err
	}

	if sameRepositories {
		if err := recordCopyMergeinfo(store, session, adm, p.Dst, srcRel, realRev); err != nil {
			return err
		}
	}

	cb.notify(NotifyEvent{Action: "add", Path: p.Dst})
	return nil
}

func recordCopyMergeinfo(store wc.AdminStore, session ra.Session, adm *wc.AdmAccess, dst, srcRel string, srcRevnum int64) error {
	oldest, err := session.OldestRevAtPath(srcRel, srcRevnum)
	if err != nil {
		return err
	}
	info := mergeinfo.Implied(filepath.ToSlash(srcRel), oldest, srcRevnum)
	if info.IsEmpty() {
		return nil
	}
	return store.RecordMergeinfo(dst, info, adm)
}
