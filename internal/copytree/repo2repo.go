package copytree

import (
	"fmt"

	"github.com/kailayerhq/kai-copytree/internal/ancestor"
	"github.com/kailayerhq/kai-copytree/internal/copypair"
	"github.com/kailayerhq/kai-copytree/internal/editor"
	"github.com/kailayerhq/kai-copytree/internal/kerrors"
	"github.com/kailayerhq/kai-copytree/internal/mergeinfo"
	"github.com/kailayerhq/kai-copytree/internal/nodekind"
	"github.com/kailayerhq/kai-copytree/internal/pathutil"
	"github.com/kailayerhq/kai-copytree/internal/ra"
)

// pathDriverInfo is the per-pair state gathered while resolving the
// batch, consumed by the editor path-driver's per-path callback.
type pathDriverInfo struct {
	pair      *copypair.CopyPair
	srcRel    string
	dstRel    string
	mergeinfo mergeinfo.Mergeinfo
}

// doRepoToRepo runs the entire batch as one commit transaction.
// openSession opens (or reopens) an RA session anchored at
// a URL; it is injected so tests can fake the RA layer.
func doRepoToRepo(openSession func(url string) (ra.Session, error), pairs []copypair.CopyPair, isMove bool, cb Callbacks) (*CommitInfo, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	// Step 1.
	common := ancestor.Compute(pairs)
	topURL := common.Cross

	// Step 2: mark resurrection, possibly raising the anchor.
	anchor := topURL
	for i := range pairs {
		if pairs[i].Src == pairs[i].Dst {
			pairs[i].Resurrection = true
			if pairs[i].Dst == topURL {
				anchor = pathutil.Dirname(topURL)
			}
		}
	}

	// Step 3: cross-repository detection. The textual longest-common-
	// ancestor heuristic from step 3 assumes sibling URLs
	// within one naming scheme; here repository identity is carried by
	// the opaque "<repo-root>#<rel-path>" encoding, so the authoritative
	// (and cheaper) check is comparing repo-root halves directly instead
	// of relying solely on an empty textual ancestor.
	srcRoot, _ := ra.SplitURL(pairs[0].Src)
	for i := range pairs {
		dstRoot, _ := ra.SplitURL(pairs[i].Dst)
		if dstRoot != srcRoot {
			return nil, kerrors.New(kerrors.UnsupportedFeature, "", "Source and dest appear not to be in the same repository")
		}
	}
	if topURL == "" {
		return nil, kerrors.New(kerrors.UnsupportedFeature, "", "Source and dest appear not to be in the same repository")
	}

	session, err := openSession(anchor)
	if err != nil {
		return nil, kerrors.Wrap(kerrors.RaIllegalURL, anchor, "opening RA session", err)
	}

	// Step 4: raise the anchor further for any pair whose source lies
	// below a non-root destination.
	repoRoot, err := session.GetReposRoot()
	if err != nil {
		return nil, err
	}
	for i := range pairs {
		if pairs[i].Dst != repoRoot && pathutil.IsProperAncestor(pairs[i].Dst, pairs[i].Src) {
			pairs[i].Resurrection = true
			anchor = pathutil.Dirname(topURL)
			if err := session.Reparent(anchor); err != nil {
				return nil, err
			}
		}
	}

	// Step 5.
	head, err := session.LatestRevnum()
	if err != nil {
		return nil, err
	}

	infos := make([]pathDriverInfo, len(pairs))
	for i := range pairs {
		if err := cb.cancel(); err != nil {
			return nil, err
		}
		p := &pairs[i]

		srcRevnum := p.SrcOpRevision.Number
		if p.SrcOpRevision.Kind == copypair.RevHead || p.SrcOpRevision.Kind == copypair.RevUnspecified {
			srcRevnum = head
		}
		p.SrcRevnum = srcRevnum

		_, srcRel := ra.SplitURL(p.Src)
		srcRel = pathutil.URIDecode(srcRel)
		_, dstRel := ra.SplitURL(p.Dst)
		dstRel = pathutil.URIDecode(dstRel)

		if srcRel == "" && isMove {
			return nil, kerrors.New(kerrors.UnsupportedFeature, p.Src, "Cannot move URL into itself")
		}

		srcKind, err := session.CheckPath(srcRel, srcRevnum)
		if err != nil {
			return nil, err
		}
		if srcKind == nodekind.KindNone {
			return nil, kerrors.New(kerrors.FsNotFound, p.Src, "source does not exist at the requested revision")
		}
		p.SrcKind = srcKind

		if !p.Resurrection {
			dstKind, err := session.CheckPath(dstRel, head)
			if err != nil {
				return nil, err
			}
			if dstKind != nodekind.KindNone {
				return nil, kerrors.New(kerrors.FsAlreadyExists, p.Dst, "destination already exists")
			}
		}

		infos[i] = pathDriverInfo{pair: p, srcRel: srcRel, dstRel: dstRel}
	}

	// Step 7: gather commit items and invoke the log-message callback.
	items := make([]CommitItem, 0, len(pairs)*2)
	for i := range infos {
		p := infos[i].pair
		items = append(items, CommitItem{Path: p.Dst, Kind: p.SrcKind, IsAdd: true, CopyFromURL: p.Src, CopyFromRev: p.SrcRevnum})
		if isMove && !p.Resurrection {
			items = append(items, CommitItem{Path: p.Src, Kind: p.SrcKind, IsDelete: true})
		}
	}
	message, ok := cb.logMessage(items)
	if !ok {
		return nil, nil
	}

	// Step 8: compute merged mergeinfo per pair -- the union of the
	// implied mergeinfo and any explicit svn:mergeinfo already on the
	// source node.
	for i := range infos {
		oldest, err := session.OldestRevAtPath(infos[i].srcRel, infos[i].pair.SrcRevnum)
		if err != nil {
			return nil, err
		}
		implied := mergeinfo.Implied(infos[i].dstRel, oldest, infos[i].pair.SrcRevnum)

		explicit, err := sourceExplicitMergeinfo(session, infos[i].srcRel, infos[i].pair.SrcRevnum)
		if err != nil {
			return nil, err
		}

		infos[i].mergeinfo = implied.Merge(explicit)
	}

	// Step 9.
	revprops := map[string]string{}
	if message != "" {
		revprops["svn:log"] = message
	}
	ed, err := session.GetCommitEditor(revprops)
	if err != nil {
		return nil, err
	}

	// Step 10: build the flat path list and drive the commit.
	byPath := map[string]*pathDriverInfo{}
	var paths []string
	for i := range infos {
		paths = append(paths, infos[i].dstRel)
		byPath[infos[i].dstRel] = &infos[i]
		if isMove && !infos[i].pair.Resurrection {
			paths = append(paths, infos[i].srcRel)
			byPath[infos[i].srcRel] = &infos[i]
		}
	}

	driveErr := editor.Drive(ed, paths, func(ed editor.CommitEditor, path string, parent editor.DirBaton) error {
		return repoToRepoCallback(ed, path, parent, byPath, isMove)
	})
	if driveErr != nil {
		return nil, driveErr
	}

	info, err := ed.CloseEdit()
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// sourceExplicitMergeinfo returns the already-recorded svn:mergeinfo
// property of the source node at srcRel/srcRevnum, or an empty
// Mergeinfo if it carries none.
func sourceExplicitMergeinfo(session ra.Session, srcRel string, srcRevnum int64) (mergeinfo.Mergeinfo, error) {
	props, err := session.GetProps(srcRel, srcRevnum)
	if err != nil {
		return nil, err
	}
	raw, ok := props["svn:mergeinfo"]
	if !ok || raw == "" {
		return mergeinfo.New(), nil
	}
	return mergeinfo.Parse(raw)
}

// repoToRepoCallback is the per-path commit state machine.
func repoToRepoCallback(ed editor.CommitEditor, path string, parent editor.DirBaton, byPath map[string]*pathDriverInfo, isMove bool) error {
	info, ok := byPath[path]
	if !ok {
		return nil
	}
	p := info.pair

	switch {
	case p.Resurrection && isMove:
		// add-then-delete at the same URL would annihilate; nothing to do.
		return nil

	case !p.Resurrection && isMove && path == info.srcRel:
		return ed.DeleteEntry(path, parent)

	case (p.Resurrection && !isMove) || (!p.Resurrection && isMove && path == info.dstRel) || (!p.Resurrection && !isMove):
		return addWithCopy(ed, path, parent, p, info)
	}

	return fmt.Errorf("copytree: unreachable commit state for path %q", path)
}

func addWithCopy(ed editor.CommitEditor, path string, parent editor.DirBaton, p *copypair.CopyPair, info *pathDriverInfo) error {
	if path == "" {
		return fmt.Errorf("copytree: empty path in commit callback")
	}

	if p.SrcKind == nodekind.KindDir {
		db, err := ed.AddDirectory(path, parent, info.srcRel, p.SrcRevnum)
		if err != nil {
			return err
		}
		if !info.mergeinfo.IsEmpty() {
			if err := ed.ChangeDirProp(db, "svn:mergeinfo", info.mergeinfo.String()); err != nil {
				return err
			}
		}
		return nil
	}

	fb, err := ed.AddFile(path, parent, info.srcRel, p.SrcRevnum)
	if err != nil {
		return err
	}
	if !info.mergeinfo.IsEmpty() {
		if err := ed.ChangeFileProp(fb, "svn:mergeinfo", info.mergeinfo.String()); err != nil {
			return err
		}
	}
	return ed.CloseFile(fb)
}
