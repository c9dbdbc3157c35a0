package copytree

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kailayerhq/kai-copytree/internal/ancestor"
	"github.com/kailayerhq/kai-copytree/internal/copypair"
	"github.com/kailayerhq/kai-copytree/internal/editor"
	"github.com/kailayerhq/kai-copytree/internal/kerrors"
	"github.com/kailayerhq/kai-copytree/internal/mergeinfo"
	"github.com/kailayerhq/kai-copytree/internal/nodekind"
	"github.com/kailayerhq/kai-copytree/internal/pathutil"
	"github.com/kailayerhq/kai-copytree/internal/ra"
	"github.com/kailayerhq/kai-copytree/internal/wc"
)

// wcNode is one entry gathered by crawlWCSubtree: a versioned path under a
// pair's source directory, with its destination-relative suffix already
// computed.
type wcNode struct {
	localPath string
	relSuffix string
	kind      nodekind.Kind
	entry     *wc.Entry
}

// crawlWCSubtree walks the on-disk tree rooted at src and returns every
// node not scheduled for deletion, each carrying its path relative to src
// (the WC subtree crawl that produces commit items). A node
// with no WC entry (unversioned on disk) is still included as a plain
// add with no copy-from history.
func crawlWCSubtree(store wc.AdminStore, src string) ([]wcNode, error) {
	var nodes []wcNode
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		entry, entryErr := store.Entry(path)
		if entryErr != nil {
			return entryErr
		}
		if entry != nil && entry.Schedule == wc.ScheduleDelete {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(src, path)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			rel = ""
		}
		kind := nodekind.KindFile
		if d.IsDir() {
			kind = nodekind.KindDir
		}
		nodes = append(nodes, wcNode{localPath: path, relSuffix: filepath.ToSlash(rel), kind: kind, entry: entry})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

// wc2repoPlan is the per-pair state carried from resolution through to the
// commit drive.
type wc2repoPlan struct {
	dstRel    string
	nodes     []wcNode
	mergeinfo map[string]mergeinfo.Mergeinfo // node dstRel -> merged mergeinfo
}

// doWCToRepo handles the case where every pair's source is a working-copy
// path and every destination a repository URL. The whole batch commits as
// one revision; on a move, the WC source subtrees are deleted afterward
// and any commit/unlock/cleanup errors are reconciled via kerrors.Compose.
func doWCToRepo(store wc.AdminStore, openSession func(url string) (ra.Session, error), pairs []copypair.CopyPair, isMove bool, cb Callbacks) (*CommitInfo, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	common := ancestor.Compute(pairs)

	srcAdm, lockErr := store.AdmOpen(common.Src, -1, cb.cancel)
	if lockErr != nil {
		return nil, lockErr
	}
	var unlockErr error
	defer func() {
		if srcAdm != nil {
			if err := store.AdmClose(srcAdm); err != nil {
				unlockErr = err
			}
		}
	}()

	session, err := openSession(common.Dst)
	if err != nil {
		return nil, kerrors.Wrap(kerrors.RaIllegalURL, common.Dst, "opening RA session", err)
	}

	head, err := session.LatestRevnum()
	if err != nil {
		return nil, err
	}

	plans := make([]wc2repoPlan, len(pairs))
	for i := range pairs {
		if err := cb.cancel(); err != nil {
			return nil, err
		}
		p := &pairs[i]

		srcKind, err := statKind(p.Src)
		if err != nil {
			return nil, err
		}
		if srcKind == nodekind.KindNone {
			return nil, kerrors.New(kerrors.NodeUnknownKind, p.Src, "source does not exist")
		}
		p.SrcKind = srcKind

		_, dstRel := ra.SplitURL(p.Dst)
		dstRel = pathutil.URIDecode(dstRel)

		dstKind, err := session.CheckPath(dstRel, head)
		if err != nil {
			return nil, err
		}
		if dstKind != nodekind.KindNone {
			return nil, kerrors.New(kerrors.FsAlreadyExists, p.Dst, "destination already exists")
		}

		nodes, err := crawlWCSubtree(store, p.Src)
		if err != nil {
			return nil, err
		}

		plans[i] = wc2repoPlan{dstRel: dstRel, nodes: nodes, mergeinfo: map[string]mergeinfo.Mergeinfo{}}
	}

	items := make([]CommitItem, 0, len(plans))
	for i := range plans {
		for _, n := range plans[i].nodes {
			items = append(items, CommitItem{
				Path:        joinRel(plans[i].dstRel, n.relSuffix),
				Kind:        n.kind,
				IsAdd:       true,
				CopyFromURL: copyFromURLFor(n.entry),
				CopyFromRev: copyFromRevFor(n.entry),
			})
		}
	}
	message, ok := cb.logMessage(items)
	if !ok {
		return nil, nil
	}

	for i := range plans {
		for _, n := range plans[i].nodes {
			if n.entry == nil {
				continue
			}
			path := joinRel(plans[i].dstRel, n.relSuffix)
			wcExplicit, err := store.ParseMergeinfo(n.entry, n.localPath)
			if err != nil {
				return nil, err
			}
			implicit := mergeinfo.Implied(path, n.entry.Revision, n.entry.Revision)
			plans[i].mergeinfo[path] = implicit.Merge(wcExplicit)
		}
	}

	revprops := map[string]string{}
	if message != "" {
		revprops["svn:log"] = message
	}
	ed, err := session.GetCommitEditor(revprops)
	if err != nil {
		return nil, err
	}

	byPath := map[string]*wc2repoItem{}
	var paths []string
	for i := range plans {
		for _, n := range plans[i].nodes {
			path := joinRel(plans[i].dstRel, n.relSuffix)
			paths = append(paths, path)
			byPath[path] = &wc2repoItem{node: n, mergeinfo: plans[i].mergeinfo[path]}
		}
	}

	driveErr := editor.Drive(ed, paths, func(ed editor.CommitEditor, path string, parent editor.DirBaton) error {
		item, ok := byPath[path]
		if !ok {
			return nil
		}
		return addWCNode(ed, path, parent, item)
	})

	var commitErr error
	var info editor.CommitInfo
	if driveErr != nil {
		commitErr = driveErr
	} else {
		info, commitErr = ed.CloseEdit()
	}

	var cleanupErr error
	if commitErr == nil && isMove {
		for i := range pairs {
			if err := store.Delete(pairs[i].Src, srcAdm, true); err != nil {
				cleanupErr = err
				break
			}
		}
	}

	if err := store.AdmClose(srcAdm); err != nil {
		unlockErr = err
	}
	srcAdm = nil

	if composed := kerrors.Compose(commitErr, unlockErr, cleanupErr); composed != nil {
		return nil, composed
	}
	return &info, nil
}

type wc2repoItem struct {
	node      wcNode
	mergeinfo mergeinfo.Mergeinfo
}

// addWCNode always stages a plain add: the content being committed is
// whatever currently sits on disk in the working copy, never a copy-from
// reference into the destination repository (a WC entry's origin URL may
// belong to an entirely different repository than the commit target).
// Provenance is instead carried by the svn:mergeinfo property below.
func addWCNode(ed editor.CommitEditor, path string, parent editor.DirBaton, item *wc2repoItem) error {
	if item.node.kind == nodekind.KindDir {
		db, err := ed.AddDirectory(path, parent, "", 0)
		if err != nil {
			return err
		}
		if !item.mergeinfo.IsEmpty() {
			return ed.ChangeDirProp(db, "svn:mergeinfo", item.mergeinfo.String())
		}
		return nil
	}

	fb, err := ed.AddFile(path, parent, "", 0)
	if err != nil {
		return err
	}
	content, err := os.ReadFile(item.node.localPath)
	if err != nil {
		return err
	}
	if err := ed.SetFileText(fb, content); err != nil {
		return err
	}
	if !item.mergeinfo.IsEmpty() {
		if err := ed.ChangeFileProp(fb, "svn:mergeinfo", item.mergeinfo.String()); err != nil {
			return err
		}
	}
	return ed.CloseFile(fb)
}

func joinRel(base, suffix string) string {
	base = strings.Trim(base, "/")
	suffix = strings.Trim(suffix, "/")
	switch {
	case base == "":
		return suffix
	case suffix == "":
		return base
	default:
		return base + "/" + suffix
	}
}

func copyFromURLFor(entry *wc.Entry) string {
	if entry == nil {
		return ""
	}
	return entry.URL
}

func copyFromRevFor(entry *wc.Entry) int64 {
	if entry == nil {
		return 0
	}
	return entry.Revision
}
