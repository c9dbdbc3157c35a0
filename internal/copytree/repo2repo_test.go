package copytree

import (
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/kailayerhq/kai-copytree/internal/copypair"
	"github.com/kailayerhq/kai-copytree/internal/editor"
	"github.com/kailayerhq/kai-copytree/internal/kerrors"
	"github.com/kailayerhq/kai-copytree/internal/nodekind"
	"github.com/kailayerhq/kai-copytree/internal/ra"
)

// fakeRepoSession is a minimal ra.Session fake driving one in-memory tree,
// enough to exercise doRepoToRepo without a real Git backend.
type fakeRepoSession struct {
	root        string
	head        int64
	files       map[string]nodekind.Kind // rel path -> kind, as of head
	fileContent map[string][]byte
	nodeProps   map[string]map[string]string // rel path -> versioned properties
	uuid        uuid.UUID
	ed          *fakeCommitEditor
}

func newFakeRepoSession(root string, files map[string]nodekind.Kind) *fakeRepoSession {
	return &fakeRepoSession{root: root, head: 5, files: files}
}

func (s *fakeRepoSession) Reparent(url string) error { return nil }
func (s *fakeRepoSession) AnchorURL() string         { return s.root }
func (s *fakeRepoSession) LatestRevnum() (int64, error) { return s.head, nil }

func (s *fakeRepoSession) CheckPath(relPath string, rev int64) (nodekind.Kind, error) {
	if k, ok := s.files[relPath]; ok {
		return k, nil
	}
	return nodekind.KindNone, nil
}

func (s *fakeRepoSession) GetUUID() (uuid.UUID, error) { return s.uuid, nil }
func (s *fakeRepoSession) GetReposRoot() (string, error) {
	return ra.JoinURL(s.root, ""), nil
}

func (s *fakeRepoSession) GetFile(relPath string, rev int64, w io.Writer) (int64, map[string]string, error) {
	if content, ok := s.fileContent[relPath]; ok {
		if _, err := w.Write(content); err != nil {
			return 0, nil, err
		}
	}
	return rev, nil, nil
}

func (s *fakeRepoSession) GetProps(relPath string, rev int64) (map[string]string, error) {
	return s.nodeProps[relPath], nil
}

func (s *fakeRepoSession) OldestRevAtPath(relPath string, rev int64) (int64, error) {
	return 1, nil
}

func (s *fakeRepoSession) GetCommitEditor(revprops map[string]string) (editor.CommitEditor, error) {
	s.ed = &fakeCommitEditor{revprops: revprops}
	return s.ed, nil
}

func (s *fakeRepoSession) ReadTree(rev int64, path string) (map[string]editor.TreeFile, error) {
	return nil, nil
}

// fakeCommitEditor records every call so tests can assert the commit shape
// doRepoToRepo builds, without touching a real object store.
type fakeCommitEditor struct {
	revprops map[string]string
	added    []string
	deleted  []string
	props    map[string]string
	closed   bool
	aborted  bool
}

func (e *fakeCommitEditor) OpenRoot() (editor.DirBaton, error) { return editor.DirBaton(""), nil }
func (e *fakeCommitEditor) OpenDirectory(path string, parent editor.DirBaton) (editor.DirBaton, error) {
	return editor.DirBaton(path), nil
}
func (e *fakeCommitEditor) AddDirectory(path string, parent editor.DirBaton, copyFrom string, copyFromRev int64) (editor.DirBaton, error) {
	e.added = append(e.added, path)
	return editor.DirBaton(path), nil
}
func (e *fakeCommitEditor) AddFile(path string, parent editor.DirBaton, copyFrom string, copyFromRev int64) (editor.FileBaton, error) {
	e.added = append(e.added, path)
	return editor.FileBaton(path), nil
}
func (e *fakeCommitEditor) SetFileText(fb editor.FileBaton, content []byte) error { return nil }
func (e *fakeCommitEditor) DeleteEntry(path string, parent editor.DirBaton) error {
	e.deleted = append(e.deleted, path)
	return nil
}
func (e *fakeCommitEditor) ChangeDirProp(db editor.DirBaton, name, value string) error {
	if e.props == nil {
		e.props = map[string]string{}
	}
	e.props[string(db)+"/"+name] = value
	return nil
}
func (e *fakeCommitEditor) ChangeFileProp(fb editor.FileBaton, name, value string) error {
	if e.props == nil {
		e.props = map[string]string{}
	}
	e.props[string(fb)+"/"+name] = value
	return nil
}
func (e *fakeCommitEditor) CloseFile(fb editor.FileBaton) error { return nil }
func (e *fakeCommitEditor) CloseDir(db editor.DirBaton) error   { return nil }
func (e *fakeCommitEditor) CloseEdit() (editor.CommitInfo, error) {
	e.closed = true
	return editor.CommitInfo{Revision: 6}, nil
}
func (e *fakeCommitEditor) AbortEdit() error {
	e.aborted = true
	return nil
}

func pair(src, dst string) copypair.CopyPair {
	return copypair.CopyPair{Src: src, Dst: dst, SrcIsURL: true, DstIsURL: true}
}

func TestDoRepoToRepoCopy(t *testing.T) {
	sess := newFakeRepoSession("/repo", map[string]nodekind.Kind{"trunk/a.txt": nodekind.KindFile})
	open := func(url string) (ra.Session, error) { return sess, nil }

	pairs := []copypair.CopyPair{pair(ra.JoinURL("/repo", "trunk/a.txt"), ra.JoinURL("/repo", "trunk/b.txt"))}

	info, err := doRepoToRepo(open, pairs, false, Callbacks{})
	if err != nil {
		t.Fatalf("doRepoToRepo: %v", err)
	}
	if info == nil || info.Revision != 6 {
		t.Fatalf("unexpected commit info: %+v", info)
	}
	if len(sess.ed.added) != 1 || sess.ed.added[0] != "trunk/b.txt" {
		t.Fatalf("expected one add at trunk/b.txt, got %v", sess.ed.added)
	}
	if len(sess.ed.deleted) != 0 {
		t.Fatalf("copy must not delete anything, got %v", sess.ed.deleted)
	}
	if !sess.ed.closed {
		t.Fatalf("expected CloseEdit to run")
	}
}

func TestDoRepoToRepoMergesExplicitSourceMergeinfo(t *testing.T) {
	sess := newFakeRepoSession("/repo", map[string]nodekind.Kind{"trunk/a.txt": nodekind.KindFile})
	sess.nodeProps = map[string]map[string]string{
		"trunk/a.txt": {"svn:mergeinfo": "/branches/feature:2-3"},
	}
	open := func(url string) (ra.Session, error) { return sess, nil }

	pairs := []copypair.CopyPair{pair(ra.JoinURL("/repo", "trunk/a.txt"), ra.JoinURL("/repo", "trunk/b.txt"))}

	if _, err := doRepoToRepo(open, pairs, false, Callbacks{}); err != nil {
		t.Fatalf("doRepoToRepo: %v", err)
	}
	got := sess.ed.props["trunk/b.txt/svn:mergeinfo"]
	if !strings.Contains(got, "trunk/b.txt:1-5") {
		t.Fatalf("expected implied range for trunk/b.txt in mergeinfo, got %q", got)
	}
	if !strings.Contains(got, "/branches/feature:2-3") {
		t.Fatalf("expected explicit source mergeinfo unioned in, got %q", got)
	}
}

func TestDoRepoToRepoMove(t *testing.T) {
	sess := newFakeRepoSession("/repo", map[string]nodekind.Kind{"trunk/a.txt": nodekind.KindFile})
	open := func(url string) (ra.Session, error) { return sess, nil }

	pairs := []copypair.CopyPair{pair(ra.JoinURL("/repo", "trunk/a.txt"), ra.JoinURL("/repo", "trunk/b.txt"))}

	_, err := doRepoToRepo(open, pairs, true, Callbacks{})
	if err != nil {
		t.Fatalf("doRepoToRepo: %v", err)
	}
	if len(sess.ed.added) != 1 || sess.ed.added[0] != "trunk/b.txt" {
		t.Fatalf("expected add at trunk/b.txt, got %v", sess.ed.added)
	}
	if len(sess.ed.deleted) != 1 || sess.ed.deleted[0] != "trunk/a.txt" {
		t.Fatalf("expected delete at trunk/a.txt, got %v", sess.ed.deleted)
	}
}

func TestDoRepoToRepoResurrectionMoveIsNoop(t *testing.T) {
	sess := newFakeRepoSession("/repo", map[string]nodekind.Kind{"trunk/a.txt": nodekind.KindFile})
	open := func(url string) (ra.Session, error) { return sess, nil }

	url := ra.JoinURL("/repo", "trunk/a.txt")
	pairs := []copypair.CopyPair{pair(url, url)}

	_, err := doRepoToRepo(open, pairs, true, Callbacks{})
	if err != nil {
		t.Fatalf("doRepoToRepo: %v", err)
	}
	if len(sess.ed.added) != 0 || len(sess.ed.deleted) != 0 {
		t.Fatalf("resurrection move must be a no-op, got added=%v deleted=%v", sess.ed.added, sess.ed.deleted)
	}
}

func TestDoRepoToRepoResurrectionCopyReinstates(t *testing.T) {
	sess := newFakeRepoSession("/repo", map[string]nodekind.Kind{"trunk/a.txt": nodekind.KindFile})
	open := func(url string) (ra.Session, error) { return sess, nil }

	url := ra.JoinURL("/repo", "trunk/a.txt")
	pairs := []copypair.CopyPair{pair(url, url)}

	_, err := doRepoToRepo(open, pairs, false, Callbacks{})
	if err != nil {
		t.Fatalf("doRepoToRepo: %v", err)
	}
	if len(sess.ed.added) != 1 || sess.ed.added[0] != "trunk/a.txt" {
		t.Fatalf("expected reinstating add at trunk/a.txt, got %v", sess.ed.added)
	}
}

func TestDoRepoToRepoCrossRepositoryRejected(t *testing.T) {
	sess := newFakeRepoSession("/repoA", nil)
	open := func(url string) (ra.Session, error) { return sess, nil }

	pairs := []copypair.CopyPair{pair(ra.JoinURL("/repoA", "trunk/a.txt"), ra.JoinURL("/repoB", "trunk/b.txt"))}

	_, err := doRepoToRepo(open, pairs, false, Callbacks{})
	if !kerrors.Is(err, kerrors.UnsupportedFeature) {
		t.Fatalf("expected UnsupportedFeature, got %v", err)
	}
}

func TestDoRepoToRepoDestinationExists(t *testing.T) {
	sess := newFakeRepoSession("/repo", map[string]nodekind.Kind{
		"trunk/a.txt": nodekind.KindFile,
		"trunk/b.txt": nodekind.KindFile,
	})
	open := func(url string) (ra.Session, error) { return sess, nil }

	pairs := []copypair.CopyPair{pair(ra.JoinURL("/repo", "trunk/a.txt"), ra.JoinURL("/repo", "trunk/b.txt"))}

	_, err := doRepoToRepo(open, pairs, false, Callbacks{})
	if !kerrors.Is(err, kerrors.FsAlreadyExists) {
		t.Fatalf("expected FsAlreadyExists, got %v", err)
	}
}

func TestDoRepoToRepoAbortsOnEmptyLogMessage(t *testing.T) {
	sess := newFakeRepoSession("/repo", map[string]nodekind.Kind{"trunk/a.txt": nodekind.KindFile})
	open := func(url string) (ra.Session, error) { return sess, nil }

	pairs := []copypair.CopyPair{pair(ra.JoinURL("/repo", "trunk/a.txt"), ra.JoinURL("/repo", "trunk/b.txt"))}

	cb := Callbacks{GetLogMsg: func(items []CommitItem) (string, bool) { return "", false }}
	info, err := doRepoToRepo(open, pairs, false, cb)
	if err != nil {
		t.Fatalf("expected silent abort, got error: %v", err)
	}
	if info != nil {
		t.Fatalf("expected nil commit info on abort, got %+v", info)
	}
	if sess.ed != nil {
		t.Fatalf("expected GetCommitEditor never reached")
	}
}
