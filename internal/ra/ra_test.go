package ra

import (
	"bytes"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/kailayerhq/kai-copytree/internal/nodekind"
)

func newFixtureRepo(t *testing.T) *git.Repository {
	t.Helper()
	fs := memfs.New()
	storer := memory.NewStorage()
	repo, err := git.Init(storer, fs)
	if err != nil {
		t.Fatalf("git.Init: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}

	write := func(path, content string) {
		f, err := fs.Create(path)
		if err != nil {
			t.Fatalf("create %s: %v", path, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		f.Close()
		if _, err := wt.Add(path); err != nil {
			t.Fatalf("add %s: %v", path, err)
		}
	}

	sig := &object.Signature{Name: "tester", When: time.Unix(0, 0)}

	write("trunk/a.txt", "one")
	if _, err := wt.Commit("first", &git.CommitOptions{Author: sig}); err != nil {
		t.Fatalf("commit 1: %v", err)
	}

	write("trunk/b.txt", "two")
	if _, err := wt.Commit("second", &git.CommitOptions{Author: sig}); err != nil {
		t.Fatalf("commit 2: %v", err)
	}

	return repo
}

func newFixtureSession(t *testing.T) *GitSession {
	t.Helper()
	repo := newFixtureRepo(t)
	s := &GitSession{repo: repo, repoRoot: "test-repo", anchor: ""}
	if err := s.loadRevisionIndex(); err != nil {
		t.Fatalf("loadRevisionIndex: %v", err)
	}
	return s
}

func TestSplitURLJoinURL(t *testing.T) {
	root, rel := SplitURL("repo/root#trunk/foo")
	if root != "repo/root" || rel != "trunk/foo" {
		t.Fatalf("SplitURL = %q, %q", root, rel)
	}
	root, rel = SplitURL("repo/root")
	if root != "repo/root" || rel != "" {
		t.Fatalf("SplitURL no-hash = %q, %q", root, rel)
	}
	if got := JoinURL("repo/root", "trunk/foo"); got != "repo/root#trunk/foo" {
		t.Fatalf("JoinURL = %q", got)
	}
}

func TestGitSessionLatestRevnum(t *testing.T) {
	s := newFixtureSession(t)
	rev, err := s.LatestRevnum()
	if err != nil {
		t.Fatalf("LatestRevnum: %v", err)
	}
	if rev != 1 {
		t.Fatalf("LatestRevnum = %d, want 1", rev)
	}
}

func TestGitSessionCheckPath(t *testing.T) {
	s := newFixtureSession(t)

	kind, err := s.CheckPath("trunk/a.txt", -1)
	if err != nil {
		t.Fatalf("CheckPath: %v", err)
	}
	if kind != nodekind.KindFile {
		t.Fatalf("CheckPath(a.txt) = %v, want KindFile", kind)
	}

	kind, err = s.CheckPath("trunk", -1)
	if err != nil {
		t.Fatalf("CheckPath: %v", err)
	}
	if kind != nodekind.KindDir {
		t.Fatalf("CheckPath(trunk) = %v, want KindDir", kind)
	}

	kind, err = s.CheckPath("trunk/missing.txt", -1)
	if err != nil {
		t.Fatalf("CheckPath: %v", err)
	}
	if kind != nodekind.KindNone {
		t.Fatalf("CheckPath(missing) = %v, want KindNone", kind)
	}

	// b.txt did not exist at revision 0.
	kind, err = s.CheckPath("trunk/b.txt", 0)
	if err != nil {
		t.Fatalf("CheckPath at rev 0: %v", err)
	}
	if kind != nodekind.KindNone {
		t.Fatalf("CheckPath(b.txt@0) = %v, want KindNone", kind)
	}
}

func TestGitSessionGetFile(t *testing.T) {
	s := newFixtureSession(t)
	var buf bytes.Buffer
	rev, _, err := s.GetFile("trunk/a.txt", -1, &buf)
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	if rev != 1 {
		t.Fatalf("GetFile rev = %d, want 1", rev)
	}
	if buf.String() != "one" {
		t.Fatalf("GetFile content = %q, want %q", buf.String(), "one")
	}
}

func TestGitSessionOldestRevAtPath(t *testing.T) {
	s := newFixtureSession(t)

	oldest, err := s.OldestRevAtPath("trunk/a.txt", -1)
	if err != nil {
		t.Fatalf("OldestRevAtPath: %v", err)
	}
	if oldest != 0 {
		t.Fatalf("OldestRevAtPath(a.txt) = %d, want 0", oldest)
	}

	oldest, err = s.OldestRevAtPath("trunk/b.txt", -1)
	if err != nil {
		t.Fatalf("OldestRevAtPath: %v", err)
	}
	if oldest != 1 {
		t.Fatalf("OldestRevAtPath(b.txt) = %d, want 1", oldest)
	}
}

func TestGitSessionGetUUIDStable(t *testing.T) {
	s := newFixtureSession(t)
	u1, err := s.GetUUID()
	if err != nil {
		t.Fatalf("GetUUID: %v", err)
	}
	u2, err := s.GetUUID()
	if err != nil {
		t.Fatalf("GetUUID: %v", err)
	}
	if u1 != u2 {
		t.Fatalf("GetUUID not stable: %v != %v", u1, u2)
	}
}

func TestGitSessionCommitEditorAddsFile(t *testing.T) {
	s := newFixtureSession(t)

	ed, err := s.GetCommitEditor(map[string]string{"svn:log": "add c.txt", "author": "alice"})
	if err != nil {
		t.Fatalf("GetCommitEditor: %v", err)
	}

	root, err := ed.OpenRoot()
	if err != nil {
		t.Fatalf("OpenRoot: %v", err)
	}
	trunkDir, err := ed.OpenDirectory("trunk", root)
	if err != nil {
		t.Fatalf("OpenDirectory: %v", err)
	}
	fb, err := ed.AddFile("trunk/c.txt", trunkDir, "", 0)
	if err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	if err := ed.SetFileText(fb, []byte("three")); err != nil {
		t.Fatalf("SetFileText: %v", err)
	}
	if err := ed.CloseFile(fb); err != nil {
		t.Fatalf("CloseFile: %v", err)
	}
	if err := ed.CloseDir(trunkDir); err != nil {
		t.Fatalf("CloseDir: %v", err)
	}

	info, err := ed.CloseEdit()
	if err != nil {
		t.Fatalf("CloseEdit: %v", err)
	}
	if info.Revision != 2 {
		t.Fatalf("CloseEdit revision = %d, want 2", info.Revision)
	}

	kind, err := s.CheckPath("trunk/c.txt", -1)
	if err != nil {
		t.Fatalf("CheckPath: %v", err)
	}
	if kind != nodekind.KindFile {
		t.Fatalf("CheckPath(c.txt) after commit = %v, want KindFile", kind)
	}

	var buf bytes.Buffer
	if _, _, err := s.GetFile("trunk/a.txt", -1, &buf); err != nil {
		t.Fatalf("GetFile a.txt after commit: %v", err)
	}
	if buf.String() != "one" {
		t.Fatalf("preexisting file content changed: %q", buf.String())
	}
}

func TestGitSessionCommitEditorDeletesEntry(t *testing.T) {
	s := newFixtureSession(t)

	ed, err := s.GetCommitEditor(nil)
	if err != nil {
		t.Fatalf("GetCommitEditor: %v", err)
	}
	root, err := ed.OpenRoot()
	if err != nil {
		t.Fatalf("OpenRoot: %v", err)
	}
	if err := ed.DeleteEntry("trunk/b.txt", root); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if _, err := ed.CloseEdit(); err != nil {
		t.Fatalf("CloseEdit: %v", err)
	}

	kind, err := s.CheckPath("trunk/b.txt", -1)
	if err != nil {
		t.Fatalf("CheckPath: %v", err)
	}
	if kind != nodekind.KindNone {
		t.Fatalf("CheckPath(b.txt) after delete = %v, want KindNone", kind)
	}
}
