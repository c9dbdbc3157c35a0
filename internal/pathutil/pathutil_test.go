package pathutil

import "testing"

func TestCommonAncestorSegmentsSplitsAtSeparator(t *testing.T) {
	got := CommonAncestorSegments("/trunk/foobar", "/trunk/foo")
	if got != "/trunk" {
		t.Fatalf("got %q, want %q", got, "/trunk")
	}
}

func TestCommonAncestorSegmentsNoOverlapIsEmpty(t *testing.T) {
	got := CommonAncestorSegments("svn://A/x", "svn://B/y")
	if got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}

func TestDirnameAndBasename(t *testing.T) {
	if got := Dirname("/a/b/c"); got != "/a/b" {
		t.Fatalf("Dirname got %q", got)
	}
	if got := Basename("/a/b/c"); got != "c" {
		t.Fatalf("Basename got %q", got)
	}
	if got := Dirname("c"); got != "" {
		t.Fatalf("Dirname of bare segment got %q, want empty", got)
	}
}

func TestIsProperAncestor(t *testing.T) {
	if !IsProperAncestor("/trunk", "/trunk/foo") {
		t.Fatalf("expected /trunk to be a proper ancestor of /trunk/foo")
	}
	if IsProperAncestor("/trunk/foo", "/trunk/foo") {
		t.Fatalf("expected equal paths not to be a proper ancestor")
	}
	if IsProperAncestor("/trunk/foobar", "/trunk/foo") {
		t.Fatalf("expected /trunk/foobar not to be an ancestor of /trunk/foo")
	}
}

func TestRelPath(t *testing.T) {
	rel, ok := RelPath("/trunk", "/trunk/foo/bar")
	if !ok || rel != "foo/bar" {
		t.Fatalf("got (%q, %v)", rel, ok)
	}
	if _, ok := RelPath("/branches", "/trunk/foo"); ok {
		t.Fatalf("expected not-a-descendant to report ok=false")
	}
	rel, ok = RelPath("/trunk", "/trunk")
	if !ok || rel != "" {
		t.Fatalf("got (%q, %v), want (\"\", true)", rel, ok)
	}
}

func TestURIDecode(t *testing.T) {
	if got := URIDecode("foo%20bar"); got != "foo bar" {
		t.Fatalf("got %q", got)
	}
	if got := URIDecode("no-escapes"); got != "no-escapes" {
		t.Fatalf("got %q", got)
	}
}
