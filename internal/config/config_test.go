package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolve(t *testing.T) {
	r := Remotes{Remotes: map[string]string{
		"myrepo": "/srv/repos/myrepo#trunk",
	}}

	tests := []struct {
		raw  string
		want string
	}{
		{"myrepo/foo/bar", "/srv/repos/myrepo#trunk/foo/bar"},
		{"myrepo", "/srv/repos/myrepo#trunk"},
		{"myrepo/", "/srv/repos/myrepo#trunk"},
		{"unknown/foo", "unknown/foo"},
		{"/already/a/local/path", "/already/a/local/path"},
	}

	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			if got := r.Resolve(tc.raw); got != tc.want {
				t.Errorf("Resolve(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "remotes.yaml")
	content := "remotes:\n  myrepo: /srv/repos/myrepo#trunk\n  other: /srv/repos/other#main\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.Remotes["myrepo"] != "/srv/repos/myrepo#trunk" {
		t.Errorf("unexpected myrepo entry: %q", r.Remotes["myrepo"])
	}
	if r.Remotes["other"] != "/srv/repos/other#main" {
		t.Errorf("unexpected other entry: %q", r.Remotes["other"])
	}
}

func TestLoadOrEmptyMissingFile(t *testing.T) {
	r, err := LoadOrEmpty(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("LoadOrEmpty: %v", err)
	}
	if len(r.Remotes) != 0 {
		t.Errorf("expected no remotes for a missing file, got %v", r.Remotes)
	}
}
