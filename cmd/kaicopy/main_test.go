package main

import (
	"testing"

	"github.com/kailayerhq/kai-copytree/internal/copypair"
)

func TestSplitSourceSpec(t *testing.T) {
	tests := []struct {
		raw      string
		wantPath string
		wantPeg  string
		wantOp   string
	}{
		{"trunk/a.txt", "trunk/a.txt", "", ""},
		{"trunk/a.txt@42", "trunk/a.txt", "42", ""},
		{"trunk/a.txt@42:43", "trunk/a.txt", "42", "43"},
		{"trunk/a.txt@HEAD", "trunk/a.txt", "HEAD", ""},
	}
	for _, tc := range tests {
		path, peg, op := splitSourceSpec(tc.raw)
		if path != tc.wantPath || peg != tc.wantPeg || op != tc.wantOp {
			t.Errorf("splitSourceSpec(%q) = (%q, %q, %q), want (%q, %q, %q)",
				tc.raw, path, peg, op, tc.wantPath, tc.wantPeg, tc.wantOp)
		}
	}
}

func TestParseRevision(t *testing.T) {
	tests := []struct {
		tok     string
		want    copypair.RevisionKind
		wantNum int64
	}{
		{"", copypair.RevUnspecified, 0},
		{"HEAD", copypair.RevHead, 0},
		{"working", copypair.RevWorking, 0},
		{"BASE", copypair.RevBase, 0},
		{"committed", copypair.RevCommitted, 0},
		{"prev", copypair.RevPrevious, 0},
		{"42", copypair.RevNumber, 42},
	}
	for _, tc := range tests {
		rev, err := parseRevision(tc.tok)
		if err != nil {
			t.Fatalf("parseRevision(%q): %v", tc.tok, err)
		}
		if rev.Kind != tc.want || rev.Number != tc.wantNum {
			t.Errorf("parseRevision(%q) = %+v, want kind=%v number=%d", tc.tok, rev, tc.want, tc.wantNum)
		}
	}
}

func TestParseRevisionRejectsGarbage(t *testing.T) {
	if _, err := parseRevision("not-a-revision"); err == nil {
		t.Fatalf("expected an error for a malformed revision token")
	}
}
