package mergeinfo

import "testing"

func TestImpliedSingleRevision(t *testing.T) {
	m := Implied("/trunk/foo", 5, 5)
	got := m.String()
	want := "/trunk/foo:5"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestImpliedMultiRevisionRange(t *testing.T) {
	m := Implied("/trunk/foo", 2, 10)
	got := m.String()
	want := "/trunk/foo:2-10"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestImpliedNoHistoryIsEmpty(t *testing.T) {
	m := Implied("/trunk/foo", -1, 5)
	if !m.IsEmpty() {
		t.Fatalf("expected empty mergeinfo when oldestRev is invalid")
	}
}

func TestMergeUnionsAndCollapsesOverlaps(t *testing.T) {
	a := Mergeinfo{"/trunk/foo": {{Start: 0, End: 5}}}
	b := Mergeinfo{"/trunk/foo": {{Start: 4, End: 10}}, "/trunk/bar": {{Start: 0, End: 2}}}

	merged := a.Merge(b)
	if got, want := merged.String(), "/trunk/bar:1-2\n/trunk/foo:1-10"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestParseRoundTrip(t *testing.T) {
	cases := []string{
		"/trunk/foo:5",
		"/trunk/foo:3-10",
		"/trunk/bar:1-2\n/trunk/foo:1-10",
	}
	for _, text := range cases {
		t.Run(text, func(t *testing.T) {
			m, err := Parse(text)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if got := m.String(); got != text {
				t.Fatalf("round-trip mismatch: got %q, want %q", got, text)
			}
		})
	}
}

func TestParseMalformedLine(t *testing.T) {
	if _, err := Parse("no-colon-here"); err == nil {
		t.Fatalf("expected error for malformed line")
	}
}

func TestParseEmptyIsEmptyMergeinfo(t *testing.T) {
	m, err := Parse("")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !m.IsEmpty() {
		t.Fatalf("expected empty mergeinfo")
	}
}
