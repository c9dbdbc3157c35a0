// Package mergeinfo computes and serializes the per-path revision-range
// provenance ("mergeinfo") that must ride along with every copy. A
// Mergeinfo value maps a repository-relative path to the list of
// revision ranges merged into, or implied by, a node at that path.
package mergeinfo

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Range is a revision range with an exclusive Start and an inclusive End:
// it covers revisions Start+1 through End, so Start is the revision just
// before the first one covered.
type Range struct {
	Start, End int64
}

// Mergeinfo maps repository-relative path to its sorted, non-overlapping
// range list.
type Mergeinfo map[string][]Range

// New returns an empty Mergeinfo.
func New() Mergeinfo { return Mergeinfo{} }

// Implied computes the implied mergeinfo of a source node: a single range
// [oldestRev, srcRevnum] keyed under path. oldestRev is the oldest
// revision at which the node existed at path; if the caller passes
// oldestRev < 0 (no history found) the result is empty.
func Implied(path string, oldestRev, srcRevnum int64) Mergeinfo {
	if oldestRev < 0 {
		return New()
	}
	return Mergeinfo{path: []Range{{Start: oldestRev - 1, End: srcRevnum}}}
}

// Merge unions other into m in place and returns m, combining range lists
// per path and collapsing overlapping or adjacent ranges the way
// svn_mergeinfo_merge does.
func (m Mergeinfo) Merge(other Mergeinfo) Mergeinfo {
	for path, ranges := range other {
		m[path] = mergeRanges(append(append([]Range{}, m[path]...), ranges...))
	}
	return m
}

// IsEmpty reports whether m carries no ranges at all.
func (m Mergeinfo) IsEmpty() bool {
	for _, ranges := range m {
		if len(ranges) > 0 {
			return false
		}
	}
	return true
}

func mergeRanges(ranges []Range) []Range {
	if len(ranges) == 0 {
		return nil
	}
	sort.Slice(ranges, func(i, j int) bool {
		if ranges[i].Start != ranges[j].Start {
			return ranges[i].Start < ranges[j].Start
		}
		return ranges[i].End < ranges[j].End
	})
	out := make([]Range, 0, len(ranges))
	cur := ranges[0]
	for _, r := range ranges[1:] {
		if r.Start <= cur.End {
			if r.End > cur.End {
				cur.End = r.End
			}
			continue
		}
		out = append(out, cur)
		cur = r
	}
	out = append(out, cur)
	return out
}

// String serializes m to the standard mergeinfo text form: one line per
// path, sorted by path, each line "path:range1,range2,...", ranges sorted
// by start, rendered as "start-end" or a bare "rev" when the range covers
// exactly one revision (start+1==end).
func (m Mergeinfo) String() string {
	paths := make([]string, 0, len(m))
	for p := range m {
		if len(m[p]) > 0 {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	var b strings.Builder
	for i, p := range paths {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(p)
		b.WriteByte(':')
		ranges := mergeRanges(m[p])
		for j, r := range ranges {
			if j > 0 {
				b.WriteByte(',')
			}
			if r.Start+1 == r.End {
				fmt.Fprintf(&b, "%d", r.End)
			} else {
				fmt.Fprintf(&b, "%d-%d", r.Start+1, r.End)
			}
		}
	}
	return b.String()
}

// Parse parses the standard mergeinfo text form produced by String.
func Parse(text string) (Mergeinfo, error) {
	m := New()
	text = strings.TrimSpace(text)
	if text == "" {
		return m, nil
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		idx := strings.LastIndexByte(line, ':')
		if idx < 0 {
			return nil, fmt.Errorf("mergeinfo: malformed line %q: missing ':'", line)
		}
		path := line[:idx]
		rangesText := line[idx+1:]
		var ranges []Range
		for _, seg := range strings.Split(rangesText, ",") {
			seg = strings.TrimSpace(seg)
			if seg == "" {
				continue
			}
			r, err := parseRange(seg)
			if err != nil {
				return nil, fmt.Errorf("mergeinfo: path %q: %w", path, err)
			}
			ranges = append(ranges, r)
		}
		m[path] = mergeRanges(append(m[path], ranges...))
	}
	return m, nil
}

func parseRange(seg string) (Range, error) {
	if dash := strings.IndexByte(seg, '-'); dash >= 0 {
		startTxt, endTxt := seg[:dash], seg[dash+1:]
		end, err := strconv.ParseInt(endTxt, 10, 64)
		if err != nil {
			return Range{}, fmt.Errorf("bad range end %q: %w", seg, err)
		}
		startRev, err := strconv.ParseInt(startTxt, 10, 64)
		if err != nil {
			return Range{}, fmt.Errorf("bad range start %q: %w", seg, err)
		}
		return Range{Start: startRev - 1, End: end}, nil
	}
	rev, err := strconv.ParseInt(seg, 10, 64)
	if err != nil {
		return Range{}, fmt.Errorf("bad revision %q: %w", seg, err)
	}
	return Range{Start: rev - 1, End: rev}, nil
}
