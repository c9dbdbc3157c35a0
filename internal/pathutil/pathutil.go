// Package pathutil provides the path-segment manipulation primitives the
// copy/move core needs over both URLs and local working-copy paths:
// segment-wise ancestry, basename/dirname split, and relative-path
// computation. These are normally consumed through the WC/RA layers,
// but ancestor computation (component C2) needs a few pure,
// dependency-free ones directly.
package pathutil

import "strings"

// Split divides p into its trailing "/"-separated segments, ignoring a
// trailing slash. A "scheme://authority" prefix, if present, is kept as
// one atomic leading segment so that ancestor comparisons diverge at
// the authority rather than spuriously matching on the "://" itself
// (two URLs on different hosts must never appear to share a non-empty
// ancestor; see CommonAncestorSegments).
func Split(p string) []string {
	p = strings.TrimSuffix(p, "/")
	if p == "" {
		return nil
	}
	if idx := strings.Index(p, "://"); idx >= 0 {
		rest := p[idx+3:]
		authEnd := strings.IndexByte(rest, '/')
		if authEnd < 0 {
			return []string{p}
		}
		segs := []string{p[:idx+3+authEnd]}
		if remainder := rest[authEnd+1:]; remainder != "" {
			segs = append(segs, strings.Split(remainder, "/")...)
		}
		return segs
	}
	return strings.Split(p, "/")
}

// Join reassembles segments with "/".
func Join(segments []string) string {
	return strings.Join(segments, "/")
}

// Dirname returns p with its final segment removed (the parent); a path
// with no separator has an empty dirname.
func Dirname(p string) string {
	p = strings.TrimSuffix(p, "/")
	idx := strings.LastIndexByte(p, '/')
	if idx < 0 {
		return ""
	}
	return p[:idx]
}

// Basename returns p's final segment.
func Basename(p string) string {
	p = strings.TrimSuffix(p, "/")
	idx := strings.LastIndexByte(p, '/')
	if idx < 0 {
		return p
	}
	return p[idx+1:]
}

// Join2 joins a parent and a single child segment with exactly one "/".
func Join2(parent, child string) string {
	if parent == "" {
		return child
	}
	return strings.TrimSuffix(parent, "/") + "/" + child
}

// CommonAncestorSegments returns the longest common path-segment prefix
// of a and b. It splits at "/" rather than doing a raw string-prefix
// comparison, so "/trunk/foobar" and "/trunk/foo" share ancestor
// "/trunk", not "/trunk/foo" ("not string prefix — ancestry
// must split at separator").
func CommonAncestorSegments(a, b string) string {
	as, bs := Split(a), Split(b)
	n := len(as)
	if len(bs) < n {
		n = len(bs)
	}
	i := 0
	for i < n && as[i] == bs[i] {
		i++
	}
	return Join(as[:i])
}

// IsAncestor reports whether ancestor is a path-segment prefix of
// descendant (ancestor == descendant counts as true).
func IsAncestor(ancestor, descendant string) bool {
	if ancestor == descendant {
		return true
	}
	as, ds := Split(ancestor), Split(descendant)
	if len(ds) < len(as) {
		return false
	}
	for i, seg := range as {
		if ds[i] != seg {
			return false
		}
	}
	return true
}

// IsProperAncestor reports whether ancestor is a strict, proper
// path-segment prefix of descendant (ancestor != descendant).
func IsProperAncestor(ancestor, descendant string) bool {
	return ancestor != descendant && IsAncestor(ancestor, descendant)
}

// RelPath returns target made relative to anchor ("src_rel",
// "dst_rel"). If target is not a descendant of (or equal to) anchor, it
// returns target unchanged and ok=false.
func RelPath(anchor, target string) (rel string, ok bool) {
	if anchor == target {
		return "", true
	}
	as := Split(anchor)
	ts := Split(target)
	if len(ts) < len(as) {
		return target, false
	}
	for i, seg := range as {
		if ts[i] != seg {
			return target, false
		}
	}
	return Join(ts[len(as):]), true
}

// URIDecode percent-decodes a URI path component, as required before
// using src_rel/dst_rel as repository-relative keys.
func URIDecode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(hexVal(s[i+1])<<4 | hexVal(s[i+2]))
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexVal(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
