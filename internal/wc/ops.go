package wc

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/kailayerhq/kai-copytree/internal/mergeinfo"
	"github.com/kailayerhq/kai-copytree/internal/nodekind"
	"github.com/kailayerhq/kai-copytree/internal/ra"
)

// sessionOpener is overridable so tests can fake the RA layer; the
// default is ra.Open.
var sessionOpener = func(url string) (ra.Session, error) {
	return ra.Open(url)
}

// SetSessionOpener overrides how Checkout obtains an RA session. Intended
// for tests.
func (s *Store) SetSessionOpener(open func(url string) (ra.Session, error)) {
	s.openSession = open
}

func (s *Store) session(url string) (ra.Session, error) {
	if s.openSession != nil {
		return s.openSession(url)
	}
	return sessionOpener(url)
}

func scanEntry(row *sql.Row) (*Entry, error) {
	var e Entry
	var kind int
	var schedule int
	var hasMods int
	var propsJSON string
	err := row.Scan(&e.Path, &kind, &e.URL, &e.ReposRoot, &e.ReposUUID, &e.Revision, &schedule, &e.CopyFromURL, &e.CopyFromRev, &hasMods, &propsJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning wc entry: %w", err)
	}
	e.Kind = nodekind.Kind(kind)
	e.Schedule = Schedule(schedule)
	e.HasLocalMods = hasMods != 0
	if err := json.Unmarshal([]byte(propsJSON), &e.Properties); err != nil {
		return nil, fmt.Errorf("unmarshaling wc properties for %q: %w", e.Path, err)
	}
	return &e, nil
}

// Entry reads the WC entry at path, or nil if path is unversioned.
func (s *Store) Entry(path string) (*Entry, error) {
	row := s.db.QueryRow(`
		SELECT path, kind, url, repos_root, repos_uuid, revision, schedule,
		       copyfrom_url, copyfrom_rev, has_local_mods, properties
		FROM entries WHERE path = ?
	`, path)
	return scanEntry(row)
}

func (s *Store) putEntry(e *Entry) error {
	propsJSON, err := json.Marshal(e.Properties)
	if err != nil {
		return fmt.Errorf("marshaling wc properties for %q: %w", e.Path, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO entries (path, kind, url, repos_root, repos_uuid, revision,
		                      schedule, copyfrom_url, copyfrom_rev, has_local_mods, properties)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			kind=excluded.kind, url=excluded.url, repos_root=excluded.repos_root,
			repos_uuid=excluded.repos_uuid, revision=excluded.revision,
			schedule=excluded.schedule, copyfrom_url=excluded.copyfrom_url,
			copyfrom_rev=excluded.copyfrom_rev, has_local_mods=excluded.has_local_mods,
			properties=excluded.properties
	`, e.Path, int(e.Kind), e.URL, e.ReposRoot, e.ReposUUID, e.Revision,
		int(e.Schedule), e.CopyFromURL, e.CopyFromRev, boolToInt(e.HasLocalMods), string(propsJSON))
	if err != nil {
		return fmt.Errorf("storing wc entry for %q: %w", e.Path, err)
	}
	return nil
}

func (s *Store) deleteEntry(path string) error {
	_, err := s.db.Exec(`DELETE FROM entries WHERE path = ? OR path LIKE ?`, path, path+string(filepath.Separator)+"%")
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// loadIgnorePatterns reads doublestar glob patterns from a conventional
// ".kaiwcignore" file at root, one pattern per line, skipping blanks and
// "#"-comments. A missing file yields no patterns.
func loadIgnorePatterns(root string) []string {
	f, err := os.Open(filepath.Join(root, ".kaiwcignore"))
	if err != nil {
		return nil
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns
}

func ignored(patterns []string, relPath string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, relPath); ok {
			return true
		}
	}
	return false
}

// Copy duplicates the on-disk tree at src into a new path named baseName
// under adm's directory, scheduling every copied node as added-with-
// history from src's own recorded URL/revision.
func (s *Store) Copy(src string, adm *AdmAccess, baseName string) error {
	srcEntry, err := s.Entry(src)
	if err != nil {
		return err
	}

	dst, err := securejoin.SecureJoin(adm.path, baseName)
	if err != nil {
		return fmt.Errorf("resolving copy destination: %w", err)
	}

	patterns := loadIgnorePatterns(s.rootDir)

	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		if rel != "." && ignored(patterns, rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		target := dst
		if rel != "." {
			target = filepath.Join(dst, rel)
		}

		if d.IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("creating directory %q: %w", target, err)
			}
		} else {
			content, err := os.ReadFile(p)
			if err != nil {
				return fmt.Errorf("reading %q: %w", p, err)
			}
			if err := os.WriteFile(target, content, 0o644); err != nil {
				return fmt.Errorf("writing %q: %w", target, err)
			}
		}

		kind := nodekind.KindFile
		if d.IsDir() {
			kind = nodekind.KindDir
		}
		e := &Entry{Path: target, Kind: kind, Schedule: ScheduleAdd}
		if srcEntry != nil {
			e.URL = joinURLSuffix(srcEntry.URL, rel)
			e.ReposRoot = srcEntry.ReposRoot
			e.ReposUUID = srcEntry.ReposUUID
			e.Revision = srcEntry.Revision
			e.CopyFromURL = joinURLSuffix(srcEntry.URL, rel)
			e.CopyFromRev = srcEntry.Revision
		}
		return s.putEntry(e)
	})
}

func joinURLSuffix(base, rel string) string {
	if base == "" || rel == "." {
		return base
	}
	return strings.TrimSuffix(base, "/") + "/" + filepath.ToSlash(rel)
}

// Delete removes src from disk and drops its entry (and, if it is a
// directory, every entry beneath it) from the admin store. If src
// carries local modifications and force is false, it refuses.
func (s *Store) Delete(src string, adm *AdmAccess, force bool) error {
	entry, err := s.Entry(src)
	if err != nil {
		return err
	}
	if entry != nil && entry.HasLocalMods && !force {
		return fmt.Errorf("wc: %q has local modifications", src)
	}

	if err := os.RemoveAll(src); err != nil {
		return fmt.Errorf("removing %q: %w", src, err)
	}
	return s.deleteEntry(src)
}

// AddWithHistory schedules the tree already present on disk at dst as
// added-with-history from (srcURL, srcRev).
func (s *Store) AddWithHistory(dst string, adm *AdmAccess, srcURL string, srcRev int64) error {
	return filepath.WalkDir(dst, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dst, p)
		if err != nil {
			return err
		}
		kind := nodekind.KindFile
		if d.IsDir() {
			kind = nodekind.KindDir
		}
		e := &Entry{
			Path:        p,
			Kind:        kind,
			Schedule:    ScheduleAdd,
			URL:         joinURLSuffix(srcURL, rel),
			Revision:    srcRev,
			CopyFromURL: joinURLSuffix(srcURL, rel),
			CopyFromRev: srcRev,
		}
		return s.putEntry(e)
	})
}

// AddReposFile moves the file at textPath into dst, schedules it added,
// and attaches props (and copy-from metadata, when srcURL is non-empty).
func (s *Store) AddReposFile(dst string, adm *AdmAccess, textPath string, props map[string]string, srcURL string, srcRev int64) error {
	content, err := os.ReadFile(textPath)
	if err != nil {
		return fmt.Errorf("reading staged file %q: %w", textPath, err)
	}
	if err := os.WriteFile(dst, content, 0o644); err != nil {
		return fmt.Errorf("writing %q: %w", dst, err)
	}
	os.Remove(textPath)

	e := &Entry{Path: dst, Kind: nodekind.KindFile, Schedule: ScheduleAdd, Properties: props}
	if srcURL != "" {
		e.URL = srcURL
		e.Revision = srcRev
		e.CopyFromURL = srcURL
		e.CopyFromRev = srcRev
	}
	return s.putEntry(e)
}

// Checkout materializes srcURL (as of op, a revision number or -1 for
// head) onto disk at dst and returns the concrete revision landed on.
func (s *Store) Checkout(srcURL string, dst string, peg, op int64, depth int) (int64, error) {
	sess, err := s.session(srcURL)
	if err != nil {
		return -1, fmt.Errorf("opening session for %q: %w", srcURL, err)
	}

	rev := op
	if rev < 0 {
		rev, err = sess.LatestRevnum()
		if err != nil {
			return -1, fmt.Errorf("resolving head revision: %w", err)
		}
	}

	_, relPath := ra.SplitURL(srcURL)
	files, err := sess.ReadTree(rev, relPath)
	if err != nil {
		return -1, fmt.Errorf("reading tree at %q@%d: %w", srcURL, rev, err)
	}

	if err := os.MkdirAll(dst, 0o755); err != nil {
		return -1, fmt.Errorf("creating %q: %w", dst, err)
	}

	for path, tf := range files {
		suffix := strings.TrimPrefix(strings.TrimPrefix(path, strings.Trim(relPath, "/")), "/")
		target, err := securejoin.SecureJoin(dst, suffix)
		if err != nil {
			return -1, fmt.Errorf("resolving checkout target for %q: %w", path, err)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return -1, err
		}
		if err := os.WriteFile(target, tf.Content, 0o644); err != nil {
			return -1, fmt.Errorf("writing %q: %w", target, err)
		}
	}

	return rev, nil
}

// ParseMergeinfo reads entry's recorded svn:mergeinfo property.
func (s *Store) ParseMergeinfo(entry *Entry, path string) (mergeinfo.Mergeinfo, error) {
	if entry == nil || entry.Properties == nil {
		return mergeinfo.Mergeinfo{}, nil
	}
	raw, ok := entry.Properties["svn:mergeinfo"]
	if !ok || raw == "" {
		return mergeinfo.Mergeinfo{}, nil
	}
	return mergeinfo.Parse(raw)
}

// RecordMergeinfo writes info as path's svn:mergeinfo property.
func (s *Store) RecordMergeinfo(path string, info mergeinfo.Mergeinfo, adm *AdmAccess) error {
	entry, err := s.Entry(path)
	if err != nil {
		return err
	}
	if entry == nil {
		entry = &Entry{Path: path, Kind: nodekind.KindFile, Properties: map[string]string{}}
	}
	if entry.Properties == nil {
		entry.Properties = map[string]string{}
	}
	entry.Properties["svn:mergeinfo"] = info.String()
	return s.putEntry(entry)
}
