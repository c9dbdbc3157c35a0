package wc

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/kailayerhq/kai-copytree/internal/ra"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	path          TEXT PRIMARY KEY,
	kind          INTEGER NOT NULL,
	url           TEXT NOT NULL DEFAULT '',
	repos_root    TEXT NOT NULL DEFAULT '',
	repos_uuid    TEXT NOT NULL DEFAULT '',
	revision      INTEGER NOT NULL DEFAULT -1,
	schedule      INTEGER NOT NULL DEFAULT 0,
	copyfrom_url  TEXT NOT NULL DEFAULT '',
	copyfrom_rev  INTEGER NOT NULL DEFAULT -1,
	has_local_mods INTEGER NOT NULL DEFAULT 0,
	properties    TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS locks (
	path      TEXT PRIMARY KEY,
	depth     INTEGER NOT NULL DEFAULT 0
);
`

// Store is the SQLite+local-filesystem backed AdminStore.
type Store struct {
	db      *sql.DB
	rootDir string

	openSession func(url string) (ra.Session, error)
}

// Open opens or creates the admin database at dbPath. rootDir is the
// working copy's root directory on disk; all paths passed to Store's
// methods are absolute paths under it.
func Open(dbPath, rootDir string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening wc admin database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping wc admin database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	db.Exec("PRAGMA busy_timeout=5000")
	db.Exec("PRAGMA foreign_keys=ON")

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying wc admin schema: %w", err)
	}

	return &Store{db: db, rootDir: rootDir}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ AdminStore = (*Store)(nil)
