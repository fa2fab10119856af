package store

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA busy_timeout = 5000;

CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS members (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    platform_id TEXT NOT NULL UNIQUE,
    name        TEXT NOT NULL DEFAULT '',
    is_system   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS messages (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    sender_id INTEGER NOT NULL,
    ts        INTEGER NOT NULL DEFAULT 0,
    type      TEXT NOT NULL DEFAULT 'text',
    content   TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_messages_ts ON messages(ts);
CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_id);
`

// meta keys written once per import
const (
	metaName       = "name"
	metaPlatform   = "platform"
	metaChatType   = "chat_type"
	metaImportedAt = "imported_at"
)

// DB wraps one session's SQLite file.
type DB struct {
	db   *sql.DB
	path string
}

// SessionPath returns the primary storage artifact for a session id.
func SessionPath(dataDir, id string) string {
	return filepath.Join(dataDir, id+".db")
}

// Open creates or opens a session database read-write and applies the
// schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &DB{db: db, path: path}, nil
}

// OpenRead opens an existing session database read-only. The ping
// doubles as a cheap validity check against foreign files.
func OpenRead(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &DB{db: db, path: path}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Raw() *sql.DB {
	return d.db
}

func (d *DB) Path() string {
	return d.path
}

// getMeta fails on an absent key. Every key is written by the import
// transaction, so a database missing one was never fully committed.
func (d *DB) getMeta(key string) (string, error) {
	var v string
	err := d.db.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("missing meta key %q", key)
	}
	return v, err
}
