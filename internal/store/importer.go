package store

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/minqua/chatlens/internal/logging"
	"github.com/minqua/chatlens/internal/parser"
)

// Importer commits a ParseResult into a fresh per-session database.
type Importer struct {
	DataDir string
}

func NewImporter(dataDir string) *Importer {
	return &Importer{DataDir: dataDir}
}

// ImportResult reports a successful import. Dropped counts messages
// whose sender could not be resolved against the member list; those
// rows are not stored.
type ImportResult struct {
	SessionID string
	Dropped   int
}

// renameSessionFile publishes a staged database; a seam for tests.
var renameSessionFile = os.Rename

// Import allocates a new session and writes members and messages in a
// single transaction. The database is staged under a non-.db name and
// renamed into place only after the transaction commits, so the
// catalog never sees an incomplete session. On any failure the staged
// file is removed.
func (imp *Importer) Import(res *parser.ParseResult) (*ImportResult, error) {
	if res == nil {
		return nil, fmt.Errorf("nil parse result")
	}

	if err := os.MkdirAll(imp.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	id := newSessionID()
	path := SessionPath(imp.DataDir, id)
	staged := path + ".partial"

	db, err := Open(staged)
	if err != nil {
		removeArtifacts(staged)
		return nil, fmt.Errorf("create session db: %w", err)
	}

	dropped, err := imp.write(db, res)
	db.Close()
	if err != nil {
		removeArtifacts(staged)
		return nil, err
	}

	if err := renameSessionFile(staged, path); err != nil {
		removeArtifacts(staged)
		return nil, fmt.Errorf("publish session db: %w", err)
	}

	if dropped > 0 {
		logging.Warnf("import %s: dropped %d messages with unresolved senders", id, dropped)
	}
	return &ImportResult{SessionID: id, Dropped: dropped}, nil
}

func (imp *Importer) write(db *DB, res *parser.ParseResult) (int, error) {
	tx, err := db.Raw().Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	metaStmt, err := tx.Prepare("INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)")
	if err != nil {
		return 0, fmt.Errorf("prepare meta: %w", err)
	}
	defer metaStmt.Close()

	meta := map[string]string{
		metaName:       res.Name,
		metaPlatform:   res.Platform,
		metaChatType:   res.ChatType,
		metaImportedAt: strconv.FormatInt(time.Now().Unix(), 10),
	}
	for k, v := range meta {
		if _, err := metaStmt.Exec(k, v); err != nil {
			return 0, fmt.Errorf("write meta %s: %w", k, err)
		}
	}

	// Upsert keeps "latest name wins" semantics when a ParseResult
	// lists the same platform id more than once.
	memberStmt, err := tx.Prepare(`
		INSERT INTO members (platform_id, name, is_system) VALUES (?, ?, ?)
		ON CONFLICT(platform_id) DO UPDATE SET
			name = excluded.name,
			is_system = members.is_system OR excluded.is_system`)
	if err != nil {
		return 0, fmt.Errorf("prepare members: %w", err)
	}
	defer memberStmt.Close()

	for _, m := range res.Members {
		if _, err := memberStmt.Exec(m.PlatformID, m.Name, boolToInt(m.IsSystem)); err != nil {
			return 0, fmt.Errorf("write member %s: %w", m.PlatformID, err)
		}
	}

	idByPlatform, err := memberIDs(tx)
	if err != nil {
		return 0, err
	}

	msgStmt, err := tx.Prepare(
		"INSERT INTO messages (sender_id, ts, type, content) VALUES (?, ?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("prepare messages: %w", err)
	}
	defer msgStmt.Close()

	dropped := 0
	for _, msg := range res.Messages {
		senderID, ok := idByPlatform[msg.SenderID]
		if !ok {
			dropped++
			continue
		}
		if _, err := msgStmt.Exec(senderID, msg.Timestamp, string(msg.Type), msg.Content); err != nil {
			return 0, fmt.Errorf("write message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return dropped, nil
}

func memberIDs(tx *sql.Tx) (map[string]int64, error) {
	rows, err := tx.Query("SELECT id, platform_id FROM members")
	if err != nil {
		return nil, fmt.Errorf("read members: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var id int64
		var platformID string
		if err := rows.Scan(&id, &platformID); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out[platformID] = id
	}
	return out, rows.Err()
}

// newSessionID combines a second-resolution timestamp with a random
// suffix; collisions are negligible across one storage directory.
func newSessionID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return time.Now().Format("20060102150405") + "-" + suffix
}

func removeArtifacts(path string) {
	os.Remove(path)
	os.Remove(path + "-wal")
	os.Remove(path + "-shm")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
