package store

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/minqua/chatlens/internal/logging"
)

// ErrSessionNotFound is returned by Catalog.Get for an unknown id.
var ErrSessionNotFound = errors.New("session not found")

// Session is the catalog view of one imported dataset. Derived counts
// exclude the system sentinel.
type Session struct {
	ID           string
	Name         string
	Platform     string
	ChatType     string
	ImportedAt   int64
	MessageCount int
	MemberCount  int
	Path         string
}

// Catalog enumerates, inspects, and deletes session databases inside
// one data directory.
type Catalog struct {
	DataDir string
}

func NewCatalog(dataDir string) *Catalog {
	return &Catalog{DataDir: dataDir}
}

// List scans the data dir for session files, newest import first.
// Files that cannot be opened or read are skipped with a warning, not
// fatal to the listing.
func (c *Catalog) List() ([]Session, error) {
	entries, err := os.ReadDir(c.DataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	var sessions []Session
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".db") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".db")
		s, err := readSession(c.DataDir, id)
		if err != nil {
			logging.Warnf("skip unreadable session %s: %v", e.Name(), err)
			continue
		}
		sessions = append(sessions, *s)
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].ImportedAt > sessions[j].ImportedAt
	})
	return sessions, nil
}

// Get reads a single session, returning ErrSessionNotFound when the
// primary artifact does not exist.
func (c *Catalog) Get(id string) (*Session, error) {
	path := SessionPath(c.DataDir, id)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, ErrSessionNotFound
	}
	return readSession(c.DataDir, id)
}

// Delete removes the session database and its WAL/SHM companions.
// Failure to remove the primary artifact reports false rather than an
// error.
func (c *Catalog) Delete(id string) bool {
	path := SessionPath(c.DataDir, id)
	if err := os.Remove(path); err != nil {
		logging.Warnf("delete session %s: %v", id, err)
		return false
	}
	os.Remove(path + "-wal")
	os.Remove(path + "-shm")
	return true
}

func readSession(dataDir, id string) (*Session, error) {
	path := SessionPath(dataDir, id)
	db, err := OpenRead(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	s := &Session{ID: id, Path: path}

	if s.Name, err = db.getMeta(metaName); err != nil {
		return nil, fmt.Errorf("read name: %w", err)
	}
	if s.Platform, err = db.getMeta(metaPlatform); err != nil {
		return nil, fmt.Errorf("read platform: %w", err)
	}
	if s.ChatType, err = db.getMeta(metaChatType); err != nil {
		return nil, fmt.Errorf("read chat type: %w", err)
	}
	importedAt, err := db.getMeta(metaImportedAt)
	if err != nil {
		return nil, fmt.Errorf("read imported_at: %w", err)
	}
	s.ImportedAt, _ = strconv.ParseInt(importedAt, 10, 64)

	err = db.Raw().QueryRow(
		"SELECT COUNT(*) FROM members WHERE is_system = 0").Scan(&s.MemberCount)
	if err != nil {
		return nil, fmt.Errorf("count members: %w", err)
	}

	err = db.Raw().QueryRow(`
		SELECT COUNT(*) FROM messages m
		JOIN members mb ON m.sender_id = mb.id
		WHERE mb.is_system = 0`).Scan(&s.MessageCount)
	if err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}

	return s, nil
}
