// Package analytics answers read-only aggregate queries over one
// imported session. Every query opens the session database read-only,
// runs to completion, and releases the handle on all exit paths.
package analytics

import (
	"database/sql"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/minqua/chatlens/internal/store"
)

// TimeFilter bounds message timestamps inclusively, in unix seconds.
// A nil bound leaves that side open.
type TimeFilter struct {
	Start *int64
	End   *int64
}

type MemberActivity struct {
	MemberID     int64
	PlatformID   string
	Name         string
	MessageCount int
	Percentage   float64
}

type HourBucket struct {
	Hour         int
	MessageCount int
}

type DayBucket struct {
	Date         string // YYYY-MM-DD, local timezone
	MessageCount int
}

type TypeCount struct {
	Type  string
	Count int
}

type TimeRange struct {
	Start int64
	End   int64
}

// Engine issues aggregate queries against session databases in one
// data directory.
type Engine struct {
	DataDir string
}

func NewEngine(dataDir string) *Engine {
	return &Engine{DataDir: dataDir}
}

func (e *Engine) open(sessionID string) (*store.DB, error) {
	path := store.SessionPath(e.DataDir, sessionID)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, store.ErrSessionNotFound
	}
	return store.OpenRead(path)
}

// activityFilter composes the system-sentinel exclusion with the
// optional time bounds. The predicates are independent and always
// conjoined with AND, whether zero, one, or both bounds are set.
func activityFilter(f *TimeFilter) (string, []interface{}) {
	conditions := []string{"mb.is_system = 0"}
	var args []interface{}

	if f != nil && f.Start != nil {
		conditions = append(conditions, "m.ts >= ?")
		args = append(args, *f.Start)
	}
	if f != nil && f.End != nil {
		conditions = append(conditions, "m.ts <= ?")
		args = append(args, *f.End)
	}

	return strings.Join(conditions, " AND "), args
}

// MemberActivity ranks non-system members by message count under the
// filter. Members with no matching messages are omitted; percentages
// are rounded to two decimals against the filtered non-system total.
func (e *Engine) MemberActivity(sessionID string, f *TimeFilter) ([]MemberActivity, error) {
	db, err := e.open(sessionID)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	where, args := activityFilter(f)
	query := fmt.Sprintf(`
		SELECT mb.id, mb.platform_id, mb.name, COUNT(*) AS cnt
		FROM messages m
		JOIN members mb ON m.sender_id = mb.id
		WHERE %s
		GROUP BY mb.id
		ORDER BY cnt DESC, mb.id ASC`, where)

	rows, err := db.Raw().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("member activity query: %w", err)
	}
	defer rows.Close()

	var out []MemberActivity
	total := 0
	for rows.Next() {
		var a MemberActivity
		if err := rows.Scan(&a.MemberID, &a.PlatformID, &a.Name, &a.MessageCount); err != nil {
			return nil, fmt.Errorf("scan member activity: %w", err)
		}
		total += a.MessageCount
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		out[i].Percentage = roundPercent(out[i].MessageCount, total)
	}
	return out, nil
}

// HourlyActivity buckets non-system messages by local hour of day.
// All 24 buckets are always present, absent hours zero-filled.
func (e *Engine) HourlyActivity(sessionID string, f *TimeFilter) ([]HourBucket, error) {
	db, err := e.open(sessionID)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	where, args := activityFilter(f)
	query := fmt.Sprintf(`
		SELECT CAST(strftime('%%H', m.ts, 'unixepoch', 'localtime') AS INTEGER) AS hour, COUNT(*)
		FROM messages m
		JOIN members mb ON m.sender_id = mb.id
		WHERE %s
		GROUP BY hour`, where)

	rows, err := db.Raw().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("hourly activity query: %w", err)
	}
	defer rows.Close()

	buckets := make([]HourBucket, 24)
	for i := range buckets {
		buckets[i].Hour = i
	}
	for rows.Next() {
		var hour, count int
		if err := rows.Scan(&hour, &count); err != nil {
			return nil, fmt.Errorf("scan hourly activity: %w", err)
		}
		if hour >= 0 && hour < 24 {
			buckets[hour].MessageCount = count
		}
	}
	return buckets, rows.Err()
}

// DailyActivity buckets non-system messages by local calendar date,
// ascending. Only dates with at least one message appear.
func (e *Engine) DailyActivity(sessionID string, f *TimeFilter) ([]DayBucket, error) {
	db, err := e.open(sessionID)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	where, args := activityFilter(f)
	query := fmt.Sprintf(`
		SELECT date(m.ts, 'unixepoch', 'localtime') AS day, COUNT(*)
		FROM messages m
		JOIN members mb ON m.sender_id = mb.id
		WHERE %s
		GROUP BY day
		ORDER BY day ASC`, where)

	rows, err := db.Raw().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("daily activity query: %w", err)
	}
	defer rows.Close()

	var out []DayBucket
	for rows.Next() {
		var b DayBucket
		if err := rows.Scan(&b.Date, &b.MessageCount); err != nil {
			return nil, fmt.Errorf("scan daily activity: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// TypeDistribution counts non-system messages per message type,
// descending by count.
func (e *Engine) TypeDistribution(sessionID string, f *TimeFilter) ([]TypeCount, error) {
	db, err := e.open(sessionID)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	where, args := activityFilter(f)
	query := fmt.Sprintf(`
		SELECT m.type, COUNT(*) AS cnt
		FROM messages m
		JOIN members mb ON m.sender_id = mb.id
		WHERE %s
		GROUP BY m.type
		ORDER BY cnt DESC, m.type ASC`, where)

	rows, err := db.Raw().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("type distribution query: %w", err)
	}
	defer rows.Close()

	var out []TypeCount
	for rows.Next() {
		var t TypeCount
		if err := rows.Scan(&t.Type, &t.Count); err != nil {
			return nil, fmt.Errorf("scan type distribution: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// TimeRange spans all stored messages, system sentinel included and no
// time filter applied: it reflects the full dataset. Nil when the
// session holds no messages.
func (e *Engine) TimeRange(sessionID string) (*TimeRange, error) {
	db, err := e.open(sessionID)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var start, end sql.NullInt64
	err = db.Raw().QueryRow("SELECT MIN(ts), MAX(ts) FROM messages").Scan(&start, &end)
	if err != nil {
		return nil, fmt.Errorf("time range query: %w", err)
	}
	if !start.Valid || !end.Valid {
		return nil, nil
	}
	return &TimeRange{Start: start.Int64, End: end.Int64}, nil
}

// AvailableYears lists the distinct local calendar years across all
// messages, ascending.
func (e *Engine) AvailableYears(sessionID string) ([]int, error) {
	db, err := e.open(sessionID)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Raw().Query(`
		SELECT DISTINCT CAST(strftime('%Y', ts, 'unixepoch', 'localtime') AS INTEGER) AS y
		FROM messages
		ORDER BY y ASC`)
	if err != nil {
		return nil, fmt.Errorf("available years query: %w", err)
	}
	defer rows.Close()

	var years []int
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, fmt.Errorf("scan year: %w", err)
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

func roundPercent(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*10000) / 100
}
