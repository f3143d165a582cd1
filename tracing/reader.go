package tracing

import (
	"database/sql"
	"fmt"

	"github.com/sarchlab/netsync/emulator"
	"github.com/sarchlab/netsync/timing"
)

// EventQuery selects events. Zero fields match everything.
type EventQuery struct {
	Domain string
	Pos    string

	EnableTimeRange    bool
	StartTime, EndTime timing.VTimeInSec
}

// SQLiteReader reads events written by SQLiteWriter.
type SQLiteReader struct {
	*sql.DB

	filename string
}

// NewSQLiteReader creates a reader for filename.
func NewSQLiteReader(filename string) *SQLiteReader {
	return &SQLiteReader{filename: filename}
}

// Init opens the database.
func (r *SQLiteReader) Init() error {
	db, err := sql.Open("sqlite3", r.filename)
	if err != nil {
		return fmt.Errorf("tracing: open %s: %w", r.filename, err)
	}

	r.DB = db

	return nil
}

// ListDomains returns the names of the domains that raised events.
func (r *SQLiteReader) ListDomains() ([]string, error) {
	rows, err := r.Query("SELECT DISTINCT domain FROM event ORDER BY domain")
	if err != nil {
		return nil, fmt.Errorf("tracing: list domains: %w", err)
	}
	defer rows.Close()

	var domains []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}

		domains = append(domains, d)
	}

	return domains, rows.Err()
}

// ListEvents returns the events matching q in time order.
func (r *SQLiteReader) ListEvents(q EventQuery) ([]Event, error) {
	sqlStr := `
		SELECT time, domain, pos, src, dst, bytes, detail
		FROM event
		WHERE 1=1
	`

	var args []any

	if q.Domain != "" {
		sqlStr += " AND domain = ?"
		args = append(args, q.Domain)
	}

	if q.Pos != "" {
		sqlStr += " AND pos = ?"
		args = append(args, q.Pos)
	}

	if q.EnableTimeRange {
		sqlStr += " AND time >= ? AND time < ?"
		args = append(args, float64(q.StartTime), float64(q.EndTime))
	}

	sqlStr += " ORDER BY time, rowid"

	rows, err := r.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("tracing: list events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e        Event
			t        float64
			src, dst int
		)

		err := rows.Scan(&t, &e.Domain, &e.Pos, &src, &dst, &e.Bytes, &e.Detail)
		if err != nil {
			return nil, err
		}

		e.Time = timing.VTimeInSec(t)
		e.Src, e.Dst = emulator.Port(src), emulator.Port(dst)
		events = append(events, e)
	}

	return events, rows.Err()
}

// CountByPos returns the number of events per hook position.
func (r *SQLiteReader) CountByPos() (map[string]int, error) {
	rows, err := r.Query("SELECT pos, COUNT(*) FROM event GROUP BY pos")
	if err != nil {
		return nil, fmt.Errorf("tracing: count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			pos string
			n   int
		)

		if err := rows.Scan(&pos, &n); err != nil {
			return nil, err
		}

		counts[pos] = n
	}

	return counts, rows.Err()
}
