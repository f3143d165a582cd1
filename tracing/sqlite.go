package tracing

import (
	"database/sql"
	"fmt"
	"os"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// SQLiteWriter buffers events and writes them to a SQLite database in
// batches.
type SQLiteWriter struct {
	*sql.DB
	statement *sql.Stmt

	path      string
	pending   []Event
	batchSize int
	err       error
}

// NewSQLiteWriter creates a writer for the database at path. An empty path
// picks a unique file name in the working directory. Buffered events are
// flushed when the program exits through atexit.
func NewSQLiteWriter(path string) *SQLiteWriter {
	if path == "" {
		path = "netsync_trace_" + xid.New().String() + ".sqlite3"
	}

	w := &SQLiteWriter{
		path:      path,
		batchSize: 10000,
	}

	atexit.Register(func() { _ = w.Flush() })

	return w
}

// Path returns the database file name.
func (w *SQLiteWriter) Path() string {
	return w.path
}

// WithBatchSize sets how many events are buffered before a flush.
func (w *SQLiteWriter) WithBatchSize(n int) *SQLiteWriter {
	if n < 1 {
		n = 1
	}

	w.batchSize = n

	return w
}

// Init creates the database file and its schema. It fails if the file
// already exists.
func (w *SQLiteWriter) Init() error {
	if _, err := os.Stat(w.path); err == nil {
		return fmt.Errorf("tracing: file %s already exists", w.path)
	}

	db, err := sql.Open("sqlite3", w.path)
	if err != nil {
		return fmt.Errorf("tracing: open %s: %w", w.path, err)
	}

	w.DB = db

	if err := w.createTable(); err != nil {
		return err
	}

	stmt, err := w.Prepare(`
		INSERT INTO event (time, domain, pos, src, dst, bytes, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("tracing: prepare insert: %w", err)
	}

	w.statement = stmt

	return nil
}

func (w *SQLiteWriter) createTable() error {
	queries := []string{
		`CREATE TABLE event
		(
			time   FLOAT        NOT NULL,
			domain VARCHAR(100) NOT NULL,
			pos    VARCHAR(100) NOT NULL,
			src    INTEGER      NOT NULL,
			dst    INTEGER      NOT NULL,
			bytes  INTEGER      NOT NULL,
			detail VARCHAR(200) NOT NULL
		);`,
		`CREATE INDEX event_time_index ON event (time);`,
		`CREATE INDEX event_pos_index ON event (pos);`,
		`CREATE INDEX event_domain_index ON event (domain);`,
	}

	for _, q := range queries {
		if _, err := w.Exec(q); err != nil {
			return fmt.Errorf("tracing: create schema: %w", err)
		}
	}

	return nil
}

// Write buffers e and flushes once the batch is full. A failed flush is
// kept and reported by the next Flush or Close.
func (w *SQLiteWriter) Write(e Event) {
	w.pending = append(w.pending, e)

	if len(w.pending) >= w.batchSize {
		if err := w.Flush(); err != nil && w.err == nil {
			w.err = err
		}
	}
}

// Flush writes the buffered events in one transaction.
func (w *SQLiteWriter) Flush() error {
	if w.err != nil {
		return w.err
	}

	if len(w.pending) == 0 || w.DB == nil {
		return nil
	}

	tx, err := w.Begin()
	if err != nil {
		return fmt.Errorf("tracing: begin: %w", err)
	}

	stmt := tx.Stmt(w.statement)
	for _, e := range w.pending {
		_, err := stmt.Exec(
			float64(e.Time), e.Domain, e.Pos,
			int(e.Src), int(e.Dst), e.Bytes, e.Detail,
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("tracing: insert event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tracing: commit: %w", err)
	}

	w.pending = nil

	return nil
}

// Close flushes and closes the database.
func (w *SQLiteWriter) Close() error {
	if w.DB == nil {
		return nil
	}

	flushErr := w.Flush()

	if err := w.DB.Close(); err != nil {
		return fmt.Errorf("tracing: close: %w", err)
	}

	w.DB = nil

	return flushErr
}
