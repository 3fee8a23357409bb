package tracing

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/mcengine/api"
	"github.com/sarchlab/mcengine/mc"
)

const createSpans = `
CREATE TABLE IF NOT EXISTS kernel_spans (
	run_id    TEXT    NOT NULL,
	kernel    TEXT    NOT NULL,
	kind      TEXT    NOT NULL,
	iteration INTEGER NOT NULL,
	slot      TEXT    NOT NULL,
	start_ns  REAL    NOT NULL,
	end_ns    REAL    NOT NULL,
	err       TEXT    NOT NULL
)`

const insertSpan = `
INSERT INTO kernel_spans
	(run_id, kernel, kind, iteration, slot, start_ns, end_ns, err)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// SQLiteRecorder stores the spans of a run in a SQLite database. Spans are
// buffered and written in one transaction by Flush.
type SQLiteRecorder struct {
	db      *sql.DB
	runID   uuid.UUID
	pending []Span
}

// NewSQLiteRecorder opens or creates the database at path.
func NewSQLiteRecorder(path string, runID uuid.UUID) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open trace db: %w", err)
	}

	if _, err := db.Exec(createSpans); err != nil {
		db.Close()
		return nil, fmt.Errorf("create trace table: %w", err)
	}

	return &SQLiteRecorder{db: db, runID: runID}, nil
}

// Func implements sim.Hook.
func (r *SQLiteRecorder) Func(ctx sim.HookCtx) {
	if ctx.Pos != api.HookPosKernelComplete {
		return
	}

	cmd, ok := ctx.Item.(*api.Command)
	if !ok {
		return
	}

	r.pending = append(r.pending, spanOf(cmd))
}

// Flush writes the buffered spans.
func (r *SQLiteRecorder) Flush() error {
	if len(r.pending) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin trace tx: %w", err)
	}

	stmt, err := tx.Prepare(insertSpan)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare trace insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range r.pending {
		_, err := stmt.Exec(r.runID.String(), s.Kernel, s.Kind.Name(),
			s.Iteration, s.Slot, nanoseconds(s.Start), nanoseconds(s.End), s.Err)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert span %s: %w", s.Kernel, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit trace tx: %w", err)
	}

	r.pending = r.pending[:0]

	return nil
}

// Spans reads back the stored spans of a run in completion order.
func (r *SQLiteRecorder) Spans(runID uuid.UUID) ([]Span, error) {
	rows, err := r.db.Query(`
SELECT kernel, kind, iteration, slot, start_ns, end_ns, err
FROM kernel_spans WHERE run_id = ? ORDER BY rowid`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("query spans: %w", err)
	}
	defer rows.Close()

	var spans []Span
	for rows.Next() {
		var (
			s              Span
			kind           string
			startNs, endNs float64
		)

		err := rows.Scan(&s.Kernel, &kind, &s.Iteration, &s.Slot,
			&startNs, &endNs, &s.Err)
		if err != nil {
			return nil, fmt.Errorf("scan span: %w", err)
		}

		s.Kind = kindByName(kind)
		s.Start = sim.VTimeInSec(startNs / 1e9)
		s.End = sim.VTimeInSec(endNs / 1e9)
		spans = append(spans, s)
	}

	return spans, rows.Err()
}

// Close flushes the buffered spans and closes the database.
func (r *SQLiteRecorder) Close() error {
	flushErr := r.Flush()

	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close trace db: %w", err)
	}

	return flushErr
}

func kindByName(name string) mc.StageKind {
	for _, k := range mc.StageKinds {
		if k.Name() == name {
			return k
		}
	}

	return mc.Simulate
}
