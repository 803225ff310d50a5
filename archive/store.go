// Package archive keeps a SQLite library of patterns and a history of runs.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/moffa90/go-kh930/controller"
	"github.com/moffa90/go-kh930/knitdata"
	"github.com/moffa90/go-kh930/protocol"
)

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when an archived pattern does not exist.
var ErrNotFound = errors.New("archive: not found")

// PatternRecord is an archived pattern.
type PatternRecord struct {
	ID       string
	Number   int
	Stitches int
	Rows     int
	Source   string
	Created  time.Time

	RowData  [][]byte
	MemoData []byte
}

// Store is a SQLite-backed archive. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens or creates the archive at path.
// The schema is created if it doesn't exist; parent directories are created as needed.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "archive")

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating archive directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Debug("archive opened", "path", path)
	return s, nil
}

func (s *Store) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS patterns (
			id TEXT PRIMARY KEY,
			number INTEGER NOT NULL,
			stitches INTEGER NOT NULL,
			row_count INTEGER NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			bitmap BLOB NOT NULL,
			memo BLOB NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_patterns_number ON patterns(number);

		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			row_count INTEGER NOT NULL,
			rows_sent INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			outcome TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SavePattern archives p under a new ID. source describes where it came from,
// for example "track 3".
func (s *Store) SavePattern(ctx context.Context, p *knitdata.Pattern, source string) (PatternRecord, error) {
	rec := PatternRecord{
		ID:       uuid.NewString(),
		Number:   p.Number,
		Stitches: p.Stitches,
		Rows:     p.Rows,
		Source:   source,
		Created:  time.Now().UTC(),
		RowData:  p.RowData,
		MemoData: p.MemoData,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO patterns (id, number, stitches, row_count, source, bitmap, memo, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Number, rec.Stitches, rec.Rows, rec.Source,
		packBitmap(p.RowData), append([]byte{}, p.MemoData...), rec.Created.Format(timeLayout))
	if err != nil {
		return PatternRecord{}, fmt.Errorf("saving pattern %d: %w", p.Number, err)
	}

	s.logger.Debug("pattern archived", "id", rec.ID, "number", rec.Number)
	return rec, nil
}

// ListPatterns returns every archived pattern, newest first, without bitmaps.
func (s *Store) ListPatterns(ctx context.Context) ([]PatternRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, number, stitches, row_count, source, created_at
		FROM patterns
		ORDER BY created_at DESC, number
	`)
	if err != nil {
		return nil, fmt.Errorf("listing patterns: %w", err)
	}
	defer rows.Close()

	var out []PatternRecord
	for rows.Next() {
		var (
			rec     PatternRecord
			created string
		)
		if err := rows.Scan(&rec.ID, &rec.Number, &rec.Stitches, &rec.Rows, &rec.Source, &created); err != nil {
			return nil, fmt.Errorf("scanning pattern: %w", err)
		}
		rec.Created, _ = time.Parse(timeLayout, created)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetPattern returns the archived pattern id with its bitmap and memo.
func (s *Store) GetPattern(ctx context.Context, id string) (PatternRecord, error) {
	var (
		rec     PatternRecord
		bitmap  []byte
		created string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, number, stitches, row_count, source, bitmap, memo, created_at
		FROM patterns WHERE id = ?
	`, id).Scan(&rec.ID, &rec.Number, &rec.Stitches, &rec.Rows, &rec.Source, &bitmap, &rec.MemoData, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return PatternRecord{}, fmt.Errorf("pattern %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return PatternRecord{}, fmt.Errorf("loading pattern %s: %w", id, err)
	}

	rec.Created, _ = time.Parse(timeLayout, created)
	rec.RowData, err = unpackBitmap(bitmap, rec.Stitches, rec.Rows)
	if err != nil {
		return PatternRecord{}, fmt.Errorf("pattern %s: %w", id, err)
	}
	return rec, nil
}

// DeletePattern removes the archived pattern id.
func (s *Store) DeletePattern(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM patterns WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting pattern %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("pattern %s: %w", id, ErrNotFound)
	}
	return nil
}

// Restore adds the archived pattern id to ds as pattern number.
// A number of 0 keeps the archived number.
func (s *Store) Restore(ctx context.Context, id string, ds *knitdata.Dataset, number int) error {
	rec, err := s.GetPattern(ctx, id)
	if err != nil {
		return err
	}
	if number == 0 {
		number = rec.Number
	}
	return ds.Add(number, rec.RowData, rec.MemoData)
}

// RecordRun stores a finished run. It implements controller.RunRecorder.
func (s *Store) RecordRun(ctx context.Context, rec controller.RunRecord) error {
	var errText string
	if rec.Err != nil {
		errText = rec.Err.Error()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, row_count, rows_sent, started_at, finished_at, outcome, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Rows, rec.RowsSent,
		rec.Started.UTC().Format(timeLayout), rec.Finished.UTC().Format(timeLayout),
		rec.Outcome, errText)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", rec.ID, err)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first. A limit of 0 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]controller.RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, row_count, rows_sent, started_at, finished_at, outcome, error
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []controller.RunRecord
	for rows.Next() {
		var (
			rec               controller.RunRecord
			started, finished string
			errText           string
		)
		if err := rows.Scan(&rec.ID, &rec.Rows, &rec.RowsSent, &started, &finished, &rec.Outcome, &errText); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		rec.Started, _ = time.Parse(timeLayout, started)
		rec.Finished, _ = time.Parse(timeLayout, finished)
		if errText != "" {
			rec.Err = errors.New(errText)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// packBitmap stores each row with protocol.EncodeRow, rows back to back.
func packBitmap(rows [][]byte) []byte {
	var out []byte
	for _, r := range protocol.EncodePattern(rows) {
		out = append(out, r...)
	}
	return out
}

func unpackBitmap(data []byte, stitches, rows int) ([][]byte, error) {
	stride := (stitches + protocol.StitchesPerByte - 1) / protocol.StitchesPerByte
	if len(data) != stride*rows {
		return nil, fmt.Errorf("bitmap is %d bytes, want %d", len(data), stride*rows)
	}
	out := make([][]byte, rows)
	for r := range out {
		row := make([]byte, stitches)
		for s := range row {
			row[s] = (data[r*stride+s/protocol.StitchesPerByte] >> (s % protocol.StitchesPerByte)) & 1
		}
		out[r] = row
	}
	return out, nil
}
