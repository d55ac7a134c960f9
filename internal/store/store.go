// Package store keeps a local history of highlight runs and their fused
// segments in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/forPelevin/matchcut/internal/types"
)

var (
	ErrNotFound  = errors.New("run not found")
	ErrAmbiguous = errors.New("run id prefix is ambiguous")
)

// Run is one recorded highlight pass.
type Run struct {
	ID           string
	CreatedAt    time.Time
	Tracks       []string
	AudioPath    string
	VideoPath    string
	FPS          float64
	Frames       int
	Intervals    int
	AudioMoments int
	Segments     int
	OutDir       string
	SummaryPath  string
}

// Store manages run persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the run database and applies migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// SaveRun records a run and its segments in one transaction. An empty ID
// is replaced by a new UUID; a zero CreatedAt by the current time.
func (s *Store) SaveRun(ctx context.Context, run *Run, segs []types.FusedSegment) error {
	if run == nil {
		return errors.New("run is nil")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	run.Segments = len(segs)

	tracks, err := json.Marshal(run.Tracks)
	if err != nil {
		return fmt.Errorf("marshal tracks: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (
            id, created_at, tracks_json, audio_path, video_path, fps,
            frames, intervals, audio_moments, out_dir, summary_path
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.CreatedAt.UTC().Format(time.RFC3339Nano),
		string(tracks),
		nullableString(run.AudioPath),
		nullableString(run.VideoPath),
		run.FPS,
		run.Frames,
		run.Intervals,
		run.AudioMoments,
		nullableString(run.OutDir),
		nullableString(run.SummaryPath),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO segments (run_id, position, start_sec, end_sec, type, events_json, text)
         VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare segment insert: %w", err)
	}
	defer stmt.Close()

	for i, seg := range segs {
		events, err := json.Marshal(seg.Events)
		if err != nil {
			return fmt.Errorf("marshal events: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, run.ID, i, seg.Start, seg.End, string(seg.Type), string(events), nullableString(seg.Text)); err != nil {
			return fmt.Errorf("insert segment %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

const runColumns = `r.id, r.created_at, r.tracks_json, r.audio_path, r.video_path, r.fps,
    r.frames, r.intervals, r.audio_moments, r.out_dir, r.summary_path,
    (SELECT COUNT(1) FROM segments s WHERE s.run_id = r.id)`

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	q := `SELECT ` + runColumns + ` FROM runs r ORDER BY r.created_at DESC, r.id`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// FindRun resolves a full run id or a unique prefix of one.
func (s *Store) FindRun(ctx context.Context, idOrPrefix string) (*Run, error) {
	if idOrPrefix == "" {
		return nil, ErrNotFound
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs r WHERE r.id = ? OR substr(r.id, 1, ?) = ? ORDER BY r.id LIMIT 2`,
		idOrPrefix, len(idOrPrefix), idOrPrefix,
	)
	if err != nil {
		return nil, fmt.Errorf("find run: %w", err)
	}
	defer rows.Close()

	var found []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		if r.ID == idOrPrefix {
			return r, nil
		}
		found = append(found, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, idOrPrefix)
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguous, idOrPrefix)
	}
}

// Segments returns a run's fused segments in their stored order.
func (s *Store) Segments(ctx context.Context, runID string) ([]types.FusedSegment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT start_sec, end_sec, type, events_json, text FROM segments WHERE run_id = ? ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()

	var out []types.FusedSegment
	for rows.Next() {
		var (
			seg    types.FusedSegment
			typ    string
			events string
			text   sql.NullString
		)
		if err := rows.Scan(&seg.Start, &seg.End, &typ, &events, &text); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		if err := json.Unmarshal([]byte(events), &seg.Events); err != nil {
			return nil, fmt.Errorf("decode segment events: %w", err)
		}
		seg.Type = types.SegmentType(typ)
		seg.Text = text.String
		out = append(out, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate segments: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		r                          Run
		created, tracks            string
		audio, video, out, summary sql.NullString
	)
	if err := row.Scan(
		&r.ID, &created, &tracks, &audio, &video, &r.FPS,
		&r.Frames, &r.Intervals, &r.AudioMoments, &out, &summary,
		&r.Segments,
	); err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	r.CreatedAt = t
	if err := json.Unmarshal([]byte(tracks), &r.Tracks); err != nil {
		return nil, fmt.Errorf("decode tracks: %w", err)
	}
	r.AudioPath = audio.String
	r.VideoPath = video.String
	r.OutDir = out.String
	r.SummaryPath = summary.String
	return &r, nil
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
