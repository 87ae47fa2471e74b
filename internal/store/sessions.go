package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session is one recording window, open until EndedAt is set.
type Session struct {
	ID          string
	StartedAt   time.Time
	EndedAt     time.Time // zero while the session is open
	StartMethod string
	StopMethod  string
	VideoPath   string
	ForcedStop  bool
}

// Open reports whether the session has not been closed yet.
func (s Session) Open() bool {
	return s.EndedAt.IsZero()
}

// OpenSession inserts a new open session and returns its id.
func (s *Store) OpenSession(ctx context.Context, startedAt time.Time, startMethod string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, started_at, start_method) VALUES (?, ?, ?)`,
		id, formatTime(startedAt), startMethod,
	)
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	return id, nil
}

// CloseSession marks the session ended.
func (s *Store) CloseSession(ctx context.Context, id string, endedAt time.Time, stopMethod string, forced bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ?, stop_method = ?, forced_stop = ? WHERE id = ?`,
		formatTime(endedAt), stopMethod, boolToInt(forced), id,
	)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return expectOneRow(res, "session", id)
}

// SetSessionVideo records the recording file the pairer matched to the session.
func (s *Store) SetSessionVideo(ctx context.Context, id, videoPath string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET video_path = ? WHERE id = ?`,
		videoPath, id,
	)
	if err != nil {
		return fmt.Errorf("set session video: %w", err)
	}
	return expectOneRow(res, "session", id)
}

// Sessions returns sessions newest-first, up to limit (0 means all).
func (s *Store) Sessions(ctx context.Context, limit int) ([]Session, error) {
	query := `SELECT id, started_at, COALESCE(ended_at, ''), start_method, stop_method, video_path, forced_stop
                FROM sessions ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		var started, ended string
		var forced int
		if err := rows.Scan(&sess.ID, &started, &ended, &sess.StartMethod, &sess.StopMethod, &sess.VideoPath, &forced); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if sess.StartedAt, err = parseTime(started); err != nil {
			return nil, fmt.Errorf("parse session start: %w", err)
		}
		if sess.EndedAt, err = parseTime(ended); err != nil {
			return nil, fmt.Errorf("parse session end: %w", err)
		}
		sess.ForcedStop = forced != 0
		out = append(out, sess)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func expectOneRow(res sql.Result, kind, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s %s not found", kind, id)
	}
	return nil
}
