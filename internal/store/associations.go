package store

import (
	"context"
	"fmt"
	"time"
)

// Association mirrors one committed ledger row: a screenshot filed under an
// outcome, with whether the outcome was synthesized from a stop marker.
type Association struct {
	ID        int64
	Image     string
	Result    string
	Season    string
	Synthetic bool
	PairedAt  time.Time
}

// RecordAssociation inserts one association row.
func (s *Store) RecordAssociation(ctx context.Context, a Association) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO associations (image, result, season, synthetic, paired_at)
           VALUES (?, ?, ?, ?, ?)`,
		a.Image, a.Result, a.Season, boolToInt(a.Synthetic), formatTime(a.PairedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert association: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// Associations returns associations newest-first, up to limit (0 means all).
func (s *Store) Associations(ctx context.Context, limit int) ([]Association, error) {
	query := `SELECT id, image, result, season, synthetic, paired_at
                FROM associations ORDER BY paired_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query associations: %w", err)
	}
	defer rows.Close()

	var out []Association
	for rows.Next() {
		var a Association
		var synthetic int
		var paired string
		if err := rows.Scan(&a.ID, &a.Image, &a.Result, &a.Season, &synthetic, &paired); err != nil {
			return nil, fmt.Errorf("scan association: %w", err)
		}
		a.Synthetic = synthetic != 0
		if a.PairedAt, err = parseTime(paired); err != nil {
			return nil, fmt.Errorf("parse association time: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
