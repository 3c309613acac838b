package swings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"swingcoach/internal/analysis"
	"swingcoach/internal/services"
)

// ErrInvalidTransition is returned when a status change is not a legal
// pipeline step from the swing's current state.
var ErrInvalidTransition = errors.New("invalid status transition")

// Create inserts a swing in the created state. The ID is generated when the
// caller leaves it empty.
func (s *Store) Create(ctx context.Context, in NewSwing) (*Swing, error) {
	club, err := analysis.ParseClub(in.Club)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "store", "create", "", err)
	}
	if strings.TrimSpace(in.PlayerID) == "" {
		return nil, services.Wrap(services.ErrValidation, "store", "create", "player id is required", nil)
	}
	if strings.TrimSpace(in.VideoPath) == "" {
		return nil, services.Wrap(services.ErrValidation, "store", "create", "video path is required", nil)
	}
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.NewString()
	}

	now := formatTime(time.Now())
	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO swings (id, player_id, club, video_path, status, analyzed, favorite, transcoded, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, 0, 0, 0, ?, ?)`,
		id,
		strings.TrimSpace(in.PlayerID),
		string(club),
		in.VideoPath,
		StatusCreated,
		now,
		now,
	); err != nil {
		return nil, persistenceErr("insert swing", err)
	}
	return s.Get(ctx, id)
}

// Get fetches a swing by ID.
func (s *Store) Get(ctx context.Context, id string) (*Swing, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+swingColumns+" FROM swings WHERE id = ?", id)
	swing, err := scanSwing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, persistenceErr("get swing", err)
	}
	return swing, nil
}

// List returns swing summaries newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Summary, error) {
	var (
		where []string
		args  []any
	)
	if opts.PlayerID != "" {
		where = append(where, "s.player_id = ?")
		args = append(args, opts.PlayerID)
	}
	if opts.FavoritesOnly {
		where = append(where, "s.favorite = 1")
	}
	query := `SELECT s.id, s.player_id, s.club, s.status, s.analyzed, s.favorite, s.created_at,
            a.club_speed_mph, a.carry_yards, l.club_speed_mph, l.carry_yards
        FROM swings s
        LEFT JOIN analysis_results a ON a.swing_id = s.id
        LEFT JOIN launch_monitor_readings l ON l.swing_id = s.id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY s.created_at DESC, s.rowid DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistenceErr("list swings", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var (
			sum                      Summary
			club, status, createdRaw string
			analyzed, favorite       int64
			estSpeed, estCarry       sql.NullFloat64
			lmSpeed, lmCarry         sql.NullFloat64
		)
		if err := rows.Scan(&sum.ID, &sum.PlayerID, &club, &status, &analyzed, &favorite, &createdRaw,
			&estSpeed, &estCarry, &lmSpeed, &lmCarry); err != nil {
			return nil, persistenceErr("scan summary", err)
		}
		sum.Club = analysis.Club(club)
		sum.Status = Status(status)
		sum.Analyzed = analyzed != 0
		sum.Favorite = favorite != 0
		if created, err := parseTimeString(createdRaw); err == nil {
			sum.CreatedAt = created
		}
		sum.ClubSpeedMph = floatPtr(estSpeed)
		if v := floatPtr(lmSpeed); v != nil {
			sum.ClubSpeedMph = v
		}
		sum.CarryYards = floatPtr(estCarry)
		if v := floatPtr(lmCarry); v != nil {
			sum.CarryYards = v
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("iterate summaries", err)
	}
	return summaries, nil
}

// Transition moves a swing to the next pipeline state. The update only
// applies when the current state is a legal predecessor, so concurrent or
// stale writers cannot skip states. Analyzed is set exactly when entering
// StatusAnalyzed; errorMessage is recorded on StatusUnanalyzed and cleared
// otherwise.
func (s *Store) Transition(ctx context.Context, id string, to Status, errorMessage string) (*Swing, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	from := transitions[to]
	if len(from) == 0 {
		return nil, fmt.Errorf("%w: no path into %s", ErrInvalidTransition, to)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(from)), ",")
	args := []any{to, boolInt(to == StatusAnalyzed), nullableString(errorMessage), formatTime(time.Now()), id}
	for _, status := range from {
		args = append(args, status)
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE swings SET status = ?, analyzed = ?, error_message = ?, updated_at = ?
         WHERE id = ? AND status IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, persistenceErr("transition", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		current, getErr := s.Get(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, to)
	}
	return s.Get(ctx, id)
}

// SetVideo records a new media path, e.g. after transcoding.
func (s *Store) SetVideo(ctx context.Context, id, videoPath string, transcoded bool) error {
	unlock := s.locks.lock(id)
	defer unlock()

	res, err := s.execWithRetry(
		ctx,
		"UPDATE swings SET video_path = ?, transcoded = ?, updated_at = ? WHERE id = ?",
		videoPath, boolInt(transcoded), formatTime(time.Now()), id,
	)
	if err != nil {
		return persistenceErr("set video", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(id)
	}
	return nil
}

// ToggleFavorite flips the favorite flag and returns the new value.
func (s *Store) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	res, err := s.execWithRetry(
		ctx,
		"UPDATE swings SET favorite = 1 - favorite, updated_at = ? WHERE id = ?",
		formatTime(time.Now()), id,
	)
	if err != nil {
		return false, persistenceErr("toggle favorite", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, notFound(id)
	}
	swing, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return swing.Favorite, nil
}

// Delete removes a swing and, through cascades, its analysis, roadmaps, and
// launch monitor reading. The deleted swing is returned so the caller can
// remove its media file.
func (s *Store) Delete(ctx context.Context, id string) (*Swing, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	swing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{
			"DELETE FROM coaching_roadmaps WHERE swing_id = ?",
			"DELETE FROM analysis_results WHERE swing_id = ?",
			"DELETE FROM launch_monitor_readings WHERE swing_id = ?",
			"DELETE FROM swings WHERE id = ?",
		} {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, persistenceErr("delete swing", err)
	}
	return swing, nil
}

// ResetForReprocess clears derived analysis state and returns the swing to
// StatusCreated. The launch monitor reading is user-supplied and kept.
func (s *Store) ResetForReprocess(ctx context.Context, id string) (*Swing, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM coaching_roadmaps WHERE swing_id = ?", id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM analysis_results WHERE swing_id = ?", id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"UPDATE swings SET status = ?, analyzed = 0, error_message = NULL, updated_at = ? WHERE id = ?",
			StatusCreated, formatTime(time.Now()), id,
		)
		return err
	}); err != nil {
		return nil, persistenceErr("reset swing", err)
	}
	return s.Get(ctx, id)
}

// ListByStatus returns swings in any of the given states, oldest first.
func (s *Store) ListByStatus(ctx context.Context, statuses ...Status) ([]*Swing, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",")
	args := make([]any, 0, len(statuses))
	for _, status := range statuses {
		args = append(args, status)
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+swingColumns+" FROM swings WHERE status IN ("+placeholders+") ORDER BY created_at", args...)
	if err != nil {
		return nil, persistenceErr("list by status", err)
	}
	defer rows.Close()

	var out []*Swing
	for rows.Next() {
		swing, err := scanSwing(rows)
		if err != nil {
			return nil, persistenceErr("scan swing", err)
		}
		out = append(out, swing)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("iterate swings", err)
	}
	return out, nil
}

// Stats returns swing counts keyed by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM swings GROUP BY status`)
	if err != nil {
		return nil, persistenceErr("stats", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, persistenceErr("scan stats", err)
		}
		stats[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("iterate stats", err)
	}
	return stats, nil
}
