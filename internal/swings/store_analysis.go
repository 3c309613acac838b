package swings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"swingcoach/internal/analysis"
	"swingcoach/internal/services"
)

// SaveAnalysis stores the analysis for a swing, replacing any previous one.
func (s *Store) SaveAnalysis(ctx context.Context, swingID string, result analysis.Result) error {
	if err := analysis.Validate(result); err != nil {
		return services.Wrap(services.ErrValidation, "store", "save analysis", "", err)
	}
	unlock := s.locks.lock(swingID)
	defer unlock()

	angles := make([]string, 0, 4)
	for _, set := range []analysis.AngleSet{result.Address, result.Top, result.Impact, result.Finish} {
		text, err := marshalText(set)
		if err != nil {
			return persistenceErr("encode angles", err)
		}
		angles = append(angles, text)
	}
	createdAt := result.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	var duration any
	if result.VideoDurationMs > 0 {
		duration = result.VideoDurationMs
	}

	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO analysis_results (
            swing_id, address_ms, top_ms, impact_ms, finish_ms,
            address_angles, top_angles, impact_angles, finish_angles,
            club_speed_mph, club_path, carry_yards, source, video_duration_ms, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(swing_id) DO UPDATE SET
            address_ms = excluded.address_ms,
            top_ms = excluded.top_ms,
            impact_ms = excluded.impact_ms,
            finish_ms = excluded.finish_ms,
            address_angles = excluded.address_angles,
            top_angles = excluded.top_angles,
            impact_angles = excluded.impact_angles,
            finish_angles = excluded.finish_angles,
            club_speed_mph = excluded.club_speed_mph,
            club_path = excluded.club_path,
            carry_yards = excluded.carry_yards,
            source = excluded.source,
            video_duration_ms = excluded.video_duration_ms,
            created_at = excluded.created_at`,
		swingID,
		result.Timestamps.AddressMs,
		result.Timestamps.TopMs,
		result.Timestamps.ImpactMs,
		result.Timestamps.FinishMs,
		angles[0], angles[1], angles[2], angles[3],
		result.ClubSpeedMph,
		string(result.ClubPath),
		result.CarryYards,
		string(result.Source),
		duration,
		formatTime(createdAt),
	); err != nil {
		return persistenceErr("save analysis", err)
	}
	return nil
}

// Analysis returns the stored analysis for a swing, or nil when none exists.
func (s *Store) Analysis(ctx context.Context, swingID string) (*analysis.Result, error) {
	row := s.db.QueryRowContext(ctx, `SELECT address_ms, top_ms, impact_ms, finish_ms,
            address_angles, top_angles, impact_angles, finish_angles,
            club_speed_mph, club_path, carry_yards, source, video_duration_ms, created_at
        FROM analysis_results WHERE swing_id = ?`, swingID)

	var (
		result     analysis.Result
		angleText  [4]string
		clubPath   string
		source     string
		duration   sql.NullInt64
		createdRaw string
	)
	err := row.Scan(
		&result.Timestamps.AddressMs,
		&result.Timestamps.TopMs,
		&result.Timestamps.ImpactMs,
		&result.Timestamps.FinishMs,
		&angleText[0], &angleText[1], &angleText[2], &angleText[3],
		&result.ClubSpeedMph,
		&clubPath,
		&result.CarryYards,
		&source,
		&duration,
		&createdRaw,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistenceErr("get analysis", err)
	}
	for i, dest := range []*analysis.AngleSet{&result.Address, &result.Top, &result.Impact, &result.Finish} {
		if err := unmarshalText(angleText[i], dest); err != nil {
			return nil, persistenceErr("decode angles", fmt.Errorf("%s: %w", analysis.Checkpoints[i], err))
		}
	}
	result.SwingID = swingID
	result.ClubPath = analysis.ClubPath(clubPath)
	result.Source = analysis.Source(source)
	result.VideoDurationMs = duration.Int64
	if created, err := parseTimeString(createdRaw); err == nil {
		result.CreatedAt = created
	}
	return &result, nil
}

// ReplaceRoadmaps atomically swaps the coaching roadmaps for a swing. Passing
// an empty slice clears them.
func (s *Store) ReplaceRoadmaps(ctx context.Context, swingID string, roadmaps []analysis.Roadmap) error {
	unlock := s.locks.lock(swingID)
	defer unlock()

	encoded := make([]string, len(roadmaps))
	for i, roadmap := range roadmaps {
		text, err := marshalText(roadmap.Drills)
		if err != nil {
			return persistenceErr("encode drills", err)
		}
		encoded[i] = text
	}
	now := formatTime(time.Now())
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM coaching_roadmaps WHERE swing_id = ?", swingID); err != nil {
			return err
		}
		for i, roadmap := range roadmaps {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO coaching_roadmaps (swing_id, goal, narrative, drills, created_at) VALUES (?, ?, ?, ?, ?)",
				swingID, string(roadmap.Goal), roadmap.Narrative, encoded[i], now,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return persistenceErr("replace roadmaps", err)
	}
	return nil
}

// Roadmaps returns the coaching roadmaps for a swing, Ideal first.
func (s *Store) Roadmaps(ctx context.Context, swingID string) ([]analysis.Roadmap, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT goal, narrative, drills, created_at FROM coaching_roadmaps
        WHERE swing_id = ? ORDER BY CASE lower(goal) WHEN 'ideal' THEN 0 ELSE 1 END`, swingID)
	if err != nil {
		return nil, persistenceErr("list roadmaps", err)
	}
	defer rows.Close()

	var out []analysis.Roadmap
	for rows.Next() {
		var (
			roadmap    analysis.Roadmap
			goal       string
			drillsText string
			createdRaw string
		)
		if err := rows.Scan(&goal, &roadmap.Narrative, &drillsText, &createdRaw); err != nil {
			return nil, persistenceErr("scan roadmap", err)
		}
		if err := unmarshalText(drillsText, &roadmap.Drills); err != nil {
			return nil, persistenceErr("decode drills", err)
		}
		roadmap.SwingID = swingID
		roadmap.Goal = analysis.Goal(goal)
		if parsed, ok := analysis.ParseGoal(goal); ok {
			roadmap.Goal = parsed
		}
		if created, err := parseTimeString(createdRaw); err == nil {
			roadmap.CreatedAt = created
		}
		out = append(out, roadmap)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("iterate roadmaps", err)
	}
	return out, nil
}

// UpsertLaunchMonitor stores the launch monitor reading for a swing,
// replacing any previous reading.
func (s *Store) UpsertLaunchMonitor(ctx context.Context, swingID string, reading analysis.LaunchMonitorReading) error {
	unlock := s.locks.lock(swingID)
	defer unlock()

	if _, err := s.Get(ctx, swingID); err != nil {
		return err
	}
	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO launch_monitor_readings (
            swing_id, ball_speed_mph, club_speed_mph, launch_angle_deg, spin_rate_rpm, carry_yards, total_yards, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(swing_id) DO UPDATE SET
            ball_speed_mph = excluded.ball_speed_mph,
            club_speed_mph = excluded.club_speed_mph,
            launch_angle_deg = excluded.launch_angle_deg,
            spin_rate_rpm = excluded.spin_rate_rpm,
            carry_yards = excluded.carry_yards,
            total_yards = excluded.total_yards,
            created_at = excluded.created_at`,
		swingID,
		nullableFloat(reading.BallSpeedMph),
		nullableFloat(reading.ClubSpeedMph),
		nullableFloat(reading.LaunchAngleDeg),
		nullableFloat(reading.SpinRateRPM),
		nullableFloat(reading.CarryYards),
		nullableFloat(reading.TotalYards),
		formatTime(time.Now()),
	); err != nil {
		return persistenceErr("save launch monitor", err)
	}
	return nil
}

// LaunchMonitor returns the reading for a swing, or nil when none exists.
func (s *Store) LaunchMonitor(ctx context.Context, swingID string) (*analysis.LaunchMonitorReading, error) {
	row := s.db.QueryRowContext(ctx, `SELECT ball_speed_mph, club_speed_mph, launch_angle_deg, spin_rate_rpm,
            carry_yards, total_yards, created_at
        FROM launch_monitor_readings WHERE swing_id = ?`, swingID)
	var (
		ball, club, launch, spin, carry, total sql.NullFloat64
		createdRaw                             string
	)
	err := row.Scan(&ball, &club, &launch, &spin, &carry, &total, &createdRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistenceErr("get launch monitor", err)
	}
	reading := &analysis.LaunchMonitorReading{
		SwingID:        swingID,
		BallSpeedMph:   floatPtr(ball),
		ClubSpeedMph:   floatPtr(club),
		LaunchAngleDeg: floatPtr(launch),
		SpinRateRPM:    floatPtr(spin),
		CarryYards:     floatPtr(carry),
		TotalYards:     floatPtr(total),
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		reading.CreatedAt = created
	}
	return reading, nil
}

// Detail loads a swing with all dependent records.
func (s *Store) Detail(ctx context.Context, id string) (*Detail, error) {
	swing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	result, err := s.Analysis(ctx, id)
	if err != nil {
		return nil, err
	}
	roadmaps, err := s.Roadmaps(ctx, id)
	if err != nil {
		return nil, err
	}
	reading, err := s.LaunchMonitor(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Detail{Swing: swing, Analysis: result, Roadmaps: roadmaps, LaunchMonitor: reading}, nil
}
