package swings

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"swingcoach/internal/analysis"
)

const swingColumns = "id, player_id, club, video_path, status, analyzed, favorite, transcoded, error_message, created_at, updated_at"

func scanSwing(scanner interface{ Scan(dest ...any) error }) (*Swing, error) {
	var (
		swing        Swing
		club         string
		status       string
		analyzed     int64
		favorite     int64
		transcoded   int64
		errorMessage sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(
		&swing.ID,
		&swing.PlayerID,
		&club,
		&swing.VideoPath,
		&status,
		&analyzed,
		&favorite,
		&transcoded,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	swing.Club = analysis.Club(club)
	swing.Status = Status(status)
	swing.Analyzed = analyzed != 0
	swing.Favorite = favorite != 0
	swing.Transcoded = transcoded != 0
	swing.ErrorMessage = errorMessage.String
	if created, err := parseTimeString(createdRaw); err == nil {
		swing.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		swing.UpdatedAt = updated
	}
	return &swing, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func floatPtr(value sql.NullFloat64) *float64 {
	if !value.Valid {
		return nil
	}
	v := value.Float64
	return &v
}

func boolInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	return time.Parse(time.RFC3339Nano, value)
}

func marshalText(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalText(raw string, dest any) error {
	if raw == "" {
		return fmt.Errorf("empty json column")
	}
	return json.Unmarshal([]byte(raw), dest)
}
