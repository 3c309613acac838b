package api

import "swingcoach/internal/analysis"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// SwingSummary is the list-view representation of a swing.
type SwingSummary struct {
	ID           string   `json:"id"`
	PlayerID     string   `json:"playerId"`
	Club         string   `json:"club"`
	ClubLabel    string   `json:"clubLabel"`
	Status       string   `json:"status"`
	Analyzed     bool     `json:"analyzed"`
	Favorite     bool     `json:"favorite"`
	ClubSpeedMph *float64 `json:"clubSpeedMph"`
	CarryYards   *float64 `json:"carryYards"`
	CreatedAt    string   `json:"createdAt,omitempty"`
}

// Swing is the full swing record.
type Swing struct {
	ID           string `json:"id"`
	PlayerID     string `json:"playerId"`
	Club         string `json:"club"`
	ClubLabel    string `json:"clubLabel"`
	Status       string `json:"status"`
	Analyzed     bool   `json:"analyzed"`
	Favorite     bool   `json:"favorite"`
	Transcoded   bool   `json:"transcoded"`
	VideoPath    string `json:"videoPath"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
}

// Analysis is the stored analysis of a swing.
type Analysis struct {
	TimestampsMs    analysis.Timestamps `json:"timestampsMs"`
	AddressAngles   analysis.AngleSet   `json:"addressAngles"`
	TopAngles       analysis.AngleSet   `json:"topAngles"`
	ImpactAngles    analysis.AngleSet   `json:"impactAngles"`
	FinishAngles    analysis.AngleSet   `json:"finishAngles"`
	ClubSpeedMph    float64             `json:"clubSpeedMph"`
	ClubPath        string              `json:"clubPath"`
	CarryYards      float64             `json:"carryYards"`
	Source          string              `json:"source"`
	VideoDurationMs int64               `json:"videoDurationMs,omitempty"`
	OutOfRange      []string            `json:"outOfRange,omitempty"`
	CreatedAt       string              `json:"createdAt,omitempty"`
}

// Roadmap is one coaching plan.
type Roadmap struct {
	Goal      string   `json:"goal"`
	Narrative string   `json:"narrative"`
	Drills    []string `json:"drills"`
}

// LaunchMonitor is a launch monitor reading. Nil fields were not legible.
type LaunchMonitor struct {
	BallSpeedMph   *float64 `json:"ballSpeedMph"`
	ClubSpeedMph   *float64 `json:"clubSpeedMph"`
	LaunchAngleDeg *float64 `json:"launchAngleDeg"`
	SpinRateRPM    *float64 `json:"spinRateRpm"`
	CarryYards     *float64 `json:"carryYards"`
	TotalYards     *float64 `json:"totalYards"`
	CreatedAt      string   `json:"createdAt,omitempty"`
}

// SwingDetail aggregates a swing with its dependent records.
type SwingDetail struct {
	Swing         Swing          `json:"swing"`
	ClubSpeedMph  *float64       `json:"clubSpeedMph"`
	CarryYards    *float64       `json:"carryYards"`
	Analysis      *Analysis      `json:"analysis"`
	Roadmaps      []Roadmap      `json:"roadmaps"`
	LaunchMonitor *LaunchMonitor `json:"launchMonitor"`
}

// UploadResponse acknowledges an accepted upload.
type UploadResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// SwingListResponse wraps a collection of swings.
type SwingListResponse struct {
	Swings []SwingSummary `json:"swings"`
}

// FavoriteResponse reports the favorite flag after a toggle.
type FavoriteResponse struct {
	ID       string `json:"id"`
	Favorite bool   `json:"favorite"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// RunnerStatus summarizes pipeline runner load.
type RunnerStatus struct {
	Capacity  int      `json:"capacity"`
	InFlight  []string `json:"inFlight"`
	Stopped   bool     `json:"stopped"`
	LastError string   `json:"lastError,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running       bool               `json:"running"`
	PID           int                `json:"pid"`
	DatabasePath  string             `json:"databasePath"`
	LockFilePath  string             `json:"lockFilePath"`
	AnalysisMode  string             `json:"analysisMode"`
	Model         string             `json:"model"`
	StatusCounts  map[string]int     `json:"statusCounts"`
	Runner        RunnerStatus       `json:"runner"`
	Dependencies  []DependencyStatus `json:"dependencies"`
	MetricsActive bool               `json:"metricsActive"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
