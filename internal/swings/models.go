package swings

import (
	"time"

	"swingcoach/internal/analysis"
)

// Status is the pipeline state of a swing.
type Status string

const (
	StatusCreated     Status = "created"
	StatusTranscoding Status = "transcoding"
	StatusAnalyzing   Status = "analyzing"
	StatusCoaching    Status = "coaching"
	StatusAnalyzed    Status = "analyzed"
	StatusUnanalyzed  Status = "unanalyzed"
)

// Terminal reports whether no further automatic transitions follow.
func (s Status) Terminal() bool {
	return s == StatusAnalyzed || s == StatusUnanalyzed
}

// transitions lists the legal predecessors of each state.
var transitions = map[Status][]Status{
	StatusTranscoding: {StatusCreated},
	StatusAnalyzing:   {StatusTranscoding},
	StatusCoaching:    {StatusAnalyzing},
	StatusAnalyzed:    {StatusCoaching},
	StatusUnanalyzed:  {StatusAnalyzing, StatusCoaching},
}

// CanTransition reports whether from -> to is a legal pipeline step.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[to] {
		if allowed == from {
			return true
		}
	}
	return false
}

// Swing is one uploaded swing clip.
type Swing struct {
	ID           string        `json:"id"`
	PlayerID     string        `json:"playerId"`
	Club         analysis.Club `json:"club"`
	VideoPath    string        `json:"videoPath"`
	Status       Status        `json:"status"`
	Analyzed     bool          `json:"analyzed"`
	Favorite     bool          `json:"favorite"`
	Transcoded   bool          `json:"transcoded"`
	ErrorMessage string        `json:"errorMessage,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// NewSwing carries the fields supplied at upload time.
type NewSwing struct {
	ID        string
	PlayerID  string
	Club      string
	VideoPath string
}

// Summary is the list-view projection of a swing. Speed and carry come from
// the launch monitor when a reading exists and from the estimates otherwise.
type Summary struct {
	ID           string        `json:"id"`
	PlayerID     string        `json:"playerId"`
	Club         analysis.Club `json:"club"`
	Status       Status        `json:"status"`
	Analyzed     bool          `json:"analyzed"`
	Favorite     bool          `json:"favorite"`
	ClubSpeedMph *float64      `json:"clubSpeedMph"`
	CarryYards   *float64      `json:"carryYards"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// Detail is a swing with every dependent record.
type Detail struct {
	Swing         *Swing                         `json:"swing"`
	Analysis      *analysis.Result               `json:"analysis"`
	Roadmaps      []analysis.Roadmap             `json:"roadmaps"`
	LaunchMonitor *analysis.LaunchMonitorReading `json:"launchMonitor"`
}

// ListOptions filters List results.
type ListOptions struct {
	PlayerID      string
	FavoritesOnly bool
	Limit         int
}
