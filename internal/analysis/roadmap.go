package analysis

import (
	"strings"
	"time"
)

// Goal distinguishes the two coaching roadmaps produced for a swing.
type Goal string

const (
	// GoalIdeal is the textbook target position.
	GoalIdeal Goal = "Ideal"
	// GoalPlayable is the achievable target given the player's current swing.
	GoalPlayable Goal = "Playable"
)

// Roadmap is a validated coaching plan for one goal.
type Roadmap struct {
	SwingID   string    `json:"swingId,omitempty"`
	Goal      Goal      `json:"goal"`
	Narrative string    `json:"narrative"`
	Drills    []string  `json:"drills"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// RoadmapDraft is unvalidated coaching output.
type RoadmapDraft struct {
	Goal      string   `json:"goal"`
	Narrative string   `json:"narrative"`
	Drills    []string `json:"drills"`
}

// ParseGoal maps loose labels onto a Goal.
func ParseGoal(value string) (Goal, bool) {
	switch compactKey(value) {
	case "ideal", "textbook", "tour":
		return GoalIdeal, true
	case "playable", "realistic", "achievable":
		return GoalPlayable, true
	}
	return "", false
}

// BuildRoadmaps returns exactly one Ideal and one Playable roadmap, or nil.
// Drafts with an unknown goal, no narrative, or no drills are discarded; a
// duplicate goal makes the whole batch ambiguous and it is discarded too.
func BuildRoadmaps(drafts []RoadmapDraft) []Roadmap {
	byGoal := make(map[Goal]Roadmap, 2)
	for _, draft := range drafts {
		goal, ok := ParseGoal(draft.Goal)
		if !ok {
			continue
		}
		narrative := strings.TrimSpace(draft.Narrative)
		drills := make([]string, 0, len(draft.Drills))
		for _, drill := range draft.Drills {
			if trimmed := strings.TrimSpace(drill); trimmed != "" {
				drills = append(drills, trimmed)
			}
		}
		if narrative == "" || len(drills) == 0 {
			continue
		}
		if _, dup := byGoal[goal]; dup {
			return nil
		}
		byGoal[goal] = Roadmap{Goal: goal, Narrative: narrative, Drills: drills}
	}
	ideal, okIdeal := byGoal[GoalIdeal]
	playable, okPlayable := byGoal[GoalPlayable]
	if !okIdeal || !okPlayable {
		return nil
	}
	return []Roadmap{ideal, playable}
}
