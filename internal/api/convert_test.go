package api

import (
	"testing"
	"time"

	"swingcoach/internal/analysis"
	"swingcoach/internal/swings"
)

func TestFromDetailAppliesLaunchMonitorOverride(t *testing.T) {
	created := time.Date(2026, 3, 4, 5, 6, 7, 0, time.FixedZone("PST", -8*3600))
	detail := &swings.Detail{
		Swing: &swings.Swing{ID: "s1", PlayerID: "p1", Club: analysis.ClubDriver, Status: swings.StatusAnalyzed, Analyzed: true, CreatedAt: created},
		Analysis: &analysis.Result{
			ClubSpeedMph: 98,
			CarryYards:   230,
			ClubPath:     analysis.PathSquare,
			Source:       analysis.SourceRemote,
			Top:          analysis.AngleSet{ShoulderTurn: 195},
		},
		Roadmaps: []analysis.Roadmap{
			{Goal: analysis.GoalPlayable, Narrative: "playable"},
			{Goal: analysis.GoalIdeal, Narrative: "ideal", Drills: []string{"drill"}},
		},
		LaunchMonitor: &analysis.LaunchMonitorReading{CarryYards: ptr(241.0)},
	}

	got := FromDetail(detail)
	if got.ClubSpeedMph == nil || *got.ClubSpeedMph != 98 {
		t.Fatalf("expected estimated club speed, got %v", got.ClubSpeedMph)
	}
	if got.CarryYards == nil || *got.CarryYards != 241 {
		t.Fatalf("expected measured carry to win, got %v", got.CarryYards)
	}
	if got.Swing.CreatedAt != "2026-03-04T13:06:07.000Z" {
		t.Fatalf("expected UTC timestamp, got %q", got.Swing.CreatedAt)
	}
	if got.Swing.ClubLabel == "" {
		t.Fatal("expected club label")
	}
	if len(got.Roadmaps) != 2 || got.Roadmaps[0].Goal != "Ideal" || got.Roadmaps[1].Goal != "Playable" {
		t.Fatalf("expected ideal roadmap first, got %+v", got.Roadmaps)
	}
	if got.Analysis == nil || len(got.Analysis.OutOfRange) != 1 || got.Analysis.OutOfRange[0] != "top.shoulderTurn=195.0" {
		t.Fatalf("expected out of range angle to be reported, got %+v", got.Analysis)
	}
	if got.LaunchMonitor == nil || got.LaunchMonitor.BallSpeedMph != nil {
		t.Fatalf("unexpected launch monitor %+v", got.LaunchMonitor)
	}
}

func TestFromDetailWithoutAnalysis(t *testing.T) {
	got := FromDetail(&swings.Detail{Swing: &swings.Swing{ID: "s2", Club: analysis.ClubWedge}})
	if got.Analysis != nil || got.LaunchMonitor != nil {
		t.Fatalf("expected nil dependents, got %+v", got)
	}
	if got.Roadmaps == nil {
		t.Fatal("roadmaps must encode as an empty array")
	}
	if got.ClubSpeedMph != nil || got.CarryYards != nil {
		t.Fatal("expected no headline numbers")
	}

	empty := FromDetail(nil)
	if empty.Roadmaps == nil {
		t.Fatal("nil detail must still carry an empty roadmap list")
	}
}

func TestFromSummariesNeverNil(t *testing.T) {
	if got := FromSummaries(nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty slice, got %#v", got)
	}
	got := FromSummaries([]swings.Summary{{ID: "a", Club: analysis.ClubMidIron, Status: swings.StatusCreated}})
	if len(got) != 1 || got[0].Club != "mid_iron" || got[0].Status != "created" || got[0].CreatedAt != "" {
		t.Fatalf("unexpected summaries %+v", got)
	}
}
