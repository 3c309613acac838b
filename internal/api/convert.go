package api

import (
	"time"

	"swingcoach/internal/analysis"
	"swingcoach/internal/swings"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// FromSummary converts a store summary into its DTO.
func FromSummary(s swings.Summary) SwingSummary {
	return SwingSummary{
		ID:           s.ID,
		PlayerID:     s.PlayerID,
		Club:         string(s.Club),
		ClubLabel:    s.Club.Label(),
		Status:       string(s.Status),
		Analyzed:     s.Analyzed,
		Favorite:     s.Favorite,
		ClubSpeedMph: s.ClubSpeedMph,
		CarryYards:   s.CarryYards,
		CreatedAt:    formatTime(s.CreatedAt),
	}
}

// FromSummaries converts a slice of summaries, never returning nil.
func FromSummaries(items []swings.Summary) []SwingSummary {
	out := make([]SwingSummary, 0, len(items))
	for _, item := range items {
		out = append(out, FromSummary(item))
	}
	return out
}

// FromSwing converts a swing record into its DTO.
func FromSwing(s *swings.Swing) Swing {
	if s == nil {
		return Swing{}
	}
	return Swing{
		ID:           s.ID,
		PlayerID:     s.PlayerID,
		Club:         string(s.Club),
		ClubLabel:    s.Club.Label(),
		Status:       string(s.Status),
		Analyzed:     s.Analyzed,
		Favorite:     s.Favorite,
		Transcoded:   s.Transcoded,
		VideoPath:    s.VideoPath,
		ErrorMessage: s.ErrorMessage,
		CreatedAt:    formatTime(s.CreatedAt),
		UpdatedAt:    formatTime(s.UpdatedAt),
	}
}

// FromResult converts a stored analysis. A nil result yields nil.
func FromResult(r *analysis.Result) *Analysis {
	if r == nil {
		return nil
	}
	return &Analysis{
		TimestampsMs:    r.Timestamps,
		AddressAngles:   r.Address,
		TopAngles:       r.Top,
		ImpactAngles:    r.Impact,
		FinishAngles:    r.Finish,
		ClubSpeedMph:    r.ClubSpeedMph,
		ClubPath:        string(r.ClubPath),
		CarryYards:      r.CarryYards,
		Source:          string(r.Source),
		VideoDurationMs: r.VideoDurationMs,
		OutOfRange:      analysis.OutOfRangeAngles(*r),
		CreatedAt:       formatTime(r.CreatedAt),
	}
}

// FromRoadmaps converts roadmaps, Ideal first, never returning nil.
func FromRoadmaps(roadmaps []analysis.Roadmap) []Roadmap {
	out := make([]Roadmap, 0, len(roadmaps))
	for _, goal := range []analysis.Goal{analysis.GoalIdeal, analysis.GoalPlayable} {
		for _, r := range roadmaps {
			if r.Goal != goal {
				continue
			}
			out = append(out, Roadmap{Goal: string(r.Goal), Narrative: r.Narrative, Drills: append([]string(nil), r.Drills...)})
		}
	}
	return out
}

// FromReading converts a launch monitor reading. A nil reading yields nil.
func FromReading(r *analysis.LaunchMonitorReading) *LaunchMonitor {
	if r == nil {
		return nil
	}
	return &LaunchMonitor{
		BallSpeedMph:   r.BallSpeedMph,
		ClubSpeedMph:   r.ClubSpeedMph,
		LaunchAngleDeg: r.LaunchAngleDeg,
		SpinRateRPM:    r.SpinRateRPM,
		CarryYards:     r.CarryYards,
		TotalYards:     r.TotalYards,
		CreatedAt:      formatTime(r.CreatedAt),
	}
}

// FromDetail converts a swing detail. Headline speed and carry follow the
// same launch monitor override as the list view.
func FromDetail(d *swings.Detail) SwingDetail {
	if d == nil {
		return SwingDetail{Roadmaps: []Roadmap{}}
	}
	speed, carry := analysis.Headline(d.Analysis, d.LaunchMonitor)
	return SwingDetail{
		Swing:         FromSwing(d.Swing),
		ClubSpeedMph:  speed,
		CarryYards:    carry,
		Analysis:      FromResult(d.Analysis),
		Roadmaps:      FromRoadmaps(d.Roadmaps),
		LaunchMonitor: FromReading(d.LaunchMonitor),
	}
}
