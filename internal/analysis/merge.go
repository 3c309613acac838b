package analysis

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"swingcoach/internal/services"
)

// Nominal angle bounds. Values outside are flagged but still stored.
const (
	MinAngleDegrees = 0.0
	MaxAngleDegrees = 180.0
)

// Merge combines measurements and estimates into a validated Result. Any
// missing checkpoint, angle set, or estimate yields ErrIncompleteResult and no
// partial Result.
func Merge(m Measurements, e Estimates) (Result, error) {
	var missing []string
	ts := m.Timestamps
	for name, v := range map[string]*int64{"address": ts.Address, "top": ts.Top, "impact": ts.Impact, "finish": ts.Finish} {
		if v == nil {
			missing = append(missing, "timestamp "+name)
		}
	}
	for name, v := range map[string]*AngleSet{"address": m.AddressAngles, "top": m.TopAngles, "impact": m.ImpactAngles, "finish": m.FinishAngles} {
		if v == nil {
			missing = append(missing, name+" angles")
		}
	}
	if e.ClubSpeedMph == nil {
		missing = append(missing, "club speed")
	}
	if e.CarryYards == nil {
		missing = append(missing, "carry")
	}
	if strings.TrimSpace(e.ClubPath) == "" {
		missing = append(missing, "club path")
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return Result{}, services.Wrap(services.ErrIncompleteResult, "merge", "completeness", "missing "+strings.Join(missing, ", "), nil)
	}

	path, err := ParseClubPath(e.ClubPath)
	if err != nil {
		return Result{}, services.Wrap(services.ErrIncompleteResult, "merge", "club path", "", err)
	}

	result := Result{
		Timestamps: Timestamps{
			AddressMs: *ts.Address,
			TopMs:     *ts.Top,
			ImpactMs:  *ts.Impact,
			FinishMs:  *ts.Finish,
		},
		Address:      *m.AddressAngles,
		Top:          *m.TopAngles,
		Impact:       *m.ImpactAngles,
		Finish:       *m.FinishAngles,
		ClubSpeedMph: *e.ClubSpeedMph,
		ClubPath:     path,
		CarryYards:   *e.CarryYards,
		Source:       m.Source,
		CreatedAt:    time.Now().UTC(),
	}
	if m.Metadata != nil && m.Metadata.TotalDurationMs > 0 {
		result.VideoDurationMs = m.Metadata.TotalDurationMs
	}
	if err := Validate(result); err != nil {
		return Result{}, err
	}
	return result, nil
}

// Validate enforces the invariants of a stored Result: non-negative,
// non-decreasing checkpoint timestamps, finite angles, finite non-negative
// estimates, and a canonical club path.
func Validate(r Result) error {
	prev := int64(-1)
	for i, ms := range r.Timestamps.ordered() {
		if ms < 0 {
			return invalid("timestamp %s is negative (%d ms)", Checkpoints[i], ms)
		}
		if ms < prev {
			return invalid("timestamp %s (%d ms) precedes %s (%d ms)", Checkpoints[i], ms, Checkpoints[i-1], prev)
		}
		prev = ms
	}
	for _, cp := range Checkpoints {
		for name, v := range r.AngleSets()[cp].values() {
			if !finite(v) {
				return invalid("%s %s is not a finite number", cp, name)
			}
		}
	}
	if !finite(r.ClubSpeedMph) || r.ClubSpeedMph < 0 {
		return invalid("club speed %v out of range", r.ClubSpeedMph)
	}
	if !finite(r.CarryYards) || r.CarryYards < 0 {
		return invalid("carry %v out of range", r.CarryYards)
	}
	if !r.ClubPath.Valid() {
		return invalid("club path %q not recognized", r.ClubPath)
	}
	return nil
}

// OutOfRangeAngles lists angles outside the nominal [0,180] range as
// "checkpoint.angle=value" strings.
func OutOfRangeAngles(r Result) []string {
	var out []string
	for _, cp := range Checkpoints {
		for name, v := range r.AngleSets()[cp].values() {
			if v < MinAngleDegrees || v > MaxAngleDegrees {
				out = append(out, fmt.Sprintf("%s.%s=%.1f", cp, name, v))
			}
		}
	}
	slices.Sort(out)
	return out
}

func invalid(format string, args ...any) error {
	return services.Wrap(services.ErrIncompleteResult, "merge", "validate", fmt.Sprintf(format, args...), nil)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
