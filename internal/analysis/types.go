package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Checkpoint names one of the four swing positions.
type Checkpoint string

const (
	CheckpointAddress Checkpoint = "address"
	CheckpointTop     Checkpoint = "top"
	CheckpointImpact  Checkpoint = "impact"
	CheckpointFinish  Checkpoint = "finish"
)

// Checkpoints lists the swing positions in chronological order.
var Checkpoints = []Checkpoint{CheckpointAddress, CheckpointTop, CheckpointImpact, CheckpointFinish}

// AngleSet holds the four joint angles measured at one checkpoint, in degrees.
type AngleSet struct {
	SpineAngle   float64 `json:"spineAngle"`
	ShoulderTurn float64 `json:"shoulderTurn"`
	HipTurn      float64 `json:"hipTurn"`
	LeadArmAngle float64 `json:"leadArmAngle"`
}

// UnmarshalJSON rejects angle sets that omit any of the four angles; a zero
// angle and a missing one are not the same thing.
func (a *AngleSet) UnmarshalJSON(data []byte) error {
	var raw struct {
		SpineAngle   *float64 `json:"spineAngle"`
		ShoulderTurn *float64 `json:"shoulderTurn"`
		HipTurn      *float64 `json:"hipTurn"`
		LeadArmAngle *float64 `json:"leadArmAngle"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var missing []string
	if raw.SpineAngle == nil {
		missing = append(missing, "spineAngle")
	}
	if raw.ShoulderTurn == nil {
		missing = append(missing, "shoulderTurn")
	}
	if raw.HipTurn == nil {
		missing = append(missing, "hipTurn")
	}
	if raw.LeadArmAngle == nil {
		missing = append(missing, "leadArmAngle")
	}
	if len(missing) > 0 {
		return fmt.Errorf("angle set missing %s", strings.Join(missing, ", "))
	}
	*a = AngleSet{
		SpineAngle:   *raw.SpineAngle,
		ShoulderTurn: *raw.ShoulderTurn,
		HipTurn:      *raw.HipTurn,
		LeadArmAngle: *raw.LeadArmAngle,
	}
	return nil
}

func (a AngleSet) values() map[string]float64 {
	return map[string]float64{
		"spineAngle":   a.SpineAngle,
		"shoulderTurn": a.ShoulderTurn,
		"hipTurn":      a.HipTurn,
		"leadArmAngle": a.LeadArmAngle,
	}
}

// CheckpointTimes carries the millisecond offsets reported by a measurement
// source. Nil means the source did not report that checkpoint.
type CheckpointTimes struct {
	Address *int64 `json:"address"`
	Top     *int64 `json:"top"`
	Impact  *int64 `json:"impact"`
	Finish  *int64 `json:"finish"`
}

// VideoMeta describes the clip as seen by the measurement source.
type VideoMeta struct {
	FPS             float64 `json:"fps"`
	TotalFrames     int64   `json:"totalFrames"`
	TotalDurationMs int64   `json:"totalDurationMs"`
}

// Measurements is the raw output of a measurement stage.
type Measurements struct {
	Timestamps    CheckpointTimes `json:"timestampsMs"`
	AddressAngles *AngleSet       `json:"addressAngles"`
	TopAngles     *AngleSet       `json:"topAngles"`
	ImpactAngles  *AngleSet       `json:"impactAngles"`
	FinishAngles  *AngleSet       `json:"finishAngles"`
	Metadata      *VideoMeta      `json:"metadata,omitempty"`
	Source        Source          `json:"-"`
}

// Estimates are the inferred performance numbers for a swing.
type Estimates struct {
	ClubSpeedMph *float64 `json:"clubSpeedMph"`
	ClubPath     string   `json:"clubPath"`
	CarryYards   *float64 `json:"carryYards"`
}

// Source records which component produced the measurements.
type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
)

// Timestamps is the validated, fully populated form of CheckpointTimes.
type Timestamps struct {
	AddressMs int64 `json:"address"`
	TopMs     int64 `json:"top"`
	ImpactMs  int64 `json:"impact"`
	FinishMs  int64 `json:"finish"`
}

func (t Timestamps) ordered() []int64 {
	return []int64{t.AddressMs, t.TopMs, t.ImpactMs, t.FinishMs}
}

// Result is a complete, validated analysis of one swing.
type Result struct {
	SwingID         string     `json:"swingId"`
	Timestamps      Timestamps `json:"timestampsMs"`
	Address         AngleSet   `json:"addressAngles"`
	Top             AngleSet   `json:"topAngles"`
	Impact          AngleSet   `json:"impactAngles"`
	Finish          AngleSet   `json:"finishAngles"`
	ClubSpeedMph    float64    `json:"clubSpeedMph"`
	ClubPath        ClubPath   `json:"clubPath"`
	CarryYards      float64    `json:"carryYards"`
	Source          Source     `json:"source"`
	VideoDurationMs int64      `json:"videoDurationMs,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// AngleSets returns the four angle sets keyed by checkpoint.
func (r Result) AngleSets() map[Checkpoint]AngleSet {
	return map[Checkpoint]AngleSet{
		CheckpointAddress: r.Address,
		CheckpointTop:     r.Top,
		CheckpointImpact:  r.Impact,
		CheckpointFinish:  r.Finish,
	}
}

// LaunchMonitorReading holds ball-flight numbers read from a launch monitor
// screenshot. Nil fields were not legible or not present.
type LaunchMonitorReading struct {
	SwingID        string    `json:"swingId,omitempty"`
	BallSpeedMph   *float64  `json:"ballSpeedMph"`
	ClubSpeedMph   *float64  `json:"clubSpeedMph"`
	LaunchAngleDeg *float64  `json:"launchAngleDeg"`
	SpinRateRPM    *float64  `json:"spinRateRpm"`
	CarryYards     *float64  `json:"carryYards"`
	TotalYards     *float64  `json:"totalYards"`
	CreatedAt      time.Time `json:"createdAt,omitempty"`
}

// Empty reports whether no field was read.
func (r LaunchMonitorReading) Empty() bool {
	return r.BallSpeedMph == nil && r.ClubSpeedMph == nil && r.LaunchAngleDeg == nil &&
		r.SpinRateRPM == nil && r.CarryYards == nil && r.TotalYards == nil
}

// Headline returns the club speed and carry to display for a swing. Measured
// launch monitor values win over estimates.
func Headline(result *Result, reading *LaunchMonitorReading) (speedMph, carryYards *float64) {
	if result != nil {
		speed, carry := result.ClubSpeedMph, result.CarryYards
		speedMph, carryYards = &speed, &carry
	}
	if reading != nil {
		if reading.ClubSpeedMph != nil {
			speedMph = reading.ClubSpeedMph
		}
		if reading.CarryYards != nil {
			carryYards = reading.CarryYards
		}
	}
	return speedMph, carryYards
}
