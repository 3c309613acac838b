package transcode

import "math"

const (
	// minNominalDuration replaces unknown or zero durations so the bitrate
	// formula stays finite.
	minNominalDuration = 1.0
	bytesPerMB         = 1024 * 1024
)

// BudgetBytes converts the configured budget in megabytes to bytes.
func BudgetBytes(maxSizeMB int) int64 {
	return int64(maxSizeMB) * bytesPerMB
}

// EffectiveDuration substitutes the nominal duration for unusable probe values.
func EffectiveDuration(seconds float64) float64 {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return minNominalDuration
	}
	return seconds
}

// TargetVideoKbps computes the video bitrate that fits a clip of the given
// duration into the size budget once the audio track is accounted for:
//
//	max(floor, (budgetBits/duration - audioBits) / 1024)
//
// The result is always at least floorKbps, and at least 1.
func TargetVideoKbps(maxSizeMB int, durationSeconds float64, audioKbps, floorKbps int) int {
	duration := EffectiveDuration(durationSeconds)
	budgetBits := float64(maxSizeMB) * bytesPerMB * 8
	audioBits := float64(audioKbps) * 1024
	target := (budgetBits/duration - audioBits) / 1024
	kbps := int(math.Floor(target))
	if kbps < floorKbps {
		kbps = floorKbps
	}
	if kbps < 1 {
		kbps = 1
	}
	return kbps
}
