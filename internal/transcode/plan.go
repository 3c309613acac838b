package transcode

import (
	"fmt"
	"strconv"
)

// Mode names the encode strategy picked for a clip.
type Mode string

const (
	// ModeQuality re-encodes at a fixed CRF; used for clips already within budget.
	ModeQuality Mode = "quality"
	// ModeBitrate targets a bitrate derived from the size budget.
	ModeBitrate Mode = "bitrate"
)

// Plan captures every ffmpeg decision for one clip.
type Plan struct {
	Input           string
	Output          string
	Mode            Mode
	VideoKbps       int
	AudioKbps       int
	CRF             int
	Preset          string
	MaxHeight       int
	DurationSeconds float64
	InputBytes      int64
	IncludeAudio    bool
}

// NewPlan chooses the encode mode for an input of the given size and duration.
func NewPlan(settings Settings, input, output string, inputBytes int64, durationSeconds float64, hasAudio bool) Plan {
	plan := Plan{
		Input:           input,
		Output:          output,
		AudioKbps:       settings.AudioBitrateKbps,
		CRF:             settings.CRF,
		Preset:          settings.Preset,
		MaxHeight:       settings.MaxHeight,
		DurationSeconds: EffectiveDuration(durationSeconds),
		InputBytes:      inputBytes,
		IncludeAudio:    hasAudio,
		Mode:            ModeQuality,
	}
	if inputBytes > BudgetBytes(settings.MaxSizeMB) {
		plan.Mode = ModeBitrate
		plan.VideoKbps = TargetVideoKbps(settings.MaxSizeMB, durationSeconds, settings.AudioBitrateKbps, settings.MinVideoBitrateKbps)
	}
	return plan
}

// scaleFilter caps the height without upscaling; -2 keeps the width even and
// preserves the aspect ratio.
func scaleFilter(maxHeight int) string {
	return fmt.Sprintf("scale=-2:'min(%d,ih)'", maxHeight)
}

// Args renders the ffmpeg argument list for the plan.
func (p Plan) Args() []string {
	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-loglevel", "error",
		"-i", p.Input,
		"-map", "0:v:0",
	}
	if p.IncludeAudio {
		args = append(args, "-map", "0:a:0?")
	}
	args = append(args,
		"-vf", scaleFilter(p.MaxHeight),
		"-c:v", "libx264",
		"-preset", p.Preset,
		"-pix_fmt", "yuv420p",
	)
	switch p.Mode {
	case ModeBitrate:
		rate := strconv.Itoa(p.VideoKbps) + "k"
		args = append(args,
			"-b:v", rate,
			"-maxrate", rate,
			"-bufsize", strconv.Itoa(p.VideoKbps*2)+"k",
		)
	default:
		args = append(args, "-crf", strconv.Itoa(p.CRF))
	}
	if p.IncludeAudio {
		args = append(args, "-c:a", "aac", "-b:a", strconv.Itoa(p.AudioKbps)+"k")
	} else {
		args = append(args, "-an")
	}
	args = append(args,
		"-movflags", "+faststart",
		"-f", "mp4",
		p.Output,
	)
	return args
}
