package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"swingcoach/internal/config"
	"swingcoach/internal/fileutil"
	"swingcoach/internal/logging"
	"swingcoach/internal/services"
)

const stageName = "transcoding"

// maxDiagnosticBytes bounds how much ffmpeg stderr is carried in errors.
const maxDiagnosticBytes = 2048

// Settings are the transcoder knobs, copied out of config at construction.
type Settings struct {
	FFmpegBinary        string
	FFprobeBinary       string
	OutputDir           string
	MaxSizeMB           int
	MaxHeight           int
	AudioBitrateKbps    int
	MinVideoBitrateKbps int
	CRF                 int
	Preset              string
	Timeout             time.Duration
}

// SettingsFromConfig extracts transcoder settings from application config.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		FFmpegBinary:        cfg.Media.FFmpegBinary,
		FFprobeBinary:       cfg.Media.FFprobeBinary,
		OutputDir:           cfg.Paths.MediaDir,
		MaxSizeMB:           cfg.Media.MaxSizeMB,
		MaxHeight:           cfg.Media.MaxHeight,
		AudioBitrateKbps:    cfg.Media.AudioBitrateKbps,
		MinVideoBitrateKbps: cfg.Media.MinVideoBitrateKbps,
		CRF:                 cfg.Media.CRF,
		Preset:              cfg.Media.Preset,
		Timeout:             time.Duration(cfg.Media.TimeoutSeconds) * time.Second,
	}
}

// Result describes a finished transcode.
type Result struct {
	Path            string
	Mode            Mode
	VideoKbps       int
	InputBytes      int64
	OutputBytes     int64
	DurationSeconds float64
	Elapsed         time.Duration
}

// Transcoder runs ffprobe and ffmpeg to produce normalized clips.
type Transcoder struct {
	settings Settings
	logger   *slog.Logger
}

// New constructs a Transcoder.
func New(settings Settings, logger *slog.Logger) *Transcoder {
	if settings.FFmpegBinary == "" {
		settings.FFmpegBinary = "ffmpeg"
	}
	if settings.FFprobeBinary == "" {
		settings.FFprobeBinary = "ffprobe"
	}
	return &Transcoder{
		settings: settings,
		logger:   logging.NewComponentLogger(logger, "transcoder"),
	}
}

// Transcode encodes input into a new <uuid>.mp4 in the output directory. The
// input file is left untouched; removing it is the caller's decision.
func (t *Transcoder) Transcode(ctx context.Context, input string) (Result, error) {
	logger := logging.WithContext(ctx, t.logger)
	started := time.Now()

	info, err := os.Stat(input)
	if err != nil {
		return Result{}, services.Wrap(services.ErrTranscode, stageName, "stat input", input, err)
	}

	probe, err := transcodeProbe(ctx, t.settings.FFprobeBinary, input)
	if err != nil {
		return Result{}, services.Wrap(services.ErrTranscode, stageName, "ffprobe", "inspect input", err)
	}
	if _, ok := probe.VideoStream(); !ok {
		return Result{}, services.Wrap(services.ErrTranscode, stageName, "ffprobe", "input has no video stream", nil)
	}
	inputBytes := probe.SizeBytes()
	if inputBytes <= 0 {
		inputBytes = info.Size()
	}

	if err := os.MkdirAll(t.settings.OutputDir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrTranscode, stageName, "prepare output", t.settings.OutputDir, err)
	}
	output := filepath.Join(t.settings.OutputDir, uuid.NewString()+".mp4")
	plan := NewPlan(t.settings, input, output, inputBytes, probe.DurationSeconds(), probe.HasAudio())

	logger.Info(
		"transcode started",
		logging.String("input", input),
		logging.String("mode", string(plan.Mode)),
		logging.Int64("input_bytes", inputBytes),
		logging.Float64("duration_seconds", plan.DurationSeconds),
		logging.Int("video_kbps", plan.VideoKbps),
		logging.Int("source_height", probe.Height()),
	)

	runCtx := ctx
	if t.settings.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, t.settings.Timeout)
		defer cancel()
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, t.settings.FFmpegBinary, plan.Args()...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		_ = fileutil.RemoveIfExists(output)
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", services.ErrTimeout, err)
		}
		return Result{}, services.Wrap(services.ErrTranscode, stageName, "ffmpeg", diagnostic(stderr.Bytes()), err)
	}

	outputBytes, err := fileutil.FileSize(output)
	if err != nil || outputBytes == 0 {
		_ = fileutil.RemoveIfExists(output)
		return Result{}, services.Wrap(services.ErrTranscode, stageName, "verify output", "ffmpeg produced no output", err)
	}

	if plan.Mode == ModeBitrate && outputBytes > BudgetBytes(t.settings.MaxSizeMB) {
		logging.WarnWithContext(logger, "transcoded clip exceeds size budget", "transcode_over_budget",
			logging.Int64("output_bytes", outputBytes),
			logging.Int64("budget_bytes", BudgetBytes(t.settings.MaxSizeMB)),
			logging.String(logging.FieldImpact, "clip is stored slightly larger than configured"),
			logging.String(logging.FieldErrorHint, "lower media.min_video_bitrate_kbps if clips must stay under budget"),
		)
	}

	result := Result{
		Path:            output,
		Mode:            plan.Mode,
		VideoKbps:       plan.VideoKbps,
		InputBytes:      inputBytes,
		OutputBytes:     outputBytes,
		DurationSeconds: plan.DurationSeconds,
		Elapsed:         time.Since(started),
	}
	logger.Info(
		"transcode completed",
		logging.String("output", output),
		logging.Int64("output_bytes", outputBytes),
		logging.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

func diagnostic(stderr []byte) string {
	text := strings.TrimSpace(string(stderr))
	if len(text) > maxDiagnosticBytes {
		text = "..." + text[len(text)-maxDiagnosticBytes:]
	}
	if text == "" {
		return "ffmpeg failed"
	}
	return text
}
