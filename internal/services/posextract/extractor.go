package posextract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"swingcoach/internal/analysis"
	"swingcoach/internal/config"
	"swingcoach/internal/logging"
	"swingcoach/internal/services"
)

const (
	defaultTimeout  = 5 * time.Minute
	killGracePeriod = 5 * time.Second
	diagnosticLimit = 400
	stderrTailLines = 8
	maxStdoutBytes  = 4 << 20
	stageName       = "extract"
	unavailableHint = "install the pose analysis program or set extractor.command to its absolute path"
)

// Settings configures an Extractor.
type Settings struct {
	Command string
	Args    []string
	Timeout time.Duration
}

// SettingsFromConfig derives extractor settings from the loaded configuration.
func SettingsFromConfig(cfg *config.Config) Settings {
	if cfg == nil {
		return Settings{}
	}
	return Settings{
		Command: cfg.Extractor.Command,
		Args:    append([]string(nil), cfg.Extractor.Args...),
		Timeout: time.Duration(cfg.Extractor.TimeoutSeconds) * time.Second,
	}
}

// Extractor invokes the pose program for one clip at a time. It holds no
// per-call state and is safe for concurrent use.
type Extractor struct {
	settings Settings
	logger   *slog.Logger
}

// New constructs an Extractor.
func New(settings Settings, logger *slog.Logger) *Extractor {
	settings.Command = strings.TrimSpace(settings.Command)
	if settings.Timeout <= 0 {
		settings.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Extractor{
		settings: settings,
		logger:   logging.NewComponentLogger(logger, "posextract"),
	}
}

// Command returns the configured program for diagnostics.
func (e *Extractor) Command() string {
	return e.settings.Command
}

type output struct {
	analysis.Measurements
	Error *string `json:"error"`
}

// Extract measures the clip at videoPath. Failures carry
// services.ErrExtractorUnavailable when the program cannot be started and
// services.ErrExtractionFailed otherwise.
func (e *Extractor) Extract(ctx context.Context, videoPath string) (analysis.Measurements, error) {
	var empty analysis.Measurements
	if e.settings.Command == "" {
		return empty, services.Wrap(services.ErrExtractorUnavailable, stageName, "start", "extractor command not configured; "+unavailableHint, nil)
	}
	if script := ScriptArg(e.settings.Args); script != "" {
		if _, err := os.Stat(script); err != nil {
			return empty, services.Wrap(services.ErrExtractorUnavailable, stageName, "start", "script "+script+" not found; set extractor.args to the pose analysis script", err)
		}
	}
	if _, err := os.Stat(videoPath); err != nil {
		return empty, services.Wrap(services.ErrExtractionFailed, stageName, "stat input", videoPath, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, e.settings.Timeout)
	defer cancel()

	args := append(append([]string(nil), e.settings.Args...), videoPath)
	cmd := exec.CommandContext(runCtx, e.settings.Command, args...) //nolint:gosec
	configureProcessGroup(cmd)
	cmd.WaitDelay = killGracePeriod

	logger := logging.WithContext(ctx, e.logger)
	var stdout cappedBuffer
	stdout.limit = maxStdoutBytes
	stderr := newLineLogger(logger, stderrTailLines)
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return empty, startError(e.settings.Command, err)
	}
	logger.Debug("pose extraction started",
		logging.String("command", e.settings.Command),
		logging.Int("pid", cmd.Process.Pid),
		logging.String("video", videoPath),
	)
	waitErr := cmd.Wait()
	stderr.Flush()
	elapsed := time.Since(started)

	if waitErr != nil {
		switch {
		case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
			return empty, services.Wrap(
				services.ErrExtractionFailed,
				stageName,
				"wait",
				fmt.Sprintf("timed out after %s", e.settings.Timeout),
				services.ErrTimeout,
			)
		case ctx.Err() != nil:
			return empty, services.Wrap(services.ErrExtractionFailed, stageName, "wait", "canceled", ctx.Err())
		}
		return empty, services.Wrap(
			services.ErrExtractionFailed,
			stageName,
			"wait",
			diagnostic(stdout.Bytes(), stderr.Tail()),
			waitErr,
		)
	}

	var parsed output
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &parsed); err != nil {
		return empty, services.Wrap(
			services.ErrExtractionFailed,
			stageName,
			"parse",
			"stdout was not a measurement document: "+truncate(string(stdout.Bytes())),
			err,
		)
	}
	if parsed.Error != nil {
		return empty, services.Wrap(services.ErrExtractionFailed, stageName, "parse", truncate(*parsed.Error), nil)
	}

	measurements := parsed.Measurements
	measurements.Source = analysis.SourceLocal
	logger.Info("pose extraction completed",
		logging.Duration("elapsed", elapsed.Round(time.Millisecond)),
		logging.Bool("has_metadata", measurements.Metadata != nil),
	)
	return measurements, nil
}

// ScriptArg returns the first argument that looks like a script path, or ""
// when the command runs without one.
func ScriptArg(args []string) string {
	for _, arg := range args {
		switch strings.ToLower(filepath.Ext(arg)) {
		case ".py", ".sh", ".js":
			return arg
		}
	}
	return ""
}

func startError(command string, err error) error {
	hint := unavailableHint
	if errors.Is(err, fs.ErrPermission) {
		hint = "make " + command + " executable"
	}
	return services.Wrap(services.ErrExtractorUnavailable, stageName, "start", hint, err)
}

// diagnostic prefers the program's own JSON error, then stderr, then raw
// stdout.
func diagnostic(stdout []byte, stderrTail []string) string {
	var envelope struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(bytes.TrimSpace(stdout), &envelope) == nil && strings.TrimSpace(envelope.Error) != "" {
		return truncate(envelope.Error)
	}
	if len(stderrTail) > 0 {
		return truncate(strings.Join(stderrTail, " | "))
	}
	if trimmed := strings.TrimSpace(string(stdout)); trimmed != "" {
		return truncate(trimmed)
	}
	return "no diagnostic output"
}

func truncate(value string) string {
	clean := strings.Join(strings.Fields(value), " ")
	runes := []rune(clean)
	if len(runes) > diagnosticLimit {
		return string(runes[:diagnosticLimit]) + "..."
	}
	return clean
}
