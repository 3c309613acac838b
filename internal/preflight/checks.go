package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"swingcoach/internal/config"
	"swingcoach/internal/deps"
	"swingcoach/internal/services"
	"swingcoach/internal/services/inference"
)

// CheckInference verifies that the inference service is reachable and the
// key is valid. It uses a 30-second timeout and a single attempt.
func CheckInference(ctx context.Context, cfg *config.Config) Result {
	const name = "Inference service"
	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Inference.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	settings := inference.ConfigFromSettings(cfg)
	settings.RetryAttempts = 1
	client := inference.NewClient(settings)
	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeInferenceError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("API reachable (%s)", client.Model())}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates all system-level dependencies for the given config.
// Both the daemon and the CLI status command use this to avoid duplicating
// the requirements list. The extractor is only required in local mode.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Media.FFmpegBinary,
			Description: "Required for transcoding uploads",
			Optional:    true,
		},
		{
			Name:        "FFprobe",
			Command:     deps.ResolveFFprobePath(cfg.Media.FFmpegBinary, cfg.Media.FFprobeBinary),
			Description: "Required for inspecting uploads before transcoding",
			Optional:    true,
		},
	}
	if cfg.Extractor.Enabled || cfg.Analysis.Mode == config.AnalysisModeLocal {
		requirements = append(requirements, deps.Requirement{
			Name:        "Pose extractor",
			Command:     cfg.Extractor.Command,
			Description: "Measures joint angles locally",
			Optional:    !cfg.UsesExtractor(),
		})
	}
	return deps.CheckBinaries(requirements)
}

// summarizeInferenceError produces a human-readable summary for health check failures.
func summarizeInferenceError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, services.ErrTimeout) {
		return "health check timed out (inference API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (inference API unreachable)"
	}
	return err.Error()
}
