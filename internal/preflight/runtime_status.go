package preflight

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"swingcoach/internal/config"
	"swingcoach/internal/services/posextract"
)

// ExtractorStatusFromConfig evaluates the local extractor from config and
// the filesystem without running it.
func ExtractorStatusFromConfig(cfg *config.Config) Result {
	const name = "Pose extractor"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if cfg.Analysis.Mode != config.AnalysisModeLocal {
		return Result{Name: name, Passed: true, Detail: "Not used (remote mode)"}
	}
	if !cfg.Extractor.Enabled {
		return Result{Name: name, Detail: "Disabled while analysis.mode is local"}
	}
	command := strings.TrimSpace(cfg.Extractor.Command)
	if command == "" {
		return Result{Name: name, Detail: "Missing command"}
	}
	resolved, err := exec.LookPath(command)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("binary %q not found", command)}
	}
	if script := posextract.ScriptArg(cfg.Extractor.Args); script != "" {
		if _, err := os.Stat(script); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("script %s not found", script)}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s %s", resolved, script)}
	}
	return Result{Name: name, Passed: true, Detail: resolved}
}

// InferenceStatusFromConfig summarizes inference configuration without a
// network round trip.
func InferenceStatusFromConfig(cfg *config.Config) Result {
	const name = "Inference service"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Inference.APIKey) == "" {
		return Result{Name: name, Detail: "Missing API key"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("Configured (%s)", cfg.Inference.Model)}
}
