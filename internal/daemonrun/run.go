package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"swingcoach/internal/api"
	"swingcoach/internal/config"
	"swingcoach/internal/daemon"
	"swingcoach/internal/deps"
	"swingcoach/internal/logging"
	"swingcoach/internal/metrics"
	"swingcoach/internal/notifications"
	"swingcoach/internal/pipeline"
	"swingcoach/internal/preflight"
	"swingcoach/internal/services/inference"
	"swingcoach/internal/services/posextract"
	"swingcoach/internal/swings"
	"swingcoach/internal/transcode"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the swingcoach daemon and blocks until the context is canceled
// or the process receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("swingcoach-%s.log", runID))
	level := strings.TrimSpace(opts.LogLevel)
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update swingcoach.log link: %v\n", err)
	}

	logDependencySnapshot(logger, cfg)
	reportPreflight(signalCtx, logger, cfg)

	pidPath := filepath.Join(cfg.Paths.LogDir, "swingcoach.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := swings.Open(cfg)
	if err != nil {
		logger.Error("open swing store", logging.Error(err))
		return err
	}
	defer store.Close()

	mgr := metrics.NewFromConfig(cfg)
	client := inference.NewClient(
		inference.ConfigFromSettings(cfg),
		inference.WithLogger(logger),
		inference.WithPollObserver(mgr.ObservePollWait),
	)

	transcodeSettings := transcode.SettingsFromConfig(cfg)
	transcodeSettings.FFprobeBinary = deps.ResolveFFprobePath(cfg.Media.FFmpegBinary, cfg.Media.FFprobeBinary)

	coordinatorDeps := pipeline.Deps{
		Store:      store,
		Transcoder: transcode.New(transcodeSettings, logger),
		Analyzer:   client,
		Notifier:   notifications.NewService(cfg),
		Metrics:    mgr,
		Logger:     logger,
	}
	if cfg.UsesExtractor() {
		coordinatorDeps.Extractor = posextract.New(posextract.SettingsFromConfig(cfg), logger)
	}
	runner := pipeline.NewRunner(
		pipeline.NewCoordinator(coordinatorDeps),
		cfg.Workflow.MaxConcurrentRuns,
		cfg.RunTimeout(),
		mgr,
		logger,
	)
	service := api.NewSwingService(store, runner, client, cfg.Paths.MediaDir, logger)

	d, err := daemon.New(cfg, daemon.Options{
		Store:   store,
		Runner:  runner,
		Service: service,
		Metrics: mgr,
		Model:   client.Model(),
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.api_bind and that no other daemon holds the lock"),
			logging.String(logging.FieldImpact, "swings cannot be uploaded or analyzed"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("swingcoach daemon shutting down")
	return nil
}

// reportPreflight logs failed checks as warnings; none of them block startup.
func reportPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	for _, result := range preflight.Failed(preflight.RunAll(ctx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "affected swings will end unanalyzed"),
		)
	}
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "swingcoach.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	ffmpeg := cfg.Media.FFmpegBinary
	ffprobe := deps.ResolveFFprobePath(ffmpeg, cfg.Media.FFprobeBinary)
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("analysis_mode", cfg.Analysis.Mode),
		logging.Bool("inference_key_present", strings.TrimSpace(cfg.Inference.APIKey) != ""),
		logging.String("inference_model", cfg.Inference.Model),
		logging.Bool("ffmpeg_available", binaryAvailable(ffmpeg)),
		logging.String("ffmpeg_binary", ffmpeg),
		logging.Bool("ffprobe_available", binaryAvailable(ffprobe)),
		logging.String("ffprobe_binary", ffprobe),
		logging.Bool("extractor_enabled", cfg.UsesExtractor()),
		logging.Bool("extractor_available", binaryAvailable(cfg.Extractor.Command)),
		logging.Bool("api_token_set", cfg.Paths.APIToken != ""),
	)
}

func binaryAvailable(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}
