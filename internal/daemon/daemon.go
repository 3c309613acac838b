package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/gofrs/flock"

	"swingcoach/internal/api"
	"swingcoach/internal/config"
	"swingcoach/internal/logging"
	"swingcoach/internal/metrics"
	"swingcoach/internal/pipeline"
	"swingcoach/internal/preflight"
	"swingcoach/internal/swings"
)

// Daemon owns the runner and the HTTP API and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *swings.Store
	runner  *pipeline.Runner
	service *api.SwingService
	metrics *metrics.Manager
	model   string

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Options carries the collaborators a Daemon is built from.
type Options struct {
	Store   *swings.Store
	Runner  *pipeline.Runner
	Service *api.SwingService
	Metrics *metrics.Manager
	Model   string
	Logger  *slog.Logger
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, opts Options) (*Daemon, error) {
	if cfg == nil || opts.Store == nil || opts.Runner == nil || opts.Service == nil {
		return nil, errors.New("daemon requires config, store, runner, and swing service")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    opts.Store,
		runner:   opts.Runner,
		service:  opts.Service,
		metrics:  opts.Metrics,
		model:    opts.Model,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and starts serving the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another swingcoach daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.store.Ping(d.ctx); err != nil {
		d.abortStart()
		return fmt.Errorf("database unavailable: %w", err)
	}
	d.reportInterrupted(d.ctx)

	server, err := newAPIServer(d.cfg, d, d.logger)
	if err != nil {
		d.abortStart()
		return fmt.Errorf("configure api server: %w", err)
	}
	if err := server.start(d.ctx); err != nil {
		d.abortStart()
		return err
	}
	d.api = server

	d.running.Store(true)
	d.logger.Info("swingcoach daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("api_bind", server.address()),
	)
	return nil
}

func (d *Daemon) abortStart() {
	_ = d.lock.Unlock()
	d.cancel()
	d.ctx = nil
	d.cancel = nil
}

// reportInterrupted logs swings a previous process left mid-run.
func (d *Daemon) reportInterrupted(ctx context.Context) {
	stale, err := d.store.ListByStatus(ctx, swings.StatusTranscoding, swings.StatusAnalyzing, swings.StatusCoaching)
	if err != nil {
		d.logger.Warn("failed to list interrupted swings", logging.Error(err))
		return
	}
	for _, swing := range stale {
		logging.WarnWithContext(d.logger, "swing interrupted by a previous shutdown", "swing_interrupted",
			logging.String(logging.FieldSwingID, swing.ID),
			logging.String("status", string(swing.Status)),
			logging.String(logging.FieldErrorHint, "run `swingcoach reprocess "+swing.ID+"` to analyze it again"),
			logging.String(logging.FieldImpact, "swing stays in its last state until reprocessed"),
		)
	}
}

// Stop cancels in-flight runs, stops the API and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.api = nil
	d.runner.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("swingcoach daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Address returns the bound API address while the daemon is running.
func (d *Daemon) Address() string {
	if d.api == nil {
		return ""
	}
	return d.api.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	runner := d.runner.Status()
	status := api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		AnalysisMode: d.cfg.Analysis.Mode,
		Model:        d.model,
		StatusCounts: map[string]int{},
		Runner: api.RunnerStatus{
			Capacity:  runner.Capacity,
			InFlight:  runner.InFlight,
			Stopped:   runner.Stopped,
			LastError: runner.LastError,
		},
		MetricsActive: d.metrics.Enabled(),
	}
	if counts, err := d.store.Stats(ctx); err != nil {
		d.logger.Warn("failed to read swing stats", logging.Error(err))
	} else {
		for state, count := range counts {
			status.StatusCounts[string(state)] = count
		}
	}
	for _, dep := range preflight.CheckSystemDeps(d.cfg) {
		status.Dependencies = append(status.Dependencies, api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	return status
}
