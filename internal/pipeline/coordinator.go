package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"swingcoach/internal/analysis"
	"swingcoach/internal/fileutil"
	"swingcoach/internal/logging"
	"swingcoach/internal/metrics"
	"swingcoach/internal/notifications"
	"swingcoach/internal/services"
	"swingcoach/internal/services/inference"
	"swingcoach/internal/swings"
	"swingcoach/internal/transcode"
)

// Transcoder normalizes an uploaded clip.
type Transcoder interface {
	Transcode(ctx context.Context, input string) (transcode.Result, error)
}

// Extractor measures joint angles locally.
type Extractor interface {
	Extract(ctx context.Context, videoPath string) (analysis.Measurements, error)
}

// Analyzer is the remote inference surface the pipeline needs.
type Analyzer interface {
	Analyze(ctx context.Context, req inference.Request) (inference.Response, error)
	Coach(ctx context.Context, req inference.CoachingRequest) ([]analysis.RoadmapDraft, error)
}

// Deps bundles the collaborators of a Coordinator. Extractor may be nil, in
// which case the clip itself is sent for analysis.
type Deps struct {
	Store      *swings.Store
	Transcoder Transcoder
	Extractor  Extractor
	Analyzer   Analyzer
	Notifier   notifications.Service
	Metrics    *metrics.Manager
	Logger     *slog.Logger
}

// Coordinator runs the ingestion state machine for one swing at a time. It
// holds no per-run state and may be shared by concurrent runs.
type Coordinator struct {
	store      *swings.Store
	transcoder Transcoder
	extractor  Extractor
	analyzer   Analyzer
	notifier   notifications.Service
	metrics    *metrics.Manager
	logger     *slog.Logger
}

// NewCoordinator constructs a Coordinator.
func NewCoordinator(deps Deps) *Coordinator {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	return &Coordinator{
		store:      deps.Store,
		transcoder: deps.Transcoder,
		extractor:  deps.Extractor,
		analyzer:   deps.Analyzer,
		notifier:   notifier,
		metrics:    deps.Metrics,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
	}
}

// stageFailure is a recoverable error that ends the run in unanalyzed.
type stageFailure struct {
	stage string
	err   error
}

func (f *stageFailure) Error() string { return f.stage + ": " + f.err.Error() }
func (f *stageFailure) Unwrap() error { return f.err }

// Run processes the swing from StatusCreated to a terminal status and
// returns that status. Stage failures are absorbed; only store failures,
// illegal transitions and cancellation are returned.
func (c *Coordinator) Run(ctx context.Context, swingID string) (swings.Status, error) {
	ctx = services.WithSwingID(ctx, swingID)
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, c.logger)

	swing, err := c.store.Get(ctx, swingID)
	if err != nil {
		return "", err
	}
	started := time.Now()
	logger.Info("pipeline run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("club", string(swing.Club)),
		logging.Bool("transcoded", swing.Transcoded),
	)

	status, err := c.run(ctx, swing)
	switch {
	case err == nil:
		logger.Info("pipeline run finished",
			logging.String(logging.FieldEventType, "run_complete"),
			logging.String("status", string(status)),
			logging.Duration("run_duration", time.Since(started)),
		)
	case ctx.Err() != nil:
		logger.Warn("pipeline run interrupted",
			logging.String("status", string(status)),
			logging.Error(err),
		)
	default:
		logging.ErrorWithContext(logger, "pipeline run aborted", "run_aborted",
			logging.String("status", string(status)),
			logging.String(logging.FieldErrorHint, "check the database path and disk space; reprocess the swing once resolved"),
			logging.Error(err),
		)
		_ = c.notifier.NotifyError(context.WithoutCancel(ctx), err, "swing "+swingID)
	}
	return status, err
}

func (c *Coordinator) run(ctx context.Context, swing *swings.Swing) (swings.Status, error) {
	current, err := c.advance(ctx, swing.ID, swings.StatusTranscoding)
	if err != nil {
		return swing.Status, err
	}

	videoPath, err := c.transcodeStage(ctx, current)
	if err != nil {
		return swings.StatusTranscoding, err
	}

	if _, err := c.advance(ctx, swing.ID, swings.StatusAnalyzing); err != nil {
		return swings.StatusTranscoding, err
	}
	result, err := c.analyzeStage(ctx, current, videoPath)
	if err != nil {
		var failure *stageFailure
		if errors.As(err, &failure) && ctx.Err() == nil {
			return c.fail(ctx, current, failure)
		}
		return swings.StatusAnalyzing, err
	}

	if _, err := c.advance(ctx, swing.ID, swings.StatusCoaching); err != nil {
		return swings.StatusAnalyzing, err
	}
	if err := c.coachingStage(ctx, current, result); err != nil {
		return swings.StatusCoaching, err
	}

	if _, err := c.advance(ctx, swing.ID, swings.StatusAnalyzed); err != nil {
		return swings.StatusCoaching, err
	}
	c.notifyCompleted(ctx, current, result)
	return swings.StatusAnalyzed, nil
}

func (c *Coordinator) advance(ctx context.Context, id string, to swings.Status) (*swings.Swing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.store.Transition(ctx, id, to, "")
}

// transcodeStage returns the clip the analysis should use. A transcode
// failure is logged and the uploaded file is used instead.
func (c *Coordinator) transcodeStage(ctx context.Context, swing *swings.Swing) (string, error) {
	ctx = services.WithStage(ctx, string(swings.StatusTranscoding))
	logger := logging.WithContext(ctx, c.logger)
	started := time.Now()

	if swing.Transcoded {
		logger.Info("clip already normalized; skipping transcode", logging.String("video", swing.VideoPath))
		c.metrics.ObserveStage(string(swings.StatusTranscoding), metrics.OutcomeSuccess, time.Since(started))
		return swing.VideoPath, nil
	}

	result, err := c.transcoder.Transcode(ctx, swing.VideoPath)
	if err != nil {
		if ctx.Err() != nil {
			c.metrics.ObserveStage(string(swings.StatusTranscoding), metrics.OutcomeAborted, time.Since(started))
			return "", ctx.Err()
		}
		logging.WarnWithContext(logger, "transcode failed; analyzing original upload", "transcode_fallback",
			logging.String(logging.FieldErrorHint, "check ffmpeg is installed and the upload is a playable video"),
			logging.String(logging.FieldImpact, "analysis uses the unnormalized clip"),
			logging.String("video", swing.VideoPath),
			logging.Error(err),
		)
		c.metrics.ObserveStage(string(swings.StatusTranscoding), metrics.OutcomeFallback, time.Since(started))
		return swing.VideoPath, nil
	}

	if err := c.store.SetVideo(ctx, swing.ID, result.Path, true); err != nil {
		if rmErr := fileutil.RemoveIfExists(result.Path); rmErr != nil {
			logger.Warn("failed to remove orphaned transcode", logging.String("path", result.Path), logging.Error(rmErr))
		}
		return "", err
	}
	if err := fileutil.RemoveIfExists(swing.VideoPath); err != nil {
		logging.WarnWithContext(logger, "failed to remove raw upload", "cleanup_failed",
			logging.String(logging.FieldImpact, "raw upload left on disk"),
			logging.String("path", swing.VideoPath),
			logging.Error(err),
		)
	}
	c.metrics.ObserveStage(string(swings.StatusTranscoding), metrics.OutcomeSuccess, time.Since(started))
	c.metrics.ObserveTranscode(string(result.Mode), result.OutputBytes)
	logger.Info("clip transcoded",
		logging.String("mode", string(result.Mode)),
		logging.Int("video_kbps", result.VideoKbps),
		logging.Int64("input_bytes", result.InputBytes),
		logging.Int64("output_bytes", result.OutputBytes),
		logging.Duration("elapsed", result.Elapsed),
	)
	return result.Path, nil
}

// analyzeStage obtains measurements and estimates, merges them and stores
// the result. Recoverable failures come back as *stageFailure.
func (c *Coordinator) analyzeStage(ctx context.Context, swing *swings.Swing, videoPath string) (analysis.Result, error) {
	ctx = services.WithStage(ctx, string(swings.StatusAnalyzing))
	logger := logging.WithContext(ctx, c.logger)
	started := time.Now()
	stage := string(swings.StatusAnalyzing)

	fail := func(err error) (analysis.Result, error) {
		if ctx.Err() != nil {
			c.metrics.ObserveStage(stage, metrics.OutcomeAborted, time.Since(started))
			return analysis.Result{}, err
		}
		c.metrics.ObserveStage(stage, metrics.OutcomeFailure, time.Since(started))
		return analysis.Result{}, &stageFailure{stage: stage, err: err}
	}

	var req inference.Request = inference.VideoJob{Path: videoPath, Club: swing.Club}
	if c.extractor != nil {
		measurements, err := c.extractor.Extract(ctx, videoPath)
		if err != nil {
			return fail(err)
		}
		logger.Debug("local measurements extracted")
		req = inference.MeasurementJob{Measurements: measurements, Club: swing.Club}
	}

	resp, err := c.analyzer.Analyze(ctx, req)
	if err != nil {
		return fail(err)
	}
	result, err := analysis.Merge(resp.Measurements, resp.Estimates)
	if err != nil {
		return fail(err)
	}
	result.SwingID = swing.ID

	if out := analysis.OutOfRangeAngles(result); len(out) > 0 {
		logging.WarnWithContext(logger, "angles outside nominal range", "angle_out_of_range",
			logging.String(logging.FieldImpact, "stored as measured"),
			logging.String("angles", strings.Join(out, ", ")),
		)
	}
	if err := c.store.SaveAnalysis(ctx, swing.ID, result); err != nil {
		if services.IsFatal(err) {
			return analysis.Result{}, err
		}
		return fail(err)
	}
	c.metrics.ObserveStage(stage, metrics.OutcomeSuccess, time.Since(started))
	logger.Info("analysis stored",
		logging.String("source", string(result.Source)),
		logging.Float64("club_speed_mph", result.ClubSpeedMph),
		logging.String("club_path", string(result.ClubPath)),
		logging.Float64("carry_yards", result.CarryYards),
	)
	return result, nil
}

// coachingStage stores the roadmap pair. A failed or malformed coaching
// response stores no roadmaps and is not an error.
func (c *Coordinator) coachingStage(ctx context.Context, swing *swings.Swing, result analysis.Result) error {
	ctx = services.WithStage(ctx, string(swings.StatusCoaching))
	logger := logging.WithContext(ctx, c.logger)
	started := time.Now()
	stage := string(swings.StatusCoaching)

	drafts, err := c.analyzer.Coach(ctx, inference.CoachingRequest{Club: swing.Club, Result: result})
	if err != nil {
		if ctx.Err() != nil {
			c.metrics.ObserveStage(stage, metrics.OutcomeAborted, time.Since(started))
			return ctx.Err()
		}
		logging.WarnWithContext(logger, "coaching unavailable; continuing without roadmaps", "coaching_unavailable",
			logging.String(logging.FieldImpact, "swing has no roadmaps until reprocessed"),
			logging.Error(err),
		)
	}
	roadmaps := analysis.BuildRoadmaps(drafts)
	if len(drafts) > 0 && roadmaps == nil {
		logging.WarnWithContext(logger, "coaching response malformed; discarding roadmaps", "coaching_malformed",
			logging.Int("drafts", len(drafts)),
		)
	}
	if err := c.store.ReplaceRoadmaps(ctx, swing.ID, roadmaps); err != nil {
		return err
	}
	outcome := metrics.OutcomeSuccess
	if roadmaps == nil {
		outcome = metrics.OutcomeFallback
	}
	c.metrics.ObserveStage(stage, outcome, time.Since(started))
	logger.Info("coaching stage finished", logging.Int("roadmaps", len(roadmaps)))
	return nil
}

// fail records a recoverable stage failure as the terminal status.
func (c *Coordinator) fail(ctx context.Context, swing *swings.Swing, failure *stageFailure) (swings.Status, error) {
	logger := logging.WithContext(services.WithStage(ctx, failure.stage), c.logger)
	message := failure.err.Error()
	logging.WarnWithContext(logger, "swing left unanalyzed", "analysis_unavailable",
		logging.String(logging.FieldErrorHint, hintFor(failure.err)),
		logging.String(logging.FieldImpact, "swing kept without analysis; reprocess to retry"),
		logging.Error(failure.err),
	)
	if _, err := c.store.Transition(ctx, swing.ID, swings.StatusUnanalyzed, message); err != nil {
		return swings.Status(failure.stage), fmt.Errorf("record stage failure: %w", err)
	}
	_ = c.notifier.NotifyAnalysisUnavailable(ctx, swing.ID, swing.Club, message)
	return swings.StatusUnanalyzed, nil
}

func (c *Coordinator) notifyCompleted(ctx context.Context, swing *swings.Swing, result analysis.Result) {
	reading, err := c.store.LaunchMonitor(ctx, swing.ID)
	if err != nil {
		c.logger.Debug("launch monitor lookup failed", logging.Error(err))
	}
	speed, carry := analysis.Headline(&result, reading)
	if err := c.notifier.NotifyAnalysisCompleted(ctx, swing.ID, swing.Club, *speed, *carry); err != nil {
		logging.WithContext(ctx, c.logger).Debug("completion notification failed", logging.Error(err))
	}
}

// expire marks a run that hit its deadline as unanalyzed, stepping through
// analyzing when the deadline fired earlier, and returns the status the
// swing is left in.
func (c *Coordinator) expire(swingID string, status swings.Status, timeout time.Duration) swings.Status {
	var steps []swings.Status
	switch status {
	case swings.StatusCreated:
		steps = []swings.Status{swings.StatusTranscoding, swings.StatusAnalyzing}
	case swings.StatusTranscoding:
		steps = []swings.Status{swings.StatusAnalyzing}
	case swings.StatusAnalyzing, swings.StatusCoaching:
	default:
		return status
	}
	steps = append(steps, swings.StatusUnanalyzed)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	message := fmt.Sprintf("%s: run exceeded %s", services.ErrTimeout, timeout)
	for _, next := range steps {
		errorMessage := ""
		if next == swings.StatusUnanalyzed {
			errorMessage = message
		}
		if _, err := c.store.Transition(ctx, swingID, next, errorMessage); err != nil {
			c.logger.Warn("failed to record run timeout", logging.String(logging.FieldSwingID, swingID), logging.Error(err))
			return status
		}
		status = next
	}
	return status
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, services.ErrTimeout):
		return "the service or extractor took too long; raise the timeout or try a shorter clip"
	case errors.Is(err, services.ErrExtractorUnavailable):
		return "install the pose extractor or set analysis.mode = \"remote\""
	case errors.Is(err, services.ErrExtractionFailed):
		return "the extractor could not find a golfer; check framing and lighting"
	case errors.Is(err, services.ErrIncompleteResult):
		return "the analysis was missing checkpoints or estimates; reprocess to retry"
	case errors.Is(err, services.ErrAnalysisUnavailable):
		return "check inference.api_key and network access"
	default:
		return "reprocess the swing to retry"
	}
}
