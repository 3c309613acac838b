package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"swingcoach/internal/analysis"
	"swingcoach/internal/config"
	"swingcoach/internal/pipeline"
	"swingcoach/internal/services"
	"swingcoach/internal/services/inference"
	"swingcoach/internal/swings"
	"swingcoach/internal/testsupport"
	"swingcoach/internal/transcode"
)

func ptr[T any](v T) *T { return &v }

func angles(base float64) *analysis.AngleSet {
	return &analysis.AngleSet{SpineAngle: base, ShoulderTurn: base + 10, HipTurn: base + 5, LeadArmAngle: 170}
}

func completeMeasurements(source analysis.Source) analysis.Measurements {
	return analysis.Measurements{
		Timestamps: analysis.CheckpointTimes{
			Address: ptr(int64(0)),
			Top:     ptr(int64(900)),
			Impact:  ptr(int64(1150)),
			Finish:  ptr(int64(2000)),
		},
		AddressAngles: angles(30),
		TopAngles:     angles(40),
		ImpactAngles:  angles(35),
		FinishAngles:  angles(10),
		Metadata:      &analysis.VideoMeta{FPS: 30, TotalFrames: 75, TotalDurationMs: 2500},
		Source:        source,
	}
}

func completeEstimates() analysis.Estimates {
	return analysis.Estimates{ClubSpeedMph: ptr(97.0), ClubPath: "in-to-out", CarryYards: ptr(231.0)}
}

func roadmapDrafts() []analysis.RoadmapDraft {
	return []analysis.RoadmapDraft{
		{Goal: "ideal", Narrative: "Turn more.", Drills: []string{"Pump drill"}},
		{Goal: "playable", Narrative: "Keep it simple.", Drills: []string{"Tee drill", "Towel drill"}},
	}
}

type fakeTranscoder struct {
	mediaDir string
	err      error
	block    chan struct{}
	calls    atomic.Int32
}

func (f *fakeTranscoder) Transcode(ctx context.Context, input string) (transcode.Result, error) {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return transcode.Result{}, fmt.Errorf("ffmpeg interrupted: %w", ctx.Err())
		}
	}
	if f.err != nil {
		return transcode.Result{}, f.err
	}
	out := filepath.Join(f.mediaDir, "normalized-"+filepath.Base(input)+".mp4")
	if err := os.WriteFile(out, []byte("normalized"), 0o644); err != nil {
		return transcode.Result{}, err
	}
	return transcode.Result{Path: out, Mode: transcode.ModeQuality, OutputBytes: 10}, nil
}

type fakeExtractor struct {
	measurements analysis.Measurements
	err          error
	paths        []string
	mu           sync.Mutex
}

func (f *fakeExtractor) Extract(ctx context.Context, videoPath string) (analysis.Measurements, error) {
	f.mu.Lock()
	f.paths = append(f.paths, videoPath)
	f.mu.Unlock()
	if f.err != nil {
		return analysis.Measurements{}, f.err
	}
	return f.measurements, nil
}

type fakeAnalyzer struct {
	response  inference.Response
	err       error
	drafts    []analysis.RoadmapDraft
	coachErr  error
	block     chan struct{}
	started   chan string
	requests  []inference.Request
	mu        sync.Mutex
	active    atomic.Int32
	maxActive atomic.Int32
}

func newFakeAnalyzer() *fakeAnalyzer {
	return &fakeAnalyzer{
		response: inference.Response{
			Measurements: completeMeasurements(analysis.SourceRemote),
			Estimates:    completeEstimates(),
		},
		drafts: roadmapDrafts(),
	}
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req inference.Request) (inference.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	now := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		prev := f.maxActive.Load()
		if now <= prev || f.maxActive.CompareAndSwap(prev, now) {
			break
		}
	}
	if f.started != nil {
		if job, ok := req.(inference.VideoJob); ok {
			f.started <- job.Path
		} else {
			f.started <- ""
		}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return inference.Response{}, services.Wrap(services.ErrAnalysisUnavailable, "inference", "poll", "canceled", ctx.Err())
		}
	}
	if f.err != nil {
		return inference.Response{}, f.err
	}
	if job, ok := req.(inference.MeasurementJob); ok {
		return inference.Response{Measurements: job.Measurements, Estimates: f.response.Estimates}, nil
	}
	return f.response, nil
}

func (f *fakeAnalyzer) Coach(ctx context.Context, req inference.CoachingRequest) ([]analysis.RoadmapDraft, error) {
	if f.coachErr != nil {
		return nil, f.coachErr
	}
	return f.drafts, nil
}

func (f *fakeAnalyzer) lastRequest() inference.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

type recordingNotifier struct {
	mu          sync.Mutex
	completed   []string
	unavailable []string
	errs        []error
}

func (r *recordingNotifier) NotifyAnalysisCompleted(_ context.Context, swingID string, _ analysis.Club, _, _ float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, swingID)
	return nil
}

func (r *recordingNotifier) NotifyAnalysisUnavailable(_ context.Context, swingID string, _ analysis.Club, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unavailable = append(r.unavailable, swingID)
	return nil
}

func (r *recordingNotifier) NotifyError(_ context.Context, err error, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
	return nil
}

func (r *recordingNotifier) TestNotification(context.Context) error { return nil }

type harness struct {
	cfg         *config.Config
	store       *swings.Store
	transcoder  *fakeTranscoder
	extractor   *fakeExtractor
	analyzer    *fakeAnalyzer
	notifier    *recordingNotifier
	coordinator *pipeline.Coordinator
	uploads     int
}

func newHarness(t *testing.T, withExtractor bool) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	h := &harness{
		cfg:        cfg,
		store:      testsupport.MustOpenStore(t, cfg),
		transcoder: &fakeTranscoder{mediaDir: cfg.Paths.MediaDir},
		analyzer:   newFakeAnalyzer(),
		notifier:   &recordingNotifier{},
	}
	deps := pipeline.Deps{
		Store:      h.store,
		Transcoder: h.transcoder,
		Analyzer:   h.analyzer,
		Notifier:   h.notifier,
	}
	if withExtractor {
		h.extractor = &fakeExtractor{measurements: completeMeasurements(analysis.SourceLocal)}
		deps.Extractor = h.extractor
	}
	h.coordinator = pipeline.NewCoordinator(deps)
	return h
}

// upload creates a swing whose raw clip exists on disk.
func (h *harness) upload(t *testing.T, club string) *swings.Swing {
	t.Helper()
	h.uploads++
	raw := filepath.Join(h.cfg.Paths.MediaDir, fmt.Sprintf("raw-%d-%s.mov", h.uploads, club))
	testsupport.WriteFile(t, raw, 128)
	swing, err := h.store.Create(context.Background(), swings.NewSwing{PlayerID: "player-1", Club: club, VideoPath: raw})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return swing
}

func errUnavailable(msg string) error {
	return services.Wrap(services.ErrAnalysisUnavailable, "inference", "generate", msg, errors.New("http 503"))
}
