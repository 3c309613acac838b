package pipeline_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"swingcoach/internal/analysis"
	"swingcoach/internal/services"
	"swingcoach/internal/services/inference"
	"swingcoach/internal/swings"
)

func TestRunRemoteHappyPath(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	swing := h.upload(t, "driver")

	status, err := h.coordinator.Run(ctx, swing.ID)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if status != swings.StatusAnalyzed {
		t.Fatalf("expected analyzed, got %s", status)
	}

	detail, err := h.store.Detail(ctx, swing.ID)
	if err != nil {
		t.Fatalf("Detail: %v", err)
	}
	if !detail.Swing.Analyzed || !detail.Swing.Transcoded {
		t.Fatalf("unexpected swing flags: %+v", detail.Swing)
	}
	if detail.Analysis == nil || detail.Analysis.ClubPath != analysis.PathInsideOut || detail.Analysis.Source != analysis.SourceRemote {
		t.Fatalf("unexpected analysis: %+v", detail.Analysis)
	}
	if len(detail.Roadmaps) != 2 {
		t.Fatalf("expected roadmap pair, got %d", len(detail.Roadmaps))
	}
	if _, err := os.Stat(swing.VideoPath); !os.IsNotExist(err) {
		t.Fatalf("expected raw upload removed, stat err %v", err)
	}
	if detail.Swing.VideoPath == swing.VideoPath {
		t.Fatal("expected video path to point at the transcoded clip")
	}
	job, ok := h.analyzer.lastRequest().(inference.VideoJob)
	if !ok || job.Path != detail.Swing.VideoPath || job.Club != analysis.ClubDriver {
		t.Fatalf("expected video job for transcoded clip, got %#v", h.analyzer.lastRequest())
	}
	if len(h.notifier.completed) != 1 {
		t.Fatalf("expected completion notification, got %d", len(h.notifier.completed))
	}
}

func TestRunTranscodeFailureFallsBack(t *testing.T) {
	h := newHarness(t, false)
	h.transcoder.err = services.Wrap(services.ErrTranscode, "transcode", "ffmpeg", "exit status 1", nil)
	swing := h.upload(t, "wedge")

	status, err := h.coordinator.Run(context.Background(), swing.ID)
	if err != nil || status != swings.StatusAnalyzed {
		t.Fatalf("expected analyzed despite transcode failure, got %s %v", status, err)
	}
	got, _ := h.store.Get(context.Background(), swing.ID)
	if got.Transcoded || got.VideoPath != swing.VideoPath {
		t.Fatalf("expected original clip kept, got %+v", got)
	}
	if _, err := os.Stat(swing.VideoPath); err != nil {
		t.Fatalf("original upload must survive a failed transcode: %v", err)
	}
	job := h.analyzer.lastRequest().(inference.VideoJob)
	if job.Path != swing.VideoPath {
		t.Fatalf("expected analysis of the original clip, got %s", job.Path)
	}
}

func TestRunInferenceFailureLeavesUnanalyzed(t *testing.T) {
	h := newHarness(t, false)
	h.analyzer.err = errUnavailable("quota exceeded")
	swing := h.upload(t, "driver")

	status, err := h.coordinator.Run(context.Background(), swing.ID)
	if err != nil {
		t.Fatalf("stage failures must not escape: %v", err)
	}
	if status != swings.StatusUnanalyzed {
		t.Fatalf("expected unanalyzed, got %s", status)
	}
	detail, _ := h.store.Detail(context.Background(), swing.ID)
	if detail.Swing.Analyzed || detail.Analysis != nil || len(detail.Roadmaps) != 0 {
		t.Fatalf("expected no analysis, got %+v", detail)
	}
	if !strings.Contains(detail.Swing.ErrorMessage, "quota exceeded") {
		t.Fatalf("expected failure recorded, got %q", detail.Swing.ErrorMessage)
	}
	if len(h.notifier.unavailable) != 1 {
		t.Fatal("expected unavailable notification")
	}
}

func TestRunIncompleteResultIsRejected(t *testing.T) {
	h := newHarness(t, false)
	h.analyzer.response.Measurements.FinishAngles = nil
	swing := h.upload(t, "hybrid")

	status, err := h.coordinator.Run(context.Background(), swing.ID)
	if err != nil || status != swings.StatusUnanalyzed {
		t.Fatalf("expected unanalyzed, got %s %v", status, err)
	}
	if a, _ := h.store.Analysis(context.Background(), swing.ID); a != nil {
		t.Fatal("partial analysis must not be stored")
	}
	got, _ := h.store.Get(context.Background(), swing.ID)
	if !strings.Contains(got.ErrorMessage, "finish angles") {
		t.Fatalf("expected missing field in error, got %q", got.ErrorMessage)
	}
}

func TestRunOutOfRangeAnglesAreStored(t *testing.T) {
	h := newHarness(t, false)
	h.analyzer.response.Measurements.TopAngles = &analysis.AngleSet{SpineAngle: 40, ShoulderTurn: 195, HipTurn: 50, LeadArmAngle: 170}
	swing := h.upload(t, "driver")

	if status, err := h.coordinator.Run(context.Background(), swing.ID); err != nil || status != swings.StatusAnalyzed {
		t.Fatalf("expected analyzed, got %s %v", status, err)
	}
	stored, _ := h.store.Analysis(context.Background(), swing.ID)
	if stored == nil || stored.Top.ShoulderTurn != 195 {
		t.Fatalf("expected out-of-range angle kept, got %+v", stored)
	}
}

func TestRunCoachingFailureStillAnalyzed(t *testing.T) {
	h := newHarness(t, false)
	h.analyzer.coachErr = errUnavailable("coaching timeout")
	swing := h.upload(t, "putter")

	status, err := h.coordinator.Run(context.Background(), swing.ID)
	if err != nil || status != swings.StatusAnalyzed {
		t.Fatalf("expected analyzed, got %s %v", status, err)
	}
	detail, _ := h.store.Detail(context.Background(), swing.ID)
	if !detail.Swing.Analyzed || detail.Analysis == nil || len(detail.Roadmaps) != 0 {
		t.Fatalf("expected analysis without roadmaps, got %+v", detail)
	}
}

func TestRunMalformedRoadmapsDiscarded(t *testing.T) {
	h := newHarness(t, false)
	h.analyzer.drafts = []analysis.RoadmapDraft{{Goal: "ideal", Narrative: "only one", Drills: []string{"d"}}}
	swing := h.upload(t, "driver")

	if status, err := h.coordinator.Run(context.Background(), swing.ID); err != nil || status != swings.StatusAnalyzed {
		t.Fatalf("expected analyzed, got %s %v", status, err)
	}
	if roadmaps, _ := h.store.Roadmaps(context.Background(), swing.ID); len(roadmaps) != 0 {
		t.Fatalf("expected half a pair to be discarded, got %d", len(roadmaps))
	}
}

func TestRunLocalExtractorOwnsAngles(t *testing.T) {
	h := newHarness(t, true)
	swing := h.upload(t, "mid_iron")

	status, err := h.coordinator.Run(context.Background(), swing.ID)
	if err != nil || status != swings.StatusAnalyzed {
		t.Fatalf("expected analyzed, got %s %v", status, err)
	}
	job, ok := h.analyzer.lastRequest().(inference.MeasurementJob)
	if !ok {
		t.Fatalf("expected measurement job, got %T", h.analyzer.lastRequest())
	}
	if job.Measurements.Source != analysis.SourceLocal {
		t.Fatalf("expected local measurements sent, got %q", job.Measurements.Source)
	}
	stored, _ := h.store.Analysis(context.Background(), swing.ID)
	if stored.Source != analysis.SourceLocal || stored.VideoDurationMs != 2500 {
		t.Fatalf("unexpected stored analysis %+v", stored)
	}
	if len(h.extractor.paths) != 1 {
		t.Fatalf("expected one extraction, got %d", len(h.extractor.paths))
	}
}

func TestRunExtractorFailureSkipsInference(t *testing.T) {
	h := newHarness(t, true)
	h.extractor.err = services.Wrap(services.ErrExtractionFailed, "extract", "wait", "Insufficient pose data", nil)
	swing := h.upload(t, "driver")

	status, err := h.coordinator.Run(context.Background(), swing.ID)
	if err != nil || status != swings.StatusUnanalyzed {
		t.Fatalf("expected unanalyzed, got %s %v", status, err)
	}
	if h.analyzer.lastRequest() != nil {
		t.Fatal("inference must not run after an extraction failure")
	}
}

func TestRunSkipsTranscodeWhenAlreadyNormalized(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	swing := h.upload(t, "driver")
	if _, err := h.coordinator.Run(ctx, swing.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := h.store.ResetForReprocess(ctx, swing.ID); err != nil {
		t.Fatalf("ResetForReprocess: %v", err)
	}

	status, err := h.coordinator.Run(ctx, swing.ID)
	if err != nil || status != swings.StatusAnalyzed {
		t.Fatalf("reprocess: %s %v", status, err)
	}
	if calls := h.transcoder.calls.Load(); calls != 1 {
		t.Fatalf("expected a single transcode across both runs, got %d", calls)
	}
}

func TestRunRequiresCreatedStatus(t *testing.T) {
	h := newHarness(t, false)
	swing := h.upload(t, "driver")
	if _, err := h.coordinator.Run(context.Background(), swing.ID); err != nil {
		t.Fatal(err)
	}
	_, err := h.coordinator.Run(context.Background(), swing.ID)
	if !errors.Is(err, swings.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition for finished swing, got %v", err)
	}
}

func TestRunUnknownSwing(t *testing.T) {
	h := newHarness(t, false)
	_, err := h.coordinator.Run(context.Background(), "missing")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRunStoreFailureIsFatal(t *testing.T) {
	h := newHarness(t, false)
	swing := h.upload(t, "driver")
	if err := h.store.Close(); err != nil {
		t.Fatal(err)
	}
	_, err := h.coordinator.Run(context.Background(), swing.ID)
	if !services.IsFatal(err) {
		t.Fatalf("expected fatal persistence error, got %v", err)
	}
}

func TestRunCancellationKeepsLastDurableState(t *testing.T) {
	h := newHarness(t, false)
	h.analyzer.block = make(chan struct{})
	h.analyzer.started = make(chan string, 1)
	swing := h.upload(t, "driver")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := h.coordinator.Run(ctx, swing.ID)
		done <- err
	}()

	select {
	case <-h.analyzer.started:
	case <-time.After(5 * time.Second):
		t.Fatal("analysis never started")
	}
	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected cancellation error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}

	got, err := h.store.Get(context.Background(), swing.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != swings.StatusAnalyzing || got.Analyzed {
		t.Fatalf("expected swing left in analyzing, got %+v", got)
	}
}
