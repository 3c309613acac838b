package swings_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"swingcoach/internal/analysis"
	"swingcoach/internal/services"
	"swingcoach/internal/swings"
	"swingcoach/internal/testsupport"

	_ "modernc.org/sqlite"
)

func ptr[T any](v T) *T { return &v }

func sampleResult() analysis.Result {
	set := func(base float64) analysis.AngleSet {
		return analysis.AngleSet{SpineAngle: base, ShoulderTurn: base + 1, HipTurn: base + 2, LeadArmAngle: base + 3}
	}
	return analysis.Result{
		Timestamps:   analysis.Timestamps{AddressMs: 0, TopMs: 800, ImpactMs: 1100, FinishMs: 1900},
		Address:      set(10),
		Top:          set(20),
		Impact:       set(30),
		Finish:       set(40),
		ClubSpeedMph: 95.5,
		ClubPath:     analysis.PathSquare,
		CarryYards:   228,
		Source:       analysis.SourceRemote,
	}
}

func advance(t *testing.T, store *swings.Store, id string, states ...swings.Status) {
	t.Helper()
	for _, status := range states {
		if _, err := store.Transition(context.Background(), id, status, ""); err != nil {
			t.Fatalf("Transition to %s: %v", status, err)
		}
	}
}

func TestOpenAppliesMigrationsAndCreates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	swing, err := store.Create(ctx, swings.NewSwing{PlayerID: "p1", Club: "Long Iron", VideoPath: "/media/a.mov"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if swing.ID == "" || swing.Status != swings.StatusCreated {
		t.Fatalf("unexpected swing: %#v", swing)
	}
	if swing.Club != analysis.ClubLongIron || swing.Analyzed || swing.Favorite {
		t.Fatalf("unexpected defaults: %#v", swing)
	}
	if swing.CreatedAt.IsZero() {
		t.Fatal("expected created timestamp")
	}

	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	reopened := testsupport.MustOpenStore(t, cfg)
	if _, err := reopened.Get(ctx, swing.ID); err != nil {
		t.Fatalf("expected swing to survive reopen: %v", err)
	}
}

func TestCreateValidatesInput(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	cases := []swings.NewSwing{
		{PlayerID: "p1", Club: "", VideoPath: "/a"},
		{PlayerID: "p1", Club: "spoon", VideoPath: "/a"},
		{PlayerID: " ", Club: "driver", VideoPath: "/a"},
		{PlayerID: "p1", Club: "driver", VideoPath: ""},
	}
	for _, in := range cases {
		if _, err := store.Create(ctx, in); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("Create(%+v) expected validation error, got %v", in, err)
		}
	}
}

func TestGetUnknownIsNotFound(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTransitionsFollowPipelineOrder(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	swing := testsupport.MustCreateSwing(t, store, "driver")

	if _, err := store.Transition(ctx, swing.ID, swings.StatusAnalyzing, ""); !errors.Is(err, swings.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition skipping transcoding, got %v", err)
	}

	advance(t, store, swing.ID, swings.StatusTranscoding, swings.StatusAnalyzing, swings.StatusCoaching)
	got, err := store.Get(ctx, swing.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Analyzed {
		t.Fatal("analyzed must stay false before entering analyzed")
	}

	done, err := store.Transition(ctx, swing.ID, swings.StatusAnalyzed, "")
	if err != nil {
		t.Fatalf("Transition to analyzed: %v", err)
	}
	if !done.Analyzed || done.Status != swings.StatusAnalyzed {
		t.Fatalf("expected analyzed swing, got %#v", done)
	}
	if _, err := store.Transition(ctx, swing.ID, swings.StatusUnanalyzed, "late failure"); !errors.Is(err, swings.ErrInvalidTransition) {
		t.Fatalf("terminal state must not change, got %v", err)
	}
}

func TestTransitionToUnanalyzedRecordsError(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	swing := testsupport.MustCreateSwing(t, store, "wedge")
	advance(t, store, swing.ID, swings.StatusTranscoding, swings.StatusAnalyzing)

	failed, err := store.Transition(context.Background(), swing.ID, swings.StatusUnanalyzed, "analysis unavailable: timeout")
	if err != nil {
		t.Fatal(err)
	}
	if failed.Analyzed || failed.ErrorMessage != "analysis unavailable: timeout" {
		t.Fatalf("unexpected failed swing: %#v", failed)
	}
}

func TestSaveAnalysisIsUniquePerSwing(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	swing := testsupport.MustCreateSwing(t, store, "driver")

	result := sampleResult()
	if err := store.SaveAnalysis(ctx, swing.ID, result); err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}
	result.ClubSpeedMph = 101
	if err := store.SaveAnalysis(ctx, swing.ID, result); err != nil {
		t.Fatalf("second SaveAnalysis: %v", err)
	}

	stored, err := store.Analysis(ctx, swing.ID)
	if err != nil || stored == nil {
		t.Fatalf("Analysis: %v %v", stored, err)
	}
	if stored.ClubSpeedMph != 101 {
		t.Fatalf("expected replaced analysis, got speed %v", stored.ClubSpeedMph)
	}
	if stored.Top != result.Top || stored.Timestamps != result.Timestamps {
		t.Fatalf("angle sets or timestamps did not round trip: %#v", stored)
	}
}

func TestSaveAnalysisRejectsInvalid(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	swing := testsupport.MustCreateSwing(t, store, "driver")
	result := sampleResult()
	result.Timestamps.ImpactMs = 10
	if err := store.SaveAnalysis(context.Background(), swing.ID, result); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if stored, _ := store.Analysis(context.Background(), swing.ID); stored != nil {
		t.Fatal("invalid analysis must not be stored")
	}
}

func TestRoadmapGoalsStoredCapitalized(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	swing := testsupport.MustCreateSwing(t, store, "driver")

	roadmaps := analysis.BuildRoadmaps([]analysis.RoadmapDraft{
		{Goal: "playable", Narrative: "p", Drills: []string{"a"}},
		{Goal: "IDEAL", Narrative: "i", Drills: []string{"b"}},
	})
	if err := store.ReplaceRoadmaps(ctx, swing.ID, roadmaps); err != nil {
		t.Fatalf("ReplaceRoadmaps: %v", err)
	}

	db, err := sql.Open("sqlite", store.Path())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	rows, err := db.QueryContext(ctx, "SELECT goal FROM coaching_roadmaps WHERE swing_id = ? ORDER BY goal", swing.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	var stored []string
	for rows.Next() {
		var goal string
		if err := rows.Scan(&goal); err != nil {
			t.Fatal(err)
		}
		stored = append(stored, goal)
	}
	if len(stored) != 2 || stored[0] != "Ideal" || stored[1] != "Playable" {
		t.Fatalf("stored goals = %q, want [Ideal Playable]", stored)
	}

	got, err := store.Roadmaps(ctx, swing.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Goal != "Ideal" || got[1].Goal != "Playable" {
		t.Fatalf("unexpected roadmaps: %#v", got)
	}
}

func TestRoadmapsReplaceAtomically(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	swing := testsupport.MustCreateSwing(t, store, "driver")

	first := []analysis.Roadmap{
		{Goal: analysis.GoalPlayable, Narrative: "p", Drills: []string{"a", "b"}},
		{Goal: analysis.GoalIdeal, Narrative: "i", Drills: []string{"c"}},
	}
	if err := store.ReplaceRoadmaps(ctx, swing.ID, first); err != nil {
		t.Fatalf("ReplaceRoadmaps: %v", err)
	}
	got, err := store.Roadmaps(ctx, swing.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Goal != analysis.GoalIdeal || len(got[1].Drills) != 2 {
		t.Fatalf("unexpected roadmaps: %#v", got)
	}

	if err := store.ReplaceRoadmaps(ctx, swing.ID, nil); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.Roadmaps(ctx, swing.ID); len(got) != 0 {
		t.Fatalf("expected roadmaps cleared, got %d", len(got))
	}
}

func TestListNewestFirstWithLaunchMonitorOverride(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	older := testsupport.MustCreateSwing(t, store, "driver")
	time.Sleep(5 * time.Millisecond)
	newer := testsupport.MustCreateSwing(t, store, "wedge")

	if err := store.SaveAnalysis(ctx, older.ID, sampleResult()); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertLaunchMonitor(ctx, older.ID, analysis.LaunchMonitorReading{CarryYards: ptr(240.0)}); err != nil {
		t.Fatal(err)
	}

	list, err := store.List(ctx, swings.ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != newer.ID || list[1].ID != older.ID {
		t.Fatalf("expected newest first, got %#v", list)
	}
	if list[0].ClubSpeedMph != nil || list[0].CarryYards != nil {
		t.Fatal("unanalyzed swing should have no numbers")
	}
	if *list[1].CarryYards != 240 || *list[1].ClubSpeedMph != 95.5 {
		t.Fatalf("expected carry override and estimated speed, got %v %v", *list[1].CarryYards, *list[1].ClubSpeedMph)
	}

	if _, err := store.ToggleFavorite(ctx, newer.ID); err != nil {
		t.Fatal(err)
	}
	favorites, err := store.List(ctx, swings.ListOptions{FavoritesOnly: true})
	if err != nil || len(favorites) != 1 || favorites[0].ID != newer.ID {
		t.Fatalf("unexpected favorites: %#v %v", favorites, err)
	}
}

func TestToggleFavoriteTwiceRestores(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	swing := testsupport.MustCreateSwing(t, store, "putter")

	on, err := store.ToggleFavorite(ctx, swing.ID)
	if err != nil || !on {
		t.Fatalf("first toggle: %v %v", on, err)
	}
	off, err := store.ToggleFavorite(ctx, swing.ID)
	if err != nil || off {
		t.Fatalf("second toggle: %v %v", off, err)
	}
	if _, err := store.ToggleFavorite(ctx, "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteCascades(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	swing := testsupport.MustCreateSwing(t, store, "driver")
	if err := store.SaveAnalysis(ctx, swing.ID, sampleResult()); err != nil {
		t.Fatal(err)
	}
	if err := store.ReplaceRoadmaps(ctx, swing.ID, []analysis.Roadmap{{Goal: analysis.GoalIdeal, Narrative: "n", Drills: []string{"d"}}}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertLaunchMonitor(ctx, swing.ID, analysis.LaunchMonitorReading{BallSpeedMph: ptr(140.0)}); err != nil {
		t.Fatal(err)
	}

	deleted, err := store.Delete(ctx, swing.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if deleted.VideoPath != swing.VideoPath {
		t.Fatalf("expected deleted swing returned, got %#v", deleted)
	}
	if _, err := store.Get(ctx, swing.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected swing gone, got %v", err)
	}
	if a, _ := store.Analysis(ctx, swing.ID); a != nil {
		t.Fatal("expected analysis removed")
	}
	if r, _ := store.Roadmaps(ctx, swing.ID); len(r) != 0 {
		t.Fatal("expected roadmaps removed")
	}
	if lm, _ := store.LaunchMonitor(ctx, swing.ID); lm != nil {
		t.Fatal("expected reading removed")
	}
}

func TestResetForReprocessKeepsLaunchMonitor(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	swing := testsupport.MustCreateSwing(t, store, "driver")
	advance(t, store, swing.ID, swings.StatusTranscoding, swings.StatusAnalyzing, swings.StatusCoaching, swings.StatusAnalyzed)
	if err := store.SaveAnalysis(ctx, swing.ID, sampleResult()); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertLaunchMonitor(ctx, swing.ID, analysis.LaunchMonitorReading{CarryYards: ptr(200.0)}); err != nil {
		t.Fatal(err)
	}

	reset, err := store.ResetForReprocess(ctx, swing.ID)
	if err != nil {
		t.Fatalf("ResetForReprocess: %v", err)
	}
	if reset.Status != swings.StatusCreated || reset.Analyzed {
		t.Fatalf("unexpected reset swing: %#v", reset)
	}
	detail, err := store.Detail(ctx, swing.ID)
	if err != nil {
		t.Fatal(err)
	}
	if detail.Analysis != nil || len(detail.Roadmaps) != 0 {
		t.Fatal("expected derived analysis cleared")
	}
	if detail.LaunchMonitor == nil || *detail.LaunchMonitor.CarryYards != 200 {
		t.Fatal("expected launch monitor reading kept")
	}
}

func TestConcurrentWritesToSameSwing(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	swing := testsupport.MustCreateSwing(t, store, "driver")

	const toggles = 20
	var wg sync.WaitGroup
	for i := 0; i < toggles; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.ToggleFavorite(ctx, swing.ID); err != nil {
				t.Errorf("ToggleFavorite: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, swing.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Favorite {
		t.Fatal("an even number of toggles must leave favorite off")
	}
}

func TestCanTransition(t *testing.T) {
	if !swings.CanTransition(swings.StatusCoaching, swings.StatusUnanalyzed) {
		t.Fatal("coaching -> unanalyzed should be legal")
	}
	if swings.CanTransition(swings.StatusTranscoding, swings.StatusUnanalyzed) {
		t.Fatal("transcoding failures fall back, they never terminate")
	}
	if !swings.StatusAnalyzed.Terminal() || swings.StatusCoaching.Terminal() {
		t.Fatal("unexpected terminal classification")
	}
}

func TestStatsAndListByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := testsupport.MustCreateSwing(t, store, "driver")
	second := testsupport.MustCreateSwing(t, store, "wedge")
	testsupport.MustCreateSwing(t, store, "putter")
	advance(t, store, first.ID, swings.StatusTranscoding, swings.StatusAnalyzing)
	advance(t, store, second.ID, swings.StatusTranscoding)

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[swings.StatusCreated] != 1 || stats[swings.StatusTranscoding] != 1 || stats[swings.StatusAnalyzing] != 1 {
		t.Fatalf("unexpected stats %v", stats)
	}

	stale, err := store.ListByStatus(ctx, swings.StatusTranscoding, swings.StatusAnalyzing, swings.StatusCoaching)
	if err != nil {
		t.Fatalf("ListByStatus: %v", err)
	}
	if len(stale) != 2 {
		t.Fatalf("expected 2 in-progress swings, got %d", len(stale))
	}
}
