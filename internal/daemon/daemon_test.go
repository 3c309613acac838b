package daemon_test

import (
	"context"
	"net/http"
	"testing"

	"swingcoach/internal/api"
	"swingcoach/internal/daemon"
	"swingcoach/internal/pipeline"
	"swingcoach/internal/swings"
	"swingcoach/internal/testsupport"
)

func newDaemon(t *testing.T, store *swings.Store) *daemon.Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	if store == nil {
		store = testsupport.MustOpenStore(t, cfg)
	}
	coordinator := pipeline.NewCoordinator(pipeline.Deps{Store: store})
	runner := pipeline.NewRunner(coordinator, 1, 0, nil, nil)
	service := api.NewSwingService(store, runner, nil, cfg.Paths.MediaDir, nil)
	d, err := daemon.New(cfg, daemon.Options{Store: store, Runner: runner, Service: service, Model: "test-model"})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d
}

func TestDaemonStartStop(t *testing.T) {
	d := newDaemon(t, nil)
	t.Cleanup(func() {
		_ = d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.Runner.Capacity != 1 || status.Model != "test-model" {
		t.Fatalf("unexpected status %+v", status)
	}

	resp, err := http.Get("http://" + d.Address() + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from status endpoint, got %d", resp.StatusCode)
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
	if !status.Runner.Stopped {
		t.Fatal("expected runner to be stopped with the daemon")
	}
}

func TestDaemonLockPreventsSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	build := func() *daemon.Daemon {
		coordinator := pipeline.NewCoordinator(pipeline.Deps{Store: store})
		runner := pipeline.NewRunner(coordinator, 1, 0, nil, nil)
		service := api.NewSwingService(store, runner, nil, cfg.Paths.MediaDir, nil)
		d, err := daemon.New(cfg, daemon.Options{Store: store, Runner: runner, Service: service})
		if err != nil {
			t.Fatalf("daemon.New: %v", err)
		}
		return d
	}

	first := build()
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	defer first.Stop()

	second := build()
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected lock contention to reject the second daemon")
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := daemon.New(cfg, daemon.Options{}); err == nil {
		t.Fatal("expected error without store and runner")
	}
}
