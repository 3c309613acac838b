package testsupport

import (
	"context"
	"testing"

	"swingcoach/internal/config"
	"swingcoach/internal/swings"
)

// MustOpenStore opens a swings.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *swings.Store {
	t.Helper()

	store, err := swings.Open(cfg)
	if err != nil {
		t.Fatalf("swings.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// MustCreateSwing inserts a swing with a placeholder video path.
func MustCreateSwing(t testing.TB, store *swings.Store, club string) *swings.Swing {
	t.Helper()

	swing, err := store.Create(context.Background(), swings.NewSwing{
		PlayerID:  "player-1",
		Club:      club,
		VideoPath: "/tmp/" + club + ".mp4",
	})
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return swing
}
