package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"swingcoach/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "transcoding", "ffmpeg", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"transcoding", "ffmpeg", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want services.Kind
	}{
		{"validation", services.Wrap(services.ErrValidation, "upload", "club", "missing", nil), services.KindValidation},
		{"not found", services.Wrap(services.ErrNotFound, "store", "get", "", nil), services.KindValidation},
		{"persistence", services.Wrap(services.ErrPersistence, "store", "update", "", errors.New("disk")), services.KindFatal},
		{"analysis", services.Wrap(services.ErrAnalysisUnavailable, "analyzing", "poll", "", services.ErrTimeout), services.KindRecoverable},
		{"wrapped persistence", fmt.Errorf("outer: %w", services.Wrap(services.ErrPersistence, "", "", "", nil)), services.KindFatal},
		{"plain", errors.New("io"), services.KindRecoverable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.Classify(tc.err); got != tc.want {
				t.Fatalf("Classify = %s, want %s", got, tc.want)
			}
		})
	}
	if services.IsFatal(nil) {
		t.Fatal("nil error must not be fatal")
	}
}
