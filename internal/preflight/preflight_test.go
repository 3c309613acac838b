package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"swingcoach/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckInference_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if !strings.HasPrefix(r.URL.Path, "/v1beta/models/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"name":"models/test"}`))
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithInferenceURL(srv.URL))
	result := CheckInference(context.Background(), cfg)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckInference_BadKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`))
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithInferenceURL(srv.URL))
	result := CheckInference(context.Background(), cfg)
	if result.Passed {
		t.Fatal("expected failure for rejected key")
	}
}

func TestCheckInference_MissingKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Inference.APIKey = ""
	result := CheckInference(context.Background(), cfg)
	if result.Passed || result.Detail != "API key missing" {
		t.Fatalf("expected missing key failure, got %+v", result)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_RemoteConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Inference.APIKey = ""
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}

	results := RunAll(context.Background(), cfg)
	// data, media and log directories plus the inference check
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Inference service" {
		t.Fatalf("expected only the inference check to fail, got %+v", failed)
	}
}

func TestRunAll_LocalModeIncludesExtractor(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithLocalAnalysis("clearly-not-a-real-extractor"))
	cfg.Inference.APIKey = ""
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}

	results := RunAll(context.Background(), cfg)
	found := false
	for _, r := range results {
		if r.Name == "Pose extractor" {
			found = true
			if r.Passed {
				t.Fatal("expected missing extractor to fail")
			}
		}
	}
	if !found {
		t.Fatal("expected extractor check in results")
	}
}

func TestExtractorStatusFromConfig(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "pose_analysis.py")
	if err := os.WriteFile(script, []byte("print('{}')\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("python3"), testsupport.WithLocalAnalysis("python3", script))

	result := ExtractorStatusFromConfig(cfg)
	if !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}

	cfg.Extractor.Args = []string{filepath.Join(dir, "missing.py")}
	if result := ExtractorStatusFromConfig(cfg); result.Passed || !strings.Contains(result.Detail, "not found") {
		t.Fatalf("expected missing script failure, got %+v", result)
	}

	cfg.Analysis.Mode = "remote"
	if result := ExtractorStatusFromConfig(cfg); !result.Passed {
		t.Fatalf("remote mode should not require the extractor, got %+v", result)
	}
}

func TestCheckSystemDepsMarksExtractorRequiredInLocalMode(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithLocalAnalysis("clearly-not-a-real-extractor"))
	statuses := CheckSystemDeps(cfg)
	var extractorRequired bool
	for _, status := range statuses {
		if status.Name == "Pose extractor" {
			extractorRequired = !status.Optional
		}
		if status.Name == "FFmpeg" && !status.Optional {
			t.Fatal("ffmpeg is optional; transcode failures fall back")
		}
	}
	if !extractorRequired {
		t.Fatal("expected extractor to be required in local mode")
	}
}

func TestInferenceStatusFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if result := InferenceStatusFromConfig(cfg); !result.Passed {
		t.Fatalf("expected configured, got %+v", result)
	}
	cfg.Inference.APIKey = ""
	if result := InferenceStatusFromConfig(cfg); result.Passed {
		t.Fatal("expected missing key failure")
	}
}
