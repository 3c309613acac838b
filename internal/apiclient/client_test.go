package apiclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"swingcoach/internal/api"
	"swingcoach/internal/apiclient"
)

func TestNewEmptyBind(t *testing.T) {
	client, err := apiclient.New("")
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if client != nil {
		t.Fatal("expected nil client for empty bind")
	}
	if _, err := client.List(context.Background(), apiclient.ListOptions{}); !errors.Is(err, apiclient.ErrAPIUnavailable) {
		t.Fatalf("expected ErrAPIUnavailable from nil client, got %v", err)
	}
}

func TestUploadSendsMultipartAndToken(t *testing.T) {
	var gotAuth, gotClub, gotPlayer, gotName string
	var gotVideo []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/swings" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		gotClub = r.FormValue("club")
		gotPlayer = r.FormValue("player_id")
		file, header, err := r.FormFile("video")
		if err != nil {
			t.Errorf("video part: %v", err)
			return
		}
		defer file.Close()
		gotName = header.Filename
		gotVideo, _ = io.ReadAll(file)
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(api.UploadResponse{ID: "abc", Status: "created"})
	}))
	defer srv.Close()

	video := filepath.Join(t.TempDir(), "range.mp4")
	if err := os.WriteFile(video, []byte("clip"), 0o644); err != nil {
		t.Fatal(err)
	}

	client, err := apiclient.New(srv.URL, apiclient.WithToken(" tok "))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := client.Upload(context.Background(), apiclient.UploadOptions{VideoPath: video, Club: "driver", PlayerID: "p1"})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if resp.ID != "abc" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("expected bearer token, got %q", gotAuth)
	}
	if gotClub != "driver" || gotPlayer != "p1" || gotName != "range.mp4" || string(gotVideo) != "clip" {
		t.Fatalf("unexpected upload club=%q player=%q name=%q video=%q", gotClub, gotPlayer, gotName, gotVideo)
	}
}

func TestUploadMissingFile(t *testing.T) {
	client, _ := apiclient.New("127.0.0.1:1")
	_, err := client.Upload(context.Background(), apiclient.UploadOptions{VideoPath: filepath.Join(t.TempDir(), "nope.mp4"), Club: "driver"})
	if err == nil {
		t.Fatal("expected error for missing clip")
	}
	if apiclient.IsAPIUnavailable(err) {
		t.Fatal("missing local file is not an availability error")
	}
}

func TestListBuildsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("player_id") != "p1" || q.Get("favorites") != "1" || q.Get("limit") != "5" {
			t.Errorf("unexpected query %v", q)
		}
		_ = json.NewEncoder(w).Encode(api.SwingListResponse{Swings: []api.SwingSummary{{ID: "a"}, {ID: "b"}}})
	}))
	defer srv.Close()

	client, _ := apiclient.New(srv.URL)
	items, err := client.List(context.Background(), apiclient.ListOptions{PlayerID: "p1", FavoritesOnly: true, Limit: 5})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 || items[1].ID != "b" {
		t.Fatalf("unexpected items %+v", items)
	}
}

func TestErrorResponsesDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "swing not found", Kind: "validation"})
	}))
	defer srv.Close()

	client, _ := apiclient.New(srv.URL)
	_, err := client.Get(context.Background(), "missing")
	if !apiclient.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	var statusErr *apiclient.StatusError
	if !errors.As(err, &statusErr) || statusErr.Message != "swing not found" {
		t.Fatalf("expected decoded message, got %v", err)
	}
}

func TestDeleteAcceptsNoContent(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client, _ := apiclient.New(srv.URL)
	if err := client.Delete(context.Background(), "abc"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/api/swings/abc" {
		t.Fatalf("unexpected request %s %s", gotMethod, gotPath)
	}
}

func TestAttachLaunchMonitorDeclaresImageType(t *testing.T) {
	var gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/swings/abc/launch-monitor" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, header, err := r.FormFile("image")
		if err != nil {
			t.Errorf("image part: %v", err)
			return
		}
		gotType = header.Header.Get("Content-Type")
		speed := 150.0
		_ = json.NewEncoder(w).Encode(api.LaunchMonitor{BallSpeedMph: &speed})
	}))
	defer srv.Close()

	image := filepath.Join(t.TempDir(), "screen.PNG")
	if err := os.WriteFile(image, []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	client, _ := apiclient.New(srv.URL)
	reading, err := client.AttachLaunchMonitor(context.Background(), "abc", image)
	if err != nil {
		t.Fatalf("AttachLaunchMonitor: %v", err)
	}
	if gotType != "image/png" {
		t.Fatalf("expected image/png part, got %q", gotType)
	}
	if reading.BallSpeedMph == nil || *reading.BallSpeedMph != 150 {
		t.Fatalf("unexpected reading %+v", reading)
	}
}

func TestIsAPIUnavailable(t *testing.T) {
	client, _ := apiclient.New("127.0.0.1:1")
	_, err := client.Status(context.Background())
	if !apiclient.IsAPIUnavailable(err) {
		t.Fatalf("expected unavailable for refused connection, got %v", err)
	}
	if apiclient.IsAPIUnavailable(nil) {
		t.Fatal("nil error is not unavailable")
	}
	if apiclient.IsAPIUnavailable(&apiclient.StatusError{Code: 500}) {
		t.Fatal("status error is not unavailable")
	}
}
