package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"swingcoach/internal/api"
	"swingcoach/internal/config"
	"swingcoach/internal/logging"
	"swingcoach/internal/metrics"
	"swingcoach/internal/pipeline"
	"swingcoach/internal/services"
	"swingcoach/internal/swings"
)

const (
	// maxUploadBytes bounds a multipart swing upload.
	maxUploadBytes = 1 << 30
	// maxImageBytes bounds a launch monitor screenshot.
	maxImageBytes = 20 << 20
	// multipartMemory is kept in memory before parts spill to disk.
	multipartMemory = 32 << 20

	requestIDHeader = "X-Request-ID"
)

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  statusProvider
	service *api.SwingService
	metrics *metrics.Manager

	listener net.Listener
	server   *http.Server
}

type statusProvider interface {
	Status(ctx context.Context) api.DaemonStatus
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, errors.New("api server requires config and daemon")
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, errors.New("paths.api_bind is empty")
	}
	srv := &apiServer{
		bind:    bind,
		logger:  logger,
		daemon:  d,
		service: d.service,
		metrics: d.metrics,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(cfg.Paths.APIToken),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) routes(token string) http.Handler {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /api/status", s.handleStatus)
	apiMux.HandleFunc("POST /api/swings", s.handleUpload)
	apiMux.HandleFunc("GET /api/swings", s.handleList)
	apiMux.HandleFunc("GET /api/swings/{id}", s.handleGet)
	apiMux.HandleFunc("DELETE /api/swings/{id}", s.handleDelete)
	apiMux.HandleFunc("POST /api/swings/{id}/favorite", s.handleFavorite)
	apiMux.HandleFunc("POST /api/swings/{id}/reprocess", s.handleReprocess)
	apiMux.HandleFunc("POST /api/swings/{id}/launch-monitor", s.handleLaunchMonitor)

	root := http.NewServeMux()
	root.Handle("/api/", authMiddleware(token, s.writeError, apiMux))
	root.Handle("GET /metrics", s.metrics.Handler())
	return s.instrument(root)
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) address() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument tags each request with a correlation ID and records request
// counts and latency per matched route pattern.
func (s *apiServer) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)
		r = r.WithContext(services.WithRequestID(r.Context(), requestID))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.metrics.ObserveHTTPRequest(route, r.Method, rec.status, time.Since(started))
	})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart upload: "+err.Error())
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	req := api.UploadRequest{
		Club:     r.FormValue("club"),
		PlayerID: r.FormValue("player_id"),
	}
	file, header, err := r.FormFile("video")
	switch {
	case err == nil:
		defer file.Close()
		req.Video = file
		req.Filename = header.Filename
	case !errors.Is(err, http.ErrMissingFile):
		s.writeError(w, http.StatusBadRequest, "invalid video part: "+err.Error())
		return
	}

	resp, err := s.service.Upload(r.Context(), req)
	if err != nil && resp.ID == "" {
		s.writeServiceError(w, err)
		return
	}
	if err != nil {
		s.log().Warn("upload accepted without a pipeline run", logging.String(logging.FieldSwingID, resp.ID), logging.Error(err))
	}
	s.writeJSON(w, http.StatusAccepted, resp)
}

func (s *apiServer) handleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	opts := swings.ListOptions{
		PlayerID:      strings.TrimSpace(query.Get("player_id")),
		FavoritesOnly: query.Get("favorites") == "1" || strings.EqualFold(query.Get("favorites"), "true"),
	}
	if limit, err := strconv.Atoi(query.Get("limit")); err == nil && limit > 0 {
		opts.Limit = limit
	}
	items, err := s.service.List(r.Context(), opts)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SwingListResponse{Swings: items})
}

func (s *apiServer) handleGet(w http.ResponseWriter, r *http.Request) {
	detail, err := s.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, detail)
}

func (s *apiServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleFavorite(w http.ResponseWriter, r *http.Request) {
	resp, err := s.service.ToggleFavorite(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleReprocess(w http.ResponseWriter, r *http.Request) {
	resp, err := s.service.Reprocess(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, resp)
}

func (s *apiServer) handleLaunchMonitor(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+(1<<20))
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart upload: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "image is required")
		return
	}
	defer file.Close()
	image, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "read image: "+err.Error())
		return
	}
	if len(image) > maxImageBytes {
		s.writeError(w, http.StatusRequestEntityTooLarge, "image exceeds 20 MiB")
		return
	}

	mimeType := imageType(header.Header.Get("Content-Type"), image)
	reading, err := s.service.AttachLaunchMonitor(r.Context(), r.PathValue("id"), image, mimeType)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, reading)
}

// imageType prefers the declared part type and sniffs the bytes otherwise.
func imageType(declared string, data []byte) string {
	if mediaType, _, err := mime.ParseMediaType(declared); err == nil && strings.HasPrefix(mediaType, "image/") {
		return mediaType
	}
	sniffed, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return sniffed
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case api.IsConflict(err):
		return http.StatusConflict
	case errors.Is(err, pipeline.ErrRunnerStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrAnalysisUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log().Error("api request failed", logging.Error(err))
	}
	s.writeJSON(w, status, api.ErrorResponse{Error: err.Error(), Kind: string(services.Classify(err))})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
