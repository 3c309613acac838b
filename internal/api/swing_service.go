package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"swingcoach/internal/analysis"
	"swingcoach/internal/fileutil"
	"swingcoach/internal/logging"
	"swingcoach/internal/pipeline"
	"swingcoach/internal/services"
	"swingcoach/internal/swings"
)

// SwingStore abstracts the persistence operations the service needs.
type SwingStore interface {
	Create(ctx context.Context, in swings.NewSwing) (*swings.Swing, error)
	Get(ctx context.Context, id string) (*swings.Swing, error)
	List(ctx context.Context, opts swings.ListOptions) ([]swings.Summary, error)
	Detail(ctx context.Context, id string) (*swings.Detail, error)
	ToggleFavorite(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) (*swings.Swing, error)
	ResetForReprocess(ctx context.Context, id string) (*swings.Swing, error)
	UpsertLaunchMonitor(ctx context.Context, swingID string, reading analysis.LaunchMonitorReading) error
}

// Scheduler starts pipeline runs in the background.
type Scheduler interface {
	Submit(swingID string) error
	Running(swingID string) bool
}

// LaunchMonitorReader extracts ball-flight numbers from a screenshot.
type LaunchMonitorReader interface {
	ReadLaunchMonitor(ctx context.Context, image []byte, mimeType string) (analysis.LaunchMonitorReading, error)
}

// UploadRequest carries a new swing clip and its metadata.
type UploadRequest struct {
	Video    io.Reader
	Filename string
	Club     string
	PlayerID string
}

// SwingService implements the caller-facing swing operations.
type SwingService struct {
	store     SwingStore
	scheduler Scheduler
	reader    LaunchMonitorReader
	mediaDir  string
	logger    *slog.Logger
}

// NewSwingService constructs a SwingService. Uploaded clips are written to
// mediaDir.
func NewSwingService(store SwingStore, scheduler Scheduler, reader LaunchMonitorReader, mediaDir string, logger *slog.Logger) *SwingService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &SwingService{
		store:     store,
		scheduler: scheduler,
		reader:    reader,
		mediaDir:  mediaDir,
		logger:    logging.NewComponentLogger(logger, "swing-service"),
	}
}

var videoExtensions = map[string]struct{}{
	".mp4": {}, ".mov": {}, ".m4v": {}, ".avi": {}, ".mkv": {}, ".webm": {}, ".3gp": {},
}

func uploadExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
	if _, ok := videoExtensions[ext]; ok {
		return ext
	}
	return ".mp4"
}

func invalid(op, message string, err error) error {
	return services.Wrap(services.ErrValidation, "api", op, message, err)
}

// Upload validates the request, stores the clip, records the swing and
// starts its pipeline run. The swing ID is returned as soon as the run is
// scheduled.
func (s *SwingService) Upload(ctx context.Context, req UploadRequest) (UploadResponse, error) {
	if req.Video == nil {
		return UploadResponse{}, invalid("upload", "video is required", nil)
	}
	club, err := analysis.ParseClub(req.Club)
	if err != nil {
		return UploadResponse{}, invalid("upload", "", err)
	}
	playerID := strings.TrimSpace(req.PlayerID)
	if playerID == "" {
		return UploadResponse{}, invalid("upload", "player id is required", nil)
	}

	id := uuid.NewString()
	path := filepath.Join(s.mediaDir, id+uploadExtension(req.Filename))
	written, err := fileutil.SaveStream(path, req.Video)
	if err != nil {
		_ = fileutil.RemoveIfExists(path)
		return UploadResponse{}, services.Wrap(services.ErrPersistence, "api", "upload", "save video", err)
	}
	if written == 0 {
		_ = fileutil.RemoveIfExists(path)
		return UploadResponse{}, invalid("upload", "video is empty", nil)
	}

	swing, err := s.store.Create(ctx, swings.NewSwing{ID: id, PlayerID: playerID, Club: string(club), VideoPath: path})
	if err != nil {
		_ = fileutil.RemoveIfExists(path)
		return UploadResponse{}, err
	}
	logger := logging.WithContext(ctx, s.logger).With(logging.String(logging.FieldSwingID, swing.ID))
	logger.Info("swing uploaded",
		logging.String(logging.FieldEventType, "swing_uploaded"),
		logging.String("club", string(swing.Club)),
		logging.String("player_id", swing.PlayerID),
		logging.Int64("bytes", written),
	)

	if err := s.scheduler.Submit(swing.ID); err != nil {
		logging.WarnWithContext(logger, "pipeline run not scheduled", "run_not_scheduled",
			logging.String(logging.FieldErrorHint, "reprocess the swing once the daemon is running"),
			logging.String(logging.FieldImpact, "swing stays in created"),
			logging.Error(err),
		)
		return UploadResponse{ID: swing.ID, Status: string(swing.Status)}, fmt.Errorf("schedule swing %s: %w", swing.ID, err)
	}
	return UploadResponse{ID: swing.ID, Status: string(swing.Status)}, nil
}

// List returns swing summaries newest first.
func (s *SwingService) List(ctx context.Context, opts swings.ListOptions) ([]SwingSummary, error) {
	items, err := s.store.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	return FromSummaries(items), nil
}

// Get returns the swing with its analysis, roadmaps and launch monitor
// reading.
func (s *SwingService) Get(ctx context.Context, id string) (SwingDetail, error) {
	detail, err := s.store.Detail(ctx, id)
	if err != nil {
		return SwingDetail{}, err
	}
	return FromDetail(detail), nil
}

// ToggleFavorite flips the favorite flag.
func (s *SwingService) ToggleFavorite(ctx context.Context, id string) (FavoriteResponse, error) {
	favorite, err := s.store.ToggleFavorite(ctx, id)
	if err != nil {
		return FavoriteResponse{}, err
	}
	return FavoriteResponse{ID: id, Favorite: favorite}, nil
}

// Delete removes the swing and its dependent records, then its media file.
// A swing with a run in flight cannot be deleted. Failing to remove the
// media file is logged and does not fail the call.
func (s *SwingService) Delete(ctx context.Context, id string) error {
	if s.scheduler.Running(id) {
		return pipeline.ErrRunInProgress
	}
	swing, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	logger := logging.WithContext(ctx, s.logger).With(logging.String(logging.FieldSwingID, id))
	if err := fileutil.RemoveIfExists(swing.VideoPath); err != nil {
		logging.WarnWithContext(logger, "failed to remove swing video", "cleanup_failed",
			logging.String(logging.FieldImpact, "video file left on disk"),
			logging.String("path", swing.VideoPath),
			logging.Error(err),
		)
	}
	logger.Info("swing deleted", logging.String(logging.FieldEventType, "swing_deleted"))
	return nil
}

// Reprocess clears the swing's analysis and runs the pipeline again from
// its persisted media.
func (s *SwingService) Reprocess(ctx context.Context, id string) (UploadResponse, error) {
	if s.scheduler.Running(id) {
		return UploadResponse{}, pipeline.ErrRunInProgress
	}
	swing, err := s.store.ResetForReprocess(ctx, id)
	if err != nil {
		return UploadResponse{}, err
	}
	if err := s.scheduler.Submit(swing.ID); err != nil {
		return UploadResponse{ID: swing.ID, Status: string(swing.Status)}, fmt.Errorf("schedule swing %s: %w", swing.ID, err)
	}
	logging.WithContext(ctx, s.logger).Info("swing queued for reprocessing",
		logging.String(logging.FieldSwingID, swing.ID),
		logging.String(logging.FieldEventType, "swing_reprocess"),
	)
	return UploadResponse{ID: swing.ID, Status: string(swing.Status)}, nil
}

// AttachLaunchMonitor reads a launch monitor screenshot and stores the
// reading for the swing, replacing any previous one.
func (s *SwingService) AttachLaunchMonitor(ctx context.Context, id string, image []byte, mimeType string) (LaunchMonitor, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return LaunchMonitor{}, err
	}
	if s.reader == nil {
		return LaunchMonitor{}, services.Wrap(services.ErrAnalysisUnavailable, "api", "launch monitor", "no reader configured", nil)
	}
	reading, err := s.reader.ReadLaunchMonitor(ctx, image, mimeType)
	if err != nil {
		return LaunchMonitor{}, err
	}
	if reading.Empty() {
		logging.WithContext(ctx, s.logger).Warn("launch monitor screenshot had no legible values", logging.String(logging.FieldSwingID, id))
	}
	if err := s.store.UpsertLaunchMonitor(ctx, id, reading); err != nil {
		return LaunchMonitor{}, err
	}
	stored := FromReading(&reading)
	return *stored, nil
}

// IsConflict reports whether err means the swing is busy.
func IsConflict(err error) bool {
	return errors.Is(err, pipeline.ErrRunInProgress) || errors.Is(err, swings.ErrInvalidTransition)
}
