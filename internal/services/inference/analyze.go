package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"swingcoach/internal/analysis"
	"swingcoach/internal/logging"
	"swingcoach/internal/services"
)

// Request is a unit of analysis work. It is either a VideoJob or a
// MeasurementJob.
type Request interface {
	isRequest()
}

// VideoJob asks the service to derive checkpoints, angles and estimates from
// the clip itself.
type VideoJob struct {
	Path     string
	MimeType string
	Club     analysis.Club
}

// MeasurementJob asks only for estimates given locally extracted
// measurements. The measurements are returned unchanged.
type MeasurementJob struct {
	Measurements analysis.Measurements
	Club         analysis.Club
}

func (VideoJob) isRequest()       {}
func (MeasurementJob) isRequest() {}

// Response carries the measurement source and the estimates for one swing.
type Response struct {
	Measurements analysis.Measurements
	Estimates    analysis.Estimates
	Raw          string
}

// videoPayload is the model output for video analysis.
type videoPayload struct {
	analysis.Measurements
	analysis.Estimates
}

// Analyze runs the request to completion. All failures are tagged with
// services.ErrAnalysisUnavailable.
func (c *Client) Analyze(ctx context.Context, req Request) (Response, error) {
	switch job := req.(type) {
	case VideoJob:
		return c.analyzeVideo(ctx, job)
	case *VideoJob:
		return c.analyzeVideo(ctx, *job)
	case MeasurementJob:
		return c.analyzeMeasurements(ctx, job)
	case *MeasurementJob:
		return c.analyzeMeasurements(ctx, *job)
	default:
		return Response{}, services.Wrap(services.ErrValidation, stageName, "analyze", fmt.Sprintf("unsupported request %T", req), nil)
	}
}

func (c *Client) analyzeVideo(ctx context.Context, job VideoJob) (Response, error) {
	if err := c.requireKey("analyze video"); err != nil {
		return Response{}, err
	}
	if strings.TrimSpace(job.Path) == "" {
		return Response{}, services.Wrap(services.ErrValidation, stageName, "analyze video", "video path required", nil)
	}

	file, err := c.uploadFile(ctx, job.Path, job.MimeType)
	if err != nil {
		return Response{}, unavailable("upload", "clip upload failed", err)
	}
	defer c.deleteFile(file.Name)
	c.logger.Debug("clip uploaded", logging.String("file", file.Name), logging.String("state", file.State))

	ready, err := c.waitForActive(ctx, file)
	if err != nil {
		return Response{}, unavailable("poll", "clip never became ready", err)
	}

	text, err := c.generate(ctx, "analyze video", systemPrompt, filePart(ready), textPart(videoPrompt(job.Club)))
	if err != nil {
		return Response{}, unavailable("generate", "video analysis request failed", err)
	}
	var payload videoPayload
	if err := DecodeModelJSON(text, &payload); err != nil {
		return Response{}, unavailable("parse", "video analysis response was not valid JSON", err)
	}
	payload.Measurements.Source = analysis.SourceRemote
	return Response{
		Measurements: payload.Measurements,
		Estimates:    payload.Estimates,
		Raw:          text,
	}, nil
}

func (c *Client) analyzeMeasurements(ctx context.Context, job MeasurementJob) (Response, error) {
	if err := c.requireKey("analyze measurements"); err != nil {
		return Response{}, err
	}
	summary, err := json.MarshalIndent(job.Measurements, "", "  ")
	if err != nil {
		return Response{}, services.Wrap(services.ErrValidation, stageName, "analyze measurements", "encode measurements", err)
	}

	text, err := c.generate(ctx, "analyze measurements", systemPrompt, textPart(measurementPrompt(job.Club, string(summary))))
	if err != nil {
		return Response{}, unavailable("generate", "estimate request failed", err)
	}
	var estimates analysis.Estimates
	if err := DecodeModelJSON(text, &estimates); err != nil {
		return Response{}, unavailable("parse", "estimate response was not valid JSON", err)
	}
	return Response{
		Measurements: job.Measurements,
		Estimates:    estimates,
		Raw:          text,
	}, nil
}

// CoachingRequest is the input for roadmap generation.
type CoachingRequest struct {
	Club   analysis.Club
	Result analysis.Result
}

type coachingPayload struct {
	Roadmaps []analysis.RoadmapDraft `json:"roadmaps"`
}

// Coach requests the Ideal and Playable roadmaps for an analysed swing. The
// drafts are returned unvalidated; see analysis.BuildRoadmaps.
func (c *Client) Coach(ctx context.Context, req CoachingRequest) ([]analysis.RoadmapDraft, error) {
	if err := c.requireKey("coach"); err != nil {
		return nil, err
	}
	summary, err := json.MarshalIndent(req.Result, "", "  ")
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, stageName, "coach", "encode analysis", err)
	}
	text, err := c.generate(ctx, "coach", systemPrompt, textPart(coachingPrompt(req.Club, string(summary))))
	if err != nil {
		return nil, unavailable("coach", "coaching request failed", err)
	}

	var payload coachingPayload
	objErr := DecodeModelJSON(text, &payload)
	if objErr == nil && len(payload.Roadmaps) > 0 {
		return payload.Roadmaps, nil
	}
	var drafts []analysis.RoadmapDraft
	if err := DecodeModelJSON(text, &drafts); err == nil {
		return drafts, nil
	}
	if objErr == nil {
		return nil, nil
	}
	return nil, unavailable("coach", "coaching response was not valid JSON", objErr)
}

// ReadLaunchMonitor extracts ball-flight numbers from a launch monitor
// screenshot. Illegible fields come back nil.
func (c *Client) ReadLaunchMonitor(ctx context.Context, image []byte, mimeType string) (analysis.LaunchMonitorReading, error) {
	var empty analysis.LaunchMonitorReading
	if len(image) == 0 {
		return empty, services.Wrap(services.ErrValidation, stageName, "launch monitor", "image is empty", nil)
	}
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if !strings.HasPrefix(mimeType, "image/") {
		return empty, services.Wrap(services.ErrValidation, stageName, "launch monitor", fmt.Sprintf("unsupported image type %q", mimeType), nil)
	}
	if err := c.requireKey("launch monitor"); err != nil {
		return empty, err
	}

	text, err := c.generate(ctx, "launch monitor", systemPrompt, imagePart(image, mimeType), textPart(launchMonitorPrompt))
	if err != nil {
		return empty, unavailable("launch monitor", "screenshot request failed", err)
	}
	var reading analysis.LaunchMonitorReading
	if err := DecodeModelJSON(text, &reading); err != nil {
		return empty, unavailable("launch monitor", "screenshot response was not valid JSON", err)
	}
	for _, value := range []*float64{reading.BallSpeedMph, reading.ClubSpeedMph, reading.SpinRateRPM, reading.CarryYards, reading.TotalYards} {
		if value != nil && *value < 0 {
			return empty, unavailable("launch monitor", "negative reading", errors.New("speeds, spin and distances must be non-negative"))
		}
	}
	reading.SwingID = ""
	reading.CreatedAt = time.Time{}
	return reading, nil
}
