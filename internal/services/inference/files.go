package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"swingcoach/internal/logging"
	"swingcoach/internal/services"
)

// File states reported by the service.
const (
	FileStateProcessing = "PROCESSING"
	FileStateActive     = "ACTIVE"
	FileStateFailed     = "FAILED"
)

// File is an uploaded media resource.
type File struct {
	Name     string `json:"name"`
	URI      string `json:"uri"`
	MimeType string `json:"mimeType"`
	State    string `json:"state"`
	Error    *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type uploadResponse struct {
	File File `json:"file"`
}

// uploadFile pushes the clip with a single raw upload request.
func (c *Client) uploadFile(ctx context.Context, path, mimeType string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("stat upload: %w", err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("upload %s: is a directory", path)
	}
	if mimeType == "" {
		mimeType = videoMimeType(path)
	}

	body, err := c.doWithRetry(ctx, "upload", func() (*http.Request, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open upload: %w", err)
		}
		req, err := c.newRequest(ctx, http.MethodPost, "/upload/v1beta/files", f)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		req.ContentLength = info.Size()
		req.Header.Set("Content-Type", mimeType)
		req.Header.Set("X-Goog-Upload-Protocol", "raw")
		req.Header.Set("X-Goog-Upload-Header-Content-Length", strconv.FormatInt(info.Size(), 10))
		req.Header.Set("X-Goog-Upload-Header-Content-Type", mimeType)
		return req, nil
	})
	if err != nil {
		return File{}, err
	}
	var parsed uploadResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return File{}, fmt.Errorf("decode upload response: %w", err)
	}
	if parsed.File.Name == "" {
		return File{}, errors.New("upload response missing file name")
	}
	if parsed.File.MimeType == "" {
		parsed.File.MimeType = mimeType
	}
	return parsed.File, nil
}

func (c *Client) getFile(ctx context.Context, name string) (File, error) {
	body, err := c.doWithRetry(ctx, "poll", func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodGet, "/v1beta/"+name, nil)
	})
	if err != nil {
		return File{}, err
	}
	var file File
	if err := json.Unmarshal(body, &file); err != nil {
		return File{}, fmt.Errorf("decode file status: %w", err)
	}
	return file, nil
}

// waitForActive polls the uploaded file until it is ready for inference. It
// returns immediately on ACTIVE, fails on FAILED, and gives up once MaxWait
// has elapsed.
func (c *Client) waitForActive(ctx context.Context, file File) (File, error) {
	started := time.Now()
	waitCtx, cancel := context.WithTimeout(ctx, c.cfg.MaxWait)
	defer cancel()

	outcome := "canceled"
	defer func() {
		if c.observePoll != nil {
			c.observePoll(time.Since(started), outcome)
		}
	}()

	current := file
	for polls := 0; ; polls++ {
		switch strings.ToUpper(current.State) {
		case FileStateActive:
			outcome = "active"
			c.logger.Debug("uploaded clip ready",
				logging.String("file", current.Name),
				logging.Int("polls", polls),
				logging.Duration("wait", time.Since(started).Round(time.Millisecond)),
			)
			return current, nil
		case FileStateFailed:
			outcome = "failed"
			reason := "service reported processing failure"
			if current.Error != nil && strings.TrimSpace(current.Error.Message) != "" {
				reason = strings.TrimSpace(current.Error.Message)
			}
			return current, services.Wrap(services.ErrAnalysisUnavailable, stageName, "poll", reason, nil)
		}

		timer := time.NewTimer(c.cfg.PollInterval)
		select {
		case <-waitCtx.Done():
			timer.Stop()
			if ctx.Err() != nil {
				return current, ctx.Err()
			}
			outcome = "timeout"
			return current, services.Wrap(
				services.ErrAnalysisUnavailable,
				stageName,
				"poll",
				fmt.Sprintf("clip not ready after %s (state %s)", c.cfg.MaxWait, current.State),
				services.ErrTimeout,
			)
		case <-timer.C:
		}

		next, err := c.getFile(waitCtx, current.Name)
		if err != nil {
			if waitCtx.Err() != nil && ctx.Err() == nil {
				outcome = "timeout"
				return current, services.Wrap(services.ErrAnalysisUnavailable, stageName, "poll", "clip not ready before deadline", services.ErrTimeout)
			}
			outcome = "failed"
			return current, err
		}
		current = next
	}
}

// deleteFile removes an uploaded file. Failures are logged and otherwise
// ignored; the service expires uploads on its own.
func (c *Client) deleteFile(name string) {
	if name == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	req, err := c.newRequest(ctx, http.MethodDelete, "/v1beta/"+name, nil)
	if err == nil {
		_, err = c.sendOnce(req)
	}
	if err != nil {
		c.logger.Debug("uploaded clip cleanup failed", logging.String("file", name), logging.Error(err))
	}
}

func videoMimeType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".webm":
		return "video/webm"
	}
	if guessed := mime.TypeByExtension(ext); strings.HasPrefix(guessed, "video/") {
		return guessed
	}
	return "video/mp4"
}
