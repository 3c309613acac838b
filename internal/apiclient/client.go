package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"swingcoach/internal/api"
)

// ErrAPIUnavailable is returned when no daemon address is configured.
var ErrAPIUnavailable = errors.New("swingcoach API unavailable")

// Client talks to the daemon HTTP API.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithToken sends the bearer token on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// New builds a client for bind, which may be a host:port or a full URL. An
// empty bind yields a nil client whose methods return ErrAPIUnavailable.
func New(bind string, opts ...Option) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, nil
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, fmt.Errorf("parse api address: %w", err)
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	client := &Client{
		base: base,
		// No timeout: large uploads are bounded by the caller's context.
		http: &http.Client{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// StatusError is a non-2xx response from the daemon.
type StatusError struct {
	Code    int
	Message string
	Kind    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned status %d", e.Code)
	}
	return fmt.Sprintf("api returned status %d: %s", e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the daemon.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound
}

// IsAPIUnavailable reports whether err means the daemon could not be reached.
func IsAPIUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.Is(err, ErrAPIUnavailable) || errors.As(err, &opErr)
}

// UploadOptions describes a swing upload.
type UploadOptions struct {
	VideoPath string
	Club      string
	PlayerID  string
}

// Upload streams a clip to the daemon and returns the new swing ID.
func (c *Client) Upload(ctx context.Context, opts UploadOptions) (api.UploadResponse, error) {
	var out api.UploadResponse
	if c == nil {
		return out, ErrAPIUnavailable
	}
	body, contentType, err := multipartFile("video", opts.VideoPath, "", map[string]string{
		"club":      opts.Club,
		"player_id": opts.PlayerID,
	})
	if err != nil {
		return out, err
	}
	err = c.do(ctx, http.MethodPost, "/api/swings", nil, body, contentType, &out)
	return out, err
}

// ListOptions filters List.
type ListOptions struct {
	PlayerID      string
	FavoritesOnly bool
	Limit         int
}

// List returns swing summaries, newest first.
func (c *Client) List(ctx context.Context, opts ListOptions) ([]api.SwingSummary, error) {
	if c == nil {
		return nil, ErrAPIUnavailable
	}
	values := url.Values{}
	if strings.TrimSpace(opts.PlayerID) != "" {
		values.Set("player_id", opts.PlayerID)
	}
	if opts.FavoritesOnly {
		values.Set("favorites", "1")
	}
	if opts.Limit > 0 {
		values.Set("limit", strconv.Itoa(opts.Limit))
	}
	var out api.SwingListResponse
	if err := c.do(ctx, http.MethodGet, "/api/swings", values, nil, "", &out); err != nil {
		return nil, err
	}
	return out.Swings, nil
}

// Get returns the full detail of one swing.
func (c *Client) Get(ctx context.Context, id string) (api.SwingDetail, error) {
	var out api.SwingDetail
	if c == nil {
		return out, ErrAPIUnavailable
	}
	err := c.do(ctx, http.MethodGet, swingPath(id), nil, nil, "", &out)
	return out, err
}

// ToggleFavorite flips the favorite flag of a swing.
func (c *Client) ToggleFavorite(ctx context.Context, id string) (api.FavoriteResponse, error) {
	var out api.FavoriteResponse
	if c == nil {
		return out, ErrAPIUnavailable
	}
	err := c.do(ctx, http.MethodPost, swingPath(id)+"/favorite", nil, nil, "", &out)
	return out, err
}

// Delete removes a swing and its media.
func (c *Client) Delete(ctx context.Context, id string) error {
	if c == nil {
		return ErrAPIUnavailable
	}
	return c.do(ctx, http.MethodDelete, swingPath(id), nil, nil, "", nil)
}

// Reprocess schedules a fresh pipeline run for a swing.
func (c *Client) Reprocess(ctx context.Context, id string) (api.UploadResponse, error) {
	var out api.UploadResponse
	if c == nil {
		return out, ErrAPIUnavailable
	}
	err := c.do(ctx, http.MethodPost, swingPath(id)+"/reprocess", nil, nil, "", &out)
	return out, err
}

// AttachLaunchMonitor uploads a launch monitor screenshot for a swing.
func (c *Client) AttachLaunchMonitor(ctx context.Context, id, imagePath string) (api.LaunchMonitor, error) {
	var out api.LaunchMonitor
	if c == nil {
		return out, ErrAPIUnavailable
	}
	body, contentType, err := multipartFile("image", imagePath, imageContentType(imagePath), nil)
	if err != nil {
		return out, err
	}
	err = c.do(ctx, http.MethodPost, swingPath(id)+"/launch-monitor", nil, body, contentType, &out)
	return out, err
}

// Status returns the daemon status snapshot.
func (c *Client) Status(ctx context.Context) (api.DaemonStatus, error) {
	var out api.DaemonStatus
	if c == nil {
		return out, ErrAPIUnavailable
	}
	err := c.do(ctx, http.MethodGet, "/api/status", nil, nil, "", &out)
	return out, err
}

func swingPath(id string) string {
	return "/api/swings/" + url.PathEscape(strings.TrimSpace(id))
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, out any) error {
	endpoint := c.base.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		statusErr := &StatusError{Code: resp.StatusCode}
		var payload api.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&payload) == nil {
			statusErr.Message = payload.Error
			statusErr.Kind = payload.Kind
		}
		return statusErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// multipartFile builds a multipart body holding one file part plus fields.
// The whole file is buffered; clips are bounded by the daemon's upload limit.
func multipartFile(field, path, partType string, fields map[string]string) (*bytes.Buffer, string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, "", fmt.Errorf("%s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("write %s field: %w", key, err)
		}
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filepath.Base(path)))
	if partType == "" {
		partType = "application/octet-stream"
	}
	header.Set("Content-Type", partType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create %s part: %w", field, err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("write %s part: %w", field, err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}

func imageContentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".heic":
		return "image/heic"
	default:
		return ""
	}
}
