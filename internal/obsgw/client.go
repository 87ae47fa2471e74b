package obsgw

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/andreykaipov/goobs"
	"github.com/andreykaipov/goobs/api/requests/inputs"
	"github.com/andreykaipov/goobs/api/requests/sources"

	"clipmark/internal/logging"
)

// Client is the goobs-backed Gateway implementation. All requests serialize
// through one mutex: obs-websocket is a single logical connection and the
// two detector loops must never interleave calls on it.
type Client struct {
	mu     sync.Mutex
	obs    *goobs.Client
	logger *slog.Logger
}

// Connect dials obs-websocket and returns a ready client.
func Connect(host string, port int, password string, logger *slog.Logger) (*Client, error) {
	obs, err := goobs.New(fmt.Sprintf("%s:%d", host, port), goobs.WithPassword(password))
	if err != nil {
		return nil, fmt.Errorf("connect obs-websocket: %w", err)
	}
	return &Client{
		obs:    obs,
		logger: logging.WithComponent(logger, "obs-gateway"),
	}, nil
}

// Close disconnects from obs-websocket.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.obs.Disconnect()
}

// CaptureScreenshot tries the embedded-image request first and falls back to
// asking OBS to save the file itself. Both paths end with destPath written.
func (c *Client) CaptureScreenshot(ctx context.Context, sourceName, destPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	resp, err := c.obs.Sources.GetSourceScreenshot(
		sources.NewGetSourceScreenshotParams().
			WithSourceName(sourceName).
			WithImageFormat("png"),
	)
	c.mu.Unlock()
	if err == nil {
		if writeErr := writeImageData(resp.ImageData, destPath); writeErr == nil {
			return nil
		} else {
			c.logger.Debug("embedded screenshot unusable, trying save-to-file",
				logging.Error(writeErr))
		}
	}

	c.mu.Lock()
	_, saveErr := c.obs.Sources.SaveSourceScreenshot(
		sources.NewSaveSourceScreenshotParams().
			WithSourceName(sourceName).
			WithImageFormat("png").
			WithImageFilePath(destPath),
	)
	c.mu.Unlock()
	if saveErr != nil {
		return fmt.Errorf("%w: %s: %v", ErrCapture, sourceName, saveErr)
	}
	if info, statErr := os.Stat(destPath); statErr != nil || info.Size() == 0 {
		return fmt.Errorf("%w: %s: no image written", ErrCapture, sourceName)
	}
	return nil
}

// StartRecording negotiates the start request: the dedicated call first, a
// status-guarded toggle as fallback.
func (c *Client) StartRecording(ctx context.Context) (MethodUsed, error) {
	if err := ctx.Err(); err != nil {
		return MethodNone, err
	}

	c.mu.Lock()
	_, err := c.obs.Record.StartRecord()
	c.mu.Unlock()
	if err == nil {
		return MethodStartRecord, nil
	}
	c.logger.Debug("start-record request failed, trying toggle", logging.Error(err))

	if c.RecordingStatus(ctx) == StatusRecording {
		// The start failed because recording is already live.
		return MethodStartRecord, nil
	}

	c.mu.Lock()
	_, toggleErr := c.obs.Record.ToggleRecord()
	c.mu.Unlock()
	if toggleErr != nil {
		return MethodNone, fmt.Errorf("start recording: %w", err)
	}
	return MethodToggleRecord, nil
}

// StopRecording negotiates the stop request the same way.
func (c *Client) StopRecording(ctx context.Context) (MethodUsed, error) {
	if err := ctx.Err(); err != nil {
		return MethodNone, err
	}

	c.mu.Lock()
	_, err := c.obs.Record.StopRecord()
	c.mu.Unlock()
	if err == nil {
		return MethodStopRecord, nil
	}
	c.logger.Debug("stop-record request failed, trying toggle", logging.Error(err))

	if c.RecordingStatus(ctx) == StatusNotRecording {
		return MethodStopRecord, nil
	}

	c.mu.Lock()
	_, toggleErr := c.obs.Record.ToggleRecord()
	c.mu.Unlock()
	if toggleErr != nil {
		return MethodNone, fmt.Errorf("stop recording: %w", err)
	}
	return MethodToggleRecord, nil
}

// RecordingStatus maps the record-status request onto the tri-state enum.
// Request failures are Unknown, not NotRecording.
func (c *Client) RecordingStatus(ctx context.Context) RecordStatus {
	if ctx.Err() != nil {
		return StatusUnknown
	}

	c.mu.Lock()
	resp, err := c.obs.Record.GetRecordStatus()
	c.mu.Unlock()
	if err != nil {
		c.logger.Debug("record status unavailable", logging.Error(err))
		return StatusUnknown
	}
	if resp.OutputActive {
		return StatusRecording
	}
	return StatusNotRecording
}

// UpdateText replaces the text of a text source. Failures are the caller's
// to log; nothing here is fatal.
func (c *Client) UpdateText(ctx context.Context, sourceName, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.obs.Inputs.SetInputSettings(
		inputs.NewSetInputSettingsParams().
			WithInputName(sourceName).
			WithInputSettings(map[string]any{"text": text}),
	)
	if err != nil {
		return fmt.Errorf("update text source %q: %w", sourceName, err)
	}
	return nil
}

// writeImageData decodes a base64 screenshot payload (with or without a data
// URI prefix) and writes it to destPath.
func writeImageData(data, destPath string) error {
	trimmed := strings.TrimSpace(data)
	if trimmed == "" {
		return fmt.Errorf("%w: empty image data", ErrCapture)
	}
	if idx := strings.IndexByte(trimmed, ','); idx >= 0 && strings.HasPrefix(strings.ToLower(trimmed), "data:image") {
		trimmed = trimmed[idx+1:]
	}
	if pad := len(trimmed) % 4; pad != 0 {
		trimmed += strings.Repeat("=", 4-pad)
	}
	raw, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		return fmt.Errorf("%w: decode image data: %v", ErrCapture, err)
	}
	if dir := filepath.Dir(destPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(destPath, raw, 0o644)
}
