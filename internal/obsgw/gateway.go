// Package obsgw wraps the obs-websocket connection behind the small gateway
// surface the detector loops consume: screenshots, recording control, a
// tri-state recording status, and best-effort text updates. The connection is
// one logical channel, so every call serializes through a single mutex.
package obsgw

import (
	"context"
	"errors"
)

// RecordStatus is the tri-state answer to "is OBS recording?". Unknown is a
// first-class outcome for backends that cannot answer, never an error and
// never silently coerced to NotRecording.
type RecordStatus int

const (
	StatusUnknown RecordStatus = iota
	StatusRecording
	StatusNotRecording
)

func (s RecordStatus) String() string {
	switch s {
	case StatusRecording:
		return "recording"
	case StatusNotRecording:
		return "not-recording"
	default:
		return "unknown"
	}
}

// MethodUsed names the request variant that served a start/stop call, for
// logging which capability the negotiation landed on.
type MethodUsed string

const (
	MethodStartRecord  MethodUsed = "start-record"
	MethodStopRecord   MethodUsed = "stop-record"
	MethodToggleRecord MethodUsed = "toggle-record"
	MethodNone         MethodUsed = ""
)

// ErrCapture marks a screenshot request that failed or returned no data.
// Transient: the calling loop logs it and skips the iteration.
var ErrCapture = errors.New("screenshot capture failed")

// Gateway is the capture/control surface the detector loops depend on.
type Gateway interface {
	// CaptureScreenshot writes a screenshot of the named source to destPath.
	CaptureScreenshot(ctx context.Context, sourceName, destPath string) error
	// StartRecording asks the backend to begin recording.
	StartRecording(ctx context.Context) (MethodUsed, error)
	// StopRecording asks the backend to finish recording.
	StopRecording(ctx context.Context) (MethodUsed, error)
	// RecordingStatus reports the tri-state recording state.
	RecordingStatus(ctx context.Context) RecordStatus
	// UpdateText replaces the text of the named source. Best-effort.
	UpdateText(ctx context.Context, sourceName, text string) error
}
