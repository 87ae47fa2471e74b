// Package recorder drives the recording lifecycle: watch for the start cue,
// command the recording on with a confirmation budget, hold through a guard
// period, watch for the stop cue, and hand the closed window to the pairer.
package recorder

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"clipmark/internal/config"
	"clipmark/internal/events"
	"clipmark/internal/logging"
	"clipmark/internal/matcher"
	"clipmark/internal/obsgw"
)

// SessionStore persists recording sessions. Satisfied by *store.Store; nil
// disables session history.
type SessionStore interface {
	OpenSession(ctx context.Context, startedAt time.Time, startMethod string) (string, error)
	CloseSession(ctx context.Context, id string, endedAt time.Time, stopMethod string, forced bool) error
}

// WindowFunc receives each closed recording window. forced marks windows
// closed by daemon shutdown rather than a stop cue.
type WindowFunc func(ctx context.Context, sessionID string, start, end time.Time, forced bool)

// Controller is the recording lifecycle loop. Two states, Idle and Recording;
// Run owns all mutable state.
type Controller struct {
	gateway       obsgw.Gateway
	match         matcher.Matcher
	bus           *events.Bus
	sessions      SessionStore
	onWindow      WindowFunc
	logger        *slog.Logger
	captureSource string
	scenePath     string

	startTemplatePath string
	stopTemplatePath  string
	startRegion       image.Rectangle
	stopRegion        image.Rectangle
	startThreshold    float64
	stopThreshold     float64

	interval        time.Duration
	confirmAttempts int
	confirmDelay    time.Duration
	guard           time.Duration
	assumeStart     bool

	startTemplate image.Image
	stopTemplate  image.Image

	recording bool
	startedAt time.Time
	sessionID string

	now func() time.Time
}

// New builds the controller.
func New(cfg *config.Config, gw obsgw.Gateway, m matcher.Matcher, bus *events.Bus, sessions SessionStore, onWindow WindowFunc, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = logging.NewNop()
	}
	rec := cfg.Recording
	return &Controller{
		gateway:           gw,
		match:             m,
		bus:               bus,
		sessions:          sessions,
		onWindow:          onWindow,
		logger:            logging.WithComponent(logger, "recorder"),
		captureSource:     cfg.OBS.CaptureSource,
		scenePath:         filepath.Join(cfg.Paths.StateDir, "recorder_scene.png"),
		startTemplatePath: cfg.TemplatePath(rec.StartTemplate),
		stopTemplatePath:  cfg.TemplatePath(rec.StopTemplate),
		startRegion:       rec.StartRegion.Rect(),
		stopRegion:        rec.StopRegion.Rect(),
		startThreshold:    rec.StartThreshold,
		stopThreshold:     rec.StopThreshold,
		interval:          time.Duration(rec.PollIntervalMS) * time.Millisecond,
		confirmAttempts:   rec.ConfirmAttempts,
		confirmDelay:      time.Duration(rec.ConfirmDelayMS) * time.Millisecond,
		guard:             time.Duration(rec.GuardSeconds) * time.Second,
		assumeStart:       rec.AssumeStart,
		now:               time.Now,
	}
}

// Recording reports whether the controller believes a recording is live.
func (c *Controller) Recording() bool {
	return c.recording
}

// Run polls until ctx is cancelled. If a recording is still live on shutdown
// it is force-stopped and its window handed off before returning.
func (c *Controller) Run(ctx context.Context) {
	c.logger.Info("recording controller started")
	defer c.logger.Info("recording controller stopped")

	timer := time.NewTimer(c.interval)
	defer timer.Stop()
	for {
		c.poll(ctx)
		timer.Reset(c.interval)
		select {
		case <-ctx.Done():
			if c.recording {
				c.logger.Info("shutdown while recording, forcing stop")
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
				c.stopRecording(shutdownCtx, true)
				cancel()
			}
			return
		case <-timer.C:
		}
	}
}

func (c *Controller) poll(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := c.gateway.CaptureScreenshot(ctx, c.captureSource, c.scenePath); err != nil {
		c.logger.Debug("screenshot failed, skipping poll", logging.Error(err))
		return
	}
	scene, err := loadScene(c.scenePath)
	if err != nil {
		c.logger.Debug("scene unreadable, skipping poll", logging.Error(err))
		return
	}

	if !c.recording {
		if c.cueMatches(scene, &c.startTemplate, c.startTemplatePath, c.startRegion, c.startThreshold) {
			c.logger.Info("start cue detected")
			c.startRecording(ctx)
		}
		return
	}
	if c.cueMatches(scene, &c.stopTemplate, c.stopTemplatePath, c.stopRegion, c.stopThreshold) {
		c.logger.Info("stop cue detected")
		c.stopRecording(ctx, false)
	}
}

// cueMatches evaluates one cue region. The template is loaded lazily and
// retried every poll so dropping the file in later just works.
func (c *Controller) cueMatches(scene image.Image, template *image.Image, path string, region image.Rectangle, threshold float64) bool {
	if region.Empty() || !region.In(scene.Bounds()) {
		return false
	}
	if *template == nil {
		tpl, err := matcher.LoadTemplate(path)
		if err != nil {
			c.logger.Debug("cue template unavailable", logging.Error(err))
			return false
		}
		*template = tpl
	}
	ok, err := c.match.Match(matcher.Crop(scene, region), *template, threshold)
	if err != nil {
		c.logger.Debug("cue match failed", logging.Error(err))
		return false
	}
	return ok
}

// startRecording issues the start command with a confirmation budget, retries
// the command once, and enters Recording on confirmed (or assumed) start. A
// confirmed start is followed by the guard sleep, during which stop detection
// is suppressed; the sleep aborts promptly on cancellation.
func (c *Controller) startRecording(ctx context.Context) {
	method, err := c.gateway.StartRecording(ctx)
	if err != nil {
		c.logger.Warn("start command failed", logging.Error(err))
	}

	confirmed, allUnknown := c.awaitStatus(ctx, obsgw.StatusRecording)
	if !confirmed && ctx.Err() == nil {
		c.logger.Warn("start unconfirmed, retrying start command")
		if m, retryErr := c.gateway.StartRecording(ctx); retryErr == nil {
			method = m
		}
		var retryAllUnknown bool
		confirmed, retryAllUnknown = c.awaitStatus(ctx, obsgw.StatusRecording)
		allUnknown = allUnknown && retryAllUnknown
	}
	if ctx.Err() != nil {
		return
	}

	if !confirmed {
		if !(c.assumeStart && allUnknown) {
			c.logger.Warn("recording start not confirmed, staying idle")
			return
		}
		c.logger.Warn("recording status unknown, assuming started",
			logging.String(logging.FieldMethod, string(method)))
	}

	c.recording = true
	c.startedAt = c.now()
	c.sessionID = ""
	if c.sessions != nil {
		id, err := c.sessions.OpenSession(ctx, c.startedAt, string(method))
		if err != nil {
			c.logger.Warn("session row not recorded", logging.Error(err))
		} else {
			c.sessionID = id
		}
	}
	c.logger.Info("recording started",
		logging.String(logging.FieldMethod, string(method)),
		logging.String(logging.FieldSessionID, c.sessionID))

	if c.guard > 0 {
		c.logger.Debug("guard period begins", logging.Duration("guard", c.guard))
		c.sleep(ctx, c.guard)
	}
}

// stopRecording publishes the stop marker, issues the stop command with the
// same confirmation budget, and always closes the window.
func (c *Controller) stopRecording(ctx context.Context, forced bool) {
	end := c.now()

	// The marker goes out before the stop command so the association engine
	// can react even if the command itself fails.
	if !forced {
		if err := c.bus.Publish(events.StopMarker(end)); err != nil {
			c.logger.Warn("stop marker dropped", logging.Error(err))
		}
	}

	method, err := c.gateway.StopRecording(ctx)
	if err != nil {
		c.logger.Warn("stop command failed", logging.Error(err))
	}

	confirmed, _ := c.awaitStatus(ctx, obsgw.StatusNotRecording)
	if !confirmed && ctx.Err() == nil {
		c.logger.Warn("stop unconfirmed, retrying stop command")
		if m, retryErr := c.gateway.StopRecording(ctx); retryErr == nil {
			method = m
		}
		confirmed, _ = c.awaitStatus(ctx, obsgw.StatusNotRecording)
	}
	if !confirmed {
		c.logger.Warn("recording stop not confirmed, closing window anyway")
	}

	c.recording = false
	if c.sessions != nil && c.sessionID != "" {
		if err := c.sessions.CloseSession(ctx, c.sessionID, end, string(method), forced); err != nil {
			c.logger.Warn("session row not closed", logging.Error(err))
		}
	}
	c.logger.Info("recording stopped",
		logging.String(logging.FieldMethod, string(method)),
		logging.String(logging.FieldSessionID, c.sessionID),
		logging.Duration("window", end.Sub(c.startedAt)))

	if c.onWindow != nil {
		c.onWindow(ctx, c.sessionID, c.startedAt, end, forced)
	}
	c.sessionID = ""
}

// awaitStatus polls the gateway until it reports want, the budget runs out or
// ctx is cancelled. allUnknown reports whether every poll answered Unknown,
// which gates the assume-start override.
func (c *Controller) awaitStatus(ctx context.Context, want obsgw.RecordStatus) (confirmed, allUnknown bool) {
	allUnknown = true
	for attempt := 0; attempt < c.confirmAttempts; attempt++ {
		if ctx.Err() != nil {
			return false, allUnknown
		}
		status := c.gateway.RecordingStatus(ctx)
		if status != obsgw.StatusUnknown {
			allUnknown = false
		}
		if status == want {
			return true, allUnknown
		}
		if !c.sleep(ctx, c.confirmDelay) {
			return false, allUnknown
		}
	}
	return false, allUnknown
}

// sleep waits for d or cancellation; false means cancelled.
func (c *Controller) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func loadScene(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode scene: %w", err)
	}
	return img, nil
}
