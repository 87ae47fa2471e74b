// Package classifier runs the battle-outcome detection loop. Each poll grabs
// a screenshot, evaluates the lose, disconnect and win regions against their
// templates in that priority order, and edge-triggers on label changes: a
// label that persists across polls counts once.
package classifier

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

// Counts holds the running outcome tallies shown in the text source.
type Counts struct {
	Win        int
	Lose       int
	Disconnect int
}

func (c *Counts) add(label events.Label) {
	switch label {
	case events.LabelWin:
		c.Win++
	case events.LabelLose:
		c.Lose++
	case events.LabelDisconnect:
		c.Disconnect++
	}
}

// Text renders the counters in the fixed overlay format.
func (c Counts) Text() string {
	return fmt.Sprintf("Win: %d - Lose: %d - DC: %d", c.Win, c.Lose, c.Disconnect)
}

type target struct {
	label        events.Label
	templatePath string
	region       image.Rectangle
	threshold    float64
	template     image.Image
}

// Classifier is the outcome-detection loop. Single goroutine; Run owns all
// mutable state.
type Classifier struct {
	gateway       obsgw.Gateway
	match         matcher.Matcher
	bus           *events.Bus
	logger        *slog.Logger
	captureSource string
	textSource    string
	scenePath     string
	interval      time.Duration

	// Priority order: lose, disconnect, win. First match wins.
	targets []*target

	previous events.Label
	counts   Counts

	now func() time.Time
}

// New builds the classifier. seed carries counters recovered from the ledger
// so totals survive restarts.
func New(cfg *config.Config, gw obsgw.Gateway, m matcher.Matcher, bus *events.Bus, seed Counts, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	out := cfg.Outcomes
	return &Classifier{
		gateway:       gw,
		match:         m,
		bus:           bus,
		logger:        logging.WithComponent(logger, "classifier"),
		captureSource: cfg.OBS.CaptureSource,
		textSource:    cfg.OBS.TextSource,
		scenePath:     filepath.Join(cfg.Paths.StateDir, "classifier_scene.png"),
		interval:      time.Duration(out.PollIntervalMS) * time.Millisecond,
		targets: []*target{
			{label: events.LabelLose, templatePath: cfg.TemplatePath(out.Lose.Template), region: out.Lose.Region.Rect(), threshold: out.Lose.Threshold},
			{label: events.LabelDisconnect, templatePath: cfg.TemplatePath(out.Disconnect.Template), region: out.Disconnect.Region.Rect(), threshold: out.Disconnect.Threshold},
			{label: events.LabelWin, templatePath: cfg.TemplatePath(out.Win.Template), region: out.Win.Region.Rect(), threshold: out.Win.Threshold},
		},
		counts: seed,
		now:    time.Now,
	}
}

// Counts returns the current tallies.
func (c *Classifier) Counts() Counts {
	return c.counts
}

// Run polls until ctx is cancelled.
func (c *Classifier) Run(ctx context.Context) {
	c.logger.Info("outcome classifier started",
		logging.String("counters", c.counts.Text()))
	defer c.logger.Info("outcome classifier stopped")

	// Push the recovered counters to the overlay before the first detection.
	c.publishText(ctx)

	timer := time.NewTimer(c.interval)
	defer timer.Stop()
	for {
		c.poll(ctx)
		timer.Reset(c.interval)
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}

func (c *Classifier) poll(ctx context.Context) {
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

	label := c.detect(scene)
	if label == c.previous {
		return
	}
	c.previous = label
	if label == "" {
		return
	}

	c.counts.add(label)
	c.logger.Info("outcome detected",
		logging.String(logging.FieldResult, string(label)),
		logging.String("counters", c.counts.Text()))

	c.publishText(ctx)

	if err := c.bus.Publish(events.Outcome(label, c.now())); err != nil {
		c.logger.Warn("outcome event dropped",
			logging.String(logging.FieldResult, string(label)),
			logging.Error(err))
	}
}

// detect evaluates the targets in priority order and returns the first match,
// or the empty label.
func (c *Classifier) detect(scene image.Image) events.Label {
	bounds := scene.Bounds()
	for _, t := range c.targets {
		if t.region.Empty() || !t.region.In(bounds) {
			continue
		}
		// Loaded lazily and retried every poll so dropping the file in
		// later just works.
		if t.template == nil {
			tpl, err := matcher.LoadTemplate(t.templatePath)
			if err != nil {
				c.logger.Debug("outcome template unavailable",
					logging.String(logging.FieldResult, string(t.label)),
					logging.Error(err))
				continue
			}
			t.template = tpl
		}
		region := matcher.Crop(scene, t.region)
		ok, err := c.match.Match(region, t.template, t.threshold)
		if err != nil {
			c.logger.Debug("match failed",
				logging.String(logging.FieldResult, string(t.label)),
				logging.Error(err))
			continue
		}
		if ok {
			return t.label
		}
	}
	return ""
}

func (c *Classifier) publishText(ctx context.Context) {
	if c.textSource == "" {
		return
	}
	if err := c.gateway.UpdateText(ctx, c.textSource, c.counts.Text()); err != nil {
		c.logger.Warn("text source update failed", logging.Error(err))
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

// SeedFromTotals converts ledger totals into classifier counters.
func SeedFromTotals(win, lose, disconnect int) Counts {
	return Counts{Win: win, Lose: lose, Disconnect: disconnect}
}
