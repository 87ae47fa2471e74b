// Package assoc pairs screenshots with detected outcomes. Screenshots arrive
// by directory scan, outcomes and stop markers arrive on the event bus, and
// neither side is ordered relative to the other; the engine holds both and
// matches by timestamp proximity, committing each pairing to the ledger.
package assoc

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"clipmark/internal/config"
	"clipmark/internal/events"
	"clipmark/internal/imagefile"
	"clipmark/internal/ledger"
	"clipmark/internal/logging"
	"clipmark/internal/obsgw"
	"clipmark/internal/store"
)

// AssociationStore mirrors committed pairings for querying. Satisfied by
// *store.Store; nil disables the mirror.
type AssociationStore interface {
	RecordAssociation(ctx context.Context, a store.Association) (int64, error)
}

type pendingImage struct {
	path       string
	name       string
	ts         time.Time // filename timestamp, mtime fallback
	admittedAt time.Time
}

// Engine is the association loop. Single consumer: all pending collections
// are owned by the Run goroutine.
type Engine struct {
	capturesDir string
	interval    time.Duration
	tolerance   time.Duration
	winTimeout  time.Duration
	debounce    time.Duration
	season      string
	textSource  string

	bus     *events.Bus
	ledger  *ledger.Ledger
	history AssociationStore
	gateway obsgw.Gateway
	logger  *slog.Logger

	seen           map[string]struct{}
	pendingImages  []pendingImage
	pendingResults []events.Event
	pendingStops   []events.Event

	now func() time.Time
}

// New builds the engine. gw may be nil when no text sink is configured.
func New(cfg *config.Config, bus *events.Bus, led *ledger.Ledger, history AssociationStore, gw obsgw.Gateway, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	a := cfg.Association
	return &Engine{
		capturesDir: cfg.Paths.CapturesDir,
		interval:    time.Duration(a.PollIntervalMS) * time.Millisecond,
		tolerance:   time.Duration(a.ToleranceSeconds) * time.Second,
		winTimeout:  time.Duration(a.DefaultWinTimeout) * time.Second,
		debounce:    time.Duration(a.DebounceMS) * time.Millisecond,
		season:      cfg.Outcomes.Season,
		textSource:  cfg.OBS.TextSource,
		bus:         bus,
		ledger:      led,
		history:     history,
		gateway:     gw,
		logger:      logging.WithComponent(logger, "assoc"),
		seen:        make(map[string]struct{}),
		now:         time.Now,
	}
}

// Run seeds the seen-file set with whatever already exists, then polls until
// ctx is cancelled. Pre-existing screenshots are deliberately not processed:
// only files appearing while the daemon runs get paired.
func (e *Engine) Run(ctx context.Context) {
	e.seedExisting()
	e.logger.Info("association engine started",
		logging.String("dir", e.capturesDir),
		logging.Int("preexisting", len(e.seen)))
	defer e.logger.Info("association engine stopped")

	timer := time.NewTimer(e.interval)
	defer timer.Stop()
	for {
		e.tick(ctx)
		timer.Reset(e.interval)
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}

func (e *Engine) seedExisting() {
	entries, err := os.ReadDir(e.capturesDir)
	if err != nil {
		e.logger.Warn("captures directory unreadable", logging.Error(err))
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() && imagefile.IsImage(entry.Name()) {
			e.seen[entry.Name()] = struct{}{}
		}
	}
}

func (e *Engine) tick(ctx context.Context) {
	e.scanImages()
	e.drainEvents()
	e.pairPass(ctx)

	// Starvation guard: an image stuck with no results in sight eventually
	// counts as a win, since overlays for wins are the least reliable cue.
	// The synthetic event carries the image's own timestamp: the image has
	// already waited out the timeout, so a wall-clock stamp could land
	// outside the tolerance window and never pair.
	if e.winTimeout > 0 && len(e.pendingImages) > 0 && len(e.pendingResults) == 0 {
		head := e.pendingImages[0]
		waited := e.now().Sub(head.admittedAt)
		if waited >= e.winTimeout {
			e.logger.Info("result starvation timeout, assigning win",
				logging.String(logging.FieldImage, head.name),
				logging.Duration("waited", waited))
			ev := events.Outcome(events.LabelWin, head.ts)
			ev.Synthetic = true
			e.pendingResults = append(e.pendingResults, ev)
			e.pairPass(ctx)
		}
	}
}

// scanImages admits newly appeared screenshots in name order. A file whose
// size is still changing is left unseen and retried next tick.
func (e *Engine) scanImages() {
	entries, err := os.ReadDir(e.capturesDir)
	if err != nil {
		e.logger.Warn("scan failed", logging.Error(err))
		return
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && imagefile.IsImage(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if _, ok := e.seen[name]; ok {
			continue
		}
		path := filepath.Join(e.capturesDir, name)
		if !imagefile.SizeSettled(path, e.debounce) {
			continue
		}
		ts, err := imagefile.Timestamp(path)
		if err != nil {
			e.logger.Warn("image timestamp unavailable",
				logging.String(logging.FieldImage, name),
				logging.Error(err))
			continue
		}
		e.seen[name] = struct{}{}
		e.pendingImages = append(e.pendingImages, pendingImage{
			path:       path,
			name:       name,
			ts:         ts,
			admittedAt: e.now(),
		})
		e.logger.Info("new screenshot admitted",
			logging.String(logging.FieldImage, name),
			logging.Time("timestamp", ts))
	}
}

func (e *Engine) drainEvents() {
	for _, ev := range e.bus.Drain() {
		switch ev.Kind {
		case events.KindOutcome:
			e.pendingResults = append(e.pendingResults, ev)
		case events.KindStopMarker:
			e.pendingStops = append(e.pendingStops, ev)
		}
	}
}

// pairPass pairs from the FIFO head. The head either pairs or blocks the
// whole queue; younger images are never examined out of order.
func (e *Engine) pairPass(ctx context.Context) {
	for len(e.pendingImages) > 0 {
		head := e.pendingImages[0]

		if idx, ok := closest(e.pendingResults, head.ts, e.tolerance); ok {
			res := e.pendingResults[idx]
			e.pendingResults = append(e.pendingResults[:idx], e.pendingResults[idx+1:]...)
			e.pendingImages = e.pendingImages[1:]
			e.commit(ctx, head, res.Label, res.Synthetic, res.Timestamp)
			// A stop marker from the same battle must not fire again for a
			// later image; drop every marker near this one.
			e.discardStopsNear(head.ts)
			continue
		}

		if idx, ok := closest(e.pendingStops, head.ts, e.tolerance); ok {
			marker := e.pendingStops[idx]
			e.pendingStops = append(e.pendingStops[:idx], e.pendingStops[idx+1:]...)
			e.pendingImages = e.pendingImages[1:]
			e.commit(ctx, head, events.LabelWin, true, marker.Timestamp)
			// Duplicate markers from the same battle must not synthesize a
			// second win for a later image.
			e.discardStopsNear(head.ts)
			continue
		}

		return
	}
}

// closest finds the event minimizing |event time − ts|, accepted only within
// the tolerance window.
func closest(evs []events.Event, ts time.Time, tolerance time.Duration) (int, bool) {
	best := -1
	var bestDelta time.Duration
	for i, ev := range evs {
		delta := ev.Timestamp.Sub(ts)
		if delta < 0 {
			delta = -delta
		}
		if best == -1 || delta < bestDelta {
			best = i
			bestDelta = delta
		}
	}
	if best == -1 || bestDelta > tolerance {
		return 0, false
	}
	return best, true
}

func (e *Engine) discardStopsNear(ts time.Time) {
	kept := e.pendingStops[:0]
	for _, marker := range e.pendingStops {
		delta := marker.Timestamp.Sub(ts)
		if delta < 0 {
			delta = -delta
		}
		if delta > e.tolerance {
			kept = append(kept, marker)
		}
	}
	e.pendingStops = kept
}

// commit files the pairing: ledger row, tags, history mirror, and for
// synthetic results a counter republish to the text sink. Every step is
// best-effort; a failed write is logged and the pairing moves on.
func (e *Engine) commit(ctx context.Context, img pendingImage, label events.Label, synthetic bool, eventTS time.Time) {
	e.logger.Info("screenshot paired",
		logging.String(logging.FieldImage, img.name),
		logging.String(logging.FieldResult, string(label)),
		logging.Bool("synthetic", synthetic))

	if err := e.ledger.Append(ledger.Record{
		Timestamp: eventTS,
		Image:     img.name,
		Result:    string(label),
		Season:    e.season,
	}); err != nil {
		e.logger.Warn("ledger append failed", logging.Error(err))
	}

	tags := []string{string(label)}
	if e.season != "" {
		tags = append(tags, "season:"+e.season)
	}
	if err := e.ledger.AddTags(img.name, tags...); err != nil {
		e.logger.Warn("tagging failed", logging.Error(err))
	}

	if e.history != nil {
		_, err := e.history.RecordAssociation(ctx, store.Association{
			Image:     img.name,
			Result:    string(label),
			Season:    e.season,
			Synthetic: synthetic,
			PairedAt:  e.now(),
		})
		if err != nil {
			e.logger.Warn("history mirror failed", logging.Error(err))
		}
	}

	if synthetic {
		e.republishCounters(ctx)
	}
}

// republishCounters recounts from the full ledger and pushes the text sink.
// Synthetic pairings bypass the classifier, so its counters miss them; the
// ledger is the authority.
func (e *Engine) republishCounters(ctx context.Context) {
	if e.gateway == nil || e.textSource == "" {
		return
	}
	records, err := e.ledger.Records()
	if err != nil {
		e.logger.Warn("ledger recount failed", logging.Error(err))
		return
	}
	totals := ledger.ComputeTotals(records)
	text := counterText(totals)
	if err := e.gateway.UpdateText(ctx, e.textSource, text); err != nil {
		e.logger.Warn("text source update failed", logging.Error(err))
	}
}

func counterText(t ledger.Totals) string {
	return fmt.Sprintf("Win: %d - Lose: %d - DC: %d", t.Win, t.Lose, t.Disconnect)
}
