// Package daemon wires the detection loops together and enforces
// single-instance execution with a flock-based lock under the state
// directory.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"clipmark/internal/assoc"
	"clipmark/internal/classifier"
	"clipmark/internal/config"
	"clipmark/internal/events"
	"clipmark/internal/ledger"
	"clipmark/internal/logging"
	"clipmark/internal/matcher"
	"clipmark/internal/matcher/cvmatch"
	"clipmark/internal/obsgw"
	"clipmark/internal/pairs"
	"clipmark/internal/recorder"
	"clipmark/internal/store"
)

// Daemon owns the three worker loops, the event bus and the persistence
// layers.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	gateway obsgw.Gateway

	store  *store.Store
	ledger *ledger.Ledger
	pairer *pairs.Pairer
	bus    *events.Bus

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a daemon around an already-connected gateway.
func New(cfg *config.Config, gw obsgw.Gateway, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || gw == nil || logger == nil {
		return nil, errors.New("daemon requires config, gateway and logger")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	st, err := store.Open(filepath.Join(cfg.Paths.StateDir, "clipmark.db"))
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}

	lockPath := filepath.Join(cfg.Paths.StateDir, "clipmark.lock")
	return &Daemon{
		cfg:     cfg,
		logger:  logger,
		gateway: gw,
		store:   st,
		ledger:  ledger.New(cfg.Paths.CapturesDir, logger),
		pairer: pairs.New(
			cfg.Paths.CapturesDir,
			cfg.Paths.RecordingsDir,
			cfg.Pairing.Extensions,
			time.Duration(cfg.Pairing.MarginSeconds)*time.Second,
			logger,
		),
		bus: events.NewBus(
			cfg.Association.EventBufferEntries,
			time.Duration(cfg.Association.EnqueueTimeoutMS)*time.Millisecond,
		),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and launches the worker loops.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another clipmark instance is already running")
	}

	seed, err := d.seedCounts()
	if err != nil {
		d.logger.Warn("counter seeding failed, starting from zero", logging.Error(err))
	}

	m := newMatcher(d.cfg)
	cls := classifier.New(d.cfg, d.gateway, m, d.bus, seed, d.logger)
	rec := recorder.New(d.cfg, d.gateway, m, d.bus, d.store, d.handleWindow, d.logger)
	eng := assoc.New(d.cfg, d.bus, d.ledger, d.store, d.gateway, d.logger)

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	for _, loop := range []func(context.Context){cls.Run, rec.Run, eng.Run} {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			loop(runCtx)
		}()
	}

	d.running.Store(true)
	d.logger.Info("clipmark daemon started",
		logging.String("lock", d.lockPath),
		logging.String("captures", d.cfg.Paths.CapturesDir),
		logging.String("matcher", d.cfg.Matcher.Implementation))
	return nil
}

// Stop cancels the loops, waits for them to drain, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release instance lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("clipmark daemon stopped")
}

// Close stops the daemon and releases held resources.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Running reports whether the loops are live.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// handleWindow is the recorder's window hand-off: pair the window with its
// recording and point the session row at the video.
func (d *Daemon) handleWindow(ctx context.Context, sessionID string, start, end time.Time, forced bool) {
	video, _, _, err := d.pairer.AssociateWindow(start, end)
	if err != nil {
		d.logger.Warn("window association failed", logging.Error(err))
		return
	}
	if video != "" && sessionID != "" {
		if err := d.store.SetSessionVideo(ctx, sessionID, video); err != nil {
			d.logger.Warn("session video not recorded",
				logging.String(logging.FieldSessionID, sessionID),
				logging.Error(err))
		}
	}
	if forced {
		d.logger.Info("window closed by shutdown",
			logging.String(logging.FieldSessionID, sessionID))
	}
}

// seedCounts restores the classifier counters from the ledger so totals
// survive restarts.
func (d *Daemon) seedCounts() (classifier.Counts, error) {
	records, err := d.ledger.Records()
	if err != nil {
		return classifier.Counts{}, err
	}
	totals := ledger.ComputeTotals(records)
	return classifier.SeedFromTotals(totals.Win, totals.Lose, totals.Disconnect), nil
}

func newMatcher(cfg *config.Config) matcher.Matcher {
	if cfg.Matcher.Implementation == "opencv" {
		return cvmatch.New(cfg.Matcher.Grayscale)
	}
	return matcher.NewSoftware(cfg.Matcher.Grayscale)
}
