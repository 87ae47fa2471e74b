package classifier

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"clipmark/internal/config"
	"clipmark/internal/events"
	"clipmark/internal/logging"
	"clipmark/internal/obsgw"
)

// fakeGateway serves a fixed scene image and records text updates.
type fakeGateway struct {
	scene      image.Image
	captureErr error
	texts      []string
}

func (g *fakeGateway) CaptureScreenshot(_ context.Context, _ string, destPath string) error {
	if g.captureErr != nil {
		return g.captureErr
	}
	f, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, g.scene)
}

func (g *fakeGateway) StartRecording(context.Context) (obsgw.MethodUsed, error) {
	return obsgw.MethodNone, nil
}

func (g *fakeGateway) StopRecording(context.Context) (obsgw.MethodUsed, error) {
	return obsgw.MethodNone, nil
}

func (g *fakeGateway) RecordingStatus(context.Context) obsgw.RecordStatus {
	return obsgw.StatusUnknown
}

func (g *fakeGateway) UpdateText(_ context.Context, _ string, text string) error {
	g.texts = append(g.texts, text)
	return nil
}

// fakeMatcher tells templates apart by width: lose=2px, disconnect=3px, win=1px.
type fakeMatcher struct {
	lose, disconnect, win bool
}

func (m *fakeMatcher) Score(_, template image.Image) (float64, error) {
	ok, _ := m.Match(nil, template, 0)
	if ok {
		return 1, nil
	}
	return 0, nil
}

func (m *fakeMatcher) Match(_, template image.Image, _ float64) (bool, error) {
	switch template.Bounds().Dx() {
	case 2:
		return m.lose, nil
	case 3:
		return m.disconnect, nil
	default:
		return m.win, nil
	}
}

func writeTemplate(t *testing.T, dir, name string, width int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, 1))
	for x := 0; x < width; x++ {
		img.Set(x, 0, color.White)
	}
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode template: %v", err)
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.TemplatesDir = t.TempDir()
	cfg.OBS.CaptureSource = "Capture1"
	cfg.OBS.TextSource = "counterText"
	cfg.Outcomes.Win = config.OutcomeRegion{Template: "win.png", Threshold: 0.2, Region: config.Region{X1: 0, Y1: 0, X2: 4, Y2: 4}}
	cfg.Outcomes.Lose = config.OutcomeRegion{Template: "lose.png", Threshold: 0.2, Region: config.Region{X1: 0, Y1: 4, X2: 4, Y2: 8}}
	cfg.Outcomes.Disconnect = config.OutcomeRegion{Template: "disconnect.png", Threshold: 0.2, Region: config.Region{X1: 4, Y1: 0, X2: 8, Y2: 4}}

	writeTemplate(t, cfg.Paths.TemplatesDir, "win.png", 1)
	writeTemplate(t, cfg.Paths.TemplatesDir, "lose.png", 2)
	writeTemplate(t, cfg.Paths.TemplatesDir, "disconnect.png", 3)
	return &cfg
}

func scene() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 10, 10))
}

func TestEdgeTriggeringCountsOnce(t *testing.T) {
	cfg := testConfig(t)
	gw := &fakeGateway{scene: scene()}
	m := &fakeMatcher{win: true}
	bus := events.NewBus(8, 50*time.Millisecond)

	c := New(cfg, gw, m, bus, Counts{}, logging.NewNop())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		c.poll(ctx)
	}

	if got := c.Counts(); got.Win != 1 || got.Lose != 0 || got.Disconnect != 0 {
		t.Fatalf("counts after persistent overlay = %+v", got)
	}
	evs := bus.Drain()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evs))
	}
	if evs[0].Kind != events.KindOutcome || evs[0].Label != events.LabelWin {
		t.Fatalf("event = %+v", evs[0])
	}

	// The overlay disappears, then reappears: a second edge, a second count.
	m.win = false
	c.poll(ctx)
	m.win = true
	c.poll(ctx)

	if got := c.Counts(); got.Win != 2 {
		t.Fatalf("counts after second edge = %+v", got)
	}
	if evs := bus.Drain(); len(evs) != 1 {
		t.Fatalf("expected 1 more event, got %d", len(evs))
	}
}

func TestPriorityLoseBeatsDisconnectBeatsWin(t *testing.T) {
	cfg := testConfig(t)
	gw := &fakeGateway{scene: scene()}
	m := &fakeMatcher{lose: true, disconnect: true, win: true}
	bus := events.NewBus(8, 50*time.Millisecond)

	c := New(cfg, gw, m, bus, Counts{}, logging.NewNop())
	c.poll(context.Background())

	if got := c.Counts(); got.Lose != 1 || got.Win != 0 || got.Disconnect != 0 {
		t.Fatalf("counts = %+v", got)
	}

	m.lose = false
	c.poll(context.Background())
	if got := c.Counts(); got.Disconnect != 1 {
		t.Fatalf("counts after lose cleared = %+v", got)
	}
}

func TestTextSourceUpdatedWithSeededCounters(t *testing.T) {
	cfg := testConfig(t)
	gw := &fakeGateway{scene: scene()}
	m := &fakeMatcher{win: true}
	bus := events.NewBus(8, 50*time.Millisecond)

	c := New(cfg, gw, m, bus, Counts{Win: 2, Lose: 1}, logging.NewNop())
	c.publishText(context.Background())
	c.poll(context.Background())

	if len(gw.texts) != 2 {
		t.Fatalf("texts = %v", gw.texts)
	}
	if gw.texts[0] != "Win: 2 - Lose: 1 - DC: 0" {
		t.Errorf("seeded text = %q", gw.texts[0])
	}
	if gw.texts[1] != "Win: 3 - Lose: 1 - DC: 0" {
		t.Errorf("updated text = %q", gw.texts[1])
	}
}

func TestCaptureFailureSkipsPoll(t *testing.T) {
	cfg := testConfig(t)
	gw := &fakeGateway{scene: scene(), captureErr: os.ErrPermission}
	bus := events.NewBus(8, 50*time.Millisecond)

	c := New(cfg, gw, &fakeMatcher{win: true}, bus, Counts{}, logging.NewNop())
	c.poll(context.Background())

	if got := c.Counts(); got.Win != 0 {
		t.Fatalf("counts = %+v", got)
	}
	if bus.Len() != 0 {
		t.Fatal("no events expected")
	}
}

func TestMissingTemplateSkipsTarget(t *testing.T) {
	cfg := testConfig(t)
	if err := os.Remove(filepath.Join(cfg.Paths.TemplatesDir, "lose.png")); err != nil {
		t.Fatalf("remove template: %v", err)
	}
	gw := &fakeGateway{scene: scene()}
	m := &fakeMatcher{lose: true, win: true}
	bus := events.NewBus(8, 50*time.Millisecond)

	c := New(cfg, gw, m, bus, Counts{}, logging.NewNop())
	c.poll(context.Background())
	c.poll(context.Background())

	// Lose cannot match without its template, so win is detected instead.
	if got := c.Counts(); got.Win != 1 || got.Lose != 0 {
		t.Fatalf("counts = %+v", got)
	}
}

func TestTemplateDroppedInLaterIsPickedUp(t *testing.T) {
	cfg := testConfig(t)
	if err := os.Remove(filepath.Join(cfg.Paths.TemplatesDir, "lose.png")); err != nil {
		t.Fatalf("remove template: %v", err)
	}
	gw := &fakeGateway{scene: scene()}
	m := &fakeMatcher{lose: true}
	bus := events.NewBus(8, 50*time.Millisecond)

	c := New(cfg, gw, m, bus, Counts{}, logging.NewNop())
	c.poll(context.Background())
	if got := c.Counts(); got.Lose != 0 {
		t.Fatalf("counts before template exists = %+v", got)
	}

	// The template load is retried every poll, so creating the file later
	// is enough for detection to start.
	writeTemplate(t, cfg.Paths.TemplatesDir, "lose.png", 2)
	c.poll(context.Background())

	if got := c.Counts(); got.Lose != 1 {
		t.Fatalf("counts after template dropped in = %+v", got)
	}
}
