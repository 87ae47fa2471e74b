package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"clipmark/internal/config"
)

func TestLoadDefaultsAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("OBS_WEBSOCKET_PASSWORD", "hunter2")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantCaptures := filepath.Join(tempHome, ".local", "share", "clipmark", "captures")
	if cfg.Paths.CapturesDir != wantCaptures {
		t.Fatalf("unexpected captures dir: got %q want %q", cfg.Paths.CapturesDir, wantCaptures)
	}
	if cfg.OBS.Password != "hunter2" {
		t.Fatalf("expected password from env, got %q", cfg.OBS.Password)
	}
	if cfg.OBS.Port != 4455 {
		t.Fatalf("unexpected obs port: %d", cfg.OBS.Port)
	}
	if cfg.Matcher.Implementation != "software" {
		t.Fatalf("unexpected matcher implementation: %q", cfg.Matcher.Implementation)
	}
	if cfg.Recording.GuardSeconds != 140 {
		t.Fatalf("unexpected guard seconds: %d", cfg.Recording.GuardSeconds)
	}
	if cfg.Recording.AssumeStart {
		t.Fatal("assume_start must default to off")
	}
	if cfg.Association.ToleranceSeconds != 20 {
		t.Fatalf("unexpected tolerance: %d", cfg.Association.ToleranceSeconds)
	}
	if cfg.Association.DefaultWinTimeout != 0 {
		t.Fatalf("default win timeout must default to disabled, got %d", cfg.Association.DefaultWinTimeout)
	}
	if got := cfg.Pairing.Extensions; len(got) != 4 || got[0] != ".mkv" {
		t.Fatalf("unexpected pairing extensions: %v", got)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.CapturesDir, cfg.Paths.StateDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadParsesFileAndNormalizesSeason(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clipmark.toml")
	body := `
[outcomes]
season = "13"

[matcher]
implementation = "OpenCV"

[pairing]
extensions = ["MKV", ".mp4", "mkv"]
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if cfg.Outcomes.Season != "S13" {
		t.Fatalf("season not normalized: %q", cfg.Outcomes.Season)
	}
	if cfg.Matcher.Implementation != "opencv" {
		t.Fatalf("matcher implementation not normalized: %q", cfg.Matcher.Implementation)
	}
	if got := cfg.Pairing.Extensions; len(got) != 2 || got[0] != ".mkv" || got[1] != ".mp4" {
		t.Fatalf("pairing extensions not normalized: %v", got)
	}
}

func TestSeasonAlreadyTaggedIsUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clipmark.toml")
	if err := os.WriteFile(path, []byte("[outcomes]\nseason = \"S13\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Outcomes.Season != "S13" {
		t.Fatalf("expected S13 unchanged, got %q", cfg.Outcomes.Season)
	}
}

func TestValidateRejectsBadThreshold(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clipmark.toml")
	if err := os.WriteFile(path, []byte("[recording]\nstart_threshold = 1.5\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error for threshold > 1")
	}
}

func TestRegionRect(t *testing.T) {
	r := config.Region{X1: 10, Y1: 20, X2: 30, Y2: 40}
	rect := r.Rect()
	if rect.Dx() != 20 || rect.Dy() != 20 {
		t.Fatalf("unexpected rect size: %v", rect)
	}
	if !(config.Region{}).Empty() {
		t.Fatal("zero region should be empty")
	}
}
