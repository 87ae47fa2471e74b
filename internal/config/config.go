package config

import (
	_ "embed"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Region is a screen rectangle in capture-source pixel coordinates.
type Region struct {
	X1 int `toml:"x1"`
	Y1 int `toml:"y1"`
	X2 int `toml:"x2"`
	Y2 int `toml:"y2"`
}

// Rect converts the region to an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}

// Empty reports whether the region has no area.
func (r Region) Empty() bool {
	return r.Rect().Empty()
}

// Paths contains directory configuration.
type Paths struct {
	CapturesDir   string `toml:"captures_dir"`
	RecordingsDir string `toml:"recordings_dir"`
	TemplatesDir  string `toml:"templates_dir"`
	StateDir      string `toml:"state_dir"`
}

// OBS contains connection settings for the obs-websocket gateway.
type OBS struct {
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Password      string `toml:"password"`
	CaptureSource string `toml:"capture_source"`
	TextSource    string `toml:"text_source"`
}

// Matcher selects and tunes the template-matching implementation.
type Matcher struct {
	Implementation string `toml:"implementation"`
	Grayscale      bool   `toml:"grayscale"`
}

// Recording drives the start/stop lifecycle controller.
type Recording struct {
	StartTemplate   string  `toml:"start_template"`
	StopTemplate    string  `toml:"stop_template"`
	StartRegion     Region  `toml:"start_region"`
	StopRegion      Region  `toml:"stop_region"`
	StartThreshold  float64 `toml:"start_threshold"`
	StopThreshold   float64 `toml:"stop_threshold"`
	PollIntervalMS  int     `toml:"poll_interval_ms"`
	ConfirmAttempts int     `toml:"confirm_attempts"`
	ConfirmDelayMS  int     `toml:"confirm_delay_ms"`
	GuardSeconds    int     `toml:"guard_seconds"`
	AssumeStart     bool    `toml:"assume_start"`
}

// OutcomeRegion describes one outcome label's detection inputs.
type OutcomeRegion struct {
	Template  string  `toml:"template"`
	Threshold float64 `toml:"threshold"`
	Region    Region  `toml:"region"`
}

// Outcomes drives the win/lose/disconnect classifier.
type Outcomes struct {
	PollIntervalMS int           `toml:"poll_interval_ms"`
	Win            OutcomeRegion `toml:"win"`
	Lose           OutcomeRegion `toml:"lose"`
	Disconnect     OutcomeRegion `toml:"disconnect"`
	Season         string        `toml:"season"`
}

// Association tunes the screenshot-to-result pairing engine.
type Association struct {
	PollIntervalMS     int `toml:"poll_interval_ms"`
	ToleranceSeconds   int `toml:"tolerance_seconds"`
	DefaultWinTimeout  int `toml:"default_win_timeout_seconds"`
	DebounceMS         int `toml:"debounce_ms"`
	EnqueueTimeoutMS   int `toml:"enqueue_timeout_ms"`
	EventBufferEntries int `toml:"event_buffer_entries"`
}

// Pairing tunes recording-window to video-file matching.
type Pairing struct {
	Extensions    []string `toml:"extensions"`
	MarginSeconds int      `toml:"margin_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for clipmark.
//
// Configuration sections by subsystem:
//   - Paths: watched captures dir, recordings dir, templates, daemon state
//   - OBS: obs-websocket connection and source names
//   - Matcher: template matching implementation selection
//   - Recording: start/stop detection and confirmation budget
//   - Outcomes: per-label detection regions and thresholds
//   - Association: pairing tolerance and starvation timeout
//   - Pairing: recording file lookup margins and extensions
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	OBS         OBS         `toml:"obs"`
	Matcher     Matcher     `toml:"matcher"`
	Recording   Recording   `toml:"recording"`
	Outcomes    Outcomes    `toml:"outcomes"`
	Association Association `toml:"association"`
	Pairing     Pairing     `toml:"pairing"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/clipmark/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("clipmark.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// RecordingsDir is external output (OBS writes it) and is never created here.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CapturesDir, c.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// TemplatePath resolves a template file name against the templates directory.
func (c *Config) TemplatePath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Paths.TemplatesDir, name)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
