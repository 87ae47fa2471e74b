package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeOBS()
	c.normalizeMatcher()
	c.normalizeTimings()
	c.normalizePairing()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.CapturesDir, err = expandPath(c.Paths.CapturesDir); err != nil {
		return fmt.Errorf("paths.captures_dir: %w", err)
	}
	if c.Paths.TemplatesDir, err = expandPath(c.Paths.TemplatesDir); err != nil {
		return fmt.Errorf("paths.templates_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.RecordingsDir) != "" {
		if c.Paths.RecordingsDir, err = expandPath(c.Paths.RecordingsDir); err != nil {
			return fmt.Errorf("paths.recordings_dir: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeOBS() {
	c.OBS.Host = strings.TrimSpace(c.OBS.Host)
	if c.OBS.Host == "" {
		c.OBS.Host = defaultOBSHost
	}
	if c.OBS.Port <= 0 {
		c.OBS.Port = defaultOBSPort
	}
	if c.OBS.Password == "" {
		if value, ok := os.LookupEnv("OBS_WEBSOCKET_PASSWORD"); ok {
			c.OBS.Password = strings.TrimSpace(value)
		}
	}
	c.OBS.CaptureSource = strings.TrimSpace(c.OBS.CaptureSource)
	if c.OBS.CaptureSource == "" {
		c.OBS.CaptureSource = defaultCaptureSource
	}
	c.OBS.TextSource = strings.TrimSpace(c.OBS.TextSource)
	if c.OBS.TextSource == "" {
		c.OBS.TextSource = defaultTextSource
	}
}

func (c *Config) normalizeMatcher() {
	impl := strings.ToLower(strings.TrimSpace(c.Matcher.Implementation))
	switch impl {
	case "", "software":
		impl = "software"
	case "opencv":
	default:
		impl = "software"
	}
	c.Matcher.Implementation = impl
}

func (c *Config) normalizeTimings() {
	if c.Recording.PollIntervalMS <= 0 {
		c.Recording.PollIntervalMS = defaultRecordingPollMS
	}
	if c.Recording.ConfirmAttempts <= 0 {
		c.Recording.ConfirmAttempts = defaultConfirmAttempts
	}
	if c.Recording.ConfirmDelayMS <= 0 {
		c.Recording.ConfirmDelayMS = defaultConfirmDelayMS
	}
	if c.Recording.GuardSeconds < 0 {
		c.Recording.GuardSeconds = 0
	}
	if c.Outcomes.PollIntervalMS <= 0 {
		c.Outcomes.PollIntervalMS = defaultOutcomePollMS
	}
	c.Outcomes.Season = normalizeSeason(c.Outcomes.Season)
	if c.Association.PollIntervalMS <= 0 {
		c.Association.PollIntervalMS = defaultAssocPollMS
	}
	if c.Association.ToleranceSeconds <= 0 {
		c.Association.ToleranceSeconds = defaultToleranceSeconds
	}
	if c.Association.DefaultWinTimeout < 0 {
		c.Association.DefaultWinTimeout = 0
	}
	if c.Association.DebounceMS <= 0 {
		c.Association.DebounceMS = defaultDebounceMS
	}
	if c.Association.EnqueueTimeoutMS <= 0 {
		c.Association.EnqueueTimeoutMS = defaultEnqueueTimeoutMS
	}
	if c.Association.EventBufferEntries <= 0 {
		c.Association.EventBufferEntries = defaultEventBuffer
	}
}

func (c *Config) normalizePairing() {
	if c.Pairing.MarginSeconds < 0 {
		c.Pairing.MarginSeconds = 0
	}
	exts := make([]string, 0, len(c.Pairing.Extensions))
	seen := make(map[string]struct{}, len(c.Pairing.Extensions))
	for _, ext := range c.Pairing.Extensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	if len(exts) == 0 {
		exts = defaultPairingExtensions()
	}
	c.Pairing.Extensions = exts
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// normalizeSeason maps a bare numeric season ("13") to its tag form ("S13").
// Already-tagged or free-form values pass through unchanged.
func normalizeSeason(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	digitsOnly := true
	for _, r := range trimmed {
		if r < '0' || r > '9' {
			digitsOnly = false
			break
		}
	}
	if digitsOnly {
		return "S" + trimmed
	}
	return trimmed
}
