package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateMatcher(); err != nil {
		return err
	}
	if err := c.validateThresholds(); err != nil {
		return err
	}
	if err := c.validateTimings(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.CapturesDir) == "" {
		return errors.New("paths.captures_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateMatcher() error {
	switch c.Matcher.Implementation {
	case "software", "opencv":
		return nil
	default:
		return fmt.Errorf("matcher.implementation: unsupported value %q", c.Matcher.Implementation)
	}
}

func (c *Config) validateThresholds() error {
	thresholds := map[string]float64{
		"recording.start_threshold":    c.Recording.StartThreshold,
		"recording.stop_threshold":     c.Recording.StopThreshold,
		"outcomes.win.threshold":       c.Outcomes.Win.Threshold,
		"outcomes.lose.threshold":      c.Outcomes.Lose.Threshold,
		"outcomes.disconnect.threshold": c.Outcomes.Disconnect.Threshold,
	}
	for key, value := range thresholds {
		if value <= 0 || value > 1 {
			return fmt.Errorf("%s must be in (0, 1]", key)
		}
	}
	return nil
}

func (c *Config) validateTimings() error {
	if err := ensurePositiveMap(map[string]int{
		"recording.poll_interval_ms":    c.Recording.PollIntervalMS,
		"recording.confirm_attempts":    c.Recording.ConfirmAttempts,
		"recording.confirm_delay_ms":    c.Recording.ConfirmDelayMS,
		"outcomes.poll_interval_ms":     c.Outcomes.PollIntervalMS,
		"association.poll_interval_ms":  c.Association.PollIntervalMS,
		"association.tolerance_seconds": c.Association.ToleranceSeconds,
	}); err != nil {
		return err
	}
	if c.Association.DefaultWinTimeout < 0 {
		return errors.New("association.default_win_timeout_seconds must be >= 0")
	}
	if c.Pairing.MarginSeconds < 0 {
		return errors.New("pairing.margin_seconds must be >= 0")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
