package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalid wraps every configuration validation failure. These are fatal:
// the pass never substitutes a default for a bad value.
var ErrInvalid = errors.New("invalid configuration")

// Validate ensures the configuration values are usable.
func (c *Config) Validate() error {
	for _, check := range []func() error{
		c.validateVideo,
		c.validatePass,
		c.validateClassifier,
		c.validateLogging,
	} {
		if err := check(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}
	return nil
}

func (c *Config) validateVideo() error {
	fps := c.Video.FPS
	if fps < 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		return fmt.Errorf("video.fps must be >= 0 (0 probes the container), got %v", fps)
	}
	if c.Summary.Padding < 0 {
		return errors.New("summary.padding must be >= 0")
	}
	return nil
}

func (c *Config) validatePass() error {
	switch {
	case c.Interpolate.MaxGap < 0:
		return errors.New("interpolate.max_gap must be >= 0")
	case c.Detector.SpeedLag < 0:
		return errors.New("detector.speed_lag must be >= 0")
	case c.Detector.History < c.Detector.SpeedLag:
		return fmt.Errorf("detector.history (%d) must be >= detector.speed_lag (%d)", c.Detector.History, c.Detector.SpeedLag)
	case c.Detector.ProximityPx < 0:
		return errors.New("detector.proximity_px must be >= 0")
	case c.Aggregate.MaxGap < 0:
		return errors.New("aggregate.max_gap must be >= 0")
	case c.Aggregate.MinDuration < 0:
		return errors.New("aggregate.min_duration must be >= 0")
	case c.Fusion.MergeThreshold < 0:
		return errors.New("fusion.merge_threshold must be >= 0")
	case c.Fusion.PenaltyGap < 0:
		return errors.New("fusion.penalty_gap must be >= 0")
	}
	return nil
}

func (c *Config) validateClassifier() error {
	switch strings.ToLower(strings.TrimSpace(c.Classifier.Backend)) {
	case "lexical", "openrouter":
	default:
		return fmt.Errorf("classifier.backend: unsupported value %q", c.Classifier.Backend)
	}
	if c.Classifier.Window <= 0 {
		return errors.New("classifier.window must be > 0")
	}
	if c.Classifier.Threshold < 0 || c.Classifier.Threshold > 1 {
		return errors.New("classifier.threshold must be within [0, 1]")
	}
	if c.OpenRouter.TimeoutSeconds <= 0 {
		return errors.New("openrouter.timeout_seconds must be > 0")
	}
	if c.OpenRouter.MinScore < 0 || c.OpenRouter.MinScore > 1 {
		return errors.New("openrouter.min_score must be within [0, 1]")
	}
	if c.OpenRouter.RequestInterval < 0 {
		return errors.New("openrouter.request_interval must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
}
