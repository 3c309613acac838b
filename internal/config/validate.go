package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMedia(); err != nil {
		return err
	}
	if err := c.validateInference(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateMedia() error {
	if c.Media.MaxSizeMB <= 0 {
		return errors.New("media.max_size_mb must be positive")
	}
	if c.Media.MaxHeight <= 0 {
		return errors.New("media.max_height must be positive")
	}
	if c.Media.AudioBitrateKbps <= 0 {
		return errors.New("media.audio_bitrate_kbps must be positive")
	}
	if c.Media.MinVideoBitrateKbps <= 0 {
		return errors.New("media.min_video_bitrate_kbps must be positive")
	}
	if c.Media.CRF < 0 || c.Media.CRF > 51 {
		return errors.New("media.crf must be between 0 and 51")
	}
	if c.Media.TimeoutSeconds <= 0 {
		return errors.New("media.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateInference() error {
	parsed, err := url.Parse(c.Inference.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("inference.base_url %q is not an absolute URL", c.Inference.BaseURL)
	}
	if c.Inference.TimeoutSeconds <= 0 {
		return errors.New("inference.timeout_seconds must be positive")
	}
	if c.Inference.PollIntervalSeconds <= 0 {
		return errors.New("inference.poll_interval_seconds must be positive")
	}
	if c.Inference.MaxWaitSeconds < c.Inference.PollIntervalSeconds {
		return errors.New("inference.max_wait_seconds must be at least poll_interval_seconds")
	}
	if c.Inference.RetryAttempts < 0 {
		return errors.New("inference.retry_attempts must be non-negative")
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	switch c.Analysis.Mode {
	case AnalysisModeRemote:
		return nil
	case AnalysisModeLocal:
		if !c.Extractor.Enabled {
			return errors.New("analysis.mode \"local\" requires extractor.enabled = true")
		}
		if c.Extractor.TimeoutSeconds <= 0 {
			return errors.New("extractor.timeout_seconds must be positive")
		}
		return nil
	default:
		return fmt.Errorf("analysis.mode: unsupported value %q (want remote or local)", c.Analysis.Mode)
	}
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.MaxConcurrentRuns <= 0 {
		return errors.New("workflow.max_concurrent_runs must be positive")
	}
	if c.Workflow.RunTimeoutSeconds < 0 {
		return errors.New("workflow.run_timeout_seconds must be non-negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
