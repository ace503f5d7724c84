package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateInference(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateInference() error {
	parsed, err := url.Parse(c.Inference.BaseURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		defaultPath, pathErr := DefaultConfigPath()
		if pathErr != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("inference.base_url %q must be an http(s) URL. Set %s or edit %s (create with 'stratos config init')",
			c.Inference.BaseURL, defaultInferenceURLEnvPrimary, defaultPath)
	}
	if c.Inference.TimeoutSeconds <= 0 {
		return errors.New("inference.timeout_seconds must be positive")
	}
	if c.Inference.MaxAttempts < 1 || c.Inference.MaxAttempts > maxInferenceAttempts {
		return fmt.Errorf("inference.max_attempts must be between 1 and %d", maxInferenceAttempts)
	}
	if strings.Contains(c.Inference.PathPlaceholder, "/") {
		return errors.New("inference.path_placeholder must not contain '/'")
	}
	return nil
}

func (c *Config) validateEvents() error {
	if c.Events.RedisURL != "" && !strings.HasPrefix(c.Events.RedisURL, "redis://") && !strings.HasPrefix(c.Events.RedisURL, "rediss://") {
		return errors.New("events.redis_url must use the redis:// or rediss:// scheme")
	}
	if c.Events.AMQPURL != "" && !strings.HasPrefix(c.Events.AMQPURL, "amqp://") && !strings.HasPrefix(c.Events.AMQPURL, "amqps://") {
		return errors.New("events.amqp_url must use the amqp:// or amqps:// scheme")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"notifications.request_timeout": c.Notifications.RequestTimeout,
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
	}); err != nil {
		return err
	}
	if c.Workflow.Workers < 1 || c.Workflow.Workers > maxWorkers {
		return fmt.Errorf("workflow.workers must be between 1 and %d", maxWorkers)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
