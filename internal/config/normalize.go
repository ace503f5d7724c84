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
	c.normalizeInference()
	c.normalizeTranscode()
	c.normalizeNotifications()
	c.normalizeEvents()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeInference() {
	c.Inference.BaseURL = strings.TrimSpace(c.Inference.BaseURL)
	if c.Inference.BaseURL == "" {
		c.Inference.BaseURL = lookupEnv(defaultInferenceURLEnvPrimary, defaultInferenceURLEnvCompat)
	}
	if c.Inference.BaseURL == "" {
		c.Inference.BaseURL = defaultInferenceURL
	}
	c.Inference.BaseURL = strings.TrimRight(c.Inference.BaseURL, "/")
	if c.Inference.MaxAttempts == 0 {
		c.Inference.MaxAttempts = defaultInferenceMaxAttempts
	}
	if c.Inference.PathPlaceholder == "" {
		c.Inference.PathPlaceholder = defaultPathPlaceholder
	}
}

func (c *Config) normalizeTranscode() {
	c.Transcode.FFmpegBinary = strings.TrimSpace(c.Transcode.FFmpegBinary)
	if c.Transcode.FFmpegBinary == "" {
		c.Transcode.FFmpegBinary = defaultFFmpegBinary
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		c.Notifications.NtfyTopic = lookupEnv("NTFY_TOPIC")
	}
}

func (c *Config) normalizeEvents() {
	c.Events.RedisURL = strings.TrimSpace(c.Events.RedisURL)
	if c.Events.RedisURL == "" {
		c.Events.RedisURL = lookupEnv("REDIS_URL")
	}
	c.Events.AMQPURL = strings.TrimSpace(c.Events.AMQPURL)
	if c.Events.AMQPURL == "" {
		c.Events.AMQPURL = lookupEnv("AMQP_URL")
	}
	c.Events.RedisChannel = strings.TrimSpace(c.Events.RedisChannel)
	if c.Events.RedisChannel == "" {
		c.Events.RedisChannel = defaultRedisChannel
	}
	c.Events.AMQPExchange = strings.TrimSpace(c.Events.AMQPExchange)
	if c.Events.AMQPExchange == "" {
		c.Events.AMQPExchange = defaultAMQPExchange
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.Workers == 0 {
		c.Workflow.Workers = defaultWorkers
	}
	if c.Workflow.ScratchRetentionDays < 0 {
		c.Workflow.ScratchRetentionDays = 0
	}
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

// lookupEnv returns the first non-blank value among the named variables.
func lookupEnv(names ...string) string {
	for _, name := range names {
		if value, ok := os.LookupEnv(name); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}
