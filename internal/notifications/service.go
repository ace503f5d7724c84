package notifications

import (
	"fmt"
	"log/slog"
	"time"

	"stratos/internal/config"
	"stratos/internal/logging"
)

// NewFromConfig assembles the configured transports. With none configured a
// Noop publisher is returned. A transport that cannot connect aborts
// construction and releases the ones already opened.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (Publisher, error) {
	logger = logging.NewComponentLogger(logger, "notifications")
	var publishers Fanout

	if topic := cfg.Notifications.NtfyTopic; topic != "" {
		timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
		publishers = append(publishers, NewNtfy(topic, timeout, cfg.Notifications.Progress))
		logger.Debug("ntfy notifications enabled", logging.Bool("progress", cfg.Notifications.Progress))
	}
	if url := cfg.Events.RedisURL; url != "" {
		p, err := NewRedis(url, cfg.Events.RedisChannel)
		if err != nil {
			_ = publishers.Close()
			return nil, fmt.Errorf("redis events: %w", err)
		}
		publishers = append(publishers, p)
		logger.Debug("redis events enabled", logging.String("channel", cfg.Events.RedisChannel))
	}
	if url := cfg.Events.AMQPURL; url != "" {
		p, err := NewAMQP(url, cfg.Events.AMQPExchange)
		if err != nil {
			_ = publishers.Close()
			return nil, fmt.Errorf("amqp events: %w", err)
		}
		publishers = append(publishers, p)
		logger.Debug("amqp events enabled", logging.String("exchange", cfg.Events.AMQPExchange))
	}

	switch len(publishers) {
	case 0:
		return Noop{}, nil
	case 1:
		return publishers[0], nil
	default:
		return publishers, nil
	}
}
