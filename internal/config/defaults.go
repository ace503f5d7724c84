package config

const (
	defaultConfigPath             = "~/.config/stratos/config.toml"
	defaultOutputDir              = "~/.local/share/stratos/output"
	defaultDataDir                = "~/.local/share/stratos"
	defaultLogDir                 = "~/.local/share/stratos/logs"
	defaultAPIBind                = "127.0.0.1:7490"
	defaultInferenceURL           = "http://127.0.0.1:8000"
	defaultInferenceTimeout       = 1800
	defaultInferenceMaxAttempts   = 1
	defaultPathPlaceholder        = "+"
	defaultFFmpegBinary           = "ffmpeg"
	defaultNotifyRequestTimeout   = 10
	defaultRedisChannel           = "stratos:events"
	defaultAMQPExchange           = "stratos.events"
	defaultQueuePollInterval      = 5
	defaultErrorRetryInterval     = 10
	defaultWorkers                = 2
	defaultScratchRetentionDays   = 7
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	maxInferenceAttempts          = 5
	maxWorkers                    = 32
	defaultInferenceURLEnvPrimary = "STRATOS_AI_URL"
	defaultInferenceURLEnvCompat  = "AI_URL"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Inference: Inference{
			TimeoutSeconds:  defaultInferenceTimeout,
			MaxAttempts:     defaultInferenceMaxAttempts,
			PathPlaceholder: defaultPathPlaceholder,
		},
		Transcode: Transcode{
			FFmpegBinary: defaultFFmpegBinary,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Progress:       false,
		},
		Events: Events{
			RedisChannel: defaultRedisChannel,
			AMQPExchange: defaultAMQPExchange,
		},
		Workflow: Workflow{
			QueuePollInterval:    defaultQueuePollInterval,
			ErrorRetryInterval:   defaultErrorRetryInterval,
			Workers:              defaultWorkers,
			ScratchRetentionDays: defaultScratchRetentionDays,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
