package config

const (
	defaultTransport       = "unix"
	defaultSocketPath      = "/tmp/hearth.sock"
	defaultTCPAddr         = "127.0.0.1:9898"
	defaultRuntimeDir      = "~/.local/share/hearth"
	defaultCacheTTLSeconds = 300

	defaultBaseURL        = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	defaultModel          = "qwen-turbo"
	defaultTemperature    = 0.9
	defaultMaxTokens      = 2000
	defaultTimeoutSeconds = 60
	defaultRetryAttempts  = 3

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
	defaultLogDir    = "~/.local/share/hearth/logs"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Daemon: Daemon{
			Transport:       defaultTransport,
			SocketPath:      defaultSocketPath,
			TCPAddr:         defaultTCPAddr,
			RuntimeDir:      defaultRuntimeDir,
			CacheTTLSeconds: defaultCacheTTLSeconds,
		},
		LLM: LLM{
			BaseURL:        defaultBaseURL,
			Model:          defaultModel,
			Temperature:    defaultTemperature,
			MaxTokens:      defaultMaxTokens,
			TimeoutSeconds: defaultTimeoutSeconds,
			RetryAttempts:  defaultRetryAttempts,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
			Dir:    defaultLogDir,
		},
	}
}
