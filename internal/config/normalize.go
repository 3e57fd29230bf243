package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeDaemon(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeDaemon() error {
	var err error

	c.Daemon.Transport = strings.ToLower(strings.TrimSpace(c.Daemon.Transport))
	if c.Daemon.Transport == "" {
		c.Daemon.Transport = defaultTransport
	}

	c.Daemon.SocketPath = strings.TrimSpace(c.Daemon.SocketPath)
	if c.Daemon.SocketPath == "" {
		c.Daemon.SocketPath = defaultSocketPath
	}
	if c.Daemon.SocketPath, err = expandPath(c.Daemon.SocketPath); err != nil {
		return fmt.Errorf("daemon.socket_path: %w", err)
	}

	c.Daemon.TCPAddr = strings.TrimSpace(c.Daemon.TCPAddr)
	if c.Daemon.TCPAddr == "" {
		c.Daemon.TCPAddr = defaultTCPAddr
	}

	if strings.TrimSpace(c.Daemon.RuntimeDir) == "" {
		c.Daemon.RuntimeDir = defaultRuntimeDir
	}
	if c.Daemon.RuntimeDir, err = expandPath(c.Daemon.RuntimeDir); err != nil {
		return fmt.Errorf("daemon.runtime_dir: %w", err)
	}

	if c.Daemon.CacheTTLSeconds <= 0 {
		c.Daemon.CacheTTLSeconds = defaultCacheTTLSeconds
	}
	return nil
}

func (c *Config) normalizeLLM() {
	// The environment wins over the config file so the key never has to be
	// written to disk.
	if value, ok := os.LookupEnv(EnvAPIKey); ok && strings.TrimSpace(value) != "" {
		c.LLM.APIKey = value
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)

	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultModel
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = defaultTemperature
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = defaultMaxTokens
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.LLM.RetryAttempts <= 0 {
		c.LLM.RetryAttempts = defaultRetryAttempts
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.Dir) == "" {
		c.Logging.Dir = defaultLogDir
	}
	if expanded, err := expandPath(c.Logging.Dir); err == nil {
		c.Logging.Dir = expanded
	}
}
