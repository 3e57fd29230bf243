package config

import (
	"errors"
	"fmt"
	"net"
)

// Validate ensures the configuration is usable. The upstream API key is
// deliberately not checked here: only the daemon needs it, and the check
// happens at daemon startup so client commands work without one.
func (c *Config) Validate() error {
	if err := c.validateDaemon(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDaemon() error {
	switch c.Daemon.Transport {
	case "unix", "tcp":
	default:
		return fmt.Errorf("daemon.transport must be %q or %q, got %q", "unix", "tcp", c.Daemon.Transport)
	}
	if c.Daemon.Transport == "tcp" {
		if _, _, err := net.SplitHostPort(c.Daemon.TCPAddr); err != nil {
			return fmt.Errorf("daemon.tcp_addr: %w", err)
		}
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	if c.LLM.MaxTokens > 32768 {
		return errors.New("llm.max_tokens is unreasonably large")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be %q or %q, got %q", "console", "json", c.Logging.Format)
	}
	return nil
}
