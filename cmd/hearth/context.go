package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"hearth/internal/config"
	"hearth/internal/ipc"
	"hearth/internal/wire"
)

type commandContext struct {
	socketFlag *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(socketFlag, configFlag *string) *commandContext {
	return &commandContext{
		socketFlag: socketFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// endpoint resolves the daemon address, letting --socket override the
// configured transport with a unix socket path.
func (c *commandContext) endpoint() (transport, addr string) {
	if c.socketFlag != nil && strings.TrimSpace(*c.socketFlag) != "" {
		return "unix", strings.TrimSpace(*c.socketFlag)
	}
	cfg := c.configValue()
	if cfg == nil {
		def := config.Default()
		return def.Endpoint()
	}
	return cfg.Endpoint()
}

func (c *commandContext) exchange(req *wire.Request) (*wire.Reply, error) {
	transport, addr := c.endpoint()
	reply, err := ipc.Exchange(transport, addr, req)
	if err != nil {
		return nil, wrapDialError(err, addr)
	}
	return reply, nil
}

func wrapDialError(err error, addr string) error {
	switch {
	case errors.Is(err, syscall.ENOENT) || os.IsNotExist(err):
		return fmt.Errorf("connect to daemon: socket %s not found; start the daemon with `hearth start`", addr)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to daemon: %s refused the connection; verify the daemon is running", addr)
	default:
		return fmt.Errorf("connect to daemon: %w", err)
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
