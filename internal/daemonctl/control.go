package daemonctl

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"hearth/internal/config"
	"hearth/internal/ipc"
)

// ErrNotRunning indicates the daemon socket is unreachable.
var ErrNotRunning = errors.New("daemon not running")

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
}

// StartState reports how EnsureStarted resolved.
type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State StartState
	PID   int
}

// Launch starts a detached daemon process and does not wait for it.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return errors.New("resolve executable: executable path is empty")
	}

	args := []string{"run"}
	if path := strings.TrimSpace(opts.ConfigPath); path != "" {
		args = append(args, "--config", path)
	}

	proc := exec.Command(executablePath, args...)
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// WaitForServer polls the socket until the daemon answers a ping.
func WaitForServer(cfg *config.Config, timeout time.Duration) error {
	transport, addr := cfg.Endpoint()
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		reply, err := ipc.Ping(transport, addr)
		if err == nil && reply.Action == "pong" {
			return nil
		}
		if err != nil {
			lastErr = err
		}
		time.Sleep(200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = errors.New("timeout waiting for daemon")
	}
	return fmt.Errorf("daemon failed to start: %w", lastErr)
}

// IsRunning reports whether a daemon answers on the configured endpoint.
func IsRunning(cfg *config.Config) bool {
	transport, addr := cfg.Endpoint()
	reply, err := ipc.Ping(transport, addr)
	return err == nil && reply.Action == "pong"
}

// EnsureStarted launches the daemon if it is not already answering pings.
func EnsureStarted(cfg *config.Config, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	if IsRunning(cfg) {
		return StartResult{State: StartStateAlreadyRunning, PID: readPID(cfg.PIDPath())}, nil
	}
	if err := Launch(executablePath, opts); err != nil {
		return StartResult{}, err
	}
	if err := WaitForServer(cfg, waitTimeout); err != nil {
		return StartResult{}, err
	}
	return StartResult{State: StartStateStarted, PID: readPID(cfg.PIDPath())}, nil
}

// Stop signals the daemon with SIGTERM and waits for the socket to go
// silent. Returns ErrNotRunning when there is nothing to stop.
func Stop(cfg *config.Config, gracePeriod time.Duration) (int, error) {
	if !IsRunning(cfg) {
		return 0, ErrNotRunning
	}
	pid := readPID(cfg.PIDPath())
	if pid <= 0 {
		return 0, fmt.Errorf("unable to determine daemon pid (pid file: %s)", cfg.PIDPath())
	}
	if pid == os.Getpid() {
		return 0, fmt.Errorf("refusing to stop current process (pid %d)", pid)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return 0, fmt.Errorf("signal daemon process %d: %w", pid, err)
	}

	deadline := time.Now().Add(gracePeriod)
	for time.Now().Before(deadline) {
		if !IsRunning(cfg) {
			return pid, nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return pid, fmt.Errorf("daemon (pid %d) still answering after %s", pid, gracePeriod)
}

func readPID(pidPath string) int {
	data, err := os.ReadFile(pidPath)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0
	}
	return pid
}
