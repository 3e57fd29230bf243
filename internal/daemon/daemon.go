package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/gofrs/flock"

	"hearth/internal/config"
	"hearth/internal/dispatch"
	"hearth/internal/gateway"
	"hearth/internal/logging"
	"hearth/internal/respcache"
	"hearth/internal/server"
)

const warmupTimeout = 90 * time.Second

// StartupError marks failures that make the daemon unable to start at all,
// as opposed to transient per-request errors. Callers exit non-zero on it.
type StartupError struct {
	Reason string
	Err    error
}

func (e *StartupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("startup failed: %s: %v", e.Reason, e.Err)
	}
	return "startup failed: " + e.Reason
}

func (e *StartupError) Unwrap() error { return e.Err }

// Daemon owns the long-lived pieces: the warmed gateway client, the response
// cache, the dispatcher, and the socket server. It enforces single-instance
// execution through a file lock.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	gateway *gateway.Client
	cache   *respcache.Cache
	srv     *server.Server

	lockPath string
	lock     *flock.Flock
	pidPath  string
}

// New validates the credential, acquires the single-instance lock, and wires
// the request path. The API key check happens here rather than in config
// validation so client commands work without one.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}
	if cfg.LLM.APIKey == "" {
		return nil, &StartupError{Reason: fmt.Sprintf("no API key: set %s or [llm] api_key in the config file", config.EnvAPIKey)}
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, &StartupError{Reason: "prepare runtime directories", Err: err}
	}

	lockPath := cfg.LockPath()
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, &StartupError{Reason: "acquire lock", Err: err}
	}
	if !ok {
		return nil, &StartupError{Reason: "another hearth daemon instance is already running"}
	}

	d := &Daemon{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "daemon"),
		gateway: gateway.NewClient(gateway.Config{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			Temperature:    cfg.LLM.Temperature,
			MaxTokens:      cfg.LLM.MaxTokens,
			TimeoutSeconds: cfg.LLM.TimeoutSeconds,
			RetryAttempts:  cfg.LLM.RetryAttempts,
		}, logger),
		cache:    respcache.New(time.Duration(cfg.Daemon.CacheTTLSeconds)*time.Second, logger),
		lockPath: lockPath,
		lock:     lock,
		pidPath:  cfg.PIDPath(),
	}

	dispatcher := dispatch.New(d.gateway, d.cache, logger, d.activeHandlers,
		dispatch.WithSamplingDefaults(cfg.LLM.Temperature, cfg.LLM.MaxTokens))
	transport, addr := cfg.Endpoint()
	srv, err := server.New(ctx, server.Options{
		Transport:  transport,
		SocketPath: cfg.Daemon.SocketPath,
		TCPAddr:    cfg.Daemon.TCPAddr,
	}, dispatcher, logger)
	if err != nil {
		_ = lock.Unlock()
		return nil, &StartupError{Reason: "bind " + addr, Err: err}
	}
	d.srv = srv
	return d, nil
}

func (d *Daemon) activeHandlers() int {
	if d.srv == nil {
		return 0
	}
	return d.srv.ActiveHandlers()
}

// Run serves until the context is canceled, then drains and cleans up. The
// gateway warmup happens after the listener is up so clients can connect
// while the first upstream call is still in flight.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.writePIDFile(); err != nil {
		d.logger.Warn("failed to write pid file",
			logging.String("path", d.pidPath),
			logging.Error(err))
	}

	d.srv.Serve()
	d.logger.Info("daemon started",
		logging.String("model", d.cfg.LLM.Model),
		logging.String("lock", d.lockPath))

	go d.warmup(ctx)

	<-ctx.Done()
	d.logger.Info("daemon shutting down")
	d.Close()
	return nil
}

// warmup primes the upstream session. Failure is logged, never fatal; the
// daemon keeps serving and the first real chat retries on its own.
func (d *Daemon) warmup(ctx context.Context) {
	warmCtx, cancel := context.WithTimeout(ctx, warmupTimeout)
	defer cancel()
	if err := d.gateway.Warmup(warmCtx); err != nil && ctx.Err() == nil {
		d.logger.Warn("model warmup failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "warmup_failed"),
			logging.String(logging.FieldErrorHint, "check the API key and network; chat requests will retry on demand"))
	}
}

// Close stops the server, removes the pid file, and releases the lock. Safe
// to call more than once.
func (d *Daemon) Close() {
	if d.srv != nil {
		d.srv.Close()
		d.srv = nil
	}
	if err := os.Remove(d.pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		d.logger.Warn("failed to remove pid file", logging.Error(err))
	}
	if d.lock != nil {
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("failed to release daemon lock", logging.Error(err))
		}
		d.lock = nil
	}
	d.logger.Info("daemon stopped")
}

func (d *Daemon) writePIDFile() error {
	return os.WriteFile(d.pidPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}
