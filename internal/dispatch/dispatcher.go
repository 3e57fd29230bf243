package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"hearth/internal/logging"
	"hearth/internal/respcache"
	"hearth/internal/wire"
)

const (
	// chatMaxTokens is the ceiling the dispatcher enforces for chat
	// requests; it also serves as the default when the client sent none.
	chatMaxTokens = 2000

	defaultTemperature = 0.9
)

// Completer is the slice of the gateway the dispatcher needs.
type Completer interface {
	Complete(ctx context.Context, msgs []wire.Message, temperature float64, maxTokens int) (string, error)
}

// Dispatcher routes one decoded request to the gateway, the cache, or a
// liveness handler and assembles the response payload. It holds no
// per-request state; a single instance serves every connection.
type Dispatcher struct {
	gateway  Completer
	cache    *respcache.Cache
	logger   *slog.Logger
	handlers func() int

	defaultTemp float64
	defaultMax  int
}

// Option customizes the dispatcher.
type Option func(*Dispatcher)

// WithSamplingDefaults sets the temperature and max_tokens applied when a
// request does not carry its own. Non-positive values keep the built-in
// defaults; maxTokens is capped at the chat ceiling.
func WithSamplingDefaults(temperature float64, maxTokens int) Option {
	return func(d *Dispatcher) {
		if temperature > 0 {
			d.defaultTemp = temperature
		}
		if maxTokens > 0 {
			if maxTokens > chatMaxTokens {
				maxTokens = chatMaxTokens
			}
			d.defaultMax = maxTokens
		}
	}
}

// New constructs a dispatcher. handlers reports the number of live
// connection handlers for the status action; nil means "report zero".
func New(gw Completer, cache *respcache.Cache, logger *slog.Logger, handlers func() int, opts ...Option) *Dispatcher {
	if handlers == nil {
		handlers = func() int { return 0 }
	}
	d := &Dispatcher{
		gateway:     gw,
		cache:       cache,
		logger:      logging.NewComponentLogger(logger, "dispatch"),
		handlers:    handlers,
		defaultTemp: defaultTemperature,
		defaultMax:  chatMaxTokens,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch resolves the request's action and returns the response payload to
// encode. It never returns nil.
func (d *Dispatcher) Dispatch(ctx context.Context, req *wire.Request) any {
	switch req.Action {
	case wire.ActionPing:
		return wire.PingResponse{Status: "alive", Action: "pong"}
	case wire.ActionStatus:
		return d.status()
	case wire.ActionChat:
		return d.chat(ctx, req)
	default:
		return wire.ErrorResponse{Error: fmt.Sprintf("unknown action: %s", req.Action)}
	}
}

func (d *Dispatcher) chat(ctx context.Context, req *wire.Request) any {
	if len(req.Messages) == 0 {
		return wire.ErrorResponse{Error: "messages must not be empty"}
	}
	if req.Stream {
		// This transport is strictly request/response; say so instead of
		// attempting a partial send. The cache and gateway are not touched.
		return wire.WarningResponse{Warning: "streaming requires a streaming channel; retry with stream=false"}
	}

	// Pointers distinguish absent from explicit zero: a client asking for
	// temperature 0 gets deterministic sampling, not the default.
	temperature := d.defaultTemp
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := d.defaultMax
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		maxTokens = *req.MaxTokens
		if maxTokens > chatMaxTokens {
			maxTokens = chatMaxTokens
		}
	}

	key := respcache.Fingerprint(req.Messages, temperature, maxTokens)
	if cached, found := d.cache.Lookup(key); found {
		return wire.ChatResponse{Response: cached, Tokens: estimateTokens(cached)}
	}

	text, err := d.gateway.Complete(ctx, req.Messages, temperature, maxTokens)
	if err != nil {
		d.logger.Error("chat completion failed",
			logging.String(logging.FieldEventType, "gateway_failure"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check upstream credentials and connectivity"))
		return wire.ErrorResponse{Error: fmt.Sprintf("model request failed: %v", err)}
	}

	if text != "" {
		d.cache.Store(key, text)
	}
	return wire.ChatResponse{Response: text, Tokens: estimateTokens(text)}
}

func (d *Dispatcher) status() wire.StatusResponse {
	return wire.StatusResponse{
		Status:           "running",
		ModelLoaded:      d.gateway != nil,
		ClientsConnected: d.handlers(),
		MemoryUsage:      memoryUsage(),
	}
}

// estimateTokens is a deliberately crude length/4 heuristic, not a
// tokenizer; clients only use it for rough display.
func estimateTokens(text string) int {
	return len(text) / 4
}

// memoryUsage reports process RSS in MiB, or "unknown" where the host does
// not expose it. The status call never fails because of this probe.
func memoryUsage() any {
	if mib, ok := residentSetMiB(); ok {
		return mib
	}
	return "unknown"
}
