package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"hearth/internal/logging"
	"hearth/internal/wire"
)

// Handler resolves one decoded request into a response payload.
type Handler interface {
	Dispatch(ctx context.Context, req *wire.Request) any
}

// Options selects the listening endpoint.
type Options struct {
	// Transport is "unix" or "tcp".
	Transport  string
	SocketPath string
	TCPAddr    string
}

// Server accepts inbound connections and spawns one handling goroutine per
// connection. Each connection carries exactly one request and one response;
// the handler owns it exclusively until close.
type Server struct {
	opts     Options
	handler  Handler
	logger   *slog.Logger
	listener net.Listener

	active atomic.Int64
	connID atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New binds the listening endpoint. Unix sockets are created world-writable
// so any local user can connect; a stale socket file from a previous run is
// removed first.
func New(ctx context.Context, opts Options, handler Handler, logger *slog.Logger) (*Server, error) {
	if handler == nil {
		return nil, errors.New("server requires a handler")
	}
	logger = logging.NewComponentLogger(logger, "server")

	var listener net.Listener
	var err error
	switch opts.Transport {
	case "unix":
		if err := os.RemoveAll(opts.SocketPath); err != nil {
			return nil, fmt.Errorf("remove existing socket: %w", err)
		}
		listener, err = net.Listen("unix", opts.SocketPath)
		if err != nil {
			return nil, fmt.Errorf("listen on socket: %w", err)
		}
		if err := os.Chmod(opts.SocketPath, 0o666); err != nil {
			listener.Close()
			return nil, fmt.Errorf("chmod socket: %w", err)
		}
	case "tcp":
		listener, err = net.Listen("tcp", opts.TCPAddr)
		if err != nil {
			return nil, fmt.Errorf("listen on %s: %w", opts.TCPAddr, err)
		}
	default:
		return nil, fmt.Errorf("unsupported transport %q", opts.Transport)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		opts:     opts,
		handler:  handler,
		logger:   logger,
		listener: listener,
		ctx:      serverCtx,
		cancel:   cancel,
	}, nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// ActiveHandlers counts connection handlers live at this instant.
func (s *Server) ActiveHandlers() int {
	return int(s.active.Load())
}

// Serve starts accepting connections until the context is canceled. The
// accept loop itself is single-goroutined; it blocks only on Accept.
func (s *Server) Serve() {
	s.logger.Info("listening", logging.String("addr", s.listener.Addr().String()))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "accept_failed"),
					logging.String(logging.FieldErrorHint, "check socket permissions; restart the daemon if this persists"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.handleConn(c)
			}(conn)
		}
	}()
}

// handleConn processes exactly one framed request and closes the
// connection. Transport-level failures are logged and contained here; they
// never escalate past this goroutine.
func (s *Server) handleConn(conn net.Conn) {
	s.active.Add(1)
	defer s.active.Add(-1)
	defer conn.Close()

	logger := s.logger.With(logging.Int64(logging.FieldConnID, s.connID.Add(1)))

	req, err := wire.DecodeRequest(conn)
	if err != nil {
		switch {
		case errors.Is(err, wire.ErrNoRequest):
			// Peer connected and left; nothing to answer.
		case errors.Is(err, wire.ErrMalformed):
			logger.Debug("malformed request", logging.Error(err))
			s.respond(conn, logger, wire.ErrorResponse{Error: "invalid JSON request"})
		default:
			logger.Warn("read request failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "conn_read_failed"))
		}
		return
	}

	logger.Debug("request received", logging.String("action", req.Action))
	// Shutdown cancels the accept loop only; a request already being handled
	// runs to completion, so its context must not die with the server's.
	resp := s.handler.Dispatch(context.WithoutCancel(s.ctx), req)
	s.respond(conn, logger, resp)
}

func (s *Server) respond(conn net.Conn, logger *slog.Logger, payload any) {
	if err := wire.Encode(conn, payload); err != nil {
		logger.Warn("write response failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "conn_write_failed"))
	}
}

// Close stops accepting, waits for in-flight handlers to finish naturally,
// and removes the socket file. No deadline is imposed on the drain.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if s.opts.Transport == "unix" {
		if err := os.RemoveAll(s.opts.SocketPath); err != nil {
			s.logger.Warn("failed to remove socket",
				logging.String("socket", s.opts.SocketPath),
				logging.Error(err),
				logging.String(logging.FieldEventType, "socket_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "remove the socket file manually before the next start"))
		}
	}
	s.logger.Info("listener closed")
}
