package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hearth/internal/logging"
	"hearth/internal/server"
	"hearth/internal/wire"
)

type scriptedHandler struct{}

func (scriptedHandler) Dispatch(_ context.Context, req *wire.Request) any {
	switch req.Action {
	case wire.ActionPing:
		return wire.PingResponse{Status: "alive", Action: "pong"}
	case wire.ActionStatus:
		return wire.StatusResponse{Status: "running", ModelLoaded: true, ClientsConnected: 1, MemoryUsage: 42}
	case wire.ActionChat:
		if len(req.Messages) == 0 {
			return wire.ErrorResponse{Error: "messages must not be empty"}
		}
		return wire.ChatResponse{Response: "pong: " + req.Messages[len(req.Messages)-1].Content, Tokens: 2}
	default:
		return wire.ErrorResponse{Error: "unknown action: " + req.Action}
	}
}

func startTestDaemon(t *testing.T) string {
	t.Helper()
	socket := filepath.Join(t.TempDir(), "hearth.sock")
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv, err := server.New(ctx, server.Options{Transport: "unix", SocketPath: socket}, scriptedHandler{}, logging.NewNop())
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("server.New: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)
	return socket
}

func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if stdin != "" {
		cmd.SetIn(strings.NewReader(stdin))
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPingCommand(t *testing.T) {
	socket := startTestDaemon(t)
	out, err := runCommand(t, "", "--socket", socket, "ping")
	if err != nil {
		t.Fatalf("ping: %v", err)
	}
	if !strings.Contains(out, "pong") {
		t.Fatalf("output = %q", out)
	}
}

func TestPingCommandDaemonDown(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "missing.sock")
	_, err := runCommand(t, "", "--socket", socket, "ping")
	if err == nil {
		t.Fatal("expected an error when the daemon is down")
	}
	if !strings.Contains(err.Error(), "hearth start") {
		t.Fatalf("error should hint at `hearth start`: %v", err)
	}
}

func TestAskCommand(t *testing.T) {
	socket := startTestDaemon(t)
	out, err := runCommand(t, "", "--socket", socket, "ask", "hello", "there")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if !strings.Contains(out, "pong: hello there") {
		t.Fatalf("output = %q", out)
	}
}

func TestStatusCommandRendersTable(t *testing.T) {
	socket := startTestDaemon(t)
	out, err := runCommand(t, "", "--socket", socket, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"running", "Model loaded", "yes", "42 MiB"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestChatCommandSessionLoop(t *testing.T) {
	socket := startTestDaemon(t)
	out, err := runCommand(t, "hi\nexit\n", "--socket", socket, "chat")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if !strings.Contains(out, "pong: hi") {
		t.Fatalf("output = %q", out)
	}
}

func TestChatCommandClearResetsHistory(t *testing.T) {
	socket := startTestDaemon(t)
	out, err := runCommand(t, "first\nclear\nsecond\nexit\n", "--socket", socket, "chat")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if !strings.Contains(out, "Conversation cleared.") {
		t.Fatalf("output = %q", out)
	}
	if !strings.Contains(out, "pong: second") {
		t.Fatalf("output = %q", out)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	out, err := runCommand(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("output = %q", out)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[llm]") {
		t.Fatalf("sample config missing [llm] section:\n%s", data)
	}

	if _, err := runCommand(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected refusal to overwrite without --overwrite")
	}
	if _, err := runCommand(t, "", "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}
