package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"hearth/internal/logging"
	"hearth/internal/respcache"
	"hearth/internal/wire"
)

// stubGateway counts invocations and serves canned results.
type stubGateway struct {
	calls  atomic.Int64
	result string
	err    error
}

func (s *stubGateway) Complete(_ context.Context, msgs []wire.Message, _ float64, _ int) (string, error) {
	s.calls.Add(1)
	if s.err != nil {
		return "", s.err
	}
	return s.result, nil
}

func newDispatcher(gw Completer, ttl time.Duration) *Dispatcher {
	return New(gw, respcache.New(ttl, logging.NewNop()), logging.NewNop(), nil)
}

func chatRequest(content string) *wire.Request {
	return &wire.Request{
		Action:   wire.ActionChat,
		Messages: []wire.Message{{Role: wire.RoleUser, Content: content}},
	}
}

func TestPingAlwaysPongs(t *testing.T) {
	d := newDispatcher(&stubGateway{result: "x"}, time.Minute)
	for i := 0; i < 3; i++ {
		resp := d.Dispatch(context.Background(), &wire.Request{Action: wire.ActionPing})
		pong, ok := resp.(wire.PingResponse)
		if !ok || pong.Status != "alive" || pong.Action != "pong" {
			t.Fatalf("response = %#v", resp)
		}
	}
}

func TestUnknownAction(t *testing.T) {
	d := newDispatcher(&stubGateway{}, time.Minute)
	resp := d.Dispatch(context.Background(), &wire.Request{Action: "dance"})
	errResp, ok := resp.(wire.ErrorResponse)
	if !ok || errResp.Error != "unknown action: dance" {
		t.Fatalf("response = %#v", resp)
	}
}

func TestChatEmptyConversationNeverReachesGateway(t *testing.T) {
	gw := &stubGateway{result: "x"}
	d := newDispatcher(gw, time.Minute)
	resp := d.Dispatch(context.Background(), &wire.Request{Action: wire.ActionChat})
	if _, ok := resp.(wire.ErrorResponse); !ok {
		t.Fatalf("response = %#v, want error", resp)
	}
	if gw.calls.Load() != 0 {
		t.Fatalf("gateway called %d times, want 0", gw.calls.Load())
	}
}

func TestChatStreamingRejectedBeforeCacheAndGateway(t *testing.T) {
	gw := &stubGateway{result: "x"}
	cache := respcache.New(time.Minute, logging.NewNop())
	d := New(gw, cache, logging.NewNop(), nil)

	req := chatRequest("hello")
	req.Stream = true
	resp := d.Dispatch(context.Background(), req)
	if _, ok := resp.(wire.WarningResponse); !ok {
		t.Fatalf("response = %#v, want warning", resp)
	}
	if gw.calls.Load() != 0 {
		t.Fatalf("gateway called %d times, want 0", gw.calls.Load())
	}
	if cache.Len() != 0 {
		t.Fatalf("cache populated by a streaming request")
	}
}

func TestChatReturnsTextWithTokenEstimate(t *testing.T) {
	d := newDispatcher(&stubGateway{result: "hi there"}, time.Minute)
	resp := d.Dispatch(context.Background(), chatRequest("hello"))
	chat, ok := resp.(wire.ChatResponse)
	if !ok {
		t.Fatalf("response = %#v", resp)
	}
	if chat.Response != "hi there" {
		t.Errorf("response text = %q", chat.Response)
	}
	if chat.Tokens != 2 { // 8 chars / 4
		t.Errorf("tokens = %d, want 2", chat.Tokens)
	}
}

func TestChatCachesWithinTTL(t *testing.T) {
	gw := &stubGateway{result: "cached answer"}
	d := newDispatcher(gw, time.Minute)

	first := d.Dispatch(context.Background(), chatRequest("same question"))
	second := d.Dispatch(context.Background(), chatRequest("same question"))

	if gw.calls.Load() != 1 {
		t.Fatalf("gateway called %d times, want 1", gw.calls.Load())
	}
	if first.(wire.ChatResponse) != second.(wire.ChatResponse) {
		t.Fatalf("cached response differs: %#v vs %#v", first, second)
	}
}

func TestChatRecomputesAfterTTLExpiry(t *testing.T) {
	gw := &stubGateway{result: "answer"}
	d := newDispatcher(gw, 20*time.Millisecond)

	d.Dispatch(context.Background(), chatRequest("question"))
	time.Sleep(40 * time.Millisecond)
	d.Dispatch(context.Background(), chatRequest("question"))

	if gw.calls.Load() != 2 {
		t.Fatalf("gateway called %d times, want 2 after expiry", gw.calls.Load())
	}
}

func TestChatDistinctParamsMissTheCache(t *testing.T) {
	gw := &stubGateway{result: "answer"}
	d := newDispatcher(gw, time.Minute)

	temp := 0.2
	warm := chatRequest("question")
	warm.Temperature = &temp
	d.Dispatch(context.Background(), chatRequest("question"))
	d.Dispatch(context.Background(), warm)

	if gw.calls.Load() != 2 {
		t.Fatalf("gateway called %d times, want 2 for distinct parameters", gw.calls.Load())
	}
}

func TestChatGatewayFailureSurfacesDetail(t *testing.T) {
	gw := &stubGateway{err: errors.New("upstream timeout")}
	d := newDispatcher(gw, time.Minute)
	resp := d.Dispatch(context.Background(), chatRequest("hello"))
	errResp, ok := resp.(wire.ErrorResponse)
	if !ok {
		t.Fatalf("response = %#v", resp)
	}
	if errResp.Error != "model request failed: upstream timeout" {
		t.Fatalf("error = %q", errResp.Error)
	}
}

func TestChatFailureIsNotCached(t *testing.T) {
	gw := &stubGateway{err: errors.New("boom")}
	d := newDispatcher(gw, time.Minute)

	d.Dispatch(context.Background(), chatRequest("hello"))
	gw.err = nil
	gw.result = "recovered"
	resp := d.Dispatch(context.Background(), chatRequest("hello"))

	chat, ok := resp.(wire.ChatResponse)
	if !ok || chat.Response != "recovered" {
		t.Fatalf("response = %#v, want fresh result after failure", resp)
	}
	if gw.calls.Load() != 2 {
		t.Fatalf("gateway called %d times, want 2", gw.calls.Load())
	}
}

func TestChatEmptyCompletionNotCached(t *testing.T) {
	gw := &stubGateway{result: ""}
	d := newDispatcher(gw, time.Minute)

	d.Dispatch(context.Background(), chatRequest("hello"))
	d.Dispatch(context.Background(), chatRequest("hello"))

	if gw.calls.Load() != 2 {
		t.Fatalf("gateway called %d times, want 2 (empty result must not cache)", gw.calls.Load())
	}
}

func TestStatusReportsHandlersAndModel(t *testing.T) {
	d := New(&stubGateway{}, respcache.New(time.Minute, logging.NewNop()), logging.NewNop(), func() int { return 3 })
	resp := d.Dispatch(context.Background(), &wire.Request{Action: wire.ActionStatus})
	status, ok := resp.(wire.StatusResponse)
	if !ok {
		t.Fatalf("response = %#v", resp)
	}
	if status.Status != "running" || !status.ModelLoaded {
		t.Errorf("status = %#v", status)
	}
	if status.ClientsConnected != 3 {
		t.Errorf("clients_connected = %d, want 3", status.ClientsConnected)
	}
	if status.MemoryUsage == nil {
		t.Error("memory_usage missing; want number or \"unknown\"")
	}
}

func TestMaxTokensClampedToChatCeiling(t *testing.T) {
	var seen int
	gw := completerFunc(func(_ context.Context, _ []wire.Message, _ float64, maxTokens int) (string, error) {
		seen = maxTokens
		return "ok", nil
	})
	d := New(gw, respcache.New(time.Minute, logging.NewNop()), logging.NewNop(), nil)

	big := 99999
	req := chatRequest("hello")
	req.MaxTokens = &big
	d.Dispatch(context.Background(), req)
	if seen != 2000 {
		t.Fatalf("max_tokens = %d, want clamp to 2000", seen)
	}

	req = chatRequest("hello again")
	d.Dispatch(context.Background(), req)
	if seen != 2000 {
		t.Fatalf("max_tokens default = %d, want 2000", seen)
	}

	small := 100
	req = chatRequest("one more")
	req.MaxTokens = &small
	d.Dispatch(context.Background(), req)
	if seen != 100 {
		t.Fatalf("max_tokens = %d, want client value 100", seen)
	}
}

func TestConfiguredSamplingDefaultsReachGateway(t *testing.T) {
	var seenTemp float64
	var seenMax int
	gw := completerFunc(func(_ context.Context, _ []wire.Message, temperature float64, maxTokens int) (string, error) {
		seenTemp = temperature
		seenMax = maxTokens
		return "ok", nil
	})
	d := New(gw, respcache.New(time.Minute, logging.NewNop()), logging.NewNop(), nil,
		WithSamplingDefaults(0.1, 700))

	d.Dispatch(context.Background(), chatRequest("hello"))
	if seenTemp != 0.1 || seenMax != 700 {
		t.Fatalf("gateway saw %v/%v, want configured defaults 0.1/700", seenTemp, seenMax)
	}

	// Request values still win over the configured defaults.
	temp := 0.5
	tokens := 300
	req := chatRequest("hello again")
	req.Temperature = &temp
	req.MaxTokens = &tokens
	d.Dispatch(context.Background(), req)
	if seenTemp != 0.5 || seenMax != 300 {
		t.Fatalf("gateway saw %v/%v, want request values 0.5/300", seenTemp, seenMax)
	}
}

func TestSamplingDefaultsCappedAtChatCeiling(t *testing.T) {
	var seen int
	gw := completerFunc(func(_ context.Context, _ []wire.Message, _ float64, maxTokens int) (string, error) {
		seen = maxTokens
		return "ok", nil
	})
	d := New(gw, respcache.New(time.Minute, logging.NewNop()), logging.NewNop(), nil,
		WithSamplingDefaults(0, 99999))

	d.Dispatch(context.Background(), chatRequest("hello"))
	if seen != 2000 {
		t.Fatalf("default max_tokens = %d, want cap at 2000", seen)
	}
}

func TestExplicitZeroTemperatureReachesGateway(t *testing.T) {
	seen := -1.0
	gw := completerFunc(func(_ context.Context, _ []wire.Message, temperature float64, _ int) (string, error) {
		seen = temperature
		return "ok", nil
	})
	d := New(gw, respcache.New(time.Minute, logging.NewNop()), logging.NewNop(), nil)

	zero := 0.0
	req := chatRequest("hello")
	req.Temperature = &zero
	d.Dispatch(context.Background(), req)
	if seen != 0 {
		t.Fatalf("gateway saw temperature %v, want explicit 0", seen)
	}
}

type completerFunc func(context.Context, []wire.Message, float64, int) (string, error)

func (f completerFunc) Complete(ctx context.Context, msgs []wire.Message, temperature float64, maxTokens int) (string, error) {
	return f(ctx, msgs, temperature, maxTokens)
}
