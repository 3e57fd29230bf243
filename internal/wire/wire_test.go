package wire

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestEncodeAppendsSentinel(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, PingResponse{Status: "alive", Action: "pong"}); err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	got := buf.String()
	if !strings.HasSuffix(got, Sentinel) {
		t.Fatalf("frame %q does not end with sentinel", got)
	}
	if !strings.Contains(got, `"status":"alive"`) {
		t.Fatalf("frame %q missing payload", got)
	}
}

func TestRoundTrip(t *testing.T) {
	temp := 0.5
	maxTokens := 512
	req := Request{
		Action: ActionChat,
		Messages: []Message{
			{Role: RoleSystem, Content: "be terse"},
			{Role: RoleUser, Content: "hello"},
		},
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	}

	var buf bytes.Buffer
	if err := Encode(&buf, req); err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}

	decoded, err := DecodeRequest(&buf)
	if err != nil {
		t.Fatalf("DecodeRequest returned error: %v", err)
	}
	if decoded.Action != ActionChat {
		t.Errorf("action = %q, want %q", decoded.Action, ActionChat)
	}
	if len(decoded.Messages) != 2 || decoded.Messages[1].Content != "hello" {
		t.Errorf("messages = %+v", decoded.Messages)
	}
	if decoded.Temperature == nil || *decoded.Temperature != 0.5 {
		t.Errorf("temperature = %v, want 0.5", decoded.Temperature)
	}
	if decoded.MaxTokens == nil || *decoded.MaxTokens != 512 {
		t.Errorf("max_tokens = %v, want 512", decoded.MaxTokens)
	}
}

func TestDecodeWaitsForSentinelAcrossReads(t *testing.T) {
	frame := `{"action":"ping"}` + Sentinel
	r := iotest{chunks: []string{frame[:5], frame[5:12], frame[12:]}}
	req, err := DecodeRequest(&r)
	if err != nil {
		t.Fatalf("DecodeRequest returned error: %v", err)
	}
	if req.Action != ActionPing {
		t.Fatalf("action = %q, want ping", req.Action)
	}
}

func TestDecodeMalformedJSON(t *testing.T) {
	r := strings.NewReader("not json at all" + Sentinel)
	_, err := DecodeRequest(r)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestDecodePeerClosedWithoutFrame(t *testing.T) {
	_, err := DecodeRequest(strings.NewReader(""))
	if !errors.Is(err, ErrNoRequest) {
		t.Fatalf("err = %v, want ErrNoRequest", err)
	}
}

func TestDecodeEOFBeforeSentinelStillParses(t *testing.T) {
	// A peer that closes after a complete JSON document but without the
	// sentinel yields whatever was buffered; valid JSON still parses.
	r := strings.NewReader(`{"action":"ping"}`)
	req, err := DecodeRequest(r)
	if err != nil {
		t.Fatalf("DecodeRequest returned error: %v", err)
	}
	if req.Action != ActionPing {
		t.Fatalf("action = %q, want ping", req.Action)
	}
}

func TestSentinelStrippedFromAnywhere(t *testing.T) {
	// Documented wire-compat behavior: sentinel text embedded in content is
	// deleted, not preserved.
	frame := `{"action":"chat","messages":[{"role":"user","content":"a` + Sentinel + `b"}]}` + Sentinel
	req, err := DecodeRequest(strings.NewReader(frame))
	if err != nil {
		t.Fatalf("DecodeRequest returned error: %v", err)
	}
	if got := req.Messages[0].Content; got != "ab" {
		t.Fatalf("content = %q, want %q (sentinel stripped)", got, "ab")
	}
}

// iotest serves fixed chunks one Read at a time, then EOF.
type iotest struct {
	chunks []string
	next   int
}

func (r *iotest) Read(p []byte) (int, error) {
	if r.next >= len(r.chunks) {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[r.next])
	r.next++
	return n, nil
}
