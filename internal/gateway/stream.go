package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"hearth/internal/wire"
)

// Stream is a finite, non-restartable sequence of completion text fragments
// delivered over Server-Sent Events. The remote call is made once when the
// stream is opened; each Recv drives delivery of the next fragment. Callers
// must Close the stream on every exit path, including early abandonment,
// or the underlying response body leaks.
type Stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	closed  bool
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Stream opens a streaming completion for the conversation. Metadata-only
// chunks are skipped, never surfaced as empty fragments.
func (c *Client) Stream(ctx context.Context, msgs []wire.Message, temperature float64, maxTokens int) (*Stream, error) {
	if len(msgs) == 0 {
		return nil, errors.New("gateway: conversation must not be empty")
	}
	payload := c.buildRequest(msgs, temperature, maxTokens, true)

	resp, err := c.post(ctx, payload)
	if err != nil {
		return nil, &FailureError{Detail: "open stream", Err: err}
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &FailureError{
			Detail: "open stream",
			Err: &httpStatusError{
				StatusCode: resp.StatusCode,
				Body:       strings.TrimSpace(string(body)),
			},
		}
	}

	return &Stream{
		body:    resp.Body,
		scanner: bufio.NewScanner(resp.Body),
	}, nil
}

// Recv returns the next text fragment. It returns io.EOF when the stream
// ends normally (the "[DONE]" marker or connection close).
func (s *Stream) Recv() (string, error) {
	if s.closed {
		return "", io.EOF
	}
	for {
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return "", fmt.Errorf("gateway stream: read: %w", err)
			}
			return "", io.EOF
		}
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data: ") {
			// SSE comments, event names, keep-alives.
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			return "", io.EOF
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return "", fmt.Errorf("gateway stream: decode chunk: %w", err)
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				return choice.Delta.Content, nil
			}
		}
		// Metadata chunk with no text; keep reading.
	}
}

// Close releases the underlying response body. Safe to call more than once.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}
