package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Sentinel terminates every framed message on the wire. There is no length
// prefix; the peer reads until it observes this byte sequence.
const Sentinel = "__END__"

var (
	// ErrMalformed reports a frame whose payload is not valid JSON.
	ErrMalformed = errors.New("malformed frame")
	// ErrNoRequest reports a peer that closed the connection before
	// completing a frame. Handlers treat it as "nothing to answer".
	ErrNoRequest = errors.New("no request")
)

const readChunkSize = 4096

// Encode writes v as a JSON document followed by the sentinel.
func Encode(w io.Writer, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	payload = append(payload, Sentinel...)
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// readFrame accumulates from r until the sentinel appears anywhere in the
// buffer or the peer closes the connection.
func readFrame(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	chunk := make([]byte, readChunkSize)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if bytes.Contains(buf.Bytes(), []byte(Sentinel)) {
				break
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read frame: %w", err)
		}
	}
	if buf.Len() == 0 {
		return nil, ErrNoRequest
	}
	// The sentinel is stripped wherever it occurs, not just at the frame
	// boundary. A payload whose content contains the literal sentinel text
	// is therefore silently corrupted. The existing clients depend on this
	// exact framing, so it is kept rather than replaced with a
	// length-prefixed format.
	return bytes.ReplaceAll(buf.Bytes(), []byte(Sentinel), nil), nil
}

// Decode reads one framed JSON document from r into v. It blocks until the
// sentinel is observed or the peer closes the connection.
func Decode(r io.Reader, v any) error {
	payload, err := readFrame(r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %s", ErrMalformed, err)
	}
	return nil
}

// DecodeRequest reads one framed Request from r.
func DecodeRequest(r io.Reader) (*Request, error) {
	var req Request
	if err := Decode(r, &req); err != nil {
		return nil, err
	}
	return &req, nil
}
