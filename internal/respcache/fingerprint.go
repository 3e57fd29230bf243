package respcache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"hearth/internal/wire"
)

// Fingerprint derives a deterministic cache key from a conversation and its
// sampling parameters. The input is serialized as canonical JSON (Go
// marshals map keys in sorted order), so two logically identical requests
// always produce the same key regardless of how their JSON was laid out on
// the wire.
func Fingerprint(msgs []wire.Message, temperature float64, maxTokens int) string {
	canonical, err := json.Marshal(map[string]any{
		"messages":    msgs,
		"temperature": temperature,
		"max_tokens":  maxTokens,
	})
	if err != nil {
		// Messages and numbers always marshal; this path is unreachable
		// short of memory corruption.
		panic("respcache: fingerprint marshal: " + err.Error())
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}
