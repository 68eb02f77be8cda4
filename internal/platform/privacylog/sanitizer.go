// Package privacylog keeps secret factors and derived key material out of log
// output. Every logger in the CLI and daemon goes through the sanitizing
// handler; the derivation core itself never logs.
package privacylog

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
)

const redactedValue = "[REDACTED]"

var (
	bootNonce = randomNonce()

	// Keys that carry secret factors or exported key material are never
	// logged, in any form.
	sensitiveKeyParts = []string{
		"password", "passphrase", "salt", "seed", "secret",
		"export", "mnemonic", "token", "authorization", "privkey",
	}

	// Addresses are public on-chain but still identify a wallet; logs carry
	// a boot-scoped fingerprint instead of the plain value.
	fingerprintedKeys = map[string]struct{}{
		"address": {},
		"addr":    {},
		"account": {},
	}
)

type SanitizingHandler struct {
	next slog.Handler
}

func WrapHandler(next slog.Handler) slog.Handler {
	if next == nil {
		return nil
	}
	return &SanitizingHandler{next: next}
}

func (h *SanitizingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *SanitizingHandler) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
	rec.Attrs(func(attr slog.Attr) bool {
		out.AddAttrs(SanitizeAttr(attr))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *SanitizingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sanitized := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		sanitized = append(sanitized, SanitizeAttr(attr))
	}
	return &SanitizingHandler{next: h.next.WithAttrs(sanitized)}
}

func (h *SanitizingHandler) WithGroup(name string) slog.Handler {
	return &SanitizingHandler{next: h.next.WithGroup(name)}
}

func SanitizeAttr(attr slog.Attr) slog.Attr {
	key := strings.TrimSpace(attr.Key)
	lowerKey := strings.ToLower(key)
	if isSensitiveKey(lowerKey) {
		return slog.String(key, redactedValue)
	}
	if shouldFingerprintKey(lowerKey) {
		return slog.String(fingerprintKeyName(key), Fingerprint(valueToString(attr.Value)))
	}
	return attr
}

// Fingerprint hashes a value with a per-process nonce so log lines from one
// run correlate with each other but not across runs.
func Fingerprint(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(trimmed + "|" + bootNonce))
	return "fp_" + hex.EncodeToString(sum[:8])
}

func shouldFingerprintKey(key string) bool {
	_, ok := fingerprintedKeys[key]
	return ok
}

func fingerprintKeyName(key string) string {
	if strings.HasSuffix(strings.ToLower(key), "_fp") {
		return key
	}
	return key + "_fp"
}

func isSensitiveKey(key string) bool {
	for _, part := range sensitiveKeyParts {
		if strings.Contains(key, part) {
			return true
		}
	}
	return false
}

func valueToString(v slog.Value) string {
	if v.Kind() == slog.KindString {
		return v.String()
	}
	return fmt.Sprint(v.Any())
}

func randomNonce() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "fallback_nonce"
	}
	return hex.EncodeToString(buf)
}
