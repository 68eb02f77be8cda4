// Package account materializes chain-specific accounts from derived seed
// material. The Materializer interface is the only chain-polymorphic seam in
// the pipeline; everything upstream of it is chain-agnostic.
package account

import "keyforge/go-backend/internal/derive"

// Account is the result of one materialization. SecretExport is the only
// field that must reach durable storage; Address is safe to display.
type Account struct {
	Chain        string
	Address      string
	PublicKey    []byte
	SecretExport string
}

// SecretPreview returns a first-3/last-3 truncation of the secret export for
// display. The full export never belongs on a screen or in a log line.
func (a *Account) SecretPreview() string {
	if len(a.SecretExport) <= 6 {
		return a.SecretExport
	}
	return a.SecretExport[:3] + "..." + a.SecretExport[len(a.SecretExport)-3:]
}

// Materializer derives a complete account from a 32-byte seed. The variant is
// a deployment choice, not a runtime input.
type Materializer interface {
	Chain() string
	Materialize(seed [derive.SeedSize]byte) (*Account, error)
}

// ForChain returns the materializer for a chain name, or nil if the chain is
// unknown.
func ForChain(chain string) Materializer {
	switch chain {
	case ChainEVM:
		return EVM{}
	case ChainEd25519:
		return Ed25519{}
	}
	return nil
}
