// Package derive turns the four user-supplied factors of a wallet into fixed
// 32-byte seed material: SHA-256 salt combination followed by memory-hard
// scrypt stretching. Every function here is a pure function of its inputs;
// nothing is cached between calls.
package derive

import (
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// Engine runs the memory-hard derivation. The zero value enforces
// DefaultMaxMemory. An Engine holds no state across calls and is safe for
// concurrent use.
type Engine struct {
	// MaxMemory bounds the scrypt working set in bytes. Zero or negative
	// means DefaultMaxMemory.
	MaxMemory int64
}

// Derive stretches password with scrypt(N=2^costExponent, r=8, p=1) over the
// combined salt into a 32-byte seed. Identical inputs always produce the
// identical seed. The call blocks for the full cost of the derivation.
func (e Engine) Derive(password []byte, salt [SaltSize]byte, costExponent int) ([SeedSize]byte, error) {
	var seed [SeedSize]byte
	params, err := ParamsForExponent(costExponent, e.MaxMemory)
	if err != nil {
		return seed, err
	}
	raw, err := scrypt.Key(password, salt[:], params.N, params.R, params.P, params.KeyLen)
	if err != nil {
		return seed, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	copy(seed[:], raw)
	ZeroBytes(raw)
	return seed, nil
}

// ZeroBytes overwrites b in place. Callers use it to drop seed and password
// material as soon as it has served its purpose.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
