// Package wallet wires the shared derivation pipeline to a chain-specific
// account materializer: raw factors -> combined salt -> scrypt seed ->
// account. Data flows one way; no stage reads back from a later one.
package wallet

import (
	"fmt"

	"github.com/tyler-smith/go-bip39"

	"keyforge/go-backend/internal/account"
	"keyforge/go-backend/internal/derive"
)

// Inputs carries the four user-supplied factors. All byte sequences are
// opaque: no trimming, no Unicode normalization. Normalizing anywhere would
// break reproducibility against wallets generated before.
type Inputs struct {
	Password     []byte
	UserSalt     []byte
	AppSalt      []byte
	CostExponent int
}

// Result is the outcome of one successful derivation.
type Result struct {
	Account *account.Account
	// CostFactorN echoes the effective scrypt cost factor 2^exponent.
	CostFactorN int
	// BackupPhrase is the optional 24-word rendering of the seed, empty
	// unless requested.
	BackupPhrase string
}

// Generator binds one derivation engine to one materializer. The generator
// keeps nothing between calls; every Generate is independent.
type Generator struct {
	Engine       derive.Engine
	Materializer account.Materializer
	// WithBackupPhrase also renders the derived seed as a BIP-39 mnemonic
	// for offline transcription.
	WithBackupPhrase bool
}

// Generate runs the full pipeline. Any failure aborts before a partial
// account can escape.
func (g Generator) Generate(in Inputs) (*Result, error) {
	if g.Materializer == nil {
		return nil, fmt.Errorf("%w: no account materializer configured", derive.ErrInvalidParameter)
	}

	salt := derive.CombineSalts(in.UserSalt, in.AppSalt)
	seed, err := g.Engine.Derive(in.Password, salt, in.CostExponent)
	if err != nil {
		return nil, err
	}
	defer derive.ZeroBytes(seed[:])

	acct, err := g.Materializer.Materialize(seed)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Account:     acct,
		CostFactorN: 1 << uint(in.CostExponent),
	}
	if g.WithBackupPhrase {
		phrase, err := bip39.NewMnemonic(seed[:])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", derive.ErrInvalidParameter, err)
		}
		res.BackupPhrase = phrase
	}
	return res, nil
}
