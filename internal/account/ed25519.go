package account

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58/base58"

	"keyforge/go-backend/internal/derive"
)

const ChainEd25519 = "ed25519"

// Ed25519 materializes an Ed25519 account. The export format is the common
// wallet-import blob: base58(seed || publicKey), 64 bytes before encoding.
// The address is the base58 encoding of the public key alone.
type Ed25519 struct{}

func (Ed25519) Chain() string { return ChainEd25519 }

func (Ed25519) Materialize(seed [derive.SeedSize]byte) (*Account, error) {
	// Every 32-byte value is a valid Ed25519 seed, so unlike the secp256k1
	// variant there is no range check here.
	priv := ed25519.NewKeyFromSeed(seed[:])
	pub := priv.Public().(ed25519.PublicKey)

	// priv is already laid out as seed || publicKey (64 bytes).
	acct := &Account{
		Chain:        ChainEd25519,
		Address:      base58.Encode(pub),
		PublicKey:    append([]byte(nil), pub...),
		SecretExport: base58.Encode(priv),
	}
	derive.ZeroBytes(priv)
	return acct, nil
}
