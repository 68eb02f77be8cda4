package account

import (
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/sha3"

	"keyforge/go-backend/internal/derive"
)

const ChainEVM = "evm"

// EVM materializes a secp256k1 account: the seed is the private scalar, the
// address is the EIP-55 checksummed form of the last 20 bytes of
// Keccak-256(X || Y).
type EVM struct{}

func (EVM) Chain() string { return ChainEVM }

func (EVM) Materialize(seed [derive.SeedSize]byte) (*Account, error) {
	var scalar secp256k1.ModNScalar
	overflow := scalar.SetBytes(&seed)
	if overflow != 0 || scalar.IsZero() {
		scalar.Zero()
		// ~2^-128 per derivation, but reducing modulo the order here would
		// produce a key unrelated to what any other implementation derives.
		return nil, fmt.Errorf("%w: seed is outside the secp256k1 scalar range", derive.ErrInvalidKeyMaterial)
	}
	priv := secp256k1.NewPrivateKey(&scalar)
	defer priv.Zero()

	pub := priv.PubKey().SerializeUncompressed()
	digest := keccak256(pub[1:]) // strip the 0x04 marker, hash the raw 64 bytes
	return &Account{
		Chain:        ChainEVM,
		Address:      ChecksumAddress(digest[12:]),
		PublicKey:    pub,
		SecretExport: "0x" + hex.EncodeToString(seed[:]),
	}, nil
}

// ChecksumAddress renders 20 address bytes in the mixed-case checksum form:
// Keccak-256 the lowercase hex string and uppercase every hex letter whose
// corresponding digest nibble is >= 8.
func ChecksumAddress(addr []byte) string {
	lower := hex.EncodeToString(addr)
	digest := keccak256([]byte(lower))
	out := []byte(lower)
	for i, c := range out {
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		if nibble >= 8 {
			out[i] = c - ('a' - 'A')
		}
	}
	return "0x" + string(out)
}

func keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}
