// Package securestore persists derived wallet secrets. The default sink is a
// plain 0600 file holding exactly the export string; the optional keystore
// seals the export under a passphrase with argon2id + XChaCha20-Poly1305.
package securestore

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	keystoreVersion = 1
	saltSize        = 16
	filePrefix      = "KFKS1\n"
)

var (
	ErrAuthFailed = errors.New("keystore authentication failed")
	ErrInvalid    = errors.New("keystore envelope is invalid")
	ErrNotSealed  = errors.New("file is not a sealed keystore")
)

// Envelope is the sealed keystore payload. KDF parameters ride along so the
// file stays decryptable if the defaults move.
type Envelope struct {
	Version     uint32 `json:"version"`
	Chain       string `json:"chain"`
	Address     string `json:"address"`
	KDF         string `json:"kdf"`
	KDFTime     uint32 `json:"kdf_time"`
	KDFMemoryKB uint32 `json:"kdf_memory_kb"`
	KDFThreads  uint8  `json:"kdf_threads"`
	Salt        []byte `json:"salt"`
	Nonce       []byte `json:"nonce"`
	Ciphertext  []byte `json:"ciphertext"`
}

// Seal encrypts the secret export under the passphrase and returns the full
// file contents, magic prefix included. Chain and address are stored in the
// clear so a keystore can be identified without unsealing it, and are bound
// into the AEAD as associated data so a swapped header fails authentication.
func Seal(passphrase, chain, address string, secretExport []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key := sealKey(passphrase, salt)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	env := &Envelope{
		Version:     keystoreVersion,
		Chain:       chain,
		Address:     address,
		KDF:         "argon2id",
		KDFTime:     2,
		KDFMemoryKB: 64 * 1024,
		KDFThreads:  1,
		Salt:        salt,
		Nonce:       nonce,
		Ciphertext:  aead.Seal(nil, nonce, secretExport, headerAAD(chain, address)),
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	return append([]byte(filePrefix), raw...), nil
}

// Unseal reverses Seal, returning the secret export bytes.
func Unseal(passphrase string, data []byte) ([]byte, error) {
	if !strings.HasPrefix(string(data), filePrefix) {
		return nil, ErrNotSealed
	}
	var env Envelope
	if err := json.Unmarshal(data[len(filePrefix):], &env); err != nil {
		return nil, ErrInvalid
	}
	if env.Version != keystoreVersion || env.KDF != "argon2id" {
		return nil, ErrInvalid
	}
	if env.KDFTime == 0 || env.KDFMemoryKB == 0 || env.KDFThreads == 0 ||
		len(env.Salt) == 0 || len(env.Nonce) != chacha20poly1305.NonceSizeX {
		return nil, ErrInvalid
	}
	key := argon2.IDKey([]byte(passphrase), env.Salt, env.KDFTime, env.KDFMemoryKB, env.KDFThreads, chacha20poly1305.KeySize)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, env.Nonce, env.Ciphertext, headerAAD(env.Chain, env.Address))
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

func headerAAD(chain, address string) []byte {
	return []byte(chain + "\x00" + address)
}

func sealKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 2, 64*1024, 1, chacha20poly1305.KeySize)
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
