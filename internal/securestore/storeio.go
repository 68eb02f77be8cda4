package securestore

import (
	"os"
	"path/filepath"
)

// WriteSecretString writes the literal secret export string to path with
// owner-only permissions. The file holds exactly the export string, no
// framing and no trailing newline; that is the interchange contract.
func WriteSecretString(path, secretExport string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(secretExport), 0o600)
}

// WriteSealedSecret seals the export under the passphrase and writes the
// keystore file with owner-only permissions.
func WriteSealedSecret(path, passphrase, chain, address, secretExport string) error {
	sealed, err := Seal(passphrase, chain, address, []byte(secretExport))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, sealed, 0o600)
}

// ReadSealedSecret reads a keystore file and unseals the export.
func ReadSealedSecret(path, passphrase string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Unseal(passphrase, raw)
}
