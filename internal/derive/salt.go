package derive

import "crypto/sha256"

const SaltSize = 32

// CombineSalts folds the user salt and application salt into one fixed-size
// salt: SHA-256 over the direct concatenation, user salt first. The order and
// the absence of a delimiter are load-bearing; already-generated wallets
// depend on this exact layout.
func CombineSalts(userSalt, appSalt []byte) [SaltSize]byte {
	h := sha256.New()
	h.Write(userSalt)
	h.Write(appSalt)
	var salt [SaltSize]byte
	copy(salt[:], h.Sum(nil))
	return salt
}
