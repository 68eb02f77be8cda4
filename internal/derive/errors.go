package derive

import "errors"

var (
	ErrInvalidParameter      = errors.New("invalid derivation parameter")
	ErrResourceLimitExceeded = errors.New("derivation memory cost exceeds configured limit")
	ErrInvalidKeyMaterial    = errors.New("derived seed is not valid key material")
)
