package derive

import "fmt"

const (
	SeedSize = 32

	// r and p are frozen; only N is tunable. Changing either would silently
	// derive different wallets from the same inputs.
	blockSize       = 8
	parallelization = 1

	// DefaultMaxMemory caps the scrypt working set at 1 GiB, which with r=8
	// allows cost exponents up to 20.
	DefaultMaxMemory = int64(1) << 30

	// Exponents at or above 63 would overflow the shift before the memory
	// check can reject them.
	maxCostExponent = 62
)

// Params is the full scrypt parameter set for one derivation.
type Params struct {
	N      int
	R      int
	P      int
	KeyLen int
}

// MemoryBytes reports the scrypt working-set size, 128*N*r.
func (p Params) MemoryBytes() int64 {
	return 128 * int64(p.N) * int64(p.R)
}

// ParamsForExponent expands a cost exponent into concrete scrypt parameters,
// enforcing the memory ceiling. maxMemory <= 0 selects DefaultMaxMemory.
// Requests over the ceiling fail; they are never clamped.
func ParamsForExponent(costExponent int, maxMemory int64) (Params, error) {
	if costExponent <= 0 {
		return Params{}, fmt.Errorf("%w: cost exponent must be a positive integer, got %d", ErrInvalidParameter, costExponent)
	}
	if costExponent > maxCostExponent {
		return Params{}, fmt.Errorf("%w: cost exponent %d is out of range", ErrInvalidParameter, costExponent)
	}
	if maxMemory <= 0 {
		maxMemory = DefaultMaxMemory
	}
	params := Params{
		N:      1 << uint(costExponent),
		R:      blockSize,
		P:      parallelization,
		KeyLen: SeedSize,
	}
	if mem := params.MemoryBytes(); mem > maxMemory {
		return Params{}, fmt.Errorf("%w: 2^%d needs %d bytes, ceiling is %d", ErrResourceLimitExceeded, costExponent, mem, maxMemory)
	}
	return params, nil
}
