package derive

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"
)

// Tests use small exponents so the scrypt calls stay in the millisecond
// range; the parameter checks are cost-independent.

func TestCombineSaltsFixedLengthAndKnownValue(t *testing.T) {
	salt := CombineSalts([]byte("alpha"), []byte("beta"))
	if len(salt) != SaltSize {
		t.Fatalf("unexpected salt size: %d", len(salt))
	}
	want := "a4c4aeb92c20500f364b12b3771ef3a11193e2cf04d0f28956a829749993b39f"
	if got := hex.EncodeToString(salt[:]); got != want {
		t.Fatalf("salt mismatch: got %s want %s", got, want)
	}
}

func TestCombineSaltsEmptyInputs(t *testing.T) {
	salt := CombineSalts(nil, nil)
	// SHA-256 of the empty string.
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := hex.EncodeToString(salt[:]); got != want {
		t.Fatalf("salt mismatch: got %s want %s", got, want)
	}
}

func TestCombineSaltsOrderMatters(t *testing.T) {
	ab := CombineSalts([]byte("a"), []byte("b"))
	ba := CombineSalts([]byte("b"), []byte("a"))
	if ab == ba {
		t.Fatal("swapping salts must change the combined salt")
	}
}

func TestDeriveDeterministicKnownVector(t *testing.T) {
	salt := CombineSalts([]byte("alpha"), []byte("beta"))
	var e Engine
	seed, err := e.Derive([]byte("pw"), salt, 4)
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	want := "846219aadc50b1f4562e341c6f6b653d0228a80fdbe42bbc949088c60b8d8efd"
	if got := hex.EncodeToString(seed[:]); got != want {
		t.Fatalf("seed mismatch: got %s want %s", got, want)
	}

	again, err := e.Derive([]byte("pw"), salt, 4)
	if err != nil {
		t.Fatalf("second derive failed: %v", err)
	}
	if seed != again {
		t.Fatal("identical inputs must yield identical seeds")
	}
}

func TestDeriveEmptyInputsStillFixedLength(t *testing.T) {
	salt := CombineSalts(nil, nil)
	var e Engine
	seed, err := e.Derive(nil, salt, 4)
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	want := "d1a5e5db44f89a6e2a8aa4bf14e62623b26212b9b6fba391677e373eecedd7f3"
	if got := hex.EncodeToString(seed[:]); got != want {
		t.Fatalf("seed mismatch: got %s want %s", got, want)
	}
}

func TestDeriveSensitivity(t *testing.T) {
	var e Engine
	password := []byte("correct horse")
	userSalt := []byte("battery")
	appSalt := []byte("staple")

	base, err := e.Derive(password, CombineSalts(userSalt, appSalt), 4)
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}

	// Single-bit flips across all three secret factors.
	for _, factor := range []struct {
		name string
		buf  []byte
	}{
		{"password", password},
		{"userSalt", userSalt},
		{"appSalt", appSalt},
	} {
		for i := range factor.buf {
			mutated := append([]byte(nil), factor.buf...)
			mutated[i] ^= 0x01
			var got [SeedSize]byte
			switch factor.name {
			case "password":
				got, err = e.Derive(mutated, CombineSalts(userSalt, appSalt), 4)
			case "userSalt":
				got, err = e.Derive(password, CombineSalts(mutated, appSalt), 4)
			case "appSalt":
				got, err = e.Derive(password, CombineSalts(userSalt, mutated), 4)
			}
			if err != nil {
				t.Fatalf("derive with mutated %s failed: %v", factor.name, err)
			}
			if got == base {
				t.Fatalf("bit flip in %s[%d] did not change the seed", factor.name, i)
			}
		}
	}

	// Changing the exponent changes the seed too.
	other, err := e.Derive(password, CombineSalts(userSalt, appSalt), 5)
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	if other == base {
		t.Fatal("changing the cost exponent must change the seed")
	}
}

func TestParamsForExponentRejectsNonPositive(t *testing.T) {
	for _, exp := range []int{0, -1, -100} {
		if _, err := ParamsForExponent(exp, 0); !errors.Is(err, ErrInvalidParameter) {
			t.Fatalf("exponent %d: expected ErrInvalidParameter, got %v", exp, err)
		}
	}
}

func TestParamsForExponentRejectsOverflowRange(t *testing.T) {
	for _, exp := range []int{63, 64, 1 << 20} {
		if _, err := ParamsForExponent(exp, 0); !errors.Is(err, ErrInvalidParameter) {
			t.Fatalf("exponent %d: expected ErrInvalidParameter, got %v", exp, err)
		}
	}
}

func TestParamsForExponentEnforcesMemoryCeiling(t *testing.T) {
	// 128 * 2^10 * 8 = 1 MiB exactly; one step further must fail.
	if _, err := ParamsForExponent(10, 1<<20); err != nil {
		t.Fatalf("exponent 10 at 1 MiB ceiling should pass: %v", err)
	}
	if _, err := ParamsForExponent(11, 1<<20); !errors.Is(err, ErrResourceLimitExceeded) {
		t.Fatalf("expected ErrResourceLimitExceeded, got %v", err)
	}
}

func TestDeriveRespectsEngineCeilingWithoutAllocating(t *testing.T) {
	e := Engine{MaxMemory: 1 << 20}
	salt := CombineSalts([]byte("a"), []byte("b"))
	// The parameter check runs before scrypt, so this must return at once
	// rather than trying to allocate gigabytes.
	if _, err := e.Derive([]byte("pw"), salt, 30); !errors.Is(err, ErrResourceLimitExceeded) {
		t.Fatalf("expected ErrResourceLimitExceeded, got %v", err)
	}
}

func TestParamsMemoryBytes(t *testing.T) {
	params, err := ParamsForExponent(12, 0)
	if err != nil {
		t.Fatalf("params failed: %v", err)
	}
	if params.N != 4096 || params.R != 8 || params.P != 1 || params.KeyLen != SeedSize {
		t.Fatalf("unexpected params: %+v", params)
	}
	if got := params.MemoryBytes(); got != 128*4096*8 {
		t.Fatalf("unexpected memory bound: %d", got)
	}
}

func TestZeroBytes(t *testing.T) {
	b := []byte{1, 2, 3}
	ZeroBytes(b)
	if !bytes.Equal(b, []byte{0, 0, 0}) {
		t.Fatalf("buffer not zeroed: %v", b)
	}
}
