// Package models holds the wire types shared by the keyforge daemon and its
// clients.
package models

// DeriveRequest asks the daemon for one deterministic derivation. Password
// and salts are byte-sensitive; clients must send them exactly as entered,
// with no trimming or normalization.
type DeriveRequest struct {
	Chain        string `json:"chain"`
	Password     string `json:"password"`
	UserSalt     string `json:"user_salt"`
	AppSalt      string `json:"app_salt"`
	CostExponent int    `json:"cost_exponent"`
	// OmitSecret suppresses the full export in the response, leaving only
	// the preview. For callers that only need the address.
	OmitSecret bool `json:"omit_secret,omitempty"`
	// BackupPhrase additionally returns the 24-word rendering of the seed.
	BackupPhrase bool `json:"backup_phrase,omitempty"`
}

// DeriveResponse is the client-facing view of one derived account.
type DeriveResponse struct {
	Chain         string `json:"chain"`
	Address       string `json:"address"`
	PublicKeyHex  string `json:"public_key_hex"`
	CostFactorN   int    `json:"cost_factor_n"`
	SecretExport  string `json:"secret_export,omitempty"`
	SecretPreview string `json:"secret_preview"`
	Mnemonic      string `json:"mnemonic,omitempty"`
}

// ErrorResponse carries a machine-readable error kind; the message never
// contains secret bytes.
type ErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Error kinds mirrored into HTTP responses.
const (
	ErrKindInvalidParameter      = "invalid_parameter"
	ErrKindResourceLimitExceeded = "resource_limit_exceeded"
	ErrKindInvalidKeyMaterial    = "invalid_key_material"
	ErrKindOverloaded            = "overloaded"
	ErrKindRateLimited           = "rate_limited"
	ErrKindUnauthorized          = "unauthorized"
	ErrKindInternal              = "internal"
)
