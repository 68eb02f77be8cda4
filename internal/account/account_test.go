package account

import "testing"

func TestSecretPreviewTruncates(t *testing.T) {
	a := &Account{SecretExport: "5FYstkNCrknWWA8o77RRfm7Rb"}
	if got := a.SecretPreview(); got != "5FY...7Rb" {
		t.Fatalf("unexpected preview: %q", got)
	}
}

func TestSecretPreviewShortExport(t *testing.T) {
	a := &Account{SecretExport: "abc"}
	if got := a.SecretPreview(); got != "abc" {
		t.Fatalf("short exports pass through, got %q", got)
	}
}

func TestForChain(t *testing.T) {
	if m := ForChain(ChainEVM); m == nil || m.Chain() != ChainEVM {
		t.Fatal("evm materializer missing")
	}
	if m := ForChain(ChainEd25519); m == nil || m.Chain() != ChainEd25519 {
		t.Fatal("ed25519 materializer missing")
	}
	if m := ForChain("bogus"); m != nil {
		t.Fatal("unknown chain must return nil")
	}
}
