package daemon

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"keyforge/go-backend/internal/bootstrap/deriveconfig"
	"keyforge/go-backend/pkg/models"
)

func newTestServer(t *testing.T, mutate func(*deriveconfig.Config)) *httptest.Server {
	t.Helper()
	cfg := deriveconfig.Default()
	cfg.Daemon.RateLimitRPS = 0 // no limiter unless a test asks for one
	if mutate != nil {
		mutate(&cfg)
	}
	srv := NewServerWithRegistry(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), prometheus.NewRegistry())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postDerive(t *testing.T, ts *httptest.Server, req models.DeriveRequest, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	httpReq, err := http.NewRequest(http.MethodPost, ts.URL+"/v1/derive", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}
	resp, err := ts.Client().Do(httpReq)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, buf.Bytes()
}

func TestDeriveHappyPath(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, body := postDerive(t, ts, models.DeriveRequest{
		Chain:        "evm",
		Password:     "correct horse",
		UserSalt:     "battery",
		AppSalt:      "staple",
		CostExponent: 12,
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.StatusCode, body)
	}
	var out models.DeriveResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Address != "0xD8f3A427E22761B5a008D086457DAe97cf0e4943" {
		t.Fatalf("unexpected address: %s", out.Address)
	}
	if out.CostFactorN != 4096 {
		t.Fatalf("unexpected cost factor: %d", out.CostFactorN)
	}
	if out.SecretExport == "" || out.SecretPreview == "" {
		t.Fatal("expected secret export and preview")
	}
}

func TestDeriveOmitSecret(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, body := postDerive(t, ts, models.DeriveRequest{
		Chain:        "ed25519",
		Password:     "pw",
		UserSalt:     "u",
		AppSalt:      "a",
		CostExponent: 4,
		OmitSecret:   true,
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.StatusCode, body)
	}
	var out models.DeriveResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.SecretExport != "" {
		t.Fatal("secret export must be omitted on request")
	}
	if out.SecretPreview == "" {
		t.Fatal("preview should still be present")
	}
}

func TestDeriveRejectsBadInputs(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, _ := postDerive(t, ts, models.DeriveRequest{Chain: "dogecoin", Password: "p", CostExponent: 4}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown chain: expected 400, got %d", resp.StatusCode)
	}

	resp, body := postDerive(t, ts, models.DeriveRequest{Chain: "evm", Password: "p", CostExponent: 0}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("zero exponent: expected 400, got %d", resp.StatusCode)
	}
	var errResp models.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Kind != models.ErrKindInvalidParameter {
		t.Fatalf("expected invalid_parameter kind, got %s", body)
	}
}

func TestDeriveResourceLimit(t *testing.T) {
	ts := newTestServer(t, func(cfg *deriveconfig.Config) {
		cfg.Derivation.MaxMemoryBytes = 1 << 20
	})
	resp, body := postDerive(t, ts, models.DeriveRequest{Chain: "evm", Password: "p", CostExponent: 30}, nil)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", resp.StatusCode, body)
	}
	var errResp models.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Kind != models.ErrKindResourceLimitExceeded {
		t.Fatalf("expected resource_limit_exceeded kind, got %s", body)
	}
}

func TestDeriveAdmissionExhausted(t *testing.T) {
	ts := newTestServer(t, func(cfg *deriveconfig.Config) {
		// Below the 16 KiB working set of exponent 4, so nothing is admitted.
		cfg.Daemon.AdmissionMemoryBytes = 1000
	})
	resp, body := postDerive(t, ts, models.DeriveRequest{Chain: "evm", Password: "p", CostExponent: 4}, nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", resp.StatusCode, body)
	}
}

func TestDeriveRequiresToken(t *testing.T) {
	t.Setenv(rpcTokenEnv, "sekrit")
	ts := newTestServer(t, nil)

	resp, _ := postDerive(t, ts, models.DeriveRequest{Chain: "evm", Password: "p", CostExponent: 4}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp, _ = postDerive(t, ts, models.DeriveRequest{Chain: "evm", Password: "p", CostExponent: 4},
		map[string]string{"Authorization": "Bearer sekrit"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with bearer token, got %d", resp.StatusCode)
	}

	resp, _ = postDerive(t, ts, models.DeriveRequest{Chain: "evm", Password: "p", CostExponent: 4},
		map[string]string{"X-Keyforge-RPC-Token": "sekrit"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with header token, got %d", resp.StatusCode)
	}
}

func TestDeriveRateLimited(t *testing.T) {
	ts := newTestServer(t, func(cfg *deriveconfig.Config) {
		cfg.Daemon.RateLimitRPS = 0.001
		cfg.Daemon.RateLimitBurst = 1
	})
	req := models.DeriveRequest{Chain: "evm", Password: "p", CostExponent: 4}
	resp, _ := postDerive(t, ts, req, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first request should pass, got %d", resp.StatusCode)
	}
	resp, body := postDerive(t, ts, req, nil)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d: %s", resp.StatusCode, body)
	}
}

func TestDeriveMethodAndBody(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := ts.Client().Get(ts.URL + "/v1/derive")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET, got %d", resp.StatusCode)
	}

	resp, err = ts.Client().Post(ts.URL+"/v1/derive", "application/json", bytes.NewReader([]byte("{broken")))
	if err != nil {
		t.Fatalf("post failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, err := ts.Client().Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
