// Package daemon exposes the derivation pipeline as a long-running local
// service. Each request runs on its own handler goroutine; admission control
// bounds the total scrypt memory in flight, and requests past the bound are
// rejected rather than queued.
package daemon

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"keyforge/go-backend/internal/account"
	"keyforge/go-backend/internal/bootstrap/deriveconfig"
	"keyforge/go-backend/internal/derive"
	"keyforge/go-backend/internal/platform/ratelimiter"
	"keyforge/go-backend/internal/wallet"
	"keyforge/go-backend/pkg/models"
)

const rpcTokenEnv = "KEYFORGE_RPC_TOKEN"

type Server struct {
	cfg       deriveconfig.Config
	engine    derive.Engine
	admission *Admission
	limiter   *ratelimiter.MapLimiter
	metrics   *metrics
	log       *slog.Logger
	token     string
	now       func() time.Time

	httpSrv *http.Server
}

// NewServer builds a server from config. The RPC token comes from
// KEYFORGE_RPC_TOKEN; an empty token disables auth, which is only sane on a
// loopback listen address.
func NewServer(cfg deriveconfig.Config, logger *slog.Logger) *Server {
	return NewServerWithRegistry(cfg, logger, prometheus.DefaultRegisterer)
}

func NewServerWithRegistry(cfg deriveconfig.Config, logger *slog.Logger, reg prometheus.Registerer) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	admission := NewAdmission(cfg.Daemon.AdmissionMemoryBytes)
	s := &Server{
		cfg:       cfg,
		engine:    derive.Engine{MaxMemory: cfg.Derivation.MaxMemoryBytes},
		admission: admission,
		limiter:   ratelimiter.New(cfg.Daemon.RateLimitRPS, cfg.Daemon.RateLimitBurst, time.Duration(cfg.Daemon.RateLimitIdleTTL)),
		metrics:   newMetrics(reg, admission),
		log:       logger,
		token:     strings.TrimSpace(os.Getenv(rpcTokenEnv)),
		now:       time.Now,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/derive", s.handleDerive)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully. In-flight
// derivations are given time to finish; scrypt cannot be interrupted midway.
func (s *Server) Run(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:    s.cfg.Daemon.ListenAddr,
		Handler: s.Handler(),
	}
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.log.Info("keyforge daemon listening", "listen_addr", s.cfg.Daemon.ListenAddr)
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleDerive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, models.ErrKindInvalidParameter, "POST required")
		return
	}
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, models.ErrKindUnauthorized, "missing or wrong RPC token")
		return
	}
	if !s.limiter.Allow(clientKey(r), s.now()) {
		s.metrics.rateLimited.Inc()
		writeError(w, http.StatusTooManyRequests, models.ErrKindRateLimited, "slow down")
		return
	}

	var req models.DeriveRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, models.ErrKindInvalidParameter, "malformed request body")
		return
	}

	materializer := account.ForChain(req.Chain)
	if materializer == nil {
		writeError(w, http.StatusBadRequest, models.ErrKindInvalidParameter, "unknown chain")
		return
	}

	params, err := derive.ParamsForExponent(req.CostExponent, s.engine.MaxMemory)
	if err != nil {
		s.writeDeriveError(w, req.Chain, err)
		return
	}
	if !s.admission.Reserve(params.MemoryBytes()) {
		s.metrics.admissionFails.Inc()
		writeError(w, http.StatusServiceUnavailable, models.ErrKindOverloaded, "derivation memory budget exhausted")
		return
	}
	defer s.admission.Release(params.MemoryBytes())

	gen := wallet.Generator{
		Engine:           s.engine,
		Materializer:     materializer,
		WithBackupPhrase: req.BackupPhrase,
	}
	start := s.now()
	res, err := gen.Generate(wallet.Inputs{
		Password:     []byte(req.Password),
		UserSalt:     []byte(req.UserSalt),
		AppSalt:      []byte(req.AppSalt),
		CostExponent: req.CostExponent,
	})
	if err != nil {
		s.metrics.derivations.WithLabelValues(req.Chain, "error").Inc()
		s.writeDeriveError(w, req.Chain, err)
		return
	}
	s.metrics.derivations.WithLabelValues(req.Chain, "ok").Inc()
	s.metrics.duration.Observe(time.Since(start).Seconds())

	s.log.Info("derivation served",
		"chain", req.Chain,
		"cost_factor_n", res.CostFactorN,
		"address", res.Account.Address,
	)

	resp := models.DeriveResponse{
		Chain:         res.Account.Chain,
		Address:       res.Account.Address,
		PublicKeyHex:  hex.EncodeToString(res.Account.PublicKey),
		CostFactorN:   res.CostFactorN,
		SecretPreview: res.Account.SecretPreview(),
		Mnemonic:      res.BackupPhrase,
	}
	if !req.OmitSecret {
		resp.SecretExport = res.Account.SecretExport
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeDeriveError(w http.ResponseWriter, chain string, err error) {
	switch {
	case errors.Is(err, derive.ErrResourceLimitExceeded):
		writeError(w, http.StatusRequestEntityTooLarge, models.ErrKindResourceLimitExceeded, err.Error())
	case errors.Is(err, derive.ErrInvalidParameter):
		writeError(w, http.StatusBadRequest, models.ErrKindInvalidParameter, err.Error())
	case errors.Is(err, derive.ErrInvalidKeyMaterial):
		writeError(w, http.StatusUnprocessableEntity, models.ErrKindInvalidKeyMaterial, err.Error())
	default:
		s.log.Error("derivation failed", "chain", chain, "err", err.Error())
		writeError(w, http.StatusInternalServerError, models.ErrKindInternal, "derivation failed")
	}
}

func (s *Server) authorized(r *http.Request) bool {
	if s.token == "" {
		return true
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(header, "Bearer ") && strings.TrimPrefix(header, "Bearer ") == s.token {
		return true
	}
	return r.Header.Get("X-Keyforge-RPC-Token") == s.token
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, models.ErrorResponse{Kind: kind, Message: message})
}
