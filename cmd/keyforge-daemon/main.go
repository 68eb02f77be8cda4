package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"keyforge/go-backend/internal/bootstrap/deriveconfig"
	"keyforge/go-backend/internal/daemon"
	"keyforge/go-backend/internal/platform/privacylog"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	listenAddr := flag.String("listen-addr", "", "HTTP listen address override")
	configPath := flag.String("config", "", "path to keyforge.yaml (optional)")
	rpcToken := flag.String("rpc-token", "", "RPC token for Authorization/X-Keyforge-RPC-Token (optional)")
	flag.Parse()
	if *showVersion {
		fmt.Printf("keyforge-daemon version=%s commit=%s build_date=%s\n", version, commit, buildDate)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *rpcToken != "" {
		_ = os.Setenv("KEYFORGE_RPC_TOKEN", *rpcToken)
	}

	cfg := deriveconfig.LoadFromPath(*configPath)
	if *listenAddr != "" {
		cfg.Daemon.ListenAddr = *listenAddr
	}

	logger := slog.New(privacylog.WrapHandler(slog.NewTextHandler(os.Stderr, nil)))
	srv := daemon.NewServer(cfg, logger)

	logger.Info("keyforge-daemon starting", "version", version)
	if err := srv.Run(ctx); err != nil {
		logger.Error("keyforge-daemon failed", "err", err.Error())
		os.Exit(1)
	}
	logger.Info("keyforge-daemon stopped")
}
