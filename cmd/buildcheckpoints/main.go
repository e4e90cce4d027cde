package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rsksmart/bitcoinj/internal/builder"
	"github.com/rsksmart/bitcoinj/internal/metrics"
	rpcclient2 "github.com/rsksmart/bitcoinj/internal/pkg/btcd/rpcclient"
	"github.com/rsksmart/bitcoinj/pkg/checkpoint"
	"go.uber.org/zap"
)

type config struct {
	Network     string `long:"network" env:"CHECKPOINTS_NETWORK" description:"bitcoin network (mainnet, testnet3, regtest, simnet)" default:"mainnet"`
	RPCURL      string `long:"rpc-url" env:"CHECKPOINTS_RPC_URL" description:"Bitcoin RPC URL" default:"http://127.0.0.1:8332"`
	RPCUser     string `long:"rpc-user" env:"CHECKPOINTS_RPC_USER" description:"Bitcoin RPC username"`
	RPCPassword string `long:"rpc-password" env:"CHECKPOINTS_RPC_PASSWORD" description:"Bitcoin RPC password"`
	RPCRate     int    `long:"rpc-rate" env:"CHECKPOINTS_RPC_RATE" description:"max RPC requests per second, 0 means unlimited" default:"0"`
	TargetDir   string `long:"target-dir" env:"CHECKPOINTS_TARGET_DIR" description:"directory for the checkpoint files, defaults to the bitcoinj data directory"`
	MetricsAddr string `long:"metrics-addr" env:"CHECKPOINTS_METRICS_ADDR" description:"address for metrics server" default:":2112"`
}

func main() {
	cfg := config{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if _, err := flags.ParseArgs(&cfg, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("checkpoint build failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	params, err := netParams(cfg.Network)
	if err != nil {
		return err
	}

	startMetricsServer(ctx, cfg.MetricsAddr, logger)

	rpcClient, err := newRPCClient(cfg.RPCURL, cfg.RPCUser, cfg.RPCPassword)
	if err != nil {
		return fmt.Errorf("init rpc client: %w", err)
	}
	defer func() {
		rpcClient.Shutdown()
		rpcClient.WaitForShutdown()
	}()
	rpc := rpcclient2.NewObservedClient(rpcClient, metrics.NewRPCClient(params.Name))

	svc, err := builder.NewService(
		builder.NewRPCSource(rpc, cfg.RPCRate),
		metrics.NewBuilder(params.Name),
		params,
		logger,
	)
	if err != nil {
		return err
	}

	set, err := svc.Build(ctx)
	if err != nil {
		return fmt.Errorf("build checkpoints: %w", err)
	}

	dir := cfg.TargetDir
	if dir == "" {
		dir = btcutil.AppDataDir("bitcoinj", false)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create target dir: %w", err)
	}

	digest, err := writeBinaryFile(filepath.Join(dir, "checkpoints"), set)
	if err != nil {
		return err
	}
	if err := writeTextualFile(filepath.Join(dir, "checkpoints.txt"), set); err != nil {
		return err
	}

	logger.Info("checkpoint files written",
		zap.String("dir", dir),
		zap.Int("checkpoints", set.Len()),
		zap.String("digest", hex.EncodeToString(digest[:])))
	return nil
}

func netParams(network string) (*chaincfg.Params, error) {
	switch network {
	case chaincfg.MainNetParams.Name:
		return &chaincfg.MainNetParams, nil
	case chaincfg.TestNet3Params.Name:
		return &chaincfg.TestNet3Params, nil
	case chaincfg.RegressionNetParams.Name:
		return &chaincfg.RegressionNetParams, nil
	case chaincfg.SimNetParams.Name:
		return &chaincfg.SimNetParams, nil
	}
	return nil, fmt.Errorf("unknown network %q", network)
}

func writeBinaryFile(path string, set *checkpoint.Set) ([sha256.Size]byte, error) {
	f, err := os.Create(path)
	if err != nil {
		return [sha256.Size]byte{}, fmt.Errorf("create %s: %w", path, err)
	}
	digest, err := set.WriteBinary(f)
	if err != nil {
		_ = f.Close()
		return digest, fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return digest, fmt.Errorf("close %s: %w", path, err)
	}
	return digest, nil
}

func writeTextualFile(path string, set *checkpoint.Set) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := set.WriteTextual(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func startMetricsServer(ctx context.Context, addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("starting metrics server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", zap.Error(err))
		}
	}()
}

func newRPCClient(rawURL, user, password string) (*rpcclient.Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse rpc url: %w", err)
	}
	if parsed.Scheme != "http" {
		return nil, fmt.Errorf("rpc url scheme %q not supported, use http", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("rpc url missing host")
	}

	cfg := &rpcclient.ConnConfig{
		Host:         parsed.Host,
		User:         user,
		Pass:         password,
		HTTPPostMode: true,
		DisableTLS:   true,
	}

	return rpcclient.New(cfg, nil)
}
