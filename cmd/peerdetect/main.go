package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/rsksmart/bitcoinj/pkg/peerdetect"
)

type config struct {
	Address string        `long:"address" env:"PEERDETECT_ADDRESS" description:"peer address, host or host:port" required:"true"`
	Network string        `long:"network" env:"PEERDETECT_NETWORK" description:"bitcoin network (mainnet, testnet3, regtest, simnet)" default:"mainnet"`
	Timeout time.Duration `long:"timeout" env:"PEERDETECT_TIMEOUT" description:"handshake timeout" default:"5s"`
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

	ok, err := run(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("peer probe failed", zap.Error(err))
	}
	if !ok {
		logger.Warn("no bitcoin peer detected", zap.String("address", cfg.Address))
		_ = logger.Sync()
		stop()
		os.Exit(1)
	}
	logger.Info("bitcoin peer detected", zap.String("address", cfg.Address))
}

func run(ctx context.Context, cfg config, logger *zap.Logger) (bool, error) {
	params, err := netParams(cfg.Network)
	if err != nil {
		return false, err
	}

	addr := cfg.Address
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, params.DefaultPort)
	}

	detector, err := peerdetect.New(params, logger, peerdetect.Config{Timeout: cfg.Timeout})
	if err != nil {
		return false, err
	}
	return detector.Check(ctx, addr)
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
