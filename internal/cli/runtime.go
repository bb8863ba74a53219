// Package cli provides shared runtime plumbing for stamp commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/stampnet/stampd/internal/config"
	"github.com/stampnet/stampd/internal/keyring"
	"github.com/stampnet/stampd/internal/ledgerstore"
	"github.com/stampnet/stampd/internal/observability"
	"github.com/stampnet/stampd/internal/stampnet"

	// Registered storage backends.
	_ "github.com/stampnet/stampd/internal/ledgerstore/physical/badger"
	_ "github.com/stampnet/stampd/internal/ledgerstore/physical/memory"
	_ "github.com/stampnet/stampd/internal/ledgerstore/physical/sqlite"

	// Registered network backends.
	_ "github.com/stampnet/stampd/internal/stampnet/physical/memory"
	_ "github.com/stampnet/stampd/internal/stampnet/physical/redis"
	_ "github.com/stampnet/stampd/internal/stampnet/physical/s3"
)

// Runtime bundles the collaborators every stamp command needs: merged config,
// observability, the identity store, and the keyring.
type Runtime struct {
	Config  config.Config
	Obs     *observability.Observability
	Store   *ledgerstore.Store
	Keyring *keyring.Keyring

	net *stampnet.Network
}

// Open loads configuration and wires the runtime. Client commands log to
// {data_dir}/log/cli.log so structured output stays parseable.
func Open(ctx context.Context, v *viper.Viper) (*Runtime, error) {
	cfg, err := config.Load(v, v.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logWriter := os.Stderr
	logDir := filepath.Join(cfg.DataDir, "log")
	if err := os.MkdirAll(logDir, 0o700); err == nil {
		f, err := os.OpenFile(filepath.Join(logDir, "cli.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err == nil {
			logWriter = f
		}
	}

	obs, err := observability.New(ctx, observability.ObsConfig{
		LogLevel:       cfg.Observability.LogLevel,
		LogFormat:      cfg.Observability.LogFormat,
		OTLPEndpoint:   cfg.Observability.OTLPEndpoint,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
	}, logWriter)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}
	if addr := cfg.Observability.MetricsAddr; addr != "" {
		srv := obs.ServeMetrics(ctx, addr)
		obs.Shutdown.Register("metrics", srv.Shutdown)
	}

	store, err := ledgerstore.New(ctx, cfg.Store.Backend, cfg.Store.Config, obs.Metrics)
	if err != nil {
		_ = obs.Close(ctx)
		return nil, fmt.Errorf("open store: %w", err)
	}

	return &Runtime{
		Config:  cfg,
		Obs:     obs,
		Store:   store,
		Keyring: keyring.New(cfg.DataDir),
	}, nil
}

// Network opens the configured network backend on first use.
func (rt *Runtime) Network(ctx context.Context) (*stampnet.Network, error) {
	if rt.net != nil {
		return rt.net, nil
	}
	n, err := stampnet.New(ctx, rt.Config.Net.Backend, rt.Config.Net.Config, rt.Obs.Metrics)
	if err != nil {
		return nil, fmt.Errorf("open network: %w", err)
	}
	rt.net = n
	return n, nil
}

// Close releases the runtime's resources.
func (rt *Runtime) Close(ctx context.Context) error {
	var firstErr error
	if rt.net != nil {
		if err := rt.net.Close(); err != nil {
			firstErr = err
		}
	}
	if err := rt.Store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := rt.Obs.Close(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
