// Command agent-deviced is the long-lived local daemon spec.md §4.F
// describes: it loads configuration, wires up the Android/iOS platform
// adapters, and serves requests over a loopback NDJSON socket until it
// receives a shutdown signal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/agentdevice/agent-device/internal/config"
	"github.com/agentdevice/agent-device/internal/daemon"
	"github.com/agentdevice/agent-device/internal/domain"
	"github.com/agentdevice/agent-device/internal/handlers"
	"github.com/agentdevice/agent-device/internal/platform"
)

// xctestRunnerPort is the fixed local port the XCTest runner app listens
// on once launched against a simulator or forwarded from a physical
// device; spec.md leaves the forwarding mechanism to the adapter layer,
// so every device resolves to the same loopback port here.
const xctestRunnerPort = 9412

func main() {
	cfg, _, err := config.LoadWithMeta()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to load config: %v\n", err)
		cfg = config.Default()
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	adapters := map[domain.Platform]platform.Adapter{
		domain.PlatformAndroid: platform.NewAndroidAdapter(),
		domain.PlatformIOS: platform.NewIOSAdapter(platform.NewIOSSimulatorAdapter(), func(domain.Device) string {
			return fmt.Sprintf("http://127.0.0.1:%d", xctestRunnerPort)
		}),
	}

	deps := handlers.NewDeps(cfg, adapters, clock.New())

	server, err := daemon.New(deps, logger)
	if err != nil {
		logger.Fatal("failed to start daemon", zap.Error(err))
	}
	logger.Info("daemon listening", zap.Stringer("addr", server.Addr()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := runRecovered(ctx, server, logger); err != nil {
		logger.Error("daemon exited with error", zap.Error(err))
		os.Exit(1)
	}
}

// runRecovered calls server.Run and turns any panic into a logged error
// instead of a bare crash, per spec.md §4.F's "uncaught exception" exit
// path: a panicking request must not take the whole daemon down silently.
func runRecovered(ctx context.Context, server *daemon.Server, logger *zap.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("recovered from panic in daemon run loop", zap.Any("panic", r))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return server.Run(ctx)
}

// newLogger builds the daemon-process logger (distinct from the
// per-request diagnostics log), writing JSON lines to
// <homeDir>/daemon.log as well as stderr.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	homeDir := cfg.HomeDir()
	if err := os.MkdirAll(homeDir, 0o700); err != nil {
		return nil, err
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.OutputPaths = []string{"stderr", filepath.Join(homeDir, "daemon.log")}
	zapCfg.ErrorOutputPaths = []string{"stderr"}
	if cfg.Level == "debug" || cfg.Verbose {
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zapCfg.Build()
}
