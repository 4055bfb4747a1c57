package bridge

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/viant/rover/config"
	"github.com/viant/rover/internal/logging"
	"go.uber.org/zap"
)

// Run parses args, loads configuration and serves until SIGINT or SIGTERM.
// SIGHUP reconnects the device.
func Run(args []string) error {
	options := &Options{}
	if _, err := flags.ParseArgs(options, args); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, options.ConfigURL)
	if err != nil {
		return err
	}
	options.Apply(cfg)
	if err = cfg.Validate(); err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	service, err := New(cfg, WithLogger(logger.Named("rover")))
	if err != nil {
		return err
	}
	service.Start(ctx)

	hangup := make(chan os.Signal, 1)
	signal.Notify(hangup, syscall.SIGHUP)
	defer signal.Stop(hangup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hangup:
				logger.Info("SIGHUP received, reconnecting device")
				service.Reconnect(ctx)
			}
		}
	}()

	if err = service.Serve(ctx); err != nil {
		logger.Error("rover bridge failed", zap.Error(err))
		return err
	}
	return nil
}
