package main

import (
	"context"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/azure/notation-azure-artifactsigning/internal/artifactsigning"
	"github.com/azure/notation-azure-artifactsigning/internal/config"
	"github.com/azure/notation-azure-artifactsigning/internal/localsigner"
	"github.com/azure/notation-azure-artifactsigning/internal/logging"
	"github.com/azure/notation-azure-artifactsigning/internal/plugin"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		// nothing to serve, report it before touching the environment or any file
		return plugin.New(nil).Run(ctx, args, stdin, stdout, stderr)
	}

	cfg, err := config.Load()
	if err != nil {
		_ = plugin.WriteErrorResponse(stderr, err)
		return 1
	}

	logger, err := logging.New(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		_ = plugin.WriteErrorResponse(stderr, err)
		return 1
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("clientVersion", plugin.ClientVersion()))

	factory := newSignContextFactory(cfg, logger)
	return plugin.New(factory, plugin.WithLogger(logger)).Run(ctx, args, stdin, stdout, stderr)
}

func newSignContextFactory(cfg *config.Config, logger *zap.Logger) plugin.SignContextFactory {
	if cfg.Offline() {
		logger.Info("signing with local key", zap.String("keyFile", cfg.LocalKeyFile), zap.String("chainFile", cfg.LocalChainFile))
		return localsigner.FileFactory(cfg.LocalKeyFile, cfg.LocalChainFile)
	}
	return artifactsigning.Factory(artifactsigning.Options{
		ClientVersion: plugin.ClientVersion(),
		PollFrequency: cfg.PollFrequency,
		SignTimeout:   cfg.SignTimeout,
	})
}
