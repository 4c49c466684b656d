package main

import (
	"context"
	"os"

	"github.com/datawarehouse/dw-parquet-go/internal/config"
	"github.com/datawarehouse/dw-parquet-go/internal/logger"
	"github.com/datawarehouse/dw-parquet-go/pqbridge"
)

func main() {
	cfg := config.Load()
	logger.SetLevel(cfg.Log.Level)

	app := newApp(cfg, openBridge)
	if err := app.Run(os.Args); err != nil {
		logger.Log.Error().
			Err(err).
			Stringer("kind", pqbridge.KindOf(err)).
			Msg("command failed")
		os.Exit(1)
	}
}

// openBridge connects to the bucket named in s.
func openBridge(ctx context.Context, s config.StorageConfig) (*pqbridge.Bridge, error) {
	opts := append(s.Options(), pqbridge.WithLogger(logger.Log))
	return pqbridge.New(ctx, s.BridgeConfig(), opts...)
}
