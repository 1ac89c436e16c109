package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/parallaxml/parallax/internal/device"
	"github.com/parallaxml/parallax/internal/logger"
)

var (
	workers         int64
	syncAfterLaunch bool
	logLevel        string
	logFormat       string
)

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:        "workers",
			Usage:       "thread-block fan-out per launch (0 = all cores)",
			Destination: &workers,
		},
		&cli.BoolFlag{
			Name:        "sync-after-launch",
			Usage:       "barrier after every launch so kernel faults map to the call that caused them",
			Destination: &syncAfterLaunch,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (text, json)",
			Value:       "text",
			Destination: &logFormat,
		},
	}
}

// withLogger builds the logger configured by the common flags and stores it
// on the context, so actions and everything they call share one logger via
// logger.FromContext.
func withLogger(ctx context.Context) (context.Context, error) {
	log, err := logger.Build(os.Stderr, logLevel, logFormat)
	if err != nil {
		return nil, err
	}
	return logger.IntoContext(ctx, log), nil
}

func newStream() *device.Stream {
	opts := []device.Option{device.WithSyncAfterLaunch(syncAfterLaunch)}
	if workers > 0 {
		opts = append(opts, device.WithWorkers(int(workers)))
	}
	return device.NewStream(opts...)
}
