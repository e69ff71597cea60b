package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/cadence-tools/psfdecode/internal/api"
	"github.com/cadence-tools/psfdecode/internal/logger"
)

func serveCmd() *cli.Command {
	var (
		addr          string
		maxConcurrent int64
		submitRPS     float64
		logLevel      string
		logFormat     string
		readTimeout   time.Duration
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the HTTP decode job API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8088",
				Destination: &addr,
			},
			&cli.Int64Flag{
				Name:        "max-concurrent",
				Usage:       "maximum number of decode jobs running at once",
				Value:       2,
				Destination: &maxConcurrent,
			},
			&cli.FloatFlag{
				Name:        "submit-rps",
				Usage:       "maximum job submissions accepted per second",
				Value:       5,
				Destination: &submitRPS,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Value:       "info",
				Destination: &logLevel,
			},
			&cli.StringFlag{
				Name:        "log-format",
				Value:       "json",
				Destination: &logFormat,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := LoadConfig()
			applyServeConfig(cmd, cfg, &addr, &maxConcurrent)

			log := newLogger(logFormat, logLevel, cmd.Writer)
			ctx = logger.WithContext(ctx, log)

			store := api.NewJobStore()
			server := api.NewServer(store, int(maxConcurrent), submitRPS, log)

			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)

			log.Info("starting server", "address", addr, "max_concurrent", maxConcurrent)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
