package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/cadence-tools/psfdecode/internal/logger"
	"github.com/cadence-tools/psfdecode/pkg/psf"
	"github.com/cadence-tools/psfdecode/pkg/sink"
)

func decodeCmd() *cli.Command {
	var (
		inPath    string
		outPath   string
		logLevel  string
		logFormat string
	)

	return &cli.Command{
		Name:  "decode",
		Usage: "Decode one PSF file into an HDF5 file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "in",
				Usage:       "path to the input .psf file",
				Required:    true,
				Destination: &inPath,
			},
			&cli.StringFlag{
				Name:        "out",
				Usage:       "path to the output .h5 file",
				Required:    true,
				Destination: &outPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "debug, info, warn, or error",
				Value:       "info",
				Destination: &logLevel,
			},
			&cli.StringFlag{
				Name:        "log-format",
				Usage:       "text, json, or pretty",
				Value:       "pretty",
				Destination: &logFormat,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := LoadConfig()
			applyDecodeConfig(cmd, cfg, &logLevel, &logFormat)

			log := newLogger(logFormat, logLevel, os.Stderr)
			ctx = logger.WithContext(ctx, log)

			log.Info("decode starting", "in", inPath, "out", outPath)

			out, err := sink.NewHDF5Sink(outPath)
			if err != nil {
				return fmt.Errorf("psfdecode: %w", err)
			}

			df, err := psf.DecodeFile(ctx, inPath, out)
			if err != nil {
				return fmt.Errorf("psfdecode: decoding %s: %w", inPath, err)
			}

			logSummary(log, df)
			return nil
		},
	}
}

// newLogger builds the Logger named by format at level, writing to w.
// Unrecognized formats get the pretty handler.
func newLogger(format, level string, w io.Writer) logger.Logger {
	lvl := logger.ParseLevel(level)
	switch format {
	case "json":
		return logger.JSON(w, lvl)
	case "text":
		return logger.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
	default:
		return logger.Pretty(w, lvl)
	}
}

// logSummary logs a one-line decode summary at Info level: sweep/trace
// counts, point count, value mode.
func logSummary(log logger.Logger, df *psf.DecodedFile) {
	mode := "no_sweep"
	switch df.ValueMode.Kind {
	case psf.FlatSweep:
		mode = "flat_sweep"
	case psf.WindowedSweep:
		mode = "windowed_sweep"
	}
	log.Info("decode finished",
		"sweeps", len(df.Sweeps),
		"traces", len(df.Traces),
		"num_points", df.NumPoints,
		"value_mode", mode,
	)
}
