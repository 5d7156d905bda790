package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/saturnino-fabrica-de-software/atento/internal/attention"
	"github.com/saturnino-fabrica-de-software/atento/internal/config"
	"github.com/saturnino-fabrica-de-software/atento/internal/replay"
	"github.com/saturnino-fabrica-de-software/atento/internal/session"
)

const (
	flagInput             = "input"
	flagResults           = "results"
	flagCSV               = "csv"
	flagFPS               = "fps"
	flagVerbose           = "verbose"
	flagEARThreshold      = "ear-threshold"
	flagConsecutiveFrames = "consec-frames"
	flagHeadTurnThreshold = "head-turn-threshold"
	flagPitchLimit        = "pitch-limit"
	flagRollLimit         = "roll-limit"
	flagEMAAlpha          = "ema-alpha"
	flagEyesClosedMode    = "eyes-closed-mode"
	flagNoFacePolicy      = "no-face-policy"
)

func main() {
	defaults := attention.DefaultConfig()

	app := &cli.App{
		Name:  "atento-replay",
		Usage: "score a JSONL recording of landmark frames and print the session summary",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: flagInput, Aliases: []string{"i"}, Value: "-", Usage: "JSONL file of frames, - for stdin"},
			&cli.StringFlag{Name: flagResults, Aliases: []string{"r"}, Usage: "write per-frame results as JSONL to this file"},
			&cli.StringFlag{Name: flagCSV, Usage: "write the frame log as CSV to this file"},
			&cli.Float64Flag{Name: flagFPS, Value: 30, Usage: "frame rate used to date frames without a timestamp"},
			&cli.BoolFlag{Name: flagVerbose, Aliases: []string{"v"}, Usage: "log to stderr"},
			&cli.Float64Flag{Name: flagEARThreshold, Value: defaults.EARThreshold},
			&cli.IntFlag{Name: flagConsecutiveFrames, Value: defaults.ConsecutiveFrames},
			&cli.Float64Flag{Name: flagHeadTurnThreshold, Value: defaults.HeadTurnThreshold},
			&cli.Float64Flag{Name: flagPitchLimit, Value: defaults.PitchLimit},
			&cli.Float64Flag{Name: flagRollLimit, Value: defaults.RollLimit},
			&cli.Float64Flag{Name: flagEMAAlpha, Value: defaults.EMAAlpha},
			&cli.StringFlag{Name: flagEyesClosedMode, Value: string(defaults.EyesClosedMode), Usage: "sustained or instant"},
			&cli.StringFlag{Name: flagNoFacePolicy, Value: string(defaults.NoFacePolicy), Usage: "inattentive or empty"},
		},
		Action: replayAction,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func replayAction(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logOut := io.Discard
	if c.Bool(flagVerbose) {
		logOut = os.Stderr
	}
	logger := config.NewLogger("development", logOut)

	fps := c.Float64(flagFPS)
	if fps <= 0 {
		return fmt.Errorf("--%s must be positive", flagFPS)
	}

	input, err := openInput(c.String(flagInput))
	if err != nil {
		return err
	}
	defer func() { _ = input.Close() }()

	opts := replay.Options{
		Config:        configFromFlags(c),
		FrameInterval: time.Duration(float64(time.Second) / fps),
		Logger:        logger,
	}

	if path := c.String(flagResults); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create results file: %w", err)
		}
		defer func() { _ = f.Close() }()
		opts.Results = f
	}

	report, err := replay.Run(ctx, input, opts)
	if err != nil {
		return err
	}

	if path := c.String(flagCSV); path != "" {
		if err := writeCSV(path, report.Log); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func configFromFlags(c *cli.Context) attention.Config {
	return attention.Config{
		EARThreshold:      c.Float64(flagEARThreshold),
		ConsecutiveFrames: c.Int(flagConsecutiveFrames),
		HeadTurnThreshold: c.Float64(flagHeadTurnThreshold),
		PitchLimit:        c.Float64(flagPitchLimit),
		RollLimit:         c.Float64(flagRollLimit),
		EMAAlpha:          c.Float64(flagEMAAlpha),
		EyesClosedMode:    attention.EyesClosedMode(c.String(flagEyesClosedMode)),
		NoFacePolicy:      attention.NoFacePolicy(c.String(flagNoFacePolicy)),
	}
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return f, nil
}

func writeCSV(path string, rows []session.LogRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	if err := session.WriteCSV(f, rows); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
