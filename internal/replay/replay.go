// Package replay scores a recorded stream of landmark frames offline, with the
// same scorer the API runs for live sessions.
package replay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/saturnino-fabrica-de-software/atento/internal/attention"
	"github.com/saturnino-fabrica-de-software/atento/internal/provider"
	"github.com/saturnino-fabrica-de-software/atento/internal/session"
)

// maxLineSize bounds one JSONL record; a 478-point face mesh is about 20KB
const maxLineSize = 4 * 1024 * 1024

// DefaultFrameInterval is used for frames without a timestamp (30 fps)
const DefaultFrameInterval = time.Second / 30

// Frame is one line of a recording
type Frame struct {
	Timestamp *time.Time               `json:"timestamp,omitempty"`
	Faces     []provider.FaceLandmarks `json:"faces"`
}

// Options controls a replay
type Options struct {
	Config attention.Config
	// Results receives one JSON frame result per line; nil discards them
	Results io.Writer
	// Start and FrameInterval date frames that carry no timestamp
	Start         time.Time
	FrameInterval time.Duration
	Logger        *slog.Logger
}

// Report is the outcome of a replay
type Report struct {
	Summary      attention.Summary `json:"summary"`
	Log          []session.LogRow  `json:"-"`
	DroppedFaces int               `json:"dropped_faces"`
}

// Run scores every frame of r in order. A line that is not valid JSON stops
// the replay; malformed faces inside a valid line are dropped and counted.
func Run(ctx context.Context, r io.Reader, opts Options) (*Report, error) {
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = DefaultFrameInterval
	}
	if opts.Start.IsZero() {
		opts.Start = time.Now()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	current := opts.Start
	sess, err := session.New(uuid.New(), "replay", opts.Config, session.WithClock(func() time.Time {
		return current
	}))
	if err != nil {
		return nil, err
	}

	var enc *json.Encoder
	if opts.Results != nil {
		enc = json.NewEncoder(opts.Results)
	}

	report := &Report{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	line := 0
	frames := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		if frame.Timestamp != nil {
			current = *frame.Timestamp
		} else {
			current = opts.Start.Add(time.Duration(frames) * opts.FrameInterval)
		}
		frames++

		observations, err := attention.Observe(frame.Faces)
		if err != nil {
			dropped := len(multierr.Errors(err))
			report.DroppedFaces += dropped
			opts.Logger.Warn("dropped malformed faces",
				slog.Int("line", line),
				slog.Int("dropped", dropped),
				slog.Any("error", err),
			)
		}

		result, err := sess.Process(observations)
		if err != nil {
			return nil, err
		}

		if enc != nil {
			if err := enc.Encode(result); err != nil {
				return nil, fmt.Errorf("write result: %w", err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read frames: %w", err)
	}

	summary, err := sess.Stop()
	if err != nil {
		return nil, err
	}

	report.Summary = summary
	report.Log = sess.Log()

	opts.Logger.Info("replay finished",
		slog.Int("frames", summary.Frames),
		slog.Float64("score", summary.Score),
		slog.String("band", string(summary.Band)),
	)

	return report, nil
}
