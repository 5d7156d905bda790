package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/atento/internal/attention"
)

// compact13 face with EAR 0.3 and the nose centred
const openFace = `{"scheme":"compact13","points":[{"x":85,"y":100},{"x":95,"y":95.5},{"x":105,"y":95.5},{"x":115,"y":100},{"x":105,"y":104.5},{"x":95,"y":104.5},{"x":145,"y":100},{"x":155,"y":95.5},{"x":165,"y":95.5},{"x":175,"y":100},{"x":165,"y":104.5},{"x":155,"y":104.5},{"x":130,"y":130}]}`

// same face with the nose pushed half an eye distance to the right
const turnedFace = `{"scheme":"compact13","points":[{"x":85,"y":100},{"x":95,"y":95.5},{"x":105,"y":95.5},{"x":115,"y":100},{"x":105,"y":104.5},{"x":95,"y":104.5},{"x":145,"y":100},{"x":155,"y":95.5},{"x":165,"y":95.5},{"x":175,"y":100},{"x":165,"y":104.5},{"x":155,"y":104.5},{"x":160,"y":130}]}`

func TestRun(t *testing.T) {
	start := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	input := strings.Join([]string{
		`{"faces":[` + openFace + `]}`,
		``,
		`{"faces":[` + turnedFace + `]}`,
		`{"faces":[` + openFace + `,{"scheme":"compact13","points":[]}]}`,
		`{"timestamp":"2026-10-19T09:01:00Z","faces":[]}`,
	}, "\n")

	var results bytes.Buffer
	report, err := Run(context.Background(), strings.NewReader(input), Options{
		Config:        attention.DefaultConfig(),
		Results:       &results,
		Start:         start,
		FrameInterval: time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, 4, report.Summary.Frames)
	assert.Equal(t, 2, report.Summary.AttentiveFrames)
	assert.Equal(t, 50.0, report.Summary.Score)
	assert.Equal(t, attention.BandModerate, report.Summary.Band)
	assert.Equal(t, 1, report.Summary.Flags[string(attention.LabelHeadTurned)])
	assert.Equal(t, 1, report.Summary.Flags[attention.FlagNoFace])
	assert.Equal(t, 1, report.DroppedFaces)

	require.Len(t, report.Log, 4)
	assert.Equal(t, start, report.Log[0].Timestamp)
	assert.Equal(t, start.Add(2*time.Second), report.Log[2].Timestamp)
	assert.Equal(t, start.Add(time.Minute), report.Log[3].Timestamp)

	lines := strings.Split(strings.TrimSpace(results.String()), "\n")
	require.Len(t, lines, 4)

	var second attention.FrameResult
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, 2, second.Frame)
	assert.Equal(t, []string{string(attention.LabelHeadTurned)}, second.CheatingFlags)
}

func TestRun_InvalidLine(t *testing.T) {
	input := `{"faces":[]}` + "\n" + `not json`

	_, err := Run(context.Background(), strings.NewReader(input), Options{Config: attention.DefaultConfig()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := attention.DefaultConfig()
	cfg.EMAAlpha = 0

	_, err := Run(context.Background(), strings.NewReader(""), Options{Config: cfg})
	require.Error(t, err)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, strings.NewReader(`{"faces":[]}`), Options{Config: attention.DefaultConfig()})
	assert.ErrorIs(t, err, context.Canceled)
}
