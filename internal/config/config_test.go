package config

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/atento/internal/attention"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name:    "defaults",
			envVars: map[string]string{},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 3000, c.Port)
				assert.Equal(t, "development", c.Environment)
				assert.Equal(t, "facemesh", c.LandmarkProvider)
				assert.Equal(t, "headpose", c.PoseProvider)
				assert.False(t, c.PersistenceEnabled())
				assert.Equal(t, attention.DefaultConfig(), c.Attention.Scoring())
			},
		},
		{
			name: "overrides",
			envVars: map[string]string{
				"PORT":                          "8080",
				"ENV":                           "production",
				"DATABASE_URL":                  "postgres://localhost/atento",
				"LANDMARK_PROVIDER":             "rekognition",
				"HEADPOSE_RPS":                  "2.5",
				"ATTENTION_EAR_THRESHOLD":       "0.21",
				"ATTENTION_CONSEC_FRAMES":       "20",
				"ATTENTION_EYES_CLOSED_MODE":    "instant",
				"ATTENTION_NO_FACE_POLICY":      "empty",
				"ATTENTION_HEAD_TURN_THRESHOLD": "0.4",
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 8080, c.Port)
				assert.True(t, c.IsProduction())
				assert.True(t, c.PersistenceEnabled())
				assert.Equal(t, "rekognition", c.LandmarkProvider)
				assert.Equal(t, 2.5, c.HeadPoseRPS)

				scoring := c.Attention.Scoring()
				assert.Equal(t, 0.21, scoring.EARThreshold)
				assert.Equal(t, 20, scoring.ConsecutiveFrames)
				assert.Equal(t, 0.4, scoring.HeadTurnThreshold)
				assert.Equal(t, attention.EyesClosedInstant, scoring.EyesClosedMode)
				assert.Equal(t, attention.NoFaceEmpty, scoring.NoFacePolicy)
			},
		},
		{
			name:    "rejects an unknown eyes closed mode",
			envVars: map[string]string{"ATTENTION_EYES_CLOSED_MODE": "blink"},
			wantErr: true,
		},
		{
			name:    "rejects a malformed number",
			envVars: map[string]string{"ATTENTION_EMA_ALPHA": "fast"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := Load()

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestConfig_Environment(t *testing.T) {
	tests := []struct {
		env      string
		wantDev  bool
		wantProd bool
	}{
		{"development", true, false},
		{"production", false, true},
		{"staging", false, false},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			c := &Config{Environment: tt.env}
			assert.Equal(t, tt.wantDev, c.IsDevelopment())
			assert.Equal(t, tt.wantProd, c.IsProduction())
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	NewLogger("production", &buf).Debug("hidden")
	NewLogger("production", &buf).Info("shown", "frame", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.HasPrefix(out, "{"), "production logs are JSON")
	assert.Contains(t, out, `"frame":3`)

	buf.Reset()
	NewLogger("development", &buf).Debug("visible")
	assert.Contains(t, buf.String(), "msg=visible")
}

func TestNewLogWriter(t *testing.T) {
	stdout := NewLogWriter("")
	assert.NoError(t, stdout.Close())

	path := filepath.Join(t.TempDir(), "atento.log")
	w := NewLogWriter(path)
	_, err := w.Write([]byte("line\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.FileExists(t, path)
}
