package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/saturnino-fabrica-de-software/atento/internal/attention"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`
	LogFile     string `envconfig:"LOG_FILE"`
	RateLimit   int    `envconfig:"RATE_LIMIT_PER_MINUTE" default:"600"`

	// Database; empty keeps sessions in memory only
	DatabaseURL string `envconfig:"DATABASE_URL"`
	// stopped sessions kept in memory when there is no database
	StoppedRetention int `envconfig:"STOPPED_SESSION_RETENTION" default:"100"`

	// Providers
	LandmarkProvider  string  `envconfig:"LANDMARK_PROVIDER" default:"facemesh"`
	PoseProvider      string  `envconfig:"POSE_PROVIDER" default:"headpose"`
	FaceMeshURL       string  `envconfig:"FACEMESH_URL" default:"http://localhost:5010"`
	HeadPoseURL       string  `envconfig:"HEADPOSE_URL" default:"http://localhost:6000"`
	HeadPoseRPS       float64 `envconfig:"HEADPOSE_RPS" default:"5"`
	HeadPoseLocalCrop bool    `envconfig:"HEADPOSE_LOCAL_CROP" default:"false"`
	AWSRegion         string  `envconfig:"AWS_REGION" default:"us-east-1"`
	MockFaces         int     `envconfig:"MOCK_FACES" default:"1"`

	// Webhook
	WebhookURL    string `envconfig:"WEBHOOK_URL"`
	WebhookSecret string `envconfig:"WEBHOOK_SECRET"`

	Attention Attention `envconfig:"ATTENTION"`
}

// Attention mirrors attention.Config with env names and defaults
type Attention struct {
	EARThreshold      float64 `envconfig:"EAR_THRESHOLD" default:"0.25"`
	ConsecutiveFrames int     `envconfig:"CONSEC_FRAMES" default:"15"`
	HeadTurnThreshold float64 `envconfig:"HEAD_TURN_THRESHOLD" default:"0.35"`
	PitchLimit        float64 `envconfig:"PITCH_LIMIT" default:"25"`
	RollLimit         float64 `envconfig:"ROLL_LIMIT" default:"25"`
	EMAAlpha          float64 `envconfig:"EMA_ALPHA" default:"0.3"`
	EyesClosedMode    string  `envconfig:"EYES_CLOSED_MODE" default:"sustained"`
	NoFacePolicy      string  `envconfig:"NO_FACE_POLICY" default:"inattentive"`
}

// Scoring converts the env block into the scorer's config
func (a Attention) Scoring() attention.Config {
	return attention.Config{
		EARThreshold:      a.EARThreshold,
		ConsecutiveFrames: a.ConsecutiveFrames,
		HeadTurnThreshold: a.HeadTurnThreshold,
		PitchLimit:        a.PitchLimit,
		RollLimit:         a.RollLimit,
		EMAAlpha:          a.EMAAlpha,
		EyesClosedMode:    attention.EyesClosedMode(a.EyesClosedMode),
		NoFacePolicy:      attention.NoFacePolicy(a.NoFacePolicy),
	}
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Attention.Scoring().Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// PersistenceEnabled reports whether a database was configured
func (c *Config) PersistenceEnabled() bool {
	return c.DatabaseURL != ""
}
