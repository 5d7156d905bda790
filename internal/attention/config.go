package attention

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Epsilon is added to every geometric denominator.
const Epsilon = 1e-6

// EyesClosedMode selects how the eyes-closed condition of a face is decided.
type EyesClosedMode string

const (
	// EyesClosedSustained requires the drowsiness state machine to be in Drowsy
	EyesClosedSustained EyesClosedMode = "sustained"
	// EyesClosedInstant uses a single-frame EAR check
	EyesClosedInstant EyesClosedMode = "instant"
)

// NoFacePolicy decides how a frame without faces is reported.
type NoFacePolicy string

const (
	// NoFaceInattentive reports an empty frame as inattentive with a "No Face" flag
	NoFaceInattentive NoFacePolicy = "inattentive"
	// NoFaceEmpty reports an empty frame as zero faces and zero flags
	NoFaceEmpty NoFacePolicy = "empty"
)

// Config holds the thresholds of the attention heuristic
type Config struct {
	EARThreshold      float64        `json:"ear_threshold" validate:"gt=0,lt=1"`
	ConsecutiveFrames int            `json:"consecutive_frames" validate:"gte=1,lte=1000"`
	HeadTurnThreshold float64        `json:"head_turn_threshold" validate:"gt=0"`
	PitchLimit        float64        `json:"pitch_limit" validate:"gt=0,lte=180"`
	RollLimit         float64        `json:"roll_limit" validate:"gt=0,lte=180"`
	EMAAlpha          float64        `json:"ema_alpha" validate:"gt=0,lte=1"`
	EyesClosedMode    EyesClosedMode `json:"eyes_closed_mode" validate:"oneof=sustained instant"`
	NoFacePolicy      NoFacePolicy   `json:"no_face_policy" validate:"oneof=inattentive empty"`
}

// DefaultConfig returns the standard thresholds
func DefaultConfig() Config {
	return Config{
		EARThreshold:      0.25,
		ConsecutiveFrames: 15,
		HeadTurnThreshold: 0.35,
		PitchLimit:        25,
		RollLimit:         25,
		EMAAlpha:          0.3,
		EyesClosedMode:    EyesClosedSustained,
		NoFacePolicy:      NoFaceInattentive,
	}
}

var validate = validator.New()

// Validate checks every threshold against its allowed range
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid attention config: %w", err)
	}
	return nil
}
