package attention

import "github.com/saturnino-fabrica-de-software/atento/internal/provider"

// PoseWarnings are the independent pitch and roll alarms of a head pose.
// Yaw is reported by the models but deliberately carries no limit.
type PoseWarnings struct {
	Pitch bool `json:"pitch"`
	Roll  bool `json:"roll"`
}

// Any reports whether at least one warning fired
func (w PoseWarnings) Any() bool {
	return w.Pitch || w.Roll
}

// EvaluatePose checks pitch and roll against their symmetric limits
func EvaluatePose(pose provider.Pose, cfg Config) PoseWarnings {
	return PoseWarnings{
		Pitch: pose.Pitch > cfg.PitchLimit || pose.Pitch < -cfg.PitchLimit,
		Roll:  pose.Roll > cfg.RollLimit || pose.Roll < -cfg.RollLimit,
	}
}
