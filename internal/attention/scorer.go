package attention

import (
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/multierr"

	"github.com/saturnino-fabrica-de-software/atento/internal/provider"
)

// Observation is one detected face in one frame, reduced to the signals the heuristic reads
type Observation struct {
	BoundingBox provider.BoundingBox `json:"bounding_box"`
	EAR         float64              `json:"ear"`
	OffsetRatio float64              `json:"offset_ratio"`
	Pose        *provider.Pose       `json:"pose,omitempty"`
	// Missing marks a detected face whose landmarks could not be read
	Missing bool `json:"-"`
}

// NewObservation computes EAR and offset ratio from a landmark set
func NewObservation(lm provider.FaceLandmarks) (Observation, error) {
	g, err := ExtractGeometry(lm)
	if err != nil {
		return Observation{}, err
	}

	box := BoundingBoxOf(lm.Points)
	if lm.BoundingBox != nil {
		box = *lm.BoundingBox
	}

	return Observation{
		BoundingBox: box,
		EAR:         AverageEAR(g.LeftEye, g.RightEye),
		OffsetRatio: OffsetRatio(g),
		Pose:        lm.Pose,
	}, nil
}

// Observe builds one observation per landmark set, in detection order.
// Malformed sets keep their position as Missing observations; their errors
// are combined and returned alongside.
func Observe(faces []provider.FaceLandmarks) ([]Observation, error) {
	observations := make([]Observation, len(faces))

	var errs error
	for i, lm := range faces {
		obs, err := NewObservation(lm)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("face %d: %w", i, err))
			observations[i] = Observation{Missing: true}
			continue
		}
		observations[i] = obs
	}

	return observations, errs
}

// FaceResult is the verdict for one face slot in one frame
type FaceResult struct {
	Slot         int                  `json:"slot"`
	Label        Label                `json:"label"`
	EAR          float64              `json:"ear"`
	OffsetRatio  float64              `json:"offset_ratio"`
	State        State                `json:"state"`
	AttentionEMA float64              `json:"attention_ema"`
	BoundingBox  provider.BoundingBox `json:"bounding_box"`
	Pose         *provider.Pose       `json:"pose,omitempty"`
	PoseWarnings *PoseWarnings        `json:"pose_warnings,omitempty"`
}

// FrameResult aggregates every face of one frame
type FrameResult struct {
	Frame          int          `json:"frame"`
	Timestamp      time.Time    `json:"timestamp"`
	AttentiveCount int          `json:"attentive_count"`
	TotalFaces     int          `json:"total_faces"`
	Attentive      bool         `json:"attentive"`
	Faces          []FaceResult `json:"faces"`
	CheatingFlags  []string     `json:"cheating_flags"`
}

// Scorer turns per-frame observations into labels, carrying per-slot state
// across frames. It is not safe for concurrent use.
type Scorer struct {
	cfg    Config
	tracks []*Track
	frames int
}

// NewScorer validates the config and returns a scorer with no tracked faces
func NewScorer(cfg Config) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg}, nil
}

// Config returns the thresholds the scorer was built with
func (s *Scorer) Config() Config {
	return s.cfg
}

// Score labels every observation of the frame. Slot i is the i-th observation;
// slots with no face in this frame, or a Missing one, are reset.
func (s *Scorer) Score(observations []Observation) FrameResult {
	s.frames++

	result := FrameResult{
		Frame:         s.frames,
		Faces:         make([]FaceResult, 0, len(observations)),
		CheatingFlags: []string{},
	}

	for i, obs := range observations {
		if obs.Missing {
			if i < len(s.tracks) {
				s.tracks[i].Reset()
			}
			continue
		}

		track := s.track(i)
		state := track.Observe(obs.EAR, s.cfg)

		eyesClosed := state == StateDrowsy
		if s.cfg.EyesClosedMode == EyesClosedInstant {
			eyesClosed = obs.EAR < s.cfg.EARThreshold
		}

		label := ResolveLabel(eyesClosed, HeadTurned(obs.OffsetRatio, s.cfg))
		if label != LabelAttentive {
			result.CheatingFlags = append(result.CheatingFlags, string(label))
		}

		face := FaceResult{
			Slot:         i,
			Label:        label,
			EAR:          obs.EAR,
			OffsetRatio:  obs.OffsetRatio,
			State:        state,
			AttentionEMA: track.Smooth(label == LabelAttentive, s.cfg.EMAAlpha),
			BoundingBox:  obs.BoundingBox,
			Pose:         obs.Pose,
		}
		if obs.Pose != nil {
			warnings := EvaluatePose(*obs.Pose, s.cfg)
			face.PoseWarnings = &warnings
		}

		result.Faces = append(result.Faces, face)
	}

	// Faces that disappeared lose their history
	if len(s.tracks) > len(observations) {
		s.tracks = s.tracks[:len(observations)]
	}

	result.TotalFaces = len(result.Faces)
	result.AttentiveCount = lo.CountBy(result.Faces, func(f FaceResult) bool {
		return f.Label == LabelAttentive
	})
	result.Attentive = result.TotalFaces > 0 && result.AttentiveCount == result.TotalFaces

	if result.TotalFaces == 0 && s.cfg.NoFacePolicy == NoFaceInattentive {
		result.CheatingFlags = append(result.CheatingFlags, FlagNoFace)
	}

	return result
}

// Track returns the state of a face slot, or nil when the slot is not tracked
func (s *Scorer) Track(slot int) *Track {
	if slot < 0 || slot >= len(s.tracks) {
		return nil
	}
	return s.tracks[slot]
}

// Frames returns how many frames have been scored since the last reset
func (s *Scorer) Frames() int {
	return s.frames
}

// Reset drops every tracked slot and the frame counter
func (s *Scorer) Reset() {
	s.tracks = nil
	s.frames = 0
}

func (s *Scorer) track(slot int) *Track {
	for len(s.tracks) <= slot {
		s.tracks = append(s.tracks, NewTrack())
	}
	return s.tracks[slot]
}
