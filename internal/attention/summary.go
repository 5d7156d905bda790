package attention

import (
	"math"

	"github.com/montanaflynn/stats"
)

// Band is the coarse rating of a session attention score
type Band string

const (
	BandGood     Band = "good"
	BandModerate Band = "moderate"
	BandLow      Band = "low"
)

// BandFor rates a percentage: above 70 is good, above 40 moderate, otherwise low
func BandFor(score float64) Band {
	switch {
	case score > 70:
		return BandGood
	case score > 40:
		return BandModerate
	default:
		return BandLow
	}
}

// Summary describes a whole session
type Summary struct {
	Frames          int            `json:"frames"`
	AttentiveFrames int            `json:"attentive_frames"`
	Score           float64        `json:"score"`
	Band            Band           `json:"band"`
	MeanEAR         float64        `json:"mean_ear"`
	MedianEAR       float64        `json:"median_ear"`
	Flags           map[string]int `json:"flags"`
}

// Summarizer accumulates frame results into a Summary
type Summarizer struct {
	frames    int
	attentive int
	ears      stats.Float64Data
	flags     map[string]int
}

// NewSummarizer returns an empty accumulator
func NewSummarizer() *Summarizer {
	return &Summarizer{flags: make(map[string]int)}
}

// Add folds one frame into the summary
func (s *Summarizer) Add(r FrameResult) {
	s.frames++
	if r.Attentive {
		s.attentive++
	}

	if len(r.Faces) > 0 {
		var sum float64
		for _, f := range r.Faces {
			sum += f.EAR
		}
		s.ears = append(s.ears, sum/float64(len(r.Faces)))
	}

	for _, flag := range r.CheatingFlags {
		s.flags[flag]++
	}
}

// Summary returns the current totals
func (s *Summarizer) Summary() Summary {
	summary := Summary{
		Frames:          s.frames,
		AttentiveFrames: s.attentive,
		Flags:           make(map[string]int, len(s.flags)),
	}

	if s.frames > 0 {
		summary.Score = math.Round(float64(s.attentive)/float64(s.frames)*10000) / 100
	}
	summary.Band = BandFor(summary.Score)

	// stats only fails on empty input, which leaves the zero values in place
	if mean, err := stats.Mean(s.ears); err == nil {
		summary.MeanEAR = mean
	}
	if median, err := stats.Median(s.ears); err == nil {
		summary.MedianEAR = median
	}

	for k, v := range s.flags {
		summary.Flags[k] = v
	}

	return summary
}
