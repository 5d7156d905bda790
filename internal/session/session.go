package session

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/atento/internal/attention"
	"github.com/saturnino-fabrica-de-software/atento/internal/domain"
)

// ErrStopped is returned when a stopped session receives a frame or a second stop
var ErrStopped = errors.New("session stopped")

// CSVHeader is the first row of every exported log
var CSVHeader = []string{"timestamp", "frame_index", "attentive_count", "total_faces", "cheating_flag_count"}

// LogRow is one processed frame in the session log
type LogRow struct {
	Timestamp         time.Time `json:"timestamp"`
	FrameIndex        int       `json:"frame_index"`
	AttentiveCount    int       `json:"attentive_count"`
	TotalFaces        int       `json:"total_faces"`
	CheatingFlagCount int       `json:"cheating_flag_count"`
}

// RowOf reduces a frame result to its log row
func RowOf(r attention.FrameResult) LogRow {
	return LogRow{
		Timestamp:         r.Timestamp,
		FrameIndex:        r.Frame,
		AttentiveCount:    r.AttentiveCount,
		TotalFaces:        r.TotalFaces,
		CheatingFlagCount: len(r.CheatingFlags),
	}
}

// Record returns the row in CSV column order
func (r LogRow) Record() []string {
	return []string{
		r.Timestamp.UTC().Format(time.RFC3339Nano),
		strconv.Itoa(r.FrameIndex),
		strconv.Itoa(r.AttentiveCount),
		strconv.Itoa(r.TotalFaces),
		strconv.Itoa(r.CheatingFlagCount),
	}
}

// Session owns the scorer and the log of one monitoring run. Process calls
// are serialised, so frames of a session are scored in arrival order.
type Session struct {
	mu         sync.Mutex
	id         uuid.UUID
	name       string
	startedAt  time.Time
	stoppedAt  *time.Time
	scorer     *attention.Scorer
	summarizer *attention.Summarizer
	log        []LogRow
	now        func() time.Time
}

// Option configures a Session
type Option func(*Session)

// WithClock replaces time.Now, for tests and replays
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// New starts a session with fresh face tracks
func New(id uuid.UUID, name string, cfg attention.Config, opts ...Option) (*Session, error) {
	scorer, err := attention.NewScorer(cfg)
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:         id,
		name:       name,
		scorer:     scorer,
		summarizer: attention.NewSummarizer(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startedAt = s.now()

	return s, nil
}

func (s *Session) ID() uuid.UUID { return s.id }

func (s *Session) Config() attention.Config { return s.scorer.Config() }

// Process scores one frame and appends it to the log
func (s *Session) Process(observations []attention.Observation) (attention.FrameResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stoppedAt != nil {
		return attention.FrameResult{}, ErrStopped
	}

	result := s.scorer.Score(observations)
	result.Timestamp = s.now()

	s.log = append(s.log, RowOf(result))
	s.summarizer.Add(result)

	return result, nil
}

// Stopped reports whether Stop has been called
func (s *Session) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stoppedAt != nil
}

// Stop ends the session, drops face tracks and returns the final summary
func (s *Session) Stop() (attention.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stoppedAt != nil {
		return attention.Summary{}, ErrStopped
	}

	now := s.now()
	s.stoppedAt = &now
	s.scorer.Reset()

	return s.summarizer.Summary(), nil
}

// Summary returns the running totals
func (s *Session) Summary() attention.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summarizer.Summary()
}

// Log returns a copy of the log rows
func (s *Session) Log() []LogRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]LogRow(nil), s.log...)
}

// Snapshot describes the session for persistence and API responses
func (s *Session) Snapshot() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := s.summarizer.Summary()
	snap := domain.Session{
		ID:        s.id,
		Name:      s.name,
		Status:    domain.SessionActive,
		Config:    s.scorer.Config(),
		Summary:   &summary,
		StartedAt: s.startedAt,
	}
	if s.stoppedAt != nil {
		stopped := *s.stoppedAt
		snap.Status = domain.SessionStopped
		snap.StoppedAt = &stopped
	}
	return snap
}

// WriteCSV exports the log with a header row
func WriteCSV(w io.Writer, rows []LogRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.Record()); err != nil {
			return fmt.Errorf("write csv row %d: %w", r.FrameIndex, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
