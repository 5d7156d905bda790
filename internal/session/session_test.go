package session

import (
	"bytes"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/atento/internal/attention"
	"github.com/saturnino-fabrica-de-software/atento/internal/domain"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)}
	s, err := New(uuid.New(), "exam room 3", attention.DefaultConfig(), WithClock(clock.now))
	require.NoError(t, err)
	return s
}

var (
	attentive = attention.Observation{EAR: 0.3, OffsetRatio: 0.05}
	turned    = attention.Observation{EAR: 0.3, OffsetRatio: 0.6}
)

func TestSession_Process(t *testing.T) {
	s := newTestSession(t)

	r1, err := s.Process([]attention.Observation{attentive, turned})
	require.NoError(t, err)
	r2, err := s.Process(nil)
	require.NoError(t, err)

	assert.Equal(t, 1, r1.Frame)
	assert.Equal(t, 2, r2.Frame)
	assert.True(t, r2.Timestamp.After(r1.Timestamp))

	log := s.Log()
	require.Len(t, log, 2)
	assert.Equal(t, LogRow{
		Timestamp:         r1.Timestamp,
		FrameIndex:        1,
		AttentiveCount:    1,
		TotalFaces:        2,
		CheatingFlagCount: 1,
	}, log[0])
	assert.Equal(t, 0, log[1].TotalFaces)
	assert.Equal(t, 1, log[1].CheatingFlagCount, "empty frame carries the No Face flag")

	summary := s.Summary()
	assert.Equal(t, 2, summary.Frames)
	assert.Equal(t, 0, summary.AttentiveFrames)
}

func TestSession_Stop(t *testing.T) {
	s := newTestSession(t)
	_, err := s.Process([]attention.Observation{attentive})
	require.NoError(t, err)

	summary, err := s.Stop()
	require.NoError(t, err)
	assert.Equal(t, 100.0, summary.Score)
	assert.Equal(t, attention.BandGood, summary.Band)

	_, err = s.Stop()
	assert.ErrorIs(t, err, ErrStopped)

	_, err = s.Process([]attention.Observation{attentive})
	assert.ErrorIs(t, err, ErrStopped)

	snap := s.Snapshot()
	assert.Equal(t, domain.SessionStopped, snap.Status)
	require.NotNil(t, snap.StoppedAt)
	assert.True(t, snap.StoppedAt.After(snap.StartedAt))
	assert.Equal(t, "exam room 3", snap.Name)
}

func TestSession_ConcurrentProcess(t *testing.T) {
	s := newTestSession(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Process([]attention.Observation{attentive})
		}()
	}
	wg.Wait()

	log := s.Log()
	require.Len(t, log, 50)

	indexes := make([]int, len(log))
	for i, row := range log {
		indexes[i] = row.FrameIndex
	}
	sort.Ints(indexes)
	for i, idx := range indexes {
		assert.Equal(t, i+1, idx)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := attention.DefaultConfig()
	cfg.NoFacePolicy = "skip"

	_, err := New(uuid.New(), "", cfg)
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	ts := time.Date(2025, 5, 10, 9, 0, 1, 500000000, time.UTC)
	rows := []LogRow{
		{Timestamp: ts, FrameIndex: 1, AttentiveCount: 2, TotalFaces: 3, CheatingFlagCount: 1},
		{Timestamp: ts.Add(time.Second), FrameIndex: 2, AttentiveCount: 0, TotalFaces: 0, CheatingFlagCount: 1},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))

	want := "timestamp,frame_index,attentive_count,total_faces,cheating_flag_count\n" +
		"2025-05-10T09:00:01.5Z,1,2,3,1\n" +
		"2025-05-10T09:00:02.5Z,2,0,0,1\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	assert.Equal(t, "timestamp,frame_index,attentive_count,total_faces,cheating_flag_count\n", buf.String())
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a := newTestSession(t)
	b := newTestSession(t)

	r.Add(a)
	r.Add(b)
	assert.Equal(t, 2, r.Len())
	assert.Len(t, r.List(), 2)

	got, ok := r.Get(a.ID())
	require.True(t, ok)
	assert.Same(t, a, got)

	r.Remove(a.ID())
	_, ok = r.Get(a.ID())
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_RetireKeepsNewestStopped(t *testing.T) {
	r := NewRegistry()
	live := newTestSession(t)
	first := newTestSession(t)
	second := newTestSession(t)
	third := newTestSession(t)
	for _, s := range []*Session{live, first, second, third} {
		r.Add(s)
	}

	assert.Empty(t, r.Retire(first.ID(), 2))
	assert.Empty(t, r.Retire(second.ID(), 2))
	assert.Equal(t, []uuid.UUID{first.ID()}, r.Retire(third.ID(), 2))

	_, ok := r.Get(first.ID())
	assert.False(t, ok)
	_, ok = r.Get(live.ID())
	assert.True(t, ok)
	assert.Equal(t, 3, r.Len())

	assert.Empty(t, r.Retire(uuid.New(), 2), "unknown ids are ignored")
}

func TestRegistry_RetireWithoutRetention(t *testing.T) {
	r := NewRegistry()
	s := newTestSession(t)
	r.Add(s)

	assert.Equal(t, []uuid.UUID{s.ID()}, r.Retire(s.ID(), 0))
	assert.Equal(t, 0, r.Len())
}
