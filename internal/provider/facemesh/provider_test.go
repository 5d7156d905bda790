package facemesh

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/atento/internal/provider"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := DefaultConfig()
	config.BaseURL = server.URL
	config.RetryCount = 0
	return NewProvider(config)
}

func TestProvider_DetectLandmarks(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(LandmarksResponse{
			Width:  200,
			Height: 100,
			Faces: []MeshResult{
				{Points: [][2]float64{{0.1, 0.2}, {0.5, 0.9}}, Normalized: true, Score: 0.9},
				{Points: [][2]float64{{10, 20}, {30, 40}}, Score: 0.8},
			},
		})
	})

	faces, err := p.DetectLandmarks(context.Background(), []byte("jpeg"))

	require.NoError(t, err)
	require.Len(t, faces, 2)

	assert.Equal(t, provider.SchemeFaceMesh, faces[0].Scheme)
	assert.InDelta(t, 20, faces[0].Points[0].X, 1e-9)
	assert.InDelta(t, 20, faces[0].Points[0].Y, 1e-9)
	assert.InDelta(t, 100, faces[0].Points[1].X, 1e-9)
	assert.InDelta(t, 90, faces[0].Points[1].Y, 1e-9)
	require.NotNil(t, faces[0].BoundingBox)
	assert.InDelta(t, 80, faces[0].BoundingBox.Width, 1e-9)
	assert.Equal(t, 0.9, faces[0].Confidence)

	assert.Equal(t, provider.Point{X: 10, Y: 20}, faces[1].Points[0])
}

func TestProvider_DetectLandmarks_EmptyImage(t *testing.T) {
	p := NewProvider(DefaultConfig())

	_, err := p.DetectLandmarks(context.Background(), nil)

	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestProvider_DetectLandmarks_Unavailable(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := p.DetectLandmarks(context.Background(), []byte("jpeg"))

	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrInferenceUnavailable)
}

func TestProvider_Ping(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := p.Ping(context.Background())

	assert.ErrorIs(t, err, provider.ErrInferenceUnavailable)
}
