package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/atento/internal/attention"
	"github.com/saturnino-fabrica-de-software/atento/internal/domain"
	"github.com/saturnino-fabrica-de-software/atento/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/atento/internal/service"
	"github.com/saturnino-fabrica-de-software/atento/internal/ws"
)

// attentiveFace is a compact13 face with EAR 0.3 and the nose centred between the eyes
const attentiveFace = `{"scheme":"compact13","points":[
	{"x":85,"y":100},{"x":95,"y":95.5},{"x":105,"y":95.5},{"x":115,"y":100},{"x":105,"y":104.5},{"x":95,"y":104.5},
	{"x":145,"y":100},{"x":155,"y":95.5},{"x":165,"y":95.5},{"x":175,"y":100},{"x":165,"y":104.5},{"x":155,"y":104.5},
	{"x":130,"y":130}]}`

func newTestRouter(t *testing.T) *Router {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := mock.New(1)
	hub := ws.NewHub()

	svc := service.NewAttentionService(p, p, attention.DefaultConfig(), logger, service.WithBroadcaster(hub))
	t.Cleanup(svc.Close)

	r := NewRouter(logger, &Dependencies{
		Service:   svc,
		Hub:       hub,
		RateLimit: 6000,
	})
	r.Setup()
	t.Cleanup(func() { shutdown(r) })

	return r
}

func shutdown(r *Router) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = r.ShutdownWithContext(ctx)
}

func doRequest(t *testing.T, r *Router, method, path, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.App().Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestRouter_SessionLifecycle(t *testing.T) {
	r := newTestRouter(t)

	resp := doRequest(t, r, "POST", "/v1/sessions", `{"name":"room 3"}`)
	require.Equal(t, 201, resp.StatusCode)

	var sess domain.Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sess))
	assert.Equal(t, "room 3", sess.Name)
	assert.Equal(t, domain.SessionActive, sess.Status)
	assert.Equal(t, attention.DefaultConfig(), sess.Config)

	base := "/v1/sessions/" + sess.ID.String()

	resp = doRequest(t, r, "POST", base+"/landmarks", `{"faces":[`+attentiveFace+`]}`)
	require.Equal(t, 200, resp.StatusCode)
	var frame attention.FrameResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&frame))
	assert.Equal(t, 1, frame.Frame)
	assert.True(t, frame.Attentive)
	require.Len(t, frame.Faces, 1)
	assert.Equal(t, attention.LabelAttentive, frame.Faces[0].Label)
	assert.InDelta(t, 0.3, frame.Faces[0].EAR, 1e-3)

	resp = doRequest(t, r, "POST", base+"/landmarks", `{"faces":[]}`)
	require.Equal(t, 200, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&frame))
	assert.Equal(t, 2, frame.Frame)
	assert.False(t, frame.Attentive)
	assert.Equal(t, []string{attention.FlagNoFace}, frame.CheatingFlags)

	resp = doRequest(t, r, "DELETE", base, "")
	require.Equal(t, 200, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sess))
	assert.Equal(t, domain.SessionStopped, sess.Status)
	require.NotNil(t, sess.Summary)
	assert.Equal(t, 2, sess.Summary.Frames)
	assert.Equal(t, 50.0, sess.Summary.Score)
	assert.Equal(t, attention.BandModerate, sess.Summary.Band)

	resp = doRequest(t, r, "GET", base+"/log.csv", "")
	require.Equal(t, 200, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(raw)), "\n"), 3)

	resp = doRequest(t, r, "POST", base+"/landmarks", `{"faces":[]}`)
	assert.Equal(t, 409, resp.StatusCode)

	resp = doRequest(t, r, "DELETE", base, "")
	assert.Equal(t, 409, resp.StatusCode)
}

func TestRouter_Errors(t *testing.T) {
	r := newTestRouter(t)

	resp := doRequest(t, r, "GET", "/v1/sessions/00000000-0000-0000-0000-000000000001", "")
	assert.Equal(t, 404, resp.StatusCode)

	resp = doRequest(t, r, "POST", "/v1/sessions", `{"config":{"ear_threshold":1.5}}`)
	assert.Equal(t, 422, resp.StatusCode)

	resp = doRequest(t, r, "POST", "/v1/sessions", "")
	require.Equal(t, 201, resp.StatusCode)
	var sess domain.Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sess))

	// plain GET on the socket route is refused before the session lookup
	resp = doRequest(t, r, "GET", "/v1/sessions/"+sess.ID.String()+"/ws", "")
	assert.Equal(t, 426, resp.StatusCode)
}

func TestRouter_Health(t *testing.T) {
	r := newTestRouter(t)

	resp := doRequest(t, r, "GET", "/health", "")
	assert.Equal(t, 200, resp.StatusCode)

	resp = doRequest(t, r, "GET", "/ready", "")
	assert.Equal(t, 200, resp.StatusCode)
}

func TestRouter_WithoutDependencies(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRouter(logger, nil)
	r.Setup()
	defer shutdown(r)

	resp := doRequest(t, r, "GET", "/health", "")
	assert.Equal(t, 200, resp.StatusCode)

	resp = doRequest(t, r, "POST", "/v1/sessions", "")
	assert.Equal(t, 404, resp.StatusCode)
}
