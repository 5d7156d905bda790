package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/atento/internal/domain"
)

type errorBody struct {
	Error struct {
		Code    string       `json:"code"`
		Message string       `json:"message"`
		Fields  []FieldError `json:"fields"`
	} `json:"error"`
}

func runError(t *testing.T, logs *bytes.Buffer, handlerErr error) (int, errorBody) {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(logs, nil))
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger)})
	app.Get("/", func(c *fiber.Ctx) error { return handlerErr })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body errorBody
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp.StatusCode, body
}

func TestErrorHandler(t *testing.T) {
	type payload struct {
		Name string `validate:"max=3"`
	}
	verr := validator.New().Struct(payload{Name: "too long"})
	require.Error(t, verr)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantLogged bool
		wantFields int
	}{
		{
			name:       "app error",
			err:        domain.ErrSessionNotFound,
			wantStatus: 404,
			wantCode:   "SESSION_NOT_FOUND",
		},
		{
			name:       "wrapped app error",
			err:        domain.ErrInferenceUnavailable.WithError(errors.New("sidecar down")),
			wantStatus: 503,
			wantCode:   "INFERENCE_UNAVAILABLE",
			wantLogged: true,
		},
		{
			name:       "validation error lists fields",
			err:        domain.ErrValidationFailed.WithError(verr),
			wantStatus: 422,
			wantCode:   "VALIDATION_FAILED",
			wantFields: 1,
		},
		{
			name:       "fiber error",
			err:        fiber.ErrMethodNotAllowed,
			wantStatus: 405,
			wantCode:   "HTTP_ERROR",
		},
		{
			name:       "unknown error",
			err:        errors.New("boom"),
			wantStatus: 500,
			wantCode:   "INTERNAL_ERROR",
			wantLogged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			status, body := runError(t, &logs, tt.err)

			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.Len(t, body.Error.Fields, tt.wantFields)
			assert.Equal(t, tt.wantLogged, logs.Len() > 0)
		})
	}
}

func TestRecover(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	app := fiber.New()
	app.Use(Recover(logger))
	app.Get("/", func(c *fiber.Ctx) error { panic("kaboom") })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	assert.Equal(t, 500, resp.StatusCode)
	assert.Contains(t, logs.String(), "panic recovered")
	assert.Contains(t, logs.String(), "kaboom")
}

func TestLogger_LevelByStatus(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))})
	app.Use(Logger(logger))
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/missing", func(c *fiber.Ctx) error { return domain.ErrNotFound })

	resp, err := app.Test(httptest.NewRequest("GET", "/ok", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	lines := bytes.Split(bytes.TrimSpace(logs.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first, second map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	require.NoError(t, json.Unmarshal(lines[1], &second))

	assert.Equal(t, "INFO", first["level"])
	assert.Equal(t, float64(200), first["status"])
	assert.Equal(t, "WARN", second["level"])
	assert.Equal(t, float64(404), second["status"])
}
