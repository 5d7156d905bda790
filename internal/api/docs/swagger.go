package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// ConfigDoc represents the heuristic thresholds of a session
type ConfigDoc struct {
	EARThreshold      float64 `json:"ear_threshold" example:"0.25"`
	ConsecutiveFrames int     `json:"consecutive_frames" example:"15"`
	HeadTurnThreshold float64 `json:"head_turn_threshold" example:"0.35"`
	PitchLimit        float64 `json:"pitch_limit" example:"25"`
	RollLimit         float64 `json:"roll_limit" example:"25"`
	EMAAlpha          float64 `json:"ema_alpha" example:"0.3"`
	EyesClosedMode    string  `json:"eyes_closed_mode" example:"sustained"`
	NoFacePolicy      string  `json:"no_face_policy" example:"inattentive"`
}

// SummaryDoc represents the final figures of a stopped session
type SummaryDoc struct {
	Frames          int            `json:"frames" example:"120"`
	AttentiveFrames int            `json:"attentive_frames" example:"96"`
	Score           float64        `json:"score" example:"80"`
	Band            string         `json:"band" example:"good"`
	MeanEAR         float64        `json:"mean_ear" example:"0.29"`
	MedianEAR       float64        `json:"median_ear" example:"0.3"`
	Flags           map[string]int `json:"flags"`
}

// SessionResponse represents a scoring session
type SessionResponse struct {
	ID        string      `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name      string      `json:"name" example:"math exam room 3"`
	Status    string      `json:"status" example:"active"`
	Config    ConfigDoc   `json:"config"`
	Summary   *SummaryDoc `json:"summary,omitempty"`
	StartedAt string      `json:"started_at" example:"2026-01-01T09:00:00Z"`
	StoppedAt string      `json:"stopped_at,omitempty" example:"2026-01-01T10:00:00Z"`
}

// BoundingBoxDoc represents a face area in pixels
type BoundingBoxDoc struct {
	X      float64 `json:"x" example:"120"`
	Y      float64 `json:"y" example:"80"`
	Width  float64 `json:"width" example:"160"`
	Height float64 `json:"height" example:"190"`
}

// PoseDoc represents head orientation in degrees
type PoseDoc struct {
	Pitch float64 `json:"pitch" example:"-4.2"`
	Roll  float64 `json:"roll" example:"1.5"`
	Yaw   float64 `json:"yaw" example:"12.8"`
}

// PoseWarningsDoc flags angles beyond the configured limits
type PoseWarningsDoc struct {
	Pitch bool `json:"pitch" example:"false"`
	Roll  bool `json:"roll" example:"false"`
}

// FaceResultDoc represents the verdict for one face
type FaceResultDoc struct {
	Slot         int              `json:"slot" example:"0"`
	Label        string           `json:"label" example:"Attentive"`
	EAR          float64          `json:"ear" example:"0.31"`
	OffsetRatio  float64          `json:"offset_ratio" example:"0.08"`
	State        string           `json:"state" example:"awake"`
	AttentionEMA float64          `json:"attention_ema" example:"0.83"`
	BoundingBox  BoundingBoxDoc   `json:"bounding_box"`
	Pose         *PoseDoc         `json:"pose,omitempty"`
	PoseWarnings *PoseWarningsDoc `json:"pose_warnings,omitempty"`
}

// FrameResultResponse represents the aggregated verdict of one frame
type FrameResultResponse struct {
	Frame          int             `json:"frame" example:"42"`
	Timestamp      string          `json:"timestamp" example:"2026-01-01T09:00:42Z"`
	AttentiveCount int             `json:"attentive_count" example:"2"`
	TotalFaces     int             `json:"total_faces" example:"3"`
	Attentive      bool            `json:"attentive" example:"false"`
	Faces          []FaceResultDoc `json:"faces"`
	CheatingFlags  []string        `json:"cheating_flags" example:"Head Turned"`
}

// PoseResponse represents a stateless head pose estimate
type PoseResponse struct {
	Pose        PoseDoc         `json:"pose"`
	BoundingBox BoundingBoxDoc  `json:"bounding_box"`
	Confidence  float64         `json:"confidence" example:"0.99"`
	Warnings    PoseWarningsDoc `json:"warnings"`
}

// HealthResponse represents the health and readiness probes
type HealthResponse struct {
	Status  string            `json:"status" example:"ready"`
	Version string            `json:"version,omitempty" example:"0.1.0"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// EmptyResponse represents a response without a JSON body
type EmptyResponse struct{}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

var (
	errSessionNotFound = response.New(ErrorResponse{Code: "SESSION_NOT_FOUND", Message: "Session not found"}, "404", "Not Found")
	errSessionStopped  = response.New(ErrorResponse{Code: "SESSION_STOPPED", Message: "Session has already been stopped"}, "409", "Conflict")
	errRateLimited     = response.New(ErrorResponse{Code: "RATE_LIMIT_EXCEEDED", Message: "Rate limit exceeded, please try again later"}, "429", "Too Many Requests")
	errInternal        = response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error")
	errUnavailable     = response.New(ErrorResponse{Code: "INFERENCE_UNAVAILABLE", Message: "Inference backend unavailable, frame skipped"}, "503", "Service Unavailable")
)

func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Atento Attention Scoring API",
		Version:     "v1.0.0",
		Description: "Scores the attention of people on camera frame by frame from eye openness, head turn and head pose",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	endpoints := []*endpoint.EndPoint{
		// POST /v1/sessions - Start Session
		endpoint.New(
			endpoint.POST,
			"/sessions",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Start a scoring session"),
			endpoint.WithDescription(`Starts a session with fresh per-face state. Optional JSON body: {"name": "...", "config": {...}}. Config fields that are present override the server defaults.`),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionResponse{}, "201", "Session started"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "Invalid request"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Request validation failed"}, "422", "Unprocessable Entity"),
				errRateLimited,
				errInternal,
			}),
		),

		// GET /v1/sessions/:id - Get Session
		endpoint.New(
			endpoint.GET,
			"/sessions/{id}",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Get a session"),
			endpoint.WithDescription("Returns the session with its running or final summary"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Session identifier (UUID)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionResponse{}, "200", "Session retrieved"),
			}),
			endpoint.WithErrors([]response.Response{errSessionNotFound, errRateLimited, errInternal}),
		),

		// DELETE /v1/sessions/:id - Stop Session
		endpoint.New(
			endpoint.DELETE,
			"/sessions/{id}",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Stop a session"),
			endpoint.WithDescription("Stops the session, freezes its summary and fires the session.stopped webhook"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Session identifier (UUID)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionResponse{}, "200", "Session stopped"),
			}),
			endpoint.WithErrors([]response.Response{errSessionNotFound, errSessionStopped, errRateLimited, errInternal}),
		),

		// POST /v1/sessions/:id/frames - Score Frame
		endpoint.New(
			endpoint.POST,
			"/sessions/{id}/frames",
			endpoint.WithTags("Frames"),
			endpoint.WithSummary("Score a camera frame"),
			endpoint.WithDescription("Detects landmarks in the uploaded image (multipart field 'frame', JPEG, PNG or WebP, max 10MB) and scores every face"),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Session identifier (UUID)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(FrameResultResponse{}, "200", "Frame scored"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "Invalid request"}, "400", "Bad Request"),
				errSessionNotFound,
				errSessionStopped,
				response.New(ErrorResponse{Code: "INVALID_IMAGE", Message: "Invalid image format or corrupted file"}, "422", "Unprocessable Entity"),
				errRateLimited,
				errInternal,
				errUnavailable,
			}),
		),

		// POST /v1/sessions/:id/landmarks - Score Landmarks
		endpoint.New(
			endpoint.POST,
			"/sessions/{id}/landmarks",
			endpoint.WithTags("Frames"),
			endpoint.WithSummary("Score pre-computed landmarks"),
			endpoint.WithDescription(`Scores one frame from client-side landmarks. JSON body: {"faces": [{"scheme": "facemesh|dlib68|compact13", "points": [{"x": 0, "y": 0}], "pose": {...}}]}. Malformed faces are dropped.`),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Session identifier (UUID)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(FrameResultResponse{}, "200", "Frame scored"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "Invalid request"}, "400", "Bad Request"),
				errSessionNotFound,
				errSessionStopped,
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Request validation failed"}, "422", "Unprocessable Entity"),
				errRateLimited,
				errInternal,
			}),
		),

		// GET /v1/sessions/:id/log.csv - Export Log
		endpoint.New(
			endpoint.GET,
			"/sessions/{id}/log.csv",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Export the per-frame log"),
			endpoint.WithDescription("CSV with columns timestamp, frame_index, attentive_count, total_faces, cheating_flag_count"),
			endpoint.WithProduce([]mime.MIME{mime.MIME("text/csv")}),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Session identifier (UUID)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "200", "CSV log"),
			}),
			endpoint.WithErrors([]response.Response{errSessionNotFound, errRateLimited, errInternal}),
		),

		// GET /v1/sessions/:id/ws - Live Results
		endpoint.New(
			endpoint.GET,
			"/sessions/{id}/ws",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Follow a session over WebSocket"),
			endpoint.WithDescription("Upgrades to a WebSocket that receives frame.scored and session.stopped events for the session"),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Session identifier (UUID)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "101", "Switching Protocols"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "HTTP_ERROR", Message: "Upgrade Required"}, "426", "Upgrade Required"),
				errSessionNotFound,
				errSessionStopped,
			}),
		),

		// POST /v1/pose - Estimate Pose
		endpoint.New(
			endpoint.POST,
			"/pose",
			endpoint.WithTags("Pose"),
			endpoint.WithSummary("Estimate head pose"),
			endpoint.WithDescription("Stateless pitch, roll and yaw for the most confident face of the uploaded image (multipart field 'image')"),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(PoseResponse{}, "200", "Pose estimated"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "Invalid request"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "NO_FACE_DETECTED", Message: "No face detected in the image"}, "422", "Unprocessable Entity"),
				errRateLimited,
				errInternal,
				errUnavailable,
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
