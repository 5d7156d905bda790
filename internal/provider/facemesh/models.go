package facemesh

// LandmarksRequest for POST /landmarks
type LandmarksRequest struct {
	Img      string `json:"img"`       // base64 encoded image
	MaxFaces int    `json:"max_faces"` // upper bound on faces returned
	Refine   bool   `json:"refine"`    // 478-point refined mesh with irises
}

// LandmarksResponse from POST /landmarks
type LandmarksResponse struct {
	Width  int          `json:"width"`
	Height int          `json:"height"`
	Faces  []MeshResult `json:"faces"`
}

// MeshResult is one face. Points are [x, y]; when Normalized they are in [0,1]
// relative to the image size.
type MeshResult struct {
	Points     [][2]float64 `json:"points"`
	Normalized bool         `json:"normalized"`
	Score      float64      `json:"score"`
}

// HealthResponse from GET /health
type HealthResponse struct {
	Status string `json:"status"`
	Model  string `json:"model"`
}
