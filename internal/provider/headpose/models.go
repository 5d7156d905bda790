package headpose

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// PoseResponse from POST /api/face_identify. Angles are in degrees.
type PoseResponse struct {
	Yaw   float64     `json:"yaw_predicted"`
	Pitch float64     `json:"pitch_predicted"`
	Roll  float64     `json:"roll_predicted"`
	Face  *FaceRegion `json:"max_confidence_Detected_face"`
	Error string      `json:"Error,omitempty"`
}

// FaceRegion is the most confident face the service found, as corner coordinates
type FaceRegion struct {
	XMin       Number `json:"x_min"`
	YMin       Number `json:"y_min"`
	XMax       Number `json:"x_max"`
	YMax       Number `json:"y_max"`
	Confidence Number `json:"confidence_score"`
}

// Number accepts both JSON numbers and numeric strings; the face detector
// behind the service emits coordinates as strings.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*n = 0
		return nil
	}

	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*n = Number(v)
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(n))
}
