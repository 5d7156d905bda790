package rekognition

import (
	"errors"
	"fmt"

	"github.com/saturnino-fabrica-de-software/atento/internal/provider"
)

var (
	// ErrInvalidCredentials indicates that AWS credentials are invalid or missing
	ErrInvalidCredentials = errors.New("invalid or missing AWS credentials")

	// ErrNoFaceDetected indicates that no face was found in the provided image
	ErrNoFaceDetected = fmt.Errorf("%w: rekognition detected no face", provider.ErrNoFace)

	// ErrInvalidImage indicates the image is empty, too large or not a format Rekognition reads
	ErrInvalidImage = fmt.Errorf("%w: rejected by rekognition", provider.ErrInvalidImage)
)
