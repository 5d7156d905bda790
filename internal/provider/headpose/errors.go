package headpose

import (
	"errors"
	"fmt"

	"github.com/saturnino-fabrica-de-software/atento/internal/provider"
)

var (
	ErrInvalidResponse = errors.New("invalid response from head pose service")
	ErrNoFace          = fmt.Errorf("%w: head pose service found no face", provider.ErrNoFace)
	ErrEmptyImage      = fmt.Errorf("%w: empty image", provider.ErrInvalidImage)
)
