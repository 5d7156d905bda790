package facemesh

import (
	"errors"
	"fmt"

	"github.com/saturnino-fabrica-de-software/atento/internal/provider"
)

var (
	ErrInvalidResponse = errors.New("invalid response from face mesh sidecar")
	ErrEmptyImage      = fmt.Errorf("%w: empty image", provider.ErrInvalidImage)
)
