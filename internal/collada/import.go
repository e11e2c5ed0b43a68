package collada

import (
	"errors"

	"top-lab-exporter/internal/lab"
)

// ErrUnsupported marks the document → .lab direction, which is deliberately
// absent.
var ErrUnsupported = errors.New("collada: unsupported operation: document import")

// Import would convert an interchange document back into an animation
// dataset. The reverse direction is not supported; this reports so and
// performs no work.
func Import(data []byte) (*lab.Dataset, error) {
	return nil, ErrUnsupported
}
