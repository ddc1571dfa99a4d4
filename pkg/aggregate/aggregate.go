// Package aggregate combines local statistics payloads into a single global
// payload. Engines are pure: they never mutate their inputs and produce the
// same estimate for the same payload set regardless of arrival order.
package aggregate

import (
	"fmt"

	"github.com/rodneyosodo/starfish/pkg/errors"
	"github.com/rodneyosodo/starfish/run"
)

// Engine aggregates the local blobs published for one round into the global
// blob for that round. Blobs are line-delimited JSON; every line of every
// blob is one local payload.
type Engine interface {
	Aggregate(blobs [][]byte) ([]byte, error)
}

// ForKind selects the aggregation engine for a model kind.
func ForKind(kind run.ModelKind) (Engine, error) {
	switch kind {
	case run.KindLinear:
		return linearEngine{}, nil
	case run.KindKernel:
		return kernelEngine{}, nil
	default:
		return nil, fmt.Errorf("model kind %q: %w", kind, errors.ErrInvalidData)
	}
}
