// Package embeddings abstracts the external embedding provider behind a
// two-outcome capability interface: a fixed-dimension vector or an error.
// The suggestion engine is written against the interface so a stub provider
// can stand in during tests, and provider failures trigger keyword fallback
// rather than surfacing to callers.
package embeddings

import (
	"context"

	"github.com/pkg/errors"
)

// ErrUnavailable indicates the provider could not produce an embedding.
// Callers detect it with errors.Is and fall back to keyword matching.
var ErrUnavailable = errors.New("embedding provider unavailable")

// Provider produces an embedding vector for free text.
type Provider interface {
	// Embed returns a fixed-dimension vector for the given text, or an
	// error wrapping ErrUnavailable on provider failure or timeout.
	Embed(ctx context.Context, text string) ([]float64, error)
}
