package ports

import (
	"context"
	"errors"
)

// ErrOracleNotConfigured is returned when no credentials are available.
var ErrOracleNotConfigured = errors.New("traffic oracle not configured")

// Contract for a generative model answering a free-text prompt.
// The answer is expected, but not guaranteed, to be a JSON document.
type TrafficOracle interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
