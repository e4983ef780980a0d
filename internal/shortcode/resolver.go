package shortcode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// DefaultMaxAttempts bounds the number of candidates tried before giving up.
const DefaultMaxAttempts = 50

var (
	// ErrAttemptsExhausted is returned when every generated candidate collided with an existing code.
	// It points to a saturated code space or a degraded entropy source, not to bad input.
	ErrAttemptsExhausted = errors.New("short code attempts exhausted")
	// ErrGenerationFailed is returned when the existence check or the random source failed.
	ErrGenerationFailed = errors.New("short code generation failed")
)

// ExistsFunc reports whether shortCode is already taken.
type ExistsFunc func(ctx context.Context, shortCode string) (bool, error)

// Resolver finds a short code that is not yet taken.
type Resolver struct {
	gen         *Generator
	maxAttempts int
	logger      *slog.Logger
}

// NewResolver creates a Resolver trying at most maxAttempts candidates from gen.
// A non-positive maxAttempts falls back to DefaultMaxAttempts.
func NewResolver(gen *Generator, maxAttempts int, logger *slog.Logger) *Resolver {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	return &Resolver{
		gen:         gen,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Length returns the length of the codes the resolver hands out.
func (r *Resolver) Length() int {
	return r.gen.Length()
}

// Resolve generates candidates until exists reports one as free.
//
// A failing exists check aborts right away with ErrGenerationFailed and does not count
// as a collision. After maxAttempts collisions ErrAttemptsExhausted is returned.
func (r *Resolver) Resolve(ctx context.Context, exists ExistsFunc) (string, error) {
	const op = "shortcode.Resolver.Resolve"

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}

		code, err := r.gen.Generate()
		if err != nil {
			return "", fmt.Errorf("%s: %w: %w", op, ErrGenerationFailed, err)
		}

		taken, err := exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("%s: %w: failed to check short code: %w", op, ErrGenerationFailed, err)
		}

		if !taken {
			return code, nil
		}

		r.logger.Debug("short code collision", slog.String("op", op), slog.Int("attempt", attempt))
	}

	r.logger.Error(
		"no free short code found",
		slog.String("op", op),
		slog.Int("max_attempts", r.maxAttempts),
		slog.Int("length", r.gen.Length()),
	)

	return "", fmt.Errorf("%s: %w", op, ErrAttemptsExhausted)
}
