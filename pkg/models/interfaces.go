package models

import "context"

// Strategy is one independent way of turning a share reference into a playable result
type Strategy interface {
	// Name returns a short identifier used in logs and metrics
	Name() string

	// Attempt either returns a fully populated result or an error.
	// A returned result is never partially populated.
	Attempt(ctx context.Context, ref *ShareReference, originalURL string) (*VideoResult, error)
}

// Resolver turns a raw share URL into exactly one VideoResult
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) *VideoResult
}
