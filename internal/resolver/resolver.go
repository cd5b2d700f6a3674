package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"terabox-extractor/internal/monitor"
	"terabox-extractor/internal/registry"
	"terabox-extractor/pkg/models"
)

// DefaultTimeout bounds a whole resolution, all strategies included
const DefaultTimeout = 60 * time.Second

// Resolver runs the strategies in order until one yields a playable result
type Resolver struct {
	registry   *registry.Registry
	strategies []models.Strategy
	monitor    *monitor.Monitor
	logger     zerolog.Logger
	timeout    time.Duration
}

// Option configures a Resolver
type Option func(*Resolver)

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Resolver) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// WithMonitor records every resolution and strategy attempt on m
func WithMonitor(m *monitor.Monitor) Option {
	return func(r *Resolver) {
		r.monitor = m
	}
}

// NewResolver creates a resolver trying strategies in the given order
func NewResolver(reg *registry.Registry, strategies []models.Strategy, logger zerolog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		registry:   reg,
		strategies: strategies,
		logger:     logger.With().Str("component", "resolver").Logger(),
		timeout:    DefaultTimeout,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve turns rawURL into exactly one result. It never returns nil.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) *models.VideoResult {
	start := time.Now()
	if r.monitor != nil {
		r.monitor.ResolutionStarted()
	}

	result, outcome := r.resolve(ctx, strings.TrimSpace(rawURL))

	if r.monitor != nil {
		r.monitor.RecordResolution(outcome, time.Since(start))
	}

	return result
}

func (r *Resolver) resolve(ctx context.Context, rawURL string) (*models.VideoResult, string) {
	r.logger.Info().Str("url", rawURL).Msg("Extracting from")

	if err := r.registry.ValidateURL(rawURL); err != nil {
		r.logger.Warn().Err(err).Msg("Rejected unknown host")
		return models.FailedResult("", models.UserMessage(err)), monitor.OutcomeInvalidURL
	}

	ref, err := r.registry.ExtractShareReference(rawURL)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Share token not found")
		return models.FailedResult("", models.UserMessage(err)), monitor.OutcomeNoShareToken
	}

	r.logger.Info().Str("surl", ref.Surl).Msg("Share ID")

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var failures []error
	for _, strategy := range r.strategies {
		if ctx.Err() != nil {
			r.logger.Warn().Err(ctx.Err()).Msg("Resolution deadline reached")
			break
		}

		result, err := r.attempt(ctx, strategy, ref, rawURL)
		if err != nil {
			failures = append(failures, err)
			continue
		}

		r.logger.Info().
			Str("strategy", strategy.Name()).
			Str("title", result.Title).
			Str("size", result.SizeStr).
			Msg("Resolution succeeded")
		return result, monitor.OutcomeSuccess
	}

	r.logger.Error().
		Str("surl", ref.Surl).
		Err(errors.Join(failures...)).
		Msg("All methods failed")

	return models.FailedResult(ref.Surl, models.UserMessage(models.ErrAllStrategiesFailed)), monitor.OutcomeAllFailed
}

// attempt runs one strategy. A result that is not playable counts as a failure
// and is discarded, so nothing from a failed strategy reaches the caller.
func (r *Resolver) attempt(ctx context.Context, strategy models.Strategy, ref *models.ShareReference, rawURL string) (result *models.VideoResult, err error) {
	name := strategy.Name()
	start := time.Now()

	r.logger.Info().Str("strategy", name).Msg("Trying method")

	defer func() {
		if p := recover(); p != nil {
			// a missing endpoint is a programming error, not a failed attempt
			if perr, ok := p.(error); ok && errors.Is(perr, models.ErrUnknownEndpoint) {
				panic(p)
			}
			result, err = nil, models.NewStrategyError(name, fmt.Errorf("panic: %v", p))
			r.logger.Error().Str("strategy", name).Interface("panic", p).Msg("Method panicked")
			r.record(name, monitor.StatusPanic, start)
		}
	}()

	result, err = strategy.Attempt(ctx, ref, rawURL)
	if err == nil && !result.Playable() {
		err = models.NewStrategyError(name, errors.New("result has no stream url"))
	}
	if err != nil {
		r.logger.Warn().Str("strategy", name).Err(err).Msg("Method failed")
		r.record(name, monitor.StatusFailure, start)
		return nil, err
	}

	r.record(name, monitor.StatusSuccess, start)
	return result, nil
}

func (r *Resolver) record(strategy, status string, start time.Time) {
	if r.monitor != nil {
		r.monitor.RecordStrategy(strategy, status, time.Since(start))
	}
}

// Strategies returns the names of the configured strategies in order
func (r *Resolver) Strategies() []string {
	names := make([]string, len(r.strategies))
	for i, s := range r.strategies {
		names[i] = s.Name()
	}
	return names
}

// Registry returns the registry used for validation
func (r *Resolver) Registry() *registry.Registry {
	return r.registry
}
