package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidURL means the host is not a known TeraBox host
	ErrInvalidURL = errors.New("not a valid terabox url")

	// ErrNoShareToken means the host is known but no share token could be found
	ErrNoShareToken = errors.New("could not extract share id")

	// ErrStrategyFailure marks a recoverable failure of a single strategy
	ErrStrategyFailure = errors.New("strategy failed")

	// ErrAllStrategiesFailed is the terminal failure of a resolution
	ErrAllStrategiesFailed = errors.New("all extraction methods failed")

	// ErrUnknownEndpoint is a programming error: an endpoint name missing from the table
	ErrUnknownEndpoint = errors.New("unknown endpoint")
)

// Messages shown to end users for the caller-visible failures
const (
	MsgInvalidURL          = "Not a valid Terabox URL"
	MsgNoShareToken        = "Could not extract share ID"
	MsgAllStrategiesFailed = "All verified extraction methods failed. Link may be private, expired, or blocked."
)

// UserMessage maps a caller-visible error to its human readable message
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidURL):
		return MsgInvalidURL
	case errors.Is(err, ErrNoShareToken):
		return MsgNoShareToken
	default:
		return MsgAllStrategiesFailed
	}
}

// StrategyError wraps the failure of one named strategy
type StrategyError struct {
	Strategy string
	Err      error
}

// NewStrategyError wraps err as a failure of the named strategy
func NewStrategyError(strategy string, err error) *StrategyError {
	return &StrategyError{Strategy: strategy, Err: err}
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Strategy, e.Err)
}

func (e *StrategyError) Unwrap() error {
	return e.Err
}

// Is makes every StrategyError match ErrStrategyFailure
func (e *StrategyError) Is(target error) bool {
	return target == ErrStrategyFailure
}
