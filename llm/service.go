// Package llm talks to the generative backend. Providers stream text chunks;
// Service hides the stream and hands callers one complete reply.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/meikuraledutech/phenotree"
	"github.com/meikuraledutech/phenotree/response"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Provider defines the interface for streaming backends (Gemini, mock, ...).
type Provider interface {
	// Stream sends req and calls onChunk for every piece of text in order.
	// It returns once the stream has ended.
	Stream(ctx context.Context, req Request, onChunk func(string) error) error
	IsAvailable() bool
}

// Request is one generation call.
type Request struct {
	Prompt  string
	Schema  *response.Schema
	Options CompletionOptions
}

// CompletionOptions configures generation.
type CompletionOptions struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	MimeType        string  `json:"responseMimeType"`
}

// DefaultOptions are the generation settings used for tree requests.
func DefaultOptions() CompletionOptions {
	return CompletionOptions{
		Temperature:     0.2,
		MaxOutputTokens: 1024,
		MimeType:        "application/json",
	}
}

// BreakerConfig holds configuration for the circuit breaker around the provider.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns a default configuration for the circuit breaker.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "llm",
		MaxRequests:      1,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// Service runs requests through a provider behind a circuit breaker.
type Service struct {
	provider Provider
	options  CompletionOptions
	cb       *gobreaker.CircuitBreaker
	logger   *zap.Logger
}

// NewService creates a Service. A nil logger disables logging.
func NewService(provider Provider, opts CompletionOptions, bc BreakerConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		provider: provider,
		options:  opts,
		logger:   logger,
	}
	s.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        bc.Name,
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < bc.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= bc.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return s
}

// IsAvailable returns true if the provider is configured and reachable.
func (s *Service) IsAvailable() bool {
	return s.provider != nil && s.provider.IsAvailable()
}

// Complete sends prompt with the tree schema and returns the concatenated
// streamed text. Every failure wraps phenotree.ErrBackend.
func (s *Service) Complete(ctx context.Context, prompt string) (string, error) {
	if !s.IsAvailable() {
		return "", fmt.Errorf("%w: provider is not available", phenotree.ErrBackend)
	}

	req := Request{Prompt: prompt, Schema: response.TreeSchema(), Options: s.options}
	start := time.Now()

	out, err := s.cb.Execute(func() (interface{}, error) {
		var b strings.Builder
		chunks := 0
		err := s.provider.Stream(ctx, req, func(chunk string) error {
			chunks++
			b.WriteString(chunk)
			return nil
		})
		if err != nil {
			return nil, err
		}
		s.logger.Debug("backend stream complete",
			zap.Int("chunks", chunks),
			zap.Int("bytes", b.Len()),
			zap.Duration("elapsed", time.Since(start)))
		return b.String(), nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", phenotree.ErrBackend, err)
	}
	return out.(string), nil
}
