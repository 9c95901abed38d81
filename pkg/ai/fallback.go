package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
)

// FallbackService routes generation to the primary provider and falls back
// to the local Ollama model when the primary is unreachable or out of quota.
type FallbackService struct {
	primary  Generator
	fallback Generator
}

// NewFallbackService creates a new fallback service with both providers
func NewFallbackService(primary, fallback Generator) *FallbackService {
	return &FallbackService{
		primary:  primary,
		fallback: fallback,
	}
}

// isConnectionError checks if the error is a network/connection error
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	connectionIndicators := []string{
		"connection refused",
		"no such host",
		"network is unreachable",
		"connection reset",
		"timeout",
		"dial tcp",
		"eof",
	}
	for _, indicator := range connectionIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}

// isQuotaError checks if the error indicates API quota exhaustion (429)
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	quotaIndicators := []string{
		"429",
		"quota",
		"rate limit",
		"too many requests",
		"resource exhausted",
		"resource_exhausted",
	}
	for _, indicator := range quotaIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}

// Generate tries the primary provider first; other errors are returned as-is
// so the caller's retry policy sees them.
func (f *FallbackService) Generate(ctx context.Context, prompt string) (string, error) {
	if f.primary != nil {
		result, err := f.primary.Generate(ctx, prompt)
		if err == nil {
			return result, nil
		}
		if f.fallback == nil || !(isConnectionError(err) || isQuotaError(err)) {
			return "", fmt.Errorf("primary provider failed: %w", err)
		}
		log.Printf("[AI] Primary provider unavailable: %v, falling back", err)
	}

	if f.fallback != nil {
		result, err := f.fallback.Generate(ctx, prompt)
		if err != nil {
			return "", fmt.Errorf("fallback provider failed: %w", err)
		}
		return result, nil
	}

	return "", fmt.Errorf("no AI provider available")
}
