// Package provider defines a uniform interface over heterogeneous model
// backends (local daemon-hosted and remote hosted) with health checks,
// capability queries, and timing instrumentation.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Kind identifies a provider backend implementation.
type Kind string

// Supported provider kinds.
const (
	KindOllama Kind = "ollama"
	KindOpenAI Kind = "openai"
)

// Request carries a single generation request to a model backend.
// Images are base64-encoded payloads for vision-capable models.
type Request struct {
	Prompt      string
	Images      []string
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// Usage holds timing and token metrics for a completed call.
type Usage struct {
	PromptTokens     int           `json:"prompt_tokens"`
	CompletionTokens int           `json:"completion_tokens"`
	Duration         time.Duration `json:"duration"`
}

// Response is the result of a successful provider invocation.
type Response struct {
	Content  string `json:"content"`
	Provider string `json:"provider"`
	Usage    Usage  `json:"usage"`
}

// Health records the outcome of the most recent provider contact.
type Health struct {
	CheckedAt time.Time `json:"checked_at"`
	OK        bool      `json:"ok"`
}

// Descriptor describes a provider's identity, capabilities, and health.
type Descriptor struct {
	Name          string `json:"name"`
	Kind          Kind   `json:"kind"`
	BaseURL       string `json:"base_url"`
	Model         string `json:"model"`
	ContextTokens int    `json:"context_tokens"`
	Vision        bool   `json:"vision"`
	Health        Health `json:"health"`
}

// Provider is the uniform contract over model backends. Invoke returns
// ErrUnavailable on connection failure or timeout, ErrOverloaded on
// rate-limit signals, and ErrInvalidResponse when the backend's output
// cannot be decoded. Every call, successful or not, stamps the provider's
// health in the shared registry.
type Provider interface {
	Invoke(ctx context.Context, req Request) (*Response, error)
	HealthCheck(ctx context.Context) bool
	Describe() Descriptor
}

// New creates a provider of the configured kind, registered in reg.
func New(cfg *Config, reg *Registry, logger *slog.Logger) (Provider, error) {
	switch cfg.Kind {
	case KindOllama:
		return newOllama(cfg, reg, logger), nil
	case KindOpenAI:
		return newOpenAI(cfg, reg, logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}

// classifyStatus maps an HTTP status code to the provider error taxonomy.
// Status codes outside the recognized failure ranges map to ErrInvalidResponse
// since the backend responded but not in a usable way.
func classifyStatus(status int) error {
	switch {
	case status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable:
		return ErrOverloaded
	case status >= 500:
		return ErrUnavailable
	default:
		return ErrInvalidResponse
	}
}
