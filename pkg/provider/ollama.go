package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ollama talks to a locally hosted Ollama daemon through its generate API.
type ollama struct {
	cfg     *Config
	client  *http.Client
	reg     *Registry
	limiter *rate.Limiter
	logger  *slog.Logger
}

func newOllama(cfg *Config, reg *Registry, logger *slog.Logger) *ollama {
	reg.Register(cfg.Descriptor())

	o := &ollama{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.TimeoutDuration()},
		reg:    reg,
		logger: logger.With("provider", cfg.Name),
	}
	if cfg.RequestsPerSecond > 0 {
		o.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return o
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Images  []string      `json:"images,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaResponse struct {
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

func (o *ollama) Invoke(ctx context.Context, req Request) (*Response, error) {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limit wait: %w", ErrUnavailable, err)
		}
	}

	body, err := json.Marshal(ollamaRequest{
		Model:  o.cfg.Model,
		Prompt: req.Prompt,
		Images: req.Images,
		Stream: false,
		Options: ollamaOptions{
			Temperature: req.Temperature,
			TopP:        req.TopP,
			NumPredict:  req.MaxTokens,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	start := time.Now()
	resp, err := o.post(ctx, "/api/generate", body)
	if err != nil {
		o.reg.RecordHealth(o.cfg.Name, false)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		o.reg.RecordHealth(o.cfg.Name, false)
		return nil, fmt.Errorf("%w: status %d", classifyStatus(resp.StatusCode), resp.StatusCode)
	}

	var parsed ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		o.reg.RecordHealth(o.cfg.Name, false)
		return nil, fmt.Errorf("%w: decode body: %w", ErrInvalidResponse, err)
	}

	o.reg.RecordHealth(o.cfg.Name, true)

	return &Response{
		Content:  parsed.Response,
		Provider: o.cfg.Name,
		Usage: Usage{
			PromptTokens:     parsed.PromptEvalCount,
			CompletionTokens: parsed.EvalCount,
			Duration:         time.Since(start),
		},
	}, nil
}

type ollamaTags struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// HealthCheck lists the daemon's models and verifies the configured model
// is present.
func (o *ollama) HealthCheck(ctx context.Context) bool {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, o.cfg.BaseURL+"/api/tags", nil)
	if err != nil {
		o.reg.RecordHealth(o.cfg.Name, false)
		return false
	}

	resp, err := o.client.Do(httpReq)
	if err != nil || resp.StatusCode != http.StatusOK {
		if resp != nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
		o.reg.RecordHealth(o.cfg.Name, false)
		return false
	}
	defer resp.Body.Close()

	var tags ollamaTags
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		o.reg.RecordHealth(o.cfg.Name, false)
		return false
	}

	found := false
	for _, m := range tags.Models {
		if strings.Contains(m.Name, o.cfg.Model) {
			found = true
			break
		}
	}

	o.reg.RecordHealth(o.cfg.Name, found)
	return found
}

func (o *ollama) Describe() Descriptor {
	d, _ := o.reg.Describe(o.cfg.Name)
	return d
}

func (o *ollama) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	return o.client.Do(httpReq)
}
