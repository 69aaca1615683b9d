package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// openai talks to any OpenAI-compatible chat completions endpoint. This
// covers remote hosted models as well as local gateways (LocalAI, OpenLLM)
// that expose the same surface.
type openai struct {
	cfg     *Config
	client  *http.Client
	reg     *Registry
	limiter *rate.Limiter
	logger  *slog.Logger
}

func newOpenAI(cfg *Config, reg *Registry, logger *slog.Logger) *openai {
	reg.Register(cfg.Descriptor())

	p := &openai{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.TimeoutDuration()},
		reg:    reg,
		logger: logger.With("provider", cfg.Name),
	}
	if cfg.RequestsPerSecond > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return p
}

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	TopP        float64       `json:"top_p,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (p *openai) Invoke(ctx context.Context, req Request) (*Response, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limit wait: %w", ErrUnavailable, err)
		}
	}

	body, err := json.Marshal(chatRequest{
		Model:       p.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: messageContent(req)}},
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	start := time.Now()
	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, p.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.cfg.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.cfg.Token)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		p.reg.RecordHealth(p.cfg.Name, false)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.reg.RecordHealth(p.cfg.Name, false)
		return nil, fmt.Errorf("%w: status %d", classifyStatus(resp.StatusCode), resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		p.reg.RecordHealth(p.cfg.Name, false)
		return nil, fmt.Errorf("%w: decode body: %w", ErrInvalidResponse, err)
	}

	if len(parsed.Choices) == 0 {
		p.reg.RecordHealth(p.cfg.Name, false)
		return nil, fmt.Errorf("%w: empty choices", ErrInvalidResponse)
	}

	p.reg.RecordHealth(p.cfg.Name, true)

	return &Response{
		Content:  parsed.Choices[0].Message.Content,
		Provider: p.cfg.Name,
		Usage: Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			Duration:         time.Since(start),
		},
	}, nil
}

func (p *openai) HealthCheck(ctx context.Context) bool {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/v1/models", nil)
	if err != nil {
		p.reg.RecordHealth(p.cfg.Name, false)
		return false
	}
	if p.cfg.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.cfg.Token)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		p.reg.RecordHealth(p.cfg.Name, false)
		return false
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	ok := resp.StatusCode == http.StatusOK
	p.reg.RecordHealth(p.cfg.Name, ok)
	return ok
}

func (p *openai) Describe() Descriptor {
	d, _ := p.reg.Describe(p.cfg.Name)
	return d
}

// messageContent builds either a plain string or multimodal content parts
// depending on whether images accompany the prompt.
func messageContent(req Request) any {
	if len(req.Images) == 0 {
		return req.Prompt
	}

	parts := []chatContentPart{{Type: "text", Text: req.Prompt}}
	for _, img := range req.Images {
		parts = append(parts, chatContentPart{
			Type:     "image_url",
			ImageURL: &chatImageURL{URL: "data:" + mediaType(img) + ";base64," + img},
		})
	}
	return parts
}

// mediaType sniffs a base64 payload's magic bytes so the data URL declares
// what the payload actually is; paged PDF documents arrive here as
// single-page PDF bytes, not images.
func mediaType(b64 string) string {
	head := b64
	if len(head) > 16 {
		head = head[:16]
	}
	raw, err := base64.StdEncoding.DecodeString(head)
	if err != nil {
		return "image/png"
	}

	switch {
	case bytes.HasPrefix(raw, []byte("%PDF")):
		return "application/pdf"
	case bytes.HasPrefix(raw, []byte("\xff\xd8\xff")):
		return "image/jpeg"
	case bytes.HasPrefix(raw, []byte("BM")):
		return "image/bmp"
	default:
		return "image/png"
	}
}
