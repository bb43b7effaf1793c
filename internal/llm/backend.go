// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tinyguardian/internal/config"
)

var (
	// ErrUnsupportedProvider is returned by NewBackend for unknown providers.
	ErrUnsupportedProvider = errors.New("unsupported LLM provider")

	// ErrEmptyResponse is returned when a chat backend answers without choices.
	ErrEmptyResponse = errors.New("empty response from LLM backend")
)

// Defaults applied by NewBackend when the config leaves a field zero.
const (
	DefaultModel          = "phi3:mini"
	DefaultBaseURL        = "http://localhost:11434"
	DefaultTemperature    = 0.3
	DefaultMaxTokens      = 500
	DefaultRequestTimeout = 30 * time.Second
	DefaultProbeTimeout   = 5 * time.Second
)

// Backend is a text-generation endpoint.
type Backend interface {
	// Name identifies the provider for logs and metrics.
	Name() string

	// Generate returns the model's completion for prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}

// Options are the settings shared by all HTTP backends.
type Options struct {
	Provider       string
	Model          string
	BaseURL        string
	APIKey         string
	Temperature    float64
	MaxTokens      int
	RequestTimeout time.Duration
	ProbeTimeout   time.Duration
}

// OptionsFromConfig maps the llm config section onto Options.
func OptionsFromConfig(cfg *config.LLMConfig) Options {
	return Options{
		Provider:       cfg.Provider,
		Model:          cfg.Model,
		BaseURL:        cfg.BaseURL,
		APIKey:         cfg.APIKey,
		Temperature:    cfg.Temperature,
		MaxTokens:      cfg.MaxTokens,
		RequestTimeout: cfg.RequestTimeout,
		ProbeTimeout:   cfg.ProbeTimeout,
	}
}

func (o *Options) applyDefaults() {
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = DefaultProbeTimeout
	}
}

// NewBackend selects the backend for opts.Provider.
//
//	ollama                        -> GenerateBackend (/api/generate)
//	lm_studio, openai, llama_cpp  -> ChatBackend (/v1/chat/completions)
func NewBackend(opts Options) (Backend, error) {
	opts.applyDefaults()

	switch opts.Provider {
	case "ollama", "":
		opts.Provider = "ollama"
		return NewGenerateBackend(opts), nil
	case "lm_studio", "openai", "llama_cpp":
		return NewChatBackend(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, opts.Provider)
	}
}

// httpBackend holds the transport shared by the concrete backends.
type httpBackend struct {
	opts   Options
	client *http.Client
}

func newHTTPBackend(opts Options) httpBackend {
	opts.applyDefaults()
	return httpBackend{
		opts: opts,
		// Per-call deadlines come from the context; this is a backstop.
		client: &http.Client{Timeout: opts.RequestTimeout},
	}
}

// postJSON sends body to path and decodes a 2xx JSON answer into out.
func (b *httpBackend) postJSON(ctx context.Context, path string, body, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, b.opts.RequestTimeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.opts.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	b.authorize(req)

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, readBodyForError(resp.Body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// probe issues a GET against path with the probe timeout.
func (b *httpBackend) probe(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, b.opts.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.opts.BaseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}
	b.authorize(req)

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", b.opts.BaseURL, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s probe failed with status: %d", b.opts.Provider, resp.StatusCode)
	}
	return nil
}

func (b *httpBackend) authorize(req *http.Request) {
	if b.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.opts.APIKey)
	}
}

// readBodyForError reads at most 512 bytes of an error body.
func readBodyForError(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(body))
}
