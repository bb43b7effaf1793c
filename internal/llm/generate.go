// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package llm

import (
	"context"
	"fmt"
)

// GenerateBackend talks to Ollama's /api/generate endpoint.
type GenerateBackend struct {
	httpBackend
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// NewGenerateBackend creates an Ollama backend.
func NewGenerateBackend(opts Options) *GenerateBackend {
	if opts.Provider == "" {
		opts.Provider = "ollama"
	}
	return &GenerateBackend{httpBackend: newHTTPBackend(opts)}
}

// Name returns the provider name.
func (b *GenerateBackend) Name() string { return b.opts.Provider }

// Generate runs a non-streaming completion.
func (b *GenerateBackend) Generate(ctx context.Context, prompt string) (string, error) {
	req := generateRequest{
		Model:  b.opts.Model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: b.opts.Temperature,
			NumPredict:  b.opts.MaxTokens,
		},
	}

	var resp generateResponse
	if err := b.postJSON(ctx, "/api/generate", req, &resp); err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	// An empty response is returned as is; the normalizer's fallback rates it.
	return resp.Response, nil
}

// Ping lists local models via /api/tags.
func (b *GenerateBackend) Ping(ctx context.Context) error {
	return b.probe(ctx, "/api/tags")
}
