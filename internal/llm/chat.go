// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package llm

import (
	"context"
	"fmt"
)

// ChatBackend talks to OpenAI-compatible /v1/chat/completions endpoints
// (OpenAI, LM Studio, llama.cpp server).
type ChatBackend struct {
	httpBackend
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// NewChatBackend creates a chat-completions backend.
func NewChatBackend(opts Options) *ChatBackend {
	if opts.Provider == "" {
		opts.Provider = "openai"
	}
	return &ChatBackend{httpBackend: newHTTPBackend(opts)}
}

// Name returns the provider name.
func (b *ChatBackend) Name() string { return b.opts.Provider }

// Generate sends prompt as a single user message.
func (b *ChatBackend) Generate(ctx context.Context, prompt string) (string, error) {
	req := chatRequest{
		Model:       b.opts.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: b.opts.Temperature,
		MaxTokens:   b.opts.MaxTokens,
	}

	var resp chatResponse
	if err := b.postJSON(ctx, "/v1/chat/completions", req, &resp); err != nil {
		return "", fmt.Errorf("%s chat completion: %w", b.opts.Provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// Ping lists models via /v1/models.
func (b *ChatBackend) Ping(ctx context.Context) error {
	return b.probe(ctx, "/v1/models")
}
