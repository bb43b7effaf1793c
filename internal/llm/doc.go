// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

/*
Package llm talks to local language-model servers and turns their free-text
answers into detection.Assessment values.

# Backends

Two wire formats cover the supported providers:

	ollama                        POST /api/generate          probe GET /api/tags
	lm_studio, openai, llama_cpp  POST /v1/chat/completions   probe GET /v1/models

NewBackend picks one from the configured provider. NewBreakerBackend wraps any
backend with a sony/gobreaker circuit breaker so a dead server fails fast.

# Normalization

Models rarely return clean JSON. Normalize looks for a fenced ```json block,
then any fenced block, then the outermost {...} span. When none of those
parse, the text is rated by vocabulary ("critical", "moderate", "minor",
"normal", ...) and the first 500 characters become the explanation.

# Usage

	backend, err := llm.NewBackend(llm.OptionsFromConfig(&cfg.LLM))
	if err != nil {
		return err
	}
	analyzer := llm.NewAnalyzer(llm.NewBreakerBackend(backend, llm.DefaultBreakerSettings()))
	assessment := analyzer.Analyze(ctx, "door_lock_02", "Failed login attempt")
*/
package llm
