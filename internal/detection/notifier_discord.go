// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package detection

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// DiscordNotifier sends alerts to Discord via webhooks.
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
	enabled    bool
	mu         sync.RWMutex

	// Rate limiting
	lastSent  time.Time
	rateLimit time.Duration
}

// DiscordConfig configures the Discord notifier.
type DiscordConfig struct {
	WebhookURL string
	Enabled    bool
	RateLimit  time.Duration // Minimum gap between messages
}

// NewDiscordNotifier creates a new Discord notifier.
func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	rateLimit := config.RateLimit
	if rateLimit <= 0 {
		rateLimit = time.Second
	}

	return &DiscordNotifier{
		webhookURL: config.WebhookURL,
		enabled:    config.Enabled,
		rateLimit:  rateLimit,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Name returns the notifier name.
func (n *DiscordNotifier) Name() string {
	return "discord"
}

// Enabled returns whether this notifier is enabled.
func (n *DiscordNotifier) Enabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled && n.webhookURL != ""
}

// SetEnabled enables or disables the notifier.
func (n *DiscordNotifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// SetWebhookURL updates the webhook URL.
func (n *DiscordNotifier) SetWebhookURL(url string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.webhookURL = url
}

// Send delivers an alert to Discord.
func (n *DiscordNotifier) Send(ctx context.Context, event *SecurityEvent) error {
	n.mu.RLock()
	if !n.enabled || n.webhookURL == "" {
		n.mu.RUnlock()
		return nil
	}
	webhookURL := n.webhookURL
	rateLimit := n.rateLimit
	lastSent := n.lastSent
	n.mu.RUnlock()

	if wait := rateLimit - time.Since(lastSent); wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	payload := discordWebhookPayload{
		Embeds: []discordEmbed{buildEmbed(event)},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal Discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create Discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Discord webhook: %w", err)
	}
	defer resp.Body.Close()

	n.mu.Lock()
	n.lastSent = time.Now()
	n.mu.Unlock()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("discord webhook returned status %d", resp.StatusCode)
	}

	return nil
}

func buildEmbed(e *SecurityEvent) discordEmbed {
	fields := []discordEmbedField{
		{Name: "Device", Value: e.DeviceID, Inline: true},
		{Name: "Threat", Value: string(e.ThreatType), Inline: true},
		{Name: "Severity", Value: strconv.FormatFloat(e.Severity, 'f', 2, 64), Inline: true},
	}
	if e.SourceIP != "" {
		fields = append(fields, discordEmbedField{Name: "Source IP", Value: e.SourceIP, Inline: true})
	}
	if e.User != "" {
		fields = append(fields, discordEmbedField{Name: "User", Value: e.User, Inline: true})
	}
	if e.Recommendation != "" {
		fields = append(fields, discordEmbedField{Name: "Recommendation", Value: truncate(e.Recommendation, 1024)})
	}

	return discordEmbed{
		Title:       fmt.Sprintf("Threat detected on %s", e.DeviceID),
		Description: truncate(e.Explanation, 2048),
		Color:       levelColor(e.ThreatLevel),
		Timestamp:   e.Timestamp.UTC().Format(time.RFC3339),
		Fields:      fields,
		Footer: discordEmbedFooter{
			Text: "TinyGuardian",
		},
	}
}

func levelColor(level ThreatLevel) int {
	switch level {
	case LevelCritical:
		return 0x8B0000 // Dark red
	case LevelHigh:
		return 0xFF0000 // Red
	case LevelMedium:
		return 0xFFA500 // Orange
	case LevelLow:
		return 0x3498DB // Blue
	default:
		return 0x95A5A6 // Gray
	}
}

// truncate shortens s to at most n runes; Discord rejects oversized embed fields.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// Discord webhook structures
type discordWebhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds,omitempty"`
}

type discordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Footer      discordEmbedFooter  `json:"footer,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbedFooter struct {
	Text string `json:"text,omitempty"`
}
