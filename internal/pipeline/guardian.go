// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/tinyguardian/internal/config"
	"github.com/tomtom215/tinyguardian/internal/detection"
	"github.com/tomtom215/tinyguardian/internal/logging"
	"github.com/tomtom215/tinyguardian/internal/metrics"
)

const (
	// DefaultQueueSize is the intake queue capacity.
	DefaultQueueSize = 1000

	// DefaultPollInterval bounds how long the consumer waits on an empty queue
	// before re-checking the running flag.
	DefaultPollInterval = time.Second
)

// RawLogRecord is one inbound log line waiting in the intake queue.
type RawLogRecord struct {
	DeviceID   string
	Message    string
	Topic      string
	ReceivedAt time.Time
}

// Analyzer produces an assessment for one log line. *llm.Analyzer satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, deviceID, message string) detection.Assessment
	Ping(ctx context.Context) error
}

// Config holds Guardian settings.
type Config struct {
	// QueueSize is the intake queue capacity (default: 1000).
	QueueSize int

	// PollInterval is the consumer's wait on an empty queue (default: 1s).
	PollInterval time.Duration

	// Window is the burst-detection window (default: 5m).
	Window time.Duration

	// SeverityThreshold marks events as alerts (inclusive). Zero alerts on
	// every event; a negative value takes the default of 0.7.
	SeverityThreshold float64

	// Now overrides the clock; nil uses time.Now.
	Now func() time.Time
}

// DefaultConfig returns a Config with every field at its default.
func DefaultConfig() Config {
	return Config{
		QueueSize:         DefaultQueueSize,
		PollInterval:      DefaultPollInterval,
		Window:            detection.DefaultWindow,
		SeverityThreshold: detection.DefaultSeverityThreshold,
	}
}

// ConfigFromDetection maps the detection config section onto Config.
func ConfigFromDetection(cfg *config.DetectionConfig) Config {
	return Config{
		QueueSize:         cfg.QueueSize,
		PollInterval:      cfg.PollInterval,
		Window:            cfg.Window,
		SeverityThreshold: cfg.SeverityThreshold,
	}
}

// Guardian owns the intake queue and the single consumer goroutine that runs
// every record through analysis, classification, the event log and the alert
// dispatcher, in that order.
//
// The Classifier is touched only by the consumer goroutine. The EventLog is
// shared with API readers through its own lock.
type Guardian struct {
	analyzer   Analyzer
	classifier *detection.Classifier
	events     *detection.EventLog
	dispatcher *detection.Dispatcher

	queue        chan RawLogRecord
	pollInterval time.Duration
	now          func() time.Time

	mu      sync.Mutex // serializes Start/Stop
	running atomic.Bool
	stopped atomic.Bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
}

// New creates a Guardian. It does not start consuming until Start.
func New(analyzer Analyzer, cfg Config) *Guardian {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.SeverityThreshold < 0 {
		cfg.SeverityThreshold = detection.DefaultSeverityThreshold
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	events := detection.NewEventLog(cfg.SeverityThreshold)
	events.SetClock(now)

	return &Guardian{
		analyzer: analyzer,
		classifier: detection.NewClassifier(detection.ClassifierConfig{
			Window:            cfg.Window,
			SeverityThreshold: cfg.SeverityThreshold,
			Now:               now,
		}),
		events:       events,
		dispatcher:   detection.NewDispatcher(),
		queue:        make(chan RawLogRecord, cfg.QueueSize),
		pollInterval: cfg.PollInterval,
		now:          now,
	}
}

// Enqueue hands a record to the consumer without blocking. A full queue drops
// the record with a warning; after Stop it returns ErrStopped.
func (g *Guardian) Enqueue(rec RawLogRecord) error {
	if g.stopped.Load() {
		return ErrStopped
	}
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = g.now()
	}

	metrics.RecordLogReceived()
	select {
	case g.queue <- rec:
		metrics.UpdateQueueDepth(len(g.queue))
	default:
		metrics.RecordLogDropped("queue_full")
		logging.Warn().
			Str("device_id", rec.DeviceID).
			Int("capacity", cap(g.queue)).
			Msg("Intake queue full, dropping log")
	}
	return nil
}

// Start probes the backend and launches the consumer goroutine.
// A failed probe is returned wrapped in ErrBackendUnavailable.
func (g *Guardian) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stopped.Load() {
		return ErrStopped
	}
	if g.running.Load() {
		return ErrAlreadyRunning
	}

	if err := g.analyzer.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	// The consumer outlives the caller's context; only Stop ends it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	g.cancel = cancel
	g.doneCh = make(chan struct{})
	g.running.Store(true)

	go g.consumeLoop(runCtx, g.doneCh)

	logging.Info().
		Int("queue_size", cap(g.queue)).
		Float64("severity_threshold", g.classifier.Threshold()).
		Dur("window", g.classifier.Window()).
		Msg("Guardian started")
	return nil
}

// Stop ends the consumer. Records still queued are discarded.
func (g *Guardian) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.stopped.Store(true)
	if !g.running.Swap(false) {
		return
	}
	g.cancel()
	logging.Info().Int("discarded", len(g.queue)).Msg("Guardian stopping")
}

// Wait blocks until the consumer goroutine has exited.
func (g *Guardian) Wait() {
	g.mu.Lock()
	done := g.doneCh
	g.mu.Unlock()

	if done != nil {
		<-done
	}
}

// RunWithContext starts the Guardian, blocks until ctx is cancelled, then
// stops it and waits for the consumer. It is the supervisor entry point.
func (g *Guardian) RunWithContext(ctx context.Context) error {
	if err := g.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	g.Stop()
	g.Wait()
	logging.Info().Msg("Guardian stopped")
	return ctx.Err()
}

// Running reports whether the consumer is active.
func (g *Guardian) Running() bool {
	return g.running.Load()
}

// RecentEvents returns up to limit events, newest first.
func (g *Guardian) RecentEvents(limit int) []detection.SecurityEvent {
	return g.events.RecentEvents(limit)
}

// Alerts returns up to limit alert events, newest first.
func (g *Guardian) Alerts(limit int) []detection.SecurityEvent {
	return g.events.Alerts(limit)
}

// Stats summarizes the event log.
func (g *Guardian) Stats() detection.Stats {
	return g.events.Stats()
}

// RegisterAlertCallback adds an observer called for every alert, in
// registration order.
func (g *Guardian) RegisterAlertCallback(name string, fn detection.AlertCallback) {
	g.dispatcher.Register(name, fn)
}

// RegisterNotifier adds a Notifier as an alert observer.
func (g *Guardian) RegisterNotifier(n detection.Notifier) {
	g.dispatcher.RegisterNotifier(n)
}

// QueueLen returns the number of records waiting in the queue.
func (g *Guardian) QueueLen() int {
	return len(g.queue)
}

// consumeLoop processes one record at a time until Stop.
func (g *Guardian) consumeLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(g.pollInterval)
	defer timer.Stop()

	for g.running.Load() {
		timer.Reset(g.pollInterval)

		select {
		case rec := <-g.queue:
			metrics.UpdateQueueDepth(len(g.queue))
			g.process(ctx, rec)
		case <-timer.C:
			// Poll timeout: loop back and re-check the running flag.
		case <-ctx.Done():
			return
		}
	}
}

// process runs one record through the pipeline. Panics are logged and
// swallowed so a single bad record cannot end the loop.
func (g *Guardian) process(ctx context.Context, rec RawLogRecord) {
	ctx = logging.ContextWithDeviceID(logging.ContextWithNewCorrelationID(ctx), rec.DeviceID)

	defer func() {
		if r := recover(); r != nil {
			logging.Ctx(ctx).Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Recovered from panic while processing log")
		}
	}()

	assessment := g.analyzer.Analyze(ctx, rec.DeviceID, rec.Message)
	if ctx.Err() != nil {
		// Stopped mid-analysis.
		return
	}

	event := g.classifier.Classify(rec.DeviceID, rec.Message, assessment, rec.ReceivedAt)
	g.events.Append(event)

	alert := g.classifier.IsAlert(event)
	metrics.RecordEvent(string(event.ThreatType), alert)

	logging.Ctx(ctx).Debug().
		Str("event_id", event.EventID).
		Str("threat_type", string(event.ThreatType)).
		Float64("severity", event.Severity).
		Dur("queued", g.now().Sub(rec.ReceivedAt)).
		Msg("Log classified")

	if alert {
		g.dispatcher.Dispatch(ctx, event)
	}
}
