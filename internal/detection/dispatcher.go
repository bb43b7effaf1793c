// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package detection

import (
	"context"
	"fmt"
	"sync"

	"github.com/tomtom215/tinyguardian/internal/logging"
	"github.com/tomtom215/tinyguardian/internal/metrics"
)

type namedCallback struct {
	name string
	fn   AlertCallback
}

// Dispatcher runs alert callbacks synchronously in registration order.
// A failing or panicking callback never stops the ones after it.
type Dispatcher struct {
	mu        sync.RWMutex
	callbacks []namedCallback
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Register appends a callback. Registration may happen at any time.
func (d *Dispatcher) Register(name string, fn AlertCallback) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.callbacks = append(d.callbacks, namedCallback{name: name, fn: fn})
}

// RegisterNotifier adapts a Notifier into a callback. Disabled notifiers are
// skipped at dispatch time so they can be toggled at runtime.
func (d *Dispatcher) RegisterNotifier(n Notifier) {
	d.Register(n.Name(), func(ctx context.Context, e *SecurityEvent) error {
		if !n.Enabled() {
			return nil
		}
		if err := n.Send(ctx, e); err != nil {
			metrics.RecordNotification(n.Name(), "failure")
			return err
		}
		metrics.RecordNotification(n.Name(), "success")
		return nil
	})
}

// Len returns the number of registered callbacks.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.callbacks)
}

// Dispatch delivers e to every callback and returns how many failed.
func (d *Dispatcher) Dispatch(ctx context.Context, e *SecurityEvent) int {
	d.mu.RLock()
	callbacks := make([]namedCallback, len(d.callbacks))
	copy(callbacks, d.callbacks)
	d.mu.RUnlock()

	failed := 0
	for _, cb := range callbacks {
		if err := invoke(ctx, cb, e); err != nil {
			failed++
			metrics.RecordCallbackError(cb.name)
			logging.Ctx(ctx).Error().
				Err(err).
				Str("callback", cb.name).
				Str("event_id", e.EventID).
				Msg("Alert callback failed")
		}
	}
	return failed
}

func invoke(ctx context.Context, cb namedCallback, e *SecurityEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("callback panicked: %v", r)
		}
	}()
	return cb.fn(ctx, e)
}
