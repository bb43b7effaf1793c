// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package detection

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/tinyguardian/internal/metrics"
)

// mockNotifier records Send calls.
type mockNotifier struct {
	name    string
	enabled bool
	err     error

	mu     sync.Mutex
	events []*SecurityEvent
}

func (m *mockNotifier) Name() string  { return m.name }
func (m *mockNotifier) Enabled() bool { return m.enabled }

func (m *mockNotifier) Send(_ context.Context, e *SecurityEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return m.err
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func TestDispatcher_RegistrationOrder(t *testing.T) {
	d := NewDispatcher()
	var order []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		d.Register(name, func(context.Context, *SecurityEvent) error {
			order = append(order, name)
			return nil
		})
	}

	if failed := d.Dispatch(context.Background(), testAlertEvent()); failed != 0 {
		t.Errorf("failed = %d, want 0", failed)
	}
	if len(order) != 3 || order[0] != "first" || order[1] != "second" || order[2] != "third" {
		t.Errorf("order = %v", order)
	}
}

func TestDispatcher_IsolatesErrorsAndPanics(t *testing.T) {
	d := NewDispatcher()
	var reached bool

	d.Register("erroring", func(context.Context, *SecurityEvent) error {
		return errors.New("smtp down")
	})
	d.Register("panicking", func(context.Context, *SecurityEvent) error {
		panic("nil map write")
	})
	d.Register("healthy", func(context.Context, *SecurityEvent) error {
		reached = true
		return nil
	})

	before := testutil.ToFloat64(metrics.CallbackErrors.WithLabelValues("panicking"))

	if failed := d.Dispatch(context.Background(), testAlertEvent()); failed != 2 {
		t.Errorf("failed = %d, want 2", failed)
	}
	if !reached {
		t.Error("callback after failures was not invoked")
	}
	if delta := testutil.ToFloat64(metrics.CallbackErrors.WithLabelValues("panicking")) - before; delta != 1 {
		t.Errorf("panicking callback error count delta = %v, want 1", delta)
	}
}

func TestDispatcher_RegisterNotifier(t *testing.T) {
	d := NewDispatcher()
	on := &mockNotifier{name: "on", enabled: true}
	off := &mockNotifier{name: "off", enabled: false}
	broken := &mockNotifier{name: "broken", enabled: true, err: errors.New("timeout")}

	d.RegisterNotifier(on)
	d.RegisterNotifier(off)
	d.RegisterNotifier(broken)

	if d.Len() != 3 {
		t.Errorf("Len = %d, want 3", d.Len())
	}
	if failed := d.Dispatch(context.Background(), testAlertEvent()); failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}
	if on.count() != 1 {
		t.Errorf("enabled notifier sends = %d, want 1", on.count())
	}
	if off.count() != 0 {
		t.Errorf("disabled notifier sends = %d, want 0", off.count())
	}
	if broken.count() != 1 {
		t.Errorf("broken notifier sends = %d, want 1", broken.count())
	}
}

func TestDispatcher_ConcurrentRegister(t *testing.T) {
	d := NewDispatcher()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			d.Register("cb", func(context.Context, *SecurityEvent) error { return nil })
		}()
		go func() {
			defer wg.Done()
			d.Dispatch(context.Background(), testAlertEvent())
		}()
	}
	wg.Wait()
	if d.Len() != 20 {
		t.Errorf("Len = %d, want 20", d.Len())
	}
}
