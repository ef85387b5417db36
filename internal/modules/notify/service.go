// README: Fan-out of lifecycle events to registered sinks with per-sink failure isolation.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"rideshare/internal/logger"
)

var (
	ErrDuplicateSink = errors.New("sink already registered")
	ErrSinkPanic     = errors.New("sink panicked")
	ErrUnknownKind   = errors.New("unknown event kind")
)

type namedSink struct {
	name string
	sink Sink
}

// Fanout delivers each event to every registered sink, synchronously and in
// registration order. A failing sink is logged and skipped; delivery continues
// with the next one.
type Fanout struct {
	mu    sync.RWMutex
	sinks []namedSink
	log   logger.Logger
}

func NewFanout(log logger.Logger) *Fanout {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Fanout{log: log}
}

func (f *Fanout) Register(name string, s Sink) error {
	if name == "" || s == nil {
		return fmt.Errorf("register sink: name and sink are required")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ns := range f.sinks {
		if ns.name == name {
			return fmt.Errorf("%w: %s", ErrDuplicateSink, name)
		}
	}
	f.sinks = append(f.sinks, namedSink{name: name, sink: s})
	return nil
}

func (f *Fanout) Unregister(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, ns := range f.sinks {
		if ns.name == name {
			f.sinks = append(f.sinks[:i], f.sinks[i+1:]...)
			return true
		}
	}
	return false
}

func (f *Fanout) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, len(f.sinks))
	for i, ns := range f.sinks {
		names[i] = ns.name
	}
	return names
}

// Emit returns the joined sink errors; callers may ignore it since every
// failure has already been logged.
func (f *Fanout) Emit(ctx context.Context, e Event) error {
	f.mu.RLock()
	sinks := append([]namedSink(nil), f.sinks...)
	f.mu.RUnlock()

	var errs []error
	for _, ns := range sinks {
		if err := deliver(ctx, ns.sink, e); err != nil {
			f.log.Errorf("sink %s failed on %s for ride %s: %v", ns.name, e.Kind, e.Ride.ID, err)
			errs = append(errs, fmt.Errorf("sink %s: %w", ns.name, err))
		}
	}
	return errors.Join(errs...)
}

func deliver(ctx context.Context, s Sink, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrSinkPanic, r)
		}
	}()
	switch e.Kind {
	case KindStatusChanged:
		return s.OnStatusChanged(ctx, e)
	case KindDriverAssigned:
		return s.OnDriverAssigned(ctx, e)
	case KindPaymentCompleted:
		return s.OnPaymentCompleted(ctx, e)
	}
	return fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
}
