package core

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestRouter() (*Registry, *Router) {
	logger := zerolog.New(nil)
	registry := NewRegistry(DefaultLimiterMax, DefaultLimiterWindow)
	fanout := NewFanout(registry, &logger)
	return registry, NewRouter(registry, fanout, nil, &logger)
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func noEvent(t *testing.T, ch <-chan *Event) {
	t.Helper()

	select {
	case ev := <-ch:
		t.Fatalf("expected no event, got %+v", ev)
	default:
	}
}
