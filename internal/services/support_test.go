package services

import (
	"context"
	"testing"
	"time"

	"github.com/hanko-field/storefront/internal/platform/kvstore"
	"github.com/hanko-field/storefront/internal/repositories/kv"
)

var testNow = time.Date(2024, time.March, 1, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func newTestRegistry(t *testing.T) *kv.Registry {
	t.Helper()
	registry, err := kv.NewRegistry(kvstore.NewMemoryStore(), nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return registry
}

type loggedEvent struct {
	name   string
	fields map[string]any
}

type eventRecorder struct {
	events []loggedEvent
}

func (r *eventRecorder) log(_ context.Context, name string, fields map[string]any) {
	r.events = append(r.events, loggedEvent{name: name, fields: fields})
}

func (r *eventRecorder) has(name string) bool {
	for _, e := range r.events {
		if e.name == name {
			return true
		}
	}
	return false
}
