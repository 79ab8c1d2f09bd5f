package events

import (
	"context"
	"reflect"
	"testing"
)

func TestNewWithoutURLIsNoop(t *testing.T) {
	p, err := New("", "x")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := p.(Noop); !ok {
		t.Fatalf("expected Noop, got %T", p)
	}
	if err := p.PublishJSON(context.Background(), HiringCreated, map[string]any{"id": 1}); err != nil {
		t.Fatalf("Noop publish: %v", err)
	}
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	_ = r.PublishJSON(context.Background(), HiringCreated, 1)
	_ = r.PublishJSON(context.Background(), ReviewCreated, 2)
	if got := r.Keys(); !reflect.DeepEqual(got, []string{HiringCreated, ReviewCreated}) {
		t.Fatalf("Keys() = %v", got)
	}
}
