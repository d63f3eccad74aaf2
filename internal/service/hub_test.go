package service

import (
	"context"
	"testing"

	"github.com/totegamma/taxonomy-sync/internal/domain"
)

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	a, cancelA := hub.Subscribe()
	b, cancelB := hub.Subscribe()
	defer cancelB()

	if err := hub.Publish(context.Background(), domain.Invalidation{Origin: "x", Keys: []string{"k"}}); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	for _, ch := range []<-chan domain.Invalidation{a, b} {
		got := <-ch
		if got.Origin != "x" || len(got.Keys) != 1 {
			t.Fatalf("unexpected invalidation %+v", got)
		}
	}

	cancelA()
	cancelA()
	if _, ok := <-a; ok {
		t.Fatalf("expected channel to be closed")
	}
	if hub.Len() != 1 {
		t.Fatalf("expected one subscriber, got %d", hub.Len())
	}
}

func TestHubSlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer+10; i++ {
		hub.Broadcast(domain.Invalidation{Origin: "x"})
	}
	if len(ch) != subscriberBuffer {
		t.Fatalf("expected a full buffer, got %d", len(ch))
	}
}
