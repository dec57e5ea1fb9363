package airplay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go2tv.app/mcp-airplay/internal/domain"
)

func waitPending(t *testing.T, broker *PromptBroker) domain.Device {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if device, ok := broker.Pending(); ok {
			return device
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("prompt never became pending")
	return domain.Device{}
}

func TestPromptBrokerSubmit(t *testing.T) {
	var mu sync.Mutex
	var notes []bool
	broker := NewPromptBroker(func(_ domain.Device, pending bool) {
		mu.Lock()
		notes = append(notes, pending)
		mu.Unlock()
	})

	type result struct {
		value string
		err   error
	}
	done := make(chan result, 1)
	go func() {
		value, err := broker.PromptCredential(context.Background(), domain.Device{ID: "tv"})
		done <- result{value, err}
	}()

	if device := waitPending(t, broker); device.ID != "tv" {
		t.Fatalf("expected pending prompt for tv, got %q", device.ID)
	}
	if err := broker.Submit("4321"); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	got := <-done
	if got.err != nil || got.value != "4321" {
		t.Fatalf("expected 4321, got %q, %v", got.value, got.err)
	}
	if _, ok := broker.Pending(); ok {
		t.Fatalf("prompt should be resolved")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(notes) != 2 || !notes[0] || notes[1] {
		t.Fatalf("expected open then close notifications, got %v", notes)
	}
}

func TestPromptBrokerEmptyAnswer(t *testing.T) {
	broker := NewPromptBroker(nil)
	errc := make(chan error, 1)
	go func() {
		_, err := broker.PromptCredential(context.Background(), domain.Device{ID: "tv"})
		errc <- err
	}()
	waitPending(t, broker)
	_ = broker.Submit("")

	if err := <-errc; !errors.Is(err, ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}
}

func TestPromptBrokerCancel(t *testing.T) {
	broker := NewPromptBroker(nil)
	if broker.Cancel() {
		t.Fatalf("Cancel without a pending prompt should report false")
	}

	errc := make(chan error, 1)
	go func() {
		_, err := broker.PromptCredential(context.Background(), domain.Device{ID: "tv"})
		errc <- err
	}()
	waitPending(t, broker)
	if !broker.Cancel() {
		t.Fatalf("expected Cancel to report a pending prompt")
	}
	if err := <-errc; !errors.Is(err, ErrPromptCancelled) {
		t.Fatalf("expected ErrPromptCancelled, got %v", err)
	}
}

func TestPromptBrokerContextAndConflicts(t *testing.T) {
	broker := NewPromptBroker(nil)
	if err := broker.Submit("x"); !errors.Is(err, ErrNoPendingPrompt) {
		t.Fatalf("expected ErrNoPendingPrompt, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := broker.PromptCredential(ctx, domain.Device{ID: "tv"})
		errc <- err
	}()
	waitPending(t, broker)

	if _, err := broker.PromptCredential(context.Background(), domain.Device{ID: "other"}); !errors.Is(err, ErrPromptInProgress) {
		t.Fatalf("expected ErrPromptInProgress, got %v", err)
	}

	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestStaticPrompter(t *testing.T) {
	if got, err := StaticPrompter("0000").PromptCredential(context.Background(), domain.Device{}); err != nil || got != "0000" {
		t.Fatalf("expected 0000, got %q, %v", got, err)
	}
	if _, err := StaticPrompter(" ").PromptCredential(context.Background(), domain.Device{}); !errors.Is(err, ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}
}
