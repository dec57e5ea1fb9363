package airplay

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go2tv.app/mcp-airplay/internal/domain"
)

var (
	ErrNoCredential     = errors.New("no credential supplied")
	ErrPromptCancelled  = errors.New("credential prompt cancelled")
	ErrNoPendingPrompt  = errors.New("no credential prompt is pending")
	ErrPromptInProgress = errors.New("another credential prompt is pending")
)

// Prompter asks a human for the PIN or password of device. Implementations
// block until input arrives or ctx ends.
type Prompter interface {
	PromptCredential(ctx context.Context, device domain.Device) (string, error)
}

type PrompterFunc func(ctx context.Context, device domain.Device) (string, error)

func (f PrompterFunc) PromptCredential(ctx context.Context, device domain.Device) (string, error) {
	return f(ctx, device)
}

// StaticPrompter answers every prompt with a preconfigured password.
type StaticPrompter string

func (p StaticPrompter) PromptCredential(context.Context, domain.Device) (string, error) {
	if strings.TrimSpace(string(p)) == "" {
		return "", ErrNoCredential
	}
	return string(p), nil
}

// PromptBroker parks a credential request until another goroutine answers it
// with Submit or abandons it with Cancel. Only one request is outstanding at
// a time.
type PromptBroker struct {
	mu      sync.Mutex
	pending *pendingPrompt
	notify  func(device domain.Device, pending bool)
}

type pendingPrompt struct {
	device domain.Device
	answer chan string
	done   chan struct{}
}

// NewPromptBroker returns a broker. notify, when set, is called whenever a
// prompt opens or closes.
func NewPromptBroker(notify func(device domain.Device, pending bool)) *PromptBroker {
	return &PromptBroker{notify: notify}
}

func (b *PromptBroker) PromptCredential(ctx context.Context, device domain.Device) (string, error) {
	p := &pendingPrompt{
		device: device,
		answer: make(chan string, 1),
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	if b.pending != nil {
		b.mu.Unlock()
		return "", ErrPromptInProgress
	}
	b.pending = p
	b.mu.Unlock()
	b.signal(device, true)

	defer func() {
		b.mu.Lock()
		if b.pending == p {
			b.pending = nil
		}
		b.mu.Unlock()
		b.signal(device, false)
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-p.done:
		return "", ErrPromptCancelled
	case answer := <-p.answer:
		if strings.TrimSpace(answer) == "" {
			return "", ErrNoCredential
		}
		return answer, nil
	}
}

// Submit resolves the pending prompt with credential.
func (b *PromptBroker) Submit(credential string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == nil {
		return ErrNoPendingPrompt
	}
	select {
	case b.pending.answer <- credential:
	default:
	}
	return nil
}

// Cancel abandons the pending prompt, if any.
func (b *PromptBroker) Cancel() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == nil {
		return false
	}
	select {
	case <-b.pending.done:
	default:
		close(b.pending.done)
	}
	return true
}

// Pending returns the device a prompt is currently waiting on.
func (b *PromptBroker) Pending() (domain.Device, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == nil {
		return domain.Device{}, false
	}
	return b.pending.device, true
}

func (b *PromptBroker) signal(device domain.Device, pending bool) {
	if b.notify != nil {
		b.notify(device, pending)
	}
}
