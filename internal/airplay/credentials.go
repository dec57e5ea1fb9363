package airplay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go2tv.app/mcp-airplay/internal/domain"
	"golang.org/x/sync/singleflight"
)

const credentialFlightKey = "credential"

// credentialStore caches the PIN for one session. Concurrent requests that
// miss the cache share a single prompt.
type credentialStore struct {
	device   domain.Device
	prompter Prompter
	timeout  time.Duration
	flight   singleflight.Group

	mu       sync.Mutex
	password string
}

func newCredentialStore(device domain.Device, prompter Prompter, timeout time.Duration, preset string) *credentialStore {
	return &credentialStore{
		device:   device,
		prompter: prompter,
		timeout:  timeout,
		password: strings.TrimSpace(preset),
	}
}

// get returns the cached credential or prompts for one.
func (s *credentialStore) get(ctx context.Context) (string, error) {
	if s == nil {
		return "", ErrNoCredential
	}
	if cached := s.cached(); cached != "" {
		return cached, nil
	}
	if s.prompter == nil {
		return "", ErrNoCredential
	}

	value, err, _ := s.flight.Do(credentialFlightKey, func() (any, error) {
		if cached := s.cached(); cached != "" {
			return cached, nil
		}
		promptCtx := ctx
		if s.timeout > 0 {
			var cancel context.CancelFunc
			promptCtx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		answer, err := s.prompter.PromptCredential(promptCtx, s.device)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return "", fmt.Errorf("%w: prompt timed out after %s", ErrNoCredential, s.timeout)
			}
			return "", err
		}
		answer = strings.TrimSpace(answer)
		if answer == "" {
			return "", ErrNoCredential
		}
		s.mu.Lock()
		s.password = answer
		s.mu.Unlock()
		return answer, nil
	})
	if err != nil {
		return "", err
	}
	return value.(string), nil
}

func (s *credentialStore) cached() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.password
}

func (s *credentialStore) forget() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.password = ""
	s.mu.Unlock()
}

// detached copies the cached credential without the ability to prompt.
func (s *credentialStore) detached() *credentialStore {
	if s == nil {
		return nil
	}
	return &credentialStore{device: s.device, password: s.cached()}
}
