package airplay

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultPingInterval = 30 * time.Second
	DefaultPollInterval = 200 * time.Millisecond
)

// tickFunc runs one iteration and reports whether the loop should reschedule.
type tickFunc func(ctx context.Context) bool

// loop is a self-rescheduling task with at most one pending iteration.
// Starting it again replaces the previous run; stopping cancels the context
// handed to the running iteration.
type loop struct {
	name  string
	every time.Duration
	wg    *sync.WaitGroup

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

func newLoop(name string, every time.Duration, wg *sync.WaitGroup) *loop {
	return &loop{name: name, every: every, wg: wg}
}

func (l *loop) start(parent context.Context, tick tickFunc) {
	ctx, cancel := context.WithCancel(parent)

	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	gen := l.gen
	l.cancel = cancel
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer l.finish(gen, cancel)

		for {
			if !tick(ctx) || ctx.Err() != nil {
				return
			}
			timer := time.NewTimer(l.every)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()
}

func (l *loop) finish(gen uint64, cancel context.CancelFunc) {
	cancel()
	l.mu.Lock()
	if l.gen == gen {
		l.cancel = nil
	}
	l.mu.Unlock()
}

// stop cancels the current run without waiting for it; an iteration calling
// stop on its own loop must not block.
func (l *loop) stop() {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.gen++
	l.mu.Unlock()
}

func (l *loop) generation() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen
}

// stopGeneration stops the loop only if it has not been restarted since gen
// was observed.
func (l *loop) stopGeneration(gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen != gen || l.cancel == nil {
		return
	}
	l.cancel()
	l.cancel = nil
	l.gen++
}
