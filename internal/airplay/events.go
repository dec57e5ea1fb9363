package airplay

import (
	"sync"

	"go2tv.app/mcp-airplay/internal/domain"
)

// Listener receives client events. Calls arrive in order on one goroutine and
// may safely call back into the Client.
type Listener interface {
	DeviceDetected(device domain.Device)
	DeviceRemoved(device domain.Device)
	DeviceSelected(device domain.Device)
	Connected(device domain.Device)
	Disconnected()
	Ready()
	PlaybackChanged(playing bool, position float64)
	CommandFailed(command, reason string)
}

// NopListener ignores every event. Embed it to implement a subset.
type NopListener struct{}

func (NopListener) DeviceDetected(domain.Device)  {}
func (NopListener) DeviceRemoved(domain.Device)   {}
func (NopListener) DeviceSelected(domain.Device)  {}
func (NopListener) Connected(domain.Device)       {}
func (NopListener) Disconnected()                 {}
func (NopListener) Ready()                        {}
func (NopListener) PlaybackChanged(bool, float64) {}
func (NopListener) CommandFailed(string, string)  {}

// dispatcher delivers events FIFO on a single goroutine. The queue is
// unbounded so emitters never block on a slow listener.
type dispatcher struct {
	listener Listener

	mu     sync.Mutex
	queue  []func(Listener)
	wake   chan struct{}
	closed bool
	done   chan struct{}
}

func newDispatcher(listener Listener) *dispatcher {
	if listener == nil {
		listener = NopListener{}
	}
	d := &dispatcher{
		listener: listener,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) emit(fn func(Listener)) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.queue = append(d.queue, fn)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *dispatcher) run() {
	defer close(d.done)
	for {
		d.mu.Lock()
		batch := d.queue
		d.queue = nil
		closed := d.closed
		d.mu.Unlock()

		for _, fn := range batch {
			fn(d.listener)
		}
		if closed && len(batch) == 0 {
			return
		}
		if len(batch) > 0 {
			continue
		}
		<-d.wake
	}
}

// close stops accepting events; queued ones are still delivered.
func (d *dispatcher) close() <-chan struct{} {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
	}
	d.mu.Unlock()
	select {
	case d.wake <- struct{}{}:
	default:
	}
	return d.done
}

// Fanout forwards every event to each added listener in the order they were
// added.
type Fanout struct {
	mu        sync.RWMutex
	listeners []Listener
}

func (f *Fanout) Add(l Listener) {
	if l == nil {
		return
	}
	f.mu.Lock()
	f.listeners = append(f.listeners, l)
	f.mu.Unlock()
}

func (f *Fanout) each(fn func(Listener)) {
	f.mu.RLock()
	listeners := f.listeners
	f.mu.RUnlock()
	for _, l := range listeners {
		fn(l)
	}
}

func (f *Fanout) DeviceDetected(d domain.Device) { f.each(func(l Listener) { l.DeviceDetected(d) }) }
func (f *Fanout) DeviceRemoved(d domain.Device)  { f.each(func(l Listener) { l.DeviceRemoved(d) }) }
func (f *Fanout) DeviceSelected(d domain.Device) { f.each(func(l Listener) { l.DeviceSelected(d) }) }
func (f *Fanout) Connected(d domain.Device)      { f.each(func(l Listener) { l.Connected(d) }) }
func (f *Fanout) Disconnected()                  { f.each(func(l Listener) { l.Disconnected() }) }
func (f *Fanout) Ready()                         { f.each(func(l Listener) { l.Ready() }) }

func (f *Fanout) PlaybackChanged(playing bool, position float64) {
	f.each(func(l Listener) { l.PlaybackChanged(playing, position) })
}

func (f *Fanout) CommandFailed(command, reason string) {
	f.each(func(l Listener) { l.CommandFailed(command, reason) })
}
