package airplay

import (
	"context"
	"log/slog"

	"go2tv.app/mcp-airplay/internal/domain"
)

// Client is the facade over discovery bookkeeping and the session controller.
// Every event it produces reaches the configured Listener in order.
type Client struct {
	*Controller

	registry *Registry
	events   *dispatcher
}

func NewClient(cfg Config, listener Listener) *Client {
	events := newDispatcher(listener)
	return &Client{
		Controller: newController(cfg, events),
		registry:   NewRegistry(),
		events:     events,
	}
}

// DeviceAppeared records a device that was announced but may not yet have an
// address. No event is emitted until it resolves.
func (c *Client) DeviceAppeared(device domain.Device) {
	if !device.Resolved() {
		return
	}
	c.registry.Upsert(device)
}

// DeviceResolved records a device with a usable endpoint and announces it.
func (c *Client) DeviceResolved(device domain.Device) {
	if !device.Resolved() {
		c.log(slog.LevelDebug, "airplay_device_unresolved", slog.String("device_id", device.ID))
		return
	}
	c.registry.Upsert(device)
	c.log(slog.LevelInfo, "airplay_device_detected",
		slog.String("device_id", device.ID),
		slog.String("name", device.Name),
		slog.String("address", device.Address),
	)
	c.events.emit(func(l Listener) { l.DeviceDetected(device) })
}

// DeviceRemoved forgets a device. If it was current the session is torn
// down without contacting it.
func (c *Client) DeviceRemoved(device domain.Device) {
	known, ok := c.registry.Remove(device.ID)
	if ok {
		device = known
	} else if current, has := c.Current(); !has || current.ID != device.ID {
		return
	}
	c.log(slog.LevelInfo, "airplay_device_removed", slog.String("device_id", device.ID))
	c.events.emit(func(l Listener) { l.DeviceRemoved(device) })
	c.dropDevice(device.ID)
}

func (c *Client) Devices() []domain.Device {
	return c.registry.List()
}

// Close disconnects, waits for outstanding work and drains pending events.
func (c *Client) Close(ctx context.Context) error {
	err := c.Controller.close(ctx)
	select {
	case <-c.events.close():
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}
