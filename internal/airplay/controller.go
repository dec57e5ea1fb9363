package airplay

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go2tv.app/mcp-airplay/internal/domain"
)

type ConnectionState string

const (
	Disconnected ConnectionState = "disconnected"
	Connecting   ConnectionState = "connecting"
	Connected    ConnectionState = "connected"
)

const defaultPromptTimeout = 2 * time.Minute

const (
	reasonPlayFailed   = "Failed to play media"
	reasonStopFailed   = "Cannot stop"
	reasonPlaybackInfo = "Cannot get playback info"
	reasonServerInfo   = "Device did not answer server-info"

	commandPlay         = "play"
	commandStop         = "stop"
	commandPlaybackInfo = "playback-info"
	commandServerInfo   = "server-info"
)

type Config struct {
	UserAgent      string
	Username       string
	Password       string
	PingInterval   time.Duration
	PollInterval   time.Duration
	RequestTimeout time.Duration
	PromptTimeout  time.Duration
	HTTPClient     *http.Client
	Prompter       Prompter
	Logger         *slog.Logger

	newID func() string
}

// Controller owns the single active device, its session and the two polling
// loops bound to that session.
type Controller struct {
	transport     *Transport
	events        *dispatcher
	logger        *slog.Logger
	prompter      Prompter
	password      string
	promptTimeout time.Duration
	newID         func() string

	wg       sync.WaitGroup
	liveness *loop
	status   *loop

	mu            sync.Mutex
	state         ConnectionState
	device        domain.Device
	hasDevice     bool
	sessionID     string
	sessionCancel context.CancelFunc
	sessionCtx    context.Context
	credentials   *credentialStore
	playback      PlaybackState
	closed        bool
}

func newController(cfg Config, events *dispatcher) *Controller {
	pingEvery := cfg.PingInterval
	if pingEvery <= 0 {
		pingEvery = DefaultPingInterval
	}
	pollEvery := cfg.PollInterval
	if pollEvery <= 0 {
		pollEvery = DefaultPollInterval
	}
	promptTimeout := cfg.PromptTimeout
	if promptTimeout <= 0 {
		promptTimeout = defaultPromptTimeout
	}
	newID := cfg.newID
	if newID == nil {
		newID = uuid.NewString
	}

	c := &Controller{
		transport: NewTransport(TransportConfig{
			UserAgent:      cfg.UserAgent,
			Username:       cfg.Username,
			RequestTimeout: cfg.RequestTimeout,
			HTTPClient:     cfg.HTTPClient,
			Logger:         cfg.Logger,
		}),
		events:        events,
		logger:        cfg.Logger,
		prompter:      cfg.Prompter,
		password:      cfg.Password,
		promptTimeout: promptTimeout,
		newID:         newID,
		state:         Disconnected,
		playback:      StateStopped,
	}
	c.liveness = newLoop("liveness", pingEvery, &c.wg)
	c.status = newLoop("status", pollEvery, &c.wg)
	return c
}

// Connect makes device current under a fresh session and starts probing it.
// A different current device is disconnected first.
func (c *Controller) Connect(device domain.Device) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	if c.hasDevice {
		if c.device.ID != device.ID {
			c.disconnectLocked(true)
		} else {
			c.endSessionLocked()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.device = device
	c.hasDevice = true
	c.sessionID = c.newID()
	c.sessionCtx = ctx
	c.sessionCancel = cancel
	c.credentials = newCredentialStore(device, c.prompter, c.promptTimeout, c.password)
	c.state = Connecting
	c.playback = StateStopped

	c.log(slog.LevelInfo, "airplay_connect",
		slog.String("device_id", device.ID),
		slog.String("address", device.Address),
		slog.String("session_id", c.sessionID),
	)
	c.events.emit(func(l Listener) { l.DeviceSelected(device) })
	c.liveness.start(ctx, c.probe)
}

// Disconnect ends the current session. It does nothing when no device is
// current.
func (c *Controller) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasDevice {
		return
	}
	c.disconnectLocked(true)
}

// dropDevice disconnects without talking to the device, used when discovery
// reports it gone.
func (c *Controller) dropDevice(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasDevice || c.device.ID != id {
		return false
	}
	c.disconnectLocked(false)
	return true
}

func (c *Controller) disconnectLocked(sendStop bool) {
	target := c.targetLocked()
	target.credentials = target.credentials.detached()

	c.endSessionLocked()
	c.hasDevice = false
	c.device = domain.Device{}
	c.state = Disconnected

	c.log(slog.LevelInfo, "airplay_disconnect",
		slog.String("device_id", target.Device.ID),
		slog.String("session_id", target.SessionID),
		slog.Bool("stop_sent", sendStop),
	)
	if sendStop {
		c.issue(context.Background(), target, stopCommand(), nil)
	}
	c.events.emit(func(l Listener) { l.Disconnected() })
}

func (c *Controller) endSessionLocked() {
	c.liveness.stop()
	c.status.stop()
	if c.sessionCancel != nil {
		c.sessionCancel()
	}
	c.sessionCancel = nil
	c.sessionCtx = nil
	c.sessionID = ""
	c.credentials = nil
	c.playback = StateStopped
}

// LoadMedia asks the device to play location from startPosition and starts
// the status loop right away.
func (c *Controller) LoadMedia(location string, startPosition float64) {
	c.mu.Lock()
	target, ctx, ok := c.currentLocked()
	if !ok {
		c.mu.Unlock()
		return
	}
	c.status.start(ctx, c.pollPlayback)
	c.mu.Unlock()

	c.log(slog.LevelInfo, "airplay_load_media",
		slog.String("device_id", target.Device.ID),
		slog.String("session_id", target.SessionID),
	)
	c.issue(ctx, target, playCommand(location, startPosition, c.newID()), func(resp *Response, err error) {
		c.withSession(target.SessionID, func() {
			if err != nil {
				c.failLocked(commandPlay, err.Error())
				return
			}
			if !resp.OK() {
				c.logRejected(commandPlay, resp.StatusCode)
				c.failLocked(commandPlay, reasonPlayFailed)
				return
			}
			c.playback = StatePlaying
		})
	})
}

// Play resumes playback when the last known state is paused.
func (c *Controller) Play() {
	c.setRateWhen(StatePaused, 1)
}

// Pause halts playback when the last known state is playing.
func (c *Controller) Pause() {
	c.setRateWhen(StatePlaying, 0)
}

func (c *Controller) setRateWhen(required PlaybackState, rate float64) {
	c.mu.Lock()
	target, ctx, ok := c.currentLocked()
	state := c.playback
	c.mu.Unlock()
	if !ok || state != required {
		return
	}
	c.issue(ctx, target, rateCommand(rate), nil)
}

// Seek moves playback to position seconds. The status loop reconciles.
func (c *Controller) Seek(position float64) {
	c.mu.Lock()
	target, ctx, ok := c.currentLocked()
	c.mu.Unlock()
	if !ok {
		return
	}
	c.issue(ctx, target, scrubCommand(position), nil)
}

func (c *Controller) Stop() {
	c.mu.Lock()
	target, ctx, ok := c.currentLocked()
	statusGen := c.status.generation()
	c.mu.Unlock()
	if !ok {
		return
	}

	c.issue(ctx, target, stopCommand(), func(resp *Response, err error) {
		c.withSession(target.SessionID, func() {
			if err != nil {
				c.failLocked(commandStop, err.Error())
				return
			}
			if !resp.OK() {
				c.logRejected(commandStop, resp.StatusCode)
				c.failLocked(commandStop, reasonStopFailed)
				return
			}
			c.status.stopGeneration(statusGen)
			c.playback = StateStopped
		})
	})
}

func (c *Controller) SetVolume(float64) {}

func (c *Controller) CanControlVolume() bool {
	return false
}

func (c *Controller) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Current() (domain.Device, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.device, c.hasDevice
}

func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Controller) PlaybackState() PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playback
}

// close disconnects and waits for loops and in-flight commands.
func (c *Controller) close(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	if c.hasDevice {
		c.disconnectLocked(true)
	}
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) probe(ctx context.Context) bool {
	target, ok := c.currentTarget()
	if !ok {
		return false
	}

	resp, err := c.transport.Do(ctx, target, serverInfoCommand())
	if ctx.Err() != nil {
		return false
	}

	reschedule := false
	c.withSession(target.SessionID, func() {
		if err == nil && resp.OK() {
			c.state = Connected
			device := c.device
			c.log(slog.LevelDebug, "airplay_ping_ok", slog.String("device_id", device.ID))
			c.events.emit(func(l Listener) { l.Connected(device) })
			reschedule = true
			return
		}

		reason := reasonServerInfo
		if err != nil {
			reason = err.Error()
		}
		c.log(slog.LevelWarn, "airplay_liveness_failed",
			slog.String("device_id", target.Device.ID),
			slog.String("reason", reason),
		)
		c.endSessionLocked()
		c.hasDevice = false
		c.device = domain.Device{}
		c.state = Disconnected
		c.failLocked(commandServerInfo, reason)
		c.events.emit(func(l Listener) { l.Disconnected() })
	})
	return reschedule
}

func (c *Controller) pollPlayback(ctx context.Context) bool {
	target, ok := c.currentTarget()
	if !ok {
		return false
	}

	resp, err := c.transport.Do(ctx, target, playbackInfoCommand())
	if ctx.Err() != nil {
		return false
	}

	reschedule := false
	c.withSession(target.SessionID, func() {
		if err != nil {
			c.failLocked(commandPlaybackInfo, err.Error())
			return
		}
		if !resp.OK() {
			c.logRejected(commandPlaybackInfo, resp.StatusCode)
			c.failLocked(commandPlaybackInfo, reasonPlaybackInfo)
			return
		}

		info, parseErr := ParsePlaybackInfo(resp.Body)
		if parseErr != nil {
			c.log(slog.LevelWarn, "airplay_playback_parse_error",
				slog.String("device_id", target.Device.ID),
				slog.String("error", parseErr.Error()),
			)
			return
		}
		if !info.HasPosition {
			reschedule = true
			return
		}

		playing := info.Playing()
		switch {
		case info.Finished():
			c.playback = StateStopped
		case playing:
			c.playback = StatePlaying
		default:
			c.playback = StatePaused
		}
		c.log(slog.LevelDebug, "airplay_playback_info",
			slog.Bool("playing", playing),
			slog.Float64("rate", info.Rate),
			slog.Float64("position", info.Position),
			slog.Float64("duration", info.Duration),
			slog.Bool("ready", info.ReadyToPlay),
		)

		if info.ReadyToPlay {
			c.events.emit(func(l Listener) { l.Ready() })
		}
		position := info.Position
		c.events.emit(func(l Listener) { l.PlaybackChanged(playing, position) })
		reschedule = !info.Finished()
	})
	return reschedule
}

// issue runs cmd on its own goroutine. handle, when set, receives the
// outcome unless ctx was cancelled meanwhile.
func (c *Controller) issue(ctx context.Context, target Target, cmd Command, handle func(*Response, error)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		resp, err := c.transport.Do(ctx, target, cmd)
		if handle == nil {
			if err != nil {
				c.log(slog.LevelDebug, "airplay_command_ignored",
					slog.String("command", cmd.Name),
					slog.String("error", err.Error()),
				)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		handle(resp, err)
	}()
}

// withSession runs fn under the lock if sessionID is still current.
func (c *Controller) withSession(sessionID string, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sessionID == "" || c.sessionID != sessionID {
		return false
	}
	fn()
	return true
}

func (c *Controller) logRejected(command string, status int) {
	c.log(slog.LevelWarn, "airplay_command_rejected",
		slog.String("command", command),
		slog.Int("status", status),
	)
}

func (c *Controller) failLocked(command, reason string) {
	c.log(slog.LevelWarn, "airplay_command_failed",
		slog.String("command", command),
		slog.String("reason", reason),
	)
	c.events.emit(func(l Listener) { l.CommandFailed(command, reason) })
}

func (c *Controller) currentTarget() (Target, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	target, _, ok := c.currentLocked()
	return target, ok
}

func (c *Controller) currentLocked() (Target, context.Context, bool) {
	if !c.hasDevice || c.sessionID == "" || c.sessionCtx == nil {
		return Target{}, nil, false
	}
	return c.targetLocked(), c.sessionCtx, true
}

func (c *Controller) targetLocked() Target {
	return Target{
		Device:      c.device,
		SessionID:   c.sessionID,
		credentials: c.credentials,
	}
}

func (c *Controller) log(level slog.Level, msg string, attrs ...any) {
	if c == nil || c.logger == nil {
		return
	}
	c.logger.Log(context.Background(), level, msg, attrs...)
}
