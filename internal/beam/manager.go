package beam

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go2tv.app/go2tv/v2/utils"
	"go2tv.app/mcp-airplay/internal/adapters"
	"go2tv.app/mcp-airplay/internal/airplay"
	"go2tv.app/mcp-airplay/internal/domain"
)

const (
	defaultDiscoveryTimeoutMS  = 2500
	fallbackDiscoveryTimeoutMS = 8000
	defaultConnectWait         = 8 * time.Second

	actionPlay  = "play"
	actionPause = "pause"
	actionSeek  = "seek"
)

type deviceLister interface {
	ListLocalHardware(ctx context.Context, timeoutMS int, includeUnreachable bool) ([]domain.Device, error)
}

// receiver is the part of *airplay.Client the manager drives.
type receiver interface {
	Connect(device domain.Device)
	Disconnect()
	LoadMedia(location string, startPosition float64)
	Play()
	Pause()
	Seek(position float64)
	Stop()
	State() airplay.ConnectionState
	Current() (domain.Device, bool)
	SessionID() string
	PlaybackState() airplay.PlaybackState
}

type prompts interface {
	Submit(credential string) error
	Pending() (domain.Device, bool)
}

type Options struct {
	StrictPathPolicy    bool
	AllowedPathPrefixes []string
	AllowLoopbackURLs   bool
	AllowWildcardBind   bool
	RedactPaths         bool
	ConnectWait         time.Duration
	Logger              *slog.Logger
}

type connectOutcome struct {
	connected bool
	pending   bool
	reason    string
}

type waiter struct {
	deviceID string
	ch       chan connectOutcome
}

// Manager turns MCP tool calls into AirPlay client operations and keeps the
// playback status reported by the client's events.
type Manager struct {
	airplay.NopListener

	discovery     deviceLister
	client        receiver
	prompts       prompts
	serverFactory adapters.StreamServerFactory
	listenAddress func(deviceURL string) (string, error)

	strictPathPolicy    bool
	allowedPathPrefixes []string
	allowLoopbackURLs   bool
	allowWildcardBind   bool
	redactPaths         bool
	connectWait         time.Duration
	now                 func() time.Time
	logger              *slog.Logger

	mu          sync.Mutex
	status      domain.PlaybackStatus
	waiters     []*waiter
	served      adapters.StreamServer
	lastFailure string
	closed      bool
}

func NewManager(discovery deviceLister, client receiver, prompter prompts, servers adapters.StreamServerFactory, listenAddress func(string) (string, error), opts Options) *Manager {
	connectWait := opts.ConnectWait
	if connectWait <= 0 {
		connectWait = defaultConnectWait
	}
	prefixes := make([]string, 0, len(opts.AllowedPathPrefixes))
	for _, p := range opts.AllowedPathPrefixes {
		p = strings.TrimSpace(p)
		if p == "" || !filepath.IsAbs(p) {
			continue
		}
		prefixes = append(prefixes, filepath.Clean(p))
	}

	return &Manager{
		discovery:           discovery,
		client:              client,
		prompts:             prompter,
		serverFactory:       servers,
		listenAddress:       listenAddress,
		strictPathPolicy:    opts.StrictPathPolicy,
		allowedPathPrefixes: prefixes,
		allowLoopbackURLs:   opts.AllowLoopbackURLs,
		allowWildcardBind:   opts.AllowWildcardBind,
		redactPaths:         opts.RedactPaths,
		connectWait:         connectWait,
		now:                 time.Now,
		logger:              opts.Logger,
		status: domain.PlaybackStatus{
			Connection: string(airplay.Disconnected),
			State:      string(airplay.StateStopped),
		},
	}
}

func (m *Manager) BeamMedia(ctx context.Context, req domain.BeamRequest) (*domain.BeamResult, error) {
	if m.discovery == nil || m.client == nil {
		return nil, toolError("INTERNAL_ERROR", "beam manager is not configured")
	}
	if m.isClosed() {
		return nil, toolError("INTERNAL_ERROR", "beam manager is shutting down")
	}
	// Start-Position is a fraction of the media duration.
	if req.StartPosition < 0 || req.StartPosition > 1 {
		return nil, invalidArgumentError("start_position must be between 0 and 1")
	}

	source := strings.TrimSpace(req.Source)
	if source == "" {
		return nil, toolError("UNSUPPORTED_MEDIA", "source is empty")
	}

	device, err := m.resolveDevice(ctx, req.TargetDevice)
	if err != nil {
		return nil, err
	}

	mediaURL, server, err := m.prepareMedia(source, device)
	if err != nil {
		return nil, err
	}

	outcome, err := m.ensureConnected(ctx, *device)
	if err != nil {
		stopServer(server)
		return nil, err
	}

	m.replaceServed(server)
	m.client.LoadMedia(mediaURL, req.StartPosition)

	sessionID := m.client.SessionID()
	m.mu.Lock()
	m.status.MediaURL = mediaURL
	m.status.Position = 0
	m.status.Ready = false
	m.status.LastFailure = nil
	m.status.UpdatedAt = m.now()
	m.mu.Unlock()

	m.log(slog.LevelInfo, "beam_media_loaded",
		slog.String("device_id", device.ID),
		slog.String("session_id", sessionID),
		slog.Bool("served_locally", server != nil),
		slog.String("source", m.logPath(source)),
	)

	result := &domain.BeamResult{
		OK:                true,
		SessionID:         sessionID,
		DeviceID:          device.ID,
		MediaURL:          mediaURL,
		Served:            server != nil,
		CredentialPending: outcome.pending,
		Warnings:          []string{},
	}
	if outcome.pending {
		result.Warnings = append(result.Warnings, "receiver requires a PIN; call submit_pin to continue playback")
	}
	if device.RequiresPassword && !outcome.pending {
		result.Warnings = append(result.Warnings, "receiver advertises password protection")
	}
	return result, nil
}

func (m *Manager) ControlPlayback(_ context.Context, req domain.ControlRequest) (*domain.ControlResult, error) {
	sessionID, err := m.activeSession()
	if err != nil {
		return nil, err
	}

	state := m.client.PlaybackState()
	action := strings.ToLower(strings.TrimSpace(req.Action))
	issued := false
	switch action {
	case actionPlay:
		issued = state == airplay.StatePaused
		m.client.Play()
	case actionPause:
		issued = state == airplay.StatePlaying
		m.client.Pause()
	case actionSeek:
		if req.Position < 0 {
			return nil, invalidArgumentError("position must not be negative")
		}
		m.client.Seek(req.Position)
		issued = true
	default:
		return nil, invalidArgumentError(fmt.Sprintf("unsupported action %q", req.Action))
	}

	return &domain.ControlResult{
		OK:        true,
		Action:    action,
		SessionID: sessionID,
		Issued:    issued,
	}, nil
}

func (m *Manager) StopBeaming(_ context.Context, req domain.StopRequest) (*domain.StopResult, error) {
	if req.SessionID == "" && req.TargetDevice == "" {
		return nil, invalidArgumentError("either session_id or target_device is required")
	}

	device, ok := m.client.Current()
	sessionID := m.client.SessionID()
	if !ok || sessionID == "" || !matchesSession(device, sessionID, req) {
		return nil, toolError("DEVICE_NOT_FOUND", "no active session matches the provided target")
	}

	m.client.Stop()
	m.replaceServed(nil)

	return &domain.StopResult{
		OK:               true,
		StoppedSessionID: sessionID,
		DeviceID:         device.ID,
	}, nil
}

func (m *Manager) DisconnectDevice(_ context.Context, target string) (*domain.DisconnectResult, error) {
	device, ok := m.client.Current()
	if !ok {
		return nil, noActiveSessionError()
	}
	if target = strings.TrimSpace(target); target != "" && matchTargetDevice([]domain.Device{device}, target) == nil {
		return nil, toolError("DEVICE_NOT_FOUND", fmt.Sprintf("%s is not the connected device", target))
	}

	m.client.Disconnect()
	m.replaceServed(nil)
	return &domain.DisconnectResult{OK: true, DeviceID: device.ID}, nil
}

func (m *Manager) SubmitPIN(_ context.Context, pin string) (*domain.PINResult, error) {
	if m.prompts == nil {
		return nil, noPendingPromptError()
	}
	device, _ := m.prompts.Pending()
	if err := m.prompts.Submit(strings.TrimSpace(pin)); err != nil {
		if errors.Is(err, airplay.ErrNoPendingPrompt) {
			return nil, noPendingPromptError()
		}
		return nil, toolError("INTERNAL_ERROR", err.Error())
	}
	return &domain.PINResult{OK: true, DeviceID: device.ID}, nil
}

// Status merges the client's live state with what events reported.
func (m *Manager) Status(context.Context) (*domain.PlaybackStatus, error) {
	m.mu.Lock()
	status := m.status
	m.mu.Unlock()

	status.Connection = string(m.client.State())
	status.State = string(m.client.PlaybackState())
	status.SessionID = m.client.SessionID()
	if device, ok := m.client.Current(); ok {
		status.DeviceID = device.ID
		status.DeviceName = device.Name
	} else {
		status.DeviceID = ""
		status.DeviceName = ""
		status.MediaURL = ""
	}
	if m.prompts != nil {
		_, status.CredentialPending = m.prompts.Pending()
	}
	return &status, nil
}

func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	waiters := m.waiters
	m.waiters = nil
	m.mu.Unlock()

	for _, w := range waiters {
		deliver(w, connectOutcome{reason: "shutting down"})
	}
	m.replaceServed(nil)
	return ctx.Err()
}

func (m *Manager) DeviceSelected(device domain.Device) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = domain.PlaybackStatus{
		Connection: string(airplay.Connecting),
		DeviceID:   device.ID,
		DeviceName: device.Name,
		State:      string(airplay.StateStopped),
		UpdatedAt:  m.now(),
	}
	m.lastFailure = ""
}

func (m *Manager) Connected(device domain.Device) {
	m.mu.Lock()
	m.status.Connection = string(airplay.Connected)
	m.status.UpdatedAt = m.now()
	m.mu.Unlock()
	m.notify(device.ID, connectOutcome{connected: true})
}

func (m *Manager) Disconnected() {
	m.mu.Lock()
	deviceID := m.status.DeviceID
	reason := m.lastFailure
	m.status.Connection = string(airplay.Disconnected)
	m.status.MediaURL = ""
	m.status.Ready = false
	m.status.UpdatedAt = m.now()
	m.mu.Unlock()

	if reason == "" {
		reason = "receiver disconnected"
	}
	m.notify(deviceID, connectOutcome{reason: reason})
}

func (m *Manager) Ready() {
	m.mu.Lock()
	m.status.Ready = true
	m.status.UpdatedAt = m.now()
	m.mu.Unlock()
}

func (m *Manager) PlaybackChanged(_ bool, position float64) {
	m.mu.Lock()
	m.status.Position = position
	m.status.UpdatedAt = m.now()
	m.mu.Unlock()
}

func (m *Manager) CommandFailed(command, reason string) {
	m.mu.Lock()
	now := m.now()
	m.status.LastFailure = &domain.CommandFailure{Command: command, Reason: reason, At: now}
	m.status.UpdatedAt = now
	m.lastFailure = command + ": " + reason
	m.mu.Unlock()
}

// CredentialPrompt is wired as the prompt broker's notify hook.
func (m *Manager) CredentialPrompt(device domain.Device, pending bool) {
	m.mu.Lock()
	m.status.CredentialPending = pending
	m.status.UpdatedAt = m.now()
	m.mu.Unlock()
	if pending {
		m.notify(device.ID, connectOutcome{pending: true})
	}
}

func (m *Manager) ensureConnected(ctx context.Context, device domain.Device) (connectOutcome, error) {
	current, ok := m.client.Current()
	if ok && current.ID == device.ID && m.client.State() == airplay.Connected {
		return connectOutcome{connected: true}, nil
	}

	w := &waiter{deviceID: device.ID, ch: make(chan connectOutcome, 1)}
	m.mu.Lock()
	m.waiters = append(m.waiters, w)
	m.mu.Unlock()
	defer m.dropWaiter(w)

	if !ok || current.ID != device.ID {
		m.client.Connect(device)
	}
	if m.prompts != nil {
		if pendingFor, pending := m.prompts.Pending(); pending && pendingFor.ID == device.ID {
			return connectOutcome{pending: true}, nil
		}
	}

	timer := time.NewTimer(m.connectWait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return connectOutcome{}, ctx.Err()
	case <-timer.C:
		m.client.Disconnect()
		return connectOutcome{}, unreachableError(device, "timed out waiting for the receiver to answer")
	case outcome := <-w.ch:
		if outcome.connected || outcome.pending {
			return outcome, nil
		}
		return connectOutcome{}, unreachableError(device, outcome.reason)
	}
}

func (m *Manager) notify(deviceID string, outcome connectOutcome) {
	m.mu.Lock()
	waiters := append([]*waiter(nil), m.waiters...)
	m.mu.Unlock()
	for _, w := range waiters {
		if deviceID == "" || w.deviceID == deviceID {
			deliver(w, outcome)
		}
	}
}

func deliver(w *waiter, outcome connectOutcome) {
	select {
	case w.ch <- outcome:
	default:
	}
}

func (m *Manager) dropWaiter(target *waiter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, w := range m.waiters {
		if w == target {
			m.waiters = append(m.waiters[:i], m.waiters[i+1:]...)
			return
		}
	}
}

func (m *Manager) activeSession() (string, error) {
	if _, ok := m.client.Current(); !ok {
		return "", noActiveSessionError()
	}
	sessionID := m.client.SessionID()
	if sessionID == "" {
		return "", noActiveSessionError()
	}
	return sessionID, nil
}

func matchesSession(device domain.Device, sessionID string, req domain.StopRequest) bool {
	if req.SessionID != "" && req.SessionID != sessionID {
		return false
	}
	if req.TargetDevice != "" && matchTargetDevice([]domain.Device{device}, req.TargetDevice) == nil {
		return false
	}
	return true
}

func (m *Manager) resolveDevice(ctx context.Context, target string) (*domain.Device, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, toolError("DEVICE_NOT_FOUND", "target_device is empty")
	}

	timeouts := []int{defaultDiscoveryTimeoutMS, fallbackDiscoveryTimeoutMS}
	for _, timeoutMS := range timeouts {
		devs, err := m.discovery.ListLocalHardware(ctx, timeoutMS, true)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, toolError("INTERNAL_ERROR", fmt.Sprintf("device discovery failed: %v", err))
		}
		if matched := matchTargetDevice(devs, target); matched != nil {
			return matched, nil
		}
	}

	return nil, toolError("DEVICE_NOT_FOUND", fmt.Sprintf("device not found: %s", target))
}

func matchTargetDevice(devices []domain.Device, target string) *domain.Device {
	target = strings.TrimSpace(target)
	normalizedTarget := normalizeDeviceTarget(target)

	for i := range devices {
		if strings.TrimSpace(devices[i].ID) == target {
			return &devices[i]
		}
	}
	for i := range devices {
		if strings.TrimSpace(devices[i].Name) == target {
			return &devices[i]
		}
	}
	for i := range devices {
		if strings.EqualFold(strings.TrimSpace(devices[i].ID), target) {
			return &devices[i]
		}
		if strings.EqualFold(strings.TrimSpace(devices[i].Name), target) {
			return &devices[i]
		}
		if normalizeDeviceTarget(devices[i].Name) == normalizedTarget {
			return &devices[i]
		}
	}
	return nil
}

func normalizeDeviceTarget(v string) string {
	normalized := strings.ToLower(strings.TrimSpace(v))
	if idx := strings.LastIndex(normalized, " ("); idx > 0 && strings.HasSuffix(normalized, ")") {
		normalized = strings.TrimSpace(normalized[:idx])
	}
	return normalized
}

// prepareMedia returns the URL the receiver should fetch, starting a local
// server when source is a file.
func (m *Manager) prepareMedia(source string, device *domain.Device) (string, adapters.StreamServer, error) {
	if parsed, err := url.Parse(source); err == nil && parsed.Scheme != "" && len(parsed.Scheme) > 1 {
		u, err := m.validateSourceURLPolicy(source)
		if err != nil {
			return "", nil, err
		}
		return u.String(), nil, nil
	}

	validated, err := m.validateLocalFilePath(source, "source")
	if err != nil {
		return "", nil, err
	}
	if mediaType := detectMediaType(validated); !playableMediaType(mediaType) {
		return "", nil, toolError("UNSUPPORTED_MEDIA", fmt.Sprintf("%s is %s, not audio or video", m.logPath(validated), mediaType))
	}

	listenAddr, server, err := m.newStreamServer(device.BaseURL)
	if err != nil {
		return "", nil, err
	}
	route := mediaRouteFor(validated)
	server.AddHandler(route, nil, nil, validated)
	if err := startStreamServer(server); err != nil {
		stopServer(server)
		return "", nil, toolError("PROTOCOL_ERROR", fmt.Sprintf("failed to start media server: %v", err))
	}
	return "http://" + listenAddr + route, server, nil
}

var detectMediaType = detectFileMediaType

var mediaTypesByExt = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".ts":   "video/mp2t",
	".m3u8": "application/vnd.apple.mpegurl",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// detectFileMediaType sniffs the file content and falls back to the
// extension.
func detectFileMediaType(source string) string {
	mediaType, err := utils.GetMimeDetailsFromPath(source)
	if err == nil && mediaType != "" && mediaType != "/" && mediaType != "application/octet-stream" {
		return mediaType
	}
	if guessed, ok := mediaTypesByExt[strings.ToLower(filepath.Ext(source))]; ok {
		return guessed
	}
	return "application/octet-stream"
}

// playableMediaType lets unknown types through; the receiver decides.
func playableMediaType(mediaType string) bool {
	if mediaType == "application/octet-stream" || mediaType == "application/vnd.apple.mpegurl" {
		return true
	}
	major, _, _ := strings.Cut(mediaType, "/")
	switch major {
	case "video", "audio", "image":
		return true
	}
	return false
}

func (m *Manager) newStreamServer(deviceURL string) (string, adapters.StreamServer, error) {
	if m.listenAddress == nil || m.serverFactory == nil {
		return "", nil, toolError("INTERNAL_ERROR", "media server is not configured")
	}

	listenAddr, err := m.listenAddress(deviceURL)
	if err != nil {
		return "", nil, toolError("PROTOCOL_ERROR", fmt.Sprintf("failed to select media listen address: %v", err))
	}
	if err := m.validateBindAddress(listenAddr); err != nil {
		return "", nil, err
	}
	return listenAddr, m.serverFactory.New(listenAddr), nil
}

func (m *Manager) replaceServed(next adapters.StreamServer) {
	m.mu.Lock()
	prev := m.served
	m.served = next
	m.mu.Unlock()
	if prev != nil && prev != next {
		stopServer(prev)
	}
}

func startStreamServer(server adapters.StreamServer) error {
	serverStarted := make(chan error, 1)
	go server.StartServing(serverStarted)
	return <-serverStarted
}

func stopServer(server adapters.StreamServer) {
	if server != nil {
		server.StopServer()
	}
}

func mediaRouteFor(source string) string {
	ext := mediaExt(source)
	if ext == "" {
		ext = ".bin"
	}
	return "/media-" + randomToken(8) + ext
}

func mediaExt(source string) string {
	if parsed, err := url.Parse(source); err == nil && parsed.Path != "" {
		ext := strings.ToLower(path.Ext(parsed.Path))
		if isSafeExt(ext) {
			return ext
		}
	}

	ext := strings.ToLower(filepath.Ext(source))
	if isSafeExt(ext) {
		return ext
	}
	return ""
}

func isSafeExt(ext string) bool {
	if ext == "" || len(ext) > 16 || !strings.HasPrefix(ext, ".") {
		return false
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func (m *Manager) validateLocalFilePath(pathValue, fieldName string) (string, error) {
	pathValue = strings.TrimSpace(pathValue)
	if !filepath.IsAbs(pathValue) {
		return "", toolError("FILE_NOT_READABLE", fmt.Sprintf("%s must be an absolute local file path", fieldName))
	}

	info, err := os.Stat(pathValue)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", toolError("FILE_NOT_FOUND", fmt.Sprintf("file not found: %s", m.logPath(pathValue)))
		}
		return "", toolError("FILE_NOT_READABLE", fmt.Sprintf("unable to read file: %v", err))
	}
	if info.IsDir() {
		return "", toolError("FILE_NOT_READABLE", fmt.Sprintf("%s must be a file, not a directory", fieldName))
	}

	cleaned := filepath.Clean(pathValue)
	if !m.strictPathPolicy {
		return cleaned, nil
	}

	resolved, err := filepath.EvalSymlinks(cleaned)
	if err != nil || !filepath.IsAbs(resolved) {
		return "", pathPolicyBlockedError(fieldName)
	}
	if !m.pathAllowed(resolved) {
		m.log(slog.LevelWarn, "path_policy_blocked",
			slog.String("field", fieldName),
			slog.String("path", m.logPath(resolved)),
		)
		return "", pathPolicyBlockedError(fieldName)
	}
	return filepath.Clean(resolved), nil
}

func (m *Manager) pathAllowed(pathValue string) bool {
	if !m.strictPathPolicy {
		return true
	}

	cleanPath := filepath.Clean(pathValue)
	for _, prefix := range m.allowedPathPrefixes {
		rel, err := filepath.Rel(prefix, cleanPath)
		if err != nil {
			continue
		}
		if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))) {
			return true
		}
	}
	return false
}

func (m *Manager) validateSourceURLPolicy(sourceURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(sourceURL))
	if err != nil {
		return nil, unsupportedURLPatternError("source URL is invalid", "URL_PARSE_INVALID")
	}
	if !strings.EqualFold(u.Scheme, "http") && !strings.EqualFold(u.Scheme, "https") {
		return nil, unsupportedURLPatternError("source URL must use http or https", "URL_SCHEME_UNSUPPORTED")
	}

	host := strings.TrimSpace(u.Hostname())
	if host == "" {
		return nil, unsupportedURLPatternError("source URL must include a host", "URL_HOST_MISSING")
	}
	if !m.allowLoopbackURLs && isLoopbackHost(host) {
		return nil, loopbackURLBlockedError(host)
	}
	return u, nil
}

func (m *Manager) validateBindAddress(listenAddr string) error {
	host, _, err := net.SplitHostPort(strings.TrimSpace(listenAddr))
	if err != nil {
		return toolError("PROTOCOL_ERROR", fmt.Sprintf("invalid media bind address: %q", listenAddr))
	}
	host = strings.TrimSpace(strings.Trim(host, "[]"))
	if m.allowWildcardBind {
		return nil
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		return bindPolicyBlockedError(listenAddr)
	}
	return nil
}

func (m *Manager) logPath(pathValue string) string {
	if !m.redactPaths {
		return pathValue
	}
	if filepath.IsAbs(pathValue) {
		return "<redacted-path>"
	}
	return pathValue
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Manager) log(level slog.Level, msg string, attrs ...any) {
	if m == nil || m.logger == nil {
		return
	}
	m.logger.Log(context.Background(), level, msg, attrs...)
}

func isLoopbackHost(host string) bool {
	host = strings.TrimSpace(strings.ToLower(host))
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback()
}

func randomToken(bytesLen int) string {
	if bytesLen <= 0 {
		bytesLen = 8
	}
	buf := make([]byte, bytesLen)
	if _, err := rand.Read(buf); err != nil {
		return "fallback"
	}
	return hex.EncodeToString(buf)
}

var _ airplay.Listener = (*Manager)(nil)
