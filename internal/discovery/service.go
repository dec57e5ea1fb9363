package discovery

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go2tv.app/mcp-airplay/internal/adapters"
	"go2tv.app/mcp-airplay/internal/domain"
)

const (
	DefaultService      = "_airplay._tcp"
	DefaultDomain       = "local"
	DefaultInterval     = 10 * time.Second
	DefaultQueryTimeout = 2 * time.Second
	DefaultMissLimit    = 3

	defaultTimeoutMS = 2500
	reachabilityWait = 400 * time.Millisecond
)

var isReachableAddress = defaultReachableAddress

// Handler receives discovery transitions.
type Handler interface {
	DeviceAppeared(device domain.Device)
	DeviceResolved(device domain.Device)
	DeviceRemoved(device domain.Device)
}

type Config struct {
	Service      string
	Domain       string
	Interval     time.Duration
	QueryTimeout time.Duration
	// MissLimit is the number of consecutive browses a device may be absent
	// from before it is reported removed.
	MissLimit int
	Logger    *slog.Logger
}

type tracked struct {
	device domain.Device
	misses int
}

// Service turns periodic browse results into appeared, resolved and removed
// transitions for a Handler.
type Service struct {
	browser adapters.Browser
	handler Handler
	cfg     Config

	scanMu sync.Mutex
	mu     sync.Mutex
	known  map[string]*tracked
}

func NewService(browser adapters.Browser, handler Handler, cfg Config) *Service {
	if strings.TrimSpace(cfg.Service) == "" {
		cfg.Service = DefaultService
	}
	if strings.TrimSpace(cfg.Domain) == "" {
		cfg.Domain = DefaultDomain
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = DefaultQueryTimeout
	}
	if cfg.MissLimit <= 0 {
		cfg.MissLimit = DefaultMissLimit
	}
	return &Service{
		browser: browser,
		handler: handler,
		cfg:     cfg,
		known:   map[string]*tracked{},
	}
}

// Run browses every Interval until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	for {
		if _, err := s.Scan(ctx, s.cfg.QueryTimeout); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log(slog.LevelWarn, "discovery_scan_failed", slog.String("error", err.Error()))
		}

		timer := time.NewTimer(s.cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Scan browses once, notifies the handler of changes and returns every
// device seen in this browse. Devices missing from MissLimit consecutive
// scans are removed.
func (s *Service) Scan(ctx context.Context, timeout time.Duration) ([]domain.Device, error) {
	return s.scan(ctx, timeout, true)
}

// scan with countMisses false only adds or refreshes devices. On-demand
// listings use it since their timeout may be too short to hear every
// receiver.
func (s *Service) scan(ctx context.Context, timeout time.Duration, countMisses bool) ([]domain.Device, error) {
	if s.browser == nil {
		return nil, errors.New("discovery browser is not configured")
	}
	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	records, err := s.browser.Browse(ctx, s.cfg.Service, s.cfg.Domain, timeout)
	if err != nil {
		return nil, err
	}

	found := normalizeRecords(records, s.cfg.Service, s.cfg.Domain)
	s.apply(found, countMisses)
	sortDevices(found)
	return found, nil
}

func (s *Service) apply(found []domain.Device, countMisses bool) {
	var appeared, resolved, removed []domain.Device

	s.mu.Lock()
	seen := make(map[string]bool, len(found))
	for _, dev := range found {
		seen[dev.ID] = true
		prev, ok := s.known[dev.ID]
		if !ok {
			appeared = append(appeared, dev)
			if dev.Resolved() {
				resolved = append(resolved, dev)
			}
			s.known[dev.ID] = &tracked{device: dev}
			continue
		}
		prev.misses = 0
		if dev.Resolved() && endpointChanged(prev.device, dev) {
			resolved = append(resolved, dev)
		}
		if dev.Resolved() || !prev.device.Resolved() {
			prev.device = dev
		}
	}
	for id, entry := range s.known {
		if seen[id] || !countMisses {
			continue
		}
		entry.misses++
		if entry.misses >= s.cfg.MissLimit {
			removed = append(removed, entry.device)
			delete(s.known, id)
		}
	}
	s.mu.Unlock()

	if s.handler == nil {
		return
	}
	for _, dev := range appeared {
		s.log(slog.LevelDebug, "discovery_device_appeared", slog.String("device_id", dev.ID), slog.String("name", dev.Name))
		s.handler.DeviceAppeared(dev)
	}
	for _, dev := range resolved {
		s.handler.DeviceResolved(dev)
	}
	for _, dev := range removed {
		s.log(slog.LevelInfo, "discovery_device_removed", slog.String("device_id", dev.ID), slog.String("name", dev.Name))
		s.handler.DeviceRemoved(dev)
	}
}

func endpointChanged(prev, next domain.Device) bool {
	return prev.BaseURL != next.BaseURL || prev.Name != next.Name || prev.RequiresPassword != next.RequiresPassword
}

// Known returns the devices currently tracked, resolved or not.
func (s *Service) Known() []domain.Device {
	s.mu.Lock()
	out := make([]domain.Device, 0, len(s.known))
	for _, entry := range s.known {
		out = append(out, entry.device)
	}
	s.mu.Unlock()
	sortDevices(out)
	return out
}

func (s *Service) ListLocalHardware(ctx context.Context, timeoutMS int, includeUnreachable bool) ([]domain.Device, error) {
	if timeoutMS <= 0 {
		timeoutMS = defaultTimeoutMS
	}

	found, err := s.scan(ctx, time.Duration(timeoutMS)*time.Millisecond, false)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	resolved := make([]domain.Device, 0, len(found))
	for _, dev := range found {
		if dev.Resolved() {
			resolved = append(resolved, dev)
		}
	}
	if !includeUnreachable {
		resolved = filterReachable(resolved)
	}
	return resolved, nil
}

func normalizeRecords(records []adapters.ServiceRecord, service, domainName string) []domain.Device {
	result := make([]domain.Device, 0, len(records))
	index := map[string]int{}
	for _, record := range records {
		dev, ok := normalizeRecord(record, service, domainName)
		if !ok {
			continue
		}
		if i, dup := index[dev.ID]; dup {
			if !result[i].Resolved() && dev.Resolved() {
				result[i] = dev
			}
			continue
		}
		index[dev.ID] = len(result)
		result = append(result, dev)
	}
	return result
}

func normalizeRecord(record adapters.ServiceRecord, service, domainName string) (domain.Device, bool) {
	name := instanceName(record.Instance, service, domainName)
	if name == "" {
		return domain.Device{}, false
	}
	txt := parseTXT(record.Text)

	dev := domain.Device{
		Name:             name,
		Model:            txt["model"],
		Features:         txt["features"],
		RequiresPassword: truthy(txt["pw"]),
		Protocol:         domain.ProtocolAirPlay,
		Capabilities:     airplayCapabilities(),
	}

	key := strings.ToLower(strings.TrimSpace(txt["deviceid"]))
	if key == "" {
		key = strings.ToLower(name)
	}
	dev.ID = stableID(domain.ProtocolAirPlay, key)

	host := ""
	switch {
	case record.AddrV4 != nil:
		host = record.AddrV4.String()
	case record.AddrV6 != nil:
		host = record.AddrV6.String()
	}
	if host != "" && record.Port > 0 {
		dev.Host = host
		dev.Port = record.Port
		dev.Address = net.JoinHostPort(host, strconv.Itoa(record.Port))
		dev.BaseURL = "http://" + dev.Address + "/"
	}
	return dev, true
}

// instanceName strips the service suffix and DNS escaping from an instance
// label such as `Living\ Room._airplay._tcp.local.`.
func instanceName(instance, service, domainName string) string {
	name := strings.TrimSuffix(strings.TrimSpace(instance), ".")
	suffix := "." + strings.Trim(service, ".") + "." + strings.Trim(domainName, ".")
	if strings.HasSuffix(strings.ToLower(name), strings.ToLower(suffix)) {
		name = name[:len(name)-len(suffix)]
	}

	var b strings.Builder
	escaped := false
	for _, r := range name {
		if r == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

func parseTXT(fields []string) map[string]string {
	out := make(map[string]string, len(fields))
	for _, field := range fields {
		key, value, _ := strings.Cut(field, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		out[key] = strings.TrimSpace(value)
	}
	return out
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

func filterReachable(all []domain.Device) []domain.Device {
	filtered := make([]domain.Device, 0, len(all))
	for _, dev := range all {
		if isReachableAddress(dev.Address, reachabilityWait) {
			filtered = append(filtered, dev)
		}
	}
	return filtered
}

func sortDevices(all []domain.Device) {
	sort.Slice(all, func(i, j int) bool {
		if strings.ToLower(all[i].Name) != strings.ToLower(all[j].Name) {
			return strings.ToLower(all[i].Name) < strings.ToLower(all[j].Name)
		}
		if strings.ToLower(all[i].Address) != strings.ToLower(all[j].Address) {
			return strings.ToLower(all[i].Address) < strings.ToLower(all[j].Address)
		}
		return all[i].ID < all[j].ID
	})
}

func stableID(protocol, key string) string {
	canonical := fmt.Sprintf("%s|%s", protocol, key)
	sum := sha1.Sum([]byte(canonical))
	return "dev_" + hex.EncodeToString(sum[:8])
}

func airplayCapabilities() domain.Capabilities {
	return domain.Capabilities{
		SupportsFileSource: true,
		SupportsURLSource:  true,
		SupportsHLSM3U8URL: true,
		SupportsVolume:     false,
		Limitations: []domain.Limitation{{
			Code:    "VOLUME_UNSUPPORTED",
			Message: "AirPlay video receivers do not expose volume control to this client.",
		}},
	}
}

func defaultReachableAddress(address string, timeout time.Duration) bool {
	if strings.TrimSpace(address) == "" {
		return false
	}
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func (s *Service) log(level slog.Level, msg string, attrs ...any) {
	if s == nil || s.cfg.Logger == nil {
		return
	}
	s.cfg.Logger.Log(context.Background(), level, msg, attrs...)
}
