package mcpserver

import (
	"encoding/json"
	"log/slog"

	"go2tv.app/mcp-airplay/internal/airplay"
	"go2tv.app/mcp-airplay/internal/domain"
)


// The server forwards client events to the MCP peer as log notifications.
var _ airplay.Listener = (*Server)(nil)

func (s *Server) DeviceDetected(device domain.Device) {
	s.notify("info", "device_detected", deviceData(device))
}

func (s *Server) DeviceRemoved(device domain.Device) {
	s.notify("info", "device_removed", deviceData(device))
}

func (s *Server) DeviceSelected(device domain.Device) {
	s.notify("info", "device_selected", deviceData(device))
}

func (s *Server) Connected(device domain.Device) {
	s.notify("info", "connected", deviceData(device))
}

func (s *Server) Disconnected() {
	s.notify("info", "disconnected", nil)
}

func (s *Server) Ready() {
	s.notify("info", "ready", nil)
}

func (s *Server) PlaybackChanged(playing bool, position float64) {
	s.notify("debug", "playback_changed", map[string]any{
		"playing":  playing,
		"position": position,
	})
}

func (s *Server) CommandFailed(command, reason string) {
	s.notify("error", "command_failed", map[string]any{
		"command": command,
		"reason":  reason,
	})
}

func deviceData(device domain.Device) map[string]any {
	return map[string]any{
		"device_id": device.ID,
		"name":      device.Name,
		"address":   device.Address,
	}
}

// notify writes a notifications/message once the peer has initialized.
// Earlier events are dropped.
func (s *Server) notify(level, event string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["event"] = event

	encoded, err := json.Marshal(logMessage(level, data))
	if err != nil {
		s.logLifecycle(slog.LevelWarn, "mcp_notify_encode_failed", slog.String("error", err.Error()))
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if !s.initialized {
		return
	}
	if err := s.writeLocked(encoded); err != nil {
		s.logLifecycle(slog.LevelWarn, "mcp_notify_failed", slog.String("event", event), slog.String("error", err.Error()))
	}
}
