package mcpserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go2tv.app/mcp-airplay/internal/domain"
)

const (
	defaultDiscoveryTimeoutMS = 5000
	minDiscoveryTimeoutMS     = 100
)

type LocalHardwareLister interface {
	ListLocalHardware(ctx context.Context, timeoutMS int, includeUnreachable bool) ([]domain.Device, error)
}

type BeamController interface {
	BeamMedia(ctx context.Context, req domain.BeamRequest) (*domain.BeamResult, error)
	ControlPlayback(ctx context.Context, req domain.ControlRequest) (*domain.ControlResult, error)
	StopBeaming(ctx context.Context, req domain.StopRequest) (*domain.StopResult, error)
	DisconnectDevice(ctx context.Context, target string) (*domain.DisconnectResult, error)
	SubmitPIN(ctx context.Context, pin string) (*domain.PINResult, error)
	Status(ctx context.Context) (*domain.PlaybackStatus, error)
}

// Server speaks MCP over a single stdio stream. Requests are handled one at a
// time; client events may be written concurrently as notifications.
type Server struct {
	in                  *bufio.Reader
	serverName          string
	serverVersion       string
	logger              *slog.Logger
	tools               []tool
	localHardwareLister LocalHardwareLister
	beamController      BeamController

	writeMu           sync.Mutex
	out               *bufio.Writer
	useJSONLineOutput bool
	outputModeLocked  bool
	initialized       bool
}

type Config struct {
	ServerName          string
	ServerVersion       string
	Logger              *slog.Logger
	LocalHardwareLister LocalHardwareLister
	BeamController      BeamController
}

func New(in io.Reader, out io.Writer, cfg Config) *Server {
	if cfg.ServerName == "" {
		cfg.ServerName = "mcp-airplay"
	}
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}

	return &Server{
		in:                  bufio.NewReader(in),
		out:                 bufio.NewWriter(out),
		serverName:          cfg.ServerName,
		serverVersion:       cfg.ServerVersion,
		logger:              cfg.Logger,
		tools:               staticTools(),
		localHardwareLister: cfg.LocalHardwareLister,
		beamController:      cfg.BeamController,
	}
}

func (s *Server) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.logLifecycle(slog.LevelInfo, "mcp_context_done", slog.String("reason", ctx.Err().Error()))
			return ctx.Err()
		default:
		}

		s.logLifecycle(slog.LevelDebug, "mcp_read_wait")
		payload, jsonLineInput, err := readMessage(s.in)
		if err != nil {
			if err == io.EOF {
				s.logLifecycle(slog.LevelInfo, "mcp_stream_eof")
				return nil
			}
			s.logLifecycle(slog.LevelError, "mcp_read_error", slog.String("error", err.Error()))
			return err
		}
		s.lockOutputMode(jsonLineInput)
		s.logLifecycle(slog.LevelDebug, "mcp_message_received", slog.Int("bytes", len(payload)))

		if err := s.handle(ctx, payload); err != nil {
			s.logLifecycle(slog.LevelError, "mcp_handle_error", slog.String("error", err.Error()))
			return err
		}
	}
}

// lockOutputMode answers in whichever framing the first message used.
func (s *Server) lockOutputMode(jsonLineInput bool) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.outputModeLocked {
		return
	}
	s.useJSONLineOutput = jsonLineInput
	s.outputModeLocked = true
	s.logLifecycle(
		slog.LevelDebug,
		"mcp_output_mode",
		slog.String("mode", map[bool]string{true: "jsonline", false: "framed"}[jsonLineInput]),
	)
}

func (s *Server) handle(ctx context.Context, payload []byte) error {
	startedAt := time.Now()

	var req request
	if err := json.Unmarshal(payload, &req); err != nil {
		s.logCall("parse", "", "", startedAt, "-32700")
		return s.send(errorResponse(nil, codeParseError))
	}

	if req.isNotification() {
		return nil
	}

	if req.JSONRPC != "" && req.JSONRPC != jsonrpcVersion {
		s.logCall(req.Method, "", "", startedAt, "-32600")
		return s.send(errorResponse(req.ID, codeInvalidRequest))
	}

	switch req.Method {
	case methodInitialize:
		s.logCall(methodInitialize, "", "", startedAt, "")
		err := s.send(resultResponse(req.ID, initializeResult{
			ProtocolVersion: protocolVersion,
			ServerInfo:      serverInfo{Name: s.serverName, Version: s.serverVersion},
			Instructions:    serverInstructions,
		}))
		s.writeMu.Lock()
		s.initialized = true
		s.writeMu.Unlock()
		return err
	case methodToolsList:
		s.logCall(methodToolsList, "", "", startedAt, "")
		return s.send(resultResponse(req.ID, toolsListResult{Tools: s.tools}))
	case methodToolsCall:
		return s.handleToolCall(ctx, req.ID, req.Params)
	default:
		s.logCall(req.Method, "", "", startedAt, "-32601")
		return s.send(errorResponse(req.ID, codeMethodNotFound))
	}
}

func (s *Server) handleToolCall(ctx context.Context, id json.RawMessage, rawParams json.RawMessage) error {
	startedAt := time.Now()

	params, err := decodeToolCallParams(rawParams)
	if err != nil {
		return s.sendInvalidParams(methodToolsCall, "", "", startedAt, id)
	}

	switch params.Name {
	case "beam_media", "control_playback", "stop_beaming", "disconnect_device", "submit_pin", "playback_status":
		if s.beamController == nil {
			return s.sendToolInternalError(params.Name, "", "", startedAt, id, "beam controller is not configured")
		}
	}

	switch params.Name {
	case "list_local_hardware":
		return s.handleListLocalHardwareCall(ctx, id, params.Arguments)
	case "beam_media":
		return s.handleBeamMediaCall(ctx, id, params.Arguments)
	case "control_playback":
		return s.handleControlPlaybackCall(ctx, id, params.Arguments)
	case "stop_beaming":
		return s.handleStopBeamingCall(ctx, id, params.Arguments)
	case "disconnect_device":
		return s.handleDisconnectDeviceCall(ctx, id, params.Arguments)
	case "submit_pin":
		return s.handleSubmitPINCall(ctx, id, params.Arguments)
	case "playback_status":
		return s.handlePlaybackStatusCall(ctx, id, params.Arguments)
	default:
		s.logCall(params.Name, "", "", startedAt, "TOOL_NOT_FOUND")
		return s.send(resultResponse(id, toolErrorResult(
			"TOOL_NOT_FOUND",
			fmt.Sprintf("unknown tool: %s", params.Name),
		)))
	}
}

func decodeToolCallParams(raw json.RawMessage) (toolsCallParams, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return toolsCallParams{}, err
	}

	nameRaw, ok := payload["name"]
	if !ok {
		return toolsCallParams{}, fmt.Errorf("missing tool name")
	}

	var name string
	if err := json.Unmarshal(nameRaw, &name); err != nil {
		return toolsCallParams{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return toolsCallParams{}, fmt.Errorf("missing tool name")
	}

	arguments, ok := payload["arguments"]
	if !ok {
		flattened := map[string]json.RawMessage{}
		for key, value := range payload {
			if key == "name" || key == "_meta" {
				continue
			}
			flattened[key] = value
		}
		if len(flattened) > 0 {
			normalized, err := json.Marshal(flattened)
			if err != nil {
				return toolsCallParams{}, err
			}
			arguments = normalized
		}
	}

	if len(bytes.TrimSpace(arguments)) == 0 || bytes.Equal(bytes.TrimSpace(arguments), []byte("null")) {
		arguments = json.RawMessage("{}")
	}

	return toolsCallParams{
		Name:      name,
		Arguments: arguments,
	}, nil
}

func (s *Server) handleBeamMediaCall(ctx context.Context, id json.RawMessage, rawArgs json.RawMessage) error {
	startedAt := time.Now()

	var args struct {
		Source        string   `json:"source"`
		TargetDevice  string   `json:"target_device"`
		StartPosition *float64 `json:"start_position,omitempty"`
	}
	if err := decodeStrict(rawArgs, &args); err != nil {
		return s.sendInvalidParams("beam_media", "", "", startedAt, id)
	}

	args.Source = strings.TrimSpace(args.Source)
	args.TargetDevice = strings.TrimSpace(args.TargetDevice)
	if args.Source == "" || args.TargetDevice == "" {
		return s.sendInvalidParams("beam_media", args.TargetDevice, "", startedAt, id)
	}
	startPosition := 0.0
	if args.StartPosition != nil {
		if *args.StartPosition < 0 || *args.StartPosition > 1 {
			return s.sendInvalidParams("beam_media", args.TargetDevice, "", startedAt, id)
		}
		startPosition = *args.StartPosition
	}

	result, err := s.beamController.BeamMedia(ctx, domain.BeamRequest{
		Source:        args.Source,
		TargetDevice:  args.TargetDevice,
		StartPosition: startPosition,
	})
	if err != nil {
		return s.sendToolFailure("beam_media", args.TargetDevice, "", startedAt, id, err)
	}
	s.logCall("beam_media", result.DeviceID, result.SessionID, startedAt, "")

	text := fmt.Sprintf("Beam started on device %s (session %s).", result.DeviceID, result.SessionID)
	if result.CredentialPending {
		text = fmt.Sprintf("Device %s is asking for a PIN. Call submit_pin with the code shown on screen (session %s).", result.DeviceID, result.SessionID)
	}
	return s.sendToolResult(id, text, result)
}

func (s *Server) handleControlPlaybackCall(ctx context.Context, id json.RawMessage, rawArgs json.RawMessage) error {
	startedAt := time.Now()

	var args struct {
		Action   string   `json:"action"`
		Position *float64 `json:"position,omitempty"`
	}
	if err := decodeStrict(rawArgs, &args); err != nil {
		return s.sendInvalidParams("control_playback", "", "", startedAt, id)
	}
	action := strings.ToLower(strings.TrimSpace(args.Action))
	switch action {
	case "play", "pause":
		if args.Position != nil {
			return s.sendInvalidParams("control_playback", "", "", startedAt, id)
		}
	case "seek":
		if args.Position == nil || *args.Position < 0 {
			return s.sendInvalidParams("control_playback", "", "", startedAt, id)
		}
	default:
		return s.sendInvalidParams("control_playback", "", "", startedAt, id)
	}

	req := domain.ControlRequest{Action: action}
	if args.Position != nil {
		req.Position = *args.Position
	}
	result, err := s.beamController.ControlPlayback(ctx, req)
	if err != nil {
		return s.sendToolFailure("control_playback", "", "", startedAt, id, err)
	}
	s.logCall("control_playback", "", result.SessionID, startedAt, "")

	text := fmt.Sprintf("Sent %s to session %s.", result.Action, result.SessionID)
	if !result.Issued {
		text = fmt.Sprintf("Playback is already in the requested state; %s was not sent.", result.Action)
	}
	return s.sendToolResult(id, text, result)
}

func (s *Server) handleStopBeamingCall(ctx context.Context, id json.RawMessage, rawArgs json.RawMessage) error {
	startedAt := time.Now()

	var args struct {
		TargetDevice *string `json:"target_device,omitempty"`
		SessionID    *string `json:"session_id,omitempty"`
	}
	if err := decodeStrict(rawArgs, &args); err != nil {
		return s.sendInvalidParams("stop_beaming", "", "", startedAt, id)
	}

	targetDevice := ""
	sessionID := ""
	if args.TargetDevice != nil {
		targetDevice = strings.TrimSpace(*args.TargetDevice)
	}
	if args.SessionID != nil {
		sessionID = strings.TrimSpace(*args.SessionID)
	}
	if targetDevice == "" && sessionID == "" {
		return s.sendInvalidParams("stop_beaming", targetDevice, sessionID, startedAt, id)
	}

	result, err := s.beamController.StopBeaming(ctx, domain.StopRequest{
		TargetDevice: targetDevice,
		SessionID:    sessionID,
	})
	if err != nil {
		return s.sendToolFailure("stop_beaming", targetDevice, sessionID, startedAt, id, err)
	}
	s.logCall("stop_beaming", result.DeviceID, result.StoppedSessionID, startedAt, "")

	return s.sendToolResult(id, fmt.Sprintf("Stopped beaming session %s.", result.StoppedSessionID), result)
}

func (s *Server) handleDisconnectDeviceCall(ctx context.Context, id json.RawMessage, rawArgs json.RawMessage) error {
	startedAt := time.Now()

	var args struct {
		TargetDevice *string `json:"target_device,omitempty"`
	}
	if err := decodeStrict(rawArgs, &args); err != nil {
		return s.sendInvalidParams("disconnect_device", "", "", startedAt, id)
	}
	target := ""
	if args.TargetDevice != nil {
		target = strings.TrimSpace(*args.TargetDevice)
	}

	result, err := s.beamController.DisconnectDevice(ctx, target)
	if err != nil {
		return s.sendToolFailure("disconnect_device", target, "", startedAt, id, err)
	}
	s.logCall("disconnect_device", result.DeviceID, "", startedAt, "")

	return s.sendToolResult(id, fmt.Sprintf("Disconnected from device %s.", result.DeviceID), result)
}

func (s *Server) handleSubmitPINCall(ctx context.Context, id json.RawMessage, rawArgs json.RawMessage) error {
	startedAt := time.Now()

	var args struct {
		PIN string `json:"pin"`
	}
	if err := decodeStrict(rawArgs, &args); err != nil {
		return s.sendInvalidParams("submit_pin", "", "", startedAt, id)
	}
	pin := strings.TrimSpace(args.PIN)
	if pin == "" {
		return s.sendInvalidParams("submit_pin", "", "", startedAt, id)
	}

	result, err := s.beamController.SubmitPIN(ctx, pin)
	if err != nil {
		return s.sendToolFailure("submit_pin", "", "", startedAt, id, err)
	}
	// The PIN itself is never logged.
	s.logCall("submit_pin", result.DeviceID, "", startedAt, "")

	return s.sendToolResult(id, fmt.Sprintf("PIN sent to device %s.", result.DeviceID), result)
}

func (s *Server) handlePlaybackStatusCall(ctx context.Context, id json.RawMessage, rawArgs json.RawMessage) error {
	startedAt := time.Now()

	var args struct{}
	if err := decodeStrict(rawArgs, &args); err != nil {
		return s.sendInvalidParams("playback_status", "", "", startedAt, id)
	}

	status, err := s.beamController.Status(ctx)
	if err != nil {
		return s.sendToolFailure("playback_status", "", "", startedAt, id, err)
	}
	s.logCall("playback_status", status.DeviceID, status.SessionID, startedAt, "")

	return s.sendToolResult(id, formatStatus(status), status)
}

func (s *Server) handleListLocalHardwareCall(ctx context.Context, id json.RawMessage, rawArgs json.RawMessage) error {
	startedAt := time.Now()

	if s.localHardwareLister == nil {
		return s.sendToolInternalError("list_local_hardware", "", "", startedAt, id, "discovery service is not configured")
	}

	timeoutMS := defaultDiscoveryTimeoutMS
	includeUnreachable := false
	if len(rawArgs) > 0 {
		var args struct {
			TimeoutMS          *int  `json:"timeout_ms,omitempty"`
			IncludeUnreachable *bool `json:"include_unreachable,omitempty"`
		}
		if err := decodeStrict(rawArgs, &args); err != nil {
			return s.sendInvalidParams("list_local_hardware", "", "", startedAt, id)
		}
		if args.TimeoutMS != nil {
			if *args.TimeoutMS < minDiscoveryTimeoutMS {
				return s.sendInvalidParams("list_local_hardware", "", "", startedAt, id)
			}
			timeoutMS = *args.TimeoutMS
		}
		if args.IncludeUnreachable != nil {
			includeUnreachable = *args.IncludeUnreachable
		}
	}
	s.logLifecycle(
		slog.LevelDebug,
		"list_local_hardware_request",
		slog.Int("timeout_ms", timeoutMS),
		slog.Bool("include_unreachable", includeUnreachable),
	)

	devices, err := s.localHardwareLister.ListLocalHardware(ctx, timeoutMS, includeUnreachable)
	if err != nil {
		s.logCall("list_local_hardware", "", "", startedAt, "INTERNAL_ERROR")
		return s.send(resultResponse(id, toolErrorResult("INTERNAL_ERROR", err.Error())))
	}
	s.logLifecycle(slog.LevelDebug, "list_local_hardware_result", slog.Int("discovered_count", len(devices)))
	s.logCall("list_local_hardware", "", "", startedAt, "")
	summaryText := fmt.Sprintf("Discovered %d AirPlay receiver(s).", len(devices))
	if len(devices) > 0 {
		summaryText += "\n" + formatDiscoveredDevices(devices)
	}

	return s.sendToolResult(id, summaryText, map[string]any{
		"count":   len(devices),
		"devices": devices,
	})
}

func decodeStrict(raw json.RawMessage, out any) error {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return err
	}
	if decoder.More() {
		return fmt.Errorf("invalid JSON payload")
	}
	var trailing any
	if err := decoder.Decode(&trailing); err != io.EOF {
		return fmt.Errorf("invalid JSON payload")
	}
	return nil
}

func (s *Server) sendToolResult(id json.RawMessage, text string, structured any) error {
	return s.send(resultResponse(id, toolCallResult{
		Content:           textContent(text),
		StructuredContent: structured,
	}))
}

func (s *Server) sendToolFailure(method, deviceID, sessionID string, startedAt time.Time, id json.RawMessage, err error) error {
	s.logCall(method, deviceID, sessionID, startedAt, toolErrorCode(err))
	return s.send(resultResponse(id, toolErrorResultFromError(err)))
}

func (s *Server) sendInvalidParams(method, deviceID, sessionID string, startedAt time.Time, id json.RawMessage) error {
	s.logCall(method, deviceID, sessionID, startedAt, "-32602")
	return s.send(errorResponse(id, codeInvalidParams))
}

func (s *Server) sendToolInternalError(method, deviceID, sessionID string, startedAt time.Time, id json.RawMessage, message string) error {
	s.logCall(method, deviceID, sessionID, startedAt, "INTERNAL_ERROR")
	return s.send(resultResponse(id, toolErrorResult("INTERNAL_ERROR", message)))
}

func toolErrorResult(code, message string) toolCallResult {
	return toolCallResult{
		Content: textContent(fmt.Sprintf("%s: %s", code, message)),
		StructuredContent: map[string]any{
			"error": map[string]string{
				"code":    code,
				"message": message,
			},
		},
		IsError: true,
	}
}

func toolErrorResultFromError(err error) toolCallResult {
	var tErr *domain.ToolError
	if errors.As(err, &tErr) && tErr != nil {
		result := toolErrorResult(tErr.Code, tErr.Message)
		structured := map[string]any{
			"code":    tErr.Code,
			"message": tErr.Message,
		}
		if len(tErr.Limitations) > 0 {
			structured["limitations"] = tErr.Limitations
		}
		if len(tErr.SuggestedFixes) > 0 {
			structured["suggested_fixes"] = tErr.SuggestedFixes
		}
		if len(tErr.Details) > 0 {
			structured["details"] = tErr.Details
		}
		result.StructuredContent = map[string]any{"error": structured}
		return result
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return toolErrorResult("INTERNAL_ERROR", "request cancelled: "+err.Error())
	}
	return toolErrorResult("INTERNAL_ERROR", err.Error())
}

func toolErrorCode(err error) string {
	var tErr *domain.ToolError
	if errors.As(err, &tErr) && tErr != nil && strings.TrimSpace(tErr.Code) != "" {
		return tErr.Code
	}
	return "INTERNAL_ERROR"
}

func (s *Server) logCall(method, deviceID, sessionID string, startedAt time.Time, errorCode string) {
	if s == nil || s.logger == nil {
		return
	}
	level := slog.LevelInfo
	if strings.TrimSpace(errorCode) != "" {
		level = slog.LevelError
	}

	s.logger.Log(
		context.Background(),
		level,
		"mcp_call",
		slog.String("method", strings.TrimSpace(method)),
		slog.String("device_id", strings.TrimSpace(deviceID)),
		slog.String("session_id", strings.TrimSpace(sessionID)),
		slog.Int64("duration_ms", time.Since(startedAt).Milliseconds()),
		slog.String("error_code", strings.TrimSpace(errorCode)),
	)
}

func (s *Server) send(resp response) error {
	encoded, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.writeLocked(encoded)
}

func (s *Server) writeLocked(encoded []byte) error {
	s.logLifecycle(slog.LevelDebug, "mcp_send", slog.Int("bytes", len(encoded)))
	if s.useJSONLineOutput {
		return writeJSONLineMessage(s.out, encoded)
	}
	return writeFramedMessage(s.out, encoded)
}

func (s *Server) logLifecycle(level slog.Level, msg string, attrs ...any) {
	if s == nil || s.logger == nil {
		return
	}
	s.logger.Log(context.Background(), level, msg, attrs...)
}

func formatDiscoveredDevices(devices []domain.Device) string {
	var out strings.Builder
	for i, dev := range devices {
		if i > 0 {
			out.WriteByte('\n')
		}
		fmt.Fprintf(
			&out,
			"%d. id=%s name=%s model=%s address=%s password=%t",
			i+1,
			strings.TrimSpace(dev.ID),
			strings.TrimSpace(dev.Name),
			strings.TrimSpace(dev.Model),
			strings.TrimSpace(dev.Address),
			dev.RequiresPassword,
		)
	}
	return out.String()
}

func formatStatus(status *domain.PlaybackStatus) string {
	if status.DeviceID == "" {
		return fmt.Sprintf("Not connected (%s).", status.Connection)
	}
	text := fmt.Sprintf(
		"%s on %s: %s at %.1fs (ready=%t).",
		status.Connection,
		status.DeviceName,
		status.State,
		status.Position,
		status.Ready,
	)
	if status.CredentialPending {
		text += " Waiting for submit_pin."
	}
	if status.LastFailure != nil {
		text += fmt.Sprintf(" Last failure: %s (%s).", status.LastFailure.Reason, status.LastFailure.Command)
	}
	return text
}

func staticTools() []tool {
	return []tool{
		{
			Name:        "list_local_hardware",
			Description: "Discover AirPlay receivers (Apple TV and AirPlay-capable TVs) on the local network. Call this first to find 'target_device' IDs or names.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"timeout_ms": map[string]any{
						"type":        "integer",
						"minimum":     minDiscoveryTimeoutMS,
						"default":     defaultDiscoveryTimeoutMS,
						"description": "mDNS browse timeout in milliseconds. Increase this if receivers are slow to answer.",
					},
					"include_unreachable": map[string]any{
						"type":        "boolean",
						"default":     false,
						"description": "Include receivers that fail an immediate TCP reachability check.",
					},
				},
				"additionalProperties": false,
			},
		},
		{
			Name:        "beam_media",
			Description: "Play a video on an AirPlay receiver. Local files are served over HTTP from this machine; URLs are fetched by the receiver directly.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"source": map[string]any{
						"type":        "string",
						"description": "Absolute local file path (e.g., /home/user/movie.mp4) or an http/https URL, including HLS .m3u8 playlists.",
					},
					"target_device": map[string]any{
						"type":        "string",
						"description": "Receiver ID or name from 'list_local_hardware'.",
					},
					"start_position": map[string]any{
						"type":        "number",
						"minimum":     0,
						"maximum":     1,
						"default":     0,
						"description": "Fraction of the media to start at, from 0 to 1.",
					},
				},
				"required":             []string{"source", "target_device"},
				"additionalProperties": false,
			},
		},
		{
			Name:        "control_playback",
			Description: "Pause, resume or seek the media playing on the connected receiver.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"action": map[string]any{
						"type": "string",
						"enum": []string{"play", "pause", "seek"},
					},
					"position": map[string]any{
						"type":        "number",
						"minimum":     0,
						"description": "Seek target in seconds. Required for 'seek'.",
					},
				},
				"required":             []string{"action"},
				"additionalProperties": false,
			},
		},
		{
			Name:        "stop_beaming",
			Description: "Stop playback on the connected receiver. The connection stays open.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"target_device": map[string]any{
						"type":        "string",
						"description": "The receiver ID or name to stop.",
					},
					"session_id": map[string]any{
						"type":        "string",
						"description": "The session ID returned by 'beam_media'.",
					},
				},
				"anyOf": []map[string]any{
					{"required": []string{"target_device"}},
					{"required": []string{"session_id"}},
				},
				"additionalProperties": false,
			},
		},
		{
			Name:        "disconnect_device",
			Description: "Stop playback and drop the connection to the current receiver.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"target_device": map[string]any{
						"type":        "string",
						"description": "Optional receiver ID or name; must match the connected receiver.",
					},
				},
				"additionalProperties": false,
			},
		},
		{
			Name:        "submit_pin",
			Description: "Answer a receiver's PIN or password request. Use it when beam_media or playback_status reports credential_pending.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"pin": map[string]any{
						"type":        "string",
						"description": "The code shown on the TV, or the receiver's AirPlay password.",
					},
				},
				"required":             []string{"pin"},
				"additionalProperties": false,
			},
		},
		{
			Name:        "playback_status",
			Description: "Report the connection, playback state, position and last failure of the current receiver.",
			InputSchema: map[string]any{
				"type":                 "object",
				"properties":           map[string]any{},
				"additionalProperties": false,
			},
		},
	}
}
