package mcpserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"go2tv.app/mcp-airplay/internal/domain"
)

type fakeLocalHardwareLister struct {
	timeoutMS          int
	includeUnreachable bool
	devices            []domain.Device
	err                error
}

func (f *fakeLocalHardwareLister) ListLocalHardware(ctx context.Context, timeoutMS int, includeUnreachable bool) ([]domain.Device, error) {
	f.timeoutMS = timeoutMS
	f.includeUnreachable = includeUnreachable
	return f.devices, f.err
}

type fakeBeamController struct {
	beamReq    domain.BeamRequest
	beamResult *domain.BeamResult
	beamErr    error

	controlReq    domain.ControlRequest
	controlResult *domain.ControlResult
	controlErr    error

	stopReq    domain.StopRequest
	stopResult *domain.StopResult
	stopErr    error

	disconnectTarget string
	disconnectResult *domain.DisconnectResult
	disconnectErr    error

	pin       string
	pinResult *domain.PINResult
	pinErr    error

	status    *domain.PlaybackStatus
	statusErr error
}

func (f *fakeBeamController) BeamMedia(ctx context.Context, req domain.BeamRequest) (*domain.BeamResult, error) {
	f.beamReq = req
	return f.beamResult, f.beamErr
}

func (f *fakeBeamController) ControlPlayback(ctx context.Context, req domain.ControlRequest) (*domain.ControlResult, error) {
	f.controlReq = req
	return f.controlResult, f.controlErr
}

func (f *fakeBeamController) StopBeaming(ctx context.Context, req domain.StopRequest) (*domain.StopResult, error) {
	f.stopReq = req
	return f.stopResult, f.stopErr
}

func (f *fakeBeamController) DisconnectDevice(ctx context.Context, target string) (*domain.DisconnectResult, error) {
	f.disconnectTarget = target
	return f.disconnectResult, f.disconnectErr
}

func (f *fakeBeamController) SubmitPIN(ctx context.Context, pin string) (*domain.PINResult, error) {
	f.pin = pin
	return f.pinResult, f.pinErr
}

func (f *fakeBeamController) Status(ctx context.Context) (*domain.PlaybackStatus, error) {
	return f.status, f.statusErr
}

func toolCall(id any, name string, args map[string]any) map[string]any {
	params := map[string]any{"name": name}
	if args != nil {
		params["arguments"] = args
	}
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "tools/call",
		"params":  params,
	}
}

// runServer feeds framed requests to a fresh server and returns its responses.
func runServer(t *testing.T, cfg Config, reqs ...map[string]any) []map[string]any {
	t.Helper()

	input := bytes.NewBuffer(nil)
	output := bytes.NewBuffer(nil)
	for _, req := range reqs {
		writeRequest(t, input, req)
	}

	srv := New(input, output, cfg)
	if err := srv.Run(context.Background()); err != nil {
		t.Fatalf("run server: %v", err)
	}
	responses := readResponses(t, output.Bytes())
	if len(responses) != len(reqs) {
		t.Fatalf("expected %d responses, got %d", len(reqs), len(responses))
	}
	return responses
}

func structuredOf(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	if resp["error"] != nil {
		t.Fatalf("expected successful tools/call, got error: %#v", resp["error"])
	}
	result := resp["result"].(map[string]any)
	return result["structuredContent"].(map[string]any)
}

func textOf(resp map[string]any) string {
	result := resp["result"].(map[string]any)
	content := result["content"].([]any)
	return content[0].(map[string]any)["text"].(string)
}

func expectRPCError(t *testing.T, resp map[string]any, code float64) {
	t.Helper()
	errObj, ok := resp["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected JSON-RPC error %v, got %#v", code, resp)
	}
	if errObj["code"].(float64) != code {
		t.Fatalf("expected %v, got %v", code, errObj["code"])
	}
}

func TestInitializeAndToolsList(t *testing.T) {
	responses := runServer(t, Config{ServerName: "mcp-airplay", ServerVersion: "1.0.0-test"},
		map[string]any{"jsonrpc": "2.0", "id": 1, "method": "initialize", "params": map[string]any{}},
		map[string]any{"jsonrpc": "2.0", "id": 2, "method": "tools/list"},
	)

	if responses[0]["id"].(float64) != 1 {
		t.Fatalf("initialize response id mismatch: %#v", responses[0]["id"])
	}
	initResult := responses[0]["result"].(map[string]any)
	if initResult["protocolVersion"].(string) == "" {
		t.Fatal("protocolVersion must not be empty")
	}
	capabilities := initResult["capabilities"].(map[string]any)
	if _, ok := capabilities["logging"]; !ok {
		t.Fatal("expected logging capability for event notifications")
	}

	tools := responses[1]["result"].(map[string]any)["tools"].([]any)
	var names []string
	for _, raw := range tools {
		names = append(names, raw.(map[string]any)["name"].(string))
	}
	want := "list_local_hardware,beam_media,control_playback,stop_beaming,disconnect_device,submit_pin,playback_status"
	if strings.Join(names, ",") != want {
		t.Fatalf("unexpected tools: %v", names)
	}
}

func TestInitializeJSONLineRequest(t *testing.T) {
	input := bytes.NewBuffer(nil)
	output := bytes.NewBuffer(nil)

	payload, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params":  map[string]any{},
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	if _, err := input.Write(append(payload, '\n')); err != nil {
		t.Fatalf("write request: %v", err)
	}

	srv := New(input, output, Config{})
	if err := srv.Run(context.Background()); err != nil {
		t.Fatalf("run server: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(output.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 response line, got %d", len(lines))
	}
	resp := map[string]any{}
	if err := json.Unmarshal([]byte(lines[0]), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp["id"].(float64) != 1 {
		t.Fatalf("initialize response id mismatch: %#v", resp["id"])
	}
}

func TestUnknownMethodAndBadVersion(t *testing.T) {
	responses := runServer(t, Config{},
		map[string]any{"jsonrpc": "2.0", "id": "abc", "method": "does/not/exist"},
		map[string]any{"jsonrpc": "1.0", "id": "badver", "method": "tools/list"},
	)
	expectRPCError(t, responses[0], -32601)
	expectRPCError(t, responses[1], -32600)
}

func TestNotificationsAreNotAnswered(t *testing.T) {
	input := bytes.NewBuffer(nil)
	output := bytes.NewBuffer(nil)
	writeRequest(t, input, map[string]any{"jsonrpc": "2.0", "method": "notifications/initialized"})

	srv := New(input, output, Config{})
	if err := srv.Run(context.Background()); err != nil {
		t.Fatalf("run server: %v", err)
	}
	if output.Len() != 0 {
		t.Fatalf("expected no output, got %q", output.String())
	}
}

func TestUnknownTool(t *testing.T) {
	responses := runServer(t, Config{}, toolCall(3, "set_volume", map[string]any{}))
	result := responses[0]["result"].(map[string]any)
	if !result["isError"].(bool) || !strings.HasPrefix(textOf(responses[0]), "TOOL_NOT_FOUND") {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestToolsCallWithoutController(t *testing.T) {
	responses := runServer(t, Config{}, toolCall(3, "playback_status", nil))
	if !strings.HasPrefix(textOf(responses[0]), "INTERNAL_ERROR") {
		t.Fatalf("unexpected text %q", textOf(responses[0]))
	}
}

func TestToolsCallListLocalHardware(t *testing.T) {
	lister := &fakeLocalHardwareLister{
		devices: []domain.Device{
			{ID: "dev_a", Name: "Bedroom", Model: "AppleTV5,3", Address: "192.168.1.10:7000", Protocol: domain.ProtocolAirPlay},
			{ID: "dev_b", Name: "Living Room", Model: "AppleTV3,2", Address: "192.168.1.20:7000", Protocol: domain.ProtocolAirPlay, RequiresPassword: true},
		},
	}

	responses := runServer(t, Config{LocalHardwareLister: lister}, toolCall(3, "list_local_hardware", map[string]any{
		"timeout_ms":          3000,
		"include_unreachable": true,
	}))

	structured := structuredOf(t, responses[0])
	if len(structured["devices"].([]any)) != 2 {
		t.Fatalf("expected 2 devices, got %v", structured["devices"])
	}
	if lister.timeoutMS != 3000 || !lister.includeUnreachable {
		t.Fatalf("arguments not forwarded: %+v", lister)
	}
	if text := textOf(responses[0]); !strings.Contains(text, "name=Living Room model=AppleTV3,2 address=192.168.1.20:7000 password=true") {
		t.Fatalf("unexpected summary: %q", text)
	}
}

func TestToolsCallListLocalHardwareClientFixtureMatrix(t *testing.T) {
	type fixture struct {
		Name    string         `json:"name"`
		Request map[string]any `json:"request"`
		Expect  struct {
			TimeoutMS          int  `json:"timeout_ms"`
			IncludeUnreachable bool `json:"include_unreachable"`
		} `json:"expect"`
	}

	entries, err := os.ReadDir("testdata/client-fixtures")
	if err != nil {
		t.Fatalf("read fixture dir: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected at least one client fixture")
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		path := filepath.Join("testdata/client-fixtures", entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read fixture %s: %v", path, err)
		}
		var f fixture
		if err := json.Unmarshal(raw, &f); err != nil {
			t.Fatalf("unmarshal fixture %s: %v", path, err)
		}

		t.Run(f.Name, func(t *testing.T) {
			lister := &fakeLocalHardwareLister{
				devices: []domain.Device{{ID: "dev_a", Name: "Living Room", Protocol: domain.ProtocolAirPlay}},
			}
			responses := runServer(t, Config{LocalHardwareLister: lister}, f.Request)
			structuredOf(t, responses[0])

			if lister.timeoutMS != f.Expect.TimeoutMS {
				t.Fatalf("expected timeout %d, got %d", f.Expect.TimeoutMS, lister.timeoutMS)
			}
			if lister.includeUnreachable != f.Expect.IncludeUnreachable {
				t.Fatalf("expected include_unreachable=%t, got %t", f.Expect.IncludeUnreachable, lister.includeUnreachable)
			}
		})
	}
}

func TestToolsCallListLocalHardwareErrors(t *testing.T) {
	lister := &fakeLocalHardwareLister{err: errors.New("no multicast interface")}
	responses := runServer(t, Config{LocalHardwareLister: lister},
		toolCall(4, "list_local_hardware", map[string]any{"timeout_ms": 99}),
		toolCall(5, "list_local_hardware", map[string]any{"timeout": 1000}),
		toolCall(6, "list_local_hardware", nil),
	)
	expectRPCError(t, responses[0], -32602)
	expectRPCError(t, responses[1], -32602)
	if text := textOf(responses[2]); text != "INTERNAL_ERROR: no multicast interface" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestToolsCallBeamMedia(t *testing.T) {
	controller := &fakeBeamController{
		beamResult: &domain.BeamResult{
			OK:        true,
			SessionID: "sess_123",
			DeviceID:  "dev_1",
			MediaURL:  "http://192.168.1.5:9000/media-abc.mp4",
			Served:    true,
			Warnings:  []string{},
		},
	}

	responses := runServer(t, Config{BeamController: controller}, toolCall(5, "beam_media", map[string]any{
		"source":         " /tmp/video.mp4 ",
		"target_device":  "dev_1",
		"start_position": 0.5,
	}))

	structured := structuredOf(t, responses[0])
	if structured["session_id"].(string) != "sess_123" || structured["served_locally"] != true {
		t.Fatalf("unexpected result: %v", structured)
	}
	if structured["credential_pending"] != false {
		t.Fatalf("expected credential_pending=false, got %v", structured["credential_pending"])
	}
	want := domain.BeamRequest{Source: "/tmp/video.mp4", TargetDevice: "dev_1", StartPosition: 0.5}
	if controller.beamReq != want {
		t.Fatalf("unexpected request forwarded: %+v", controller.beamReq)
	}
}

func TestToolsCallBeamMediaCredentialPending(t *testing.T) {
	controller := &fakeBeamController{
		beamResult: &domain.BeamResult{OK: true, SessionID: "sess_1", DeviceID: "dev_1", CredentialPending: true},
	}
	responses := runServer(t, Config{BeamController: controller}, toolCall(5, "beam_media", map[string]any{
		"source":        "https://example.com/a.m3u8",
		"target_device": "Living Room",
	}))
	if !strings.Contains(textOf(responses[0]), "submit_pin") {
		t.Fatalf("expected submit_pin hint, got %q", textOf(responses[0]))
	}
}

func TestToolsCallBeamMediaInvalidParams(t *testing.T) {
	controller := &fakeBeamController{}
	responses := runServer(t, Config{BeamController: controller},
		toolCall(1, "beam_media", map[string]any{"source": "/tmp/a.mp4"}),
		toolCall(2, "beam_media", map[string]any{"source": "/tmp/a.mp4", "target_device": "dev_1", "transcode": "never"}),
		toolCall(3, "beam_media", map[string]any{"source": "/tmp/a.mp4", "target_device": "dev_1", "start_position": 1.5}),
		toolCall(4, "beam_media", map[string]any{"source": "/tmp/a.mp4", "target_device": "dev_1", "start_position": -0.1}),
	)
	for _, resp := range responses {
		expectRPCError(t, resp, -32602)
	}
	if controller.beamReq.Source != "" {
		t.Fatalf("invalid calls must not reach the controller: %+v", controller.beamReq)
	}
}

func TestToolsCallBeamMediaStructuredLog(t *testing.T) {
	logOutput := bytes.NewBuffer(nil)
	logger := slog.New(slog.NewJSONHandler(logOutput, nil))
	controller := &fakeBeamController{
		beamResult: &domain.BeamResult{OK: true, SessionID: "sess_123", DeviceID: "dev_1", Warnings: []string{}},
	}

	runServer(t, Config{BeamController: controller, Logger: logger}, toolCall(10, "beam_media", map[string]any{
		"source":        "/tmp/video.mp4",
		"target_device": "dev_1",
	}))

	lines := strings.Split(strings.TrimSpace(logOutput.String()), "\n")
	var logEntry map[string]any
	for _, line := range lines {
		candidate := map[string]any{}
		if err := json.Unmarshal([]byte(line), &candidate); err != nil {
			t.Fatalf("unmarshal log line: %v", err)
		}
		if candidate["msg"] == "mcp_call" {
			logEntry = candidate
			break
		}
	}
	if len(logEntry) == 0 {
		t.Fatalf("missing mcp_call log entry; got %d total log line(s)", len(lines))
	}

	if logEntry["level"] != "INFO" || logEntry["method"] != "beam_media" {
		t.Fatalf("unexpected entry: %v", logEntry)
	}
	if logEntry["device_id"] != "dev_1" || logEntry["session_id"] != "sess_123" {
		t.Fatalf("unexpected ids: %v", logEntry)
	}
	if _, ok := logEntry["duration_ms"]; !ok {
		t.Fatal("expected duration_ms field")
	}
	if logEntry["error_code"] != "" {
		t.Fatalf("expected empty error_code, got %v", logEntry["error_code"])
	}
}

func TestToolsCallBeamMediaToolErrorIncludesDetails(t *testing.T) {
	controller := &fakeBeamController{
		beamErr: &domain.ToolError{
			Code:    "LOOPBACK_URL_BLOCKED",
			Message: "localhost and loopback URL hosts are blocked by default",
			Limitations: []domain.Limitation{
				{Code: "URL_LOOPBACK_BLOCKED", Message: "blocked"},
			},
			SuggestedFixes: []string{"use a LAN URL"},
			Details: map[string]any{
				"host": "127.0.0.1",
			},
		},
	}

	responses := runServer(t, Config{BeamController: controller}, toolCall(8, "beam_media", map[string]any{
		"source":        "http://127.0.0.1/video.mp4",
		"target_device": "dev_1",
	}))

	result := responses[0]["result"].(map[string]any)
	if !result["isError"].(bool) {
		t.Fatal("expected isError=true")
	}
	errObj := result["structuredContent"].(map[string]any)["error"].(map[string]any)
	if errObj["code"].(string) != "LOOPBACK_URL_BLOCKED" {
		t.Fatalf("unexpected error code: %v", errObj["code"])
	}
	details, ok := errObj["details"].(map[string]any)
	if !ok || details["host"].(string) != "127.0.0.1" {
		t.Fatalf("unexpected details: %v", errObj["details"])
	}
	if fixes := errObj["suggested_fixes"].([]any); len(fixes) != 1 {
		t.Fatalf("unexpected suggested fixes: %v", fixes)
	}
}

func TestToolsCallControlPlayback(t *testing.T) {
	controller := &fakeBeamController{
		controlResult: &domain.ControlResult{OK: true, Action: "seek", SessionID: "sess_1", Issued: true},
	}

	responses := runServer(t, Config{BeamController: controller},
		toolCall(1, "control_playback", map[string]any{"action": "SEEK", "position": 42.5}),
		toolCall(2, "control_playback", map[string]any{"action": "seek"}),
		toolCall(3, "control_playback", map[string]any{"action": "pause", "position": 3}),
		toolCall(4, "control_playback", map[string]any{"action": "volume"}),
	)

	structured := structuredOf(t, responses[0])
	if structured["issued"] != true {
		t.Fatalf("unexpected result: %v", structured)
	}
	if controller.controlReq != (domain.ControlRequest{Action: "seek", Position: 42.5}) {
		t.Fatalf("unexpected request: %+v", controller.controlReq)
	}
	for _, resp := range responses[1:] {
		expectRPCError(t, resp, -32602)
	}
}

func TestToolsCallControlPlaybackNotIssued(t *testing.T) {
	controller := &fakeBeamController{
		controlResult: &domain.ControlResult{OK: true, Action: "play", SessionID: "sess_1", Issued: false},
	}
	responses := runServer(t, Config{BeamController: controller}, toolCall(1, "control_playback", map[string]any{"action": "play"}))
	if !strings.Contains(textOf(responses[0]), "already") {
		t.Fatalf("unexpected text %q", textOf(responses[0]))
	}
}

func TestToolsCallControlPlaybackNoSession(t *testing.T) {
	controller := &fakeBeamController{
		controlErr: &domain.ToolError{Code: "NO_ACTIVE_SESSION", Message: "no AirPlay receiver is connected"},
	}
	responses := runServer(t, Config{BeamController: controller}, toolCall(1, "control_playback", map[string]any{"action": "pause"}))
	if text := textOf(responses[0]); !strings.HasPrefix(text, "NO_ACTIVE_SESSION") {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestToolsCallStopBeaming(t *testing.T) {
	controller := &fakeBeamController{
		stopResult: &domain.StopResult{
			OK:               true,
			StoppedSessionID: "sess_123",
			DeviceID:         "dev_1",
		},
	}

	responses := runServer(t, Config{BeamController: controller},
		toolCall(6, "stop_beaming", map[string]any{"session_id": "sess_123"}),
		toolCall(7, "stop_beaming", map[string]any{}),
	)

	structured := structuredOf(t, responses[0])
	if structured["stopped_session_id"].(string) != "sess_123" {
		t.Fatalf("unexpected stopped_session_id: %v", structured["stopped_session_id"])
	}
	if controller.stopReq.SessionID != "sess_123" {
		t.Fatalf("unexpected stop request session: %s", controller.stopReq.SessionID)
	}
	expectRPCError(t, responses[1], -32602)
}

func TestToolsCallStopBeamingJSONLine(t *testing.T) {
	input := bytes.NewBuffer(nil)
	output := bytes.NewBuffer(nil)
	controller := &fakeBeamController{
		stopResult: &domain.StopResult{OK: true, StoppedSessionID: "sess_json_stop", DeviceID: "dev_json_stop"},
	}

	payload, err := json.Marshal(toolCall(77, "stop_beaming", map[string]any{"target_device": "dev_json_stop"}))
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	if _, err := input.Write(append(payload, '\n')); err != nil {
		t.Fatalf("write request: %v", err)
	}

	srv := New(input, output, Config{BeamController: controller})
	if err := srv.Run(context.Background()); err != nil {
		t.Fatalf("run server: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(output.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 response line, got %d", len(lines))
	}
	resp := map[string]any{}
	if err := json.Unmarshal([]byte(lines[0]), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp["id"].(float64) != 77 {
		t.Fatalf("tools/call response id mismatch: %#v", resp["id"])
	}
	if controller.stopReq.TargetDevice != "dev_json_stop" {
		t.Fatalf("unexpected stop request: %+v", controller.stopReq)
	}
}

func TestToolsCallDisconnectDevice(t *testing.T) {
	controller := &fakeBeamController{
		disconnectResult: &domain.DisconnectResult{OK: true, DeviceID: "dev_1"},
	}
	responses := runServer(t, Config{BeamController: controller},
		toolCall(1, "disconnect_device", nil),
		toolCall(2, "disconnect_device", map[string]any{"target_device": " Living Room "}),
	)
	structuredOf(t, responses[0])
	if controller.disconnectTarget != "Living Room" {
		t.Fatalf("unexpected target %q", controller.disconnectTarget)
	}
}

func TestToolsCallSubmitPIN(t *testing.T) {
	logOutput := bytes.NewBuffer(nil)
	logger := slog.New(slog.NewJSONHandler(logOutput, nil))
	controller := &fakeBeamController{
		pinResult: &domain.PINResult{OK: true, DeviceID: "dev_1"},
	}

	responses := runServer(t, Config{BeamController: controller, Logger: logger},
		toolCall(1, "submit_pin", map[string]any{"pin": "4821"}),
		toolCall(2, "submit_pin", map[string]any{"pin": "  "}),
	)
	if structured := structuredOf(t, responses[0]); structured["device_id"] != "dev_1" {
		t.Fatalf("unexpected result: %v", structured)
	}
	if controller.pin != "4821" {
		t.Fatalf("unexpected pin forwarded: %q", controller.pin)
	}
	expectRPCError(t, responses[1], -32602)
	if strings.Contains(logOutput.String(), "4821") {
		t.Fatal("PIN must not appear in logs")
	}
}

func TestToolsCallSubmitPINWithoutPrompt(t *testing.T) {
	controller := &fakeBeamController{
		pinErr: &domain.ToolError{Code: "NO_PENDING_PROMPT", Message: "no receiver is waiting for a PIN"},
	}
	responses := runServer(t, Config{BeamController: controller}, toolCall(1, "submit_pin", map[string]any{"pin": "1234"}))
	if text := textOf(responses[0]); !strings.HasPrefix(text, "NO_PENDING_PROMPT") {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestToolsCallPlaybackStatus(t *testing.T) {
	controller := &fakeBeamController{
		status: &domain.PlaybackStatus{
			Connection:        "connected",
			DeviceID:          "dev_1",
			DeviceName:        "Living Room",
			SessionID:         "sess_1",
			State:             "playing",
			Position:          12.3,
			Ready:             true,
			CredentialPending: true,
			LastFailure:       &domain.CommandFailure{Command: "playback-info", Reason: "Cannot get playback info"},
		},
	}

	responses := runServer(t, Config{BeamController: controller},
		toolCall(1, "playback_status", nil),
		toolCall(2, "playback_status", map[string]any{"verbose": true}),
	)
	structured := structuredOf(t, responses[0])
	if structured["state"] != "playing" || structured["position"].(float64) != 12.3 {
		t.Fatalf("unexpected status: %v", structured)
	}
	text := textOf(responses[0])
	for _, want := range []string{"connected on Living Room", "playing at 12.3s", "submit_pin", "Cannot get playback info"} {
		if !strings.Contains(text, want) {
			t.Fatalf("status text %q missing %q", text, want)
		}
	}
	expectRPCError(t, responses[1], -32602)
}

func TestFormatStatusDisconnected(t *testing.T) {
	if got := formatStatus(&domain.PlaybackStatus{Connection: "disconnected"}); got != "Not connected (disconnected)." {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestEventNotificationsFollowInitialize(t *testing.T) {
	input := bytes.NewBuffer(nil)
	output := bytes.NewBuffer(nil)
	writeRequest(t, input, map[string]any{"jsonrpc": "2.0", "id": 1, "method": "initialize", "params": map[string]any{}})

	srv := New(input, output, Config{})
	device := domain.Device{ID: "dev_1", Name: "Living Room", Address: "192.168.1.20:7000"}

	// Before initialize nothing is written.
	srv.DeviceSelected(device)
	if output.Len() != 0 {
		t.Fatalf("unexpected early output %q", output.String())
	}

	if err := srv.Run(context.Background()); err != nil {
		t.Fatalf("run server: %v", err)
	}
	srv.Connected(device)
	srv.PlaybackChanged(true, 3.5)
	srv.CommandFailed("play", "Failed to play media")
	srv.Disconnected()

	messages := readResponses(t, output.Bytes())
	if len(messages) != 5 {
		t.Fatalf("expected initialize response and 4 notifications, got %d", len(messages))
	}

	var events []string
	for _, msg := range messages[1:] {
		if msg["method"] != "notifications/message" {
			t.Fatalf("unexpected message: %v", msg)
		}
		if _, hasID := msg["id"]; hasID {
			t.Fatalf("notifications must not carry an id: %v", msg)
		}
		params := msg["params"].(map[string]any)
		if params["logger"] != notificationLogger {
			t.Fatalf("unexpected logger: %v", params["logger"])
		}
		events = append(events, params["data"].(map[string]any)["event"].(string))
	}
	if got := strings.Join(events, ","); got != "connected,playback_changed,command_failed,disconnected" {
		t.Fatalf("unexpected events %s", got)
	}

	connected := messages[1]["params"].(map[string]any)["data"].(map[string]any)
	if connected["device_id"] != "dev_1" || connected["name"] != "Living Room" {
		t.Fatalf("unexpected connected payload: %v", connected)
	}
	failed := messages[3]["params"].(map[string]any)
	if failed["level"] != "error" || failed["data"].(map[string]any)["reason"] != "Failed to play media" {
		t.Fatalf("unexpected failure payload: %v", failed)
	}
}

func TestDecodeStrictRejectsTrailingJSON(t *testing.T) {
	var payload struct {
		Value string `json:"value"`
	}

	err := decodeStrict(json.RawMessage(`{"value":"ok"}{"value":"extra"}`), &payload)
	if err == nil {
		t.Fatal("expected error for trailing JSON payload")
	}
}

func writeRequest(t *testing.T, w io.Writer, req map[string]any) {
	t.Helper()

	payload, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	if _, err := w.Write([]byte("Content-Length: ")); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if _, err := w.Write([]byte(strconv.Itoa(len(payload)))); err != nil {
		t.Fatalf("write length: %v", err)
	}
	if _, err := w.Write([]byte("\r\n\r\n")); err != nil {
		t.Fatalf("write separator: %v", err)
	}
	if _, err := w.Write(payload); err != nil {
		t.Fatalf("write payload: %v", err)
	}
}

func readResponses(t *testing.T, output []byte) []map[string]any {
	t.Helper()

	reader := bufio.NewReader(bytes.NewReader(output))
	var responses []map[string]any
	for {
		msg, _, err := readMessage(reader)
		if err != nil {
			if err == io.EOF {
				break
			}
			t.Fatalf("read response: %v", err)
		}

		resp := map[string]any{}
		if err := json.Unmarshal(msg, &resp); err != nil {
			t.Fatalf("unmarshal response: %v", err)
		}
		responses = append(responses, resp)
	}

	return responses
}
