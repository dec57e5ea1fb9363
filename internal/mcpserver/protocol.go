package mcpserver

import "encoding/json"

const (
	jsonrpcVersion  = "2.0"
	protocolVersion = "2024-11-05"

	methodInitialize    = "initialize"
	methodToolsList     = "tools/list"
	methodToolsCall     = "tools/call"
	methodLogMessage    = "notifications/message"
	notificationLogger  = "airplay"
	serverInstructions  = "Call list_local_hardware to find AirPlay receivers, then beam_media. Receiver events arrive as notifications/message."
	contentTypeTextItem = "text"
)

// JSON-RPC error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

var errorMessages = map[int]string{
	codeParseError:     "parse error",
	codeInvalidRequest: "invalid request",
	codeMethodNotFound: "method not found",
	codeInvalidParams:  "invalid params",
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// isNotification reports whether the peer expects no answer.
func (r request) isNotification() bool {
	return len(r.ID) == 0
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *responseError  `json:"error,omitempty"`
}

func resultResponse(id json.RawMessage, result any) response {
	return response{JSONRPC: jsonrpcVersion, ID: id, Result: result}
}

func errorResponse(id json.RawMessage, code int) response {
	return response{
		JSONRPC: jsonrpcVersion,
		ID:      id,
		Error:   &responseError{Code: code, Message: errorMessages[code]},
	}
}

type responseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// notification is a server-initiated message; it carries no id.
type notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type logMessageParams struct {
	Level  string         `json:"level"`
	Logger string         `json:"logger"`
	Data   map[string]any `json:"data"`
}

func logMessage(level string, data map[string]any) notification {
	return notification{
		JSONRPC: jsonrpcVersion,
		Method:  methodLogMessage,
		Params: logMessageParams{
			Level:  level,
			Logger: notificationLogger,
			Data:   data,
		},
	}
}

type initializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    serverCapabilities `json:"capabilities"`
	ServerInfo      serverInfo         `json:"serverInfo"`
	Instructions    string             `json:"instructions,omitempty"`
}

// serverCapabilities advertises tools plus logging, which carries receiver
// events.
type serverCapabilities struct {
	Tools   toolsCapability `json:"tools"`
	Logging struct{}        `json:"logging"`
}

type toolsCapability struct {
	ListChanged bool `json:"listChanged"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type toolsListResult struct {
	Tools []tool `json:"tools"`
}

type tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

type toolsCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type toolCallResult struct {
	Content           []toolContent `json:"content"`
	StructuredContent any           `json:"structuredContent,omitempty"`
	IsError           bool          `json:"isError,omitempty"`
}

type toolContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func textContent(text string) []toolContent {
	return []toolContent{{Type: contentTypeTextItem, Text: text}}
}
