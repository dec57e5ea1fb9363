package domain

import "time"

type BeamRequest struct {
	Source        string  `json:"source"`
	TargetDevice  string  `json:"target_device"`
	StartPosition float64 `json:"start_position,omitempty"`
}

type BeamResult struct {
	OK        bool   `json:"ok"`
	SessionID string `json:"session_id"`
	DeviceID  string `json:"device_id"`
	MediaURL  string `json:"media_url"`
	Served    bool   `json:"served_locally"`
	// CredentialPending is set when the receiver asked for a PIN before
	// playback could start; answer it with submit_pin.
	CredentialPending bool     `json:"credential_pending"`
	Warnings          []string `json:"warnings"`
}

type ControlRequest struct {
	Action   string  `json:"action"`
	Position float64 `json:"position,omitempty"`
}

type ControlResult struct {
	OK        bool   `json:"ok"`
	Action    string `json:"action"`
	SessionID string `json:"session_id"`
	Issued    bool   `json:"issued"`
}

type StopRequest struct {
	TargetDevice string `json:"target_device,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
}

type StopResult struct {
	OK               bool   `json:"ok"`
	StoppedSessionID string `json:"stopped_session_id"`
	DeviceID         string `json:"device_id"`
}

type DisconnectResult struct {
	OK       bool   `json:"ok"`
	DeviceID string `json:"device_id"`
}

type PINResult struct {
	OK       bool   `json:"ok"`
	DeviceID string `json:"device_id"`
}

type CommandFailure struct {
	Command string    `json:"command"`
	Reason  string    `json:"reason"`
	At      time.Time `json:"at"`
}

// PlaybackStatus is the last state observed through listener events.
type PlaybackStatus struct {
	Connection        string          `json:"connection"`
	DeviceID          string          `json:"device_id,omitempty"`
	DeviceName        string          `json:"device_name,omitempty"`
	SessionID         string          `json:"session_id,omitempty"`
	MediaURL          string          `json:"media_url,omitempty"`
	State             string          `json:"state"`
	Position          float64         `json:"position"`
	Ready             bool            `json:"ready"`
	CredentialPending bool            `json:"credential_pending"`
	LastFailure       *CommandFailure `json:"last_failure,omitempty"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

type ToolError struct {
	Code           string         `json:"code"`
	Message        string         `json:"message"`
	Limitations    []Limitation   `json:"limitations,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Details        map[string]any `json:"details,omitempty"`
}

func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	return e.Code + ": " + e.Message
}
