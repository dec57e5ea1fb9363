package beam

import (
	"fmt"

	"go2tv.app/mcp-airplay/internal/domain"
)

func toolError(code, message string) *domain.ToolError {
	return &domain.ToolError{Code: code, Message: message}
}

// invalidArgumentError reports a request value the caller must correct.
func invalidArgumentError(message string) *domain.ToolError {
	return toolError("INVALID_ARGUMENT", message)
}

func noActiveSessionError() *domain.ToolError {
	return &domain.ToolError{
		Code:    "NO_ACTIVE_SESSION",
		Message: "no AirPlay receiver is connected",
		SuggestedFixes: []string{
			"Start playback with beam_media first.",
		},
	}
}

func noPendingPromptError() *domain.ToolError {
	return &domain.ToolError{
		Code:    "NO_PENDING_PROMPT",
		Message: "no receiver is waiting for a PIN",
		SuggestedFixes: []string{
			"Check playback_status for credential_pending before calling submit_pin.",
		},
	}
}

func unreachableError(device domain.Device, reason string) *domain.ToolError {
	return &domain.ToolError{
		Code:    "DEVICE_UNREACHABLE",
		Message: fmt.Sprintf("could not connect to %s: %s", device.Name, reason),
		SuggestedFixes: []string{
			"Make sure the receiver is awake and on the same network.",
			"Run list_local_hardware to refresh the device list.",
		},
		Details: map[string]any{
			"device_id": device.ID,
			"address":   device.Address,
		},
	}
}

func unsupportedURLPatternError(message, limitationCode string) *domain.ToolError {
	return &domain.ToolError{
		Code:    "UNSUPPORTED_URL_PATTERN",
		Message: message,
		Limitations: []domain.Limitation{
			{
				Code:    limitationCode,
				Message: message,
			},
		},
		SuggestedFixes: []string{
			"Use an absolute local file path, or an http/https URL with a routable host.",
		},
	}
}

func loopbackURLBlockedError(host string) *domain.ToolError {
	return &domain.ToolError{
		Code:    "LOOPBACK_URL_BLOCKED",
		Message: "localhost and loopback URL hosts are blocked by default",
		Limitations: []domain.Limitation{
			{
				Code:    "URL_LOOPBACK_BLOCKED",
				Message: "The receiver cannot fetch media from this machine's loopback interface.",
			},
		},
		SuggestedFixes: []string{
			"Use a URL hosted on another machine reachable by the receiver.",
			"Use a local file source so mcp-airplay serves media on the LAN.",
			"Set media.allow_loopback_urls only for trusted local testing.",
		},
		Details: map[string]any{
			"host": host,
		},
	}
}

func bindPolicyBlockedError(listenAddr string) *domain.ToolError {
	return &domain.ToolError{
		Code:    "PROTOCOL_ERROR",
		Message: "bind policy rejected wildcard media listener address",
		Limitations: []domain.Limitation{{
			Code:    "BIND_WILDCARD_BLOCKED",
			Message: "Binding media server to wildcard interfaces is blocked by default.",
		}},
		SuggestedFixes: []string{
			"Use a concrete LAN IP bind address selected for the target route.",
			"Set media.allow_wildcard_bind only when wildcard binding is explicitly desired.",
		},
		Details: map[string]any{
			"listen_address": listenAddr,
		},
	}
}

func pathPolicyBlockedError(fieldName string) *domain.ToolError {
	return &domain.ToolError{
		Code:    "PATH_POLICY_BLOCKED",
		Message: fmt.Sprintf("%s is blocked by strict path policy", fieldName),
		Limitations: []domain.Limitation{{
			Code:    "PATH_POLICY_BLOCKED",
			Message: "Strict path policy allows only configured local path prefixes.",
		}},
		SuggestedFixes: []string{
			"Move media under an allowed local directory.",
			"Add the directory to media.allowed_path_prefixes.",
			"Disable media.strict_path_policy if appropriate.",
		},
		Details: map[string]any{
			"field": fieldName,
		},
	}
}
