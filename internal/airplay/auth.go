package airplay

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
)

// DefaultUsername is the user name AirPlay receivers expect from media
// control clients when answering a digest challenge.
const DefaultUsername = "Airplay"

// ParseChallenge splits a WWW-Authenticate header of the form
//
//	Digest realm="AirPlay", nonce="abc", stale=false
//
// into its key/value pairs. The scheme token is dropped. Items are separated
// by commas outside quotes; values may be quoted or bare, and an
// unterminated quoted value runs to the end of the header.
func ParseChallenge(header string) map[string]string {
	params := map[string]string{}
	header = strings.TrimSpace(header)
	idx := strings.IndexAny(header, " \t\r\n")
	if idx < 0 {
		return params
	}

	for _, item := range splitChallengeItems(header[idx+1:]) {
		key, value, ok := strings.Cut(item, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		params[key] = unquote(strings.TrimSpace(value))
	}
	return params
}

func splitChallengeItems(s string) []string {
	var items []string
	inQuotes, escaped := false, false
	begin := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case escaped:
			escaped = false
		case c == '\\' && inQuotes:
			escaped = true
		case c == '"':
			inQuotes = !inQuotes
		case c == ',' && !inQuotes:
			items = append(items, s[begin:i])
			begin = i + 1
		}
	}
	return append(items, s[begin:])
}

func unquote(value string) string {
	if !strings.HasPrefix(value, `"`) {
		return value
	}
	value = strings.TrimSuffix(value[1:], `"`)
	return strings.ReplaceAll(value, `\"`, `"`)
}

// Authenticator computes single-round digest credentials (no qop, no
// cnonce) for AirPlay receivers.
type Authenticator struct {
	Username string
}

func (a Authenticator) username() string {
	if a.Username == "" {
		return DefaultUsername
	}
	return a.Username
}

// Response returns the digest response hash for the given challenge values.
func (a Authenticator) Response(realm, nonce, password, method, uri string) string {
	ha1 := md5Hex(a.username() + ":" + realm + ":" + password)
	ha2 := md5Hex(method + ":" + uri)
	return md5Hex(ha1 + ":" + nonce + ":" + ha2)
}

// Authorization builds the Authorization header answering params.
func (a Authenticator) Authorization(params map[string]string, password, method, uri string) string {
	realm := params["realm"]
	nonce := params["nonce"]
	return fmt.Sprintf(
		`Digest username="%s", realm="%s", nonce="%s", uri="%s", response="%s"`,
		a.username(),
		realm,
		nonce,
		uri,
		a.Response(realm, nonce, password, method, uri),
	)
}

func md5Hex(input string) string {
	sum := md5.Sum([]byte(input))
	return hex.EncodeToString(sum[:])
}
