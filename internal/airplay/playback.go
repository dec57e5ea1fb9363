package airplay

import (
	"errors"
	"fmt"
	"strconv"

	"howett.net/plist"
)

type PlaybackState string

const (
	StateStopped PlaybackState = "stopped"
	StatePlaying PlaybackState = "playing"
	StatePaused  PlaybackState = "paused"
)

var errPlaybackInfoShape = errors.New("playback-info payload is not a dictionary")

// PlaybackInfo is the subset of a playback-info answer the status loop acts on.
type PlaybackInfo struct {
	HasPosition bool
	Position    float64
	Duration    float64
	Rate        float64
	ReadyToPlay bool
}

func (p PlaybackInfo) Playing() bool {
	return p.Rate > 0
}

// Finished compares position and duration exactly, without tolerance.
func (p PlaybackInfo) Finished() bool {
	return p.HasPosition && p.Position == p.Duration
}

// ParsePlaybackInfo decodes a playback-info property list (XML or binary).
func ParsePlaybackInfo(payload []byte) (PlaybackInfo, error) {
	var root map[string]any
	if _, err := plist.Unmarshal(payload, &root); err != nil {
		return PlaybackInfo{}, fmt.Errorf("decode playback-info: %w", err)
	}
	if root == nil {
		return PlaybackInfo{}, errPlaybackInfoShape
	}

	info := PlaybackInfo{}
	rawPosition, ok := root["position"]
	if !ok {
		return info, nil
	}

	var err error
	if info.Position, err = numberValue("position", rawPosition); err != nil {
		return PlaybackInfo{}, err
	}
	if info.Duration, err = numberValue("duration", root["duration"]); err != nil {
		return PlaybackInfo{}, err
	}
	if info.Rate, err = numberValue("rate", root["rate"]); err != nil {
		return PlaybackInfo{}, err
	}
	if rawReady, ok := root["readyToPlay"]; ok {
		if info.ReadyToPlay, err = boolValue("readyToPlay", rawReady); err != nil {
			return PlaybackInfo{}, err
		}
	}
	info.HasPosition = true
	return info, nil
}

func numberValue(key string, raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case nil:
		return 0, fmt.Errorf("playback-info: %s missing", key)
	default:
		return 0, fmt.Errorf("playback-info: %s has type %T", key, raw)
	}
}

func boolValue(key string, raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	default:
		n, err := numberValue(key, raw)
		if err != nil {
			return false, err
		}
		return n != 0, nil
	}
}

func formatPosition(position float64) string {
	return strconv.FormatFloat(position, 'f', -1, 64)
}
