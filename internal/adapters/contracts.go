package adapters

import (
	"context"
	"net"
	"time"

	"go2tv.app/go2tv/v2/soapcalls"
	"go2tv.app/go2tv/v2/utils"
)

// ServiceRecord is one DNS-SD instance answer.
type ServiceRecord struct {
	Instance string
	Host     string
	AddrV4   net.IP
	AddrV6   net.IP
	Port     int
	Text     []string
}

// Browser performs a single DNS-SD browse and returns what answered before
// timeout.
type Browser interface {
	Browse(ctx context.Context, service, domain string, timeout time.Duration) ([]ServiceRecord, error)
}

// StreamServer serves local media to receivers over HTTP.
type StreamServer interface {
	AddHandler(path string, payload *soapcalls.TVPayload, transcode *utils.TranscodeOptions, media any)
	StartServing(serverStarted chan<- error)
	StopServer()
}

// StreamServerFactory creates StreamServer instances bound to addr.
type StreamServerFactory interface {
	New(addr string) StreamServer
}
