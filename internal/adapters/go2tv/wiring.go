package go2tv

import (
	"go2tv.app/go2tv/v2/httphandlers"
	"go2tv.app/go2tv/v2/utils"
	"go2tv.app/mcp-airplay/internal/adapters"
)

// Bundle wires the go2tv-backed media serving adapters in one place.
type Bundle struct {
	StreamServers adapters.StreamServerFactory
	// ListenAddress picks a local ip:port reachable from the receiver at
	// deviceURL.
	ListenAddress func(deviceURL string) (string, error)
}

func NewBundle() Bundle {
	return Bundle{
		StreamServers: StreamServerFactory{},
		ListenAddress: utils.URLtoListenIPandPort,
	}
}

type StreamServerFactory struct{}

func (StreamServerFactory) New(addr string) adapters.StreamServer {
	return httphandlers.NewServer(addr)
}

var _ adapters.StreamServerFactory = StreamServerFactory{}
