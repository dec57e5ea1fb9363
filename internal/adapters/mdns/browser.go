package mdns

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mdnslib "github.com/hashicorp/mdns"
	"go2tv.app/mcp-airplay/internal/adapters"
)

const entryBuffer = 32

var query = mdnslib.QueryContext

// Browser browses DNS-SD services over multicast DNS.
type Browser struct {
	logger      *slog.Logger
	disableIPv6 bool
}

func NewBrowser(logger *slog.Logger, disableIPv6 bool) *Browser {
	return &Browser{logger: logger, disableIPv6: disableIPv6}
}

func (b *Browser) Browse(ctx context.Context, service, domain string, timeout time.Duration) ([]adapters.ServiceRecord, error) {
	service = strings.TrimSpace(service)
	if service == "" {
		return nil, errors.New("mdns: service is empty")
	}

	entries := make(chan *mdnslib.ServiceEntry, entryBuffer)
	collected := make(chan []adapters.ServiceRecord, 1)
	go func() {
		collected <- collect(entries)
	}()

	params := mdnslib.DefaultParams(service)
	if domain = strings.TrimSpace(domain); domain != "" {
		params.Domain = domain
	}
	if timeout > 0 {
		params.Timeout = timeout
	}
	params.Entries = entries
	params.DisableIPv6 = b.disableIPv6

	err := query(ctx, params)
	close(entries)
	records := <-collected

	if ctxErr := ctx.Err(); ctxErr != nil {
		return records, ctxErr
	}
	if err != nil {
		return records, fmt.Errorf("mdns query %s: %w", service, err)
	}
	b.log(slog.LevelDebug, "mdns_browse_done",
		slog.String("service", service),
		slog.Int("records", len(records)),
	)
	return records, nil
}

// collect drains entries, keeping the most complete answer per instance.
func collect(entries <-chan *mdnslib.ServiceEntry) []adapters.ServiceRecord {
	index := map[string]int{}
	var out []adapters.ServiceRecord
	for entry := range entries {
		if entry == nil || strings.TrimSpace(entry.Name) == "" {
			continue
		}
		record := adapters.ServiceRecord{
			Instance: entry.Name,
			Host:     entry.Host,
			AddrV4:   entry.AddrV4,
			AddrV6:   entry.AddrV6,
			Port:     entry.Port,
			Text:     append([]string(nil), entry.InfoFields...),
		}
		if i, ok := index[record.Instance]; ok {
			out[i] = merge(out[i], record)
			continue
		}
		index[record.Instance] = len(out)
		out = append(out, record)
	}
	return out
}

func merge(prev, next adapters.ServiceRecord) adapters.ServiceRecord {
	if next.Host == "" {
		next.Host = prev.Host
	}
	if next.AddrV4 == nil {
		next.AddrV4 = prev.AddrV4
	}
	if next.AddrV6 == nil {
		next.AddrV6 = prev.AddrV6
	}
	if next.Port == 0 {
		next.Port = prev.Port
	}
	if len(next.Text) == 0 {
		next.Text = prev.Text
	}
	return next
}

func (b *Browser) log(level slog.Level, msg string, attrs ...any) {
	if b == nil || b.logger == nil {
		return
	}
	b.logger.Log(context.Background(), level, msg, attrs...)
}

var _ adapters.Browser = (*Browser)(nil)
