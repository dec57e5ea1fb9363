package airplay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"go2tv.app/mcp-airplay/internal/domain"
)

const (
	DefaultUserAgent      = "MediaControl/1.0"
	defaultRequestTimeout = 10 * time.Second
	maxResponseBytes      = 1 << 20

	headerSessionID = "X-Apple-Session-ID"
	headerAssetKey  = "X-Apple-AssetKey"

	contentTypeParameters = "text/parameters"
)

// Command is one AirPlay request, relative to the device base URL.
type Command struct {
	Name        string
	Method      string
	Path        string
	Body        []byte
	ContentType string
	Header      http.Header
}

// Target pins a command to the device and session that were current when it
// was issued.
type Target struct {
	Device      domain.Device
	SessionID   string
	credentials *credentialStore
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

type TransportConfig struct {
	UserAgent      string
	Username       string
	RequestTimeout time.Duration
	HTTPClient     *http.Client
	Logger         *slog.Logger
}

// Transport sends AirPlay commands and answers digest challenges once per
// command.
type Transport struct {
	client    *http.Client
	userAgent string
	auth      Authenticator
	logger    *slog.Logger
}

func NewTransport(cfg TransportConfig) *Transport {
	client := cfg.HTTPClient
	if client == nil {
		client = cleanhttp.DefaultPooledClient()
		client.Timeout = cfg.RequestTimeout
		if client.Timeout <= 0 {
			client.Timeout = defaultRequestTimeout
		}
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &Transport{
		client:    client,
		userAgent: userAgent,
		auth:      Authenticator{Username: cfg.Username},
		logger:    cfg.Logger,
	}
}

// Do sends cmd to target and blocks until the exchange completes. Any HTTP
// status is returned as a Response; errors are reserved for failures to
// complete the exchange.
func (t *Transport) Do(ctx context.Context, target Target, cmd Command) (*Response, error) {
	req, err := t.newRequest(ctx, target, cmd)
	if err != nil {
		return nil, err
	}

	resp, err := t.roundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || target.credentials == nil {
		return resp, nil
	}

	return t.retryWithDigest(ctx, target, cmd, req, resp)
}

func (t *Transport) retryWithDigest(ctx context.Context, target Target, cmd Command, first *http.Request, challenged *Response) (*Response, error) {
	password, err := target.credentials.get(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		t.log(slog.LevelWarn, "airplay_auth_no_credential",
			slog.String("command", cmd.Name),
			slog.String("device_id", target.Device.ID),
			slog.String("reason", err.Error()),
		)
		return challenged, nil
	}

	params := ParseChallenge(challenged.Header.Get("WWW-Authenticate"))
	retry, err := t.newRequest(ctx, target, cmd)
	if err != nil {
		return nil, err
	}
	retry.Header.Set("Authorization", t.auth.Authorization(params, password, first.Method, first.URL.String()))

	resp, err := t.roundTrip(retry)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		target.credentials.forget()
		t.log(slog.LevelWarn, "airplay_auth_rejected",
			slog.String("command", cmd.Name),
			slog.String("device_id", target.Device.ID),
		)
	}
	return resp, nil
}

func (t *Transport) newRequest(ctx context.Context, target Target, cmd Command) (*http.Request, error) {
	base := strings.TrimSpace(target.Device.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("device %q has no endpoint", target.Device.ID)
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	method := cmd.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if cmd.Body != nil {
		body = bytes.NewReader(cmd.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, base+strings.TrimPrefix(cmd.Path, "/"), body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", cmd.Name, err)
	}

	req.Header.Set("User-Agent", t.userAgent)
	if target.SessionID != "" {
		req.Header.Set(headerSessionID, target.SessionID)
	}
	if cmd.ContentType != "" {
		req.Header.Set("Content-Type", cmd.ContentType)
	}
	for key, values := range cmd.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	return req, nil
}

func (t *Transport) roundTrip(req *http.Request) (*Response, error) {
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func (t *Transport) log(level slog.Level, msg string, attrs ...any) {
	if t == nil || t.logger == nil {
		return
	}
	t.logger.Log(context.Background(), level, msg, attrs...)
}

func serverInfoCommand() Command {
	return Command{Name: "server-info", Method: http.MethodGet, Path: "server-info"}
}

func playbackInfoCommand() Command {
	return Command{Name: "playback-info", Method: http.MethodGet, Path: "playback-info"}
}

func stopCommand() Command {
	return Command{Name: "stop", Method: http.MethodPost, Path: "stop"}
}

func rateCommand(rate float64) Command {
	return Command{Name: "rate", Method: http.MethodPost, Path: fmt.Sprintf("rate?value=%f", rate)}
}

func scrubCommand(position float64) Command {
	return Command{Name: "scrub", Method: http.MethodPost, Path: fmt.Sprintf("scrub?position=%f", position)}
}

func playCommand(location string, startPosition float64, assetKey string) Command {
	var body strings.Builder
	body.WriteString("Content-Location: ")
	body.WriteString(location)
	body.WriteString("\n")
	fmt.Fprintf(&body, "Start-Position: %s\n", formatPosition(startPosition))

	header := http.Header{}
	header.Set(headerAssetKey, assetKey)
	return Command{
		Name:        "play",
		Method:      http.MethodPost,
		Path:        "play",
		Body:        []byte(body.String()),
		ContentType: contentTypeParameters,
		Header:      header,
	}
}
