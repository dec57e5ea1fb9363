package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	go2tvadapters "go2tv.app/mcp-airplay/internal/adapters/go2tv"
	"go2tv.app/mcp-airplay/internal/adapters/mdns"
	"go2tv.app/mcp-airplay/internal/airplay"
	"go2tv.app/mcp-airplay/internal/beam"
	"go2tv.app/mcp-airplay/internal/buildinfo"
	"go2tv.app/mcp-airplay/internal/config"
	"go2tv.app/mcp-airplay/internal/diagnostics"
	"go2tv.app/mcp-airplay/internal/discovery"
	"go2tv.app/mcp-airplay/internal/domain"
	"go2tv.app/mcp-airplay/internal/lifecycle"
	"go2tv.app/mcp-airplay/internal/mcpserver"
)

const (
	serverName      = "mcp-airplay"
	shutdownTimeout = 5 * time.Second
)

type selfTestOutput struct {
	Server struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"server"`
	Config struct {
		Service           string `json:"discovery_service"`
		Domain            string `json:"discovery_domain"`
		PasswordSet       bool   `json:"password_set"`
		StrictPathPolicy  bool   `json:"strict_path_policy"`
		AllowLoopbackURLs bool   `json:"allow_loopback_urls"`
	} `json:"config"`
	Go2TVAdapters struct {
		StreamServerWired bool `json:"stream_server_wired"`
		ListenAddrWired   bool `json:"listen_address_wired"`
	} `json:"go2tv_adapters"`
	Network diagnostics.NetworkReport `json:"network"`
}

func main() {
	configPath := flag.String("config", "", "path to a config.yaml (default: ~/.config/mcp-airplay/config.yaml or ./config.yaml)")
	selfTest := flag.Bool("self-test", false, "report configuration, adapter wiring and multicast interfaces then exit")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(buildinfo.Version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	bundle := go2tvadapters.NewBundle()
	if *selfTest {
		if err := writeSelfTest(cfg, bundle); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, bundle); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func writeSelfTest(cfg config.Config, bundle go2tvadapters.Bundle) error {
	var out selfTestOutput
	out.Server.Name = serverName
	out.Server.Version = buildinfo.Version
	out.Config.Service = cfg.Discovery.Service
	out.Config.Domain = cfg.Discovery.Domain
	out.Config.PasswordSet = cfg.AirPlay.Password != ""
	out.Config.StrictPathPolicy = cfg.Media.StrictPathPolicy
	out.Config.AllowLoopbackURLs = cfg.Media.AllowLoopbackURLs
	out.Go2TVAdapters.StreamServerWired = bundle.StreamServers != nil
	out.Go2TVAdapters.ListenAddrWired = bundle.ListenAddress != nil
	out.Network = diagnostics.DetectNetwork()

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func run(cfg config.Config, bundle go2tvadapters.Bundle) error {
	logOut, closeLog, err := cfg.Log.LogWriter()
	if err != nil {
		return err
	}
	defer closeLog()

	logLevel, ok := config.ParseLogLevel(cfg.Log.Level)
	if !ok {
		fmt.Fprintf(os.Stderr, "invalid log.level=%q; defaulting to info\n", cfg.Log.Level)
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))
	logger.Info(
		"mcp_server_start",
		slog.String("server", serverName),
		slog.String("version", buildinfo.Version),
		slog.String("log_level", logLevel.String()),
	)

	runCtx, stopSignals := lifecycle.NotifyContext(context.Background())
	defer stopSignals()

	var manager *beam.Manager
	broker := airplay.NewPromptBroker(func(device domain.Device, pending bool) {
		if manager != nil {
			manager.CredentialPrompt(device, pending)
		}
	})

	listeners := &airplay.Fanout{}
	client := airplay.NewClient(airplay.Config{
		UserAgent:      cfg.AirPlay.UserAgent,
		Username:       cfg.AirPlay.Username,
		Password:       cfg.AirPlay.Password,
		PingInterval:   cfg.AirPlay.PingInterval,
		PollInterval:   cfg.AirPlay.PollInterval,
		RequestTimeout: cfg.AirPlay.RequestTimeout,
		PromptTimeout:  cfg.AirPlay.PromptTimeout,
		Prompter:       broker,
		Logger:         logger,
	}, listeners)

	discoverySvc := discovery.NewService(mdns.NewBrowser(logger, cfg.Discovery.DisableIPv6), client, discovery.Config{
		Service:      cfg.Discovery.Service,
		Domain:       cfg.Discovery.Domain,
		Interval:     cfg.Discovery.Interval,
		QueryTimeout: cfg.Discovery.QueryTimeout,
		MissLimit:    cfg.Discovery.MissLimit,
		Logger:       logger,
	})

	manager = beam.NewManager(discoverySvc, client, broker, bundle.StreamServers, bundle.ListenAddress, beam.Options{
		StrictPathPolicy:    cfg.Media.StrictPathPolicy,
		AllowedPathPrefixes: cfg.Media.AllowedPathPrefixes,
		AllowLoopbackURLs:   cfg.Media.AllowLoopbackURLs,
		AllowWildcardBind:   cfg.Media.AllowWildcardBind,
		RedactPaths:         cfg.Media.RedactPaths,
		ConnectWait:         cfg.AirPlay.ConnectWait,
		Logger:              logger,
	})
	listeners.Add(manager)

	srv := mcpserver.New(os.Stdin, os.Stdout, mcpserver.Config{
		ServerName:          serverName,
		ServerVersion:       buildinfo.Version,
		Logger:              logger,
		LocalHardwareLister: discoverySvc,
		BeamController:      manager,
	})
	listeners.Add(srv)

	discoveryCtx, stopDiscovery := context.WithCancel(runCtx)
	discoveryDone := make(chan struct{})
	go func() {
		defer close(discoveryDone)
		if err := discoverySvc.Run(discoveryCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("discovery_stopped", slog.String("error", err.Error()))
		}
	}()

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- srv.Run(runCtx)
	}()

	var runErr error
	select {
	case runErr = <-runErrCh:
	case <-runCtx.Done():
		runErr = runCtx.Err()
	}
	if runErr != nil {
		logger.Warn("mcp_server_stopping", slog.String("reason", runErr.Error()))
	} else {
		logger.Info("mcp_server_stopping", slog.String("reason", "clean_eof"))
	}

	stopDiscovery()
	broker.Cancel()
	shutdownErr := lifecycle.Shutdown(shutdownTimeout,
		manager.Close,
		client.Close,
		func(ctx context.Context) error {
			select {
			case <-discoveryDone:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	)
	if shutdownErr != nil {
		return shutdownErr
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}
