package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"go2tv.app/mcp-airplay/internal/airplay"
	"go2tv.app/mcp-airplay/internal/discovery"
)

const (
	// EnvPrefix prefixes every environment override, e.g. MCP_AIRPLAY_LOG_LEVEL.
	EnvPrefix = "MCP_AIRPLAY"

	defaultConfigDir = "~/.config/mcp-airplay"
)

type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	AirPlay   AirPlayConfig   `mapstructure:"airplay"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Media     MediaConfig     `mapstructure:"media"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type AirPlayConfig struct {
	UserAgent      string        `mapstructure:"user_agent"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	PromptTimeout  time.Duration `mapstructure:"prompt_timeout"`
	ConnectWait    time.Duration `mapstructure:"connect_wait"`
}

type DiscoveryConfig struct {
	Service      string        `mapstructure:"service"`
	Domain       string        `mapstructure:"domain"`
	Interval     time.Duration `mapstructure:"interval"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
	MissLimit    int           `mapstructure:"miss_limit"`
	DisableIPv6  bool          `mapstructure:"disable_ipv6"`
}

type MediaConfig struct {
	AllowedPathPrefixes []string `mapstructure:"allowed_path_prefixes"`
	StrictPathPolicy    bool     `mapstructure:"strict_path_policy"`
	AllowLoopbackURLs   bool     `mapstructure:"allow_loopback_urls"`
	AllowWildcardBind   bool     `mapstructure:"allow_wildcard_bind"`
	RedactPaths         bool     `mapstructure:"redact_paths"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	v.SetDefault("airplay.user_agent", airplay.DefaultUserAgent)
	v.SetDefault("airplay.username", airplay.DefaultUsername)
	v.SetDefault("airplay.password", "")
	v.SetDefault("airplay.ping_interval", airplay.DefaultPingInterval)
	v.SetDefault("airplay.poll_interval", airplay.DefaultPollInterval)
	v.SetDefault("airplay.request_timeout", 10*time.Second)
	v.SetDefault("airplay.prompt_timeout", 2*time.Minute)
	v.SetDefault("airplay.connect_wait", 8*time.Second)

	v.SetDefault("discovery.service", discovery.DefaultService)
	v.SetDefault("discovery.domain", discovery.DefaultDomain)
	v.SetDefault("discovery.interval", discovery.DefaultInterval)
	v.SetDefault("discovery.query_timeout", discovery.DefaultQueryTimeout)
	v.SetDefault("discovery.miss_limit", discovery.DefaultMissLimit)
	v.SetDefault("discovery.disable_ipv6", false)

	v.SetDefault("media.allowed_path_prefixes", []string{})
	v.SetDefault("media.strict_path_policy", false)
	v.SetDefault("media.allow_loopback_urls", false)
	v.SetDefault("media.allow_wildcard_bind", false)
	v.SetDefault("media.redact_paths", false)
}

// Load reads config.yaml from path, or from ~/.config/mcp-airplay and the
// working directory when path is empty. A missing default file is not an
// error; environment variables override file values.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path = strings.TrimSpace(path); path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return Config{}, fmt.Errorf("expand config path: %w", err)
		}
		v.SetConfigFile(expanded)
	} else {
		v.SetConfigName("config")
		if dir, err := homedir.Expand(defaultConfigDir); err == nil {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.Log.File != "" {
		expanded, err := homedir.Expand(c.Log.File)
		if err != nil {
			return Config{}, fmt.Errorf("expand log.file: %w", err)
		}
		c.Log.File = expanded
	}
	c.Media.AllowedPathPrefixes = expandAll(c.Media.AllowedPathPrefixes)
	return c, nil
}

func expandAll(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if expanded, err := homedir.Expand(p); err == nil {
			p = expanded
		}
		out = append(out, p)
	}
	return out
}

// ParseLogLevel maps a configured level to slog. Unknown values fall back to
// info and report false.
func ParseLogLevel(raw string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "info":
		return slog.LevelInfo, true
	case "debug":
		return slog.LevelDebug, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// LogWriter opens the configured log file for appending, or returns stderr.
// The returned close func is always safe to call.
func (c LogConfig) LogWriter() (io.Writer, func() error, error) {
	if c.File == "" {
		return os.Stderr, func() error { return nil }, nil
	}
	f, err := os.OpenFile(c.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return f, f.Close, nil
}
