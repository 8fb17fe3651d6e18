package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

const (
	GLOBAL_LANGUAGE          = "global.interface_language"
	DISCORD_TOKEN            = "discord.token"
	DISCORD_BASE_URL         = "discord.base_url"
	DISCORD_USER_AGENT       = "discord.user_agent"
	HTTP_PROXY               = "http.proxy"
	HTTP_NO_PROXY            = "http.no_proxy"
	HTTP_TIMEOUT             = "http.timeout"
	DISPATCHER_WORKERS       = "dispatcher.workers"
	DISPATCHER_QUEUE_SIZE    = "dispatcher.queue_size"
	DISPATCHER_RATE          = "dispatcher.rate"
	DISPATCHER_BURST         = "dispatcher.burst"
	JOURNAL_ENABLED          = "journal.enabled"
	JOURNAL_DSN              = "journal.dsn"
	JOURNAL_RETENTION_DAYS   = "journal.retention_days"
	METRICS_LISTEN           = "metrics.listen"
	LOGGING_LEVEL            = "logging.level"
	LOGGING_WRITE_IN_FILE    = "logging.write_in_file"
	LOGGING_FILE_PATH        = "logging.file_path"
	envPrefix                = "DISCORDCTL_"
	defaultDiscordBaseURL    = "https://discord.com/api/v10"
	defaultDiscordUserAgent  = "DiscordBot (https://github.com/muratoffalex/discordctl, 1.0)"
	defaultJournalDSN        = "discordctl.db?_journal=WAL&_busy_timeout=5000"
	defaultDispatcherWorkers = 4
)

type Config struct {
	k *koanf.Koanf
}

var configPath string

func init() {
	flag.StringVar(&configPath, "config", "", "Path to config file")
}

func defaults() map[string]any {
	return map[string]any{
		GLOBAL_LANGUAGE:        "en",
		DISCORD_TOKEN:          "",
		DISCORD_BASE_URL:       defaultDiscordBaseURL,
		DISCORD_USER_AGENT:     defaultDiscordUserAgent,
		HTTP_PROXY:             nil,
		HTTP_NO_PROXY:          []string{},
		HTTP_TIMEOUT:           30 * time.Second,
		DISPATCHER_WORKERS:     defaultDispatcherWorkers,
		DISPATCHER_QUEUE_SIZE:  64,
		DISPATCHER_RATE:        0.0,
		DISPATCHER_BURST:       1,
		JOURNAL_ENABLED:        false,
		JOURNAL_DSN:            defaultJournalDSN,
		JOURNAL_RETENTION_DAYS: 7,
		METRICS_LISTEN:         "",
		LOGGING_LEVEL:          "info",
		LOGGING_WRITE_IN_FILE:  false,
	}
}

func Load() (*Config, error) {
	k := koanf.New(".")
	k.Load(confmap.Provider(defaults(), "."), nil)

	for _, path := range getConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("error loading config %s: %v", path, err)
			}
			break
		}
	}

	k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, envPrefix)),
			"_", ".",
		)
	}), nil)

	cfg := &Config{k: k}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromMap builds a config from defaults overlaid with the given keys.
// Used by tests and embedders that don't read files.
func FromMap(values map[string]any) (*Config, error) {
	k := koanf.New(".")
	k.Load(confmap.Provider(defaults(), "."), nil)
	if err := k.Load(confmap.Provider(values, "."), nil); err != nil {
		return nil, err
	}
	cfg := &Config{k: k}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.k.String(DISCORD_TOKEN) == "" {
		return fmt.Errorf("discord token is required")
	}
	if c.k.Int(DISPATCHER_QUEUE_SIZE) < 0 {
		return fmt.Errorf("dispatcher.queue_size must not be negative")
	}
	if c.k.Float64(DISPATCHER_RATE) < 0 {
		return fmt.Errorf("dispatcher.rate must not be negative")
	}
	return nil
}

func (c *Config) Discord() DiscordConfig {
	return DiscordConfig{
		Token:     c.k.String(DISCORD_TOKEN),
		BaseURL:   strings.TrimRight(c.k.String(DISCORD_BASE_URL), "/"),
		UserAgent: c.k.String(DISCORD_USER_AGENT),
	}
}

func (c *Config) Dispatcher() DispatcherConfig {
	workers := c.k.Int(DISPATCHER_WORKERS)
	if workers <= 0 {
		workers = defaultDispatcherWorkers
	}
	burst := c.k.Int(DISPATCHER_BURST)
	if burst <= 0 {
		burst = 1
	}
	return DispatcherConfig{
		Workers:   workers,
		QueueSize: c.k.Int(DISPATCHER_QUEUE_SIZE),
		Rate:      c.k.Float64(DISPATCHER_RATE),
		Burst:     burst,
	}
}

// CommandCooldown returns the configured default window for a command,
// in seconds. Zero means the command is not throttled by default.
func (c *Config) CommandCooldown(name string) int64 {
	key := fmt.Sprintf("commands.%s.cooldown", name)
	if !c.k.Exists(key) {
		// env overrides arrive lowercased
		key = strings.ToLower(key)
	}
	return c.k.Int64(key)
}

func (c *Config) Journal() JournalConfig {
	return JournalConfig{
		Enabled:       c.k.Bool(JOURNAL_ENABLED),
		DSN:           c.k.String(JOURNAL_DSN),
		RetentionDays: c.k.Int(JOURNAL_RETENTION_DAYS),
	}
}

func (c *Config) Metrics() MetricsConfig {
	return MetricsConfig{
		Listen: c.k.String(METRICS_LISTEN),
	}
}

func (c *Config) Log() LoggingConfig {
	return LoggingConfig{
		LogLevel:    c.k.String(LOGGING_LEVEL),
		WriteInFile: c.k.Bool(LOGGING_WRITE_IN_FILE),
		FilePath:    c.k.String(LOGGING_FILE_PATH),
	}
}

func (c *Config) Global() globalConfig {
	return globalConfig{
		InterfaceLanguage: c.k.String(GLOBAL_LANGUAGE),
	}
}

func (c *Config) HTTP() HTTPConfig {
	var proxy string
	if proxyValue, ok := c.k.Get(HTTP_PROXY).(string); ok {
		proxy = proxyValue
	}

	return HTTPConfig{
		proxy:   &proxy,
		noProxy: c.k.Strings(HTTP_NO_PROXY),
		Timeout: c.k.Duration(HTTP_TIMEOUT),
	}
}

func getConfigPaths() []string {
	if configPath != "" {
		return []string{configPath}
	}

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		home, _ := os.UserHomeDir()
		xdgConfig = filepath.Join(home, ".config")
	}

	return []string{
		"discordctl.toml",
		"config.toml",
		filepath.Join(xdgConfig, "discordctl", "config.toml"),
		"/etc/discordctl/config.toml",
	}
}
