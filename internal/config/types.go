package config

import (
	"os"
	"strings"
	"time"
)

type globalConfig struct {
	InterfaceLanguage string `koanf:"interface_language"`
}

type DiscordConfig struct {
	Token     string `koanf:"token"`
	BaseURL   string `koanf:"base_url"`
	UserAgent string `koanf:"user_agent"`
}

type DispatcherConfig struct {
	Workers   int     `koanf:"workers"`
	QueueSize int     `koanf:"queue_size"`
	Rate      float64 `koanf:"rate"` // requests per second, 0 disables the limiter
	Burst     int     `koanf:"burst"`
}

type JournalConfig struct {
	Enabled       bool   `koanf:"enabled"`
	DSN           string `koanf:"dsn"`
	RetentionDays int    `koanf:"retention_days"`
}

type MetricsConfig struct {
	Listen string `koanf:"listen"`
}

func (c MetricsConfig) Enabled() bool {
	return c.Listen != ""
}

type HTTPConfig struct {
	proxy   *string  `koanf:"proxy"`
	noProxy []string `koanf:"no_proxy"`

	Timeout time.Duration `koanf:"timeout"`
}

func (c HTTPConfig) GetProxy() string {
	if c.proxy != nil && *c.proxy != "" {
		return *c.proxy
	}
	for _, name := range []string{"HTTPS_PROXY", "https_proxy", "HTTP_PROXY", "http_proxy"} {
		if proxyURL := os.Getenv(name); proxyURL != "" {
			return proxyURL
		}
	}
	return ""
}

func (c HTTPConfig) GetNoProxy() []string {
	if len(c.noProxy) > 0 {
		return c.noProxy
	}
	raw := os.Getenv("NO_PROXY")
	if raw == "" {
		raw = os.Getenv("no_proxy")
	}
	if raw == "" {
		return nil
	}
	var hosts []string
	for host := range strings.SplitSeq(raw, ",") {
		if host = strings.TrimSpace(host); host != "" {
			hosts = append(hosts, host)
		}
	}
	return hosts
}

type LoggingConfig struct {
	LogLevel    string `koanf:"level"`
	WriteInFile bool   `koanf:"write_in_file"`
	FilePath    string `koanf:"file_path"`
}

func (c LoggingConfig) Level() string {
	return strings.ToLower(c.LogLevel)
}

func (c LoggingConfig) IsDebug() bool {
	return c.Level() == "debug" || c.Level() == "trace"
}
