package config

import (
	"path/filepath"
	"time"

	"mcptoolbox/internal/protocol"
)

const (
	DefaultToolHome   = "~/.zerolab/mcp-toolbox"
	DefaultConfigName = "config.toml"

	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config is the immutable runtime configuration. It is built once by Load
// and passed to constructors.
type Config struct {
	// ToolHome holds config.toml, the journal and the cache directory.
	ToolHome string `toml:"tool_home" yaml:"tool_home" envconfig:"TOOL_HOME" validate:"required"`
	// CacheDir defaults to <tool_home>/cache.
	CacheDir string `toml:"cache_dir" yaml:"cache_dir" envconfig:"CACHE_DIR"`

	EnableFileOpsTools  bool `toml:"enable_file_ops_tools" yaml:"enable_file_ops_tools" envconfig:"ENABLE_FILE_OPS_TOOLS"`
	EnableFigmaTools    bool `toml:"enable_figma_tools" yaml:"enable_figma_tools" envconfig:"ENABLE_FIGMA_TOOLS"`
	EnableMarkdownTools bool `toml:"enable_markdown_tools" yaml:"enable_markdown_tools" envconfig:"ENABLE_MARKDOWN_TOOLS"`

	Figma   Figma   `toml:"figma" yaml:"figma" envconfig:"FIGMA"`
	Server  Server  `toml:"server" yaml:"server" envconfig:"SERVER"`
	Log     Log     `toml:"log" yaml:"log" envconfig:"LOG"`
	Journal Journal `toml:"journal" yaml:"journal" envconfig:"JOURNAL"`
}

type Figma struct {
	APIKey         string `toml:"api_key" yaml:"api_key" split_words:"true"`
	BaseURL        string `toml:"base_url" yaml:"base_url" split_words:"true" validate:"required,url"`
	TimeoutSeconds int    `toml:"timeout_seconds" yaml:"timeout_seconds" split_words:"true" validate:"gte=1,lte=600"`
	Retries        int    `toml:"retries" yaml:"retries" split_words:"true" validate:"gte=0,lte=10"`
}

type Server struct {
	Transport       string `toml:"transport" yaml:"transport" split_words:"true" validate:"oneof=stdio http"`
	Listen          string `toml:"listen" yaml:"listen" split_words:"true" validate:"required,hostname_port"`
	MCPPath         string `toml:"mcp_path" yaml:"mcp_path" split_words:"true" validate:"required,startswith=/"`
	ProtocolVersion string `toml:"protocol_version" yaml:"protocol_version" split_words:"true" validate:"required"`
	// Public binds for remote clients and enables per-IP rate limiting.
	Public    bool   `toml:"public" yaml:"public" split_words:"true"`
	AuthToken string `toml:"auth_token" yaml:"auth_token" split_words:"true"`
	// RateLimitRPS and RateLimitBurst define the per-IP token bucket used in
	// public mode.
	RateLimitRPS   int `toml:"rate_limit_rps" yaml:"rate_limit_rps" split_words:"true" validate:"gte=0"`
	RateLimitBurst int `toml:"rate_limit_burst" yaml:"rate_limit_burst" split_words:"true" validate:"gte=0"`
	// TrustedProxies controls when X-Forwarded-For may be used to derive
	// client identity. Values can be IPs or CIDRs.
	TrustedProxies       []string `toml:"trusted_proxies" yaml:"trusted_proxies" split_words:"true" validate:"dive,cidr|ip"`
	SessionTTLSeconds    int      `toml:"session_ttl_seconds" yaml:"session_ttl_seconds" split_words:"true" validate:"gte=1"`
	ShutdownGraceSeconds int      `toml:"shutdown_grace_seconds" yaml:"shutdown_grace_seconds" split_words:"true" validate:"gte=0"`
}

type Log struct {
	Level string `toml:"level" yaml:"level" split_words:"true" validate:"oneof=debug info warn error"`
	JSON  bool   `toml:"json" yaml:"json" split_words:"true"`
}

type Journal struct {
	Enabled bool `toml:"enabled" yaml:"enabled" split_words:"true"`
	// Path defaults to <tool_home>/journal.sqlite.
	Path string `toml:"path" yaml:"path" split_words:"true"`
}

func Default() Config {
	return Config{
		ToolHome:            DefaultToolHome,
		EnableFileOpsTools:  true,
		EnableFigmaTools:    true,
		EnableMarkdownTools: true,
		Figma: Figma{
			BaseURL:        "https://api.figma.com/v1",
			TimeoutSeconds: 30,
			Retries:        3,
		},
		Server: Server{
			Transport:       TransportStdio,
			Listen:          protocol.DefaultListenAddr,
			MCPPath:         protocol.DefaultMCPPath,
			ProtocolVersion: protocol.DefaultProtocolVersion,
			RateLimitRPS:    60,
			RateLimitBurst:  20,
			TrustedProxies: []string{
				"127.0.0.1/32",
				"::1/128",
			},
			SessionTTLSeconds:    int((24 * time.Hour).Seconds()),
			ShutdownGraceSeconds: 5,
		},
		Log: Log{
			Level: "info",
		},
		Journal: Journal{
			Enabled: true,
		},
	}
}

func (c Config) FigmaTimeout() time.Duration {
	return time.Duration(c.Figma.TimeoutSeconds) * time.Second
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.Server.SessionTTLSeconds) * time.Second
}

func (c Config) ShutdownGrace() time.Duration {
	return time.Duration(c.Server.ShutdownGraceSeconds) * time.Second
}

// ConfigFile is the default location of config.toml for this tool home.
func (c Config) ConfigFile() string {
	return filepath.Join(c.ToolHome, DefaultConfigName)
}
