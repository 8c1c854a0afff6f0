package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"mcptoolbox/internal/fileops"
)

// Options for loading config.
type Options struct {
	// ConfigPath overrides <tool_home>/config.toml. An explicit path must exist.
	ConfigPath string
	// DotEnvDir is where .env.local and .env are looked up; "" means the
	// working directory.
	DotEnvDir    string
	SkipDotEnv   bool
	SkipValidate bool // if true, do not validate (e.g. for config print)
	// SkipFile ignores config.toml (config init writes it).
	SkipFile bool
	// Overrides apply last (flags > env > file > defaults). Nil means no CLI overrides.
	Overrides *Overrides
}

// Overrides holds CLI flag values that take precedence over env/file/defaults.
// Only non-nil fields are applied.
type Overrides struct {
	ToolHome        *string
	Transport       *string
	ServerListen    *string
	ServerMCPPath   *string
	ServerPublic    *bool
	ServerAuthToken *string
	LogLevel        *string
	LogJSON         *bool
	FigmaAPIKey     *string
	JournalEnabled  *bool
}

// Load builds config with precedence: defaults → .env.local/.env → config.toml → env vars → Overrides.
// Returns an error prefixed with CONFIG_INVALID when the result is unusable.
func Load(opts Options) (*Config, error) {
	cfg := Default()

	if !opts.SkipDotEnv {
		if err := loadDotEnvPrecedence(opts.DotEnvDir); err != nil {
			return nil, fmt.Errorf("CONFIG_INVALID: failed loading dotenv files: %w", err)
		}
	}

	if !opts.SkipFile {
		configPath, explicit := resolveConfigPath(opts)
		if err := mergeFile(&cfg, configPath, explicit); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("CONFIG_INVALID: environment: %w", err)
	}

	if opts.Overrides != nil {
		applyOverrides(&cfg, opts.Overrides)
	}
	normalize(&cfg)

	if !opts.SkipValidate {
		if err := Validate(&cfg); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// loadDotEnvPrecedence exports values from .env.local and .env without
// replacing variables already set. Precedence: explicit env > .env.local > .env.
func loadDotEnvPrecedence(dir string) error {
	for _, name := range []string{".env.local", ".env"} {
		values, err := godotenv.Read(filepath.Join(dir, name))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("%s: %w", name, err)
		}
		for k, v := range values {
			if _, exists := os.LookupEnv(k); exists {
				continue
			}
			if err := os.Setenv(k, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveConfigPath picks the config file: the explicit option, else
// config.toml under the tool home named by the flag, TOOL_HOME, or the default.
func resolveConfigPath(opts Options) (string, bool) {
	if p := strings.TrimSpace(opts.ConfigPath); p != "" {
		return fileops.ExpandPath(p), true
	}
	home := DefaultToolHome
	if v := strings.TrimSpace(os.Getenv("TOOL_HOME")); v != "" {
		home = v
	}
	if opts.Overrides != nil && opts.Overrides.ToolHome != nil {
		home = *opts.Overrides.ToolHome
	}
	return filepath.Join(fileops.ExpandPath(home), DefaultConfigName), false
}

func mergeFile(cfg *Config, path string, explicit bool) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("CONFIG_INVALID: cannot read config file %s: %w", path, err)
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("CONFIG_INVALID: malformed TOML in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("CONFIG_INVALID: unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

func applyOverrides(cfg *Config, o *Overrides) {
	if o.ToolHome != nil {
		cfg.ToolHome = *o.ToolHome
	}
	if o.Transport != nil {
		cfg.Server.Transport = *o.Transport
	}
	if o.ServerListen != nil {
		cfg.Server.Listen = *o.ServerListen
	}
	if o.ServerMCPPath != nil {
		cfg.Server.MCPPath = *o.ServerMCPPath
	}
	if o.ServerPublic != nil {
		cfg.Server.Public = *o.ServerPublic
	}
	if o.ServerAuthToken != nil {
		cfg.Server.AuthToken = *o.ServerAuthToken
	}
	if o.LogLevel != nil {
		cfg.Log.Level = *o.LogLevel
	}
	if o.LogJSON != nil {
		cfg.Log.JSON = *o.LogJSON
	}
	if o.FigmaAPIKey != nil {
		cfg.Figma.APIKey = *o.FigmaAPIKey
	}
	if o.JournalEnabled != nil {
		cfg.Journal.Enabled = *o.JournalEnabled
	}
}

// normalize expands "~" and fills the paths derived from the tool home.
func normalize(cfg *Config) {
	cfg.ToolHome = strings.TrimSpace(cfg.ToolHome)
	if cfg.ToolHome != "" {
		cfg.ToolHome = fileops.AbsPath(cfg.ToolHome)
	}
	if strings.TrimSpace(cfg.CacheDir) == "" {
		cfg.CacheDir = filepath.Join(cfg.ToolHome, "cache")
	}
	cfg.CacheDir = fileops.AbsPath(cfg.CacheDir)
	if strings.TrimSpace(cfg.Journal.Path) == "" {
		cfg.Journal.Path = filepath.Join(cfg.ToolHome, "journal.sqlite")
	}
	cfg.Journal.Path = fileops.AbsPath(cfg.Journal.Path)
	cfg.Figma.APIKey = strings.TrimSpace(cfg.Figma.APIKey)
	cfg.Figma.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Figma.BaseURL), "/")
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Server.Transport = strings.ToLower(strings.TrimSpace(cfg.Server.Transport))
}
