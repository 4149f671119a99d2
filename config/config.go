package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ChannelSource configures one upstream channel source. Type is "m3u" for
// playlist feeds and "hdhomerun" for tuner-style devices; Location is an
// HTTP(S) URL for either, or a local file path for m3u sources.
type ChannelSource struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Location string `yaml:"location"`
}

// GuideSource configures one XMLTV guide document. Name must match the
// name of a channel source; that scopes the guide to its channels.
type GuideSource struct {
	Name     string `yaml:"name"`
	Location string `yaml:"location"`
}

// Config holds the complete application configuration
type Config struct {
	// HTTP server settings
	HTTP struct {
		Address string `yaml:"address"`
		Port    string `yaml:"port"`
	} `yaml:"http"`

	// Virtual tuner identity advertised in the discovery document
	Tuner struct {
		FriendlyName string `yaml:"friendly_name"`
		Manufacturer string `yaml:"manufacturer"`
		ModelNumber  string `yaml:"model_number"`
		FirmwareName string `yaml:"firmware_name"`
		DeviceID     string `yaml:"device_id"`
		TunerCount   int    `yaml:"tuner_count"`
	} `yaml:"tuner"`

	// Channel sources
	Sources []ChannelSource `yaml:"sources"`

	// Guide sources and refresh schedule
	EPG struct {
		Sources     []GuideSource `yaml:"sources"`
		RefreshCron string        `yaml:"refresh_cron"`
	} `yaml:"epg"`

	// Mapping-override table file
	Overrides struct {
		File string `yaml:"file"`
	} `yaml:"overrides"`

	// Derived-document cache TTLs
	Cache struct {
		PlaylistTTL time.Duration `yaml:"playlist_ttl"`
		LineupTTL   time.Duration `yaml:"lineup_ttl"`
		GuideTTL    time.Duration `yaml:"guide_ttl"`
	} `yaml:"cache"`

	// Stream relay settings
	Relay struct {
		ProbeTimeout time.Duration `yaml:"probe_timeout"`
		FetchTimeout time.Duration `yaml:"fetch_timeout"`
		SessionGrace time.Duration `yaml:"session_grace"`
	} `yaml:"relay"`

	// Directory reload schedule (empty disables scheduled reloads)
	ReloadCron string `yaml:"reload_cron"`

	// Source fetch timeout (directory and guide sources)
	FetchTimeout time.Duration `yaml:"fetch_timeout"`

	// Log level: DEBUG, INFO, WARN or ERROR
	LogLevel string `yaml:"log_level"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	cfg := &Config{}
	cfg.HTTP.Address = "0.0.0.0"
	cfg.HTTP.Port = "5004"
	cfg.Tuner.FriendlyName = "tuner-proxy"
	cfg.Tuner.Manufacturer = "Silicondust"
	cfg.Tuner.ModelNumber = "HDTC-2US"
	cfg.Tuner.FirmwareName = "hdhomeruntc_atsc"
	cfg.Tuner.TunerCount = 6
	cfg.EPG.RefreshCron = "0 */6 * * *"
	cfg.Overrides.File = "overrides.yaml"
	cfg.Cache.PlaylistTTL = 5 * time.Minute
	cfg.Cache.LineupTTL = 5 * time.Minute
	cfg.Cache.GuideTTL = 30 * time.Minute
	cfg.Relay.ProbeTimeout = 5 * time.Second
	cfg.Relay.FetchTimeout = 15 * time.Second
	cfg.Relay.SessionGrace = 2 * time.Minute
	cfg.FetchTimeout = 30 * time.Second
	cfg.LogLevel = "INFO"
	return cfg
}

// Load reads a YAML configuration file over the defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration, collecting every problem found
func (c *Config) Validate() error {
	var errors []string

	if c.HTTP.Address == "" {
		errors = append(errors, "HTTP address is required")
	}
	if c.HTTP.Port == "" {
		errors = append(errors, "HTTP port is required")
	}

	if c.Tuner.FriendlyName == "" {
		errors = append(errors, "Tuner friendly name is required")
	}
	if c.Tuner.TunerCount <= 0 {
		errors = append(errors, "Tuner count must be positive")
	}

	if len(c.Sources) == 0 {
		errors = append(errors, "At least one channel source is required")
	}
	names := make(map[string]bool, len(c.Sources))
	for i, src := range c.Sources {
		if src.Name == "" {
			errors = append(errors, fmt.Sprintf("Source %d: name is required", i))
		} else if names[src.Name] {
			errors = append(errors, fmt.Sprintf("Source %d (%s): duplicate source name", i, src.Name))
		}
		names[src.Name] = true

		switch src.Type {
		case "m3u", "hdhomerun":
		default:
			errors = append(errors, fmt.Sprintf("Source %d (%s): type must be m3u or hdhomerun", i, src.Name))
		}
		if src.Location == "" {
			errors = append(errors, fmt.Sprintf("Source %d (%s): location is required", i, src.Name))
		}
	}

	for i, src := range c.EPG.Sources {
		if src.Name == "" {
			errors = append(errors, fmt.Sprintf("Guide source %d: name is required", i))
		} else if !names[src.Name] {
			errors = append(errors, fmt.Sprintf("Guide source %d (%s): does not match any channel source", i, src.Name))
		}
		if src.Location == "" {
			errors = append(errors, fmt.Sprintf("Guide source %d (%s): location is required", i, src.Name))
		}
	}

	if c.Cache.PlaylistTTL < 0 || c.Cache.LineupTTL < 0 || c.Cache.GuideTTL < 0 {
		errors = append(errors, "Cache TTLs must not be negative")
	}

	if c.Relay.ProbeTimeout <= 0 {
		errors = append(errors, "Relay probe timeout must be positive")
	}
	if c.Relay.FetchTimeout <= 0 {
		errors = append(errors, "Relay fetch timeout must be positive")
	}
	if c.Relay.SessionGrace <= 0 {
		errors = append(errors, "Relay session grace must be positive")
	}
	if c.FetchTimeout <= 0 {
		errors = append(errors, "Fetch timeout must be positive")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}
