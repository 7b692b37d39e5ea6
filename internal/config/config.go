package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds everything the resolver and installer need to know about
// the local game installation and the remote portal.
type Config struct {
	// ModsPath is the directory holding installed mods and mod-list.json.
	ModsPath string `mapstructure:"mods_path"`

	// GameVersion is the full installed game version, e.g. "1.1.53".
	// Remote releases are filtered against its major.minor truncation.
	GameVersion string `mapstructure:"game_version"`

	// PortalURL is the base URL of the mod portal.
	PortalURL string `mapstructure:"portal_url"`

	// PlayerDataPath is where the portal username/token pair is persisted.
	PlayerDataPath string `mapstructure:"player_data_path"`

	// Hold lists mod names exempt from upgrades unless --held is passed.
	Hold []string `mapstructure:"hold"`
}

// Load reads the config file at path, or the default location when path is
// empty. A missing file is not an error; defaults and YAMM_* environment
// variables still apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}

	v.SetDefault("mods_path", filepath.Join(home, ".factorio", "mods"))
	v.SetDefault("game_version", "1.1.0")
	v.SetDefault("portal_url", "https://mods.factorio.com")
	v.SetDefault("player_data_path", filepath.Join(home, ".factorio", "player-data.json"))
	v.SetDefault("hold", []string{})

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(home, ".config", "yamm"))
	}

	v.SetEnvPrefix("YAMM")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Only a missing default config file is tolerable; an explicit
		// --config path must exist and parse.
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// GameVersionMajor returns the major.minor truncation of GameVersion,
// the granularity at which the portal reports release compatibility.
func (c *Config) GameVersionMajor() string {
	parts := strings.SplitN(c.GameVersion, ".", 3)
	if len(parts) < 2 {
		return c.GameVersion
	}
	return parts[0] + "." + parts[1]
}

// Held reports whether name is in the hold set.
func (c *Config) Held(name string) bool {
	for _, held := range c.Hold {
		if held == name {
			return true
		}
	}
	return false
}
