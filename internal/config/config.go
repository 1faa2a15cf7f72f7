package config

import (
	"fmt"
	"os"
	"time"

	"github.com/diamondburned/arikawa/v3/discord"
	"gopkg.in/yaml.v3"
)

// DiscordConfig stores Discord specific configurations.
type DiscordConfig struct {
	BotToken      string             `yaml:"bot_token"`
	ApplicationID *discord.Snowflake `yaml:"application_id"`
	GuildIDs      []string           `yaml:"guild_ids"`
}

// AudioConfig stores the audio pipeline configuration.
type AudioConfig struct {
	// SoundsDir is the directory holding the named sound files.
	SoundsDir string `yaml:"sounds_dir"`

	// CacheDir is the directory for downloaded remote audio.
	CacheDir string `yaml:"cache_dir"`

	// CacheTTLHours is how long a cached download stays valid.
	CacheTTLHours int `yaml:"cache_ttl_hours"`

	// MaxCacheSizeMB bounds the total on-disk cache size.
	MaxCacheSizeMB int `yaml:"max_cache_size_mb"`

	// ClipCacheSize is the number of deep-processed catalog clips kept in memory.
	ClipCacheSize int `yaml:"clip_cache_size"`

	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`
	Bitrate    int `yaml:"bitrate"`

	// DefaultVolume applies when a play request does not specify one.
	DefaultVolume float64 `yaml:"default_volume"`

	// EntranceSounds maps a user ID to the catalog sound played when they
	// join a voice channel the bot is connected to.
	EntranceSounds map[string]string `yaml:"entrance_sounds"`
}

// Config stores the application configuration.
type Config struct {
	Discord  DiscordConfig `yaml:"discord"`
	Audio    AudioConfig   `yaml:"audio"`
	LogLevel string        `yaml:"log_level"`
}

// CacheTTL returns the cache TTL as a duration.
func (a *AudioConfig) CacheTTL() time.Duration {
	return time.Duration(a.CacheTTLHours) * time.Hour
}

// MaxCacheBytes returns the cache size budget in bytes.
func (a *AudioConfig) MaxCacheBytes() int64 {
	return int64(a.MaxCacheSizeMB) * 1024 * 1024
}

// LoadConfig loads the configuration from the given file path and applies
// defaults for unset audio values.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.Audio.applyDefaults()

	return &cfg, nil
}

func (a *AudioConfig) applyDefaults() {
	if a.SoundsDir == "" {
		a.SoundsDir = "sounds"
	}
	if a.CacheDir == "" {
		a.CacheDir = "cache"
	}
	if a.CacheTTLHours <= 0 {
		a.CacheTTLHours = 24
	}
	if a.MaxCacheSizeMB <= 0 {
		a.MaxCacheSizeMB = 512
	}
	if a.ClipCacheSize <= 0 {
		a.ClipCacheSize = 32
	}
	if a.SampleRate <= 0 {
		a.SampleRate = 48000
	}
	if a.Channels <= 0 {
		a.Channels = 2
	}
	if a.Bitrate <= 0 {
		a.Bitrate = 128
	}
	if a.DefaultVolume <= 0 || a.DefaultVolume > 1 {
		a.DefaultVolume = 1
	}
}
