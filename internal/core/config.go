package core

import (
	"time"
)

type Config struct {
	Spotify  SpotifyConfig
	YouTube  YouTubeConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Server   ServerConfig
	Log      LogConfig
	App      AppConfig
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
}

type YouTubeConfig struct {
	APIKey string
}

type DatabaseConfig struct {
	Path string
}

type CacheConfig struct {
	MaxEntries             int
	BloomFalsePositiveRate float64
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type AppConfig struct {
	// ConvertTimeout bounds one whole conversion request.
	ConvertTimeout time.Duration
	// LookupTimeout bounds a single outbound platform call.
	LookupTimeout time.Duration
	// MaxRedirects bounds short-link redirect following.
	MaxRedirects int
}

func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "./tunebridge.db",
		},
		Cache: CacheConfig{
			MaxEntries:             10000,
			BloomFalsePositiveRate: 0.001,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		App: AppConfig{
			ConvertTimeout: 30 * time.Second,
			LookupTimeout:  10 * time.Second,
			MaxRedirects:   5,
		},
	}
}
