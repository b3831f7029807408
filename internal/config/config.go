package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	BaseURL        string
	StatusURL      string
	StatusHost     string
	PrefsFile      string
	DownloadsPath  string
	MessagePoll    time.Duration
	FriendsPoll    time.Duration
	StatusPoll     time.Duration
	MaxUploadBytes int64
}

const defaultMaxUploadBytes = 15 << 20 // per-file ceiling enforced before upload

func Load() (*Config, error) {
	messagePoll, err := time.ParseDuration(getEnv("MESSAGE_POLL", "3s"))
	if err != nil {
		return nil, fmt.Errorf("invalid MESSAGE_POLL: %w", err)
	}
	friendsPoll, err := time.ParseDuration(getEnv("FRIENDS_POLL", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid FRIENDS_POLL: %w", err)
	}
	statusPoll, err := time.ParseDuration(getEnv("STATUS_POLL", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid STATUS_POLL: %w", err)
	}

	cfg := &Config{
		BaseURL:        getEnv("HORIZON_URL", "http://localhost:8000"),
		StatusURL:      getEnv("STATUS_URL", "https://api.mcsrvstat.us/3"),
		StatusHost:     getEnv("STATUS_HOST", "horizonserver.space"),
		PrefsFile:      getEnv("HORIZON_PREFS", "horizon.db"),
		DownloadsPath:  getEnv("DOWNLOADS_PATH", "downloads"),
		MessagePoll:    messagePoll,
		FriendsPoll:    friendsPoll,
		StatusPoll:     statusPoll,
		MaxUploadBytes: defaultMaxUploadBytes,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("HORIZON_URL is required")
	}

	if c.MessagePoll <= 0 || c.FriendsPoll <= 0 || c.StatusPoll <= 0 {
		return fmt.Errorf("poll intervals must be greater than 0")
	}

	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("upload ceiling must be greater than 0")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
