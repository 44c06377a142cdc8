package config

import (
	"os"
	"strconv"
)

// FromEnv overlays NCNOTIF_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("NCNOTIF_DEFAULT_STREAM_NAME"); v != "" {
		cfg.DefaultStreamName = v
	}
	if v := os.Getenv("NCNOTIF_DEFAULT_STREAM_REPLAY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.DefaultStreamReplay = b
		}
	}
	if v := os.Getenv("NCNOTIF_REPLAY_LOG_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ReplayLogCapacity = n
		}
	}
	if v := os.Getenv("NCNOTIF_REPLAY_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ReplayWorkers = n
		}
	}
}
