package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// DefaultStreamName names the implicit stream every event is mirrored
	// onto. RFC 5277 calls it "NETCONF".
	DefaultStreamName string `json:"defaultStreamName" yaml:"defaultStreamName"`
	// DefaultStreamReplay controls whether the default stream records a
	// replay log.
	DefaultStreamReplay bool `json:"defaultStreamReplay" yaml:"defaultStreamReplay"`
	// ReplayLogCapacity bounds the number of timestamp buckets each stream's
	// replay log retains before evicting the oldest.
	ReplayLogCapacity int `json:"replayLogCapacity" yaml:"replayLogCapacity"`
	// ReplayWorkers sizes the pool that drains replay snapshots.
	ReplayWorkers int `json:"replayWorkers" yaml:"replayWorkers"`
	// Streams is the static catalog of additional event streams.
	Streams []StreamDef `json:"streams" yaml:"streams"`
}

// StreamDef declares one configured event stream.
type StreamDef struct {
	Name          string `json:"name" yaml:"name"`
	Description   string `json:"description" yaml:"description"`
	ReplaySupport bool   `json:"replaySupport" yaml:"replaySupport"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		DefaultStreamName:   "NETCONF",
		DefaultStreamReplay: true,
		ReplayLogCapacity:   100_000,
		ReplayWorkers:       4,
	}
}

// Load reads configuration from a JSON or YAML file (by extension). If path
// is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, err
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the notification core cannot run with.
func (c Config) Validate() error {
	if c.DefaultStreamName == "" {
		return fmt.Errorf("config: defaultStreamName must not be empty")
	}
	if c.ReplayLogCapacity <= 0 {
		return fmt.Errorf("config: replayLogCapacity must be positive, got %d", c.ReplayLogCapacity)
	}
	if c.ReplayWorkers <= 0 {
		return fmt.Errorf("config: replayWorkers must be positive, got %d", c.ReplayWorkers)
	}
	seen := map[string]struct{}{c.DefaultStreamName: {}}
	for _, s := range c.Streams {
		if s.Name == "" {
			return fmt.Errorf("config: stream with empty name")
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("config: duplicate stream %q", s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	return nil
}
