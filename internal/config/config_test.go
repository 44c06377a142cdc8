package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.DefaultStreamName != "NETCONF" {
		t.Fatalf("default stream name: %q", cfg.DefaultStreamName)
	}
	if !cfg.DefaultStreamReplay {
		t.Fatalf("default stream should support replay")
	}
	if cfg.ReplayLogCapacity != 100_000 {
		t.Fatalf("replay log capacity: %d", cfg.ReplayLogCapacity)
	}
	if cfg.ReplayWorkers != 4 {
		t.Fatalf("replay workers: %d", cfg.ReplayWorkers)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.json")
	body := `{"defaultStreamName":"NETCONF","replayLogCapacity":64,"streams":[{"name":"alarms","description":"device alarms","replaySupport":true}]}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ReplayLogCapacity != 64 {
		t.Fatalf("capacity not applied: %d", cfg.ReplayLogCapacity)
	}
	if len(cfg.Streams) != 1 || cfg.Streams[0].Name != "alarms" || !cfg.Streams[0].ReplaySupport {
		t.Fatalf("streams not loaded: %+v", cfg.Streams)
	}
	// Unset fields keep defaults.
	if cfg.ReplayWorkers != 4 {
		t.Fatalf("workers should default: %d", cfg.ReplayWorkers)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	body := "defaultStreamName: NETCONF\nreplayWorkers: 2\nstreams:\n  - name: alarms\n    replaySupport: true\n  - name: state-changes\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ReplayWorkers != 2 {
		t.Fatalf("workers not applied: %d", cfg.ReplayWorkers)
	}
	if len(cfg.Streams) != 2 || cfg.Streams[1].Name != "state-changes" || cfg.Streams[1].ReplaySupport {
		t.Fatalf("streams not loaded: %+v", cfg.Streams)
	}
}

func TestValidateRejects(t *testing.T) {
	cfg := Default()
	cfg.Streams = []StreamDef{{Name: "alarms"}, {Name: "alarms"}}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("duplicate stream should be rejected")
	}
	cfg = Default()
	cfg.ReplayLogCapacity = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("zero capacity should be rejected")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("NCNOTIF_REPLAY_LOG_CAPACITY", "128")
	t.Setenv("NCNOTIF_REPLAY_WORKERS", "8")
	t.Setenv("NCNOTIF_DEFAULT_STREAM_REPLAY", "false")
	cfg := Default()
	FromEnv(&cfg)
	if cfg.ReplayLogCapacity != 128 || cfg.ReplayWorkers != 8 {
		t.Fatalf("env overlay not applied: %+v", cfg)
	}
	if cfg.DefaultStreamReplay {
		t.Fatalf("env overlay should disable default stream replay")
	}
}
