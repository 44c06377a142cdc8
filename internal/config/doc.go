// Package config provides loading and environment overlay for the
// notification server configuration: the static stream catalog, replay log
// capacity, and replay worker pool size. It exposes a Default() baseline,
// Load() for JSON or YAML files, and FromEnv() for NCNOTIF_* overrides.
//
// Example:
//
//	cfg := config.Default()
//	if fileCfg, err := config.Load("/etc/nc-notifyd.yaml"); err == nil {
//	    cfg = fileCfg
//	}
//	config.FromEnv(&cfg)
//	rt, _ := runtime.Open(runtime.Options{Config: cfg})
//	defer rt.Close()
package config
