package serverrun

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	cfgpkg "github.com/BroadbandForum/obbaa-netconf-stack-sub017/internal/config"
	"github.com/BroadbandForum/obbaa-netconf-stack-sub017/internal/runtime"
	httpserver "github.com/BroadbandForum/obbaa-netconf-stack-sub017/internal/server/http"
	logpkg "github.com/BroadbandForum/obbaa-netconf-stack-sub017/pkg/log"
)

func getenvDefault(key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

// small wrapper to allow testing; replaced by os.Getenv at build time
var getenv = func(key string) string { return os.Getenv(key) }

type Options struct {
	HTTPAddr   string
	ConfigPath string
	Config     cfgpkg.Config
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	// Be robust to callers that don't pass a signal-aware context
	// or if signal delivery needs to be observed here. We layer a
	// local signal context over the provided one.
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := opts.Config
	if opts.ConfigPath != "" {
		loaded, err := cfgpkg.Load(opts.ConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfgpkg.FromEnv(&cfg)

	// Build process-wide logger using env/ApplyConfig; defaults: level=info, format=text
	logCfg := &logpkg.Config{
		Level:  getenvDefault("NCNOTIF_LOG_LEVEL", "info"),
		Format: getenvDefault("NCNOTIF_LOG_FORMAT", "text"),
	}
	procLogger, err := logpkg.ApplyConfig(logCfg)
	if err != nil {
		lvl := logpkg.InfoLevel
		if l, e := logpkg.ParseLevel(logCfg.Level); e == nil {
			lvl = l
		}
		procLogger = logpkg.NewLogger(logpkg.WithLevel(lvl), logpkg.WithFormatter(&logpkg.TextFormatter{}))
	}
	logpkg.RedirectStdLog(procLogger)

	rt, err := runtime.Open(runtime.Options{Config: cfg, Logger: procLogger})
	if err != nil {
		return err
	}
	defer rt.Close()

	procLogger.Info("Starting notification server",
		logpkg.Str("http", opts.HTTPAddr),
		logpkg.Str("default_stream", cfg.DefaultStreamName),
		logpkg.Int("streams", len(cfg.Streams)+1),
		logpkg.Int("replay_capacity", cfg.ReplayLogCapacity),
		logpkg.Int("replay_workers", cfg.ReplayWorkers),
		logpkg.Str("level", logCfg.Level),
		logpkg.Str("format", logCfg.Format),
	)

	hsrv := httpserver.New(rt, procLogger)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := hsrv.ListenAndServe(sctx, opts.HTTPAddr); err != nil && sctx.Err() == nil {
			procLogger.Error("http server error", logpkg.Err(err))
		}
	}()

	<-sctx.Done()
	// Graceful shutdown of the server before closing the runtime to avoid
	// dispatches against closed services.
	hsrv.Close()
	wg.Wait()
	return nil
}
