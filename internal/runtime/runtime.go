package runtime

import (
	"context"
	"errors"

	cfgpkg "github.com/BroadbandForum/obbaa-netconf-stack-sub017/internal/config"
	notifysvc "github.com/BroadbandForum/obbaa-netconf-stack-sub017/internal/services/notify"
	logpkg "github.com/BroadbandForum/obbaa-netconf-stack-sub017/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	Config cfgpkg.Config
	Logger logpkg.Logger
}

// Runtime wires config, logging, and the notification service for a
// single-node instance.
type Runtime struct {
	config cfgpkg.Config
	logger logpkg.Logger
	notify *notifysvc.Service
}

// Open validates the configuration and starts the notification service.
func Open(opts Options) (*Runtime, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	rt := &Runtime{
		config: cfg,
		logger: logger,
		notify: notifysvc.NewWithLogger(cfg, logger),
	}
	return rt, nil
}

// Close stops the notification service and its replay workers.
func (r *Runtime) Close() error {
	if r.notify != nil {
		r.notify.Close()
	}
	return nil
}

// CheckHealth performs a simple health check.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.notify == nil {
		return errors.New("notification service not open")
	}
	if len(r.notify.Streams()) == 0 {
		return errors.New("no streams configured")
	}
	return nil
}

// Notify returns the notification service facade.
func (r *Runtime) Notify() *notifysvc.Service { return r.notify }

// Logger returns the runtime's root logger.
func (r *Runtime) Logger() logpkg.Logger { return r.logger }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }
