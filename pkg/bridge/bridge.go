// Package bridge lets Bedrock edition clients join a Java edition server.
//
// It wires the Bedrock listener to the Java server connection and runs
// the services both depend on: the skin provider, the custom blocks
// registry, the health probe and the config reload.
package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/robinbraemer/event"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"go.minekube.com/bridge/pkg/blocks"
	"go.minekube.com/bridge/pkg/bridge/config"
	bconfig "go.minekube.com/bridge/pkg/edition/bedrock/config"
	bproto "go.minekube.com/bridge/pkg/edition/bedrock/proto"
	bproxy "go.minekube.com/bridge/pkg/edition/bedrock/proxy"
	"go.minekube.com/bridge/pkg/internal/health"
	"go.minekube.com/bridge/pkg/internal/reload"
	"go.minekube.com/bridge/pkg/skin"
	"go.minekube.com/bridge/pkg/translator"
	btranslator "go.minekube.com/bridge/pkg/translator/bedrock"
	jtranslator "go.minekube.com/bridge/pkg/translator/java"
	"go.minekube.com/bridge/pkg/util/errs"
)

// Options are the options for a new Bridge.
type Options struct {
	// Config requires a valid configuration.
	Config *config.Config
	// ConfigFile the Config was loaded from.
	// It is reloaded on changes if Config.AutoReload is set.
	ConfigFile string
	// The event manager to use.
	// If none is set, a new one is created.
	EventMgr event.Manager
	// Logger is the logger to be used by the Bridge.
	// If none is set, does no logging at all.
	Logger logr.Logger
}

// Bridge runs the Bedrock listener and the services it depends on.
type Bridge struct {
	log        logr.Logger
	event      event.Manager
	configFile string
	cfg        atomic.Pointer[config.Config]

	blocks *blocks.Registry
	skins  *skin.Provider
	proxy  *bproxy.Proxy
}

// New takes a config that should have been validated by
// config.Validate and returns a new initialized Bridge ready to start.
func New(options Options) (b *Bridge, err error) {
	if options.Config == nil {
		return nil, errs.ErrMissingConfig
	}
	eventMgr := options.EventMgr
	if eventMgr == nil {
		eventMgr = event.New()
	}
	cfg := options.Config
	log := options.Logger

	b = &Bridge{
		log:        log,
		event:      eventMgr,
		configFile: options.ConfigFile,
		blocks:     blocks.NewRegistry(cfg.Blocks.File, eventMgr, log),
		skins:      skin.NewProvider(cfg.SkinOptions(log)),
	}
	b.cfg.Store(cfg)
	if err = b.blocks.Load(); err != nil {
		return nil, err
	}

	codecs, err := bproto.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("error creating Bedrock codecs: %w", err)
	}
	upstream, err := btranslator.Register(translator.NewBuilder()).Build()
	if err != nil {
		return nil, fmt.Errorf("error creating Bedrock translators: %w", err)
	}
	downstream, err := jtranslator.Register(translator.NewBuilder(), jtranslator.Options{
		Blocks:  b.blocks,
		Skins:   b.skins,
		Bedrock: codecs,
	}).Build()
	if err != nil {
		return nil, fmt.Errorf("error creating Java translators: %w", err)
	}

	b.proxy, err = bproxy.New(bproxy.Options{
		Config:     &cfg.Bedrock,
		Backend:    cfg.Java.BackendOptions(log.WithName("java")),
		Codecs:     codecs,
		Upstream:   upstream,
		Downstream: downstream,
		EventMgr:   eventMgr,
		Logger:     log,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating Bedrock proxy: %w", err)
	}
	return b, nil
}

// Proxy returns the Bedrock listener.
func (b *Bridge) Proxy() *bproxy.Proxy { return b.proxy }

// Config returns the current config.
func (b *Bridge) Config() *config.Config { return b.cfg.Load() }

// Event returns the event manager of the Bridge.
func (b *Bridge) Event() event.Manager { return b.event }

// Start runs the Bridge until ctx is canceled or a service fails.
func (b *Bridge) Start(ctx context.Context) error {
	cfg := b.Config()
	eg, ctx := errgroup.WithContext(ctx)

	if cfg.HealthService.Enabled {
		run, err := health.New(cfg.HealthService.Bind)
		if err != nil {
			return fmt.Errorf("error creating health probe service: %w", err)
		}
		b.log.Info("Health probe service running", "addr", cfg.HealthService.Bind)
		eg.Go(func() error { return run(ctx.Done(), health.Serving) })
	}

	if cfg.Blocks.Watch {
		if err := b.blocks.Watch(ctx); err != nil {
			return fmt.Errorf("error watching custom blocks file: %w", err)
		}
	}
	if cfg.AutoReload && b.configFile != "" {
		ctx := logr.NewContext(ctx, b.log.WithName("reload"))
		if err := reload.Watch(ctx, b.configFile, reload.DefaultDebounce, b.reloadConfig); err != nil {
			return fmt.Errorf("error watching config file: %w", err)
		}
		b.log.Info("Watching config file for changes", "path", b.configFile)
	}

	eg.Go(func() error {
		b.skins.Start(ctx)
		return nil
	})
	eg.Go(func() error { return b.proxy.Start(ctx) })
	return eg.Wait()
}

// reloadConfig loads the config file and applies the bedrock section.
// An invalid file keeps the current config.
func (b *Bridge) reloadConfig() error {
	next, err := config.Load(b.configFile)
	if err != nil {
		return err
	}
	warns, errList := next.Validate()
	if len(errList) != 0 {
		return fmt.Errorf("config file is invalid, keeping the current config: %w", errors.Join(errList...))
	}
	for _, w := range warns {
		b.log.Info("config validation warn", "warn", w.Error())
	}

	prev := b.cfg.Swap(next)
	if prev.Java != next.Java || prev.Blocks != next.Blocks || prev.Skins != next.Skins ||
		prev.HealthService != next.HealthService || prev.Telemetry != next.Telemetry {
		b.log.Info("Only the bedrock section is reloaded, restart the bridge to apply other changes")
	}
	b.log.Info("Reloaded config", "path", b.configFile)
	reload.FireConfigUpdate[bconfig.Config](b.event, &next.Bedrock, &prev.Bedrock)
	reload.FireConfigUpdate(b.event, next, prev)
	return nil
}
