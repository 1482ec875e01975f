// Package bridge is the command line interface of the bridge.
package bridge

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"go.minekube.com/bridge/pkg/bridge"
	"go.minekube.com/bridge/pkg/bridge/config"
	"go.minekube.com/bridge/pkg/internal/otelutil"
	"go.minekube.com/bridge/pkg/util/interrupt"
	"go.minekube.com/bridge/pkg/version"
)

// Execute runs App() and calls os.Exit when finished.
func Execute() {
	if err := App().Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// App returns the bridge command line application.
func App() *cli.App {
	// Verbosity takes -v, version moves to -V.
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}

	app := cli.NewApp()
	app.Name = "bridge"
	app.Usage = "Bedrock to Java edition cross-play bridge."
	app.Description = `Bridge lets Minecraft Bedrock edition clients join a Java edition server.

Visit the website https://minekube.com for more information.`
	app.Version = version.String()

	var (
		configFile string
		debug      bool
		verbosity  int
	)
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       `config file (default: ./config.yml)`,
			EnvVars:     []string{"BRIDGE_CONFIG"},
			Destination: &configFile,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Aliases:     []string{"d"},
			Usage:       "Enable debug mode and highest log verbosity",
			Destination: &debug,
			EnvVars:     []string{"BRIDGE_DEBUG"},
		},
		&cli.IntFlag{
			Name:        "verbosity",
			Aliases:     []string{"v"},
			Usage:       "The higher the verbosity the more logs are shown",
			EnvVars:     []string{"BRIDGE_VERBOSITY"},
			Destination: &verbosity,
		},
	}
	app.Commands = []*cli.Command{
		configCommand(),
	}
	app.Action = func(c *cli.Context) error {
		if configFile == "" {
			if _, err := os.Stat("config.yml"); err == nil {
				configFile = "config.yml"
			}
		}
		cfg, err := config.Load(configFile)
		if err != nil {
			return cli.Exit(err, 1)
		}
		if debug {
			cfg.Debug = true
			verbosity = max(verbosity, 5)
		}

		log, err := newLogger(cfg.Debug, verbosity)
		if err != nil {
			return cli.Exit(fmt.Errorf("error creating zap logger: %w", err), 1)
		}
		c.Context = logr.NewContext(c.Context, log)
		if configFile != "" {
			log.Info("Using config file", "config", configFile)
		}

		if err = validate(cfg, log); err != nil {
			return cli.Exit(err, 1)
		}

		ctx, stop := interrupt.TerminationContext(c.Context)
		defer stop()

		shutdown, err := otelutil.Init(ctx, cfg.Telemetry.Metrics, cfg.Telemetry.Traces)
		if err != nil {
			return cli.Exit(fmt.Errorf("error initializing OpenTelemetry: %w", err), 1)
		}
		defer shutdown()

		b, err := bridge.New(bridge.Options{
			Config:     cfg,
			ConfigFile: configFile,
			Logger:     log,
		})
		if err != nil {
			return cli.Exit(fmt.Errorf("error creating bridge: %w", err), 1)
		}
		log.Info("Starting bridge", "version", version.String())
		if err = b.Start(ctx); err != nil {
			return cli.Exit(fmt.Errorf("error running bridge: %w", err), 1)
		}
		log.Info("Bridge stopped")
		return nil
	}
	return app
}

// validate logs warnings of cfg and returns its errors.
func validate(cfg *config.Config, log logr.Logger) error {
	warns, errs := cfg.Validate()
	for _, w := range warns {
		log.Info("config validation warn", "warn", w.Error())
	}
	if len(errs) == 0 {
		return nil
	}
	for _, e := range errs {
		log.Info("config validation error", "error", e.Error())
	}
	return fmt.Errorf("config validation error: %w", errors.Join(errs...))
}

// newLogger returns a new zap logger with a modified production
// or development default config to ensure human readability.
func newLogger(debug bool, v int) (l logr.Logger, err error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-v))

	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zl, err := cfg.Build()
	if err != nil {
		return logr.Discard(), err
	}
	return zapr.NewLogger(zl), nil
}
