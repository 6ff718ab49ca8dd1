package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"webdesk/config"
	"webdesk/server"
	"webdesk/utils"
)

// loadConfig layers defaults, the optional config file, WEBDESK_*
// environment variables and finally explicitly set flags.
func loadConfig(args []string, lookup func(string) (string, bool)) (*config.Config, error) {
	flags := flag.NewFlagSet("webdesk", flag.ContinueOnError)
	var (
		configPath = flags.String("config", "", "YAML or JSON config file")
		root       = flags.String("root", "", "Directory to serve (default "+config.DefaultRoot+")")
		addr       = flags.String("addr", "", "Listen address (default "+config.DefaultAddr+")")
		logLevel   = flags.String("log-level", "", "trace, debug, info, warn or error")
		metrics    = flags.Bool("metrics", false, "Expose prometheus metrics on /metrics")
		public     = flags.String("public", "", "Static UI directory (default "+config.DefaultPublicDir+")")
	)
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	cfg := config.NewDefaultConfig()
	if *configPath != "" {
		fileCfg, err := config.NewConfigFromFile(*configPath)
		if err != nil {
			return nil, fmt.Errorf("could not load config file %s: %w", *configPath, err)
		}
		cfg = fileCfg
	}

	envOverride, err := config.LoadEnvOverride(lookup)
	if err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	cfg.Merge(envOverride)

	flagOverride := &config.ConfigOverride{}
	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "root":
			flagOverride.Root = root
		case "addr":
			flagOverride.Addr = addr
		case "log-level":
			flagOverride.LogLevel = logLevel
		case "metrics":
			flagOverride.Metrics = metrics
		case "public":
			flagOverride.PublicDir = public
		}
	})
	cfg.Merge(flagOverride)

	return cfg, cfg.Validate()
}

func main() {
	cfg, err := loadConfig(os.Args[1:], os.LookupEnv)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}

	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	utils.InitializeLogger(cfg.LogLevel)
	logger := utils.GetLogger("main")
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	if zerolog.GlobalLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = utils.NewLogWriter("gin", slog.LevelDebug)
	gin.DefaultErrorWriter = utils.NewLogWriter("gin", slog.LevelError)

	srv, err := server.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not create server")
	}
	if err := srv.Listen(); err != nil {
		logger.Fatal().Err(err).Msg("could not start server")
	}
	done := srv.Start()

	logger.Info().
		Str("root", srv.FS.Sandbox.Root()).
		Str("local", utils.DisplayURL("localhost", srv.Addr())).
		Str("lan", utils.DisplayURL(utils.LocalIP(), srv.Addr())).
		Bool("metrics", cfg.Metrics).
		Msg("webdesk is up")

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-done:
		if err != nil {
			logger.Fatal().Err(err).Msg("server failed")
		}
	case sig := <-signals:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("shutdown did not complete")
		}
		<-done
	}
}

