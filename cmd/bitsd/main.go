// logicbits/cmd/bitsd/main.go

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"rgehrsitz/logicbits/pkg/logging"
	"rgehrsitz/logicbits/pkg/predicate"
	"rgehrsitz/logicbits/pkg/rules"
	"rgehrsitz/logicbits/pkg/runtime"
	"rgehrsitz/logicbits/pkg/store"
)

// Config represents the daemon configuration
type Config struct {
	SchemaFile              string
	RulesFile               string
	LogLevel                string
	LogDestination          string
	RedisAddress            string
	RedisPassword           string
	RedisDB                 int
	RedisChannels           []string
	VerdictChannel          string
	DashboardEnabled        bool
	DashboardPort           int
	DashboardUpdateInterval time.Duration
}

// Dependencies are the live objects the main loop drives.
type Dependencies struct {
	Store    store.Store
	Engine   *runtime.Engine
	Registry *prometheus.Registry
}

// StoreFactory is an interface for creating a store
type StoreFactory interface {
	NewStore(ctx context.Context, addr, password string, db int) (store.Store, error)
}

// EngineFactory is an interface for creating an engine
type EngineFactory interface {
	NewEngine(config *Config, s store.Store, metrics *runtime.Metrics) (*runtime.Engine, error)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args, &RealStoreFactory{}, &RealEngineFactory{}); err != nil {
		log.Fatal().Err(err).Msg("Application failed")
	}
}

func run(ctx context.Context, args []string, storeFactory StoreFactory, engineFactory EngineFactory) error {
	config, err := parseConfig(args)
	if err != nil {
		return fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := logging.ConfigureLogger(config.LogLevel, config.LogDestination); err != nil {
		return fmt.Errorf("failed to configure logger: %w", err)
	}

	deps, err := setupDependencies(ctx, config, storeFactory, engineFactory)
	if err != nil {
		return fmt.Errorf("failed to setup dependencies: %w", err)
	}
	defer deps.Store.Close()

	return runMainLoop(ctx, deps, config)
}

func parseConfig(args []string) (*Config, error) {
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	configFile := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args[1:]); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("json")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.output", "console")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.channels", []string{"logicbits_events"})
	v.SetDefault("redis.verdict_channel", "logicbits_verdicts")
	v.SetDefault("dashboard.enabled", false)
	v.SetDefault("dashboard.port", 8080)
	v.SetDefault("dashboard.update_interval", 1)

	if *configFile == "" {
		v.SetConfigName("logicbits_config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.logicbits")
		v.AddConfigPath("/etc/logicbits")
	} else {
		v.SetConfigFile(*configFile)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || *configFile != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Info().Msg("No configuration file found, using defaults")
	}

	config := &Config{
		SchemaFile:              v.GetString("schema_file"),
		RulesFile:               v.GetString("rules_file"),
		LogLevel:                v.GetString("logging.level"),
		LogDestination:          v.GetString("logging.output"),
		RedisAddress:            v.GetString("redis.address"),
		RedisPassword:           v.GetString("redis.password"),
		RedisDB:                 v.GetInt("redis.database"),
		RedisChannels:           v.GetStringSlice("redis.channels"),
		VerdictChannel:          v.GetString("redis.verdict_channel"),
		DashboardEnabled:        v.GetBool("dashboard.enabled"),
		DashboardPort:           v.GetInt("dashboard.port"),
		DashboardUpdateInterval: time.Duration(v.GetInt("dashboard.update_interval")) * time.Second,
	}
	if config.SchemaFile == "" || config.RulesFile == "" {
		return nil, logging.NewError(logging.ErrorTypeConfig, "schema_file and rules_file are required", nil, nil)
	}
	if len(config.RedisChannels) == 0 {
		return nil, logging.NewError(logging.ErrorTypeConfig, "at least one redis channel is required", nil, nil)
	}
	return config, nil
}

func setupDependencies(ctx context.Context, config *Config, storeFactory StoreFactory, engineFactory EngineFactory) (*Dependencies, error) {
	s, err := storeFactory.NewStore(ctx, config.RedisAddress, config.RedisPassword, config.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to store: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics := runtime.NewMetrics()
	if err := metrics.Register(registry); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	engine, err := engineFactory.NewEngine(config, s, metrics)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to initialize engine: %w", err)
	}

	return &Dependencies{
		Store:    s,
		Engine:   engine,
		Registry: registry,
	}, nil
}

func runMainLoop(ctx context.Context, deps *Dependencies, config *Config) error {
	pubsub, err := deps.Store.Subscribe(ctx, config.RedisChannels...)
	if err != nil {
		return err
	}
	defer pubsub.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	if config.DashboardEnabled {
		dashboard := runtime.NewDashboard(deps.Engine, config.DashboardPort, config.DashboardUpdateInterval, deps.Registry)
		g.Go(func() error { return dashboard.Start(ctx) })
	}

	log.Info().Strs("channels", config.RedisChannels).Msg("logicbits engine started")
	g.Go(func() error {
		defer cancel()
		if err := deps.Engine.Run(ctx, pubsub.Channel()); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	})

	err = g.Wait()
	log.Info().Interface("stats", deps.Engine.GetStats()).Msg("Shutting down logicbits engine")
	return err
}

// RealStoreFactory implements StoreFactory
type RealStoreFactory struct{}

func (f *RealStoreFactory) NewStore(ctx context.Context, addr, password string, db int) (store.Store, error) {
	s, err := store.NewRedisStore(ctx, addr, password, db)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// RealEngineFactory implements EngineFactory
type RealEngineFactory struct{}

func (f *RealEngineFactory) NewEngine(config *Config, s store.Store, metrics *runtime.Metrics) (*runtime.Engine, error) {
	space, err := predicate.LoadSchema(config.SchemaFile)
	if err != nil {
		return nil, err
	}
	rs, err := rules.Load(config.RulesFile, space)
	if err != nil {
		return nil, err
	}
	return runtime.NewEngine(space, rs, runtime.WithStore(s, config.VerdictChannel), runtime.WithMetrics(metrics))
}
