// bouchon/cmd/bouchond/main.go

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"bouchon/pkg/api"
	"bouchon/pkg/capture"
	"bouchon/pkg/flow"
	"bouchon/pkg/logging"
	"bouchon/pkg/scenario"
	"bouchon/pkg/store"
)

// Config represents the application configuration
type Config struct {
	ListenAddress  string
	LogLevel       string
	LogDestination string
	RedisEnabled   bool
	RedisAddress   string
	RedisPassword  string
	RedisDB        int
	IngestBuffer   int
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("Application failed")
	}
}

func run(ctx context.Context, args []string) error {
	config, err := parseConfig(args)
	if err != nil {
		return fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := logging.ConfigureLogger(config.LogLevel, config.LogDestination); err != nil {
		return fmt.Errorf("failed to configure logger: %w", err)
	}

	view := flow.NewView()
	scenarios := scenario.NewStore()
	controller := scenario.NewController(scenarios, view)

	if config.RedisEnabled {
		persister, err := store.NewRedisStore(config.RedisAddress, config.RedisPassword, config.RedisDB)
		if err != nil {
			return fmt.Errorf("failed to connect scenario persistence: %w", err)
		}
		persisted, current, err := persister.LoadAll()
		if err != nil {
			return fmt.Errorf("failed to restore scenarios: %w", err)
		}
		store.Restore(persisted, current, scenarios, view)
		controller.SetPersister(persister)
	}

	ingestor := capture.NewIngestor(func(f *flow.Flow) error {
		view.Add(f)
		return nil
	}, config.IngestBuffer)
	defer ingestor.Close()

	broadcaster := api.NewBroadcaster()

	// Every view delta reaches the observers, and new arrivals hit the
	// learning-capture hook.
	view.OnEvent(func(e flow.Event) {
		if e.Kind == flow.EventAdd {
			controller.OnFlowCaptured(e.Flow)
		}
		broadcaster.Broadcast(map[string]interface{}{
			"type": string(e.Kind),
			"flow": flow.Project(e.Flow),
		})
	})

	server := api.NewServer(view, controller, capture.JSONCodec{}, ingestor, broadcaster)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Run(config.ListenAddress)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Info().Str("addr", config.ListenAddress).Msg("bouchon daemon started")

	for {
		select {
		case res := <-ingestor.Results():
			if res.Err != nil {
				log.Error().Err(res.Err).Str("flow_id", res.FlowID).Msg("Flow ingestion failed")
			}
		case err := <-errChan:
			return err
		case <-sigChan:
			log.Info().Msg("Shutting down bouchon daemon")
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func parseConfig(args []string) (*Config, error) {
	configFile := flag.String("config", "", "Path to configuration file")
	flag.CommandLine.Parse(args[1:])

	viper.SetConfigType("json")
	viper.SetDefault("api.listen", ":8081")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.output", "console")
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.database", 0)
	viper.SetDefault("ingest.buffer", 256)

	if *configFile == "" {
		viper.SetConfigName("bouchon_config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.bouchon")
		viper.AddConfigPath("/etc/bouchon")
	} else {
		viper.SetConfigFile(*configFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || *configFile != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Info().Msg("No configuration file found, using defaults")
	}

	return &Config{
		ListenAddress:  viper.GetString("api.listen"),
		LogLevel:       viper.GetString("logging.level"),
		LogDestination: viper.GetString("logging.output"),
		RedisEnabled:   viper.GetBool("redis.enabled"),
		RedisAddress:   viper.GetString("redis.address"),
		RedisPassword:  viper.GetString("redis.password"),
		RedisDB:        viper.GetInt("redis.database"),
		IngestBuffer:   viper.GetInt("ingest.buffer"),
	}, nil
}
