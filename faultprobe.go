package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quorumlab/faultprobe/admin"
	"github.com/quorumlab/faultprobe/cfg"
	"github.com/quorumlab/faultprobe/harness"
	"github.com/quorumlab/faultprobe/sim"
	"github.com/quorumlab/faultprobe/telemetry"
)

func main() {
	flag.Parse()

	// Load configuration
	err := cfg.Load(*cfg.ConfigPathFlag)
	if err != nil {
		panic(err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("Invalid configuration: %v", err))
	}

	// Setup logging
	var writer io.Writer = zerolog.NewConsoleWriter()
	if cfg.Config.Logging.Format == "json" {
		writer = os.Stdout
	}
	gLog := zerolog.New(writer).
		With().
		Timestamp().
		Uint64("runner_id", cfg.Config.RunnerID).
		Logger()

	if cfg.Config.Logging.Verbose {
		log.Logger = gLog.Level(zerolog.DebugLevel)
	} else {
		log.Logger = gLog.Level(zerolog.InfoLevel)
	}

	log.Info().Msg("Faultprobe - Write Failure Oracle Harness")
	log.Debug().Msg("Initializing telemetry")
	telemetry.InitializeTelemetry()

	os.Exit(run())
}

// run executes the suite and returns the process exit code: 0 when every
// scenario passes, 1 when any diverges or errors, 2 when the run itself
// cannot complete.
func run() int {
	scenarios, err := loadScenarios()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load scenario suite")
		return 2
	}

	for _, sc := range scenarios {
		if sc.Nodes > cfg.Config.Cluster.Nodes {
			log.Error().
				Str("scenario", sc.Name).
				Int("nodes", sc.Nodes).
				Int("configured", cfg.Config.Cluster.Nodes).
				Msg("Scenario topology exceeds configured cluster size")
			return 2
		}
	}

	store, err := openStore()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open results store")
		return 2
	}
	if store != nil {
		defer store.Close()
	}

	if cfg.Config.Prometheus.Enabled && store != nil {
		addr := fmt.Sprintf("%s:%d", cfg.Config.Prometheus.Address, cfg.Config.Prometheus.Port)
		server := admin.NewServer(addr, admin.NewHandlers(store))
		server.Start()
		defer server.Stop()
	}

	startupTimeout := time.Duration(cfg.Config.Cluster.StartupTimeoutMS) * time.Millisecond
	readyPoll := time.Duration(cfg.Config.Cluster.ReadyPollMS) * time.Millisecond
	writeTimeout := time.Duration(cfg.Config.Harness.WriteTimeoutMS) * time.Millisecond

	provider := func(ctx context.Context, nodes int) (harness.Environment, error) {
		cluster := sim.NewCluster(nodes)
		cluster.SetTiming(0, readyPoll)
		return cluster, nil
	}

	runner := harness.NewRunner(provider, writeTimeout,
		cfg.Config.Harness.MaxParallelTopologies, store)
	runner.SetReadyTimeout(startupTimeout)

	report, err := runner.Run(context.Background(), scenarios)
	if err != nil {
		log.Error().Err(err).Msg("Suite run failed")
		return 2
	}

	if report.FirstDivergence != nil {
		res := report.FirstDivergence
		log.Error().
			Err(res.Err).
			Str("scenario", res.Scenario.Name).
			Str("status", string(res.Status)).
			Str("predicted", res.Predicted.String()).
			Str("actual", res.Actual.String()).
			Msg("First divergence")
		return 1
	}

	log.Info().Int("scenarios", report.Passed).Msg("Every scenario matched its prediction")
	return 0
}

// loadScenarios returns the configured YAML suite, or the built-in matrix
// when none is set.
func loadScenarios() ([]harness.Scenario, error) {
	if path := cfg.Config.Harness.SuitePath; path != "" {
		log.Info().Str("suite", path).Msg("Loading scenario suite")
		return harness.LoadSuite(path)
	}
	log.Info().Msg("Running built-in scenario suite")
	scenarios := harness.DefaultSuite()
	if ks := cfg.Config.Harness.Keyspace; ks != "" {
		for i := range scenarios {
			sc := &scenarios[i]
			if sc.RejectPattern == sc.Keyspace {
				sc.RejectPattern = ks
			}
			sc.Keyspace = ks
		}
	}
	return scenarios, nil
}

// openStore opens the configured results archive. The inspection API needs
// one, so enabling it without a configured path defaults the archive into
// the data directory.
func openStore() (*harness.Store, error) {
	path := cfg.Config.Harness.ResultsPath
	if path == "" {
		if !cfg.Config.Prometheus.Enabled {
			return nil, nil
		}
		path = filepath.Join(cfg.Config.DataDir, "results.db")
	}
	return harness.NewStore(path)
}
