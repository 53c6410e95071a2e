package cfg

import (
	"flag"
	"fmt"
	"hash/fnv"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/denisbrodbeck/machineid"
	"github.com/rs/zerolog/log"
)

// ClusterConfiguration controls the cluster the harness drives
type ClusterConfiguration struct {
	Nodes            int `toml:"nodes"`
	BasePort         int `toml:"base_port"`
	StartupTimeoutMS int `toml:"startup_timeout_ms"` // Max wait for a node to report ready after restart
	ReadyPollMS      int `toml:"ready_poll_ms"`      // Poll interval while waiting for ready
}

// HarnessConfiguration controls scenario execution
type HarnessConfiguration struct {
	Keyspace              string `toml:"keyspace"`
	SuitePath             string `toml:"suite"`                   // YAML suite; empty runs the built-in suite
	WriteTimeoutMS        int    `toml:"write_timeout_ms"`        // Bound on a single statement execution
	ResultsPath           string `toml:"results_path"`            // SQLite results archive; empty disables persistence
	MaxParallelTopologies int    `toml:"max_parallel_topologies"` // Independent topologies may run concurrently
}

// LoggingConfiguration controls logging behavior
type LoggingConfiguration struct {
	Verbose bool   `toml:"verbose"`
	Format  string `toml:"format"` // "console" or "json"
}

// PrometheusConfiguration for metrics
type PrometheusConfiguration struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
	Port    int    `toml:"port"`
}

// Configuration is the main configuration structure
type Configuration struct {
	RunnerID uint64 `toml:"runner_id"`
	DataDir  string `toml:"data_dir"`

	Cluster    ClusterConfiguration    `toml:"cluster"`
	Harness    HarnessConfiguration    `toml:"harness"`
	Logging    LoggingConfiguration    `toml:"logging"`
	Prometheus PrometheusConfiguration `toml:"prometheus"`
}

// Command line flags
var (
	ConfigPathFlag  = flag.String("config", "config.toml", "Path to configuration file")
	SuitePathFlag   = flag.String("suite", "", "Path to YAML scenario suite (overrides config)")
	DataDirFlag     = flag.String("data-dir", "", "Data directory (overrides config)")
	NodesFlag       = flag.Int("nodes", 0, "Cluster node count (overrides config)")
	ResultsPathFlag = flag.String("results", "", "SQLite results archive path (overrides config)")
)

// Default configuration
var Config = &Configuration{
	RunnerID: 0, // Auto-generate
	DataDir:  "./faultprobe-data",

	Cluster: ClusterConfiguration{
		Nodes:            3,
		BasePort:         9042,
		StartupTimeoutMS: 10000,
		ReadyPollMS:      50,
	},

	Harness: HarnessConfiguration{
		Keyspace:              "foo",
		WriteTimeoutMS:        5000,
		ResultsPath:           "",
		MaxParallelTopologies: 2,
	},

	Logging: LoggingConfiguration{
		Verbose: false,
		Format:  "console",
	},

	Prometheus: PrometheusConfiguration{
		Enabled: false,
		Address: "0.0.0.0",
		Port:    9090,
	},
}

// Load loads configuration from file and applies CLI overrides
func Load(configPath string) error {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			log.Info().Str("path", configPath).Msg("Loading configuration")
			if _, err := toml.DecodeFile(configPath, Config); err != nil {
				return fmt.Errorf("failed to decode config: %w", err)
			}
		} else {
			log.Warn().Str("path", configPath).Msg("Config file not found, using defaults")
		}
	}

	// Apply CLI overrides
	if *SuitePathFlag != "" {
		Config.Harness.SuitePath = *SuitePathFlag
	}
	if *DataDirFlag != "" {
		Config.DataDir = *DataDirFlag
	}
	if *NodesFlag != 0 {
		Config.Cluster.Nodes = *NodesFlag
	}
	if *ResultsPathFlag != "" {
		Config.Harness.ResultsPath = *ResultsPathFlag
	}

	// Auto-generate runner ID if not set
	if Config.RunnerID == 0 {
		var err error
		Config.RunnerID, err = generateRunnerID()
		if err != nil {
			return fmt.Errorf("failed to generate runner ID: %w", err)
		}
		log.Info().Uint64("runner_id", Config.RunnerID).Msg("Auto-generated runner ID")
	}

	// Ensure data directory exists
	if err := os.MkdirAll(Config.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	return nil
}

// generateRunnerID creates a stable runner ID based on machine ID
func generateRunnerID() (uint64, error) {
	id, err := machineid.ProtectedID("faultprobe")
	if err != nil {
		return 0, err
	}

	h := fnv.New64a()
	h.Write([]byte(id))
	return h.Sum64(), nil
}

// Validate checks configuration for errors
func Validate() error {
	if Config.Cluster.Nodes < 1 {
		return fmt.Errorf("cluster must have at least 1 node, got %d", Config.Cluster.Nodes)
	}

	if Config.Cluster.BasePort < 1 || Config.Cluster.BasePort > 65535 {
		return fmt.Errorf("invalid base port: %d", Config.Cluster.BasePort)
	}

	if Config.Cluster.StartupTimeoutMS < 1 {
		return fmt.Errorf("startup timeout must be >= 1ms")
	}

	if Config.Cluster.ReadyPollMS < 1 {
		return fmt.Errorf("ready poll interval must be >= 1ms")
	}

	if Config.Harness.Keyspace == "" {
		return fmt.Errorf("harness keyspace is required")
	}

	if Config.Harness.WriteTimeoutMS < 1 {
		return fmt.Errorf("write timeout must be >= 1ms")
	}

	if Config.Harness.MaxParallelTopologies < 1 {
		return fmt.Errorf("max parallel topologies must be >= 1")
	}

	if Config.Logging.Format != "console" && Config.Logging.Format != "json" {
		return fmt.Errorf("invalid logging format: %s", Config.Logging.Format)
	}

	if Config.Prometheus.Enabled && (Config.Prometheus.Port < 1 || Config.Prometheus.Port > 65535) {
		return fmt.Errorf("invalid Prometheus port: %d", Config.Prometheus.Port)
	}

	return nil
}
