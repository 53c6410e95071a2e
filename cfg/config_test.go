package cfg

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() *Configuration {
	return &Configuration{
		RunnerID: 1,
		DataDir:  "./test-data",
		Cluster: ClusterConfiguration{
			Nodes:            3,
			BasePort:         9042,
			StartupTimeoutMS: 10000,
			ReadyPollMS:      50,
		},
		Harness: HarnessConfiguration{
			Keyspace:              "foo",
			WriteTimeoutMS:        5000,
			MaxParallelTopologies: 2,
		},
		Logging: LoggingConfiguration{
			Format: "console",
		},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	Config = validConfig()
	if err := Validate(); err != nil {
		t.Errorf("Validate() returned error for valid config: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	tests := []struct {
		name   string
		mutate func(*Configuration)
	}{
		{"zero nodes", func(c *Configuration) { c.Cluster.Nodes = 0 }},
		{"bad base port", func(c *Configuration) { c.Cluster.BasePort = 70000 }},
		{"zero startup timeout", func(c *Configuration) { c.Cluster.StartupTimeoutMS = 0 }},
		{"empty keyspace", func(c *Configuration) { c.Harness.Keyspace = "" }},
		{"zero write timeout", func(c *Configuration) { c.Harness.WriteTimeoutMS = 0 }},
		{"zero parallel topologies", func(c *Configuration) { c.Harness.MaxParallelTopologies = 0 }},
		{"bad logging format", func(c *Configuration) { c.Logging.Format = "xml" }},
		{"bad prometheus port", func(c *Configuration) {
			c.Prometheus.Enabled = true
			c.Prometheus.Port = -1
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Config = validConfig()
			tt.mutate(Config)
			if err := Validate(); err == nil {
				t.Error("Validate() expected error, got nil")
			}
		})
	}
}

func TestLoad_TOMLFile(t *testing.T) {
	original := Config
	defer func() { Config = original }()
	Config = validConfig()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
runner_id = 42
data_dir = "` + filepath.Join(dir, "data") + `"

[cluster]
nodes = 5
base_port = 9142

[harness]
keyspace = "bar"
write_timeout_ms = 1000
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if err := Load(path); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if Config.RunnerID != 42 {
		t.Errorf("RunnerID = %d, want 42", Config.RunnerID)
	}
	if Config.Cluster.Nodes != 5 {
		t.Errorf("Cluster.Nodes = %d, want 5", Config.Cluster.Nodes)
	}
	if Config.Harness.Keyspace != "bar" {
		t.Errorf("Harness.Keyspace = %q, want bar", Config.Harness.Keyspace)
	}
	if _, err := os.Stat(Config.DataDir); err != nil {
		t.Errorf("data directory was not created: %v", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	original := Config
	defer func() { Config = original }()
	Config = validConfig()
	Config.DataDir = filepath.Join(t.TempDir(), "data")

	if err := Load(filepath.Join(t.TempDir(), "nope.toml")); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if Config.Cluster.Nodes != 3 {
		t.Errorf("Cluster.Nodes = %d, want default 3", Config.Cluster.Nodes)
	}
}
