package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/quorumlab/faultprobe/oracle"
	"github.com/quorumlab/faultprobe/protocol"
)

// Scenario is one fault-injection experiment: a topology, a fault to
// inject, a statement to run, and the settings under which it runs. The
// expected outcome is never part of a scenario; the oracle predicts it.
type Scenario struct {
	Name        string
	Description string

	// ReplicationFactor and Nodes shape the topology. Nodes defaults to
	// the replication factor so every node is a replica of every key.
	ReplicationFactor int
	Nodes             int

	Level   protocol.ConsistencyLevel
	Version protocol.Version
	Kind    protocol.StatementKind

	Keyspace  string
	Table     string
	Key       string
	Statement string

	// FailingNodes lists the node IDs restarted with write rejection.
	FailingNodes []uint64

	// RejectPattern scopes the rejection; defaults to the keyspace name.
	RejectPattern string
}

const (
	defaultKeyspace = "foo"
	defaultTable    = "mytable"
	counterTable    = "countertable"
	defaultKey      = "key1"
)

// scenarioYAML is the on-disk shape; enum fields come in as strings and
// are parsed during validation.
type scenarioYAML struct {
	Name              string   `yaml:"name"`
	Description       string   `yaml:"description,omitempty"`
	ReplicationFactor int      `yaml:"replication_factor"`
	Nodes             int      `yaml:"nodes,omitempty"`
	Level             string   `yaml:"level"`
	Version           int      `yaml:"version"`
	Kind              string   `yaml:"kind,omitempty"`
	Keyspace          string   `yaml:"keyspace,omitempty"`
	Table             string   `yaml:"table,omitempty"`
	Key               string   `yaml:"key,omitempty"`
	Statement         string   `yaml:"statement"`
	FailingNodes      []uint64 `yaml:"failing_nodes,omitempty"`
	RejectPattern     string   `yaml:"reject_pattern,omitempty"`
}

type suiteYAML struct {
	Name      string         `yaml:"name"`
	Scenarios []scenarioYAML `yaml:"scenarios"`
}

// LoadSuite reads a scenario suite from a YAML file. Unknown fields are
// rejected, so a typo in a scenario file fails loudly instead of silently
// running a different experiment.
func LoadSuite(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite file: %w", err)
	}

	var raw suiteYAML
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse suite %s: %w", path, err)
	}

	if len(raw.Scenarios) == 0 {
		return nil, protocol.NewConfigurationError("suite %s contains no scenarios", path)
	}

	scenarios := make([]Scenario, 0, len(raw.Scenarios))
	seen := make(map[string]bool, len(raw.Scenarios))
	for i, rs := range raw.Scenarios {
		sc, err := rs.resolve()
		if err != nil {
			return nil, fmt.Errorf("scenario %d (%s): %w", i+1, rs.Name, err)
		}
		if seen[sc.Name] {
			return nil, protocol.NewConfigurationError("duplicate scenario name %q", sc.Name)
		}
		seen[sc.Name] = true
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

// resolve parses enum fields, applies defaults and validates the scenario.
func (rs scenarioYAML) resolve() (Scenario, error) {
	if rs.Name == "" {
		return Scenario{}, protocol.NewConfigurationError("name is required")
	}
	if rs.Statement == "" {
		return Scenario{}, protocol.NewConfigurationError("statement is required")
	}

	level, err := protocol.ParseConsistencyLevel(rs.Level)
	if err != nil {
		return Scenario{}, err
	}

	version := protocol.Version(rs.Version)
	if err := version.Validate(); err != nil {
		return Scenario{}, err
	}

	kind := protocol.ClassifyStatement(rs.Statement)
	if rs.Kind != "" {
		kind, err = protocol.ParseStatementKind(rs.Kind)
		if err != nil {
			return Scenario{}, err
		}
	}

	sc := Scenario{
		Name:              rs.Name,
		Description:       rs.Description,
		ReplicationFactor: rs.ReplicationFactor,
		Nodes:             rs.Nodes,
		Level:             level,
		Version:           version,
		Kind:              kind,
		Keyspace:          rs.Keyspace,
		Table:             rs.Table,
		Key:               rs.Key,
		Statement:         rs.Statement,
		FailingNodes:      rs.FailingNodes,
		RejectPattern:     rs.RejectPattern,
	}
	sc.applyDefaults()
	if err := sc.Validate(); err != nil {
		return Scenario{}, err
	}
	return sc, nil
}

func (s *Scenario) applyDefaults() {
	if s.Keyspace == "" {
		s.Keyspace = defaultKeyspace
	}
	if s.Table == "" {
		if s.Kind == protocol.StatementCounter {
			s.Table = counterTable
		} else {
			s.Table = defaultTable
		}
	}
	if s.Key == "" {
		s.Key = defaultKey
	}
	if s.Nodes == 0 {
		s.Nodes = s.ReplicationFactor
	}
	if s.RejectPattern == "" {
		s.RejectPattern = s.Keyspace
	}
}

// Validate checks the scenario for contradictions that no run could
// satisfy. Settings that merely produce failing writes are fine; the
// oracle predicts those.
func (s *Scenario) Validate() error {
	if s.ReplicationFactor < 1 {
		return protocol.NewConfigurationError("replication factor must be >= 1, got %d", s.ReplicationFactor)
	}
	if s.Nodes < s.ReplicationFactor {
		return protocol.NewConfigurationError(
			"topology of %d nodes cannot hold %d replicas", s.Nodes, s.ReplicationFactor)
	}
	if err := oracle.ValidateLevel(s.Level, s.ReplicationFactor); err != nil {
		return err
	}
	if len(s.FailingNodes) > 0 && s.Nodes != s.ReplicationFactor {
		// With spare nodes the failing set may miss the key's replicas,
		// making the failing count meaningless to the oracle.
		return protocol.NewConfigurationError(
			"failing nodes require every node to be a replica (nodes == replication factor)")
	}
	seen := make(map[uint64]bool, len(s.FailingNodes))
	for _, id := range s.FailingNodes {
		if id < 1 || id > uint64(s.Nodes) {
			return protocol.NewConfigurationError("failing node %d outside topology of %d nodes", id, s.Nodes)
		}
		if seen[id] {
			return protocol.NewConfigurationError("failing node %d listed twice", id)
		}
		seen[id] = true
	}
	return nil
}

// topologyKey groups scenarios that can share one provisioned topology.
func (s *Scenario) topologyKey() string {
	return fmt.Sprintf("%s/rf=%d/n=%d", s.Keyspace, s.ReplicationFactor, s.Nodes)
}
