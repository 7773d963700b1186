package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/beehive-org/beehive/internal/log"
)

// DefaultConfigTemplate returns the default config as a YAML string with
// explanatory comments, the content WriteDefaultConfig writes.
func DefaultConfigTemplate() string {
	return `# Beehive Configuration

# Multiplexer session identifier.
session_name: hive

# Path to the durable store.
db_path: hive/hive_memory.db

# Verbosity for structured logs: debug, info, warn, error.
log_level: info

# Per-operation deadline for the store, in Go duration syntax.
db_timeout: 5s

# Bee -> pane mapping. Values are multiplexer pane addresses.
pane_mapping:
  queen: "0.0"
  developer: "0.1"
  qa: "0.2"
  analyst: "0.3"

# How often the Supervisor re-injects role reminders.
remind_interval: 5m

# Liveness thresholds.
t_idle: 2m
t_silent: 10m

# Max concurrent Injector deliveries.
injector_concurrency: 4

# Recipient of protocol-violation alerts.
observer_bee: queen

# Supervisor duty-sweep period.
tick_interval: 5s

# How long init waits for a bee's role-injection acknowledgement.
role_injection_timeout: 30s

# Path to the tmux binary.
tmux_bin_path: tmux
`
}

// WriteDefaultConfig creates a config file at the given path with default
// settings and comments, creating the parent directory if needed.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "created default config", "path", configPath)
	return nil
}

// SavePaneMapping updates the pane_mapping section of an existing config
// file in place, preserving comments and formatting elsewhere in the
// document via yaml.Node surgery.
func SavePaneMapping(configPath string, mapping map[string]string) error {
	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}

	var doc yaml.Node
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	mappingNode := buildPaneMappingNode(mapping)

	if doc.Kind == 0 {
		doc = yaml.Node{
			Kind: yaml.DocumentNode,
			Content: []*yaml.Node{
				{
					Kind: yaml.MappingNode,
					Content: []*yaml.Node{
						{Kind: yaml.ScalarNode, Value: "pane_mapping"},
						mappingNode,
					},
				},
			},
		}
	} else if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		root := doc.Content[0]
		if root.Kind == yaml.MappingNode {
			found := false
			for i := 0; i < len(root.Content)-1; i += 2 {
				if root.Content[i].Value == "pane_mapping" {
					root.Content[i+1] = mappingNode
					found = true
					break
				}
			}
			if !found {
				root.Content = append(root.Content,
					&yaml.Node{Kind: yaml.ScalarNode, Value: "pane_mapping"},
					mappingNode,
				)
			}
		}
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_ = encoder.Close()

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, ".hive.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(buf.Bytes()); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tempPath, configPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func buildPaneMappingNode(mapping map[string]string) *yaml.Node {
	keys := make([]string, 0, len(mapping))
	for k := range mapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	node := &yaml.Node{Kind: yaml.MappingNode, Content: make([]*yaml.Node, 0, len(mapping)*2)}
	for _, k := range keys {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: k},
			&yaml.Node{Kind: yaml.ScalarNode, Value: mapping[k]},
		)
	}
	return node
}
