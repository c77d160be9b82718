package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// RunConfig holds file-backed analyzer settings: default agent,
// worker/timeout/retry knobs, and per-agent budget overrides. This is not
// the CLI's load/save surface (out of scope). "agr analyze" builds its
// analyzer.AnalyzeOptions from Workers, TimeoutSeconds, RetryMaxAttempts,
// CurationThreshold and NormalizeWhitespace; DefaultAgent and AgentBudgets
// are loaded and saved but not applied (the agent comes from --agent and
// the budget from budget.ForAgent).
type RunConfig struct {
	DefaultAgent        string             `yaml:"default_agent,omitempty"`
	Workers             int                `yaml:"workers,omitempty"`
	TimeoutSeconds      int                `yaml:"timeout_seconds,omitempty"`
	RetryMaxAttempts    int                `yaml:"retry_max_attempts,omitempty"`
	CurationThreshold   int                `yaml:"curation_threshold,omitempty"`
	NormalizeWhitespace bool               `yaml:"normalize_whitespace,omitempty"`
	AgentBudgets        BudgetOverrideList `yaml:"agent_budgets,omitempty"`
}

// BudgetOverride records token budget fields for one agent; zero fields are
// omitted when saved. Nothing in this module merges an override into
// budget.ForAgent's result.
type BudgetOverride struct {
	Agent          string  `yaml:"agent" json:"agent"`
	MaxInputTokens int     `yaml:"max_input_tokens,omitempty" json:"max_input_tokens,omitempty"`
	ReservedOutput int     `yaml:"reserved_output,omitempty" json:"reserved_output,omitempty"`
	SafetyMargin   float64 `yaml:"safety_margin,omitempty" json:"safety_margin,omitempty"`
}

// BudgetOverrideList supports the teacher's PathList idiom of mixed YAML
// shapes in a sequence: a bare agent name string (no override, just an
// explicit budget lookup), or a full mapping with override fields.
type BudgetOverrideList []BudgetOverride

// UnmarshalYAML handles both scalar strings and mapping nodes in a YAML
// sequence, the same pattern internal/config/wing.go uses for PathList.
func (bl *BudgetOverrideList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.SequenceNode {
		return &yaml.TypeError{Errors: []string{"agent_budgets: expected sequence"}}
	}
	var result BudgetOverrideList
	for _, item := range value.Content {
		switch item.Kind {
		case yaml.ScalarNode:
			result = append(result, BudgetOverride{Agent: item.Value})
		case yaml.MappingNode:
			var entry BudgetOverride
			if err := item.Decode(&entry); err != nil {
				return err
			}
			result = append(result, entry)
		}
	}
	*bl = result
	return nil
}

// MarshalYAML mirrors PathList: overrides with no custom fields serialize
// back out as a plain string.
func (bl BudgetOverrideList) MarshalYAML() (any, error) {
	var nodes []*yaml.Node
	for _, o := range bl {
		if o.MaxInputTokens == 0 && o.ReservedOutput == 0 && o.SafetyMargin == 0 {
			nodes = append(nodes, &yaml.Node{Kind: yaml.ScalarNode, Value: o.Agent})
			continue
		}
		var n yaml.Node
		if err := n.Encode(o); err != nil {
			return nil, err
		}
		nodes = append(nodes, &n)
	}
	return &yaml.Node{Kind: yaml.SequenceNode, Content: nodes}, nil
}

// Lookup returns the override for the given agent, if one is configured.
func (bl BudgetOverrideList) Lookup(agent string) (BudgetOverride, bool) {
	for _, o := range bl {
		if o.Agent == agent {
			return o, true
		}
	}
	return BudgetOverride{}, false
}

// DefaultRunConfig returns the zero-config defaults matching
// analyzer.DefaultAnalyzeOptions.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Workers:           4,
		TimeoutSeconds:    120,
		RetryMaxAttempts:  3,
		CurationThreshold: 12,
	}
}

// LoadRunConfig reads run.yaml from dir. A missing file is not an error —
// it returns DefaultRunConfig().
func LoadRunConfig(dir string) (RunConfig, error) {
	cfg := DefaultRunConfig()
	data, err := os.ReadFile(filepath.Join(dir, "run.yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SaveRunConfig writes run.yaml to dir, creating it if necessary.
func SaveRunConfig(dir string, cfg RunConfig) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "run.yaml"), data, 0644)
}

// UserConfigDir returns ~/.agr, creating nothing.
func UserConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".agr"), nil
}
