package agent

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// Prompts holds the system prompt of every agent
type Prompts struct {
	Supervisor string `yaml:"supervisor"`
	Weather    string `yaml:"weather"`
	Search     string `yaml:"search"`
	Chat       string `yaml:"chat"`
}

// LoadPrompts returns the built-in prompts, with the non-empty entries of the
// YAML file at path applied on top. An empty path means built-ins only.
func LoadPrompts(path string) (Prompts, error) {
	var p Prompts
	if err := yaml.Unmarshal(defaultPrompts, &p); err != nil {
		return Prompts{}, fmt.Errorf("failed to parse built-in prompts: %w", err)
	}

	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Prompts{}, fmt.Errorf("failed to read agents file: %w", err)
	}

	var override Prompts
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Prompts{}, fmt.Errorf("failed to parse agents file %s: %w", path, err)
	}

	merge(&p.Supervisor, override.Supervisor)
	merge(&p.Weather, override.Weather)
	merge(&p.Search, override.Search)
	merge(&p.Chat, override.Chat)
	return p, nil
}

func merge(dst *string, src string) {
	if strings.TrimSpace(src) != "" {
		*dst = src
	}
}
