package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/plextuner/iptv-collector/internal/category"
)

// RulesFile is the YAML document that extends the built-in categories:
//
//	categories:
//	  - name: 购物
//	    patterns: ["购物$"]
//	  - name: 地方新闻
//	    before: true
//	    patterns: ["新闻综合$"]
type RulesFile struct {
	Categories []category.Rule `yaml:"categories"`
}

// ParseRules decodes a rules document. Every rule needs a name and at least one pattern.
func ParseRules(data []byte) ([]category.Rule, error) {
	var doc RulesFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	for i, r := range doc.Categories {
		if r.Label == "" {
			return nil, fmt.Errorf("category %d: missing name", i+1)
		}
		if len(r.Patterns) == 0 {
			return nil, fmt.Errorf("category %q: no patterns", r.Label)
		}
	}
	return doc.Categories, nil
}

// LoadRules reads the rules file at path. An empty path means no extra rules.
func LoadRules(path string) ([]category.Rule, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("rules %s: %w", path, err)
	}
	rules, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("rules %s: %w", path, err)
	}
	return rules, nil
}
