// Package embedded provides access to embedded instruction data files.
package embedded

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

// promptData contains the embedded agent instruction YAML.
//
//go:embed prompts.yaml
var promptData []byte

// Prompts holds the instruction text for each conversation capability.
// Wording is deliberately not part of any behavioral contract; only the
// structural requirements (label vocabulary, fenced JSON format) matter.
type Prompts struct {
	Intent            string `yaml:"intent"`
	ChatPersona       string `yaml:"chat_persona"`
	ProfileCollection string `yaml:"profile_collection"`
	MealSuggestion    string `yaml:"meal_suggestion"`
	Sentiment         string `yaml:"sentiment"`
	WantsNew          string `yaml:"wants_new"`
}

// LoadPrompts parses the embedded instruction catalog.
func LoadPrompts() (*Prompts, error) {
	var p Prompts
	if err := yaml.Unmarshal(promptData, &p); err != nil {
		return nil, fmt.Errorf("failed to parse embedded prompts: %w", err)
	}
	return &p, nil
}

// MustLoadPrompts parses the embedded catalog and panics on failure. The data
// is compiled into the binary, so failure here is a build defect.
func MustLoadPrompts() *Prompts {
	p, err := LoadPrompts()
	if err != nil {
		panic(err)
	}
	return p
}
