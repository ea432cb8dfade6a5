package report

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

const yamlIndent = 2

// WriteJSON writes the run as indented JSON.
func WriteJSON(w io.Writer, run *Run) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(run); err != nil {
		return fmt.Errorf("encode json report: %w", err)
	}

	return nil
}

// WriteYAML writes the run as YAML.
func WriteYAML(w io.Writer, run *Run) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(yamlIndent)

	if err := enc.Encode(run); err != nil {
		return fmt.Errorf("encode yaml report: %w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("flush yaml report: %w", err)
	}

	return nil
}
