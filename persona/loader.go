package persona

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// rosterFile is the on-disk roster document.
type rosterFile struct {
	Personas []Descriptor `yaml:"personas"`
}

// LoadRoster reads a YAML roster file into a Registry, preserving document
// order. File order becomes fan-out order, so callers list the lead first
// when they want the registry-first lead fallback.
func LoadRoster(path string, logger *zap.Logger) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster %s: %w", path, err)
	}
	reg, err := ParseRoster(data, logger)
	if err != nil {
		return nil, fmt.Errorf("parse roster %s: %w", path, err)
	}
	return reg, nil
}

// ParseRoster parses YAML roster bytes into a Registry.
func ParseRoster(data []byte, logger *zap.Logger) (*Registry, error) {
	var file rosterFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshal roster: %w", err)
	}
	if len(file.Personas) == 0 {
		return nil, fmt.Errorf("roster defines no personas")
	}

	reg := NewRegistry(logger)
	for _, d := range file.Personas {
		if err := reg.Add(d); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
