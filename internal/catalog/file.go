package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileCatalog mirrors the YAML catalog document.
type fileCatalog struct {
	Packages []Package `yaml:"packages"`
	Prompts  []Prompt  `yaml:"prompts"`
}

// LoadFile reads a catalog override file and builds a snapshot. A section
// absent from the file keeps the built-in defaults.
func LoadFile(path string) (*Snapshot, error) {
	data, errRead := os.ReadFile(path)
	if errRead != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, errRead)
	}
	return parseFile(data)
}

// parseFile unmarshals catalog YAML and validates the result.
func parseFile(data []byte) (*Snapshot, error) {
	var doc fileCatalog
	if errUnmarshal := yaml.Unmarshal(data, &doc); errUnmarshal != nil {
		return nil, fmt.Errorf("catalog: parse: %w", errUnmarshal)
	}
	packages := doc.Packages
	if len(packages) == 0 {
		packages = DefaultPackages()
	}
	prompts := doc.Prompts
	if len(prompts) == 0 {
		prompts = DefaultPrompts()
	}
	return NewSnapshot(packages, prompts)
}
