// Package regions defines the fixed set of analysis regions and their
// display names. The built-in set ships embedded; deployments may override
// it with a YAML file of the same shape.
package regions

import (
	"fmt"
	"os"
	"sort"

	_ "embed"

	"gopkg.in/yaml.v3"

	"github.com/foehnwatch/tas-tracker/internal/domain"
)

//go:embed regions.yaml
var defaultYAML []byte

// Language selects the label set used for titles and axis text.
type Language string

const (
	German  Language = "german"
	English Language = "english"
)

// ParseLanguage validates a user-supplied language name.
func ParseLanguage(s string) (Language, error) {
	switch Language(s) {
	case German, English:
		return Language(s), nil
	case "":
		return English, nil
	default:
		return "", fmt.Errorf("%w: unknown language %q (want german or english)", domain.ErrInvalidArgument, s)
	}
}

// Names holds the display name of one region per language.
type Names struct {
	German  string `yaml:"de"`
	English string `yaml:"en"`
}

// Region is one entry of the registry.
type Region struct {
	ID    string `yaml:"id"`
	Names Names  `yaml:"names"`
}

// DisplayName returns the label for the given language, falling back to
// English.
func (r Region) DisplayName(lang Language) string {
	if lang == German && r.Names.German != "" {
		return r.Names.German
	}
	return r.Names.English
}

// Registry is the resolved region set.
type Registry struct {
	regions []Region
	byID    map[string]int
}

type registryFile struct {
	Regions []Region `yaml:"regions"`
}

func parse(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse region registry: %w", err)
	}
	if len(file.Regions) == 0 {
		return nil, fmt.Errorf("parse region registry: no regions defined")
	}
	reg := &Registry{byID: make(map[string]int, len(file.Regions))}
	for _, r := range file.Regions {
		if r.ID == "" {
			return nil, fmt.Errorf("parse region registry: region with empty id")
		}
		if _, dup := reg.byID[r.ID]; dup {
			return nil, fmt.Errorf("parse region registry: duplicate region %q", r.ID)
		}
		reg.byID[r.ID] = len(reg.regions)
		reg.regions = append(reg.regions, r)
	}
	return reg, nil
}

func mustParse(data []byte) *Registry {
	reg, err := parse(data)
	if err != nil {
		panic("regions: embedded registry: " + err.Error())
	}
	return reg
}

var defaultRegistry = mustParse(defaultYAML)

// Default returns the embedded registry.
func Default() *Registry {
	return defaultRegistry
}

// Load reads a registry override file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read region registry: %w", err)
	}
	return parse(data)
}

// Get resolves a region identifier.
func (reg *Registry) Get(id string) (Region, error) {
	idx, ok := reg.byID[id]
	if !ok {
		return Region{}, fmt.Errorf("%w: %q", domain.ErrInvalidRegion, id)
	}
	return reg.regions[idx], nil
}

// IDs lists all region identifiers in sorted order.
func (reg *Registry) IDs() []string {
	ids := make([]string, 0, len(reg.regions))
	for _, r := range reg.regions {
		ids = append(ids, r.ID)
	}
	sort.Strings(ids)
	return ids
}

// All returns the regions in registry order.
func (reg *Registry) All() []Region {
	return append([]Region(nil), reg.regions...)
}
