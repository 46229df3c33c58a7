// Package config provides configuration loading and management for the
// taxonomy tool.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	cg "github.com/sitegeist/taxonomy/contentgraph"
	"github.com/sitegeist/taxonomy/taxonomy"
)

// Storage backends.
const (
	StorageMemory = "memory"
	StorageBadger = "badger"
	StorageNATS   = "nats"
)

// Config represents the complete taxonomy configuration
type Config struct {
	ContentRepository ContentRepositoryConfig `yaml:"content_repository"`
	NodeTypes         []NodeTypeConfig        `yaml:"node_types"`
	Dimensions        []DimensionConfig       `yaml:"dimensions,omitempty"`
	Storage           StorageConfig           `yaml:"storage"`
	Log               LogConfig               `yaml:"log"`
}

// ContentRepositoryConfig names the repository and the node types the
// taxonomy core works with
type ContentRepositoryConfig struct {
	// Identifier is the content repository id (default: "default")
	Identifier     string `yaml:"identifier"`
	RootType       string `yaml:"root_type"`
	VocabularyType string `yaml:"vocabulary_type"`
	TaxonomyType   string `yaml:"taxonomy_type"`
	// ReferenceName is the reference content nodes use to point at taxonomies
	ReferenceName string `yaml:"reference_name"`
}

// NodeTypeConfig declares a node type
type NodeTypeConfig struct {
	Name       string   `yaml:"name"`
	SuperTypes []string `yaml:"super_types,omitempty"`
}

// DimensionConfig declares a content dimension
type DimensionConfig struct {
	Name   string                 `yaml:"name"`
	Values []DimensionValueConfig `yaml:"values"`
}

// DimensionValueConfig is a dimension value with its specializations
type DimensionValueConfig struct {
	Value           string                 `yaml:"value"`
	Specializations []DimensionValueConfig `yaml:"specializations,omitempty"`
}

// StorageConfig selects where the event journal lives
type StorageConfig struct {
	// Backend is one of memory, badger or nats (default: badger)
	Backend string `yaml:"backend"`
	// Path is the badger directory (default: .taxonomy/data)
	Path string `yaml:"path"`
	// NATSURL is the NATS server for the nats backend (NATS_URL overrides it)
	NATSURL string `yaml:"nats_url"`
	// Bucket is the JetStream KV bucket for the nats backend
	Bucket string `yaml:"bucket"`
}

// LogConfig configures logging
type LogConfig struct {
	// Level is one of debug, info, warn, error (default: info)
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		ContentRepository: ContentRepositoryConfig{
			Identifier:     "default",
			RootType:       taxonomy.DefaultRootTypeName.String(),
			VocabularyType: taxonomy.DefaultVocabularyTypeName.String(),
			TaxonomyType:   taxonomy.DefaultTaxonomyTypeName.String(),
			ReferenceName:  taxonomy.DefaultReferenceName,
		},
		NodeTypes: []NodeTypeConfig{
			{Name: taxonomy.DefaultRootTypeName.String()},
			{Name: taxonomy.DefaultVocabularyTypeName.String()},
			{Name: taxonomy.DefaultTaxonomyTypeName.String()},
			{Name: "Neos.Neos:Sites"},
			{Name: "Neos.Neos:Document"},
			{Name: "Neos.Neos:Content"},
		},
		Dimensions: nil, // Dimensionless
		Storage: StorageConfig{
			Backend: StorageBadger,
			Path:    filepath.Join(".taxonomy", "data"),
			Bucket:  "TAXONOMY_EVENTS",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	cr := c.ContentRepository
	if cr.Identifier == "" {
		return fmt.Errorf("content_repository.identifier is required")
	}
	if cr.ReferenceName == "" {
		return fmt.Errorf("content_repository.reference_name is required")
	}

	declared := make(map[string]bool, len(c.NodeTypes))
	for _, nt := range c.NodeTypes {
		if nt.Name == "" {
			return fmt.Errorf("node_types: name is required")
		}
		declared[nt.Name] = true
	}
	for _, f := range []struct{ field, name string }{
		{"root_type", cr.RootType},
		{"vocabulary_type", cr.VocabularyType},
		{"taxonomy_type", cr.TaxonomyType},
	} {
		field, name := f.field, f.name
		if name == "" {
			return fmt.Errorf("content_repository.%s is required", field)
		}
		if !declared[name] {
			return fmt.Errorf("content_repository.%s %q is not declared in node_types", field, name)
		}
	}

	for _, d := range c.Dimensions {
		if d.Name == "" || len(d.Values) == 0 {
			return fmt.Errorf("dimensions: %q needs a name and at least one value", d.Name)
		}
	}

	switch c.Storage.Backend {
	case StorageMemory:
	case StorageBadger:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the badger backend")
		}
	case StorageNATS:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for the nats backend")
		}
	default:
		return fmt.Errorf("storage.backend must be one of memory, badger, nats")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	return nil
}

// TypeNames returns the configured taxonomy node type names.
func (c *Config) TypeNames() taxonomy.TypeNames {
	return taxonomy.TypeNames{
		Root:       cg.NodeTypeName(c.ContentRepository.RootType),
		Vocabulary: cg.NodeTypeName(c.ContentRepository.VocabularyType),
		Taxonomy:   cg.NodeTypeName(c.ContentRepository.TaxonomyType),
	}
}

// NodeTypeManager builds the declared node types.
func (c *Config) NodeTypeManager() (*cg.NodeTypeManager, error) {
	types := make([]cg.NodeType, 0, len(c.NodeTypes))
	for _, nt := range c.NodeTypes {
		t := cg.NodeType{Name: cg.NodeTypeName(nt.Name)}
		for _, super := range nt.SuperTypes {
			t.SuperTypes = append(t.SuperTypes, cg.NodeTypeName(super))
		}
		types = append(types, t)
	}
	return cg.NewNodeTypeManager(types...)
}

// VariationGraph builds the configured dimensions.
func (c *Config) VariationGraph() (*cg.VariationGraph, error) {
	dims := make([]cg.ContentDimension, 0, len(c.Dimensions))
	for _, d := range c.Dimensions {
		dims = append(dims, cg.ContentDimension{Name: d.Name, Values: dimensionValues(d.Values)})
	}
	return cg.NewVariationGraph(dims)
}

func dimensionValues(in []DimensionValueConfig) []cg.DimensionValue {
	if len(in) == 0 {
		return nil
	}
	out := make([]cg.DimensionValue, 0, len(in))
	for _, v := range in {
		out = append(out, cg.DimensionValue{Value: v.Value, Specializations: dimensionValues(v.Specializations)})
	}
	return out
}

// LoadFromFile loads configuration from a YAML file. Unset fields stay zero so
// the result can be merged onto DefaultConfig.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for
// non-zero values; node types and dimensions are replaced as a whole)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	cr := other.ContentRepository
	if cr.Identifier != "" {
		c.ContentRepository.Identifier = cr.Identifier
	}
	if cr.RootType != "" {
		c.ContentRepository.RootType = cr.RootType
	}
	if cr.VocabularyType != "" {
		c.ContentRepository.VocabularyType = cr.VocabularyType
	}
	if cr.TaxonomyType != "" {
		c.ContentRepository.TaxonomyType = cr.TaxonomyType
	}
	if cr.ReferenceName != "" {
		c.ContentRepository.ReferenceName = cr.ReferenceName
	}

	if len(other.NodeTypes) > 0 {
		c.NodeTypes = other.NodeTypes
	}
	if len(other.Dimensions) > 0 {
		c.Dimensions = other.Dimensions
	}

	// Storage
	if other.Storage.Backend != "" {
		c.Storage.Backend = other.Storage.Backend
	}
	if other.Storage.Path != "" {
		c.Storage.Path = other.Storage.Path
	}
	if other.Storage.NATSURL != "" {
		c.Storage.NATSURL = other.Storage.NATSURL
	}
	if other.Storage.Bucket != "" {
		c.Storage.Bucket = other.Storage.Bucket
	}

	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
}
