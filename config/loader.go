package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a configuration file format
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Loader builds a Config from defaults, an optional file and environment
// overrides, in that order, and validates the result
type Loader struct {
	envPrefix string
	lookupEnv func(string) (string, bool)
}

// NewLoader creates a loader reading BELFEM_ environment variables
func NewLoader() *Loader {
	return &Loader{envPrefix: "BELFEM", lookupEnv: os.LookupEnv}
}

// SetEnvPrefix sets the environment variable prefix
func (l *Loader) SetEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load loads configuration from filename; an empty name means defaults
// plus environment
func (l *Loader) Load(filename string) (*Config, error) {
	config := DefaultConfig()
	if filename != "" {
		format, err := formatOf(filename)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", filename, err)
		}
		if err := parseInto(config, data, format); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", filename, err)
		}
	}
	return l.finish(config)
}

// LoadFromReader loads configuration data of the given format
func (l *Loader) LoadFromReader(r io.Reader, format Format) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	config := DefaultConfig()
	if err := parseInto(config, data, format); err != nil {
		return nil, err
	}
	return l.finish(config)
}

func (l *Loader) finish(config *Config) (*Config, error) {
	if err := l.loadFromEnv(config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return config, nil
}

func formatOf(filename string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// parseInto decodes data over config, so absent keys keep their defaults
func parseInto(config *Config, data []byte, format Format) error {
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("config: parse YAML: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, config); err != nil {
			return fmt.Errorf("config: parse JSON: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return nil
}

// loadFromEnv applies PREFIX_SECTION_KEY overrides
func (l *Loader) loadFromEnv(config *Config) error {
	get := func(key string) (string, bool) {
		return l.lookupEnv(l.envPrefix + "_" + key)
	}
	boolean := func(key string, dst *bool) error {
		if val, ok := get(key); ok {
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("%w: %s_%s=%q", ErrEnvironmentVar, l.envPrefix, key, val)
			}
			*dst = b
		}
		return nil
	}

	if val, ok := get("MESH_FILE"); ok {
		config.Mesh.File = val
	}
	for key, dst := range map[string]*bool{
		"MESH_COMPUTE_CONNECTIVITY": &config.Mesh.ComputeConnectivity,
		"MESH_EDGES":                &config.Mesh.Edges,
		"MESH_FACES":                &config.Mesh.Faces,
	} {
		if err := boolean(key, dst); err != nil {
			return err
		}
	}

	if val, ok := get("PARTITION_NUM_PARTITIONS"); ok {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("%w: %s_PARTITION_NUM_PARTITIONS=%q", ErrEnvironmentVar, l.envPrefix, val)
		}
		config.Partition.NumPartitions = n
	}
	if val, ok := get("PARTITION_STRATEGY"); ok {
		config.Partition.Strategy = val
	}

	if val, ok := get("LOG_LEVEL"); ok {
		config.Log.Level = val
	}
	if val, ok := get("LOG_FORMAT"); ok {
		config.Log.Format = val
	}
	return nil
}
