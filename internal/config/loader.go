package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.yaml.in/yaml/v3"
)

const embeddedSchemaURL = "storyreel.v1.schema.json"

//go:embed schema/storyreel.v1.schema.json
var embeddedSchema []byte

// LoadAndValidate loads and validates the configuration. An empty
// schemaPath validates against the schema compiled into the binary.
func LoadAndValidate(path, schemaPath string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read config: %w", err)
	}

	return Parse(data, schemaPath)
}

// Parse validates raw YAML against the schema and decodes it.
func Parse(data []byte, schemaPath string) (*Config, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	schema, err := compileSchema(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("config: failed to compile schema: %w", err)
	}

	if err := schema.Validate(raw); err != nil {
		return nil, fmt.Errorf("config: config validation failed: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal into Config struct: %w", err)
	}
	if config.Models == nil {
		config.Models = map[string]ModelConfig{}
	}
	config.ApplyDefaults()

	return &config, nil
}

func compileSchema(schemaPath string) (*jsonschema.Schema, error) {
	if schemaPath != "" {
		return jsonschema.Compile(schemaPath)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(embeddedSchemaURL, bytes.NewReader(embeddedSchema)); err != nil {
		return nil, err
	}

	return compiler.Compile(embeddedSchemaURL)
}
