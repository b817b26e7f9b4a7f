package env

import (
	"os"
	"strings"

	"github.com/ju4n97/storyreel/internal/envvar"
)

// Environment is the deployment environment the process runs in.
type Environment string

const (
	// Development enables human friendly console output.
	Development Environment = "development"

	// Production enables machine readable output.
	Production Environment = "production"
)

// FromEnv reads the environment from STORYREEL_ENV. Unknown or empty values
// resolve to Development.
func FromEnv() Environment {
	return Parse(os.Getenv(envvar.StoryreelEnv))
}

// Parse converts a raw value into an Environment.
func Parse(raw string) Environment {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "prod", "production":
		return Production
	default:
		return Development
	}
}

// IsProduction reports whether e is the production environment.
func (e Environment) IsProduction() bool {
	return e == Production
}
