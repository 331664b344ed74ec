// Package config loads the rpreport.yaml configuration file.
package config

import (
	"os"
	"regexp"
)

// envVarPattern matches ${VAR} and ${VAR:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv substitutes ${VAR} and ${VAR:-default} references with
// environment values. A set, non-empty variable wins over the default;
// an unset variable with no default becomes the empty string, which
// Validate then reports for required keys such as UUID.
func ExpandEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(ref string) string {
		m := envVarPattern.FindStringSubmatch(ref)
		if value := os.Getenv(m[1]); value != "" {
			return value
		}
		return m[2]
	})
}
