// Package secrets loads the secret store injected into workflow runs.
// Secrets live outside the workflow definition, in a flat YAML map, and
// are only exposed to steps through the secrets.* evaluation namespace.
package secrets

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML file containing a flat map of secret names to
// values. An empty path yields an empty store.
func LoadFile(path string) (map[string]string, error) {
	if path == "" {
		return map[string]string{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading secrets file: %w", err)
	}
	store := make(map[string]string)
	if err := yaml.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("parsing secrets file %s: %w", path, err)
	}
	return store, nil
}
