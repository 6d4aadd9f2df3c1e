package config

import (
	"fmt"
	"strings"
)

// Dimension is one parallel-coordinates axis from configuration
type Dimension struct {
	Name  string
	Label string
}

// ParseDimensions parses the parallel.dimensions list.
// Format: ["name", "name:Label", ...]. Names must be unique.
func ParseDimensions(entries []string) ([]Dimension, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("no dimensions configured")
	}

	seen := make(map[string]bool, len(entries))
	dims := make([]Dimension, 0, len(entries))
	for _, entry := range entries {
		name, label, _ := strings.Cut(entry, ":")
		name = strings.TrimSpace(name)
		label = strings.TrimSpace(label)
		if name == "" {
			return nil, fmt.Errorf("empty dimension name in: %q", entry)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate dimension: %s", name)
		}
		seen[name] = true
		dims = append(dims, Dimension{Name: name, Label: label})
	}
	return dims, nil
}
