package vocab

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadOverlay reads a YAML vocabulary overlay and merges it into the built-in
// gazetteer. Overlay entries are appended after the defaults, so the default
// tie-break order is preserved. An empty path returns the defaults unchanged.
func LoadOverlay(path string) (Gazetteer, error) {
	g := Default()
	if path == "" {
		if err := g.Validate(); err != nil {
			return Gazetteer{}, err
		}
		return g, nil
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Gazetteer{}, fmt.Errorf("read vocabulary overlay %s: %w", path, err)
	}

	var overlay Gazetteer
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return Gazetteer{}, fmt.Errorf("parse vocabulary overlay: %w", err)
	}

	g.Departments = append(g.Departments, overlay.Departments...)
	g.Buildings = append(g.Buildings, overlay.Buildings...)
	g.Services = append(g.Services, overlay.Services...)
	g.CommonTerms = append(g.CommonTerms, overlay.CommonTerms...)
	g.DeptAliases = append(g.DeptAliases, overlay.DeptAliases...)
	for short, full := range overlay.Shortcuts {
		g.Shortcuts[short] = full
	}

	if err := g.Validate(); err != nil {
		return Gazetteer{}, err
	}
	return g, nil
}
