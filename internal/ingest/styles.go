package ingest

import (
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/geoimport/backend/internal/models"
)

// StyleRules maps geometry types to color palettes. Repeated imports of
// the same type cycle through the palette, so layers stay visually
// distinct but deterministic.
type StyleRules struct {
	Palettes map[string][]string `yaml:"palettes"`
}

// DefaultStyleRules returns the built-in per-type palettes.
func DefaultStyleRules() *StyleRules {
	return &StyleRules{
		Palettes: map[string][]string{
			string(models.GeometryPoint):        {"#e74c3c", "#9b59b6", "#f39c12"},
			string(models.GeometryLineString):   {"#3388ff", "#16a085", "#8e44ad"},
			string(models.GeometryPolygon):      {"#2ecc71", "#e67e22", "#2c3e50"},
			string(models.GeometryMultiPolygon): {"#1abc9c", "#d35400", "#7f8c8d"},
		},
	}
}

// LoadStyleRules parses a YAML style file. Types missing from the file
// fall back to the defaults.
func LoadStyleRules(path string) (*StyleRules, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseStyleRules(file)
}

// ParseStyleRules parses style rules from an io.Reader.
func ParseStyleRules(r io.Reader) (*StyleRules, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var rules StyleRules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, err
	}

	defaults := DefaultStyleRules()
	if rules.Palettes == nil {
		rules.Palettes = defaults.Palettes
	} else {
		for gtype, palette := range defaults.Palettes {
			if len(rules.Palettes[gtype]) == 0 {
				rules.Palettes[gtype] = palette
			}
		}
	}

	return &rules, nil
}

// Color returns the palette color for the index-th layer of a type,
// cycling when the palette is exhausted.
func (s *StyleRules) Color(gtype models.GeometryType, index int) string {
	palette := s.Palettes[string(gtype)]
	if len(palette) == 0 {
		palette = DefaultStyleRules().Palettes[string(gtype)]
	}
	if len(palette) == 0 {
		return "#3388ff"
	}
	return palette[index%len(palette)]
}
