// Package knowledge implements the local knowledge matcher: a static,
// keyword-tag-based answer lookup that avoids a remote completion call when
// a canned localized answer exists.
package knowledge

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ChunkMetadata identifies what a knowledge chunk is about and which
// keywords select it.
type ChunkMetadata struct {
	District  string   `yaml:"district"`
	Crop      string   `yaml:"crop"`
	Zone      string   `yaml:"zone"`
	QueryTags []string `yaml:"query_tags"`
}

// Chunk is one static, read-only knowledge entry with per-language content
// and an ordered list of remedies per language.
type Chunk struct {
	Metadata  ChunkMetadata       `yaml:"metadata"`
	Content   map[string]string   `yaml:"content"`
	Solutions map[string][]string `yaml:"solutions"`
}

// AgroZone groups districts into an agro-climatic zone.
type AgroZone struct {
	Districts []string `yaml:"districts"`
}

// Base is the loaded knowledge base. Chunk order is significant: matching
// is first-match-wins in slice order, so behavior is reproducible.
type Base struct {
	AgroZones map[string]AgroZone `yaml:"agro_zones"`
	Chunks    []Chunk             `yaml:"knowledge_chunks"`

	zoneOrder []string `yaml:"-"` // stable iteration order for zone lookup
}

// Load reads and parses a YAML knowledge base file.
func Load(path string) (*Base, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML knowledge base content.
func Parse(data []byte) (*Base, error) {
	var base Base
	if err := yaml.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("failed to parse knowledge YAML: %w", err)
	}

	// yaml maps iterate nondeterministically and document order is lost on
	// unmarshal, so sort zone names for a stable lookup order.
	base.zoneOrder = make([]string, 0, len(base.AgroZones))
	for name := range base.AgroZones {
		base.zoneOrder = append(base.zoneOrder, name)
	}
	sort.Strings(base.zoneOrder)

	return &base, nil
}

// ZoneForDistrict returns the agro-climatic zone containing district, or ""
// when the district is not in any zone.
func (b *Base) ZoneForDistrict(district string) string {
	for _, name := range b.zoneOrder {
		for _, d := range b.AgroZones[name].Districts {
			if d == district {
				return name
			}
		}
	}
	return ""
}
