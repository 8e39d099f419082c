// Loads taxonomy seed manifests from YAML.

package taxonomy

import (
	"fmt"
	"os"

	"github.com/maruel/ksid"
	"gopkg.in/yaml.v3"
)

// SeedManifest describes an initial taxonomy to create on first start.
type SeedManifest struct {
	Layers []SeedLayer `yaml:"layers"`
}

// SeedLayer describes one layer and its subtree in a seed manifest.
type SeedLayer struct {
	Name     string      `yaml:"name"`
	Location string      `yaml:"location"`
	Color    string      `yaml:"color"`
	Fields   []SeedField `yaml:"fields"`
	Children []SeedLayer `yaml:"children"`
	Items    []SeedItem  `yaml:"items"`
}

// SeedField describes one field definition in a seed manifest.
type SeedField struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Type     string   `yaml:"type"`
	Label    string   `yaml:"label"`
	Required bool     `yaml:"required"`
	Disabled bool     `yaml:"disabled"`
	Options  []string `yaml:"options"`
}

// SeedItem describes one tag item in a seed manifest. Field values are keyed
// by field definition id.
type SeedItem struct {
	Name   string         `yaml:"name"`
	Fields map[string]any `yaml:"fields"`
}

// LoadSeedManifest reads and parses a YAML seed manifest.
func LoadSeedManifest(path string) (*SeedManifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from server configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read seed manifest: %w", err)
	}
	var m SeedManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse seed manifest %s: %w", path, err)
	}
	return &m, nil
}

// Apply creates all layers and items of the manifest. Children inherit their
// parent's location unless they declare their own. Apply is meant for first
// start on an empty store; it does not reconcile against existing data.
func (m *SeedManifest) Apply(layers *LayerService, items *ItemService) error {
	for i := range m.Layers {
		if err := applySeedLayer(layers, items, &m.Layers[i], ksid.ID(0), ""); err != nil {
			return err
		}
	}
	return nil
}

func applySeedLayer(layers *LayerService, items *ItemService, seed *SeedLayer, parentID ksid.ID, parentLocation string) error {
	location := seed.Location
	if location == "" {
		location = parentLocation
	}

	fields := make([]FieldDefinition, len(seed.Fields))
	for i, f := range seed.Fields {
		fields[i] = FieldDefinition{
			ID:       f.ID,
			Name:     f.Name,
			Type:     FieldType(f.Type),
			Label:    f.Label,
			Required: f.Required,
			Enabled:  !f.Disabled,
			Options:  f.Options,
		}
	}

	layer, err := layers.Create(seed.Name, location, parentID, seed.Color, fields)
	if err != nil {
		return fmt.Errorf("seed layer %q: %w", seed.Name, err)
	}

	for _, item := range seed.Items {
		values := make([]FieldValue, 0, len(item.Fields))
		for fieldID, value := range item.Fields {
			values = append(values, FieldValue{FieldID: fieldID, Value: value})
		}
		if _, err := items.Create(layer.ID, item.Name, values); err != nil {
			return fmt.Errorf("seed item %q in layer %q: %w", item.Name, seed.Name, err)
		}
	}

	for i := range seed.Children {
		if err := applySeedLayer(layers, items, &seed.Children[i], layer.ID, location); err != nil {
			return err
		}
	}
	return nil
}
