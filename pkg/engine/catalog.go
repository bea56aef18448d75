package engine

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Product categories known to the engine.
const (
	CategoryEngine  = "engine"
	CategorySolar   = "solar"
	CategoryBattery = "battery"
)

// Product is one piece of equipment with free-form technical specs.
type Product struct {
	Name     string             `yaml:"name" json:"name"`
	Category string             `yaml:"category" json:"category"`
	Specs    map[string]float64 `yaml:"specs" json:"specs"`
}

// Spec returns the named spec or def when it is missing.
func (p Product) Spec(name string, def float64) float64 {
	if v, ok := p.Specs[name]; ok {
		return v
	}
	return def
}

// Catalog is the list of products available to the engine.
type Catalog struct {
	Products []Product `yaml:"products" json:"products"`
}

// First returns the first product of the given category.
func (c Catalog) First(category string) (Product, bool) {
	for _, p := range c.Products {
		if p.Category == category {
			return p, true
		}
	}
	return Product{}, false
}

// ParseCatalog decodes a YAML catalog and checks it has an engine.
func ParseCatalog(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("failed to parse catalog: %w", err)
	}
	engine, ok := c.First(CategoryEngine)
	if !ok {
		return Catalog{}, fmt.Errorf("catalog has no %s product", CategoryEngine)
	}
	if engine.Spec("nominal_power_mw", 0) <= 0 {
		return Catalog{}, fmt.Errorf("engine %q has no nominal_power_mw", engine.Name)
	}
	return c, nil
}

// LoadCatalog reads a catalog from path, or returns the built-in catalog when
// path is empty.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("failed to read catalog (%s): %w", path, err)
	}
	return ParseCatalog(data)
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(fmt.Errorf("built-in catalog is invalid: %w", err))
	}
	return c
}
