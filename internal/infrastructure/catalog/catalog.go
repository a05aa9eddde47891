// Package catalog loads asset category schemas from YAML.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/garyjia/asset-registry/internal/application/port"
	"github.com/garyjia/asset-registry/internal/domain/entity"
)

//go:embed defaults.yaml
var defaultDefinitions []byte

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

type definitionFile struct {
	Categories []entity.Category `yaml:"categories"`
}

// Catalog is an immutable set of categories keyed by name
type Catalog struct {
	ordered []entity.Category
	byName  map[string]*entity.Category
}

// Default returns the built-in category set
func Default() *Catalog {
	c, err := Parse(defaultDefinitions)
	if err != nil {
		panic(fmt.Sprintf("built-in categories are invalid: %v", err))
	}
	return c
}

// Load reads categories from a YAML file. An empty path yields the defaults.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read category file: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a category definition document
func Parse(data []byte) (*Catalog, error) {
	var file definitionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse categories: %w", err)
	}
	if len(file.Categories) == 0 {
		return nil, fmt.Errorf("no categories defined")
	}

	c := &Catalog{
		ordered: make([]entity.Category, 0, len(file.Categories)),
		byName:  make(map[string]*entity.Category, len(file.Categories)),
	}
	for _, cat := range file.Categories {
		if err := validateCategory(cat); err != nil {
			return nil, err
		}
		if _, dup := c.byName[cat.Name]; dup {
			return nil, fmt.Errorf("category %q defined twice", cat.Name)
		}
		c.ordered = append(c.ordered, cat)
		c.byName[cat.Name] = &c.ordered[len(c.ordered)-1]
	}
	return c, nil
}

func validateCategory(cat entity.Category) error {
	if !namePattern.MatchString(cat.Name) {
		return fmt.Errorf("invalid category name %q", cat.Name)
	}
	seen := make(map[string]bool, len(cat.Fields))
	for _, f := range cat.Fields {
		if !namePattern.MatchString(f.Name) {
			return fmt.Errorf("category %s: invalid field name %q", cat.Name, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("category %s: field %q defined twice", cat.Name, f.Name)
		}
		seen[f.Name] = true

		switch f.Type {
		case entity.FieldTypeString, entity.FieldTypeNumber, entity.FieldTypeInteger,
			entity.FieldTypeBool, entity.FieldTypeDate:
		default:
			return fmt.Errorf("category %s: field %s has unsupported type %q", cat.Name, f.Name, f.Type)
		}
	}
	return nil
}

// Get returns the named category
func (c *Catalog) Get(name string) (*entity.Category, bool) {
	cat, ok := c.byName[name]
	return cat, ok
}

// List returns all categories in definition order
func (c *Catalog) List() []entity.Category {
	out := make([]entity.Category, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Verify interface compliance
var _ port.CategoryCatalog = (*Catalog)(nil)
