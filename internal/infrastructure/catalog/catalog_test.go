package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/asset-registry/internal/domain/entity"
)

func TestDefault(t *testing.T) {
	c := Default()

	var names []string
	for _, cat := range c.List() {
		names = append(names, cat.Name)
	}
	assert.Equal(t, []string{"vehicle", "land", "building", "equipment", "furniture", "ict"}, names)

	vehicle, ok := c.Get("vehicle")
	require.True(t, ok)
	require.NoError(t, vehicle.ValidateAttributes(map[string]interface{}{
		"plate_number": "GOV-001",
		"year":         float64(2022),
	}))
	assert.Error(t, vehicle.ValidateAttributes(map[string]interface{}{"year": float64(2022)}))

	_, ok = c.Get("spaceship")
	assert.False(t, ok)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not yaml", "categories: [unclosed"},
		{"empty", "categories: []"},
		{"bad category name", "categories:\n  - name: Vehicle\n"},
		{"duplicate category", "categories:\n  - name: land\n  - name: land\n"},
		{"bad field type", "categories:\n  - name: land\n    fields:\n      - {name: area, type: float}\n"},
		{"duplicate field", "categories:\n  - name: land\n    fields:\n      - {name: area, type: number}\n      - {name: area, type: number}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categories.yaml")
	doc := `
categories:
  - name: artwork
    label: Artwork
    fields:
      - {name: artist, type: string, required: true}
      - {name: appraised_on, type: date}
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	c, err := Load(path)
	require.NoError(t, err)

	art, ok := c.Get("artwork")
	require.True(t, ok)
	assert.Equal(t, "Artwork", art.Label)
	assert.Equal(t, []entity.FieldSpec{
		{Name: "artist", Type: entity.FieldTypeString, Required: true},
		{Name: "appraised_on", Type: entity.FieldTypeDate},
	}, art.Fields)

	_, ok = c.Get("vehicle")
	assert.False(t, ok)
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	_, ok := c.Get("ict")
	assert.True(t, ok)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestList_ReturnsCopy(t *testing.T) {
	c := Default()
	list := c.List()
	list[0].Name = "mutated"

	_, ok := c.Get("vehicle")
	assert.True(t, ok)
	assert.Equal(t, "vehicle", c.List()[0].Name)
}
