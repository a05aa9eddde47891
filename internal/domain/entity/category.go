package entity

import (
	"fmt"
	"math"
	"time"

	"github.com/garyjia/asset-registry/internal/domain/apperr"
)

// Attribute field types supported by category schemas
const (
	FieldTypeString  = "string"
	FieldTypeNumber  = "number"
	FieldTypeInteger = "integer"
	FieldTypeBool    = "bool"
	FieldTypeDate    = "date"
)

// DateLayout is the accepted format for date attributes
const DateLayout = "2006-01-02"

// FieldSpec describes one category-specific attribute
type FieldSpec struct {
	Name     string `json:"name" yaml:"name"`
	Type     string `json:"type" yaml:"type"`
	Required bool   `json:"required" yaml:"required"`
}

// Category defines the attribute schema for one asset category
type Category struct {
	Name   string      `json:"name" yaml:"name"`
	Label  string      `json:"label,omitempty" yaml:"label"`
	Fields []FieldSpec `json:"fields" yaml:"fields"`
}

// ValidateAttributes checks attrs against the schema. Unknown keys are
// rejected so the attribute bag cannot drift from its definition.
func (c *Category) ValidateAttributes(attrs map[string]interface{}) error {
	known := make(map[string]FieldSpec, len(c.Fields))
	for _, f := range c.Fields {
		known[f.Name] = f
	}

	for key := range attrs {
		if _, ok := known[key]; !ok {
			return apperr.Validation("attributes."+key, "unknown attribute for category %s", c.Name)
		}
	}

	for _, f := range c.Fields {
		v, ok := attrs[f.Name]
		if !ok || v == nil {
			if f.Required {
				return apperr.Validation("attributes."+f.Name, "is required for category %s", c.Name)
			}
			continue
		}
		if err := checkFieldType(f, v); err != nil {
			return err
		}
	}
	return nil
}

func checkFieldType(f FieldSpec, v interface{}) error {
	field := "attributes." + f.Name
	switch f.Type {
	case FieldTypeString:
		if _, ok := v.(string); !ok {
			return apperr.Validation(field, "must be a string")
		}
	case FieldTypeNumber:
		if _, ok := toFloat(v); !ok {
			return apperr.Validation(field, "must be a number")
		}
	case FieldTypeInteger:
		n, ok := toFloat(v)
		if !ok || n != math.Trunc(n) {
			return apperr.Validation(field, "must be an integer")
		}
	case FieldTypeBool:
		if _, ok := v.(bool); !ok {
			return apperr.Validation(field, "must be a boolean")
		}
	case FieldTypeDate:
		s, ok := v.(string)
		if !ok {
			return apperr.Validation(field, "must be a date (%s)", DateLayout)
		}
		if _, err := time.Parse(DateLayout, s); err != nil {
			return apperr.Validation(field, "must be a date (%s)", DateLayout)
		}
	default:
		return fmt.Errorf("category field %s has unsupported type %q", f.Name, f.Type)
	}
	return nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}
