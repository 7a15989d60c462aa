// Package model defines the schema, field and entity types handled by the registry.
package model

import (
	"errors"
	"fmt"
	"slices"
)

// FieldType is the declared value type of a schema field
type FieldType string

const (
	// FieldTypeString holds textual values
	FieldTypeString FieldType = "string"
	// FieldTypeLong holds integral numbers
	FieldTypeLong FieldType = "long"
	// FieldTypeDouble holds floating-point numbers
	FieldTypeDouble FieldType = "double"
	// FieldTypeDatetime holds integral epoch timestamps
	FieldTypeDatetime FieldType = "datetime"
	// FieldTypeIP holds dotted-quad IPv4 addresses
	FieldTypeIP FieldType = "ip"
)

// FieldTypes lists every supported field type in declaration order
var FieldTypes = []FieldType{
	FieldTypeString,
	FieldTypeLong,
	FieldTypeDouble,
	FieldTypeDatetime,
	FieldTypeIP,
}

// IsValid reports whether t is one of the supported field types
func (t FieldType) IsValid() bool {
	return slices.Contains(FieldTypes, t)
}

// RefSeparator separates the schema name from the field name in a reference
const RefSeparator = "::"

// ErrMissingName is returned when a schema payload carries no usable name
var ErrMissingName = errors.New("schema name require")

// Field describes a single attribute of a schema
type Field struct {
	Name    string    `json:"name" yaml:"name"`
	Type    FieldType `json:"type" yaml:"type"`
	Multi   bool      `json:"multi" yaml:"multi"`
	Unique  bool      `json:"unique" yaml:"unique"`
	Require bool      `json:"require" yaml:"require"`
	// Ref points at another schema's field as "schemaName::fieldName"
	Ref string `json:"ref,omitempty" yaml:"ref,omitempty"`
}

// Schema is a typed record definition. Entities stored under the schema's
// name must carry exactly its fields.
type Schema struct {
	Name   string  `json:"name" yaml:"name"`
	PK     string  `json:"pk" yaml:"pk"`
	Fields []Field `json:"fields" yaml:"fields"`
}

// FieldNames returns the field names in declaration order
func (s *Schema) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}
	return names
}

// FieldIndex returns the fields keyed by name. When names collide the last
// declaration wins; callers validate uniqueness separately.
func (s *Schema) FieldIndex() map[string]Field {
	index := make(map[string]Field, len(s.Fields))
	for _, f := range s.Fields {
		index[f.Name] = f
	}
	return index
}

// HasField reports whether the schema declares a field with the given name
func (s *Schema) HasField(name string) bool {
	return slices.ContainsFunc(s.Fields, func(f Field) bool { return f.Name == name })
}

// Document returns the schema in the shape it is stored in the document store
func (s *Schema) Document() map[string]any {
	fields := make([]any, 0, len(s.Fields))
	for _, f := range s.Fields {
		doc := map[string]any{
			"name":    f.Name,
			"type":    string(f.Type),
			"multi":   f.Multi,
			"unique":  f.Unique,
			"require": f.Require,
		}
		if f.Ref != "" {
			doc["ref"] = f.Ref
		}
		fields = append(fields, doc)
	}
	return map[string]any{
		"name":   s.Name,
		"pk":     s.PK,
		"fields": fields,
	}
}

// Warning records a value that was normalized while decoding a schema
type Warning struct {
	Field     string `json:"field"`
	Attribute string `json:"attribute"`
	Message   string `json:"message"`
}

// DecodeError reports a structurally malformed schema payload
type DecodeError struct {
	Path    string
	Message string
}

// Error returns the error message
func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// flagAttributes are the boolean field attributes defaulted to false
var flagAttributes = []string{"require", "multi", "unique"}

// DecodeSchema converts a decoded JSON payload into a Schema. Boolean field
// attributes that are absent or not booleans are set to false and reported
// as warnings. Semantic rules are left to the validators.
func DecodeSchema(payload map[string]any) (*Schema, []Warning, error) {
	name, ok := payload["name"].(string)
	if !ok {
		return nil, nil, ErrMissingName
	}

	schema := &Schema{Name: name}
	if pk, ok := payload["pk"]; ok && pk != nil {
		pkName, ok := pk.(string)
		if !ok {
			return nil, nil, &DecodeError{Path: "pk", Message: "must be a string"}
		}
		schema.PK = pkName
	}

	rawFields, ok := payload["fields"]
	if !ok || rawFields == nil {
		return schema, nil, nil
	}
	list, ok := rawFields.([]any)
	if !ok {
		return nil, nil, &DecodeError{Path: "fields", Message: "must be a list"}
	}

	var warnings []Warning
	schema.Fields = make([]Field, 0, len(list))
	for i, raw := range list {
		field, fieldWarnings, err := decodeField(i, raw)
		if err != nil {
			return nil, nil, err
		}
		warnings = append(warnings, fieldWarnings...)
		schema.Fields = append(schema.Fields, field)
	}

	return schema, warnings, nil
}

func decodeField(i int, raw any) (Field, []Warning, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Field{}, nil, &DecodeError{Path: fmt.Sprintf("fields[%d]", i), Message: "must be an object"}
	}

	var field Field
	name, ok := obj["name"].(string)
	if !ok {
		return Field{}, nil, &DecodeError{Path: fmt.Sprintf("fields[%d].name", i), Message: "must be a string"}
	}
	field.Name = name
	tp, ok := obj["type"].(string)
	if !ok {
		return Field{}, nil, &DecodeError{Path: fmt.Sprintf("fields[%d].type", i), Message: "must be a string"}
	}
	field.Type = FieldType(tp)
	if ref, ok := obj["ref"]; ok && ref != nil {
		refStr, ok := ref.(string)
		if !ok {
			return Field{}, nil, &DecodeError{Path: fmt.Sprintf("fields[%d].ref", i), Message: "must be a string"}
		}
		field.Ref = refStr
	}

	var warnings []Warning
	for _, attr := range flagAttributes {
		value, ok := obj[attr].(bool)
		if !ok {
			warnings = append(warnings, Warning{
				Field:     field.Name,
				Attribute: attr,
				Message:   fmt.Sprintf("field %s %s is not set or is not a bool, set false", field.Name, attr),
			})
		}
		switch attr {
		case "require":
			field.Require = value
		case "multi":
			field.Multi = value
		case "unique":
			field.Unique = value
		}
	}

	return field, warnings, nil
}
