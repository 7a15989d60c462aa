// Package validators implements the field, schema and entity validation rules
// applied before any write reaches the document store.
package validators

import "fmt"

// SchemaErrorKind classifies a schema validation failure
type SchemaErrorKind string

const (
	// KindInvalidName is returned for empty names or names outside [A-Za-z0-9]
	KindInvalidName SchemaErrorKind = "invalid-name"
	// KindDuplicateFieldName is returned when two fields share a name
	KindDuplicateFieldName SchemaErrorKind = "duplicate-field-name"
	// KindInvalidPK is returned when pk is empty or names no field
	KindInvalidPK SchemaErrorKind = "invalid-pk"
	// KindConflict is returned when a redefinition drops existing fields
	KindConflict SchemaErrorKind = "conflict-with-existing-schema"
	// KindFieldNotSameAsOrigin is returned when a redefinition changes an existing field
	KindFieldNotSameAsOrigin SchemaErrorKind = "field-not-same-as-origin"
	// KindPKChanged is returned when a redefinition changes the pk
	KindPKChanged SchemaErrorKind = "pk-changed"
	// KindInvalidFieldName is returned for field names outside [A-Za-z0-9]
	KindInvalidFieldName SchemaErrorKind = "invalid-field-name"
	// KindInvalidFieldType is returned for unsupported field types
	KindInvalidFieldType SchemaErrorKind = "invalid-field-type"
	// KindInvalidReference is returned when a ref is not "schema::field"
	KindInvalidReference SchemaErrorKind = "invalid-reference"
	// KindMissingReferenceSchema is returned when a ref names an unknown schema
	KindMissingReferenceSchema SchemaErrorKind = "missing-reference-schema"
	// KindMissingReferenceField is returned when a ref names an unknown field
	KindMissingReferenceField SchemaErrorKind = "missing-reference-field"
)

// SchemaError is a schema validation failure
type SchemaError struct {
	Kind    SchemaErrorKind
	Field   string
	Message string
}

// Error returns the error message
func (e *SchemaError) Error() string {
	return e.Message
}

func schemaErrorf(kind SchemaErrorKind, field, format string, args ...any) *SchemaError {
	return &SchemaError{Kind: kind, Field: field, Message: fmt.Sprintf(format, args...)}
}

// EntityErrorKind classifies an entity validation failure
type EntityErrorKind string

const (
	// KindFieldSetMismatch is returned when entity keys differ from the schema fields
	KindFieldSetMismatch EntityErrorKind = "field-set-mismatch"
	// KindTypeMismatch is returned when a value does not match its field type
	KindTypeMismatch EntityErrorKind = "type-mismatch"
	// KindNotMulti is returned when a multi field is given a scalar
	KindNotMulti EntityErrorKind = "not-multi"
	// KindUniquenessViolation is returned when a unique value is already taken
	KindUniquenessViolation EntityErrorKind = "uniqueness-violation"
	// KindInvalidKey is returned when the pk value cannot identify an entity
	KindInvalidKey EntityErrorKind = "invalid-key"
)

// EntityError is an entity validation failure
type EntityError struct {
	Kind    EntityErrorKind
	Field   string
	Value   any
	Message string
}

// Error returns the error message
func (e *EntityError) Error() string {
	return e.Message
}
