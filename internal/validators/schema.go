package validators

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stacklok/cmdb-registry-server/internal/model"
	"github.com/stacklok/cmdb-registry-server/internal/store"
)

// SchemaValidator validates schema definitions against naming rules and the
// schemas already held by the document store
type SchemaValidator struct {
	store store.DocumentStore
}

// NewSchemaValidator creates a schema validator reading existing schemas from s
func NewSchemaValidator(s store.DocumentStore) *SchemaValidator {
	return &SchemaValidator{store: s}
}

// Validate runs every schema rule in order and returns the first failure.
// Rule failures are *SchemaError; store failures are returned as is.
func (v *SchemaValidator) Validate(ctx context.Context, schema *model.Schema) error {
	if err := ValidateName(schema.Name); err != nil {
		return &SchemaError{Kind: KindInvalidName, Message: err.Error()}
	}

	if err := validateFieldNamesUnique(schema); err != nil {
		return err
	}

	if schema.PK == "" || !schema.HasField(schema.PK) {
		return schemaErrorf(KindInvalidPK, schema.PK, "pk %q must name one of the schema fields", schema.PK)
	}

	exists, err := v.store.HeadCollection(ctx, schema.Name)
	if err != nil {
		return err
	}
	if exists {
		if err := v.checkConflict(ctx, schema); err != nil {
			return err
		}
	}

	for _, field := range schema.Fields {
		if err := v.validateField(ctx, field); err != nil {
			return err
		}
	}

	return nil
}

func validateFieldNamesUnique(schema *model.Schema) error {
	seen := make(map[string]struct{}, len(schema.Fields))
	for _, field := range schema.Fields {
		if _, ok := seen[field.Name]; ok {
			return schemaErrorf(KindDuplicateFieldName, field.Name, "field name must be unique: %s", field.Name)
		}
		seen[field.Name] = struct{}{}
	}
	return nil
}

// checkConflict allows a redefinition only to add fields
func (v *SchemaValidator) checkConflict(ctx context.Context, schema *model.Schema) error {
	origin, err := store.LoadSchema(ctx, v.store, schema.Name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// The collection exists without a schema document; nothing to conflict with.
			return nil
		}
		return err
	}

	fields := schema.FieldIndex()
	var missing []string
	for _, field := range origin.Fields {
		if _, ok := fields[field.Name]; !ok {
			missing = append(missing, field.Name)
		}
	}
	if len(missing) > 0 {
		return schemaErrorf(KindConflict, "",
			"conflict check fail: fields %s of schema %s cannot be removed", strings.Join(missing, ", "), schema.Name)
	}

	for _, field := range origin.Fields {
		if fields[field.Name] != field {
			return schemaErrorf(KindFieldNotSameAsOrigin, field.Name, "%s not same origin", field.Name)
		}
	}

	if schema.PK != origin.PK {
		return schemaErrorf(KindPKChanged, schema.PK, "pk not same origin: %s was %s", schema.PK, origin.PK)
	}

	return nil
}

func (v *SchemaValidator) validateField(ctx context.Context, field model.Field) error {
	if err := ValidateName(field.Name); err != nil {
		return &SchemaError{Kind: KindInvalidFieldName, Field: field.Name, Message: "field " + err.Error()}
	}

	if !field.Type.IsValid() {
		return schemaErrorf(KindInvalidFieldType, field.Name, "type error: field %s has unsupported type %q", field.Name, field.Type)
	}

	if field.Ref == "" {
		return nil
	}
	return v.validateReference(ctx, field)
}

func (v *SchemaValidator) validateReference(ctx context.Context, field model.Field) error {
	refSchema, refField, ok := splitRef(field.Ref)
	if !ok {
		return schemaErrorf(KindInvalidReference, field.Name,
			"reference %q of field %s must have the form schema%sfield", field.Ref, field.Name, model.RefSeparator)
	}

	exists, err := v.store.HeadCollection(ctx, refSchema)
	if err != nil {
		return err
	}
	if !exists {
		return schemaErrorf(KindMissingReferenceSchema, field.Name, "reference schema %s is not exist", refSchema)
	}

	target, err := store.LoadSchema(ctx, v.store, refSchema)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return schemaErrorf(KindMissingReferenceSchema, field.Name, "reference schema %s is not exist", refSchema)
		}
		return fmt.Errorf("failed to load reference schema %s: %w", refSchema, err)
	}
	if !target.HasField(refField) {
		return schemaErrorf(KindMissingReferenceField, field.Name, "reference field %s is not exist", refField)
	}

	return nil
}

func splitRef(ref string) (string, string, bool) {
	parts := strings.Split(ref, model.RefSeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
