package validators

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/stacklok/cmdb-registry-server/internal/model"
	"github.com/stacklok/cmdb-registry-server/internal/store"
)

// EntityValidator validates entity payloads against their schema and checks
// unique fields against the documents already in the store
type EntityValidator struct {
	store store.DocumentStore
}

// NewEntityValidator creates an entity validator querying s for uniqueness
func NewEntityValidator(s store.DocumentStore) *EntityValidator {
	return &EntityValidator{store: s}
}

// Validate checks entity against schema and returns the entity's document
// key. The reserved metadata key is ignored. Rule failures are *EntityError;
// store failures are returned as is.
func (v *EntityValidator) Validate(ctx context.Context, schema *model.Schema, entity model.Entity) (string, error) {
	entity = entity.WithoutMeta()

	if err := checkFieldSet(schema, entity); err != nil {
		return "", err
	}

	key, err := model.EntityKey(entity[schema.PK])
	if err != nil {
		return "", &EntityError{Kind: KindInvalidKey, Field: schema.PK, Value: entity[schema.PK], Message: err.Error()}
	}

	for _, field := range schema.Fields {
		if err := v.validateField(ctx, schema, field, entity[field.Name], key); err != nil {
			return "", err
		}
	}

	return key, nil
}

func checkFieldSet(schema *model.Schema, entity model.Entity) error {
	var missing, unexpected []string
	for _, name := range schema.FieldNames() {
		if _, ok := entity[name]; !ok {
			missing = append(missing, name)
		}
	}
	for _, key := range entity.Keys() {
		if !schema.HasField(key) {
			unexpected = append(unexpected, key)
		}
	}
	if len(missing) == 0 && len(unexpected) == 0 {
		return nil
	}

	slices.Sort(missing)
	slices.Sort(unexpected)
	return &EntityError{
		Kind: KindFieldSetMismatch,
		Message: fmt.Sprintf("field list not match: missing [%s], unexpected [%s]",
			strings.Join(missing, ", "), strings.Join(unexpected, ", ")),
	}
}

func (v *EntityValidator) validateField(
	ctx context.Context,
	schema *model.Schema,
	field model.Field,
	value any,
	key string,
) error {
	if !field.Multi {
		if !ValidateType(field.Type, value) {
			return typeMismatch(field, value)
		}
		if field.Unique {
			return v.validateUnique(ctx, schema, field, value, key)
		}
		return nil
	}

	values, ok := value.([]any)
	if !ok {
		return &EntityError{
			Kind:    KindNotMulti,
			Field:   field.Name,
			Value:   value,
			Message: fmt.Sprintf("%s not multi", field.Name),
		}
	}
	for _, element := range values {
		if !ValidateType(field.Type, element) {
			return typeMismatch(field, element)
		}
	}
	if !field.Unique {
		return nil
	}
	for _, element := range values {
		if err := v.validateUnique(ctx, schema, field, element, key); err != nil {
			return err
		}
	}
	return nil
}

func typeMismatch(field model.Field, value any) error {
	return &EntityError{
		Kind:  KindTypeMismatch,
		Field: field.Name,
		Value: value,
		Message: fmt.Sprintf("%s type check error, require %s, but %v (%T)",
			field.Name, field.Type, value, value),
	}
}

// validateUnique succeeds when no other entity holds value in field. A
// single hit is tolerated when it is the entity being saved.
func (v *EntityValidator) validateUnique(
	ctx context.Context,
	schema *model.Schema,
	field model.Field,
	value any,
	key string,
) error {
	result, err := v.store.QueryByTerm(ctx, schema.Name, field.Name, value)
	if err != nil {
		return err
	}

	if result.Total <= 0 {
		return nil
	}

	if result.Total == 1 && len(result.Hits) == 1 {
		current, err := v.store.GetDocument(ctx, schema.Name, key)
		switch {
		case err == nil:
			if result.Hits[0].ID == current.ID {
				return nil
			}
		case errors.Is(err, store.ErrNotFound):
			// A new entity cannot be the holder of an existing value.
		default:
			return err
		}
	}

	return &EntityError{
		Kind:    KindUniquenessViolation,
		Field:   field.Name,
		Value:   value,
		Message: fmt.Sprintf("%s:%v is exist", field.Name, value),
	}
}
