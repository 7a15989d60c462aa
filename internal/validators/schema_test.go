package validators_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/cmdb-registry-server/internal/model"
	"github.com/stacklok/cmdb-registry-server/internal/store"
	"github.com/stacklok/cmdb-registry-server/internal/store/mocks"
	"github.com/stacklok/cmdb-registry-server/internal/validators"
)

func hostSchema() *model.Schema {
	return &model.Schema{
		Name: "host",
		PK:   "id",
		Fields: []model.Field{
			{Name: "id", Type: model.FieldTypeString, Unique: true, Require: true},
			{Name: "ip", Type: model.FieldTypeIP, Multi: true, Unique: true},
		},
	}
}

func schemaDocument(s *model.Schema) *store.Document {
	return &store.Document{ID: s.Name, Source: s.Document()}
}

func requireSchemaKind(t *testing.T, err error, kind validators.SchemaErrorKind) {
	t.Helper()
	var schemaErr *validators.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, kind, schemaErr.Kind)
}

func TestSchemaValidator_LocalRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		schema func() *model.Schema
		kind   validators.SchemaErrorKind
	}{
		{
			name:   "empty name",
			schema: func() *model.Schema { s := hostSchema(); s.Name = ""; return s },
			kind:   validators.KindInvalidName,
		},
		{
			name:   "name with dash",
			schema: func() *model.Schema { s := hostSchema(); s.Name = "web-host"; return s },
			kind:   validators.KindInvalidName,
		},
		{
			name: "duplicate field name",
			schema: func() *model.Schema {
				s := hostSchema()
				s.Fields = append(s.Fields, model.Field{Name: "ip", Type: model.FieldTypeString})
				return s
			},
			kind: validators.KindDuplicateFieldName,
		},
		{
			name:   "empty pk",
			schema: func() *model.Schema { s := hostSchema(); s.PK = ""; return s },
			kind:   validators.KindInvalidPK,
		},
		{
			name:   "pk names no field",
			schema: func() *model.Schema { s := hostSchema(); s.PK = "serial"; return s },
			kind:   validators.KindInvalidPK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			// No store call is expected: local rules run first.
			mockStore := mocks.NewMockDocumentStore(ctrl)

			err := validators.NewSchemaValidator(mockStore).Validate(context.Background(), tt.schema())
			requireSchemaKind(t, err, tt.kind)
		})
	}
}

func TestSchemaValidator_NewSchema(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	mockStore := mocks.NewMockDocumentStore(ctrl)
	mockStore.EXPECT().HeadCollection(gomock.Any(), "host").Return(false, nil)

	err := validators.NewSchemaValidator(mockStore).Validate(context.Background(), hostSchema())
	require.NoError(t, err)
}

func TestSchemaValidator_Redefinition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		schema  func() *model.Schema
		wantErr bool
		kind    validators.SchemaErrorKind
	}{
		{
			name:   "identical definition",
			schema: hostSchema,
		},
		{
			name: "superset adds a field",
			schema: func() *model.Schema {
				s := hostSchema()
				s.Fields = append(s.Fields, model.Field{Name: "os", Type: model.FieldTypeString})
				return s
			},
		},
		{
			name: "reordered fields",
			schema: func() *model.Schema {
				s := hostSchema()
				s.Fields[0], s.Fields[1] = s.Fields[1], s.Fields[0]
				return s
			},
		},
		{
			name: "dropped field",
			schema: func() *model.Schema {
				s := hostSchema()
				s.Fields = s.Fields[:1]
				return s
			},
			wantErr: true,
			kind:    validators.KindConflict,
		},
		{
			name: "changed field type",
			schema: func() *model.Schema {
				s := hostSchema()
				s.Fields[1].Type = model.FieldTypeString
				return s
			},
			wantErr: true,
			kind:    validators.KindFieldNotSameAsOrigin,
		},
		{
			name: "changed field flag",
			schema: func() *model.Schema {
				s := hostSchema()
				s.Fields[1].Multi = false
				return s
			},
			wantErr: true,
			kind:    validators.KindFieldNotSameAsOrigin,
		},
		{
			name: "changed pk",
			schema: func() *model.Schema {
				s := hostSchema()
				s.PK = "ip"
				return s
			},
			wantErr: true,
			kind:    validators.KindPKChanged,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			mockStore := mocks.NewMockDocumentStore(ctrl)
			mockStore.EXPECT().HeadCollection(gomock.Any(), "host").Return(true, nil)
			mockStore.EXPECT().GetSchemaDocument(gomock.Any(), "host").Return(schemaDocument(hostSchema()), nil)

			err := validators.NewSchemaValidator(mockStore).Validate(context.Background(), tt.schema())
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			requireSchemaKind(t, err, tt.kind)
		})
	}
}

func TestSchemaValidator_CollectionWithoutSchemaDocument(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	mockStore := mocks.NewMockDocumentStore(ctrl)
	mockStore.EXPECT().HeadCollection(gomock.Any(), "host").Return(true, nil)
	mockStore.EXPECT().GetSchemaDocument(gomock.Any(), "host").Return(nil, store.ErrNotFound)

	err := validators.NewSchemaValidator(mockStore).Validate(context.Background(), hostSchema())
	require.NoError(t, err)
}

func TestSchemaValidator_FieldRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		field model.Field
		kind  validators.SchemaErrorKind
	}{
		{
			name:  "field name with underscore",
			field: model.Field{Name: "host_name", Type: model.FieldTypeString},
			kind:  validators.KindInvalidFieldName,
		},
		{
			name:  "empty field name",
			field: model.Field{Name: "", Type: model.FieldTypeString},
			kind:  validators.KindInvalidFieldName,
		},
		{
			name:  "unsupported type",
			field: model.Field{Name: "created", Type: model.FieldType("date")},
			kind:  validators.KindInvalidFieldType,
		},
		{
			name:  "reference without separator",
			field: model.Field{Name: "rack", Type: model.FieldTypeString, Ref: "rack"},
			kind:  validators.KindInvalidReference,
		},
		{
			name:  "reference with three parts",
			field: model.Field{Name: "rack", Type: model.FieldTypeString, Ref: "rack::id::x"},
			kind:  validators.KindInvalidReference,
		},
		{
			name:  "reference with empty field",
			field: model.Field{Name: "rack", Type: model.FieldTypeString, Ref: "rack::"},
			kind:  validators.KindInvalidReference,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			mockStore := mocks.NewMockDocumentStore(ctrl)
			mockStore.EXPECT().HeadCollection(gomock.Any(), "host").Return(false, nil)

			s := hostSchema()
			s.Fields = append(s.Fields, tt.field)

			err := validators.NewSchemaValidator(mockStore).Validate(context.Background(), s)
			requireSchemaKind(t, err, tt.kind)
		})
	}
}

func nicSchema(ref string) *model.Schema {
	return &model.Schema{
		Name: "nic",
		PK:   "mac",
		Fields: []model.Field{
			{Name: "mac", Type: model.FieldTypeString, Unique: true},
			{Name: "host", Type: model.FieldTypeString, Ref: ref},
		},
	}
}

func TestSchemaValidator_References(t *testing.T) {
	t.Parallel()

	t.Run("resolves an existing field", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		mockStore := mocks.NewMockDocumentStore(ctrl)
		mockStore.EXPECT().HeadCollection(gomock.Any(), "nic").Return(false, nil)
		mockStore.EXPECT().HeadCollection(gomock.Any(), "host").Return(true, nil)
		mockStore.EXPECT().GetSchemaDocument(gomock.Any(), "host").Return(schemaDocument(hostSchema()), nil)

		err := validators.NewSchemaValidator(mockStore).Validate(context.Background(), nicSchema("host::id"))
		require.NoError(t, err)
	})

	t.Run("missing schema collection", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		mockStore := mocks.NewMockDocumentStore(ctrl)
		mockStore.EXPECT().HeadCollection(gomock.Any(), "nic").Return(false, nil)
		mockStore.EXPECT().HeadCollection(gomock.Any(), "host").Return(false, nil)

		err := validators.NewSchemaValidator(mockStore).Validate(context.Background(), nicSchema("host::id"))
		requireSchemaKind(t, err, validators.KindMissingReferenceSchema)
	})

	t.Run("collection without schema document", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		mockStore := mocks.NewMockDocumentStore(ctrl)
		mockStore.EXPECT().HeadCollection(gomock.Any(), "nic").Return(false, nil)
		mockStore.EXPECT().HeadCollection(gomock.Any(), "host").Return(true, nil)
		mockStore.EXPECT().GetSchemaDocument(gomock.Any(), "host").Return(nil, store.ErrNotFound)

		err := validators.NewSchemaValidator(mockStore).Validate(context.Background(), nicSchema("host::id"))
		requireSchemaKind(t, err, validators.KindMissingReferenceSchema)
	})

	t.Run("missing field", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		mockStore := mocks.NewMockDocumentStore(ctrl)
		mockStore.EXPECT().HeadCollection(gomock.Any(), "nic").Return(false, nil)
		mockStore.EXPECT().HeadCollection(gomock.Any(), "host").Return(true, nil)
		mockStore.EXPECT().GetSchemaDocument(gomock.Any(), "host").Return(schemaDocument(hostSchema()), nil)

		err := validators.NewSchemaValidator(mockStore).Validate(context.Background(), nicSchema("host::serial"))
		requireSchemaKind(t, err, validators.KindMissingReferenceField)
	})
}

func TestSchemaValidator_StoreErrorsPropagate(t *testing.T) {
	t.Parallel()

	storeErr := store.NewError("head", "host", 500, errors.New("internal error"))

	ctrl := gomock.NewController(t)
	mockStore := mocks.NewMockDocumentStore(ctrl)
	mockStore.EXPECT().HeadCollection(gomock.Any(), "host").Return(false, storeErr)

	err := validators.NewSchemaValidator(mockStore).Validate(context.Background(), hostSchema())
	require.Error(t, err)

	var schemaErr *validators.SchemaError
	assert.False(t, errors.As(err, &schemaErr))
	var se *store.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 500, se.StatusCode)
}
