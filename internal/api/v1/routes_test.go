package v1_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/cmdb-registry-server/internal/api/common"
	v1 "github.com/stacklok/cmdb-registry-server/internal/api/v1"
	"github.com/stacklok/cmdb-registry-server/internal/lock"
	"github.com/stacklok/cmdb-registry-server/internal/model"
	"github.com/stacklok/cmdb-registry-server/internal/service"
	"github.com/stacklok/cmdb-registry-server/internal/service/mocks"
	"github.com/stacklok/cmdb-registry-server/internal/store"
	"github.com/stacklok/cmdb-registry-server/internal/validators"
)

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) common.ErrorResponse {
	t.Helper()

	var resp common.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestDefineSchema(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		path       string
		body       string
		setupMock  func(*mocks.MockRegistryService)
		wantStatus int
		wantKind   string
		wantError  string
	}{
		{
			name: "created with warnings",
			path: "/schema",
			body: `{"name":"host","pk":"hostname","fields":[{"name":"hostname","type":"string"}]}`,
			setupMock: func(m *mocks.MockRegistryService) {
				m.EXPECT().DefineSchema(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, payload map[string]any) (*service.DefineSchemaResult, error) {
						assert.Equal(t, "host", payload["name"])
						return &service.DefineSchemaResult{
							Name: "host",
							Warnings: []model.Warning{
								{Field: "hostname", Attribute: "unique", Message: "defaulted to false"},
							},
						}, nil
					})
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "url name fills missing body name",
			path: "/schema/host",
			body: `{"pk":"hostname","fields":[]}`,
			setupMock: func(m *mocks.MockRegistryService) {
				m.EXPECT().DefineSchema(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, payload map[string]any) (*service.DefineSchemaResult, error) {
						assert.Equal(t, "host", payload["name"])
						return &service.DefineSchemaResult{Name: "host", Warnings: []model.Warning{}}, nil
					})
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "url name matching body name",
			path: "/schema/host",
			body: `{"name":"host","pk":"hostname","fields":[]}`,
			setupMock: func(m *mocks.MockRegistryService) {
				m.EXPECT().DefineSchema(gomock.Any(), gomock.Any()).
					Return(&service.DefineSchemaResult{Name: "host", Warnings: []model.Warning{}}, nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "url name mismatching body name",
			path:       "/schema/host",
			body:       `{"name":"service"}`,
			setupMock:  func(*mocks.MockRegistryService) {},
			wantStatus: http.StatusBadRequest,
			wantKind:   v1.KindNameMismatch,
		},
		{
			name:       "body is not an object",
			path:       "/schema",
			body:       `["host"]`,
			setupMock:  func(*mocks.MockRegistryService) {},
			wantStatus: http.StatusBadRequest,
			wantKind:   v1.KindBadRequest,
		},
		{
			name:       "empty body",
			path:       "/schema",
			setupMock:  func(*mocks.MockRegistryService) {},
			wantStatus: http.StatusBadRequest,
			wantKind:   v1.KindBadRequest,
		},
		{
			name: "missing name",
			path: "/schema",
			body: `{"fields":[]}`,
			setupMock: func(m *mocks.MockRegistryService) {
				m.EXPECT().DefineSchema(gomock.Any(), gomock.Any()).Return(nil, model.ErrMissingName)
			},
			wantStatus: http.StatusBadRequest,
			wantKind:   v1.KindMissingName,
		},
		{
			name: "locked",
			path: "/schema",
			body: `{"name":"host"}`,
			setupMock: func(m *mocks.MockRegistryService) {
				m.EXPECT().DefineSchema(gomock.Any(), gomock.Any()).
					Return(nil, fmt.Errorf("%w: /cmdb/host", lock.ErrLockContention))
			},
			wantStatus: http.StatusServiceUnavailable,
			wantKind:   v1.KindLocked,
			wantError:  "schema host is locked",
		},
		{
			name: "validation failure",
			path: "/schema",
			body: `{"name":"host"}`,
			setupMock: func(m *mocks.MockRegistryService) {
				m.EXPECT().DefineSchema(gomock.Any(), gomock.Any()).Return(nil, &validators.SchemaError{
					Kind:    validators.KindPKChanged,
					Field:   "pk",
					Message: "pk cannot change from hostname to ip",
				})
			},
			wantStatus: http.StatusBadRequest,
			wantKind:   string(validators.KindPKChanged),
			wantError:  "pk cannot change from hostname to ip",
		},
		{
			name: "store failure",
			path: "/schema",
			body: `{"name":"host"}`,
			setupMock: func(m *mocks.MockRegistryService) {
				m.EXPECT().DefineSchema(gomock.Any(), gomock.Any()).
					Return(nil, store.NewError("put", "host", http.StatusBadGateway, errors.New("upstream")))
			},
			wantStatus: http.StatusInternalServerError,
			wantKind:   v1.KindInternal,
			wantError:  "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			t.Cleanup(ctrl.Finish)

			mockSvc := mocks.NewMockRegistryService(ctrl)
			tt.setupMock(mockSvc)

			rec := do(t, v1.Router(mockSvc), http.MethodPost, tt.path, tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			if tt.wantStatus == http.StatusCreated {
				var result service.DefineSchemaResult
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
				assert.Equal(t, "host", result.Name)
				assert.NotNil(t, result.Warnings)
				return
			}

			resp := decodeError(t, rec)
			assert.Equal(t, tt.wantKind, resp.Kind)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, resp.Error)
			}
			if tt.wantKind == v1.KindLocked {
				assert.Equal(t, v1.RetryAfterSeconds, rec.Header().Get("Retry-After"))
			}
		})
	}
}

func TestCreateEntity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantKind   string
		wantField  string
	}{
		{
			name:       "created",
			body:       `{"hostname":"web01","ip":"10.0.0.1"}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "schema not found",
			body:       `{"hostname":"web01"}`,
			err:        fmt.Errorf("%w: host", service.ErrSchemaNotFound),
			wantStatus: http.StatusNotFound,
			wantKind:   v1.KindNotFound,
		},
		{
			name:       "locked",
			body:       `{"hostname":"web01"}`,
			err:        lock.ErrLockContention,
			wantStatus: http.StatusServiceUnavailable,
			wantKind:   v1.KindLocked,
		},
		{
			name: "uniqueness violation",
			body: `{"hostname":"web01","ip":"10.0.0.1"}`,
			err: &validators.EntityError{
				Kind:    validators.KindUniquenessViolation,
				Field:   "ip",
				Value:   "10.0.0.1",
				Message: "ip 10.0.0.1 is already used",
			},
			wantStatus: http.StatusBadRequest,
			wantKind:   string(validators.KindUniquenessViolation),
			wantField:  "ip",
		},
		{
			name:       "deadline exceeded",
			body:       `{"hostname":"web01"}`,
			err:        fmt.Errorf("failed to acquire lock /cmdb/host: %w", context.DeadlineExceeded),
			wantStatus: http.StatusGatewayTimeout,
			wantKind:   v1.KindTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			t.Cleanup(ctrl.Finish)

			mockSvc := mocks.NewMockRegistryService(ctrl)
			call := mockSvc.EXPECT().CreateEntity(gomock.Any(), "host", gomock.Any())
			if tt.err != nil {
				call.Return(nil, tt.err)
			} else {
				call.Return(&service.CreateEntityResult{Schema: "host", Key: "web01"}, nil)
			}

			rec := do(t, v1.Router(mockSvc), http.MethodPost, "/schema/host/entity", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			if tt.err == nil {
				assert.JSONEq(t, `{"schema":"host","key":"web01"}`, rec.Body.String())
				return
			}
			resp := decodeError(t, rec)
			assert.Equal(t, tt.wantKind, resp.Kind)
			assert.Equal(t, tt.wantField, resp.Field)
		})
	}
}

func TestReads(t *testing.T) {
	t.Parallel()

	t.Run("get schema", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		mockSvc := mocks.NewMockRegistryService(ctrl)
		mockSvc.EXPECT().GetSchema(gomock.Any(), "host").Return(&model.Schema{
			Name:   "host",
			PK:     "hostname",
			Fields: []model.Field{{Name: "hostname", Type: model.FieldTypeString, Unique: true, Require: true}},
		}, nil)

		rec := do(t, v1.Router(mockSvc), http.MethodGet, "/schema/host", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var schema model.Schema
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &schema))
		assert.Equal(t, "hostname", schema.PK)
		require.Len(t, schema.Fields, 1)
	})

	t.Run("get missing schema", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		mockSvc := mocks.NewMockRegistryService(ctrl)
		mockSvc.EXPECT().GetSchema(gomock.Any(), "nope").Return(nil, service.ErrSchemaNotFound)

		rec := do(t, v1.Router(mockSvc), http.MethodGet, "/schema/nope", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("get entity", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		mockSvc := mocks.NewMockRegistryService(ctrl)
		mockSvc.EXPECT().GetEntity(gomock.Any(), "host", "10.0.0.1").Return(&store.Document{
			ID:     "10.0.0.1",
			Source: map[string]any{"ip": "10.0.0.1"},
		}, nil)

		rec := do(t, v1.Router(mockSvc), http.MethodGet, "/schema/host/entity/10.0.0.1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"_id":"10.0.0.1","_source":{"ip":"10.0.0.1"}}`, rec.Body.String())
	})

	t.Run("get missing entity", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		mockSvc := mocks.NewMockRegistryService(ctrl)
		mockSvc.EXPECT().GetEntity(gomock.Any(), "host", "web99").Return(nil, service.ErrEntityNotFound)

		rec := do(t, v1.Router(mockSvc), http.MethodGet, "/schema/host/entity/web99", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, v1.KindNotFound, decodeError(t, rec).Kind)
	})

	t.Run("whitespace key", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		mockSvc := mocks.NewMockRegistryService(ctrl)

		rec := do(t, v1.Router(mockSvc), http.MethodGet, "/schema/host/entity/web%2001", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
