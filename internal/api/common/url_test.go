package common

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAndValidateURLParam(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		path       string
		wantValue  string
		wantErrMsg string
	}{
		{name: "plain value", path: "/host01", wantValue: "host01"},
		{name: "ip address key", path: "/10.0.0.1", wantValue: "10.0.0.1"},
		{name: "encoded colon", path: "/db%3A5432", wantValue: "db:5432"},
		{name: "encoded slash", path: "/rack%2F12", wantValue: "rack/12"},
		{name: "encoded space only", path: "/%20", wantErrMsg: "key cannot be empty"},
		{name: "space in middle", path: "/host%2001", wantErrMsg: "key cannot contain whitespace"},
		{name: "tab at end", path: "/host01%09", wantErrMsg: "key cannot contain whitespace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var (
				got    string
				gotErr error
			)
			r := chi.NewRouter()
			r.Get("/{key}", func(_ http.ResponseWriter, req *http.Request) {
				got, gotErr = GetAndValidateURLParam(req, "key")
			})
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))

			if tt.wantErrMsg != "" {
				require.EqualError(t, gotErr, tt.wantErrMsg)
				return
			}
			require.NoError(t, gotErr)
			assert.Equal(t, tt.wantValue, got)
		})
	}
}

func TestGetAndValidateURLParam_Missing(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := GetAndValidateURLParam(req, "name")
	require.EqualError(t, err, "name cannot be empty")
}
