package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "ccasscli/internal/errors"
	api "ccasscli/pkg/contracts/api/v1"
)

// bindThrough routes target through a chi router so URL params resolve
func bindThrough(t *testing.T, pattern, target string, dst interface{}) error {
	t.Helper()
	b := NewRequestBinder()
	var bindErr error
	r := chi.NewRouter()
	r.Get(pattern, func(w http.ResponseWriter, req *http.Request) {
		bindErr = b.Bind(req, dst)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, nil))
	return bindErr
}

func TestRequestBinder_Bind(t *testing.T) {
	t.Run("full query", func(t *testing.T) {
		var req api.ShareholdingQueryRequest
		err := bindThrough(t, "/api/shareholding/{code}", "/api/shareholding/700?start=2024-01-01&end=2024-01-31&threshold=2.5", &req)
		require.NoError(t, err)

		assert.Equal(t, 700, req.StockCode)
		assert.Equal(t, "2024-01-01", req.Start)
		assert.Equal(t, "2024-01-31", req.End)
		require.NotNil(t, req.ThresholdPct)
		assert.Equal(t, 2.5, *req.ThresholdPct)
	})

	t.Run("optional fields absent", func(t *testing.T) {
		var req api.ShareholdingQueryRequest
		require.NoError(t, bindThrough(t, "/api/shareholding/{code}", "/api/shareholding/5", &req))
		assert.Equal(t, 5, req.StockCode)
		assert.Empty(t, req.Start)
		assert.Nil(t, req.ThresholdPct)
	})

	t.Run("export format", func(t *testing.T) {
		var req api.ExportRequest
		require.NoError(t, bindThrough(t, "/api/shareholding/{code}/export", "/api/shareholding/5/export?format=xlsx", &req))
		assert.Equal(t, "xlsx", req.Format)
	})
}

func TestRequestBinder_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		field  string
	}{
		{name: "non numeric code", target: "/api/shareholding/abc", field: "code"},
		{name: "non numeric threshold", target: "/api/shareholding/5?threshold=lots", field: "threshold"},
		{name: "threshold out of range", target: "/api/shareholding/5?threshold=120", field: "threshold"},
		{name: "bad date", target: "/api/shareholding/5?start=2024/01/01", field: "start"},
		{name: "zero code", target: "/api/shareholding/0", field: "stock_code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req api.ShareholdingQueryRequest
			err := bindThrough(t, "/api/shareholding/{code}", tt.target, &req)
			require.Error(t, err)

			var apiErr *apperrors.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)

			fields, ok := apiErr.Details.([]apperrors.ValidationError)
			require.True(t, ok)
			require.NotEmpty(t, fields)
			assert.Equal(t, tt.field, fields[0].Field)
		})
	}
}

func TestRequestBinder_RejectsNonPointer(t *testing.T) {
	err := NewRequestBinder().Bind(httptest.NewRequest(http.MethodGet, "/", nil), api.ExportRequest{})
	assert.Error(t, err)
}
