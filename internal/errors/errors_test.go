package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError(t *testing.T) {
	cause := errors.New("database is locked")
	err := NewStorageError("append batch", cause).WithContext("stock_code", 5)

	assert.Equal(t, "[STORAGE] append batch: database is locked", err.Error())
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, 5, err.Context["stock_code"])

	var appErr *AppError
	require.True(t, errors.As(error(err), &appErr))
	assert.Equal(t, ErrTypeStorage, appErr.Type)

	assert.Equal(t, "[NOT_FOUND] security 7 not found", NewNotFoundError("security 7").Error())
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ErrValidation("end", "must not be before start"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp struct {
		Error struct {
			ErrorCode string            `json:"error_code"`
			Details   []ValidationError `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_FAILED", resp.Error.ErrorCode)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "end", resp.Error.Details[0].Field)
}

func TestProblemDetailsMarshal(t *testing.T) {
	p := NewProblemDetails(http.StatusBadRequest, TypeValidation, "Validation Failed", "", "/x").
		WithExtension("trace_id", "abc")

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "abc", m["trace_id"])
	assert.NotContains(t, m, "detail", "empty detail is omitted")
	assert.Equal(t, "/x", m["instance"])
}
