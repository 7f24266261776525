package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

var errItemMissing = errors.New("items: not found")

func TestRespondErrorMapsClassifiedErrors(t *testing.T) {
	err := Classify(fmt.Errorf("lookup: %w", errItemMissing), map[error]error{errItemMissing: ErrNotFound})

	rec := httptest.NewRecorder()
	RespondError(rec, err)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Not Found", body.Title)
	require.Equal(t, http.StatusNotFound, body.Status)
}

func TestRespondErrorDefaultsToInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("pool exhausted"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "pool exhausted")
}
