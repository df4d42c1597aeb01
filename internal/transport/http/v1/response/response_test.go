package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/corray333/backend-labs/ledger/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))

	return env
}

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	JSON(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusCreated, map[string]int{"n": 1})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	env := decode(t, rec)
	assert.True(t, env.Success)
	assert.Nil(t, env.Error)
	assert.Equal(t, map[string]any{"n": float64(1)}, env.Data)
}

func TestError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		kind    string
		message string
		fields  bool
	}{
		{
			name:    "validation keeps fields",
			err:     apperr.ValidationErr("invalid order", map[string]string{"items": "is required"}),
			status:  http.StatusBadRequest,
			kind:    "validation",
			message: "invalid order",
			fields:  true,
		},
		{
			name:    "transition",
			err:     apperr.TransitionErr("order ORD-0001 is canceled"),
			status:  http.StatusConflict,
			kind:    "invalid_state_transition",
			message: "order ORD-0001 is canceled",
		},
		{
			name:    "storage hides cause",
			err:     apperr.StorageErr("failed to update order", errors.New("pq: connection refused")),
			status:  http.StatusServiceUnavailable,
			kind:    "storage_failure",
			message: "storage unavailable, retry later",
		},
		{
			name:    "foreign error",
			err:     errors.New("boom"),
			status:  http.StatusInternalServerError,
			kind:    "internal",
			message: "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			Error(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.status, rec.Code)
			env := decode(t, rec)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.kind, env.Error.Kind)
			assert.Equal(t, tt.message, env.Error.Message)
			assert.Equal(t, tt.fields, env.Error.Fields != nil)
		})
	}
}

func TestFail(t *testing.T) {
	rec := httptest.NewRecorder()

	Fail(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusForbidden, KindForbidden, "role cashier may not access reports")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, KindForbidden, env.Error.Kind)
}
