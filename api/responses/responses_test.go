package responses

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/stockdesk-backend/pkg/errors"
	"github.com/angelmondragon/stockdesk-backend/pkg/logger"
)

func TestWriteSuccessAndCreated(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, map[string]string{"sku": "CRT-01"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body SuccessEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "CRT-01", body.Data.(map[string]any)["sku"])

	created := httptest.NewRecorder()
	WriteCreated(created, map[string]int{"quantity": 2})
	assert.Equal(t, http.StatusCreated, created.Code)

	empty := httptest.NewRecorder()
	WriteNoContent(empty)
	assert.Equal(t, http.StatusNoContent, empty.Code)
	assert.Zero(t, empty.Body.Len())
}

func TestWriteErrorInsufficientKeepsDetails(t *testing.T) {
	w := httptest.NewRecorder()
	err := fmt.Errorf("apply transition: %w", pkgerrors.New(pkgerrors.CodeInsufficient, "not enough stock to reserve").
		WithDetails(map[string]any{"shortfalls": []string{"CRT-01"}}))
	WriteError(t.Context(), logger.Nop(), w, err)

	assert.Equal(t, http.StatusConflict, w.Code)
	var body ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, string(pkgerrors.CodeInsufficient), body.Error.Code)
	assert.Equal(t, "not enough stock to reserve", body.Error.Message)
	assert.NotNil(t, body.Error.Details)
}

func TestWriteErrorHidesUntypedErrors(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(t.Context(), nil, w, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, string(pkgerrors.CodeInternal), body.Error.Code)
	assert.Equal(t, "internal server error", body.Error.Message)
	assert.Nil(t, body.Error.Details)
}

func TestWriteErrorStateConflictStatus(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(t.Context(), nil, w, pkgerrors.New(pkgerrors.CodeStateConflict, "draft cannot move to delivered"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
