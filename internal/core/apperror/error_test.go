package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorMessageAndUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewDatabase(cause)

	assert.Contains(t, err.Error(), CodeDatabase)
	assert.Contains(t, err.Error(), "connection refused")
	assert.True(t, errors.Is(err, cause))
}

func TestWithDetail(t *testing.T) {
	err := NewValidation("quantity must be positive").
		WithDetail("field", "quantity").
		WithDetail("value", -1)

	assert.Equal(t, "quantity", err.Details["field"])
	assert.Equal(t, -1, err.Details["value"])
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus)
}

func TestNewInsufficientStock(t *testing.T) {
	err := NewInsufficientStock("p-1", 5, 2)

	assert.Equal(t, CodeInsufficientStock, err.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, err.HTTPStatus)
	assert.Equal(t, 5.0, err.Details["requested"])
	assert.Equal(t, 2.0, err.Details["available"])
	assert.True(t, IsInsufficientStock(err))
}

func TestNewInsufficientStockMulti(t *testing.T) {
	err := NewInsufficientStockMulti([]ShortfallItem{
		{ProductID: "p-1", Requested: 5, Available: 2},
		{ProductID: "p-2", Requested: 3, Available: 0},
	})

	assert.True(t, IsInsufficientStock(err))
	items, ok := err.Details["items"].([]ShortfallItem)
	require.True(t, ok)
	assert.Len(t, items, 2)
}

func TestIsNotFound_ThroughWrapping(t *testing.T) {
	err := NewNotFound("product", "p-1")
	wrapped := fmt.Errorf("load product: %w", err)

	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsNotFound(errors.New("plain")))
	assert.False(t, IsNotFound(nil))
}

func TestIsConcurrentModification(t *testing.T) {
	err := NewConcurrentModification("sale transaction", "t-1")
	assert.Equal(t, http.StatusConflict, err.HTTPStatus)
	assert.True(t, IsConcurrentModification(fmt.Errorf("commit: %w", err)))
}

func TestTransactionNotCompleted(t *testing.T) {
	err := NewTransactionNotCompleted("t-1")
	assert.Equal(t, CodeTransactionNotCompleted, err.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, err.HTTPStatus)
}

func TestIdempotencyErrors(t *testing.T) {
	conflict := NewIdempotencyConflict("key-1")
	assert.Equal(t, CodeIdempotencyConflict, conflict.Code)
	assert.Equal(t, http.StatusConflict, conflict.HTTPStatus)

	mismatch := NewIdempotencyMismatch("key-1")
	assert.Equal(t, CodeIdempotencyMismatch, mismatch.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, mismatch.HTTPStatus)
}

func TestIsAppError(t *testing.T) {
	assert.True(t, IsAppError(NewValidation("bad")))
	assert.True(t, IsAppError(fmt.Errorf("wrap: %w", NewValidation("bad"))))
	assert.False(t, IsAppError(errors.New("plain")))
	assert.False(t, IsAppError(nil))
}
