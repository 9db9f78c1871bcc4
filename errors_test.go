package realtime

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	err := NewError(ErrCodeValidation, "bad input")
	assert.Equal(t, "VALIDATION_ERROR: bad input", err.Error())

	wrapped := NewErrorWithCause(ErrCodeDatabase, "insert failed", errors.New("connection refused"))
	assert.Equal(t, "DATABASE_ERROR: insert failed: connection refused", wrapped.Error())
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewErrorWithCause(ErrCodeCluster, "publish failed", cause)

	assert.True(t, errors.Is(err, cause))
	assert.Nil(t, NewError(ErrCodeCluster, "publish failed").Unwrap())
}

func TestIsNoData(t *testing.T) {
	assert.True(t, IsNoData(ErrNoData))
	assert.True(t, IsNoData(fmt.Errorf("loading archive: %w", ErrNoData)))
	assert.True(t, IsNoData(NewErrorWithCause(ErrCodeNoData, "empty channel", nil)))

	assert.False(t, IsNoData(nil))
	assert.False(t, IsNoData(errors.New("plain error")))
	assert.False(t, IsNoData(NewError(ErrCodeDatabase, "query failed")))
}
