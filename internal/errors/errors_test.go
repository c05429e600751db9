package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := NewInternalError("saving record", fmt.Errorf("disk full"))
	assert.Equal(t, "INTERNAL_ERROR: saving record (disk full)", err.Error())

	assert.Equal(t, "NOT_FOUND: member not found", NewNotFoundError("member").Error())
}

func TestPredicates_SeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("resolving period: %w", NewInvalidRangeError("2024-02-01", "2024-01-01"))

	assert.True(t, IsInvalidRange(wrapped))
	assert.False(t, IsInvalidRate(wrapped))
	assert.Equal(t, ErrCodeInvalidRange, CodeOf(wrapped))
}

func TestCodeOf_PlainError(t *testing.T) {
	assert.Equal(t, ErrCode(""), CodeOf(fmt.Errorf("boom")))
	assert.False(t, IsNotFound(nil))
}

func TestNewInvalidRateError(t *testing.T) {
	err := NewInvalidRateError(-2.5)
	assert.True(t, IsInvalidRate(err))
	assert.Contains(t, err.Message, "-2.5")
}
