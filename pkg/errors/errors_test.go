package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	err := New(KindRemote, "3", fmt.Errorf("fetching: %w", ErrNotFound))
	wrapped := fmt.Errorf("run: %w", err)

	assert.Equal(t, KindRemote, KindOf(wrapped))
	assert.True(t, stderrors.Is(wrapped, ErrNotFound))
	assert.Equal(t, KindUncategorized, KindOf(fmt.Errorf("plain")))
	assert.Equal(t, "Kimai Error: @3: fetching: resource not found", err.Error())
}

func TestNewNil(t *testing.T) {
	assert.Nil(t, New(KindLocalStore, "1", nil))
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
		sentinel  error
	}{
		{404, false, ErrNotFound},
		{429, true, ErrRateLimit},
		{500, true, nil},
		{503, true, ErrUnavailable},
		{422, false, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := NewAPIError("kimai", tt.status, "boom")
			assert.Equal(t, tt.retryable, IsRetryable(err))
			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			}
		})
	}
}
