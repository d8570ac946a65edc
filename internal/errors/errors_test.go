package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigError_Error(t *testing.T) {
	err := NewConfigError("ptw", "approvalFlow", "step %d out of order", 3)
	assert.Equal(t, "config ptw.approvalFlow: step 3 out of order", err.Error())
}

func TestConfigError_WithWrapped(t *testing.T) {
	inner := errors.New("unexpected EOF")
	err := &ConfigError{Module: "ims", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.ErrorIs(t, err, ErrMalformedConfig)
	assert.Contains(t, err.Error(), "unexpected EOF")
}

func TestIsMalformed(t *testing.T) {
	wrapped := fmt.Errorf("publish: %w", NewConfigError("bbs", "checklists", "empty name"))
	assert.True(t, IsMalformed(wrapped))
	assert.False(t, IsMalformed(ErrUnknownModule))

	var ce *ConfigError
	assert.True(t, errors.As(wrapped, &ce))
	assert.Equal(t, "bbs", ce.Module)
}

func TestSentinelErrors(t *testing.T) {
	wrapped := fmt.Errorf("publish: %w", ErrInvalidInput)
	assert.ErrorIs(t, wrapped, ErrInvalidInput)
	assert.False(t, errors.Is(wrapped, ErrUnknownModule))
	assert.False(t, IsMalformed(wrapped))
}
