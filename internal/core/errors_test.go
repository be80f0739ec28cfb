package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	e := &Error{Code: "TEST", Message: "something broke"}
	assert.Equal(t, "[TEST] something broke", e.Error())

	wrapped := WrapError(e, fmt.Errorf("root cause"))
	assert.Equal(t, "[TEST] something broke: root cause", wrapped.Error())
}

func TestErrorIs(t *testing.T) {
	wrapped := WrapError(ErrStoreFailed, fmt.Errorf("connection refused"))

	assert.True(t, errors.Is(wrapped, ErrStoreFailed))
	assert.False(t, errors.Is(wrapped, ErrNoSnapshot))
}

func TestErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("dial tcp: timeout")
	wrapped := WrapError(ErrHoldingsUnavailable, cause)

	assert.Equal(t, cause, errors.Unwrap(wrapped))
}
