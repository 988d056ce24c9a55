package domainerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode_WalksChain(t *testing.T) {
	inner := New(CodeNotFound, "staff not found")
	outer := Wrap(inner, CodeInternal, "failed to pay staff")

	assert.True(t, HasCode(outer, CodeInternal))
	assert.True(t, HasCode(outer, CodeNotFound))
	assert.False(t, HasCode(outer, CodeForbidden))
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeInternal, "failed to load hospital")

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeInternal, CodeOf(err))
}

func TestWrap_NilIsNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
}

func TestCodeOf_UncodedError(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}
