package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapKeepsCauseOutOfMessage(t *testing.T) {
	cause := errors.New("pq: connection refused")
	err := Wrap(cause, CodePersistence, "Erro ao cadastrar preso")

	assert.Equal(t, "Erro ao cadastrar preso", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, HasCode(err, CodePersistence))
	assert.False(t, HasCode(err, CodeQuery))
}

func TestHasCodeThroughNesting(t *testing.T) {
	inner := New(CodeNotFound, "not found")
	outer := Wrap(inner, CodeQuery, "Erro ao buscar preso")
	wrapped := fmt.Errorf("handler: %w", outer)

	assert.True(t, HasCode(wrapped, CodeQuery))
	assert.True(t, HasCode(wrapped, CodeNotFound))
	assert.Equal(t, CodeQuery, CodeOf(wrapped))
}

func TestMessage(t *testing.T) {
	t.Run("domain error returns its message", func(t *testing.T) {
		assert.Equal(t, "Senha incorreta", Message(New(CodeAuth, "Senha incorreta"), "fallback"))
	})

	t.Run("plain error returns fallback", func(t *testing.T) {
		assert.Equal(t, "fallback", Message(errors.New("raw detail"), "fallback"))
	})

	t.Run("nil chain is not coded", func(t *testing.T) {
		require.False(t, HasCode(nil, CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(errors.New("x")))
	})
}
