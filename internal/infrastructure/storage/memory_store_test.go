package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestoapp/turno-core/internal/infrastructure/storage"
)

func TestMemoryStore_CicloBasico(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStore()

	_, ok, err := s.Get(ctx, "ausente")
	require.NoError(t, err)
	assert.False(t, ok, "la clave inexistente reporta ok=false sin error")

	require.NoError(t, s.Set(ctx, "k", "v"))
	got, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", got)

	require.NoError(t, s.Set(ctx, "k", "v2"))
	got, _, _ = s.Get(ctx, "k")
	assert.Equal(t, "v2", got, "Set sobre clave existente sobreescribe")
}

func TestMemoryStore_DeleteVariasClaves(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStore()
	require.NoError(t, s.Set(ctx, "a", "1"))
	require.NoError(t, s.Set(ctx, "b", "2"))

	require.NoError(t, s.Delete(ctx, "a", "b", "no-existe"))

	_, ok, _ := s.Get(ctx, "a")
	assert.False(t, ok)
	_, ok, _ = s.Get(ctx, "b")
	assert.False(t, ok)
}
