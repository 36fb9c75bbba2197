package storage

import (
	"context"
	"testing"
	"time"

	"github.com/kontor/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryObjectStorage(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryObjectStorage("https://files.test")

	data := []byte("%PDF-1.4")
	require.NoError(t, m.Put(ctx, "invoices/t/RE-2024-0001.pdf", data, "application/pdf"))
	data[0] = 'X'

	got, err := m.Get(ctx, "invoices/t/RE-2024-0001.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(got), "stored bytes are copied")

	ct, ok := m.ContentType("invoices/t/RE-2024-0001.pdf")
	assert.True(t, ok)
	assert.Equal(t, "application/pdf", ct)

	u, exp, err := m.PresignGet(ctx, "invoices/t/RE-2024-0001.pdf", time.Minute)
	require.NoError(t, err)
	assert.Contains(t, u, "https://files.test/invoices/t/RE-2024-0001.pdf?expires=")
	assert.True(t, exp.After(time.Now()))

	require.NoError(t, m.Delete(ctx, "invoices/t/RE-2024-0001.pdf"))
	_, err = m.Get(ctx, "invoices/t/RE-2024-0001.pdf")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.Equal(t, 0, m.Len())

	assert.Error(t, m.Put(ctx, "", nil, ""))
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	s, err := New(ctx, &config.StorageConfig{Provider: "memory"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &MemoryObjectStorage{}, s)

	_, err = New(ctx, &config.StorageConfig{Provider: "ftp"}, zap.NewNop())
	assert.Error(t, err)
}
