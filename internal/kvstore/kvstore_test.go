package kvstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	b, err := OpenBolt(filepath.Join(t.TempDir(), "kv", "host.db"))
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return map[string]Store{"bolt": b, "memory": NewMemory()}
}

func TestStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, BlobKeyProd)
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Set(ctx, BlobKeyProd, []byte{1, 2, 3}))
			got, err := s.Get(ctx, BlobKeyProd)
			require.NoError(t, err)
			assert.Equal(t, []byte{1, 2, 3}, got)

			require.NoError(t, s.Delete(ctx, BlobKeyProd))
			require.NoError(t, s.Delete(ctx, BlobKeyProd))
			_, err = s.Get(ctx, BlobKeyProd)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestBoltStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "host.db")

	s, err := OpenBolt(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "sync:last", []byte("42")))
	require.NoError(t, s.Close())

	s, err = OpenBolt(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(ctx, "sync:last")
	require.NoError(t, err)
	assert.Equal(t, "42", string(got))
}

func TestMemoryStore_FailSets(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	quota := errors.New("quota exceeded")

	m.FailSets(quota)
	assert.ErrorIs(t, m.Set(ctx, "k", []byte("v")), quota)
	assert.Equal(t, 0, m.Sets("k"))

	m.FailSets(nil)
	require.NoError(t, m.Set(ctx, "k", []byte("v")))
	assert.Equal(t, 1, m.Sets("k"))
}

func TestBlobKey(t *testing.T) {
	assert.Equal(t, BlobKeyDev, BlobKey("dev"))
	assert.Equal(t, BlobKeyProd, BlobKey("prod"))
	assert.Equal(t, BlobKeyProd, BlobKey(""))
}
