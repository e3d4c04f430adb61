// Package blobtest checks that a driven.BlobStore honours the contract
// the index store relies on. Each backend's tests call Run.
package blobtest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
)

// Run exercises a fresh store returned by newStore for every subtest.
func Run(t *testing.T, newStore func(t *testing.T) driven.BlobStore) {
	t.Helper()

	t.Run("put then get", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Put(ctx, "indexes/company_acme/index.msgpack", []byte("v1")))

		got, err := s.Get(ctx, "indexes/company_acme/index.msgpack")
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), got)
	})

	t.Run("put replaces", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Put(ctx, "k", []byte("old")))
		require.NoError(t, s.Put(ctx, "k", []byte("new")))

		got, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("new"), got)
	})

	t.Run("empty value", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Put(ctx, "empty", []byte{}))
		got, err := s.Get(ctx, "empty")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("missing key", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Get(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		ok, err := s.Exists(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("exists", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Put(ctx, "a/b", []byte("x")))
		ok, err := s.Exists(ctx, "a/b")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Put(ctx, "a/b", []byte("x")))
		require.NoError(t, s.Delete(ctx, "a/b"))
		require.NoError(t, s.Delete(ctx, "a/b"), "deleting a missing key is not an error")

		_, err := s.Get(ctx, "a/b")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("list by prefix", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for _, k := range []string{
			"indexes/company_b/index.msgpack",
			"indexes/company_a/chunks.msgpack",
			"indexes/company_a/index.msgpack",
			"other/x",
		} {
			require.NoError(t, s.Put(ctx, k, []byte(k)))
		}

		keys, err := s.List(ctx, "indexes/company_a/")
		require.NoError(t, err)
		assert.Equal(t, []string{"indexes/company_a/chunks.msgpack", "indexes/company_a/index.msgpack"}, keys)

		keys, err = s.List(ctx, "indexes/")
		require.NoError(t, err)
		assert.Len(t, keys, 3)

		keys, err = s.List(ctx, "missing/")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("concurrent writers", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, s.Put(ctx, "shared", []byte(fmt.Sprintf("writer-%d", i))))
			}()
		}
		wg.Wait()

		got, err := s.Get(ctx, "shared")
		require.NoError(t, err)
		assert.Regexp(t, `^writer-\d$`, string(got))
	})

	t.Run("ping", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.Ping(context.Background()))
	})
}
