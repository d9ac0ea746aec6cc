// Package storagetest holds behaviour every Storage driver must share.
package storagetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/storage"
	"storefront/pkg/platform/sentinel"
)

// Factory returns a Storage view for origin. Views created by one factory
// must share backing data.
type Factory func(t *testing.T, origin string) storage.Storage

// RunContract exercises the Storage contract against a driver.
func RunContract(t *testing.T, newStorage Factory) {
	ctx := context.Background()

	t.Run("missing key is ErrNotFound", func(t *testing.T) {
		s := newStorage(t, "contract-missing")
		_, err := s.Get(ctx, "nope")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("set then get round trips and overwrites", func(t *testing.T) {
		s := newStorage(t, "contract-rw")
		require.NoError(t, s.Set(ctx, storage.KeySession, []byte(`{"v":1}`)))
		require.NoError(t, s.Set(ctx, storage.KeySession, []byte(`{"v":2}`)))

		got, err := s.Get(ctx, storage.KeySession)
		require.NoError(t, err)
		assert.Equal(t, `{"v":2}`, string(got))
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		s := newStorage(t, "contract-del")
		require.NoError(t, s.Set(ctx, "k", []byte("v")))
		require.NoError(t, s.Delete(ctx, "k"))
		require.NoError(t, s.Delete(ctx, "k"))

		_, err := s.Get(ctx, "k")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("views of one origin share data", func(t *testing.T) {
		tabA := newStorage(t, "contract-shared")
		tabB := newStorage(t, "contract-shared")
		require.NoError(t, tabA.Set(ctx, "k", []byte("from-a")))

		got, err := tabB.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "from-a", string(got))
	})

	t.Run("origins are isolated", func(t *testing.T) {
		shop := newStorage(t, "contract-shop")
		other := newStorage(t, "contract-other")
		require.NoError(t, shop.Set(ctx, "k", []byte("shop")))

		_, err := other.Get(ctx, "k")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("returned bytes are not aliased", func(t *testing.T) {
		s := newStorage(t, "contract-alias")
		in := []byte("abc")
		require.NoError(t, s.Set(ctx, "k", in))
		in[0] = 'x'

		got, err := s.Get(ctx, "k")
		require.NoError(t, err)
		got[1] = 'y'
		again, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "abc", string(again))
	})
}
