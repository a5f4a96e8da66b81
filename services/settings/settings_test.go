package settings

import (
	"context"
	"sync"
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	mu     sync.Mutex
	values map[string]string
}

func (r *memoryRepo) GetSetting(ctx context.Context, key string) (mo.Option[string], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if value, ok := r.values[key]; ok {
		return mo.Some(value), nil
	}
	return mo.None[string](), nil
}

func (r *memoryRepo) UpsertSetting(ctx context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.values == nil {
		r.values = make(map[string]string)
	}
	r.values[key] = value
	return nil
}

func TestService_StringSettings(t *testing.T) {
	service := NewService(&memoryRepo{})
	ctx := context.Background()

	t.Run("missing setting returns None", func(t *testing.T) {
		value, err := service.GetStringSetting(ctx, KeyVisitTarget)
		require.NoError(t, err)
		assert.False(t, value.IsPresent())
	})

	t.Run("upsert then get round-trips", func(t *testing.T) {
		require.NoError(t, service.UpsertStringSetting(ctx, KeyVisitTarget, "SomeOwner"))

		value, err := service.GetStringSetting(ctx, KeyVisitTarget)
		require.NoError(t, err)
		assert.Equal(t, "SomeOwner", value.MustGet())
	})

	t.Run("upsert overwrites existing value", func(t *testing.T) {
		require.NoError(t, service.UpsertStringSetting(ctx, KeyVisitTarget, "OtherOwner"))

		value, err := service.GetStringSetting(ctx, KeyVisitTarget)
		require.NoError(t, err)
		assert.Equal(t, "OtherOwner", value.MustGet())
	})

	t.Run("fails with unsupported key", func(t *testing.T) {
		err := service.UpsertStringSetting(ctx, "invalid/key", "x")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported setting key")

		_, err = service.GetStringSetting(ctx, "invalid/key")
		assert.Error(t, err)
	})
}
