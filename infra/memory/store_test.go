package memory_test

import (
	"context"
	"testing"
	"time"

	"room-broker/domain"
	"room-broker/infra/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := memory.NewRoomStore()
	room := domain.Room{ID: "1a2b3c4d", Members: []string{"a"}, CreatedAt: time.Now().UTC()}

	_, err := store.Get(ctx, room.ID)
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)

	require.NoError(t, store.Create(ctx, room))
	assert.ErrorIs(t, store.Create(ctx, room), domain.ErrConflict)

	got, err := store.Get(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, room, got)

	// Mutating the returned copy must not leak into the store.
	got.Members[0] = "mutated"
	again, err := store.Get(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, again.Members)

	require.NoError(t, store.Touch(ctx, room.ID))
	require.NoError(t, store.Put(ctx, room.WithMember("b")))
	got, err = store.Get(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got.Members)

	require.NoError(t, store.Delete(ctx, room.ID))
	require.NoError(t, store.Delete(ctx, room.ID))
	assert.Equal(t, 0, store.Len())
}
