package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomEmitterReceivesSession(t *testing.T) {
	t.Cleanup(func() { SetCustomEmitter(nil) })

	var got []StoreEvent
	SetCustomEmitter(func(_ context.Context, evt StoreEvent) {
		got = append(got, evt)
	})

	ctx := WithSession(context.Background(), "window-1")
	Emit(ctx, New(ChatCreated).WithChat("c1").WithProject("default"))

	require.Len(t, got, 1)
	assert.Equal(t, ChatCreated, got[0].Name)
	assert.Equal(t, "c1", got[0].ChatID)
	assert.Equal(t, "default", got[0].ProjectID)
	assert.Equal(t, "window-1", got[0].SessionKey)
	assert.NotEmpty(t, got[0].ID)
}

func TestWithMetaDoesNotShareMaps(t *testing.T) {
	base := New(StreamFinished).WithMeta("state", "idle")
	derived := base.WithMeta("error", "boom")

	assert.Len(t, base.Metadata, 1)
	assert.Len(t, derived.Metadata, 2)
}

func TestWithSessionIgnoresBlank(t *testing.T) {
	ctx := WithSession(context.Background(), "  ")
	assert.Empty(t, SessionFromContext(ctx))
}
