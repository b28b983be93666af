package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatvault/internal/events"
	"chatvault/internal/models"
)

func TestEventEmitterService_Stream(t *testing.T) {
	emitter := NewEventEmitterService()
	t.Cleanup(emitter.StopStream)

	var got []string
	require.True(t, emitter.StartStream(func(_ context.Context, evt events.StoreEvent) {
		got = append(got, evt.Name)
	}))
	assert.False(t, emitter.StartStream(func(context.Context, events.StoreEvent) {}), "second subscriber is refused")

	events.Emit(context.Background(), events.New(events.ChatCreated))
	emitter.StopStream()
	events.Emit(context.Background(), events.New(events.ChatDeleted))

	assert.Equal(t, []string{events.ChatCreated}, got)
}

func TestEventEmitterService_NilSink(t *testing.T) {
	emitter := NewEventEmitterService()
	assert.False(t, emitter.StartStream(nil))
	emitter.StopStream()
}

func TestEventEmitterService_StreamToggledDuringWrites(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	svc := NewConversationService(db)
	chat := mustChat(t, db, CreateChatInput{})
	set := mustSet(t, svc, chat.ID, models.SetTypeAI, nil)

	emitter := NewEventEmitterService()
	t.Cleanup(emitter.StopStream)

	var delivered atomic.Int64
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			emitter.StartStream(func(context.Context, events.StoreEvent) { delivered.Add(1) })
			emitter.StopStream()
		}
	}()

	for i := 0; i < 50; i++ {
		_, err := svc.AppendMessage(ctx, set, AppendMessageInput{Model: "openai::gpt-4o", Text: "x"})
		require.NoError(t, err)
	}
	wg.Wait()

	assert.LessOrEqual(t, delivered.Load(), int64(50))
	assert.Equal(t, int64(50), countRows(t, db, "messages", "message_set_id = ?", set))
}
