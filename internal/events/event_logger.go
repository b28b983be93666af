package events

import (
	"context"

	"chatvault/internal/logging"
)

func logStoreEvent(_ context.Context, event StoreEvent) {
	logger := logging.For("events")
	logger.Debug().
		Str("event", event.Name).
		Str("project", event.ProjectID).
		Str("chat", event.ChatID).
		Str("message", event.MessageID).
		Str("session", event.SessionKey).
		Interface("metadata", event.Metadata).
		Msg("store event")
}
