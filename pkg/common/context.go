package common

import (
	"context"
)

// ContextKey represents a context key type
type ContextKey string

// Context keys
const (
	ContextKeyIdentity     ContextKey = "identity"
	ContextKeyDisplayName  ContextKey = "display_name"
	ContextKeyConnectionID ContextKey = "connection_id"
)

// WithIdentity adds the authenticated identity and its display name to context
func WithIdentity(ctx context.Context, identity, displayName string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyIdentity, identity)
	return context.WithValue(ctx, ContextKeyDisplayName, displayName)
}

// GetIdentity extracts the authenticated identity from context
func GetIdentity(ctx context.Context) (string, bool) {
	identity, ok := ctx.Value(ContextKeyIdentity).(string)
	return identity, ok && identity != ""
}

// GetDisplayName extracts the display name from context
func GetDisplayName(ctx context.Context) string {
	name, _ := ctx.Value(ContextKeyDisplayName).(string)
	return name
}

// WithConnectionID adds a websocket connection ID to context
func WithConnectionID(ctx context.Context, connectionID string) context.Context {
	return context.WithValue(ctx, ContextKeyConnectionID, connectionID)
}

// GetConnectionID extracts the websocket connection ID from context
func GetConnectionID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ContextKeyConnectionID).(string)
	return id, ok
}
