package dispatcher

import (
	"context"

	"github.com/garyjia/asset-registry/internal/domain/event"
)

// Handler processes domain events
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo is a registered handler and the name it logs under.
// EventType is empty for wildcard handlers.
type HandlerInfo struct {
	Name      string
	EventType event.Type
	Handler   Handler
}
