package dispatcher

import (
	"context"
	"fmt"

	"github.com/workdeck/spending/internal/domain/event"
)

// Handler reacts to a store change
type Handler func(ctx context.Context, evt *event.Event) error

// AllEvents subscribes a handler to every event type
const AllEvents event.Type = "*"

type subscription struct {
	id        int64
	eventType event.Type
	handler   Handler
}

func (s subscription) name() string {
	return fmt.Sprintf("handler-%d", s.id)
}
