package app

import (
	"context"
	"fmt"
	"log"
)

// NewMessageEvent is raised after a message is durably stored.
type NewMessageEvent struct {
	SessionID uint
	MessageID uint
	SenderID  uint
}

type MessageHandler interface {
	Name() string
	OnNewMessage(ctx context.Context, event NewMessageEvent) error
}

// MessageEvents runs its handlers in registration order. A failing or
// panicking handler is logged and does not stop the ones after it.
type MessageEvents struct {
	handlers []MessageHandler
}

func NewMessageEvents(handlers ...MessageHandler) *MessageEvents {
	return &MessageEvents{handlers: handlers}
}

func (e *MessageEvents) Register(handler MessageHandler) {
	e.handlers = append(e.handlers, handler)
}

func (e *MessageEvents) Dispatch(ctx context.Context, event NewMessageEvent) {
	if e == nil {
		return
	}
	for _, h := range e.handlers {
		if err := runHandler(ctx, h, event); err != nil {
			log.Printf("message handler %s failed for session %d message %d: %v",
				h.Name(), event.SessionID, event.MessageID, err)
		}
	}
}

func runHandler(ctx context.Context, h MessageHandler, event NewMessageEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.OnNewMessage(ctx, event)
}
