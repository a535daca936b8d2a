package service

import (
	"io"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

type capturedEmit struct {
	scope   string
	target  uint
	skip    uint
	event   string
	payload interface{}
}

// publisherStub records emitted events for assertions.
type publisherStub struct {
	emits []capturedEmit
}

func (p *publisherStub) EmitToUser(userID uint, event string, payload interface{}) {
	p.emits = append(p.emits, capturedEmit{scope: "user", target: userID, event: event, payload: payload})
}

func (p *publisherStub) EmitToConversation(conversationID uint, event string, payload interface{}, skipUserID uint) {
	p.emits = append(p.emits, capturedEmit{scope: "conversation", target: conversationID, skip: skipUserID, event: event, payload: payload})
}

func (p *publisherStub) Broadcast(event string, payload interface{}) {
	p.emits = append(p.emits, capturedEmit{scope: "broadcast", event: event, payload: payload})
}

func (p *publisherStub) eventsNamed(event string) []capturedEmit {
	matched := make([]capturedEmit, 0)
	for _, emit := range p.emits {
		if emit.event == event {
			matched = append(matched, emit)
		}
	}
	return matched
}
