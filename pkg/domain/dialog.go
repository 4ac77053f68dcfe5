package domain

import (
	"time"

	"github.com/google/uuid"
)

type Sender string

const (
	SenderSystem    Sender = "system"
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

func (s Sender) Valid() bool {
	switch s {
	case SenderSystem, SenderUser, SenderAssistant:
		return true
	}
	return false
}

type Dialog struct {
	ID        uuid.UUID
	ChannelID uuid.UUID
	UserID    uuid.UUID
	Title     string
	IsActive  bool
	CreatedAt time.Time
	Messages  []DialogMessage
}

// DialogMessage is immutable once stored; corrections are new messages.
type DialogMessage struct {
	ID        uuid.UUID
	DialogID  uuid.UUID
	Sender    Sender
	Entities  []Entity
	CreatedAt time.Time
}

func (m DialogMessage) Text() string {
	return RenderText(m.Entities)
}

func (m DialogMessage) SuggestedPosts() []PostDraft {
	return CollectPosts(m.Entities)
}

// Turn is the result of one SendMessage call.
type Turn struct {
	UserMessage      DialogMessage
	AssistantMessage DialogMessage
}
