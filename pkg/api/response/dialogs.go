package response

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/nungthesnail/telegram-ai/pkg/domain"
	"github.com/nungthesnail/telegram-ai/pkg/render"
)

type Entity struct {
	Type  domain.EntityKind  `json:"$type"`
	Text  string             `json:"text,omitempty"`
	Error string             `json:"error,omitempty"`
	Posts []domain.PostDraft `json:"posts,omitempty"`
}

type Message struct {
	ID        uuid.UUID     `json:"id"`
	DialogID  uuid.UUID     `json:"dialogId"`
	Sender    domain.Sender `json:"sender"`
	Text      string        `json:"text"`
	HTML      string        `json:"html"`
	Entities  []Entity      `json:"entities"`
	CreatedAt time.Time     `json:"createdAt"`
}

type Dialog struct {
	ID        uuid.UUID `json:"id"`
	ChannelID uuid.UUID `json:"channelId"`
	Title     string    `json:"title"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	Messages  []Message `json:"messages,omitempty"`
}

type Turn struct {
	UserMessage      Message            `json:"userMessage"`
	AssistantMessage Message            `json:"assistantMessage"`
	SuggestedPosts   []domain.PostDraft `json:"suggestedPosts"`
}

type Model struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	ProviderModelID   string  `json:"providerModelId"`
	RequestTokenCost  float64 `json:"requestTokenCost"`
	ResponseTokenCost float64 `json:"responseTokenCost"`
}

type Subscription struct {
	Balance float64 `json:"balance"`
}

func NewMessage(m domain.DialogMessage) Message {
	text := m.Text()
	return Message{
		ID:       m.ID,
		DialogID: m.DialogID,
		Sender:   m.Sender,
		Text:     text,
		HTML:     render.HTML(text),
		Entities: lo.Map(m.Entities, func(e domain.Entity, _ int) Entity {
			return newEntity(e)
		}),
		CreatedAt: m.CreatedAt,
	}
}

func newEntity(e domain.Entity) Entity {
	out := Entity{Type: e.Kind()}
	switch v := e.(type) {
	case domain.TextEntity:
		out.Text = v.Body
	case domain.ErrorEntity:
		out.Error = v.Message
	case domain.SuggestedPostsEntity:
		out.Posts = v.Posts
	}
	return out
}

func NewDialog(d domain.Dialog) Dialog {
	return Dialog{
		ID:        d.ID,
		ChannelID: d.ChannelID,
		Title:     d.Title,
		IsActive:  d.IsActive,
		CreatedAt: d.CreatedAt,
		Messages:  lo.Map(d.Messages, func(m domain.DialogMessage, _ int) Message { return NewMessage(m) }),
	}
}

func NewDialogs(dialogs []domain.Dialog) []Dialog {
	return lo.Map(dialogs, func(d domain.Dialog, _ int) Dialog { return NewDialog(d) })
}

func NewTurn(t domain.Turn) Turn {
	posts := t.AssistantMessage.SuggestedPosts()
	if posts == nil {
		posts = []domain.PostDraft{}
	}
	return Turn{
		UserMessage:      NewMessage(t.UserMessage),
		AssistantMessage: NewMessage(t.AssistantMessage),
		SuggestedPosts:   posts,
	}
}

func NewModels(models []domain.ModelInfo) []Model {
	return lo.Map(models, func(m domain.ModelInfo, _ int) Model {
		return Model{
			ID:                m.ID,
			Name:              m.Name,
			ProviderModelID:   m.ProviderModelID,
			RequestTokenCost:  m.RequestTokenCost,
			ResponseTokenCost: m.ResponseTokenCost,
		}
	})
}
