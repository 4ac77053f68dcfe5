package domain

import (
	"time"

	"github.com/google/uuid"
)

type PostStatus string

// PostStatusSuggested is the only status this service ever assigns. Promotion to a
// scheduled or published post happens elsewhere.
const PostStatusSuggested PostStatus = "suggested"

// PostDraft is a post proposed by the assistant. ID is a placeholder the client can
// correlate with; it is not a stored post id.
type PostDraft struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title,omitempty"`
	Content     string     `json:"content"`
	ScheduledAt *time.Time `json:"scheduledAtUtc,omitempty"`
	Status      PostStatus `json:"status"`
}
