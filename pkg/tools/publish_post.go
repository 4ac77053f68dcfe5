package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/nungthesnail/telegram-ai/pkg/domain"
)

const PublishPostName = "publish_post"

var scheduleLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

type publishPostArgs struct {
	Posts *[]publishPostItem `json:"posts"`
}

type publishPostItem struct {
	Title          *string `json:"Title"`
	Content        *string `json:"Content"`
	ScheduledAtUtc *string `json:"ScheduledAtUtc"`
}

type publishedPost struct {
	PostID         uuid.UUID  `json:"postId"`
	Title          *string    `json:"title"`
	Status         string     `json:"status"`
	ScheduledAtUtc *time.Time `json:"scheduledAtUtc"`
}

type publishPostResult struct {
	Success bool            `json:"success"`
	Posts   []publishedPost `json:"posts"`
}

type publishPost struct {
	newID func() uuid.UUID
}

// NewPublishPost returns the tool that turns model-proposed posts into drafts.
func NewPublishPost() *publishPost {
	return &publishPost{newID: uuid.New}
}

func (p *publishPost) Name() string {
	return PublishPostName
}

func (p *publishPost) Description() string {
	return "Suggest one or more posts for the channel. The posts are shown to the channel owner as drafts."
}

func (p *publishPost) Parameters() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"posts": {
				Type:        jsonschema.Array,
				Description: "Posts to suggest",
				Items: &jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"Title": {
							Type:        jsonschema.String,
							Description: "Optional post title",
						},
						"Content": {
							Type:        jsonschema.String,
							Description: "Post text",
						},
						"ScheduledAtUtc": {
							Type:        jsonschema.String,
							Description: "Optional publication time, ISO-8601 in UTC",
						},
					},
					Required: []string{"Content"},
				},
			},
		},
		Required: []string{"posts"},
	}
}

// Call validates every entry before producing anything, so a bad entry yields no drafts at all.
func (p *publishPost) Call(ctx context.Context, dialogID uuid.UUID, args json.RawMessage) (*domain.ToolResult, error) {
	var parsed publishPostArgs
	if err := json.Unmarshal(args, &parsed); err != nil {
		return nil, fmt.Errorf("parsing arguments: %w", err)
	}
	if parsed.Posts == nil {
		return nil, errors.New("posts array not found")
	}

	drafts := make([]domain.PostDraft, 0, len(*parsed.Posts))
	for i, item := range *parsed.Posts {
		draft, err := p.toDraft(item)
		if err != nil {
			return nil, fmt.Errorf("post %d: %w", i, err)
		}
		drafts = append(drafts, draft)
	}

	slog.DebugContext(ctx, "Posts suggested", "dialogID", dialogID, "count", len(drafts))

	return &domain.ToolResult{
		Payload: publishPostResult{
			Success: true,
			Posts: lo.Map(drafts, func(d domain.PostDraft, _ int) publishedPost {
				var title *string
				if d.Title != "" {
					title = lo.ToPtr(d.Title)
				}
				return publishedPost{
					PostID:         d.ID,
					Title:          title,
					Status:         string(d.Status),
					ScheduledAtUtc: d.ScheduledAt,
				}
			}),
		},
		Drafts: drafts,
	}, nil
}

func (p *publishPost) toDraft(item publishPostItem) (domain.PostDraft, error) {
	if item.Content == nil {
		return domain.PostDraft{}, errors.New("Content is required")
	}

	draft := domain.PostDraft{
		ID:      p.newID(),
		Title:   lo.FromPtr(item.Title),
		Content: *item.Content,
		Status:  domain.PostStatusSuggested,
	}

	if item.ScheduledAtUtc != nil {
		at, err := parseSchedule(*item.ScheduledAtUtc)
		if err != nil {
			return domain.PostDraft{}, err
		}
		draft.ScheduledAt = &at
	}

	return draft, nil
}

func parseSchedule(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range scheduleLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid ScheduledAtUtc %q: expected ISO-8601 timestamp", raw)
}
