package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EntityKind is the discriminator stored in the "$type" field of a persisted entity.
type EntityKind string

const (
	EntityKindText           EntityKind = "text"
	EntityKindError          EntityKind = "error"
	EntityKindSuggestedPosts EntityKind = "suggestedPosts"
)

// EntitiesVersion is the version written into every encoded envelope.
// Rows without an envelope (a bare array) are treated as version 0.
const EntitiesVersion = 1

// Entity is one typed unit of message content.
type Entity interface {
	Kind() EntityKind
}

type TextEntity struct {
	Body string
}

func (TextEntity) Kind() EntityKind { return EntityKindText }

type ErrorEntity struct {
	Message string
}

func (ErrorEntity) Kind() EntityKind { return EntityKindError }

type SuggestedPostsEntity struct {
	Posts []PostDraft
}

func (SuggestedPostsEntity) Kind() EntityKind { return EntityKindSuggestedPosts }

type entityEnvelope struct {
	Version  int               `json:"version"`
	Entities []json.RawMessage `json:"entities"`
}

type entityRecord struct {
	Type  EntityKind  `json:"$type"`
	Text  *string     `json:"text,omitempty"`
	Error *string     `json:"error,omitempty"`
	Posts []PostDraft `json:"posts,omitempty"`
}

// EncodeEntities serializes entities into the versioned envelope stored in dialog_messages.content.
func EncodeEntities(entities []Entity) (string, error) {
	env := entityEnvelope{
		Version:  EntitiesVersion,
		Entities: make([]json.RawMessage, 0, len(entities)),
	}

	for i, e := range entities {
		rec, err := toRecord(e)
		if err != nil {
			return "", fmt.Errorf("encoding entity %d: %w", i, err)
		}
		raw, err := json.Marshal(rec)
		if err != nil {
			return "", fmt.Errorf("marshaling entity %d: %w", i, err)
		}
		env.Entities = append(env.Entities, raw)
	}

	b, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("marshaling entities: %w", err)
	}
	return string(b), nil
}

func toRecord(e Entity) (entityRecord, error) {
	switch v := e.(type) {
	case TextEntity:
		return entityRecord{Type: EntityKindText, Text: &v.Body}, nil
	case ErrorEntity:
		return entityRecord{Type: EntityKindError, Error: &v.Message}, nil
	case SuggestedPostsEntity:
		posts := v.Posts
		if posts == nil {
			posts = []PostDraft{}
		}
		return entityRecord{Type: EntityKindSuggestedPosts, Posts: posts}, nil
	case nil:
		return entityRecord{}, fmt.Errorf("nil entity")
	default:
		return entityRecord{}, fmt.Errorf("unsupported entity type %T", e)
	}
}

// DecodeEntities parses a persisted payload. It never fails: anything it cannot
// understand comes back as a single ErrorEntity describing the problem.
func DecodeEntities(payload string) []Entity {
	entities, err := decodeEntities(payload)
	if err != nil {
		return []Entity{ErrorEntity{Message: "unable to read message content: " + err.Error()}}
	}
	return entities
}

func decodeEntities(payload string) ([]Entity, error) {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return nil, fmt.Errorf("empty payload")
	}

	var raws []json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal([]byte(trimmed), &raws); err != nil {
			return nil, fmt.Errorf("parsing entity list: %w", err)
		}
	case '{':
		var env entityEnvelope
		if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
			return nil, fmt.Errorf("parsing entity envelope: %w", err)
		}
		if env.Version != EntitiesVersion {
			return nil, fmt.Errorf("unsupported entities version %d", env.Version)
		}
		if env.Entities == nil {
			return nil, fmt.Errorf("entities field is missing")
		}
		raws = env.Entities
	default:
		return nil, fmt.Errorf("payload is not a JSON object or array")
	}

	entities := make([]Entity, 0, len(raws))
	for i, raw := range raws {
		e, err := fromRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("entity %d: %w", i, err)
		}
		entities = append(entities, e)
	}
	return entities, nil
}

func fromRecord(raw json.RawMessage) (Entity, error) {
	var rec entityRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("parsing entity: %w", err)
	}

	switch rec.Type {
	case EntityKindText:
		if rec.Text == nil {
			return nil, fmt.Errorf("text entity without text")
		}
		return TextEntity{Body: *rec.Text}, nil
	case EntityKindError:
		if rec.Error == nil {
			return nil, fmt.Errorf("error entity without error")
		}
		return ErrorEntity{Message: *rec.Error}, nil
	case EntityKindSuggestedPosts:
		posts := rec.Posts
		if posts == nil {
			posts = []PostDraft{}
		}
		return SuggestedPostsEntity{Posts: posts}, nil
	case "":
		return nil, fmt.Errorf("missing $type")
	default:
		return nil, fmt.Errorf("unknown entity type %q", rec.Type)
	}
}

// RenderText joins the bodies of text entities with a single space. Other kinds are not inlined.
func RenderText(entities []Entity) string {
	parts := make([]string, 0, len(entities))
	for _, e := range entities {
		if t, ok := e.(TextEntity); ok {
			parts = append(parts, t.Body)
		}
	}
	return strings.Join(parts, " ")
}

// CollectPosts flattens every SuggestedPostsEntity in order.
func CollectPosts(entities []Entity) []PostDraft {
	var posts []PostDraft
	for _, e := range entities {
		if sp, ok := e.(SuggestedPostsEntity); ok {
			posts = append(posts, sp.Posts...)
		}
	}
	return posts
}
