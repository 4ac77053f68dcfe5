package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nungthesnail/telegram-ai/pkg/api/middleware"
	"github.com/nungthesnail/telegram-ai/pkg/domain"
)

const testSecret = "test-secret"

type fakeDialogService struct {
	dialogs  map[uuid.UUID]domain.Dialog
	sendErr  error
	lastText string
	started  []string
}

func (f *fakeDialogService) StartDialog(_ context.Context, userID, channelID uuid.UUID, title, _ string) (*domain.Dialog, error) {
	f.started = append(f.started, title)
	d := domain.Dialog{ID: uuid.New(), ChannelID: channelID, UserID: userID, Title: title, IsActive: true}
	return &d, nil
}

func (f *fakeDialogService) GetDialog(_ context.Context, userID, dialogID uuid.UUID) (*domain.Dialog, error) {
	d, ok := f.dialogs[dialogID]
	if !ok || d.UserID != userID {
		return nil, domain.ErrDialogNotFound
	}
	return &d, nil
}

func (f *fakeDialogService) ListDialogs(_ context.Context, userID uuid.UUID) ([]domain.Dialog, error) {
	var out []domain.Dialog
	for _, d := range f.dialogs {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDialogService) ListChannelDialogs(context.Context, uuid.UUID, uuid.UUID) ([]domain.Dialog, error) {
	return nil, errors.New("database is down")
}

func (f *fakeDialogService) DeleteDialog(_ context.Context, userID, dialogID uuid.UUID) error {
	if _, err := f.GetDialog(context.Background(), userID, dialogID); err != nil {
		return err
	}
	delete(f.dialogs, dialogID)
	return nil
}

func (f *fakeDialogService) SendMessage(_ context.Context, _, dialogID uuid.UUID, _ int64, text string) (*domain.Turn, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.lastText = text
	now := time.Now().UTC()
	return &domain.Turn{
		UserMessage: domain.DialogMessage{
			ID: uuid.New(), DialogID: dialogID, Sender: domain.SenderUser,
			Entities: []domain.Entity{domain.TextEntity{Body: text}}, CreatedAt: now,
		},
		AssistantMessage: domain.DialogMessage{
			ID: uuid.New(), DialogID: dialogID, Sender: domain.SenderAssistant,
			Entities: []domain.Entity{
				domain.TextEntity{Body: "Done, see the **draft**"},
				domain.SuggestedPostsEntity{Posts: []domain.PostDraft{{ID: uuid.New(), Content: "Buy now", Status: domain.PostStatusSuggested}}},
			},
			CreatedAt: now.Add(time.Millisecond),
		},
	}, nil
}

type fakeModels struct{}

func (fakeModels) ListModels(context.Context) ([]domain.ModelInfo, error) {
	return []domain.ModelInfo{{ID: 1, Name: "GPT-4o mini", ProviderModelID: "gpt-4o-mini", RequestTokenCost: 0.15, ResponseTokenCost: 0.6}}, nil
}

type fakeSubscriptions struct{}

func (fakeSubscriptions) GetByUserID(_ context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	return &domain.Subscription{UserID: userID, Balance: 12.5}, nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func token(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

type testServer struct {
	router  *gin.Engine
	service *fakeDialogService
	userID  uuid.UUID
	dialog  domain.Dialog
	auth    string
}

func newTestServer(t *testing.T, burst int) *testServer {
	t.Helper()
	userID := uuid.New()
	dialog := domain.Dialog{ID: uuid.New(), ChannelID: uuid.New(), UserID: userID, Title: "Launch", IsActive: true}
	svc := &fakeDialogService{dialogs: map[uuid.UUID]domain.Dialog{dialog.ID: dialog}}
	router := NewRouter(RouterConfig{JWTSecret: testSecret, RateLimitPerSecond: 0.001, RateLimitBurst: burst}, svc, fakeModels{}, fakeSubscriptions{})
	return &testServer{
		router:  router,
		service: svc,
		userID:  userID,
		dialog:  dialog,
		auth:    token(t, jwt.MapClaims{"user_id": userID.String(), "exp": time.Now().Add(time.Hour).Unix()}),
	}
}

func (s *testServer) do(method, path, auth string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, 5)

	tests := []struct {
		name string
		auth string
	}{
		{"missing header", ""},
		{"garbage", "Bearer nope"},
		{"wrong secret", func() string {
			signed, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": s.userID.String()}).SignedString([]byte("other"))
			return "Bearer " + signed
		}()},
		{"expired", token(t, jwt.MapClaims{"user_id": s.userID.String(), "exp": time.Now().Add(-time.Hour).Unix()})},
		{"non uuid user", token(t, jwt.MapClaims{"user_id": 42})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodGet, "/api/dialogs", tt.auth, nil)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}

	rec := s.do(http.MethodGet, "/api/dialogs", token(t, jwt.MapClaims{"sub": s.userID.String()}), nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSendMessage(t *testing.T) {
	s := newTestServer(t, 5)

	rec := s.do(http.MethodPost, "/api/dialogs/"+s.dialog.ID.String()+"/messages", s.auth,
		map[string]any{"modelId": 1, "message": "Write a promo post"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	var body struct {
		UserMessage struct {
			Sender string `json:"sender"`
			Text   string `json:"text"`
		} `json:"userMessage"`
		AssistantMessage struct {
			Text     string `json:"text"`
			HTML     string `json:"html"`
			Entities []struct {
				Type string `json:"$type"`
			} `json:"entities"`
		} `json:"assistantMessage"`
		SuggestedPosts []struct {
			Content string `json:"content"`
			Status  string `json:"status"`
		} `json:"suggestedPosts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	require.Equal(t, "user", body.UserMessage.Sender)
	require.Equal(t, "Write a promo post", body.UserMessage.Text)
	require.Equal(t, "Done, see the **draft**", body.AssistantMessage.Text)
	require.Contains(t, body.AssistantMessage.HTML, "<strong>draft</strong>")
	require.Len(t, body.AssistantMessage.Entities, 2)
	require.Equal(t, "suggestedPosts", body.AssistantMessage.Entities[1].Type)
	require.Len(t, body.SuggestedPosts, 1)
	require.Equal(t, "Buy now", body.SuggestedPosts[0].Content)
	require.Equal(t, "suggested", body.SuggestedPosts[0].Status)
}

func TestSendMessageErrors(t *testing.T) {
	tests := []struct {
		name     string
		path     func(s *testServer) string
		body     any
		sendErr  error
		wantCode int
	}{
		{
			name:     "bad dialog id",
			path:     func(*testServer) string { return "/api/dialogs/not-a-uuid/messages" },
			body:     map[string]any{"modelId": 1, "message": "hi"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "missing model",
			body:     map[string]any{"message": "hi"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "empty message",
			body:     map[string]any{"modelId": 1, "message": ""},
			sendErr:  domain.ErrEmptyMessage,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown model",
			body:     map[string]any{"modelId": 9, "message": "hi"},
			sendErr:  errors.Join(errors.New("resolving model"), domain.ErrModelNotFound),
			wantCode: http.StatusNotFound,
		},
		{
			name:     "provider failure",
			body:     map[string]any{"modelId": 1, "message": "hi"},
			sendErr:  errors.New("creating chat completion: 502"),
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, 5)
			s.service.sendErr = tt.sendErr
			path := "/api/dialogs/" + s.dialog.ID.String() + "/messages"
			if tt.path != nil {
				path = tt.path(s)
			}

			rec := s.do(http.MethodPost, path, s.auth, tt.body)
			require.Equal(t, tt.wantCode, rec.Code)

			var errBody map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errBody))
			require.NotEmpty(t, errBody["error"])
			require.NotContains(t, errBody["error"], "502")
		})
	}
}

func TestSendMessageRateLimited(t *testing.T) {
	s := newTestServer(t, 2)
	path := "/api/dialogs/" + s.dialog.ID.String() + "/messages"
	body := map[string]any{"modelId": 1, "message": "hi"}

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, path, s.auth, body).Code)
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, path, s.auth, body).Code)
	require.Equal(t, http.StatusTooManyRequests, s.do(http.MethodPost, path, s.auth, body).Code)

	// Other endpoints are not throttled.
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/dialogs", s.auth, nil).Code)

	other := token(t, jwt.MapClaims{"user_id": uuid.NewString()})
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, path, other, body).Code)
}

func TestDialogRoutes(t *testing.T) {
	s := newTestServer(t, 5)
	dialogPath := "/api/dialogs/" + s.dialog.ID.String()

	rec := s.do(http.MethodPost, "/api/dialogs", s.auth, map[string]any{"channelId": s.dialog.ChannelID, "title": "Spring sale"})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, []string{"Spring sale"}, s.service.started)

	rec = s.do(http.MethodPost, "/api/dialogs", s.auth, map[string]any{"title": "no channel"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, dialogPath, s.auth, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"title":"Launch"`)

	other := token(t, jwt.MapClaims{"user_id": uuid.NewString()})
	require.Equal(t, http.StatusNotFound, s.do(http.MethodGet, dialogPath, other, nil).Code)

	rec = s.do(http.MethodGet, "/api/channels/"+s.dialog.ChannelID.String()+"/dialogs", s.auth, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())

	require.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, dialogPath, s.auth, nil).Code)
	require.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, dialogPath, s.auth, nil).Code)
}

func TestBillingRoutes(t *testing.T) {
	s := newTestServer(t, 5)

	rec := s.do(http.MethodGet, "/api/llm-models", s.auth, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[{"id":1,"name":"GPT-4o mini","providerModelId":"gpt-4o-mini","requestTokenCost":0.15,"responseTokenCost":0.6}]`, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/subscription", s.auth, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"balance":12.5}`, rec.Body.String())
}
