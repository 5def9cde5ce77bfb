package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-gateway/api"
	"chat-gateway/models"
	"chat-gateway/timeline"
)

// fakeGateway registra le operazioni invocate dal livello HTTP.
type fakeGateway struct {
	chats    []*models.Chat
	messages map[string][]models.Message
	online   []models.OnlineUser

	opened  []string
	closed  int
	sent    []string
	typed   []string
	sendErr error
}

func (f *fakeGateway) Chats() []*models.Chat { return f.chats }

func (f *fakeGateway) ChatMessages(chatID string) ([]models.Message, bool) {
	msgs, ok := f.messages[chatID]
	return msgs, ok
}

func (f *fakeGateway) Timeline(chatID string) ([]timeline.Section, bool) {
	msgs, ok := f.messages[chatID]
	if !ok {
		return nil, false
	}
	return timeline.Build(msgs, time.UTC), true
}

func (f *fakeGateway) Presence() []models.OnlineUser { return f.online }

func (f *fakeGateway) TypingIn(string) []models.OnlineUser { return nil }

func (f *fakeGateway) OpenRoom(_ context.Context, chatType, roomID string) error {
	f.opened = append(f.opened, chatType+":"+roomID)
	return nil
}

func (f *fakeGateway) CloseRoom() { f.closed++ }

func (f *fakeGateway) Send(_ context.Context, _, _, content string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, content)
	return nil
}

func (f *fakeGateway) Typing(_, _, text string) { f.typed = append(f.typed, text) }

func (f *fakeGateway) EditMessage(context.Context, string, string) error { return nil }

func (f *fakeGateway) DeleteMessage(context.Context, string) error { return nil }

func newTestRouter(gw Gateway) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	SetupAPIRoutes(router, gw, api.NewClient("http://127.0.0.1:0"), NewWebSocketHub())
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetChatsSortedByLastMessage(t *testing.T) {
	base := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	gw := &fakeGateway{
		chats: []*models.Chat{
			{ID: "vecchia", LastMessage: models.Message{Timestamp: base}},
			{ID: "muta"},
			{ID: "recente", LastMessage: models.Message{Timestamp: base.Add(time.Hour)}},
		},
	}

	w := doJSON(t, newTestRouter(gw), http.MethodGet, "/api/chats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got []models.Chat
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 3)
	assert.Equal(t, "recente", got[0].ID)
	assert.Equal(t, "vecchia", got[1].ID)
	// le chat senza ultimo messaggio vanno in fondo
	assert.Equal(t, "muta", got[2].ID)
}

func TestGetChatMessagesNotFound(t *testing.T) {
	gw := &fakeGateway{messages: map[string][]models.Message{}}

	w := doJSON(t, newTestRouter(gw), http.MethodGet, "/api/chats/ghost/messages", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetTimelineReturnsSections(t *testing.T) {
	gw := &fakeGateway{
		messages: map[string][]models.Message{
			"user-42": {
				{ID: "1", Content: "ciao", Timestamp: time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)},
			},
		},
	}

	w := doJSON(t, newTestRouter(gw), http.MethodGet, "/api/chats/user-42/timeline", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		Sections []timeline.Section `json:"sections"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Sections, 1)
	require.Len(t, got.Sections[0].Entries, 1)
	assert.Equal(t, "ciao", got.Sections[0].Entries[0].Content)
}

func TestOpenAndCloseRoom(t *testing.T) {
	gw := &fakeGateway{}
	router := newTestRouter(gw)

	w := doJSON(t, router, http.MethodPost, "/api/rooms/open", map[string]string{
		"chatType": models.ChatTypePrivate,
		"chatRoom": "user-42",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"private:user-42"}, gw.opened)

	w = doJSON(t, router, http.MethodPost, "/api/rooms/close", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, gw.closed)
}

func TestOpenRoomValidatesBody(t *testing.T) {
	gw := &fakeGateway{}

	w := doJSON(t, newTestRouter(gw), http.MethodPost, "/api/rooms/open", map[string]string{
		"chatType": models.ChatTypePrivate,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, gw.opened)
}

func TestSendMessage(t *testing.T) {
	gw := &fakeGateway{}

	w := doJSON(t, newTestRouter(gw), http.MethodPost, "/api/messages", map[string]string{
		"content":  "ciao",
		"chatType": models.ChatTypePrivate,
		"chatRoom": "user-42",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"ciao"}, gw.sent)
}

func TestSendMessageFailureIsBadGateway(t *testing.T) {
	gw := &fakeGateway{sendErr: assert.AnError}

	w := doJSON(t, newTestRouter(gw), http.MethodPost, "/api/messages", map[string]string{
		"content":  "ciao",
		"chatType": models.ChatTypePrivate,
		"chatRoom": "user-42",
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestTypingForwardsText(t *testing.T) {
	gw := &fakeGateway{}

	w := doJSON(t, newTestRouter(gw), http.MethodPost, "/api/typing", map[string]string{
		"chatType": models.ChatTypePrivate,
		"chatRoom": "user-42",
		"text":     "sto scriv",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"sto scriv"}, gw.typed)
}

func TestGetOnline(t *testing.T) {
	gw := &fakeGateway{online: []models.OnlineUser{{UserID: "alice"}}}

	w := doJSON(t, newTestRouter(gw), http.MethodGet, "/api/online", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got []models.OnlineUser
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "alice", got[0].UserID)
}

func TestCORSPreflight(t *testing.T) {
	gw := &fakeGateway{}

	w := doJSON(t, newTestRouter(gw), http.MethodOptions, "/api/chats", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
