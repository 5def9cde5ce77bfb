package chat

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-gateway/models"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// newChannelServer avvia un server websocket di prova che consegna al test
// la connessione lato server e l'header di handshake ricevuto.
func newChannelServer(t *testing.T) (*httptest.Server, chan *websocket.Conn, chan http.Header) {
	t.Helper()

	conns := make(chan *websocket.Conn, 1)
	headers := make(chan http.Header, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- conn
	}))
	t.Cleanup(srv.Close)
	return srv, conns, headers
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClientConnectSendsBearerToken(t *testing.T) {
	srv, conns, headers := newChannelServer(t)

	c := NewClient(wsURL(srv), "tok-123")
	require.NoError(t, c.Connect())
	defer c.Close()

	select {
	case h := <-headers:
		assert.Equal(t, "Bearer tok-123", h.Get("Authorization"))
	case <-time.After(2 * time.Second):
		t.Fatal("handshake non arrivato")
	}
	<-conns
	assert.True(t, c.Connected())
}

func TestClientDispatchesNamedEvents(t *testing.T) {
	srv, conns, _ := newChannelServer(t)

	c := NewClient(wsURL(srv), "tok")
	require.NoError(t, c.Connect())
	defer c.Close()

	got := make(chan models.OnlineUser, 1)
	c.On("userOnline", func(payload json.RawMessage) {
		var u models.OnlineUser
		require.NoError(t, json.Unmarshal(payload, &u))
		got <- u
	})

	server := <-conns
	require.NoError(t, server.WriteJSON(models.WSMessage{
		Type:    "userOnline",
		Payload: models.OnlineUser{UserID: "alice"},
	}))

	select {
	case u := <-got:
		assert.Equal(t, "alice", u.UserID)
	case <-time.After(2 * time.Second):
		t.Fatal("evento non consegnato")
	}
}

func TestClientIgnoresEventsWithoutHandler(t *testing.T) {
	srv, conns, _ := newChannelServer(t)

	c := NewClient(wsURL(srv), "tok")
	require.NoError(t, c.Connect())
	defer c.Close()

	got := make(chan struct{}, 1)
	c.On("userOnline", func(json.RawMessage) { got <- struct{}{} })

	server := <-conns
	require.NoError(t, server.WriteJSON(models.WSMessage{Type: "sconosciuto", Payload: "x"}))
	require.NoError(t, server.WriteJSON(models.WSMessage{Type: "userOnline", Payload: models.OnlineUser{UserID: "a"}}))

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("l'evento noto doveva comunque arrivare")
	}
}

func TestClientDisposerRemovesHandler(t *testing.T) {
	srv, conns, _ := newChannelServer(t)

	c := NewClient(wsURL(srv), "tok")
	require.NoError(t, c.Connect())
	defer c.Close()

	got := make(chan struct{}, 2)
	kept := make(chan struct{}, 2)
	dispose := c.On("ping", func(json.RawMessage) { got <- struct{}{} })
	c.On("ping", func(json.RawMessage) { kept <- struct{}{} })

	dispose()

	server := <-conns
	require.NoError(t, server.WriteJSON(models.WSMessage{Type: "ping"}))

	select {
	case <-kept:
	case <-time.After(2 * time.Second):
		t.Fatal("l'handler rimasto doveva essere invocato")
	}
	select {
	case <-got:
		t.Fatal("l'handler rimosso non doveva essere invocato")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestClientEmitWritesEnvelope(t *testing.T) {
	srv, conns, _ := newChannelServer(t)

	c := NewClient(wsURL(srv), "tok")
	require.NoError(t, c.Connect())
	defer c.Close()

	server := <-conns
	require.NoError(t, c.Emit("typing", models.TypingEvent{
		UserID:   "me",
		ChatType: models.ChatTypePrivate,
		ChatRoom: "user-42",
	}))

	var msg models.RawWSMessage
	require.NoError(t, server.ReadJSON(&msg))
	assert.Equal(t, "typing", msg.Type)

	var ev models.TypingEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &ev))
	assert.Equal(t, "user-42", ev.ChatRoom)
}

func TestClientEmitBeforeConnectFails(t *testing.T) {
	c := NewClient("ws://127.0.0.1:0", "tok")
	err := c.Emit("typing", nil)
	assert.Error(t, err)
}

func TestClientCloseStopsChannel(t *testing.T) {
	srv, conns, _ := newChannelServer(t)

	c := NewClient(wsURL(srv), "tok")
	require.NoError(t, c.Connect())
	<-conns

	c.Close()
	assert.False(t, c.Connected())
	assert.Error(t, c.Emit("typing", nil))
}
