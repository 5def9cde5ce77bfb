package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"chat-gateway/models"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Consenti tutte le origini in sviluppo
	},
}

// WebSocketHub mantiene i client dell'interfaccia locale e rispecchia
// verso di loro gli eventi del canale in tempo reale.
type WebSocketHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

func NewWebSocketHub() *WebSocketHub {
	return &WebSocketHub{clients: make(map[*websocket.Conn]bool)}
}

// Broadcast invia un messaggio a tutti i client WebSocket connessi.
func (h *WebSocketHub) Broadcast(messageType string, payload interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.clients) == 0 {
		return
	}

	wsMessage := models.WSMessage{
		Type:    messageType,
		Payload: payload,
	}

	for client := range h.clients {
		if err := client.WriteJSON(wsMessage); err != nil {
			client.Close()
			delete(h.clients, client)
		}
	}
}

// Handle gestisce le connessioni WebSocket dell'interfaccia.
func (h *WebSocketHub) Handle(c *gin.Context) {
	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.String(http.StatusInternalServerError, "Could not upgrade connection")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	// Cleanup quando la connessione viene chiusa
	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	// Loop di lettura messaggi
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
