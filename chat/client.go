package chat

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"chat-gateway/models"
)

// Parametri di riconnessione: tentativi limitati con attesa fissa.
// Gli eventi persi durante la riconnessione non vengono rigiocati,
// lo stato si riallinea al prossimo snapshot inviato dal server.
const (
	dialTimeout       = 10 * time.Second
	reconnectAttempts = 5
	reconnectDelay    = 1 * time.Second
	writeTimeout      = 10 * time.Second
)

// Handler riceve il payload grezzo di un evento del canale.
type Handler func(payload json.RawMessage)

// Client mantiene il canale websocket verso il server di chat.
// Vive per tutta la sessione autenticata: viene creato al login e
// chiuso al logout.
type Client struct {
	url   string
	token string

	mu       sync.RWMutex
	conn     *websocket.Conn
	handlers map[string]map[int]Handler
	nextID   int
	closed   bool

	// Serializza le scritture sul websocket (gorilla non le consente concorrenti)
	writeMu sync.Mutex
}

// NewClient prepara il client senza aprire la connessione.
func NewClient(url, token string) *Client {
	return &Client{
		url:      url,
		token:    token,
		handlers: make(map[string]map[int]Handler),
	}
}

// Connect apre la connessione e avvia il loop di lettura.
func (c *Client) Connect() error {
	conn, err := c.dial()
	if err != nil {
		return fmt.Errorf("connessione al canale: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	log.Info().Str("url", c.url).Msg("connesso al server di chat")
	go c.readLoop(conn)
	return nil
}

func (c *Client) dial() (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}

	// Il token di sessione viaggia nell'header della richiesta di handshake
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)

	conn, _, err := dialer.Dial(c.url, header)
	return conn, err
}

// On registra un handler per un evento con un certo nome.
// La funzione restituita rimuove la sottoscrizione.
func (c *Client) On(event string, h Handler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handlers[event] == nil {
		c.handlers[event] = make(map[int]Handler)
	}
	id := c.nextID
	c.nextID++
	c.handlers[event][id] = h

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.handlers[event], id)
	}
}

// Emit invia un evento al server. È un annuncio unidirezionale:
// nessuna conferma viene attesa.
func (c *Client) Emit(event string, payload interface{}) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("emit %s: canale non connesso", event)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(models.WSMessage{Type: event, Payload: payload}); err != nil {
		return fmt.Errorf("emit %s: %w", event, err)
	}
	return nil
}

// Connected indica se il canale è attualmente aperto.
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.closed
}

// Close chiude il canale e ferma ogni tentativo di riconnessione.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var msg models.RawWSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			conn.Close()
			if c.isClosed() {
				return
			}
			log.Warn().Err(err).Msg("canale interrotto, provo a riconnettermi")
			c.reconnect()
			return
		}
		c.dispatch(msg.Type, msg.Payload)
	}
}

func (c *Client) dispatch(event string, payload json.RawMessage) {
	c.mu.RLock()
	hs := make([]Handler, 0, len(c.handlers[event]))
	for _, h := range c.handlers[event] {
		hs = append(hs, h)
	}
	c.mu.RUnlock()

	for _, h := range hs {
		h(payload)
	}
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Client) reconnect() {
	for attempt := 1; attempt <= reconnectAttempts; attempt++ {
		time.Sleep(reconnectDelay)
		if c.isClosed() {
			return
		}

		conn, err := c.dial()
		if err != nil {
			log.Warn().Err(err).Int("tentativo", attempt).Msg("riconnessione fallita")
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()

		log.Info().Int("tentativo", attempt).Msg("canale riconnesso")
		go c.readLoop(conn)
		return
	}
	log.Error().Int("tentativi", reconnectAttempts).Msg("riconnessione abbandonata")
}
