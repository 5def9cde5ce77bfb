package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"chat-gateway/models"
)

// ErrEmptyMessage viene restituito da Submit per un testo vuoto dopo il trim.
var ErrEmptyMessage = errors.New("messaggio vuoto")

// MessageCreator esegue la scrittura durevole di un messaggio e
// restituisce la versione canonica assegnata dal server.
type MessageCreator interface {
	CreateMessage(ctx context.Context, content, chatType, chatRoom string) (*models.Message, error)
}

// Notifier raccoglie le notifiche di errore destinate all'utente.
type Notifier interface {
	NotifyError(message string)
}

// ChangeFunc viene invocata ad ogni variazione della sequenza,
// con il nome dell'evento e il messaggio coinvolto.
type ChangeFunc func(event string, msg models.Message)

// Conversation possiede la sequenza dei messaggi e l'insieme di chi sta
// scrivendo per una singola stanza, per la durata della vista corrispondente.
//
// L'invio è ottimistico: il messaggio appare subito come provvisorio con un
// id temporaneo, poi viene riconciliato con la versione canonica del server
// cercando per id temporaneo (mai per indice) oppure rimosso se la scrittura
// fallisce.
type Conversation struct {
	room     Room
	self     models.User
	api      MessageCreator
	notifier Notifier
	onChange ChangeFunc

	mu       sync.Mutex
	messages []models.Message
	typing   map[string]models.OnlineUser
}

func NewConversation(room Room, self models.User, api MessageCreator, notifier Notifier, onChange ChangeFunc) *Conversation {
	if onChange == nil {
		onChange = func(string, models.Message) {}
	}
	return &Conversation{
		room:     room,
		self:     self,
		api:      api,
		notifier: notifier,
		onChange: onChange,
		typing:   make(map[string]models.OnlineUser),
	}
}

// Room restituisce la stanza a cui appartiene la conversazione.
func (c *Conversation) Room() Room {
	return c.room
}

// SetHistory sostituisce la sequenza con lo storico caricato dal server.
func (c *Conversation) SetHistory(msgs []models.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append([]models.Message(nil), msgs...)
}

// Messages restituisce una copia della sequenza corrente.
func (c *Conversation) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Message(nil), c.messages...)
}

// Submit aggiunge subito un messaggio provvisorio alla sequenza, poi esegue
// la scrittura durevole. In caso di successo la voce provvisoria viene
// sostituita dalla versione canonica; in caso di fallimento viene rimossa e
// l'utente riceve una sola notifica di errore. Nessun retry automatico.
func (c *Conversation) Submit(ctx context.Context, rawText string) error {
	content := strings.TrimSpace(rawText)
	if content == "" {
		return ErrEmptyMessage
	}

	tempID := "temp-" + uuid.NewString()
	provisional := models.Message{
		ID:        tempID,
		TempID:    tempID,
		ChatType:  c.room.Type,
		ChatRoom:  c.room.ID,
		Sender:    c.self,
		Content:   content,
		Timestamp: time.Now(),
		Pending:   true,
	}

	c.mu.Lock()
	c.messages = append(c.messages, provisional)
	c.mu.Unlock()
	c.onChange("newMessage", provisional)

	confirmed, err := c.api.CreateMessage(ctx, content, c.room.Type, c.room.ID)
	if err != nil {
		c.removeByID(tempID)
		if c.notifier != nil {
			c.notifier.NotifyError("Invio del messaggio non riuscito")
		}
		c.onChange("messageDeleted", provisional)
		return fmt.Errorf("invio messaggio: %w", err)
	}

	if confirmed == nil || confirmed.ID == "" {
		// Risposta senza identificativo: la voce provvisoria resta in lista,
		// non riconciliata. Caso limite noto, non va scartato in silenzio.
		log.Warn().Str("tempId", tempID).Msg("risposta di creazione senza id, messaggio non riconciliato")
		return nil
	}

	canonical := *confirmed
	canonical.Pending = false

	c.mu.Lock()
	for i := range c.messages {
		if c.messages[i].ID == tempID {
			c.messages[i] = canonical
			break
		}
	}
	c.mu.Unlock()
	c.onChange("messageConfirmed", canonical)
	return nil
}

// AddRemote inserisce un messaggio arrivato dal canale in tempo reale.
// Scarta i messaggi di altre stanze, i duplicati per id e l'eco dei propri
// messaggi (la copia canonica arriva già dalla risposta REST).
// Restituisce true se il messaggio è stato inserito.
func (c *Conversation) AddRemote(msg models.Message) bool {
	if !c.relevant(msg) {
		return false
	}
	if msg.ChatType != models.ChatTypeBroadcast && msg.Sender.ID == c.self.ID {
		return false
	}

	c.mu.Lock()
	for _, m := range c.messages {
		if m.ID == msg.ID {
			c.mu.Unlock()
			return false
		}
	}
	c.messages = append(c.messages, msg)
	c.mu.Unlock()

	c.onChange("newMessage", msg)
	return true
}

// ApplyEdit aggiorna in loco il contenuto di un messaggio esistente.
func (c *Conversation) ApplyEdit(messageID, content string) bool {
	now := time.Now()

	c.mu.Lock()
	var edited *models.Message
	for i := range c.messages {
		if c.messages[i].ID == messageID {
			c.messages[i].Content = content
			c.messages[i].IsEdited = true
			c.messages[i].EditedAt = &now
			m := c.messages[i]
			edited = &m
			break
		}
	}
	c.mu.Unlock()

	if edited == nil {
		return false
	}
	c.onChange("messageEdited", *edited)
	return true
}

// ApplyDelete rimuove un messaggio dalla sequenza.
func (c *Conversation) ApplyDelete(messageID string) bool {
	removed, ok := c.removeByID(messageID)
	if !ok {
		return false
	}
	c.onChange("messageDeleted", removed)
	return true
}

// SetTyping registra che un utente sta scrivendo in questa stanza.
func (c *Conversation) SetTyping(u models.OnlineUser) {
	if u.UserID == c.self.ID {
		return
	}
	c.mu.Lock()
	c.typing[u.UserID] = u
	c.mu.Unlock()
}

// ClearTyping rimuove un utente dall'insieme di chi sta scrivendo.
func (c *Conversation) ClearTyping(userID string) {
	c.mu.Lock()
	delete(c.typing, userID)
	c.mu.Unlock()
}

// TypingUsers restituisce chi sta scrivendo, ordinato per identificativo.
func (c *Conversation) TypingUsers() []models.OnlineUser {
	c.mu.Lock()
	defer c.mu.Unlock()

	users := make([]models.OnlineUser, 0, len(c.typing))
	for _, u := range c.typing {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].UserID < users[j].UserID
	})
	return users
}

// relevant decide se un messaggio del canale appartiene a questa stanza.
func (c *Conversation) relevant(msg models.Message) bool {
	switch msg.ChatType {
	case models.ChatTypeBroadcast:
		// i broadcast compaiono in ogni stanza aperta
		return true
	case models.ChatTypeGroup:
		return c.room.Type == models.ChatTypeGroup && msg.ChatRoom == c.room.ID
	case models.ChatTypePrivate:
		if c.room.Type != models.ChatTypePrivate {
			return false
		}
		// dall'altro utente verso di me, o l'eco di un mio messaggio
		return (msg.Sender.ID == c.room.ID && msg.ChatRoom == c.self.ID) ||
			(msg.Sender.ID == c.self.ID && msg.ChatRoom == c.room.ID)
	default:
		return false
	}
}

func (c *Conversation) removeByID(id string) (models.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.messages {
		if c.messages[i].ID == id {
			removed := c.messages[i]
			c.messages = append(c.messages[:i], c.messages[i+1:]...)
			return removed, true
		}
	}
	return models.Message{}, false
}
