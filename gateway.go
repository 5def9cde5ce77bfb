package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"chat-gateway/api"
	"chat-gateway/chat"
	"chat-gateway/db"
	"chat-gateway/handlers"
	"chat-gateway/models"
	"chat-gateway/persistence"
	"chat-gateway/timeline"
	"chat-gateway/utils"
)

// App è lo stato di processo della sessione autenticata: viene costruito
// al login e smontato al logout, e iniettato nelle viste invece di vivere
// come stato globale ambientale. Canale e presenze sono condivisi tra le
// viste; ogni conversazione possiede la propria sequenza di messaggi.
type App struct {
	cfg      *utils.Config
	self     models.User
	rest     *api.Client
	channel  *chat.Client
	presence *chat.PresenceTracker
	rooms    *chat.RoomController
	hub      *handlers.WebSocketHub
	cache    *persistence.PersistenceManager
	archive  *db.MySQLManager // nil se l'archivio è disabilitato

	mu        sync.RWMutex
	chats     map[string]*models.Chat
	convs     map[string]*chat.Conversation
	notifiers map[string]*chat.TypingNotifier
	disposers []func()

	shutdownCh chan struct{}
	shutdown   sync.Once
}

func NewApp(cfg *utils.Config, self models.User, rest *api.Client, channel *chat.Client,
	cache *persistence.PersistenceManager, archive *db.MySQLManager) *App {
	return &App{
		cfg:        cfg,
		self:       self,
		rest:       rest,
		channel:    channel,
		presence:   chat.NewPresenceTracker(),
		rooms:      chat.NewRoomController(channel),
		hub:        handlers.NewWebSocketHub(),
		cache:      cache,
		archive:    archive,
		chats:      make(map[string]*models.Chat),
		convs:      make(map[string]*chat.Conversation),
		notifiers:  make(map[string]*chat.TypingNotifier),
		shutdownCh: make(chan struct{}),
	}
}

// Shutdown richiede la terminazione del processo (usata dal 401).
func (a *App) Shutdown() {
	a.shutdown.Do(func() { close(a.shutdownCh) })
}

// Teardown smonta la sessione: lascia la stanza attiva, annulla i timer
// di digitazione in sospeso e rimuove tutte le sottoscrizioni registrate.
func (a *App) Teardown() {
	a.rooms.ExitCurrent()

	a.mu.Lock()
	for _, n := range a.notifiers {
		n.Close()
	}
	a.notifiers = make(map[string]*chat.TypingNotifier)
	disposers := a.disposers
	a.disposers = nil
	a.mu.Unlock()

	for _, dispose := range disposers {
		dispose()
	}
	a.channel.Close()
}

// addDisposer registra una funzione di pulizia da invocare al teardown.
func (a *App) addDisposer(dispose func()) {
	a.mu.Lock()
	a.disposers = append(a.disposers, dispose)
	a.mu.Unlock()
}

// NotifyError inoltra una notifica di errore all'interfaccia.
func (a *App) NotifyError(message string) {
	log.Error().Str("notifica", message).Msg("errore segnalato all'utente")
	a.hub.Broadcast("error", map[string]string{"message": message})
}

// ---- Stato per il livello HTTP ----

func (a *App) Chats() []*models.Chat {
	a.mu.RLock()
	defer a.mu.RUnlock()

	chats := make([]*models.Chat, 0, len(a.chats))
	for _, c := range a.chats {
		copied := *c
		chats = append(chats, &copied)
	}
	return chats
}

func (a *App) ChatMessages(chatID string) ([]models.Message, bool) {
	a.mu.RLock()
	conv := a.convs[chatID]
	a.mu.RUnlock()

	if conv != nil {
		return conv.Messages(), true
	}

	// stanza non aperta: prova la cache locale
	msgs, err := a.cache.LoadChatMessages(chatID)
	if err != nil || len(msgs) == 0 {
		return nil, false
	}
	return msgs, true
}

func (a *App) Timeline(chatID string) ([]timeline.Section, bool) {
	msgs, ok := a.ChatMessages(chatID)
	if !ok {
		return nil, false
	}
	return timeline.Build(msgs, time.Local), true
}

func (a *App) Presence() []models.OnlineUser {
	return a.presence.Snapshot()
}

func (a *App) TypingIn(chatID string) []models.OnlineUser {
	a.mu.RLock()
	conv := a.convs[chatID]
	a.mu.RUnlock()

	if conv == nil {
		return nil
	}
	return conv.TypingUsers()
}

// ---- Operazioni di vista ----

// OpenRoom annuncia l'ingresso nella stanza e carica lo storico.
// La stanza precedente viene sempre lasciata prima: mai due sottoscrizioni
// attive contemporaneamente.
func (a *App) OpenRoom(ctx context.Context, chatType, roomID string) error {
	if chatType != models.ChatTypePrivate && chatType != models.ChatTypeGroup {
		return fmt.Errorf("tipo di chat non valido: %s", chatType)
	}

	room := chat.Room{Type: chatType, ID: roomID}
	a.rooms.Enter(room)
	conv := a.conversation(room)

	history, err := a.rest.GetMessages(ctx, roomID, chatType)
	if err != nil {
		// il server non risponde: si riparte dalla cache locale
		log.Warn().Err(err).Str("room", roomID).Msg("storico non disponibile, uso la cache")
		cached, cacheErr := a.cache.LoadChatMessages(roomID)
		if cacheErr == nil {
			conv.SetHistory(cached)
		}
		return nil
	}

	conv.SetHistory(history)
	for i := range history {
		if err := a.cache.SaveMessage(&history[i]); err != nil {
			log.Warn().Err(err).Msg("messaggio non salvato in cache")
		}
	}
	return nil
}

// CloseRoom lascia la stanza attiva e annulla il timer di digitazione
// in sospeso, senza emettere altri segnali.
func (a *App) CloseRoom() {
	current := a.rooms.Current()
	a.rooms.ExitCurrent()

	if current == nil {
		return
	}
	a.mu.Lock()
	if n, ok := a.notifiers[current.ID]; ok {
		n.Close()
		delete(a.notifiers, current.ID)
	}
	a.mu.Unlock()
}

// Send chiude il burst di digitazione e invia il messaggio in modo
// ottimistico attraverso la conversazione della stanza.
func (a *App) Send(ctx context.Context, chatType, chatRoom, content string) error {
	a.mu.RLock()
	notifier := a.notifiers[chatRoom]
	a.mu.RUnlock()
	if notifier != nil {
		notifier.Sent()
	}

	conv := a.conversation(chat.Room{Type: chatType, ID: chatRoom})
	return conv.Submit(ctx, content)
}

// Typing alimenta il debouncer della stanza con il testo corrente.
func (a *App) Typing(chatType, chatRoom, text string) {
	a.mu.Lock()
	notifier, ok := a.notifiers[chatRoom]
	if !ok {
		ev := models.TypingEvent{ChatType: chatType, ChatRoom: chatRoom}
		notifier = chat.NewTypingNotifier(chat.DefaultQuietPeriod,
			func() {
				if err := a.channel.Emit("typing", ev); err != nil {
					log.Warn().Err(err).Msg("segnale typing non inviato")
				}
			},
			func() {
				if err := a.channel.Emit("stopTyping", ev); err != nil {
					log.Warn().Err(err).Msg("segnale stopTyping non inviato")
				}
			})
		a.notifiers[chatRoom] = notifier
	}
	a.mu.Unlock()

	notifier.Input(text)
}

// EditMessage esegue la modifica sul server e la propaga sul canale.
func (a *App) EditMessage(ctx context.Context, messageID, content string) error {
	if err := a.rest.EditMessage(ctx, messageID, content); err != nil {
		a.NotifyError("Modifica del messaggio non riuscita")
		return err
	}

	event := "editPrivateMessage"
	if current := a.rooms.Current(); current != nil && current.Type == models.ChatTypeGroup {
		event = "editGroupMessage"
	}
	if err := a.channel.Emit(event, models.MessageEditedEvent{MessageID: messageID, Content: content}); err != nil {
		log.Warn().Err(err).Msg("evento di modifica non inviato")
	}

	a.applyEdit(messageID, content)
	return nil
}

// DeleteMessage esegue la cancellazione sul server e la propaga sul canale.
func (a *App) DeleteMessage(ctx context.Context, messageID string) error {
	if err := a.rest.DeleteMessage(ctx, messageID); err != nil {
		a.NotifyError("Cancellazione del messaggio non riuscita")
		return err
	}

	event := "deletePrivateMessage"
	if current := a.rooms.Current(); current != nil && current.Type == models.ChatTypeGroup {
		event = "deleteGroupMessage"
	}
	if err := a.channel.Emit(event, models.MessageDeletedEvent{MessageID: messageID}); err != nil {
		log.Warn().Err(err).Msg("evento di cancellazione non inviato")
	}

	a.applyDelete(messageID)
	return nil
}

// ---- Interni ----

// conversation restituisce la conversazione della stanza, creandola
// se necessario con il callback di propagazione verso interfaccia e storage.
func (a *App) conversation(room chat.Room) *chat.Conversation {
	a.mu.Lock()
	defer a.mu.Unlock()

	if conv, ok := a.convs[room.ID]; ok {
		return conv
	}
	conv := chat.NewConversation(room, a.self, a.rest, a, a.onConversationChange)
	a.convs[room.ID] = conv
	return conv
}

// onConversationChange rispecchia ogni variazione verso il browser e
// mantiene allineati cache, archivio e lista delle chat.
func (a *App) onConversationChange(event string, msg models.Message) {
	a.hub.Broadcast(event, msg)

	switch event {
	case "newMessage", "messageConfirmed", "messageEdited":
		if msg.Pending {
			return
		}
		if err := a.cache.SaveMessage(&msg); err != nil {
			log.Warn().Err(err).Msg("messaggio non salvato in cache")
		}
		if a.archive != nil {
			if err := a.archive.SaveMessage(&msg); err != nil {
				log.Warn().Err(err).Msg("messaggio non archiviato")
			}
		}
		a.touchChat(msg)
	case "messageDeleted":
		if msg.Pending {
			return
		}
		if err := a.cache.DeleteMessage(msg.ID); err != nil {
			log.Warn().Err(err).Msg("messaggio non rimosso dalla cache")
		}
		if a.archive != nil {
			if err := a.archive.DeleteMessage(msg.ID); err != nil {
				log.Warn().Err(err).Msg("messaggio non rimosso dall'archivio")
			}
		}
	}
}

// touchChat aggiorna l'ultimo messaggio della chat nella lista laterale.
func (a *App) touchChat(msg models.Message) {
	chatID := msg.ChatRoom
	if msg.ChatType == models.ChatTypePrivate && msg.Sender.ID != a.self.ID {
		// nelle private la stanza è l'altro utente, non il destinatario
		chatID = msg.Sender.ID
	}

	a.mu.Lock()
	c, ok := a.chats[chatID]
	if !ok {
		name := msg.Sender.Username
		c = &models.Chat{
			ID:      chatID,
			Name:    name,
			IsGroup: msg.ChatType == models.ChatTypeGroup,
		}
		a.chats[chatID] = c
	}
	c.LastMessage = msg
	a.mu.Unlock()

	if err := a.cache.SaveChat(c); err != nil {
		log.Warn().Err(err).Msg("chat non salvata in cache")
	}
	if a.archive != nil {
		if err := a.archive.SaveChat(c); err != nil {
			log.Warn().Err(err).Msg("chat non archiviata")
		}
	}
}

// applyEdit propaga una modifica alla conversazione che contiene il messaggio.
func (a *App) applyEdit(messageID, content string) {
	a.mu.RLock()
	convs := make([]*chat.Conversation, 0, len(a.convs))
	for _, c := range a.convs {
		convs = append(convs, c)
	}
	a.mu.RUnlock()

	for _, c := range convs {
		if c.ApplyEdit(messageID, content) {
			return
		}
	}
}

// applyDelete propaga una cancellazione alla conversazione che contiene il messaggio.
func (a *App) applyDelete(messageID string) {
	a.mu.RLock()
	convs := make([]*chat.Conversation, 0, len(a.convs))
	for _, c := range a.convs {
		convs = append(convs, c)
	}
	a.mu.RUnlock()

	for _, c := range convs {
		if c.ApplyDelete(messageID) {
			return
		}
	}
}

// setChatList sostituisce la lista delle chat con quella del server.
func (a *App) setChatList(list *models.ChatList) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, c := range list.Private {
		c.IsGroup = false
		a.chats[c.ID] = c
	}
	for _, c := range list.Groups {
		c.IsGroup = true
		a.chats[c.ID] = c
	}
}
