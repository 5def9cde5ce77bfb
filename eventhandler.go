package main

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"chat-gateway/chat"
	"chat-gateway/models"
)

// Registra tutti gli handler per gli eventi del canale in tempo reale.
// Ogni sottoscrizione restituisce un disposer che viene conservato
// e invocato al teardown: nessun listener sopravvive alla sessione.
func registerEventHandlers(app *App) {
	on := func(event string, h chat.Handler) {
		app.addDisposer(app.channel.On(event, h))
	}

	// Snapshot completo delle presenze: arriva alla connessione
	// e dopo ogni riconnessione
	on("onlineUsers", func(payload json.RawMessage) {
		var users []models.OnlineUser
		if err := json.Unmarshal(payload, &users); err != nil {
			log.Warn().Err(err).Msg("snapshot presenze malformato")
			return
		}
		app.presence.SetAll(users)
		app.hub.Broadcast("onlineUsers", users)
	})

	on("userOnline", func(payload json.RawMessage) {
		var user models.OnlineUser
		if err := json.Unmarshal(payload, &user); err != nil {
			return
		}
		app.presence.SetOnline(user)
		app.hub.Broadcast("userOnline", user)
	})

	on("userOffline", func(payload json.RawMessage) {
		var user models.OnlineUser
		if err := json.Unmarshal(payload, &user); err != nil {
			return
		}
		app.presence.SetOffline(user.UserID)
		app.hub.Broadcast("userOffline", user)
	})

	// Nuovo messaggio dal canale: viene proposto a ogni conversazione
	// aperta (che scarta duplicati, eco e stanze estranee) e comunque
	// registrato nella lista delle chat per la barra laterale
	on("newMessage", func(payload json.RawMessage) {
		var msg models.Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			log.Warn().Err(err).Msg("messaggio malformato dal canale")
			return
		}

		app.mu.RLock()
		convs := make([]*chat.Conversation, 0, len(app.convs))
		for _, c := range app.convs {
			convs = append(convs, c)
		}
		app.mu.RUnlock()

		inserted := false
		for _, c := range convs {
			if c.AddRemote(msg) {
				inserted = true
			}
		}

		if !inserted {
			// nessuna vista aperta su quella stanza: aggiorna solo
			// la lista delle chat e avvisa l'interfaccia
			if msg.Sender.ID != app.self.ID {
				app.touchChat(msg)
				app.hub.Broadcast("newMessage", msg)
			}
		}
	})

	on("userTyping", func(payload json.RawMessage) {
		var ev models.TypingEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return
		}
		if conv := typingConversation(app, ev); conv != nil {
			conv.SetTyping(models.OnlineUser{UserID: ev.UserID})
		}
		app.hub.Broadcast("userTyping", ev)
	})

	on("userStoppedTyping", func(payload json.RawMessage) {
		var ev models.TypingEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return
		}
		if conv := typingConversation(app, ev); conv != nil {
			conv.ClearTyping(ev.UserID)
		}
		app.hub.Broadcast("userStoppedTyping", ev)
	})

	on("messageEdited", func(payload json.RawMessage) {
		var ev models.MessageEditedEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return
		}
		app.applyEdit(ev.MessageID, ev.Content)
	})

	on("messageDeleted", func(payload json.RawMessage) {
		var ev models.MessageDeletedEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return
		}
		app.applyDelete(ev.MessageID)
	})

	on("userJoinedGroup", func(payload json.RawMessage) {
		var ev models.GroupMemberEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return
		}
		log.Info().Str("gruppo", ev.GroupID).Str("utente", ev.User.Username).Msg("utente entrato nel gruppo")
		app.hub.Broadcast("userJoinedGroup", ev)
	})

	on("userLeftGroup", func(payload json.RawMessage) {
		var ev models.GroupMemberEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return
		}
		log.Info().Str("gruppo", ev.GroupID).Str("utente", ev.User.Username).Msg("utente uscito dal gruppo")
		app.hub.Broadcast("userLeftGroup", ev)
	})

	on("groupUpdated", func(payload json.RawMessage) {
		var ev models.GroupUpdatedEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return
		}

		app.mu.Lock()
		if c, ok := app.chats[ev.Group.ID]; ok {
			c.Name = ev.Group.Name
		}
		app.mu.Unlock()
		app.hub.Broadcast("groupUpdated", ev)
	})
}

// typingConversation individua la conversazione a cui si riferisce
// un evento di digitazione: nelle private la stanza locale è l'utente
// che scrive, nei gruppi è il gruppo stesso.
func typingConversation(app *App, ev models.TypingEvent) *chat.Conversation {
	key := ev.ChatRoom
	if ev.ChatType == models.ChatTypePrivate {
		key = ev.UserID
	}

	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.convs[key]
}
