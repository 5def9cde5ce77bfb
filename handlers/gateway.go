package handlers

import (
	"context"

	"chat-gateway/models"
	"chat-gateway/timeline"
)

// Gateway è l'interfaccia che il livello HTTP usa per interrogare lo stato
// del client di chat e per eseguire le operazioni delle viste.
type Gateway interface {
	// Stato
	Chats() []*models.Chat
	ChatMessages(chatID string) ([]models.Message, bool)
	Timeline(chatID string) ([]timeline.Section, bool)
	Presence() []models.OnlineUser
	TypingIn(chatID string) []models.OnlineUser

	// Operazioni di vista
	OpenRoom(ctx context.Context, chatType, roomID string) error
	CloseRoom()
	Send(ctx context.Context, chatType, chatRoom, content string) error
	Typing(chatType, chatRoom, text string)
	EditMessage(ctx context.Context, messageID, content string) error
	DeleteMessage(ctx context.Context, messageID string) error
}
