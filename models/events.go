package models

// Payload degli eventi del canale in tempo reale. I nomi degli eventi
// sono quelli definiti dal server; il payload viaggia in JSON.

// TypingEvent viene ricevuto per userTyping / userStoppedTyping
// ed emesso per typing / stopTyping (senza UserID, lo aggiunge il server).
type TypingEvent struct {
	UserID   string `json:"userId,omitempty"`
	ChatType string `json:"chatType"`
	ChatRoom string `json:"chatRoom"`
}

// MessageEditedEvent notifica la modifica di un messaggio esistente.
type MessageEditedEvent struct {
	MessageID string `json:"messageId"`
	Content   string `json:"content"`
}

// MessageDeletedEvent notifica la cancellazione di un messaggio.
type MessageDeletedEvent struct {
	MessageID string `json:"messageId"`
}

// JoinPrivatePayload annuncia l'ingresso/uscita da una chat privata.
type JoinPrivatePayload struct {
	OtherUserID string `json:"otherUserId"`
}

// GroupPayload annuncia l'ingresso/uscita da un gruppo.
type GroupPayload struct {
	GroupID string `json:"groupId"`
}

// GroupMemberEvent viene ricevuto per userJoinedGroup / userLeftGroup.
type GroupMemberEvent struct {
	GroupID string `json:"groupId"`
	User    User   `json:"user"`
}

// GroupUpdatedEvent viene ricevuto quando i metadati del gruppo cambiano.
type GroupUpdatedEvent struct {
	Group Group `json:"group"`
}
