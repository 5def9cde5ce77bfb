package chat

import (
	"sort"
	"sync"

	"chat-gateway/models"
)

// PresenceTracker mantiene l'insieme degli utenti attualmente online.
// L'assenza dall'insieme significa offline: non esiste un record separato.
type PresenceTracker struct {
	mu     sync.RWMutex
	online map[string]models.OnlineUser
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{
		online: make(map[string]models.OnlineUser),
	}
}

// SetAll sostituisce l'intero insieme; usata allo snapshot iniziale
// e dopo ogni riconnessione.
func (p *PresenceTracker) SetAll(users []models.OnlineUser) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.online = make(map[string]models.OnlineUser, len(users))
	for _, u := range users {
		p.online[u.UserID] = u
	}
}

// SetOnline inserisce o aggiorna un utente. Idempotente.
func (p *PresenceTracker) SetOnline(u models.OnlineUser) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[u.UserID] = u
}

// SetOffline rimuove un utente; rimuovere un assente non è un errore.
func (p *PresenceTracker) SetOffline(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.online, userID)
}

// IsOnline è un puro test di appartenenza.
func (p *PresenceTracker) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.online[userID]
	return ok
}

// Snapshot restituisce gli utenti online ordinati per identificativo.
func (p *PresenceTracker) Snapshot() []models.OnlineUser {
	p.mu.RLock()
	defer p.mu.RUnlock()

	users := make([]models.OnlineUser, 0, len(p.online))
	for _, u := range p.online {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].UserID < users[j].UserID
	})
	return users
}
