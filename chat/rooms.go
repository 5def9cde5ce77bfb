package chat

import (
	"sync"

	"github.com/rs/zerolog/log"

	"chat-gateway/models"
)

// Emitter è la porzione del client necessaria per gli annunci di stanza.
type Emitter interface {
	Emit(event string, payload interface{}) error
}

// Room identifica una stanza: una coppia privata (l'id dell'altro utente)
// oppure un gruppo.
type Room struct {
	Type string // models.ChatTypePrivate o models.ChatTypeGroup
	ID   string
}

// RoomController annuncia l'ingresso e l'uscita dalle stanze.
// Ogni join viene sempre accoppiata a una leave: una sola stanza
// alla volta, mai due sottoscrizioni attive insieme.
type RoomController struct {
	mu      sync.Mutex
	emitter Emitter
	current *Room
}

func NewRoomController(e Emitter) *RoomController {
	return &RoomController{emitter: e}
}

// Enter entra nella stanza indicata. Se una stanza diversa è già attiva
// viene prima lasciata; rientrare rapidamente nella stessa stanza è un no-op.
func (r *RoomController) Enter(room Room) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		if *r.current == room {
			return
		}
		r.announceLeave(*r.current)
	}
	r.announceJoin(room)
	cur := room
	r.current = &cur
}

// ExitCurrent lascia la stanza attiva, se presente.
func (r *RoomController) ExitCurrent() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		return
	}
	r.announceLeave(*r.current)
	r.current = nil
}

// Current restituisce una copia della stanza attiva, o nil.
func (r *RoomController) Current() *Room {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		return nil
	}
	cur := *r.current
	return &cur
}

func (r *RoomController) announceJoin(room Room) {
	var err error
	switch room.Type {
	case models.ChatTypePrivate:
		err = r.emitter.Emit("joinPrivateChat", models.JoinPrivatePayload{OtherUserID: room.ID})
	case models.ChatTypeGroup:
		err = r.emitter.Emit("joinGroup", models.GroupPayload{GroupID: room.ID})
	}
	if err != nil {
		log.Warn().Err(err).Str("room", room.ID).Msg("annuncio di ingresso non inviato")
	}
}

func (r *RoomController) announceLeave(room Room) {
	var err error
	switch room.Type {
	case models.ChatTypePrivate:
		err = r.emitter.Emit("leavePrivateChat", models.JoinPrivatePayload{OtherUserID: room.ID})
	case models.ChatTypeGroup:
		err = r.emitter.Emit("leaveGroup", models.GroupPayload{GroupID: room.ID})
	}
	if err != nil {
		log.Warn().Err(err).Str("room", room.ID).Msg("annuncio di uscita non inviato")
	}
}
