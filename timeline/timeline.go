// Package timeline trasforma una sequenza ordinata di messaggi nella
// struttura a sezioni mostrata dall'interfaccia: un divisore di data ogni
// volta che il giorno di calendario cambia, nel fuso orario dell'osservatore.
// È una trasformazione pura, senza stato oltre la sequenza in ingresso.
package timeline

import (
	"time"

	"chat-gateway/models"
)

// ReplyPreview è l'anteprima del messaggio citato da una risposta.
type ReplyPreview struct {
	Username string `json:"username"`
	Content  string `json:"content"`
}

// Entry è un messaggio pronto per la visualizzazione.
type Entry struct {
	models.Message
	TimeLabel    string        `json:"timeLabel"`
	ReplyPreview *ReplyPreview `json:"replyPreview,omitempty"`
}

// Section raggruppa i messaggi dello stesso giorno di calendario.
type Section struct {
	Label   string  `json:"label"`
	Entries []Entry `json:"entries"`
}

// Build costruisce le sezioni della timeline. I timestamp malformati
// (zero) non interrompono la costruzione: il messaggio resta nella sezione
// corrente con l'etichetta oraria vuota.
func Build(msgs []models.Message, loc *time.Location) []Section {
	return buildAt(msgs, loc, time.Now())
}

func buildAt(msgs []models.Message, loc *time.Location, now time.Time) []Section {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)

	byID := make(map[string]models.Message, len(msgs))
	for _, m := range msgs {
		if m.ID != "" {
			byID[m.ID] = m
		}
	}

	var sections []Section
	var haveDay bool
	var curY int
	var curD int // giorno dell'anno

	for _, m := range msgs {
		entry := Entry{
			Message:      m,
			TimeLabel:    timeLabel(m.Timestamp, now, loc),
			ReplyPreview: replyPreview(m, byID),
		}

		if m.Timestamp.IsZero() {
			// senza data attendibile il messaggio non apre una nuova sezione
			if len(sections) == 0 {
				sections = append(sections, Section{})
			}
			last := &sections[len(sections)-1]
			last.Entries = append(last.Entries, entry)
			continue
		}

		ts := m.Timestamp.In(loc)
		y, d := ts.Year(), ts.YearDay()
		if !haveDay || y != curY || d != curD {
			sections = append(sections, Section{Label: dayLabel(ts, now)})
			haveDay, curY, curD = true, y, d
		}
		last := &sections[len(sections)-1]
		last.Entries = append(last.Entries, entry)
	}
	return sections
}

func replyPreview(m models.Message, byID map[string]models.Message) *ReplyPreview {
	if m.ReplyToID == "" {
		return nil
	}
	target, ok := byID[m.ReplyToID]
	if !ok {
		// il messaggio citato non è nella sequenza locale
		return &ReplyPreview{Username: "Unknown"}
	}
	username := target.Sender.Username
	if username == "" {
		username = "Unknown"
	}
	return &ReplyPreview{Username: username, Content: target.Content}
}

func dayLabel(ts, now time.Time) string {
	switch {
	case sameDay(ts, now):
		return "Today"
	case sameDay(ts, now.AddDate(0, 0, -1)):
		return "Yesterday"
	default:
		return ts.Format("Monday, January 2")
	}
}

func timeLabel(ts, now time.Time, loc *time.Location) string {
	if ts.IsZero() {
		return ""
	}
	ts = ts.In(loc)
	if now.Sub(ts) < 24*time.Hour {
		return ts.Format("3:04 PM")
	}
	return ts.Format("Jan 2, 3:04 PM")
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
