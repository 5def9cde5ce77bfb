package chat

import (
	"strings"
	"sync"
	"time"
)

// DefaultQuietPeriod è la finestra di silenzio dopo la quale un burst
// di digitazione si considera concluso.
const DefaultQuietPeriod = 1000 * time.Millisecond

// TypingNotifier converte i tasti premuti in segnali typing/stopTyping:
// al massimo un segnale di inizio per burst continuo e esattamente uno
// di fine quando il burst termina (per timeout, per campo svuotato o
// per invio esplicito).
type TypingNotifier struct {
	mu     sync.Mutex
	quiet  time.Duration
	active bool
	timer  *time.Timer
	gen    int // invalida i timeout di timer già riarmati
	start  func()
	stop   func()
}

func NewTypingNotifier(quiet time.Duration, start, stop func()) *TypingNotifier {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &TypingNotifier{quiet: quiet, start: start, stop: stop}
}

// Input va chiamata ad ogni variazione del testo in composizione.
func (t *TypingNotifier) Input(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if strings.TrimSpace(text) == "" {
		// campo svuotato: il burst finisce subito, senza aspettare il timer
		t.finishLocked()
		return
	}

	if !t.active {
		t.active = true
		t.start()
	}

	// ogni tasto riarma il periodo di quiete
	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.timer = time.AfterFunc(t.quiet, func() { t.timeout(gen) })
}

// Sent va chiamata all'invio del messaggio: chiude subito il burst.
func (t *TypingNotifier) Sent() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finishLocked()
}

// Close annulla il timer in sospeso senza emettere altri segnali.
// Da chiamare quando la vista che possiede il notifier viene smontata.
func (t *TypingNotifier) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
	t.active = false
}

func (t *TypingNotifier) timeout(gen int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// un Input successivo ha riarmato il timer: questo timeout non vale più
	if gen != t.gen {
		return
	}
	t.finishLocked()
}

func (t *TypingNotifier) finishLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
	if t.active {
		t.active = false
		t.stop()
	}
}
