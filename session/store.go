// Package session conserva la sessione autenticata in un database sqlite
// locale, così il gateway riparte senza rifare il login. Alla prima risposta
// 401 la sessione viene cancellata e il processo termina.
package session

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"chat-gateway/models"
)

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("errore nell'apertura del database di sessione: %v", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS session (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			token TEXT NOT NULL,
			user_id TEXT NOT NULL,
			username TEXT NOT NULL,
			saved_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("errore nella creazione della tabella session: %v", err)
	}

	return &Store{db: db}, nil
}

// Save sostituisce la sessione corrente.
func (s *Store) Save(token string, user models.User) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO session (id, token, user_id, username, saved_at)
		VALUES (1, ?, ?, ?, ?)
	`, token, user.ID, user.Username, time.Now())
	if err != nil {
		return fmt.Errorf("errore nel salvataggio della sessione: %v", err)
	}
	return nil
}

// Load restituisce la sessione salvata; token vuoto se non ce n'è una.
func (s *Store) Load() (string, *models.User, error) {
	var token string
	user := &models.User{}

	err := s.db.QueryRow(`SELECT token, user_id, username FROM session WHERE id = 1`).
		Scan(&token, &user.ID, &user.Username)
	if err == sql.ErrNoRows {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("errore nella lettura della sessione: %v", err)
	}
	return token, user, nil
}

// Clear cancella la sessione salvata.
func (s *Store) Clear() error {
	_, err := s.db.Exec(`DELETE FROM session WHERE id = 1`)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}
