package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"chat-gateway/models"
)

// MySQLManager archivia le chat e i messaggi confermati.
// I messaggi provvisori non vengono mai scritti: entrano nell'archivio
// solo dopo la riconciliazione con l'identificativo del server.
type MySQLManager struct {
	db *sql.DB
}

// Crea una nuova istanza del gestore MySQL
func NewMySQLManager(dsn string) (*MySQLManager, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Verifica la connessione
	if err := db.Ping(); err != nil {
		return nil, err
	}

	// Imposta i parametri di connessione
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &MySQLManager{db: db}, nil
}

// Inizializza le tabelle necessarie
func (m *MySQLManager) InitTables() error {
	// Tabella per le chat
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS chats (
			id VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			is_group BOOLEAN DEFAULT FALSE,
			profile_image VARCHAR(255),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("errore nella creazione della tabella chats: %v", err)
	}

	// Tabella per i messaggi
	_, err = m.db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			id VARCHAR(255) PRIMARY KEY,
			chat_id VARCHAR(255) NOT NULL,
			chat_type VARCHAR(32) NOT NULL,
			sender_id VARCHAR(255) NOT NULL,
			sender_name VARCHAR(255) NOT NULL,
			content TEXT NOT NULL,
			is_image BOOLEAN DEFAULT FALSE,
			timestamp TIMESTAMP NOT NULL,
			is_edited BOOLEAN DEFAULT FALSE,
			reply_to_id VARCHAR(255),
			FOREIGN KEY (chat_id) REFERENCES chats(id)
		)
	`)
	if err != nil {
		return fmt.Errorf("errore nella creazione della tabella messages: %v", err)
	}

	return nil
}

// Salva o aggiorna una chat
func (m *MySQLManager) SaveChat(chat *models.Chat) error {
	_, err := m.db.Exec(`
		INSERT INTO chats (id, name, is_group, profile_image)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE name = VALUES(name), profile_image = VALUES(profile_image)
	`, chat.ID, chat.Name, chat.IsGroup, chat.ProfileImage)
	if err != nil {
		return fmt.Errorf("errore nel salvataggio della chat: %v", err)
	}
	return nil
}

// Carica tutte le chat
func (m *MySQLManager) LoadChats() ([]*models.Chat, error) {
	rows, err := m.db.Query(`SELECT id, name, is_group, COALESCE(profile_image, '') FROM chats`)
	if err != nil {
		return nil, fmt.Errorf("errore nel caricamento delle chat: %v", err)
	}
	defer rows.Close()

	var chats []*models.Chat
	for rows.Next() {
		chat := &models.Chat{}
		if err := rows.Scan(&chat.ID, &chat.Name, &chat.IsGroup, &chat.ProfileImage); err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

// Salva un messaggio confermato
func (m *MySQLManager) SaveMessage(msg *models.Message) error {
	if msg.Pending {
		return fmt.Errorf("il messaggio %s è ancora provvisorio", msg.TempID)
	}

	_, err := m.db.Exec(`
		INSERT INTO messages (id, chat_id, chat_type, sender_id, sender_name, content, is_image, timestamp, is_edited, reply_to_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE content = VALUES(content), is_edited = VALUES(is_edited)
	`, msg.ID, msg.ChatRoom, msg.ChatType, msg.Sender.ID, msg.Sender.Username,
		msg.Content, msg.IsImage, msg.Timestamp, msg.IsEdited, msg.ReplyToID)
	if err != nil {
		return fmt.Errorf("errore nel salvataggio del messaggio: %v", err)
	}
	return nil
}

// Carica i messaggi di una chat in ordine di timestamp
func (m *MySQLManager) LoadChatMessages(chatID string) ([]models.Message, error) {
	rows, err := m.db.Query(`
		SELECT id, chat_id, chat_type, sender_id, sender_name, content, is_image, timestamp, is_edited, COALESCE(reply_to_id, '')
		FROM messages
		WHERE chat_id = ?
		ORDER BY timestamp ASC
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("errore nel caricamento dei messaggi: %v", err)
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.ChatRoom, &msg.ChatType, &msg.Sender.ID,
			&msg.Sender.Username, &msg.Content, &msg.IsImage, &msg.Timestamp,
			&msg.IsEdited, &msg.ReplyToID); err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// Aggiorna il contenuto di un messaggio modificato
func (m *MySQLManager) UpdateMessageContent(messageID, content string) error {
	_, err := m.db.Exec(`UPDATE messages SET content = ?, is_edited = TRUE WHERE id = ?`, content, messageID)
	if err != nil {
		return fmt.Errorf("errore nell'aggiornamento del messaggio: %v", err)
	}
	return nil
}

// Rimuove un messaggio cancellato
func (m *MySQLManager) DeleteMessage(messageID string) error {
	_, err := m.db.Exec(`DELETE FROM messages WHERE id = ?`, messageID)
	if err != nil {
		return fmt.Errorf("errore nella cancellazione del messaggio: %v", err)
	}
	return nil
}

func (m *MySQLManager) Close() error {
	return m.db.Close()
}
