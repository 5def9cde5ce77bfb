package persistence

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"chat-gateway/models"
)

var (
	chatsBucket    = []byte("chats")
	messagesBucket = []byte("messages")
)

// PersistenceManager è la cache locale di chat e messaggi.
// Permette di ripartire con la lista delle conversazioni anche quando
// il server non è raggiungibile; la verità resta comunque lato server.
type PersistenceManager struct {
	db *bbolt.DB
}

func NewPersistenceManager(path string) (*PersistenceManager, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(chatsBucket)
		if err != nil {
			return err
		}
		_, err = tx.CreateBucketIfNotExists(messagesBucket)
		return err
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &PersistenceManager{db: db}, nil
}

// Salva una chat
func (pm *PersistenceManager) SaveChat(chat *models.Chat) error {
	return pm.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(chatsBucket)
		data, err := encodeToBinary(chat)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(chat.ID), data)
	})
}

// Carica una chat
func (pm *PersistenceManager) LoadChat(chatID string) (*models.Chat, error) {
	var chat models.Chat
	err := pm.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(chatsBucket)
		data := bucket.Get([]byte(chatID))
		if data == nil {
			return fmt.Errorf("chat non trovata")
		}
		return decodeBinary(data, &chat)
	})
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// Carica tutte le chat
func (pm *PersistenceManager) LoadChats() ([]*models.Chat, error) {
	var chats []*models.Chat

	err := pm.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(chatsBucket)
		cursor := bucket.Cursor()

		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			var chat models.Chat
			if err := decodeBinary(v, &chat); err != nil {
				continue
			}
			chats = append(chats, &chat)
		}
		return nil
	})

	return chats, err
}

// Salva un messaggio confermato
func (pm *PersistenceManager) SaveMessage(message *models.Message) error {
	if message.Pending {
		// i provvisori non sopravvivono a un riavvio
		return nil
	}
	return pm.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(messagesBucket)
		data, err := encodeToBinary(message)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(message.ID), data)
	})
}

// Carica tutti i messaggi di una stanza, in ordine di timestamp
func (pm *PersistenceManager) LoadChatMessages(chatID string) ([]models.Message, error) {
	var messages []models.Message

	err := pm.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(messagesBucket)
		cursor := bucket.Cursor()

		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			var msg models.Message
			if err := decodeBinary(v, &msg); err != nil {
				continue
			}
			if msg.ChatRoom == chatID {
				messages = append(messages, msg)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
	return messages, nil
}

// Cancella un messaggio
func (pm *PersistenceManager) DeleteMessage(messageID string) error {
	return pm.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(messagesBucket)
		return bucket.Delete([]byte(messageID))
	})
}

func (pm *PersistenceManager) Close() error {
	return pm.db.Close()
}

func encodeToBinary(data interface{}) ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(data)
	return buf.Bytes(), err
}

func decodeBinary(data []byte, target interface{}) error {
	buf := bytes.NewBuffer(data)
	return gob.NewDecoder(buf).Decode(target)
}
