package utils

import (
	"encoding/json"
	"fmt"
	"os"
)

// Configurazione del server di chat remoto
type ServerConfig struct {
	APIBaseURL string `json:"apiBaseUrl"`
	SocketURL  string `json:"socketUrl"`
}

// Credenziali usate per il login
type AuthConfig struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Configurazione del server locale per l'interfaccia
type LocalConfig struct {
	Port int `json:"port"`
}

// Configurazione dell'archivio MySQL (facoltativo)
type DatabaseConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
}

// Percorsi dei file di stato locali
type StorageConfig struct {
	CachePath   string `json:"cachePath"`
	SessionPath string `json:"sessionPath"`
}

// Configurazione completa
type Config struct {
	Server   ServerConfig   `json:"server"`
	Auth     AuthConfig     `json:"auth"`
	Local    LocalConfig    `json:"local"`
	Database DatabaseConfig `json:"database"`
	Storage  StorageConfig  `json:"storage"`
}

// Carica la configurazione dal file
func LoadConfig(filePath string) (*Config, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("errore nell'apertura del file di configurazione: %v", err)
	}
	defer file.Close()

	var config Config
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("errore nella decodifica del file di configurazione: %v", err)
	}

	return &config, nil
}

// DefaultConfig restituisce i valori predefiniti usati quando
// il file di configurazione non è disponibile.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			APIBaseURL: "http://localhost:5001/api",
			SocketURL:  "ws://localhost:5001/socket",
		},
		Local: LocalConfig{
			Port: 8080,
		},
		Storage: StorageConfig{
			CachePath:   "chat-cache.db",
			SessionPath: "session.db",
		},
	}
}

// Ottieni la stringa di connessione al database
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}
