// Package api è il client REST verso il server di chat. Ogni chiamata porta
// il token di sessione nell'header Authorization; una risposta 401 invalida
// la sessione a livello di processo tramite il callback OnUnauthorized.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"chat-gateway/models"
)

// ErrUnauthorized indica una sessione scaduta o non valida.
var ErrUnauthorized = errors.New("sessione scaduta")

// Envelope è l'unica forma di risposta accettata dal server.
// Niente sondaggi difensivi su forme alternative: o la risposta è in questa
// busta, o è un errore.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type Client struct {
	base string
	http *http.Client

	mu             sync.RWMutex
	token          string
	onUnauthorized func()
}

func NewClient(base string) *Client {
	return &Client{
		base: base,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

// SetToken imposta il token di sessione usato per tutte le chiamate successive.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// OnUnauthorized registra il callback invocato alla prima risposta 401.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("serializzazione della richiesta: %w", err)
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reqBody)
	if err != nil {
		return fmt.Errorf("creazione della richiesta: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.mu.RLock()
	token := c.token
	unauthorized := c.onUnauthorized
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		if unauthorized != nil {
			unauthorized()
		}
		return ErrUnauthorized
	}

	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s %s: decodifica della risposta: %w", method, path, err)
	}

	if resp.StatusCode >= 400 || !env.Success {
		msg := env.Message
		if msg == "" {
			msg = resp.Status
		}
		return fmt.Errorf("%s %s: %s", method, path, msg)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s %s: decodifica dei dati: %w", method, path, err)
		}
	}
	return nil
}

// ---- Autenticazione ----

// LoginResponse è il payload restituito da login e register.
type LoginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, username, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, http.MethodPost, "/auth/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ---- Chat e messaggi ----

func (c *Client) GetChats(ctx context.Context) (*models.ChatList, error) {
	var out struct {
		Chats models.ChatList `json:"chats"`
	}
	if err := c.do(ctx, http.MethodGet, "/chats", nil, &out); err != nil {
		return nil, err
	}
	return &out.Chats, nil
}

func (c *Client) GetPrivateChat(ctx context.Context, userID string) (*models.User, error) {
	var out struct {
		User models.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/chats/private/"+url.PathEscape(userID), nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// GetMessages carica lo storico di una stanza (id utente per le private,
// id gruppo per i gruppi).
func (c *Client) GetMessages(ctx context.Context, chatID, chatType string) ([]models.Message, error) {
	q := url.Values{}
	q.Set("chatId", chatID)
	q.Set("type", chatType)

	var out struct {
		Messages []models.Message `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/messages?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// CreateMessage esegue la scrittura durevole di un messaggio. La versione
// canonica viene restituita così com'è: se manca l'identificativo sta al
// chiamante decidere come degradare.
func (c *Client) CreateMessage(ctx context.Context, content, chatType, chatRoom string) (*models.Message, error) {
	var out struct {
		Message models.Message `json:"message"`
	}
	err := c.do(ctx, http.MethodPost, "/messages", map[string]string{
		"content":  content,
		"chatType": chatType,
		"chatRoom": chatRoom,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.Message, nil
}

func (c *Client) EditMessage(ctx context.Context, messageID, content string) error {
	return c.do(ctx, http.MethodPut, "/messages/"+url.PathEscape(messageID), map[string]string{
		"content": content,
	}, nil)
}

func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	return c.do(ctx, http.MethodDelete, "/messages/"+url.PathEscape(messageID), nil, nil)
}

// ---- Gruppi ----

func (c *Client) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	var out struct {
		Group models.Group `json:"group"`
	}
	if err := c.do(ctx, http.MethodGet, "/groups/"+url.PathEscape(groupID), nil, &out); err != nil {
		return nil, err
	}
	return &out.Group, nil
}

func (c *Client) CreateGroup(ctx context.Context, name, description string) (*models.Group, error) {
	var out struct {
		Group models.Group `json:"group"`
	}
	err := c.do(ctx, http.MethodPost, "/groups", map[string]string{
		"name":        name,
		"description": description,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.Group, nil
}

func (c *Client) UpdateGroup(ctx context.Context, groupID, name, description string) (*models.Group, error) {
	var out struct {
		Group models.Group `json:"group"`
	}
	err := c.do(ctx, http.MethodPut, "/groups/"+url.PathEscape(groupID), map[string]string{
		"name":        name,
		"description": description,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.Group, nil
}

func (c *Client) DeleteGroup(ctx context.Context, groupID string) error {
	return c.do(ctx, http.MethodDelete, "/groups/"+url.PathEscape(groupID), nil, nil)
}

func (c *Client) JoinGroup(ctx context.Context, groupID string) error {
	return c.do(ctx, http.MethodPost, "/groups/"+url.PathEscape(groupID)+"/join", nil, nil)
}

func (c *Client) LeaveGroup(ctx context.Context, groupID string) error {
	return c.do(ctx, http.MethodDelete, "/groups/"+url.PathEscape(groupID)+"/leave", nil, nil)
}

func (c *Client) AddGroupMember(ctx context.Context, groupID, userID string) error {
	return c.do(ctx, http.MethodPost, "/groups/"+url.PathEscape(groupID)+"/members", map[string]string{
		"userId": userID,
	}, nil)
}

func (c *Client) RemoveGroupMember(ctx context.Context, groupID, userID string) error {
	return c.do(ctx, http.MethodDelete, "/groups/"+url.PathEscape(groupID)+"/members/"+url.PathEscape(userID), nil, nil)
}

// ---- Amici ----

func (c *Client) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	q := url.Values{}
	q.Set("query", query)

	var out struct {
		Users []models.User `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/users/search?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

func (c *Client) SendFriendRequest(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodPost, "/users/friend-request", map[string]string{
		"userId": userID,
	}, nil)
}

func (c *Client) GetFriendRequests(ctx context.Context) ([]models.FriendRequest, error) {
	var out struct {
		Requests []models.FriendRequest `json:"requests"`
	}
	if err := c.do(ctx, http.MethodGet, "/users/friend-requests", nil, &out); err != nil {
		return nil, err
	}
	return out.Requests, nil
}

func (c *Client) AcceptFriendRequest(ctx context.Context, requestID string) error {
	return c.do(ctx, http.MethodPost, "/users/friend-request/"+url.PathEscape(requestID)+"/accept", nil, nil)
}

func (c *Client) RejectFriendRequest(ctx context.Context, requestID string) error {
	return c.do(ctx, http.MethodPost, "/users/friend-request/"+url.PathEscape(requestID)+"/reject", nil, nil)
}

func (c *Client) GetFriends(ctx context.Context) ([]models.User, error) {
	var out struct {
		Friends []models.User `json:"friends"`
	}
	if err := c.do(ctx, http.MethodGet, "/users/friends", nil, &out); err != nil {
		return nil, err
	}
	return out.Friends, nil
}

func (c *Client) BlockUser(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodPost, "/users/block/"+url.PathEscape(userID), nil, nil)
}
