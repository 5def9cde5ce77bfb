package handlers

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"chat-gateway/api"
	"chat-gateway/models"
)

// SetupAPIRoutes configura tutte le rotte dell'interfaccia locale.
// Lo stato arriva dal Gateway; le operazioni su gruppi e amici vengono
// inoltrate direttamente al server di chat tramite il client REST.
func SetupAPIRoutes(router *gin.Engine, gw Gateway, rest *api.Client, hub *WebSocketHub) {
	// Abilita CORS
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Servi file statici (per l'interfaccia web)
	router.Static("/web", "./web")

	// WebSocket locale: rispecchia gli eventi del canale verso il browser
	router.GET("/ws", hub.Handle)

	// Le ultime chat, ordinate per ultimo messaggio (più recente prima)
	router.GET("/api/chats", func(c *gin.Context) {
		chatList := gw.Chats()

		sort.Slice(chatList, func(i, j int) bool {
			if chatList[i].LastMessage.Timestamp.IsZero() {
				return false // Chat senza ultimi messaggi vanno in fondo
			}
			if chatList[j].LastMessage.Timestamp.IsZero() {
				return true
			}
			return chatList[i].LastMessage.Timestamp.After(chatList[j].LastMessage.Timestamp)
		})

		c.JSON(http.StatusOK, chatList)
	})

	// I messaggi di una chat specifica
	router.GET("/api/chats/:id/messages", func(c *gin.Context) {
		msgs, ok := gw.ChatMessages(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Chat non trovata"})
			return
		}
		c.JSON(http.StatusOK, msgs)
	})

	// La timeline a sezioni (divisori di data, anteprime di risposta)
	router.GET("/api/chats/:id/timeline", func(c *gin.Context) {
		sections, ok := gw.Timeline(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Chat non trovata"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"sections": sections,
			"typing":   gw.TypingIn(c.Param("id")),
		})
	})

	// Apre una stanza: annuncia la join e carica lo storico.
	// La stanza precedente viene lasciata automaticamente.
	router.POST("/api/rooms/open", func(c *gin.Context) {
		var req struct {
			ChatType string `json:"chatType" binding:"required"`
			ChatRoom string `json:"chatRoom" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := gw.OpenRoom(c.Request.Context(), req.ChatType, req.ChatRoom); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	// Chiude la stanza attiva (la vista è stata smontata)
	router.POST("/api/rooms/close", func(c *gin.Context) {
		gw.CloseRoom()
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	// Invio ottimistico: il provvisorio appare subito sul websocket locale,
	// la risposta arriva quando la scrittura durevole è stata riconciliata
	router.POST("/api/messages", func(c *gin.Context) {
		var req struct {
			Content  string `json:"content" binding:"required"`
			ChatType string `json:"chatType" binding:"required"`
			ChatRoom string `json:"chatRoom" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := gw.Send(c.Request.Context(), req.ChatType, req.ChatRoom, req.Content); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	router.PUT("/api/messages/:id", func(c *gin.Context) {
		var req struct {
			Content string `json:"content" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := gw.EditMessage(c.Request.Context(), c.Param("id"), req.Content); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	router.DELETE("/api/messages/:id", func(c *gin.Context) {
		if err := gw.DeleteMessage(c.Request.Context(), c.Param("id")); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	// Segnali di digitazione: il debounce vive nel gateway,
	// il browser manda solo il testo corrente
	router.POST("/api/typing", func(c *gin.Context) {
		var req struct {
			ChatType string `json:"chatType" binding:"required"`
			ChatRoom string `json:"chatRoom" binding:"required"`
			Text     string `json:"text"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		gw.Typing(req.ChatType, req.ChatRoom, req.Text)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	// Utenti online
	router.GET("/api/online", func(c *gin.Context) {
		c.JSON(http.StatusOK, gw.Presence())
	})

	setupGroupRoutes(router, rest)
	setupFriendRoutes(router, rest)
}

func setupGroupRoutes(router *gin.Engine, rest *api.Client) {
	router.POST("/api/groups", func(c *gin.Context) {
		var req struct {
			Name        string `json:"name" binding:"required"`
			Description string `json:"description"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		group, err := rest.CreateGroup(c.Request.Context(), req.Name, req.Description)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, group)
	})

	router.PUT("/api/groups/:id", func(c *gin.Context) {
		var req struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		group, err := rest.UpdateGroup(c.Request.Context(), c.Param("id"), req.Name, req.Description)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, group)
	})

	router.DELETE("/api/groups/:id", func(c *gin.Context) {
		if err := rest.DeleteGroup(c.Request.Context(), c.Param("id")); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	router.POST("/api/groups/:id/join", func(c *gin.Context) {
		if err := rest.JoinGroup(c.Request.Context(), c.Param("id")); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	router.DELETE("/api/groups/:id/leave", func(c *gin.Context) {
		if err := rest.LeaveGroup(c.Request.Context(), c.Param("id")); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	router.POST("/api/groups/:id/members", func(c *gin.Context) {
		var req struct {
			UserID string `json:"userId" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := rest.AddGroupMember(c.Request.Context(), c.Param("id"), req.UserID); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	router.DELETE("/api/groups/:id/members/:userId", func(c *gin.Context) {
		if err := rest.RemoveGroupMember(c.Request.Context(), c.Param("id"), c.Param("userId")); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
}

func setupFriendRoutes(router *gin.Engine, rest *api.Client) {
	router.GET("/api/users/search", func(c *gin.Context) {
		users, err := rest.SearchUsers(c.Request.Context(), c.Query("query"))
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		if users == nil {
			users = []models.User{}
		}
		c.JSON(http.StatusOK, users)
	})

	router.POST("/api/users/friend-request", func(c *gin.Context) {
		var req struct {
			UserID string `json:"userId" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := rest.SendFriendRequest(c.Request.Context(), req.UserID); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	router.GET("/api/users/friend-requests", func(c *gin.Context) {
		requests, err := rest.GetFriendRequests(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		if requests == nil {
			requests = []models.FriendRequest{}
		}
		c.JSON(http.StatusOK, requests)
	})

	router.POST("/api/users/friend-request/:id/accept", func(c *gin.Context) {
		if err := rest.AcceptFriendRequest(c.Request.Context(), c.Param("id")); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	router.POST("/api/users/friend-request/:id/reject", func(c *gin.Context) {
		if err := rest.RejectFriendRequest(c.Request.Context(), c.Param("id")); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	router.GET("/api/users/friends", func(c *gin.Context) {
		friends, err := rest.GetFriends(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		if friends == nil {
			friends = []models.User{}
		}
		c.JSON(http.StatusOK, friends)
	})

	router.POST("/api/users/block/:id", func(c *gin.Context) {
		if err := rest.BlockUser(c.Request.Context(), c.Param("id")); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
}
