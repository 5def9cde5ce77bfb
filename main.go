package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"chat-gateway/api"
	"chat-gateway/chat"
	"chat-gateway/db"
	"chat-gateway/handlers"
	"chat-gateway/persistence"
	"chat-gateway/session"
	"chat-gateway/utils"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Carica la configurazione
	config, err := utils.LoadConfig("config.json")
	if err != nil {
		log.Warn().Err(err).Msg("configurazione non trovata, uso i valori predefiniti")
		config = utils.DefaultConfig()
	}

	// Apri il database di sessione
	sessions, err := session.Open(config.Storage.SessionPath)
	if err != nil {
		log.Fatal().Err(err).Msg("errore nell'apertura della sessione")
	}
	defer sessions.Close()

	rest := api.NewClient(config.Server.APIBaseURL)

	// Recupera la sessione salvata oppure esegui il login
	token, self, err := sessions.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("errore nella lettura della sessione")
	}
	if token == "" {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		resp, err := rest.Login(ctx, config.Auth.Email, config.Auth.Password)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("login fallito")
		}
		token = resp.Token
		user := resp.User
		self = &user
		if err := sessions.Save(token, user); err != nil {
			log.Warn().Err(err).Msg("sessione non salvata")
		}
		log.Info().Str("utente", user.Username).Msg("login eseguito")
	} else {
		log.Info().Str("utente", self.Username).Msg("sessione ripresa")
	}
	rest.SetToken(token)

	// Apri la cache locale
	cache, err := persistence.NewPersistenceManager(config.Storage.CachePath)
	if err != nil {
		log.Fatal().Err(err).Msg("errore nell'apertura della cache")
	}
	defer cache.Close()

	// Archivio MySQL facoltativo
	var archive *db.MySQLManager
	if config.Database.Enabled {
		archive, err = db.NewMySQLManager(config.Database.GetDSN())
		if err != nil {
			log.Fatal().Err(err).Msg("errore nella connessione al database MySQL")
		}
		defer archive.Close()

		if err := archive.InitTables(); err != nil {
			log.Fatal().Err(err).Msg("errore nell'inizializzazione delle tabelle")
		}
	}

	// Apri il canale in tempo reale
	channel := chat.NewClient(config.Server.SocketURL, token)
	app := NewApp(config, *self, rest, channel, cache, archive)

	// Sessione scaduta: pulizia e uscita, il prossimo avvio rifà il login
	rest.OnUnauthorized(func() {
		log.Warn().Msg("sessione scaduta, esco")
		if err := sessions.Clear(); err != nil {
			log.Warn().Err(err).Msg("sessione non cancellata")
		}
		app.Shutdown()
	})

	registerEventHandlers(app)

	if err := channel.Connect(); err != nil {
		log.Fatal().Err(err).Msg("connessione al canale fallita")
	}

	// Riempie la lista delle chat: prima dalla cache, poi dal server
	if cached, err := cache.LoadChats(); err == nil {
		for _, c := range cached {
			app.mu.Lock()
			app.chats[c.ID] = c
			app.mu.Unlock()
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if list, err := rest.GetChats(ctx); err != nil {
		log.Warn().Err(err).Msg("lista chat non disponibile, uso la cache")
	} else {
		app.setChatList(list)
	}
	cancel()

	// Avvia il server locale per l'interfaccia
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()
	handlers.SetupAPIRoutes(router, app, rest, app.hub)

	go func() {
		addr := fmt.Sprintf(":%d", config.Local.Port)
		log.Info().Str("addr", addr).Msg("interfaccia locale in ascolto")
		if err := router.Run(addr); err != nil {
			log.Error().Err(err).Msg("server locale terminato")
			app.Shutdown()
		}
	}()

	// Attendi un segnale di terminazione
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("segnale", sig.String()).Msg("terminazione richiesta")
	case <-app.shutdownCh:
	}

	app.Teardown()
	log.Info().Msg("gateway fermato")
}
