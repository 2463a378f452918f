// Package api assembles the HTTP surface: the WebSocket upgrade endpoint,
// the leaderboard/profile side channel, account verification, and metrics
// exposition.
package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Raspberrynani/ft-solocendence/internal/config"
	"github.com/Raspberrynani/ft-solocendence/internal/game"
	"github.com/Raspberrynani/ft-solocendence/internal/lobby"
	"github.com/Raspberrynani/ft-solocendence/internal/session"
	"github.com/Raspberrynani/ft-solocendence/internal/storage"
	"github.com/Raspberrynani/ft-solocendence/internal/tournament"
	"github.com/Raspberrynani/ft-solocendence/internal/ws"
)

// Server is the assembled Solocendence server.
type Server struct {
	cfg    config.Config
	logger *log.Logger
	store  *storage.Store

	sessions *session.Registry
	games    *game.Manager
	director *tournament.Director
	hub      *lobby.Hub
	router   *lobby.Router
	gateway  *ws.Gateway

	http *http.Server
}

// NewServer wires every subsystem from the configuration.
func NewServer(cfg config.Config) (*Server, error) {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "solocendence",
	})

	store, err := storage.Open(cfg.Storage.DBPath)
	if err != nil {
		// The lobby and simulation still work without persistence.
		logger.Warn("could not open player database, stats disabled", "error", err)
		store = nil
	}

	sessions := session.NewRegistry()

	var sink game.StatsSink
	if store != nil {
		sink = store
	}
	games := game.NewManager(cfg.Game, sessions, sink, logger)
	director := tournament.NewDirector(cfg.Tournament, sessions, games, logger)
	queue := lobby.NewQueue()
	hub := lobby.NewHub(sessions, queue, games, director, logger)
	router := lobby.NewRouter(hub, games, director, logger)
	gateway := ws.NewGateway(router, cfg.Server.WriteBuffer, cfg.Server.WriteTimeout.Std(), logger)

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		sessions: sessions,
		games:    games,
		director: director,
		hub:      hub,
		router:   router,
		gateway:  gateway,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	s.routes(engine)

	s.http = &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: engine,
	}
	return s, nil
}

func (s *Server) routes(r *gin.Engine) {
	r.GET("/ws", func(c *gin.Context) {
		s.gateway.Handle(c.Writer, c.Request)
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/entries", s.handleEntries)
		api.GET("/player/:name", s.handlePlayer)
		api.POST("/end_game", s.handleEndGame)
		api.GET("/csrf", s.handleCSRF)
		api.POST("/check_player", s.handleCheckPlayer)
		api.POST("/delete_player", s.handleDeletePlayer)
	}
}

// ListenAndServe runs the server until SIGINT/SIGTERM, then shuts down
// gracefully. TLS is used when both certificate and key are configured.
func (s *Server) ListenAndServe() error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if s.cfg.Server.TLSCert != "" && s.cfg.Server.TLSKey != "" {
			s.logger.Info("listening with TLS", "addr", s.cfg.Server.Addr)
			err = s.http.ListenAndServeTLS(s.cfg.Server.TLSCert, s.cfg.Server.TLSKey)
		} else {
			s.logger.Info("listening", "addr", s.cfg.Server.Addr)
			err = s.http.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	s.logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		return err
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("error closing store", "error", err)
		}
	}
	return nil
}
