// Package server exposes the player and the quiz over HTTP and websocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kara-engine/kara/broadcast"
	"github.com/kara-engine/kara/engine"
	"github.com/kara-engine/kara/key"
	"github.com/kara-engine/kara/log"
	"github.com/kara-engine/kara/media"
	"github.com/kara-engine/kara/quiz"
	"github.com/kara-engine/kara/song"
	"github.com/kara-engine/kara/validate"
	"github.com/samber/mo"
	"github.com/spf13/viper"
)

// Player is the part of the engine the control surface drives.
type Player interface {
	State() engine.PlayerState
	Next(ctx context.Context) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Stop(ctx context.Context, background media.Kind) error
	Seek(ctx context.Context, delta float64) error
	GoTo(ctx context.Context, position float64) error
	PlayMedia(ctx context.Context, kind media.Kind) error
	Restart(ctx context.Context) error
	SetVolume(ctx context.Context, volume int) error
	SetMute(ctx context.Context, mute bool) error
	SetSubs(ctx context.Context, show bool) error
	SetModifiers(ctx context.Context, mods engine.Modifiers) error
	SetBlind(ctx context.Context, blind string) error
	SetBlurPercentage(ctx context.Context, percent int) error
	SetAudioDevice(ctx context.Context, device string) error
	SetHwDec(ctx context.Context, mode string) error
	ToggleFullscreen(ctx context.Context) error
	ToggleBorders(ctx context.Context) error
	ToggleOnTop(ctx context.Context) error
	Message(category, text string, d time.Duration)
	Comment(text string)
}

// Quiz is the game control surface.
type Quiz interface {
	StartGame(ctx context.Context, opts quiz.GameOptions) error
	StopGame(ctx context.Context) error
	SetAnswer(login, answer string) (bool, error)
	SetAudienceAnswer(viewer, answer string) error
	ContinueRound() error
	Game() mo.Option[quiz.GameView]
}

// Queue holds the songs played outside of games.
type Queue interface {
	Add(songs ...*song.Song)
	Pending() []*song.Song
	Clear()
}

// Server routes requests to the player and the quiz.
type Server struct {
	player   Player
	quiz     Quiz
	queue    Queue
	hub      http.Handler
	validate *validate.Validator
}

// New creates a server. hub serves the websocket observers.
func New(player Player, q Quiz, queue Queue, hub http.Handler) *Server {
	return &Server{
		player:   player,
		quiz:     q,
		queue:    queue,
		hub:      hub,
		validate: validate.New(),
	}
}

// Addr returns the configured listen address.
func Addr() string {
	return net.JoinHostPort(viper.GetString(key.ServerHost), strconv.Itoa(viper.GetInt(key.ServerPort)))
}

// Greeting is the first frames a new observer gets: the whole player state and the game.
func (s *Server) Greeting() []broadcast.Message {
	msgs := []broadcast.Message{{Type: broadcast.PlayerStatus, Payload: s.player.State()}}
	if g, ok := s.quiz.Game().Get(); ok {
		msgs = append(msgs, broadcast.Message{Type: broadcast.QuizStateUpdate, Payload: g})
	}
	return msgs
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogging)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Get("/state", s.getState)
	r.Post("/player/{action}", s.playerAction)

	r.Route("/queue", func(r chi.Router) {
		r.Get("/", s.getQueue)
		r.Post("/", s.addToQueue)
		r.Delete("/", s.clearQueue)
	})

	r.Route("/quiz", func(r chi.Router) {
		r.Get("/", s.getGame)
		r.Post("/start", s.startGame)
		r.Post("/stop", s.stopGame)
		r.Post("/answer", s.answer)
		r.Post("/audience", s.audienceAnswer)
		r.Post("/continue", s.continueRound)
	})

	r.Route("/overlay", func(r chi.Router) {
		r.Post("/comment", s.comment)
		r.Post("/message", s.message)
	})

	if s.hub != nil {
		r.Handle("/ws", s.hub)
	}
	return r
}

// Run serves until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		log.WithFields(map[string]any{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"url":        r.URL.String(),
			"status":     ww.Status(),
			"duration":   time.Since(start).String(),
		}).Debug("request")
	})
}
