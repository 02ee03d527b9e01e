package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kara-engine/kara/engine"
	"github.com/kara-engine/kara/media"
	"github.com/kara-engine/kara/quiz"
	"github.com/kara-engine/kara/song"
)

func (s *Server) getState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.player.State())
}

type (
	seekBody struct {
		Delta float64 `json:"delta"`
	}
	gotoBody struct {
		Position float64 `json:"position" validate:"min=0"`
	}
	volumeBody struct {
		Volume int `json:"volume" validate:"min=0,max=100"`
	}
	toggleBody struct {
		Value bool `json:"value"`
	}
	blindBody struct {
		Blind string `json:"blind" validate:"omitempty,oneof=blur black"`
	}
	blurBody struct {
		Percent int `json:"percent" validate:"min=0,max=100"`
	}
	mediaBody struct {
		Kind media.Kind `json:"kind" validate:"required,oneof=jingles sponsors intros outros encores"`
	}
	stopBody struct {
		Background media.Kind `json:"background" validate:"omitempty,oneof=stop pause poll"`
	}
	stringBody struct {
		Value string `json:"value" validate:"required"`
	}
)

// action decodes the body of a player action and runs it.
type action func(s *Server, w http.ResponseWriter, r *http.Request) (func(ctx context.Context) error, bool)

func bodyless(fn func(p Player, ctx context.Context) error) action {
	return func(s *Server, _ http.ResponseWriter, _ *http.Request) (func(ctx context.Context) error, bool) {
		return func(ctx context.Context) error { return fn(s.player, ctx) }, true
	}
}

func withBody[T any](fn func(p Player, ctx context.Context, body T) error) action {
	return func(s *Server, w http.ResponseWriter, r *http.Request) (func(ctx context.Context) error, bool) {
		var body T
		if !s.readJSON(w, r, &body) {
			return nil, false
		}
		return func(ctx context.Context) error { return fn(s.player, ctx, body) }, true
	}
}

var actions = map[string]action{
	"next":       bodyless(Player.Next),
	"pause":      bodyless(Player.Pause),
	"resume":     bodyless(Player.Resume),
	"restart":    bodyless(Player.Restart),
	"fullscreen": bodyless(Player.ToggleFullscreen),
	"borders":    bodyless(Player.ToggleBorders),
	"ontop":      bodyless(Player.ToggleOnTop),
	"stop": withBody(func(p Player, ctx context.Context, b stopBody) error {
		return p.Stop(ctx, b.Background)
	}),
	"seek": withBody(func(p Player, ctx context.Context, b seekBody) error {
		return p.Seek(ctx, b.Delta)
	}),
	"goto": withBody(func(p Player, ctx context.Context, b gotoBody) error {
		return p.GoTo(ctx, b.Position)
	}),
	"volume": withBody(func(p Player, ctx context.Context, b volumeBody) error {
		return p.SetVolume(ctx, b.Volume)
	}),
	"mute": withBody(func(p Player, ctx context.Context, b toggleBody) error {
		return p.SetMute(ctx, b.Value)
	}),
	"subs": withBody(func(p Player, ctx context.Context, b toggleBody) error {
		return p.SetSubs(ctx, b.Value)
	}),
	"modifiers": withBody(func(p Player, ctx context.Context, b engine.Modifiers) error {
		return p.SetModifiers(ctx, b)
	}),
	"blind": withBody(func(p Player, ctx context.Context, b blindBody) error {
		return p.SetBlind(ctx, b.Blind)
	}),
	"blur": withBody(func(p Player, ctx context.Context, b blurBody) error {
		return p.SetBlurPercentage(ctx, b.Percent)
	}),
	"media": withBody(func(p Player, ctx context.Context, b mediaBody) error {
		return p.PlayMedia(ctx, b.Kind)
	}),
	"audio-device": withBody(func(p Player, ctx context.Context, b stringBody) error {
		return p.SetAudioDevice(ctx, b.Value)
	}),
	"hwdec": withBody(func(p Player, ctx context.Context, b stringBody) error {
		return p.SetHwDec(ctx, b.Value)
	}),
}

func (s *Server) playerAction(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "action")
	a, ok := actions[name]
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorBody{Code: engine.CodeInvalidArgument, Message: "unknown action " + name})
		return
	}

	run, ok := a(s, w, r)
	if !ok {
		return
	}
	reply(w, run(r.Context()))
}

type queueBody struct {
	Songs []*song.Song `json:"songs" validate:"required,min=1,dive,required"`
}

func (s *Server) getQueue(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.queue.Pending())
}

func (s *Server) addToQueue(w http.ResponseWriter, r *http.Request) {
	var body queueBody
	if !s.readJSON(w, r, &body) {
		return
	}
	s.queue.Add(body.Songs...)
	writeJSON(w, http.StatusOK, s.queue.Pending())
}

func (s *Server) clearQueue(w http.ResponseWriter, _ *http.Request) {
	s.queue.Clear()
	reply(w, nil)
}

func (s *Server) getGame(w http.ResponseWriter, _ *http.Request) {
	g, ok := s.quiz.Game().Get()
	if !ok {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) startGame(w http.ResponseWriter, r *http.Request) {
	var body quiz.GameOptions
	if !s.readJSON(w, r, &body) {
		return
	}
	reply(w, s.quiz.StartGame(r.Context(), body))
}

func (s *Server) stopGame(w http.ResponseWriter, r *http.Request) {
	reply(w, s.quiz.StopGame(r.Context()))
}

type answerBody struct {
	Login  string `json:"login" validate:"required,max=64"`
	Answer string `json:"answer" validate:"required,max=256"`
}

type answerResponse struct {
	Quick bool `json:"quick"`
}

func (s *Server) answer(w http.ResponseWriter, r *http.Request) {
	var body answerBody
	if !s.readJSON(w, r, &body) {
		return
	}

	quick, err := s.quiz.SetAnswer(body.Login, body.Answer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answerResponse{Quick: quick})
}

type audienceBody struct {
	Viewer string `json:"viewer" validate:"required,max=64"`
	Answer string `json:"answer" validate:"required,max=256"`
}

func (s *Server) audienceAnswer(w http.ResponseWriter, r *http.Request) {
	var body audienceBody
	if !s.readJSON(w, r, &body) {
		return
	}
	reply(w, s.quiz.SetAudienceAnswer(body.Viewer, body.Answer))
}

func (s *Server) continueRound(w http.ResponseWriter, _ *http.Request) {
	reply(w, s.quiz.ContinueRound())
}

type commentBody struct {
	Text string `json:"text" validate:"required,max=200"`
}

func (s *Server) comment(w http.ResponseWriter, r *http.Request) {
	var body commentBody
	if !s.readJSON(w, r, &body) {
		return
	}
	s.player.Comment(body.Text)
	reply(w, nil)
}

type messageBody struct {
	Text string `json:"text" validate:"required,max=500"`
	// Seconds the message stays, 0 keeps it until replaced.
	Duration int `json:"duration" validate:"min=0,max=3600"`
}

func (s *Server) message(w http.ResponseWriter, r *http.Request) {
	var body messageBody
	if !s.readJSON(w, r, &body) {
		return
	}
	s.player.Message(engine.CategoryInfo, body.Text, time.Duration(body.Duration)*time.Second)
	reply(w, nil)
}
