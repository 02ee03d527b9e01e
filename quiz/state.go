package quiz

import (
	"time"

	"github.com/kara-engine/kara/constant"
	"github.com/kara-engine/kara/song"
	"github.com/kara-engine/kara/store"
	"github.com/kara-engine/kara/timer"
)

// Phase of a round.
type Phase string

const (
	PhaseGuess  Phase = "guess"
	PhaseAnswer Phase = "answer"
)

// Audience is the login the aggregated audience answer is scored under.
const Audience = constant.AudienceLogin

// Answer is what a player submitted during a round.
type Answer struct {
	Login  string    `json:"login"`
	Answer string    `json:"answer"`
	Quick  bool      `json:"quick"`
	At     time.Time `json:"at"`
}

// Winner is a matched answer and what it earned.
type Winner struct {
	Login       string   `json:"login"`
	Answer      string   `json:"answer"`
	Category    Category `json:"category"`
	Points      int      `json:"points"`
	QuickPoints int      `json:"quickPoints"`
}

// GameState is the persisted progress of a game.
type GameState struct {
	Name              string `json:"name"`
	Running           bool   `json:"running"`
	CurrentSongNumber int    `json:"currentSongNumber"`
	// CurrentTotalDuration counts configured guess and reveal times, in seconds.
	CurrentTotalDuration float64  `json:"currentTotalDuration"`
	Playlist             string   `json:"playlist"`
	KIDsPlayed           []string `json:"kidsPlayed"`
}

// GameSong is one round. Its fields are guarded by the scheduler.
type GameSong struct {
	Song            *song.Song
	StartTime       time.Time
	Durations       Durations
	GuessTimer      *timer.Timer
	QuickGuessTimer *timer.Timer
	RevealTimer     *timer.Timer
	QuickGuessOK    bool
	Answers         []Answer
	Winners         []Winner
	State           Phase
	Continue        bool

	audience map[string]Answer
	started  bool
}

func newGameSong(s *song.Song, d Durations) *GameSong {
	return &GameSong{
		Song:            s,
		StartTime:       time.Now(),
		Durations:       d,
		GuessTimer:      timer.New(d.Guess, false),
		QuickGuessTimer: timer.New(d.Quick, false),
		RevealTimer:     timer.New(d.Reveal, false),
		QuickGuessOK:    d.Quick > 0,
		State:           PhaseGuess,
		audience:        make(map[string]Answer),
	}
}

func (g *GameSong) cancel() {
	g.GuessTimer.Cancel()
	g.QuickGuessTimer.Cancel()
	g.RevealTimer.Cancel()
}

func (g *GameSong) timers() []*timer.Timer {
	return []*timer.Timer{g.GuessTimer, g.QuickGuessTimer, g.RevealTimer}
}

// RoundView is the public face of a round. The song is only shown once revealed.
type RoundView struct {
	Number       int        `json:"number"`
	State        Phase      `json:"state"`
	StartTime    time.Time  `json:"startTime"`
	QuickGuessOK bool       `json:"quickGuessOK"`
	Answers      int        `json:"answers"`
	Winners      []Winner   `json:"winners"`
	Continue     bool       `json:"continue"`
	GuessTime    float64    `json:"guessTime"`
	QuickTime    float64    `json:"quickGuessTime"`
	RevealTime   float64    `json:"revealTime"`
	Song         *song.Song `json:"song,omitempty"`
}

// GameView is a read-only copy of the current game.
type GameView struct {
	GameState
	Settings  Settings   `json:"settings"`
	Remaining int        `json:"remaining"`
	Round     *RoundView `json:"round,omitempty"`
}

// Event payloads.
type (
	StartEvent struct {
		Number     int     `json:"number"`
		GuessTime  float64 `json:"guessTime"`
		QuickTime  float64 `json:"quickGuessTime"`
		RevealTime float64 `json:"revealTime"`
	}

	ResultEvent struct {
		Number  int        `json:"number"`
		Song    *song.Song `json:"song"`
		Winners []Winner   `json:"winners"`
	}

	AnswerEvent struct {
		Login string `json:"login"`
		Quick bool   `json:"quick"`
	}

	EndEvent struct {
		Name   string        `json:"name"`
		Totals []store.Total `json:"totals"`
	}
)
