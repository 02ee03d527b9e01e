package engine

import (
	"context"
	"time"

	"github.com/kara-engine/kara/media"
	"github.com/kara-engine/kara/mpv"
	"github.com/kara-engine/kara/song"
	"github.com/samber/mo"
)

// Transport is one controlled player output.
type Transport interface {
	Name() string
	Recreate(ctx context.Context) error
	Destroy(ctx context.Context) error
	Send(ctx context.Context, args ...any) (any, error)
	Play(ctx context.Context, file string, opts mpv.LoadOptions) error
	IsRunning() bool
	LogTail() []string
	Observe(callback mpv.EventCallback)
}

// TransportFactory builds the transport of a named output.
type TransportFactory func(name string) Transport

// Resolver locates the files to load.
type Resolver interface {
	Media(ctx context.Context, s *song.Song) (string, error)
	Subtitle(ctx context.Context, s *song.Song) mo.Option[string]
	Filler(kind media.Kind) mo.Option[string]
	Background(kind media.Kind) string
}

// Sequencer yields the next song to play; None means the playlist is over.
type Sequencer interface {
	Next(ctx context.Context) (mo.Option[*song.Song], error)
}

// SequencerFunc adapts a function to a Sequencer.
type SequencerFunc func(ctx context.Context) (mo.Option[*song.Song], error)

func (f SequencerFunc) Next(ctx context.Context) (mo.Option[*song.Song], error) { return f(ctx) }

// Emitter receives named events.
type Emitter interface {
	Emit(event string, payload any)
}

// RoundPlan is how a quiz round wants its song played.
type RoundPlan struct {
	Start     float64
	Modifiers Modifiers
}

// RoundTimes is the remaining time of each phase of the current round.
type RoundTimes struct {
	Active bool
	Phase  string
	Guess  time.Duration
	Quick  time.Duration
	Reveal time.Duration
}

// RoundHook is the quiz as seen from the player. Its methods are called
// with the operation lock held and must not call back into the engine.
type RoundHook interface {
	Running() bool
	NextSong(ctx context.Context) (mo.Option[*song.Song], error)
	PrepareRound(s *song.Song) RoundPlan
	StartRound(ctx context.Context)
	// SkipRound drops the prepared round of a song that could not be played.
	SkipRound(s *song.Song)
	PauseRound()
	ResumeRound()
	Times() RoundTimes
}
