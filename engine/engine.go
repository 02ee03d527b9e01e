// Package engine orchestrates the player outputs: it serializes every mutating
// command under one lock, keeps the unified player state and broadcasts its changes.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kara-engine/kara/broadcast"
	"github.com/kara-engine/kara/constant"
	"github.com/kara-engine/kara/key"
	"github.com/kara-engine/kara/log"
	"github.com/kara-engine/kara/media"
	"github.com/kara-engine/kara/overlay"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/viper"
)

// Options tunes the engine.
type Options struct {
	Monitor bool
	// MonitorEnabled is consulted on Restart, Monitor is used when nil.
	MonitorEnabled func() bool
	Lang           string
	Volume         int
	Fullscreen     bool
	Borders        bool
	OnTop          bool
	HwDec          string
	AudioDevice    string
	Loudnorm       bool
	Avatar         bool
	SongInfo       bool
	InfoDuration   time.Duration
	PauseDuration  time.Duration
	Wrap           int
	Comments       overlay.CommentOptions
}

// OptionsFromConfig reads engine options from the configuration.
func OptionsFromConfig() Options {
	return Options{
		Monitor: viper.GetBool(key.PlayerMonitor),
		MonitorEnabled: func() bool {
			return viper.GetBool(key.PlayerMonitor)
		},
		Lang:          "eng",
		Volume:        viper.GetInt(key.PlayerVolume),
		Fullscreen:    viper.GetBool(key.PlayerFullscreen),
		Borders:       viper.GetBool(key.PlayerBorders),
		OnTop:         viper.GetBool(key.PlayerOnTop),
		HwDec:         viper.GetString(key.PlayerHwDec),
		AudioDevice:   viper.GetString(key.PlayerAudioDevice),
		Loudnorm:      viper.GetBool(key.MediaLoudnorm),
		Avatar:        viper.GetBool(key.MediaAvatar),
		SongInfo:      viper.GetBool(key.PlaybackSongInfo),
		InfoDuration:  time.Duration(viper.GetInt(key.PlaybackInfoDuration)) * time.Second,
		PauseDuration: time.Duration(viper.GetInt(key.PlaybackPauseDuration)) * time.Second,
		Wrap:          viper.GetInt(key.OverlayWrap),
		Comments:      overlay.DefaultCommentOptions(),
	}
}

// Engine drives the main output and the optional monitor output.
type Engine struct {
	opts     Options
	factory  TransportFactory
	resolver Resolver
	emitter  Emitter

	lock chan struct{}

	stateMu sync.RWMutex
	state   PlayerState
	// playing is the playback state the engine itself asked for; pause events
	// matching it come from controlled transitions.
	playing bool

	instMu    sync.RWMutex
	instances map[string]Transport

	hooksMu   sync.RWMutex
	sequencer Sequencer
	round     RoundHook

	messages *overlay.Messages
	comments *overlay.Comments

	progressMu     sync.Mutex
	progressCancel context.CancelFunc

	shuttingDown atomic.Bool
}

// New creates an engine. No output is spawned until Start.
func New(factory TransportFactory, resolver Resolver, emitter Emitter, opts Options) *Engine {
	if opts.Lang == "" {
		opts.Lang = "eng"
	}

	e := &Engine{
		opts:      opts,
		factory:   factory,
		resolver:  resolver,
		emitter:   emitter,
		lock:      make(chan struct{}, 1),
		instances: make(map[string]Transport),
		state: PlayerState{
			Fullscreen:   opts.Fullscreen,
			OnTop:        opts.OnTop,
			Border:       opts.Borders,
			Volume:       opts.Volume,
			ShowSubs:     true,
			Speed:        100,
			AudioDevice:  opts.AudioDevice,
			HwDec:        opts.HwDec,
			MediaType:    media.Stop,
			PlayerStatus: StatusStop,
		},
	}

	e.messages = overlay.NewMessages(e.tickDisplay, opts.Wrap)
	e.comments = overlay.NewComments(e.tickCommentDisplay, opts.Comments)
	return e
}

// SetSequencer sets the source of the next songs outside quiz games.
func (e *Engine) SetSequencer(s Sequencer) {
	e.hooksMu.Lock()
	defer e.hooksMu.Unlock()
	e.sequencer = s
}

// SetRoundHook plugs the quiz in.
func (e *Engine) SetRoundHook(r RoundHook) {
	e.hooksMu.Lock()
	defer e.hooksMu.Unlock()
	e.round = r
}

// Start spawns the configured outputs and shows the stop background.
func (e *Engine) Start(ctx context.Context) error {
	return e.locked(ctx, "start", func(ctx context.Context) error {
		e.addInstance(constant.MainPlayer)
		if e.opts.Monitor {
			e.addInstance(constant.MonitorPlayer)
		}

		if _, err := e.ensureRunningLocked(ctx, ""); err != nil {
			return err
		}
		return e.stopLocked(ctx, media.Stop)
	})
}

// State returns a copy of the unified player state.
func (e *Engine) State() PlayerState {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.state
}

// update mutates the state and emits the changed keys.
func (e *Engine) update(fn func(s *PlayerState)) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	prev := e.state
	fn(&e.state)

	if e.emitter == nil {
		return
	}

	diff, err := broadcast.Diff(prev, e.state)
	if err != nil {
		log.Errorf("diff player state: %s", err)
		return
	}
	if len(diff) > 0 {
		e.emitter.Emit(broadcast.PlayerStatus, diff)
	}
}

func (e *Engine) setPlaying(playing bool) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	e.playing = playing
}

func (e *Engine) isPlaying() bool {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.playing
}

// acquire takes the operation lock, waiting until it is free or ctx ends.
func (e *Engine) acquire(ctx context.Context) error {
	select {
	case e.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) release() {
	<-e.lock
}

// locked runs fn holding the operation lock. The lock is released on every
// exit path, panics included, and isOperating mirrors it.
func (e *Engine) locked(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	if err := e.acquire(ctx); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	e.update(func(s *PlayerState) { s.IsOperating = true })
	defer func() {
		e.update(func(s *PlayerState) { s.IsOperating = false })
		e.release()
	}()

	log.Debugf("player operation %s", name)
	if err := fn(ctx); err != nil {
		log.Warnf("player operation %s failed: %s", name, err)
		return err
	}
	return nil
}

func (e *Engine) hooks() (Sequencer, RoundHook) {
	e.hooksMu.RLock()
	defer e.hooksMu.RUnlock()
	return e.sequencer, e.round
}

func (e *Engine) quizRunning() bool {
	_, r := e.hooks()
	return r != nil && r.Running()
}

func (e *Engine) monitorWanted() bool {
	if e.opts.MonitorEnabled != nil {
		return e.opts.MonitorEnabled()
	}
	return e.opts.Monitor
}

func (e *Engine) addInstance(name string) Transport {
	e.instMu.Lock()
	defer e.instMu.Unlock()

	if t, ok := e.instances[name]; ok {
		return t
	}

	t := e.factory(name)
	if name == constant.MainPlayer {
		t.Observe(e.HandleEvent)
	}
	e.instances[name] = t
	return t
}

func (e *Engine) removeInstance(name string) (Transport, bool) {
	e.instMu.Lock()
	defer e.instMu.Unlock()

	t, ok := e.instances[name]
	delete(e.instances, name)
	return t, ok
}

// targets returns the instance named only, or every instance with main first.
func (e *Engine) targets(only string) []Transport {
	e.instMu.RLock()
	defer e.instMu.RUnlock()

	if only != "" {
		if t, ok := e.instances[only]; ok {
			return []Transport{t}
		}
		return nil
	}

	return lo.FilterMap([]string{constant.MainPlayer, constant.MonitorPlayer}, func(name string, _ int) (Transport, bool) {
		t, ok := e.instances[name]
		return t, ok
	})
}

// RunState tells what EnsureRunning found.
type RunState int

const (
	Running RunState = iota
	Restarted
	NoInstance
)

func (r RunState) String() string {
	switch r {
	case Running:
		return "running"
	case Restarted:
		return "restarted"
	default:
		return "no instance"
	}
}

// EnsureRunning recreates the outputs that are not running.
func (e *Engine) EnsureRunning(ctx context.Context, only string) (state RunState, err error) {
	err = e.locked(ctx, "ensure-running", func(ctx context.Context) error {
		state, err = e.ensureRunningLocked(ctx, only)
		return err
	})
	return state, err
}

func (e *Engine) ensureRunningLocked(ctx context.Context, only string) (RunState, error) {
	targets := e.targets(only)
	if len(targets) == 0 {
		return NoInstance, nil
	}

	state := Running
	for _, t := range targets {
		if t.IsRunning() {
			continue
		}

		log.Infof("player %s is not running, recreating it", t.Name())
		if err := t.Recreate(ctx); err != nil {
			e.logTransportError("recreate", err, []Transport{t})
			return state, newError(CodeTransport, err, "recreate %s", t.Name())
		}
		state = Restarted

		if t.Name() == constant.MonitorPlayer {
			// the monitor never plays sound
			if _, err := t.Send(ctx, "set_property", "mute", true); err != nil {
				log.Warnf("mute monitor: %s", err)
			}
		}
	}

	e.syncRunning()
	return state, nil
}

func (e *Engine) syncRunning() {
	main, monitor := e.targets(constant.MainPlayer), e.targets(constant.MonitorPlayer)
	running := func(ts []Transport) bool {
		return len(ts) == 1 && ts[0].IsRunning()
	}

	mainUp, monitorUp := running(main), running(monitor)
	e.update(func(s *PlayerState) {
		s.PlayerRunning = mainUp
		s.MonitorRunning = monitorUp
	})
}

type execOpts struct {
	only     string
	shutdown bool
	// quiet logs failures at debug level
	quiet bool
}

// Send issues a raw command to one output, or all of them when only is empty.
func (e *Engine) Send(ctx context.Context, only string, args ...any) error {
	return e.locked(ctx, "send", func(ctx context.Context) error {
		return e.exec(ctx, execOpts{only: only}, args...)
	})
}

// exec is the choke point of every transport command.
func (e *Engine) exec(ctx context.Context, o execOpts, args ...any) error {
	if len(args) == 0 {
		return newError(CodeInvalidArgument, nil, "empty command")
	}

	return e.fanout(ctx, o, fmt.Sprint(args[0]), func(ctx context.Context, t Transport) error {
		_, err := t.Send(ctx, args...)
		return err
	})
}

// fanout runs fn against the targets concurrently and aggregates their errors.
func (e *Engine) fanout(ctx context.Context, o execOpts, name string, fn func(ctx context.Context, t Transport) error) error {
	if e.shuttingDown.Load() && !o.shutdown {
		return ErrShuttingDown
	}

	targets := e.targets(o.only)
	if len(targets) == 0 {
		return newError(CodeNoInstance, nil, "no player instance %q", o.only)
	}

	p := pool.New().WithContext(ctx)
	for _, t := range targets {
		p.Go(func(ctx context.Context) error {
			if err := fn(ctx, t); err != nil {
				return fmt.Errorf("%s: %w", t.Name(), err)
			}
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		if o.quiet {
			log.Debugf("player command %s failed: %s", name, err)
			return err
		}
		e.logTransportError(name, err, targets)
		return newError(CodeTransport, err, "%s", name)
	}
	return nil
}

func (e *Engine) logTransportError(command string, err error, targets []Transport) {
	fields := map[string]any{"command": command}
	for _, t := range targets {
		fields[t.Name()+"_log"] = strings.Join(t.LogTail(), "\n")
	}
	log.WithFields(fields).Errorf("player command failed: %s", err)
}
