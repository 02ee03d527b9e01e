package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kara-engine/kara/constant"
	"github.com/kara-engine/kara/log"
	"github.com/kara-engine/kara/media"
	"github.com/kara-engine/kara/mpv"
	"github.com/kara-engine/kara/song"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/sourcegraph/conc/pool"
)

const loadAttempts = 3

// Message categories.
const (
	CategoryInfo      = "info"
	CategorySong      = "song"
	CategoryQuiz      = "quiz"
	CategoryPause     = "pause"
	CategoryCountdown = "countdown"
)

const fallbackMessageDuration = 10 * time.Second

// Play loads a song, starting at startOffset seconds with the given modifiers.
func (e *Engine) Play(ctx context.Context, s *song.Song, mods Modifiers, startOffset float64) error {
	if s == nil {
		return newError(CodeInvalidArgument, nil, "no song to play")
	}
	if mods.Conflict() {
		return modifiersConflict()
	}

	return e.locked(ctx, "play", func(ctx context.Context) error {
		return e.playLocked(ctx, s, mods, startOffset)
	})
}

func (e *Engine) playLocked(ctx context.Context, s *song.Song, mods Modifiers, startOffset float64) error {
	if _, err := e.ensureRunningLocked(ctx, ""); err != nil {
		return err
	}
	e.cancelProgress()

	var (
		graph    string
		subtitle mo.Option[string]
		file     string
	)

	p := pool.New().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		graph = e.filterGraph(ctx, s, mods, startOffset)
		return nil
	})
	p.Go(func(ctx context.Context) error {
		subtitle = e.resolver.Subtitle(ctx, s)
		return nil
	})
	p.Go(func(ctx context.Context) error {
		var err error
		file, err = e.resolver.Media(ctx, s)
		return err
	})

	if err := p.Wait(); err != nil {
		log.Errorf("resolve %s: %s", s.KID, err)
		e.fallbackLocked(ctx, fmt.Sprintf("Cannot play %s", s.LocalizedTitle(e.opts.Lang)))
		if errors.Is(err, media.ErrMediaNotFound) {
			return newError(CodeMediaNotFound, err, "play %s", s.KID)
		}
		return newError(CodeTransport, err, "play %s", s.KID)
	}

	opts := mpv.LoadOptions{
		Title:        s.LocalizedTitle(e.opts.Lang),
		LavfiComplex: graph,
		SubFile:      subtitle.OrEmpty(),
		StartOffset:  startOffset,
	}
	if !s.HasVideo() {
		opts.ExternalImage = e.resolver.Background(media.Stop)
	}

	if err := e.loadWithRetry(ctx, file, opts); err != nil {
		e.fallbackLocked(ctx, fmt.Sprintf("Cannot play %s", s.LocalizedTitle(e.opts.Lang)))
		return err
	}

	e.setPlaying(true)
	e.update(func(st *PlayerState) {
		st.CurrentSong = s
		st.CurrentMedia = nil
		st.MediaType = MediaSong
		st.PlayerStatus = StatusPlay
		st.CurrentVideoTrack = 1
		st.TimePosition = startOffset
		st.Pitch = mods.Pitch
		st.Speed = lo.Ternary(mods.Speed == 0, 100, mods.Speed)
		st.StreamerPause = false
	})

	if err := e.applyModifiersLocked(ctx, mods); err != nil {
		log.Warnf("apply modifiers to %s: %s", s.KID, err)
	}

	e.messages.RemoveMany(CategoryQuiz, CategoryPause, CategoryCountdown, CategoryInfo)
	if e.opts.SongInfo && !e.quizRunning() {
		e.messages.Add(CategorySong, s.InfoText(e.opts.Lang), e.opts.InfoDuration)
	} else {
		e.messages.Remove(CategorySong)
	}

	log.Infof("playing %s (%s)", s.KID, file)
	return nil
}

// filterGraph builds the song graph, degrading to loudness normalization alone.
func (e *Engine) filterGraph(ctx context.Context, s *song.Song, mods Modifiers, start float64) string {
	opts := media.GraphOptions{
		Loudnorm: e.opts.Loudnorm,
		Start:    start,
		Pitch:    mods.Pitch,
		Speed:    mods.Speed,
	}
	if e.opts.Avatar && s.Avatar != "" {
		opts.Avatar = s.Avatar
	}

	graph, err := media.BuildFilterGraph(ctx, s, opts)
	if err == nil {
		return graph
	}

	log.Warnf("filter graph of %s: %s", s.KID, err)
	graph, err = media.BuildFilterGraph(ctx, s, media.GraphOptions{Loudnorm: e.opts.Loudnorm})
	if err != nil {
		return ""
	}
	return graph
}

// loadWithRetry loads file on every output, retrying failures immediately.
func (e *Engine) loadWithRetry(ctx context.Context, file string, opts mpv.LoadOptions) error {
	var err error
	for attempt := 1; attempt <= loadAttempts; attempt++ {
		err = e.fanout(ctx, execOpts{}, "loadfile", func(ctx context.Context, t Transport) error {
			return t.Play(ctx, file, opts)
		})
		if err == nil || errors.Is(err, ErrShuttingDown) || ctx.Err() != nil {
			return err
		}
		log.Warnf("load %s failed (attempt %d/%d): %s", file, attempt, loadAttempts, err)
	}
	return err
}

// fallbackLocked leaves the player on the stop screen with an explanation.
func (e *Engine) fallbackLocked(ctx context.Context, text string) {
	if err := e.stopLocked(ctx, media.Stop); err != nil {
		log.Warnf("fallback to stop screen: %s", err)
	}
	e.messages.Add(CategoryInfo, text, fallbackMessageDuration)
}

// PlayMedia plays a filler of the given kind, or moves on to the next song when none exists.
func (e *Engine) PlayMedia(ctx context.Context, kind media.Kind) error {
	if !media.IsFiller(kind) {
		return newError(CodeInvalidArgument, nil, "%q is not a filler kind", kind)
	}

	return e.locked(ctx, "play-media", func(ctx context.Context) error {
		return e.playMediaLocked(ctx, kind)
	})
}

func (e *Engine) playMediaLocked(ctx context.Context, kind media.Kind) error {
	if _, err := e.ensureRunningLocked(ctx, ""); err != nil {
		return err
	}
	e.cancelProgress()

	file, ok := e.resolver.Filler(kind).Get()
	if !ok {
		log.Infof("no %s available", kind)
		e.messages.Add(CategoryInfo, fmt.Sprintf("No %s available", kind), 5*time.Second)
		return e.nextLocked(ctx)
	}

	graph, _ := media.BuildFilterGraph(ctx, &song.Song{KID: string(kind)}, media.GraphOptions{Loudnorm: e.opts.Loudnorm})
	if err := e.loadWithRetry(ctx, file, mpv.LoadOptions{Title: string(kind), LavfiComplex: graph}); err != nil {
		e.fallbackLocked(ctx, fmt.Sprintf("Cannot play %s", kind))
		return err
	}

	e.setPlaying(true)
	e.update(func(st *PlayerState) {
		st.CurrentSong = nil
		st.CurrentMedia = &Media{Kind: kind, File: file}
		st.MediaType = kind
		st.PlayerStatus = StatusPlay
		st.TimePosition = 0
		st.StreamerPause = false
	})
	e.messages.RemoveMany(CategorySong, CategoryPause)
	return nil
}

// Stop shows the background of the given kind and resets playback fields.
func (e *Engine) Stop(ctx context.Context, background media.Kind) error {
	return e.locked(ctx, "stop", func(ctx context.Context) error {
		return e.stopLocked(ctx, background)
	})
}

func (e *Engine) stopLocked(ctx context.Context, background media.Kind) error {
	if background == "" {
		background = media.Stop
	}

	e.cancelProgress()
	e.setPlaying(false)
	e.messages.Clear()

	var err error
	if image := e.resolver.Background(background); image != "" {
		err = e.fanout(ctx, execOpts{}, "loadfile", func(ctx context.Context, t Transport) error {
			return t.Play(ctx, image, mpv.LoadOptions{
				Title: string(background),
				Extra: map[string]string{"image-display-duration": "inf"},
			})
		})
	} else {
		err = e.exec(ctx, execOpts{}, "stop")
	}

	e.update(func(st *PlayerState) {
		st.MediaType = background
		st.PlayerStatus = StatusStop
		st.CurrentSong = nil
		st.CurrentMedia = nil
		st.TimePosition = 0
		st.StreamerPause = false
		st.GuessTime = 0
		st.QuickGuess = 0
		st.RevealTime = 0
	})
	return err
}

// Pause pauses playback, and the running quiz round with it.
func (e *Engine) Pause(ctx context.Context) error {
	return e.locked(ctx, "pause", e.pauseLocked)
}

func (e *Engine) pauseLocked(ctx context.Context) error {
	if e.State().PlayerStatus != StatusPlay {
		return nil
	}

	e.setPlaying(false)
	if err := e.exec(ctx, execOpts{}, "set_property", "pause", true); err != nil {
		e.setPlaying(true)
		return err
	}

	e.update(func(st *PlayerState) { st.PlayerStatus = StatusPause })
	if _, r := e.hooks(); r != nil && r.Running() {
		r.PauseRound()
	}
	return nil
}

// Resume resumes a paused playback, or starts the next song when stopped.
func (e *Engine) Resume(ctx context.Context) error {
	return e.locked(ctx, "resume", e.resumeLocked)
}

func (e *Engine) resumeLocked(ctx context.Context) error {
	switch e.State().PlayerStatus {
	case StatusPlay:
		return nil
	case StatusStop:
		return e.nextLocked(ctx)
	}

	e.setPlaying(true)
	if err := e.exec(ctx, execOpts{}, "set_property", "pause", false); err != nil {
		e.setPlaying(false)
		return err
	}

	e.update(func(st *PlayerState) { st.PlayerStatus = StatusPlay })
	if _, r := e.hooks(); r != nil && r.Running() {
		r.ResumeRound()
	}
	return nil
}

// Seek moves by delta seconds from the current position.
func (e *Engine) Seek(ctx context.Context, delta float64) error {
	return e.locked(ctx, "seek", func(ctx context.Context) error {
		return e.goToLocked(ctx, e.State().TimePosition+delta)
	})
}

// GoTo jumps to an absolute position in seconds. Past the end of the song it plays the next one.
func (e *Engine) GoTo(ctx context.Context, position float64) error {
	return e.locked(ctx, "goto", func(ctx context.Context) error {
		return e.goToLocked(ctx, position)
	})
}

func (e *Engine) goToLocked(ctx context.Context, position float64) error {
	st := e.State()
	if st.PlayerStatus == StatusStop {
		return newError(CodeInvalidArgument, nil, "nothing is playing")
	}

	if st.CurrentSong != nil && st.CurrentSong.Duration > 0 && position >= st.CurrentSong.Duration {
		return e.nextLocked(ctx)
	}

	position = max(position, 0)
	if err := e.exec(ctx, execOpts{}, "seek", position, "absolute"); err != nil {
		return err
	}
	e.update(func(st *PlayerState) { st.TimePosition = position })
	return nil
}

// Next plays the next song of the quiz or of the sequencer.
func (e *Engine) Next(ctx context.Context) error {
	return e.locked(ctx, "next", e.nextLocked)
}

func (e *Engine) nextLocked(ctx context.Context) error {
	e.cancelProgress()

	sequencer, round := e.hooks()
	if round != nil && round.Running() {
		return e.nextRoundLocked(ctx, round)
	}

	next := mo.None[*song.Song]()
	if sequencer != nil {
		var err error
		if next, err = sequencer.Next(ctx); err != nil {
			return fmt.Errorf("next song: %w", err)
		}
	}

	s, ok := next.Get()
	if !ok {
		e.endOfPlaylistLocked(ctx)
		return nil
	}
	return e.playLocked(ctx, s, Modifiers{}, 0)
}

// nextRoundLocked plays the next quiz round. A song that cannot be played is
// skipped for the rest of the game and another one is drawn.
func (e *Engine) nextRoundLocked(ctx context.Context, round RoundHook) error {
	for {
		next, err := round.NextSong(ctx)
		if err != nil {
			return fmt.Errorf("next song: %w", err)
		}
		s, ok := next.Get()
		if !ok {
			e.endOfPlaylistLocked(ctx)
			return nil
		}

		plan := round.PrepareRound(s)
		err = e.playLocked(ctx, s, plan.Modifiers, plan.Start)
		if err == nil {
			round.StartRound(context.WithoutCancel(ctx))
			e.startCountdown(round)
			return nil
		}

		round.SkipRound(s)
		if ctx.Err() != nil || errors.Is(err, ErrShuttingDown) || CodeOf(err) == CodeModifiersConflict {
			return err
		}
		log.Warnf("skipping %s: %s", s.KID, err)
	}
}

func (e *Engine) endOfPlaylistLocked(ctx context.Context) {
	if err := e.stopLocked(ctx, media.Stop); err != nil {
		log.Warnf("stop at end of playlist: %s", err)
	}
	e.messages.Add(CategoryInfo, "End of playlist", fallbackMessageDuration)
}

// Reveal lifts the quiz modifiers hiding the song.
func (e *Engine) Reveal(ctx context.Context) error {
	return e.locked(ctx, "reveal", func(ctx context.Context) error {
		st := e.State()
		return e.applyModifiersLocked(ctx, Modifiers{Pitch: st.Pitch, Speed: st.Speed})
	})
}

// Restart reconciles the monitor output with the configuration and recreates every output.
func (e *Engine) Restart(ctx context.Context) error {
	return e.locked(ctx, "restart", func(ctx context.Context) error {
		want := e.monitorWanted()
		_, has := lo.Find(e.targets(""), func(t Transport) bool { return t.Name() == constant.MonitorPlayer })

		switch {
		case want && !has:
			e.addInstance(constant.MonitorPlayer)
		case !want && has:
			if t, ok := e.removeInstance(constant.MonitorPlayer); ok {
				if err := t.Destroy(ctx); err != nil {
					log.Warnf("destroy monitor: %s", err)
				}
			}
		}

		for _, t := range e.targets("") {
			if err := t.Destroy(ctx); err != nil {
				log.Warnf("destroy %s: %s", t.Name(), err)
			}
		}
		if _, err := e.ensureRunningLocked(ctx, ""); err != nil {
			return err
		}

		st := e.State()
		if st.CurrentSong != nil && st.PlayerStatus != StatusStop {
			return e.playLocked(ctx, st.CurrentSong, Modifiers{Pitch: st.Pitch, Speed: st.Speed}, st.TimePosition)
		}
		return e.stopLocked(ctx, lo.Ternary(media.IsFiller(st.MediaType), media.Stop, st.MediaType))
	})
}

const quitLockWait = 5 * time.Second

// Quit shuts every output down. It proceeds without the lock when an operation is stuck.
func (e *Engine) Quit(ctx context.Context) error {
	e.shuttingDown.Store(true)

	lockCtx, cancel := context.WithTimeout(ctx, quitLockWait)
	held := e.acquire(lockCtx) == nil
	cancel()
	if held {
		defer e.release()
	} else {
		log.Warn("quitting without the player lock")
	}

	e.cancelProgress()
	e.comments.Close()

	if err := e.exec(ctx, execOpts{shutdown: true}, "quit"); err != nil {
		log.Debugf("quit command: %s", err)
	}

	var errs []error
	for _, t := range e.targets("") {
		e.removeInstance(t.Name())
		if err := t.Destroy(ctx); err != nil {
			errs = append(errs, fmt.Errorf("destroy %s: %w", t.Name(), err))
		}
	}

	e.setPlaying(false)
	e.update(func(st *PlayerState) {
		st.PlayerRunning = false
		st.MonitorRunning = false
		st.PlayerStatus = StatusStop
		st.CurrentSong = nil
		st.CurrentMedia = nil
	})
	return errors.Join(errs...)
}
