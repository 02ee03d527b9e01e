package engine

import (
	"context"
	"math"

	"github.com/kara-engine/kara/log"
	"github.com/kara-engine/kara/mpv"
)

// HandleEvent reconciles the state with what the main output reports.
func (e *Engine) HandleEvent(ev mpv.Event) {
	switch ev.Name {
	case "time-pos":
		pos, ok := ev.Data.(float64)
		if !ok {
			return
		}
		pos = math.Floor(pos)
		if e.State().TimePosition != pos {
			e.update(func(st *PlayerState) { st.TimePosition = pos })
		}

	case "pause":
		paused, ok := ev.Data.(bool)
		if !ok || paused != e.isPlaying() {
			// matches what the engine asked for
			return
		}
		go e.externalPause(paused)

	case "end-file":
		if ev.Reason == "eof" {
			go e.endOfFile()
		}
	}
}

// externalPause follows a pause toggled from the player window itself.
func (e *Engine) externalPause(paused bool) {
	err := e.locked(context.Background(), "external-pause", func(ctx context.Context) error {
		st := e.State()
		_, round := e.hooks()
		quiz := round != nil && round.Running()

		switch {
		case paused && st.PlayerStatus == StatusPlay:
			e.setPlaying(false)
			e.update(func(st *PlayerState) { st.PlayerStatus = StatusPause })
			if quiz {
				round.PauseRound()
			}
		case !paused && st.PlayerStatus == StatusPause:
			e.setPlaying(true)
			e.update(func(st *PlayerState) { st.PlayerStatus = StatusPlay })
			if quiz {
				round.ResumeRound()
			}
		}
		return nil
	})
	if err != nil {
		log.Warnf("external pause: %s", err)
	}
}

// endOfFile moves on once a song or filler played to its end.
// Quiz rounds drive their own transitions.
func (e *Engine) endOfFile() {
	err := e.locked(context.Background(), "end-of-file", func(ctx context.Context) error {
		st := e.State()
		if st.PlayerStatus != StatusPlay || !e.isPlaying() || e.quizRunning() {
			return nil
		}

		if st.MediaType == MediaSong && e.opts.PauseDuration > 0 {
			return e.startStreamerPauseLocked(ctx)
		}
		return e.nextLocked(ctx)
	})
	if err != nil {
		log.Errorf("end of file: %s", err)
	}
}
