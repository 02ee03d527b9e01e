package engine

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kara-engine/kara/log"
	"github.com/kara-engine/kara/media"
	"github.com/kara-engine/kara/overlay"
	"github.com/kara-engine/kara/timer"
)

const progressWidth = 20

// startProgress runs fn in the progress slot, cancelling whatever ran there.
func (e *Engine) startProgress(fn func(ctx context.Context)) {
	e.progressMu.Lock()
	defer e.progressMu.Unlock()

	if e.progressCancel != nil {
		e.progressCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.progressCancel = cancel
	go fn(ctx)
}

func (e *Engine) cancelProgress() {
	e.progressMu.Lock()
	defer e.progressMu.Unlock()

	if e.progressCancel != nil {
		e.progressCancel()
		e.progressCancel = nil
	}
}

// ticks calls render every interval until t elapses, alive turns false or ctx ends.
// render is always called one last time with zero when t elapses.
func ticks(ctx context.Context, t *timer.Timer, interval time.Duration, alive func() bool, render func(left time.Duration)) {
	for {
		if !alive() {
			return
		}

		left := t.TimeLeft()
		render(left)
		if left <= 0 {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-t.Done():
		case <-time.After(min(interval, left)):
		}
	}
}

// ProgressBar renders elapsed/total as block characters.
func ProgressBar(total, left time.Duration) string {
	if total <= 0 {
		return strings.Repeat("█", progressWidth)
	}
	done := int(math.Round(float64(total-left) / float64(total) * progressWidth))
	done = min(max(done, 0), progressWidth)
	return strings.Repeat("█", done) + strings.Repeat("░", progressWidth-done)
}

// startStreamerPauseLocked shows the pause screen with a progress bar, then plays the next song.
func (e *Engine) startStreamerPauseLocked(ctx context.Context) error {
	if err := e.stopLocked(ctx, media.Pause); err != nil {
		log.Warnf("pause screen: %s", err)
	}
	e.update(func(st *PlayerState) { st.StreamerPause = true })

	total := e.opts.PauseDuration
	t := timer.New(total, true)
	alive := func() bool { return e.State().StreamerPause }

	e.startProgress(func(ctx context.Context) {
		ticks(ctx, t, total/10, alive, func(left time.Duration) {
			e.messages.Add(CategoryPause, "Next song soon\n"+ProgressBar(total, left), overlay.Infinite)
		})

		if ctx.Err() != nil || !t.Finished() || !alive() {
			return
		}
		if err := e.Next(context.Background()); err != nil {
			log.Errorf("next song after pause: %s", err)
		}
	})
	return nil
}

// startCountdown mirrors the round timers into the state and the countdown message every second.
func (e *Engine) startCountdown(round RoundHook) {
	e.startProgress(func(ctx context.Context) {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			if !round.Running() {
				break
			}
			rt := round.Times()
			if !rt.Active {
				break
			}

			e.update(func(st *PlayerState) {
				st.GuessTime = seconds(rt.Guess)
				st.QuickGuess = seconds(rt.Quick)
				st.RevealTime = seconds(rt.Reveal)
			})
			e.messages.Add(CategoryCountdown, countdownText(rt), overlay.Infinite)

			if rt.Phase == "answer" && rt.Reveal <= 0 {
				break
			}

			select {
			case <-ctx.Done():
				// whoever cancelled owns the display now
				return
			case <-ticker.C:
			}
		}

		e.messages.Remove(CategoryCountdown)
		e.update(func(st *PlayerState) {
			st.GuessTime = 0
			st.QuickGuess = 0
			st.RevealTime = 0
		})
	})
}

func countdownText(rt RoundTimes) string {
	if rt.Phase == "answer" {
		return fmt.Sprintf("Next song in %d s", seconds(rt.Reveal))
	}
	if rt.Quick > 0 {
		return fmt.Sprintf("Guess! %d s (quick bonus %d s)", seconds(rt.Guess), seconds(rt.Quick))
	}
	return fmt.Sprintf("Guess! %d s", seconds(rt.Guess))
}

func seconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
