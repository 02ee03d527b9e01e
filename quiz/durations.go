package quiz

import (
	"math"
	"time"

	"github.com/kara-engine/kara/util"
)

// revealFloor is the shortest reveal a round gets when the song allows it.
const revealFloor = 10.0

// Durations are the phases of one round.
type Durations struct {
	// Start is the position in seconds the song starts from.
	Start  float64
	Guess  time.Duration
	Quick  time.Duration
	Reveal time.Duration
}

// ComputeDurations fits the configured phases into a song of songDuration seconds.
// When the song leaves too little room to reveal the answer, the start is pulled
// earlier and then the guess shrinks so the reveal keeps at least ten seconds.
func ComputeDurations(songDuration float64, ts TimeSettings) Durations {
	dur := math.Max(songDuration, 0)
	start := math.Floor(dur * float64(ts.WhenToStartSong) / 100)
	guess := float64(ts.GuessingTime)
	quick := math.Min(float64(ts.QuickGuessingTime), guess)
	reveal := float64(ts.AnswerTime)

	possible := dur - (start + guess)
	switch {
	case possible < reveal && possible < revealFloor:
		start = math.Max(0, dur-guess-revealFloor)
		if dur-start-guess < revealFloor {
			shrunk := math.Max(0, dur-revealFloor)
			if guess > 0 {
				quick = quick * shrunk / guess
			}
			guess = shrunk
		}
		reveal = math.Min(revealFloor, dur-start-guess)
	case possible < reveal:
		reveal = possible
	}

	return Durations{
		Start:  start,
		Guess:  util.Seconds(guess),
		Quick:  util.Seconds(quick),
		Reveal: util.Seconds(math.Max(reveal, 0)),
	}
}
