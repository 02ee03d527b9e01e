package playlist

import (
	"context"
	"slices"
	"sync"

	"github.com/kara-engine/kara/song"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Queue is the list of songs played one after the other outside of quiz games.
type Queue struct {
	mu      sync.Mutex
	pending []*song.Song
	played  []*song.Song
}

// NewQueue creates a queue holding songs.
func NewQueue(songs ...*song.Song) *Queue {
	return &Queue{pending: slices.Clone(songs)}
}

// Next pops the next song, None once the queue is empty.
func (q *Queue) Next(context.Context) (mo.Option[*song.Song], error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return mo.None[*song.Song](), nil
	}
	next := q.pending[0]
	q.pending = q.pending[1:]
	q.played = append(q.played, next)
	return mo.Some(next), nil
}

// Add appends songs to the queue.
func (q *Queue) Add(songs ...*song.Song) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, lo.Filter(songs, func(s *song.Song, _ int) bool { return s != nil })...)
}

// Pending returns the songs still to play.
func (q *Queue) Pending() []*song.Song {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.pending)
}

// Played returns the songs already handed to the player.
func (q *Queue) Played() []*song.Song {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.played)
}

// Clear empties the queue.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = nil
}
