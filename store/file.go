package store

import (
	"context"
	"sync"

	"github.com/kara-engine/kara/filesystem"
	"github.com/metafates/gache"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

type fileData struct {
	Games  map[string]Game    `json:"games"`
	Scores map[string][]Score `json:"scores"`
}

type cache[T any] interface {
	Get() (T, bool, error)
	Set(T) error
}

// File keeps every game and score in a single JSON file.
type File struct {
	mu     sync.Mutex
	cacher cache[*fileData]
}

// NewFile opens the store kept at path.
func NewFile(path string) *File {
	return &File{
		cacher: gache.New[*fileData](&gache.Options{
			Path:       path,
			FileSystem: &filesystem.GacheFs{},
		}),
	}
}

func (f *File) load() (*fileData, error) {
	cached, expired, err := f.cacher.Get()
	if err != nil {
		return nil, err
	}
	if expired || cached == nil {
		cached = &fileData{}
	}
	if cached.Games == nil {
		cached.Games = make(map[string]Game)
	}
	if cached.Scores == nil {
		cached.Scores = make(map[string][]Score)
	}
	return cached, nil
}

func (f *File) modify(fn func(d *fileData)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.load()
	if err != nil {
		return err
	}
	fn(data)
	return f.cacher.Set(data)
}

func (f *File) InsertScores(_ context.Context, scores ...Score) error {
	if len(scores) == 0 {
		return nil
	}
	return f.modify(func(d *fileData) {
		for _, s := range scores {
			d.Scores[s.Game] = append(d.Scores[s.Game], s)
		}
	})
}

func (f *File) TotalScores(_ context.Context, game string) ([]Total, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.load()
	if err != nil {
		return nil, err
	}
	return totals(data.Scores[game]), nil
}

func (f *File) TruncateScores(_ context.Context, game string) error {
	return f.modify(func(d *fileData) {
		delete(d.Scores, game)
	})
}

func (f *File) UpsertGame(_ context.Context, game Game) error {
	return f.modify(func(d *fileData) {
		d.Games[game.Name] = game
	})
}

func (f *File) GetGame(_ context.Context, name string) (mo.Option[Game], error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.load()
	if err != nil {
		return mo.None[Game](), err
	}
	return lo.Ternary(
		lo.HasKey(data.Games, name),
		mo.Some(data.Games[name]),
		mo.None[Game](),
	), nil
}

func (f *File) Close() error {
	return nil
}
