// Package playlist supplies songs to the player: named playlist files for quiz
// games and the queue played outside of them.
package playlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kara-engine/kara/filesystem"
	"github.com/kara-engine/kara/song"
	"github.com/kara-engine/kara/util"
	"github.com/samber/lo"
)

// ErrNotFound is returned for a playlist with no file.
var ErrNotFound = errors.New("playlist not found")

// Library reads playlists kept as <name>.json files of songs in a directory.
type Library struct {
	dir string
}

// NewLibrary reads playlists from dir.
func NewLibrary(dir string) *Library {
	return &Library{dir: dir}
}

func (l *Library) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid playlist name %q", name)
	}
	return filepath.Join(l.dir, name+".json"), nil
}

// Songs returns the songs of the named playlist, without duplicates.
func (l *Library) Songs(_ context.Context, name string) ([]*song.Song, error) {
	path, err := l.path(name)
	if err != nil {
		return nil, err
	}

	data, err := filesystem.API().ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}

	var songs []*song.Song
	if err := json.Unmarshal(data, &songs); err != nil {
		return nil, fmt.Errorf("decode playlist %s: %w", name, err)
	}

	songs = lo.Filter(songs, func(s *song.Song, _ int) bool { return s != nil && s.KID != "" })
	return lo.UniqBy(songs, func(s *song.Song) string { return s.KID }), nil
}

// Save writes the named playlist.
func (l *Library) Save(name string, songs []*song.Song) error {
	path, err := l.path(name)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(songs, "", "  ")
	if err != nil {
		return err
	}
	if err := filesystem.API().MkdirAll(l.dir, os.ModePerm); err != nil {
		return err
	}
	return filesystem.API().WriteFile(path, data, 0644)
}

// Names lists the playlists of the library.
func (l *Library) Names() ([]string, error) {
	files, err := filesystem.API().ReadDir(l.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	return lo.FilterMap(files, func(f os.FileInfo, _ int) (string, bool) {
		return util.FileStem(f.Name()), !f.IsDir() && filepath.Ext(f.Name()) == ".json"
	}), nil
}
