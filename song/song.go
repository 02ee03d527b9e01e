// Package song defines the playable song model shared by the player engine and the quiz.
package song

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Song is a karaoke entry as handed to the engine by the playlist layer.
type Song struct {
	KID          string            `json:"kid"`
	Title        string            `json:"title"`
	Titles       map[string]string `json:"titles,omitempty"`
	TitleAliases []string          `json:"titles_aliases,omitempty"`
	Year         int               `json:"year,omitempty"`
	Duration     float64           `json:"duration"`
	MediaFile    string            `json:"mediafile"`
	MediaSize    int64             `json:"mediasize,omitempty"`
	SubFile      string            `json:"subfile,omitempty"`
	Repository   string            `json:"repository,omitempty"`
	Tags         map[TagType][]Tag `json:"tags,omitempty"`
	Loudnorm     string            `json:"loudnorm,omitempty"`
	RequestedBy  string            `json:"requested_by,omitempty"`
	Avatar       string            `json:"avatar,omitempty"`
}

// DurationTime returns the song duration as a time.Duration.
func (s *Song) DurationTime() time.Duration {
	return time.Duration(s.Duration * float64(time.Second))
}

var audioOnly = []string{".mp3", ".m4a", ".ogg", ".flac", ".opus", ".wav"}

// HasVideo reports whether the media file carries a video track.
func (s *Song) HasVideo() bool {
	return !lo.Contains(audioOnly, strings.ToLower(filepath.Ext(s.MediaFile)))
}

// TagNames returns the display names of the tags of the given type.
func (s *Song) TagNames(t TagType, lang string) []string {
	return lo.Map(s.Tags[t], func(tag Tag, _ int) string {
		return tag.Localized(lang)
	})
}

// LocalizedTitle returns the title in lang, falling back to the default title.
func (s *Song) LocalizedTitle(lang string) string {
	if t, ok := s.Titles[lang]; ok && t != "" {
		return t
	}
	return s.Title
}

// InfoText composes the song information shown when the song starts:
// series (or singers) on the first line, song type and title on the second.
func (s *Song) InfoText(lang string) string {
	head := s.TagNames(Series, lang)
	if len(head) == 0 {
		head = s.TagNames(Singers, lang)
	}

	var b strings.Builder
	if len(head) > 0 {
		b.WriteString(strings.Join(head, ", "))
		b.WriteString("\n")
	}

	if types := s.TagNames(SongTypes, lang); len(types) > 0 {
		b.WriteString(strings.Join(types, " "))
		b.WriteString(" - ")
	}
	b.WriteString(s.LocalizedTitle(lang))

	if s.Year > 0 {
		b.WriteString(fmt.Sprintf(" (%d)", s.Year))
	}
	return b.String()
}
