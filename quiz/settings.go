// Package quiz runs the blind-test game played over the karaoke stream.
package quiz

import (
	"strings"

	"github.com/kara-engine/kara/engine"
	"github.com/kara-engine/kara/key"
	"github.com/kara-engine/kara/song"
	"github.com/kara-engine/kara/validate"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Category is a kind of answer a round accepts.
type Category string

const (
	Year  Category = "year"
	Title Category = "title"
)

// Categories lists every category in the order answers are checked against them.
var Categories = append([]Category{Year, Title}, lo.Map(tagOrder, func(t song.TagType, _ int) Category {
	return Category(t)
})...)

var tagOrder = []song.TagType{
	song.Series,
	song.Singers,
	song.SongTypes,
	song.Creators,
	song.Languages,
	song.Authors,
	song.Groups,
	song.Franchises,
	song.Misc,
	song.SingerGroups,
	song.Songwriters,
	song.Families,
	song.Origins,
	song.Genres,
	song.Platforms,
	song.Versions,
}

// TimeSettings are in seconds, except WhenToStartSong which is a percentage of the song.
type TimeSettings struct {
	GuessingTime      int `json:"guessingTime" validate:"min=1,max=600"`
	QuickGuessingTime int `json:"quickGuessingTime" validate:"min=0,ltefield=GuessingTime"`
	AnswerTime        int `json:"answerTime" validate:"min=0,max=600"`
	WhenToStartSong   int `json:"whenToStartSong" validate:"min=0,max=100"`
}

// AcceptedAnswer enables a category and sets what it is worth.
type AcceptedAnswer struct {
	Enabled bool `json:"enabled"`
	Points  int  `json:"points" validate:"required_if=Enabled true,min=0"`
}

type Answers struct {
	Accepted map[Category]AcceptedAnswer `json:"accepted" validate:"dive"`
	// QuickAnswer is the bonus awarded to answers given during the quick guess window.
	QuickAnswer                int `json:"quickAnswer" validate:"min=0"`
	SimilarityPercentageNeeded int `json:"similarityPercentageNeeded" validate:"min=0,max=100"`
}

type MaxScore struct {
	Enabled bool `json:"enabled"`
	Score   int  `json:"score" validate:"required_if=Enabled true,min=0"`
}

type MaxSongs struct {
	Enabled bool `json:"enabled"`
	Songs   int  `json:"songs" validate:"required_if=Enabled true,min=0"`
}

type MaxDuration struct {
	Enabled bool `json:"enabled"`
	Minutes int  `json:"minutes" validate:"required_if=Enabled true,min=0"`
}

// EndGame holds the conditions checked after every reveal.
type EndGame struct {
	MaxScore MaxScore    `json:"maxScore"`
	MaxSongs MaxSongs    `json:"maxSongs"`
	Duration MaxDuration `json:"duration"`
}

// Settings configure a game.
type Settings struct {
	Time      TimeSettings     `json:"time"`
	Answers   Answers          `json:"answers"`
	Modifiers engine.Modifiers `json:"modifiers"`
	EndGame   EndGame          `json:"endGame"`
	// Playlist is the name of the playlist the songs are drawn from.
	Playlist string `json:"playlist"`
}

// DefaultSettings builds settings from the configured quiz defaults.
func DefaultSettings() Settings {
	return Settings{
		Time: TimeSettings{
			GuessingTime:      viper.GetInt(key.QuizGuessTime),
			QuickGuessingTime: viper.GetInt(key.QuizQuickGuessTime),
			AnswerTime:        viper.GetInt(key.QuizAnswerTime),
			WhenToStartSong:   viper.GetInt(key.QuizStartPercent),
		},
		Answers: Answers{
			Accepted: map[Category]AcceptedAnswer{
				Title:                  {Enabled: true, Points: 1},
				Category(song.Series):  {Enabled: true, Points: 1},
				Category(song.Singers): {Enabled: true, Points: 1},
			},
			QuickAnswer:                1,
			SimilarityPercentageNeeded: viper.GetInt(key.QuizSimilarity),
		},
	}
}

var validator = validate.New()

// Validate reports every invalid setting.
func (s Settings) Validate() error {
	fields, _ := validator.Struct(s)
	messages := lo.Map(fields, func(f validate.FieldError, _ int) string { return f.Message })
	if s.Modifiers.Conflict() {
		messages = append(messages, "pitch and speed modifiers cannot be combined")
	}
	if len(messages) == 0 {
		return nil
	}
	return newError(CodeInvalidSettings, nil, "invalid settings: %s", strings.Join(messages, "; "))
}

// enabled returns the enabled categories in checking order.
func (s Settings) enabled() []Category {
	return lo.Filter(Categories, func(c Category, _ int) bool {
		return s.Answers.Accepted[c].Enabled
	})
}
