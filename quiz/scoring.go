package quiz

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kara-engine/kara/song"
	"github.com/kara-engine/kara/store"
	"github.com/samber/lo"
)

// roundSnapshot is a round frozen at the moment answers close.
type roundSnapshot struct {
	game    string
	song    *song.Song
	answers []Answer
}

// score matches every answer of the snapshot. Every answer yields a row,
// matched ones a winner too.
func score(settings Settings, snap roundSnapshot, now time.Time) ([]Winner, []store.Score) {
	categories := settings.enabled()
	threshold := settings.Answers.SimilarityPercentageNeeded

	var (
		winners []Winner
		rows    []store.Score
	)
	for _, a := range snap.answers {
		row := store.Score{
			ID:        uuid.NewString(),
			Game:      snap.game,
			Login:     a.Login,
			KID:       snap.song.KID,
			Answer:    a.Answer,
			CreatedAt: now,
		}

		category, ok := lo.Find(categories, func(c Category) bool {
			return matches(c, snap.song, a.Answer, threshold)
		})
		if ok {
			w := Winner{
				Login:    a.Login,
				Answer:   a.Answer,
				Category: category,
				Points:   settings.Answers.Accepted[category].Points,
			}
			if a.Quick {
				w.QuickPoints = settings.Answers.QuickAnswer
			}
			winners = append(winners, w)

			row.Category = string(category)
			row.Points = w.Points
			row.QuickPoints = w.QuickPoints
		}
		rows = append(rows, row)
	}

	return winners, rows
}

// matches reports whether answer designates the song in category c.
func matches(c Category, s *song.Song, answer string, threshold int) bool {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return false
	}

	switch c {
	case Year:
		year, err := strconv.Atoi(answer)
		return err == nil && s.Year > 0 && year == s.Year
	case Title:
		if answer == s.KID {
			return true
		}
		candidates := append([]string{s.Title}, lo.Values(s.Titles)...)
		return similar(answer, threshold, append(candidates, s.TitleAliases...)...)
	default:
		return lo.SomeBy(s.Tags[song.TagType(c)], func(t song.Tag) bool {
			if answer == t.TID {
				return true
			}
			candidates := append([]string{t.Name}, lo.Values(t.I18n)...)
			return similar(answer, threshold, append(candidates, t.Aliases...)...)
		})
	}
}

// audienceAnswer reduces the audience votes to their most frequent answer.
// Ties go to the vote submitted first.
func audienceAnswer(votes map[string]Answer) (Answer, bool) {
	if len(votes) == 0 {
		return Answer{}, false
	}

	counts := make(map[string]int)
	first := make(map[string]Answer)
	for _, v := range votes {
		n := normalize(v.Answer)
		if n == "" {
			continue
		}
		counts[n]++
		if f, ok := first[n]; !ok || v.At.Before(f.At) {
			first[n] = v
		}
	}
	if len(counts) == 0 {
		return Answer{}, false
	}

	best := lo.MaxBy(lo.Keys(counts), func(a, b string) bool {
		if counts[a] != counts[b] {
			return counts[a] > counts[b]
		}
		return first[a].At.Before(first[b].At)
	})
	return Answer{Login: Audience, Answer: first[best].Answer, At: first[best].At}, true
}
