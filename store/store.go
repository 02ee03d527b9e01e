// Package store persists quiz scores and games.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/kara-engine/kara/key"
	"github.com/kara-engine/kara/where"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/viper"
)

// Score is one answer given during a round. Unmatched answers score zero.
type Score struct {
	ID          string    `json:"id"`
	Game        string    `json:"game"`
	Login       string    `json:"login"`
	KID         string    `json:"kid"`
	Answer      string    `json:"answer"`
	Category    string    `json:"category,omitempty"`
	Points      int       `json:"points"`
	QuickPoints int       `json:"quickPoints"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Total is the sum of a player's points over a game.
type Total struct {
	Login  string `json:"login"`
	Points int    `json:"points"`
}

// Game is a persisted game: its settings and the state needed to resume it.
type Game struct {
	Name      string          `json:"name"`
	Settings  json.RawMessage `json:"settings"`
	State     json.RawMessage `json:"state"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Store is the persistence collaborator of the quiz.
type Store interface {
	InsertScores(ctx context.Context, scores ...Score) error
	// TotalScores returns the totals of a game, highest first.
	TotalScores(ctx context.Context, game string) ([]Total, error)
	TruncateScores(ctx context.Context, game string) error
	UpsertGame(ctx context.Context, game Game) error
	GetGame(ctx context.Context, name string) (mo.Option[Game], error)
	Close() error
}

// Open builds the configured store.
func Open() (Store, error) {
	switch backend := viper.GetString(key.StoreBackend); backend {
	case "file", "":
		return NewFile(where.Scores()), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     viper.GetString(key.StoreRedisAddr),
			Password: viper.GetString(key.StoreRedisPassword),
			DB:       viper.GetInt(key.StoreRedisDB),
		})
		return NewRedis(client), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

// totals sums points per login and sorts them, highest first then by login.
func totals(scores []Score) []Total {
	sums := make(map[string]int)
	for _, s := range scores {
		sums[s.Login] += s.Points + s.QuickPoints
	}

	out := lo.MapToSlice(sums, func(login string, points int) Total {
		return Total{Login: login, Points: points}
	})
	sortTotals(out)
	return out
}

func sortTotals(t []Total) {
	sort.Slice(t, func(i, j int) bool {
		if t[i].Points != t[j].Points {
			return t[i].Points > t[j].Points
		}
		return t[i].Login < t[j].Login
	})
}
