package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/samber/mo"
)

// Redis keeps games as JSON strings, and per game the score rows in a list
// and the totals in a hash.
type Redis struct {
	rc *redis.Client
}

// NewRedis wraps a connected client.
func NewRedis(rc *redis.Client) *Redis {
	return &Redis{rc: rc}
}

func (r *Redis) gameKey(name string) string {
	return "game:" + name
}

func (r *Redis) scoresKey(game string) string {
	return "game:" + game + ":scores"
}

func (r *Redis) totalsKey(game string) string {
	return "game:" + game + ":totals"
}

func (r *Redis) executePipe(ctx context.Context, pipe redis.Pipeliner) error {
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil {
				return err
			}
		}
		return err
	}
	return nil
}

func (r *Redis) InsertScores(ctx context.Context, scores ...Score) error {
	if len(scores) == 0 {
		return nil
	}

	pipe := r.rc.TxPipeline()
	for _, s := range scores {
		row, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("encode score: %w", err)
		}
		pipe.RPush(ctx, r.scoresKey(s.Game), row)
		pipe.HIncrBy(ctx, r.totalsKey(s.Game), s.Login, int64(s.Points+s.QuickPoints))
	}
	return r.executePipe(ctx, pipe)
}

func (r *Redis) TotalScores(ctx context.Context, game string) ([]Total, error) {
	sums, err := r.rc.HGetAll(ctx, r.totalsKey(game)).Result()
	if err != nil {
		return nil, err
	}

	out := make([]Total, 0, len(sums))
	for login, v := range sums {
		var points int
		if _, err := fmt.Sscan(v, &points); err != nil {
			return nil, fmt.Errorf("total of %s: %w", login, err)
		}
		out = append(out, Total{Login: login, Points: points})
	}
	sortTotals(out)
	return out, nil
}

// Scores returns the rows of a game in insertion order.
func (r *Redis) Scores(ctx context.Context, game string) ([]Score, error) {
	rows, err := r.rc.LRange(ctx, r.scoresKey(game), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	out := make([]Score, 0, len(rows))
	for _, row := range rows {
		var s Score
		if err := json.Unmarshal([]byte(row), &s); err != nil {
			return nil, fmt.Errorf("decode score: %w", err)
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *Redis) TruncateScores(ctx context.Context, game string) error {
	return r.rc.Del(ctx, r.scoresKey(game), r.totalsKey(game)).Err()
}

func (r *Redis) UpsertGame(ctx context.Context, game Game) error {
	data, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("encode game: %w", err)
	}
	return r.rc.Set(ctx, r.gameKey(game.Name), data, 0).Err()
}

func (r *Redis) GetGame(ctx context.Context, name string) (mo.Option[Game], error) {
	data, err := r.rc.Get(ctx, r.gameKey(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return mo.None[Game](), nil
	}
	if err != nil {
		return mo.None[Game](), err
	}

	var game Game
	if err := json.Unmarshal(data, &game); err != nil {
		return mo.None[Game](), fmt.Errorf("decode game %s: %w", name, err)
	}
	return mo.Some(game), nil
}

func (r *Redis) Close() error {
	return r.rc.Close()
}
