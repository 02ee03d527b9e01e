package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/kara-engine/kara/filesystem"
	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

func exercise(s Store) {
	ctx := context.Background()

	Convey("Scores are summed per login, highest first", func() {
		So(s.InsertScores(ctx,
			Score{ID: "1", Game: "g", Login: "alice", Points: 2, QuickPoints: 1},
			Score{ID: "2", Game: "g", Login: "bob", Points: 1},
			Score{ID: "3", Game: "g", Login: "bob", Points: 0},
			Score{ID: "4", Game: "other", Login: "carol", Points: 9},
		), ShouldBeNil)

		totals, err := s.TotalScores(ctx, "g")
		So(err, ShouldBeNil)
		So(totals, ShouldResemble, []Total{{Login: "alice", Points: 3}, {Login: "bob", Points: 1}})

		Convey("Truncation only affects the game", func() {
			So(s.TruncateScores(ctx, "g"), ShouldBeNil)

			totals, err := s.TotalScores(ctx, "g")
			So(err, ShouldBeNil)
			So(totals, ShouldBeEmpty)

			totals, err = s.TotalScores(ctx, "other")
			So(err, ShouldBeNil)
			So(totals, ShouldHaveLength, 1)
		})
	})

	Convey("Inserting nothing is a no-op", func() {
		So(s.InsertScores(ctx), ShouldBeNil)
	})

	Convey("Games round trip", func() {
		game, err := s.GetGame(ctx, "missing")
		So(err, ShouldBeNil)
		So(game.IsAbsent(), ShouldBeTrue)

		So(s.UpsertGame(ctx, Game{Name: "g", Settings: json.RawMessage(`{"playlist":"p"}`)}), ShouldBeNil)
		So(s.UpsertGame(ctx, Game{Name: "g", Settings: json.RawMessage(`{"playlist":"q"}`)}), ShouldBeNil)

		game, err = s.GetGame(ctx, "g")
		So(err, ShouldBeNil)
		So(string(game.MustGet().Settings), ShouldEqual, `{"playlist":"q"}`)
	})
}

func TestFile(t *testing.T) {
	Convey("Given a file store", t, func() {
		_ = filesystem.API().RemoveAll("/scores")
		s := NewFile("/scores/scores.json")
		exercise(s)
	})
}

func TestRedis(t *testing.T) {
	Convey("Given a redis store", t, func() {
		mr, err := miniredis.Run()
		So(err, ShouldBeNil)
		defer mr.Close()

		s := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
		defer s.Close()

		exercise(s)

		Convey("Rows keep their insertion order", func() {
			ctx := context.Background()
			So(s.InsertScores(ctx,
				Score{ID: "a", Game: "h", Login: "x"},
				Score{ID: "b", Game: "h", Login: "y"},
			), ShouldBeNil)

			rows, err := s.Scores(ctx, "h")
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 2)
			So(rows[0].ID, ShouldEqual, "a")
		})
	})
}
