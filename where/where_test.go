package where

import (
	"path/filepath"
	"testing"

	"github.com/kara-engine/kara/filesystem"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestPaths(t *testing.T) {
	Convey("Path functions", t, func() {
		Convey("Config()", func() {
			path := Config()
			So(path, ShouldNotBeEmpty)
			So(lo.Must(filesystem.API().IsDir(path)), ShouldBeTrue)
		})

		Convey("Logs() and Data() live under the config directory", func() {
			So(filepath.Dir(Logs()), ShouldEqual, Config())
			So(filepath.Dir(Data()), ShouldEqual, Config())
			So(lo.Must(filesystem.API().IsDir(Logs())), ShouldBeTrue)
		})

		Convey("Scores() is a file path that is not created eagerly", func() {
			So(filepath.Ext(Scores()), ShouldEqual, ".json")
			So(lo.Must(filesystem.API().Exists(Scores())), ShouldBeFalse)
		})

		Convey("Playlists() lives under Data()", func() {
			So(filepath.Dir(Playlists()), ShouldEqual, Data())
		})

		Convey("Sockets()", func() {
			So(lo.Must(filesystem.API().IsDir(Sockets())), ShouldBeTrue)
		})
	})
}
