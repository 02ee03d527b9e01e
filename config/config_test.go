package config

import (
	"testing"

	"github.com/kara-engine/kara/filesystem"
	"github.com/kara-engine/kara/key"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestSetup(t *testing.T) {
	Convey("Config Setup", t, func() {
		Convey("Should initialize without error", func() {
			err := Setup()
			So(err, ShouldBeNil)
		})

		Convey("Should have default values populated", func() {
			_ = Setup()
			for name := range Default {
				So(viper.Get(name), ShouldNotBeNil)
			}
			So(viper.GetString(key.PlayerBinary), ShouldEqual, "mpv")
			So(viper.GetInt(key.QuizSimilarity), ShouldEqual, 65)
		})

		Convey("EnvKeyReplacer should convert dots to underscores", func() {
			result := EnvKeyReplacer.Replace("player.audio_device")
			So(result, ShouldEqual, "player_audio_device")
		})

		Convey("Env should prefix the application name", func() {
			f := Default[key.StoreBackend]
			So(f.Env(), ShouldEqual, "KARA_STORE_BACKEND")
		})
	})
}
