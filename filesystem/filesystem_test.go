package filesystem

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestApi(t *testing.T) {
	Convey("Filesystem API", t, func() {
		Convey("Should default to OsFs", func() {
			SetOsFs()
			So(API().Name(), ShouldEqual, "OsFs")
		})

		Convey("Should switch to MemMapFs", func() {
			SetMemMapFs()
			So(API().Name(), ShouldEqual, "MemMapFS")
		})
	})
}

func TestFiles(t *testing.T) {
	Convey("Given a directory with files and a subdirectory", t, func() {
		SetMemMapFs()
		So(API().MkdirAll("/jingles/nested", 0o755), ShouldBeNil)
		So(API().WriteFile("/jingles/a.mp4", []byte("a"), 0o644), ShouldBeNil)
		So(API().WriteFile("/jingles/b.webm", []byte("b"), 0o644), ShouldBeNil)

		Convey("Files lists only regular files", func() {
			files := Files("/jingles")
			So(files, ShouldHaveLength, 2)
			So(files, ShouldContain, "/jingles/a.mp4")
		})

		Convey("IsFile distinguishes files from directories", func() {
			So(IsFile("/jingles/a.mp4"), ShouldBeTrue)
			So(IsFile("/jingles/nested"), ShouldBeFalse)
			So(IsFile("/jingles/missing.mp4"), ShouldBeFalse)
		})

		Convey("A missing directory is empty", func() {
			So(Files("/nope"), ShouldBeEmpty)
		})
	})
}
