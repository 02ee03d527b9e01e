package media

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kara-engine/kara/filesystem"
	"github.com/kara-engine/kara/song"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

func touch(path string) {
	So(filesystem.API().WriteFile(path, []byte("x"), 0o644), ShouldBeNil)
}

func TestResolverMedia(t *testing.T) {
	Convey("Given a resolver over in-memory directories", t, func() {
		filesystem.SetMemMapFs()
		ctx := context.Background()

		var probed []string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			probed = append(probed, r.Method+" "+r.URL.Path)
			if strings.HasSuffix(r.URL.Path, "remote.mp4") {
				w.WriteHeader(http.StatusOK)
				return
			}
			w.WriteHeader(http.StatusNotFound)
		}))
		Reset(srv.Close)

		r := New(Options{
			MediaDirs:   []string{"/medias", "/more"},
			SubsDirs:    []string{"/lyrics"},
			RemoteHosts: []string{srv.Listener.Addr().String()},
			Scheme:      "http",
			Client:      srv.Client(),
		})

		Convey("A local file wins", func() {
			touch("/more/local.mp4")
			p, err := r.Media(ctx, &song.Song{KID: "1", MediaFile: "local.mp4"})
			So(err, ShouldBeNil)
			So(p, ShouldEqual, "/more/local.mp4")
			So(probed, ShouldBeEmpty)
		})

		Convey("A name differing only by case and accents is matched", func() {
			touch("/medias/Épisode.mp4")
			p, err := r.Media(ctx, &song.Song{KID: "1", MediaFile: "episode.mp4"})
			So(err, ShouldBeNil)
			So(p, ShouldEqual, "/medias/Épisode.mp4")
		})

		Convey("A missing local file falls back to a remote host answering the probe", func() {
			p, err := r.Media(ctx, &song.Song{KID: "1", MediaFile: "remote.mp4", Repository: "unreachable.invalid"})
			So(err, ShouldBeNil)
			So(p, ShouldEqual, "http://"+srv.Listener.Addr().String()+"/downloads/medias/remote.mp4")
			So(probed, ShouldContain, "HEAD /downloads/medias/remote.mp4")
		})

		Convey("Nothing anywhere is fatal", func() {
			_, err := r.Media(ctx, &song.Song{KID: "1", MediaFile: "ghost.mp4"})
			So(errors.Is(err, ErrMediaNotFound), ShouldBeTrue)
		})

		Convey("Subtitles are optional", func() {
			touch("/lyrics/a.ass")
			So(r.Subtitle(ctx, &song.Song{SubFile: "a.ass"}).OrEmpty(), ShouldEqual, "/lyrics/a.ass")
			So(r.Subtitle(ctx, &song.Song{SubFile: "b.ass"}).IsAbsent(), ShouldBeTrue)
			So(r.Subtitle(ctx, &song.Song{}).IsAbsent(), ShouldBeTrue)
		})
	})
}

func TestResolverFillers(t *testing.T) {
	Convey("Given filler and background directories", t, func() {
		filesystem.SetMemMapFs()
		r := New(Options{
			FillerDirs:  map[Kind]string{Jingles: "/jingles", Sponsors: "/sponsors"},
			Backgrounds: "/backgrounds",
			Background:  "/default.jpg",
			Rand:        rand.New(rand.NewPCG(3, 4)),
		})

		Convey("A filler is picked from its directory", func() {
			touch("/jingles/a.mp4")
			touch("/jingles/b.mp4")
			p, ok := r.Filler(Jingles).Get()
			So(ok, ShouldBeTrue)
			So(p, ShouldBeIn, "/jingles/a.mp4", "/jingles/b.mp4")
		})

		Convey("An empty filler kind yields nothing", func() {
			So(r.Filler(Sponsors).IsAbsent(), ShouldBeTrue)
			So(r.Filler(Outros).IsAbsent(), ShouldBeTrue)
		})

		Convey("Backgrounds prefer the file named after the kind", func() {
			touch("/backgrounds/pause.png")
			touch("/default.jpg")
			So(r.Background(Pause), ShouldEqual, "/backgrounds/pause.png")
			So(r.Background(Stop), ShouldEqual, "/default.jpg")
		})

		Convey("Without any background the idle screen is kept", func() {
			So(r.Background(Stop), ShouldBeEmpty)
		})

		Convey("Filler kinds are recognized", func() {
			So(IsFiller(Encores), ShouldBeTrue)
			So(IsFiller(Stop), ShouldBeFalse)
		})
	})
}

func TestBuildFilterGraph(t *testing.T) {
	Convey("BuildFilterGraph", t, func() {
		filesystem.SetMemMapFs()
		ctx := context.Background()
		s := &song.Song{KID: "k", Loudnorm: "-18.2,-1.1,7.5,-28.4,0.3"}

		Convey("Measured loudness gives a linear pass", func() {
			g, err := BuildFilterGraph(ctx, s, GraphOptions{Loudnorm: true})
			So(err, ShouldBeNil)
			So(g, ShouldStartWith, "[aid1]loudnorm=measured_I=-18.2:")
			So(g, ShouldEndWith, "linear=true[ao]")
		})

		Convey("Unparsable loudness falls back to one pass", func() {
			g, _ := BuildFilterGraph(ctx, &song.Song{Loudnorm: "bogus"}, GraphOptions{Loudnorm: true})
			So(g, ShouldEqual, "[aid1]loudnorm[ao]")
		})

		Convey("No filter yields an empty graph", func() {
			g, err := BuildFilterGraph(ctx, s, GraphOptions{Speed: 100})
			So(err, ShouldBeNil)
			So(g, ShouldBeEmpty)
		})

		Convey("Pitch uses rubberband", func() {
			g, _ := BuildFilterGraph(ctx, s, GraphOptions{Pitch: 12})
			So(g, ShouldEqual, "[aid1]rubberband=pitch=2[ao]")
		})

		Convey("Speed changes both tempo and timestamps", func() {
			g, _ := BuildFilterGraph(ctx, s, GraphOptions{Speed: 300})
			So(g, ShouldEqual, "[aid1]atempo=2,atempo=1.5[ao];[vid1]setpts=PTS/3[vo]")
		})

		Convey("Pitch and speed together are rejected", func() {
			_, err := BuildFilterGraph(ctx, s, GraphOptions{Pitch: 2, Speed: 120})
			So(err, ShouldEqual, ErrModifiersConflict)
		})

		Convey("An existing avatar is overlaid at the start", func() {
			touch("/avatars/me.png")
			g, _ := BuildFilterGraph(ctx, s, GraphOptions{Avatar: "/avatars/me.png", Start: 10, AvatarDuration: 5})
			So(g, ShouldContainSubstring, "movie=/avatars/me.png")
			So(g, ShouldContainSubstring, "between(t,10,15)")
		})

		Convey("A missing avatar degrades to normalization only", func() {
			g, err := BuildFilterGraph(ctx, s, GraphOptions{Loudnorm: true, Avatar: "/nope.png"})
			So(err, ShouldBeNil)
			So(g, ShouldNotContainSubstring, "movie=")
			So(g, ShouldStartWith, "[aid1]loudnorm")
		})
	})
}
