package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kara-engine/kara/broadcast"
	"github.com/kara-engine/kara/engine"
	"github.com/kara-engine/kara/media"
	"github.com/kara-engine/kara/playlist"
	"github.com/kara-engine/kara/quiz"
	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"
)

type fakePlayer struct {
	mu    sync.Mutex
	calls []string
	err   error

	volume   int
	mods     engine.Modifiers
	comments []string
}

func (p *fakePlayer) record(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, name)
	return p.err
}

func (p *fakePlayer) State() engine.PlayerState {
	return engine.PlayerState{Volume: p.volume, PlayerStatus: engine.StatusPlay}
}
func (p *fakePlayer) Next(context.Context) error   { return p.record("next") }
func (p *fakePlayer) Pause(context.Context) error  { return p.record("pause") }
func (p *fakePlayer) Resume(context.Context) error { return p.record("resume") }
func (p *fakePlayer) Stop(_ context.Context, bg media.Kind) error {
	return p.record("stop:" + string(bg))
}
func (p *fakePlayer) Seek(context.Context, float64) error { return p.record("seek") }
func (p *fakePlayer) GoTo(context.Context, float64) error { return p.record("goto") }
func (p *fakePlayer) PlayMedia(_ context.Context, kind media.Kind) error {
	return p.record("media:" + string(kind))
}
func (p *fakePlayer) Restart(context.Context) error { return p.record("restart") }
func (p *fakePlayer) SetVolume(_ context.Context, v int) error {
	p.volume = v
	return p.record("volume")
}
func (p *fakePlayer) SetMute(context.Context, bool) error { return p.record("mute") }
func (p *fakePlayer) SetSubs(context.Context, bool) error { return p.record("subs") }
func (p *fakePlayer) SetModifiers(_ context.Context, m engine.Modifiers) error {
	p.mods = m
	return p.record("modifiers")
}
func (p *fakePlayer) SetBlind(context.Context, string) error       { return p.record("blind") }
func (p *fakePlayer) SetBlurPercentage(context.Context, int) error { return p.record("blur") }
func (p *fakePlayer) SetAudioDevice(context.Context, string) error { return p.record("audio-device") }
func (p *fakePlayer) SetHwDec(context.Context, string) error       { return p.record("hwdec") }
func (p *fakePlayer) ToggleFullscreen(context.Context) error       { return p.record("fullscreen") }
func (p *fakePlayer) ToggleBorders(context.Context) error          { return p.record("borders") }
func (p *fakePlayer) ToggleOnTop(context.Context) error            { return p.record("ontop") }
func (p *fakePlayer) Message(string, string, time.Duration)        {}
func (p *fakePlayer) Comment(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.comments = append(p.comments, text)
}

type fakeQuiz struct {
	started *quiz.GameOptions
	err     error
	game    mo.Option[quiz.GameView]
}

func (q *fakeQuiz) StartGame(_ context.Context, opts quiz.GameOptions) error {
	q.started = &opts
	return q.err
}
func (q *fakeQuiz) StopGame(context.Context) error { return q.err }
func (q *fakeQuiz) SetAnswer(string, string) (bool, error) {
	return true, q.err
}
func (q *fakeQuiz) SetAudienceAnswer(string, string) error { return q.err }
func (q *fakeQuiz) ContinueRound() error                   { return q.err }
func (q *fakeQuiz) Game() mo.Option[quiz.GameView]         { return q.game }

type fixture struct {
	player *fakePlayer
	quiz   *fakeQuiz
	queue  *playlist.Queue
	server *Server
	ts     *httptest.Server
}

func newFixture() *fixture {
	f := &fixture{
		player: &fakePlayer{},
		quiz:   &fakeQuiz{},
		queue:  playlist.NewQueue(),
	}
	f.server = New(f.player, f.quiz, f.queue, broadcast.NewHub())
	f.ts = httptest.NewServer(f.server.Handler())
	return f
}

func (f *fixture) post(path, body string) (*http.Response, map[string]any) {
	resp, err := http.Post(f.ts.URL+path, "application/json", strings.NewReader(body))
	So(err, ShouldBeNil)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestServer(t *testing.T) {
	Convey("Given a server", t, func() {
		f := newFixture()
		defer f.ts.Close()

		Convey("The state is served", func() {
			f.player.volume = 42
			resp, err := http.Get(f.ts.URL + "/state")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			var st engine.PlayerState
			So(json.NewDecoder(resp.Body).Decode(&st), ShouldBeNil)
			So(st.Volume, ShouldEqual, 42)
		})

		Convey("Bodyless actions run", func() {
			resp, _ := f.post("/player/next", "")
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(f.player.calls, ShouldResemble, []string{"next"})
		})

		Convey("Actions decode their body", func() {
			resp, _ := f.post("/player/volume", `{"volume":70}`)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(f.player.volume, ShouldEqual, 70)

			resp, _ = f.post("/player/modifiers", `{"pitch":2,"blind":"blur"}`)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(f.player.mods, ShouldResemble, engine.Modifiers{Pitch: 2, Blind: "blur"})

			resp, _ = f.post("/player/media", `{"kind":"jingles"}`)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(f.player.calls, ShouldContain, "media:jingles")
		})

		Convey("Invalid bodies are rejected before the player is called", func() {
			resp, body := f.post("/player/volume", `{"volume":170}`)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			So(body["code"], ShouldEqual, engine.CodeInvalidArgument)
			So(f.player.calls, ShouldBeEmpty)

			resp, _ = f.post("/player/volume", `{"loudness":1}`)
			So(resp.StatusCode, ShouldEqual, http.StatusUnprocessableEntity)
		})

		Convey("Unknown actions are not found", func() {
			resp, _ := f.post("/player/dance", "")
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("Coded errors keep their code", func() {
			f.quiz.err = quiz.ErrGameNotRunning
			resp, body := f.post("/quiz/answer", `{"login":"alice","answer":"Shirobako"}`)
			So(resp.StatusCode, ShouldEqual, http.StatusConflict)
			So(body["code"], ShouldEqual, quiz.CodeGameNotRunning)
		})

		Convey("Answers echo whether they were quick", func() {
			resp, body := f.post("/quiz/answer", `{"login":"alice","answer":"Shirobako"}`)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(body["quick"], ShouldEqual, true)
		})

		Convey("Games start with their options", func() {
			resp, _ := f.post("/quiz/start", `{"name":"friday","reset":true}`)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(f.quiz.started.Name, ShouldEqual, "friday")
			So(f.quiz.started.Reset, ShouldBeTrue)

			resp, _ = f.post("/quiz/start", `{}`)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Songs are queued", func() {
			resp, _ := f.post("/queue", `{"songs":[{"kid":"a","title":"A"}]}`)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(f.queue.Pending(), ShouldHaveLength, 1)
		})

		Convey("Comments reach the overlay", func() {
			resp, _ := f.post("/overlay/comment", `{"text":"88888"}`)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(f.player.comments, ShouldResemble, []string{"88888"})
		})

		Convey("Greeting carries the state and the game", func() {
			So(f.server.Greeting(), ShouldHaveLength, 1)

			f.quiz.game = mo.Some(quiz.GameView{GameState: quiz.GameState{Name: "friday"}})
			msgs := f.server.Greeting()
			So(msgs, ShouldHaveLength, 2)
			So(msgs[1].Type, ShouldEqual, broadcast.QuizStateUpdate)
		})
	})
}
