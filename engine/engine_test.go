package engine

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kara-engine/kara/broadcast"
	"github.com/kara-engine/kara/constant"
	"github.com/kara-engine/kara/filesystem"
	"github.com/kara-engine/kara/media"
	"github.com/kara-engine/kara/mpv"
	"github.com/kara-engine/kara/song"
	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

type fakeTransport struct {
	name string

	mu        sync.Mutex
	running   bool
	commands  [][]any
	loads     []string
	failLoads int
	recreated int
	destroyed int
	observer  mpv.EventCallback
}

func (f *fakeTransport) Name() string { return f.name }

func (f *fakeTransport) Recreate(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = true
	f.recreated++
	return nil
}

func (f *fakeTransport) Destroy(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
	f.destroyed++
	return nil
}

func (f *fakeTransport) Send(_ context.Context, args ...any) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, args)
	return nil, nil
}

func (f *fakeTransport) Play(_ context.Context, file string, _ mpv.LoadOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLoads > 0 {
		f.failLoads--
		return errors.New("loadfile: unrecognized file format")
	}
	f.loads = append(f.loads, file)
	return nil
}

func (f *fakeTransport) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeTransport) LogTail() []string { return []string{"[ffmpeg] boom"} }

func (f *fakeTransport) Observe(cb mpv.EventCallback) { f.observer = cb }

// sent returns the commands whose first argument is name.
func (f *fakeTransport) sent(name string) [][]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out [][]any
	for _, c := range f.commands {
		if len(c) > 0 && c[0] == name {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeTransport) commandCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.commands) + len(f.loads)
}

func (f *fakeTransport) loaded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.loads...)
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []broadcast.Message
}

func (r *recordingEmitter) Emit(event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, broadcast.Message{Type: event, Payload: payload})
}

func (r *recordingEmitter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *recordingEmitter) diffs() []map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []map[string]any
	for _, e := range r.events {
		if d, ok := e.Payload.(map[string]any); ok {
			out = append(out, d)
		}
	}
	return out
}

type fixture struct {
	engine     *Engine
	main       *fakeTransport
	emitter    *recordingEmitter
	transports map[string]*fakeTransport
	server     *httptest.Server
}

func newFixture(opts Options) *fixture {
	filesystem.SetMemMapFs()
	So(filesystem.API().WriteFile("/medias/local.mp4", []byte("x"), 0o644), ShouldBeNil)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/downloads/medias/remote.mp4" {
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	Reset(srv.Close)

	resolver := media.New(media.Options{
		MediaDirs:   []string{"/medias"},
		RemoteHosts: []string{srv.Listener.Addr().String()},
		Scheme:      "http",
		Client:      srv.Client(),
	})

	f := &fixture{
		emitter:    &recordingEmitter{},
		transports: make(map[string]*fakeTransport),
		server:     srv,
	}
	factory := func(name string) Transport {
		t := &fakeTransport{name: name}
		f.transports[name] = t
		return t
	}

	f.engine = New(factory, resolver, f.emitter, opts)
	So(f.engine.Start(context.Background()), ShouldBeNil)
	f.main = f.transports[constant.MainPlayer]
	Reset(func() { _ = f.engine.Quit(context.Background()) })
	return f
}

func TestLock(t *testing.T) {
	Convey("Given an engine", t, func() {
		f := newFixture(Options{})
		e := f.engine
		ctx := context.Background()

		Convey("At most one operation runs past the lock", func() {
			var inFlight, peak atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_ = e.locked(ctx, "contender", func(context.Context) error {
						n := inFlight.Add(1)
						for {
							p := peak.Load()
							if n <= p || peak.CompareAndSwap(p, n) {
								break
							}
						}
						time.Sleep(time.Millisecond)
						inFlight.Add(-1)
						return nil
					})
				}()
			}
			wg.Wait()
			So(peak.Load(), ShouldEqual, int32(1))
			So(e.State().IsOperating, ShouldBeFalse)
		})

		Convey("A panicking operation still releases the lock", func() {
			func() {
				defer func() { _ = recover() }()
				_ = e.locked(ctx, "boom", func(context.Context) error { panic("boom") })
			}()

			So(e.State().IsOperating, ShouldBeFalse)
			So(e.locked(ctx, "after", func(context.Context) error { return nil }), ShouldBeNil)
		})

		Convey("Waiting for the lock honours the context", func() {
			release := make(chan struct{})
			go func() {
				_ = e.locked(ctx, "hold", func(context.Context) error {
					<-release
					return nil
				})
			}()
			for !e.State().IsOperating {
				time.Sleep(time.Millisecond)
			}

			short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
			defer cancel()
			err := e.SetVolume(short, 10)
			close(release)
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
		})
	})
}

func TestPlayback(t *testing.T) {
	Convey("Given a started engine", t, func() {
		f := newFixture(Options{Loudnorm: true})
		e := f.engine
		ctx := context.Background()

		So(e.State().PlayerRunning, ShouldBeTrue)
		So(e.State().PlayerStatus, ShouldEqual, StatusStop)

		Convey("Stopping twice leaves the same state and emits nothing new", func() {
			So(e.Stop(ctx, media.Stop), ShouldBeNil)
			first := e.State()
			before := len(f.emitter.diffs())

			So(e.Stop(ctx, media.Stop), ShouldBeNil)
			So(e.State(), ShouldResemble, first)

			// only the isOperating toggles
			for _, d := range f.emitter.diffs()[before:] {
				So(d, ShouldContainKey, "isOperating")
				So(d, ShouldHaveLength, 1)
			}
		})

		Convey("A local song plays", func() {
			s := &song.Song{KID: "k1", Title: "Local", MediaFile: "local.mp4", Duration: 90}
			So(e.Play(ctx, s, Modifiers{}, 0), ShouldBeNil)

			st := e.State()
			So(st.PlayerStatus, ShouldEqual, StatusPlay)
			So(st.MediaType, ShouldEqual, MediaSong)
			So(st.CurrentSong.KID, ShouldEqual, "k1")
			So(f.main.loaded(), ShouldResemble, []string{"/medias/local.mp4"})
		})

		Convey("A missing local file plays from the remote host", func() {
			s := &song.Song{KID: "k2", Title: "Remote", MediaFile: "remote.mp4", Duration: 90}
			So(e.Play(ctx, s, Modifiers{}, 0), ShouldBeNil)
			So(f.main.loaded(), ShouldResemble, []string{"http://" + f.server.Listener.Addr().String() + "/downloads/medias/remote.mp4"})
			So(e.State().CurrentSong.KID, ShouldEqual, "k2")
		})

		Convey("A song found nowhere falls back to the stop screen", func() {
			s := &song.Song{KID: "k3", Title: "Ghost", MediaFile: "ghost.mp4"}
			err := e.Play(ctx, s, Modifiers{}, 0)
			So(CodeOf(err), ShouldEqual, CodeMediaNotFound)
			So(e.State().PlayerStatus, ShouldEqual, StatusStop)
			So(e.Messages(), ShouldContainSubstring, "Cannot play Ghost")
		})

		Convey("Loads are retried up to three times", func() {
			s := &song.Song{KID: "k1", Title: "Local", MediaFile: "local.mp4"}

			f.main.failLoads = 2
			So(e.Play(ctx, s, Modifiers{}, 0), ShouldBeNil)
			So(f.main.loaded(), ShouldHaveLength, 1)

			f.main.failLoads = 3
			err := e.Play(ctx, s, Modifiers{}, 0)
			So(CodeOf(err), ShouldEqual, CodeTransport)
			So(e.State().PlayerStatus, ShouldEqual, StatusStop)
		})

		Convey("Pitch and speed together are rejected before any command", func() {
			sent := f.main.commandCount()

			err := e.SetModifiers(ctx, Modifiers{Pitch: 2, Speed: 150})
			So(CodeOf(err), ShouldEqual, CodeModifiersConflict)

			err = e.Play(ctx, &song.Song{KID: "k1", MediaFile: "local.mp4"}, Modifiers{Pitch: -1, Speed: 80}, 0)
			So(CodeOf(err), ShouldEqual, CodeModifiersConflict)

			So(f.main.commandCount(), ShouldEqual, sent)
		})

		Convey("Pause and resume follow the player", func() {
			So(e.Play(ctx, &song.Song{KID: "k1", MediaFile: "local.mp4"}, Modifiers{}, 0), ShouldBeNil)

			So(e.Pause(ctx), ShouldBeNil)
			So(e.State().PlayerStatus, ShouldEqual, StatusPause)

			// the echo of our own pause is ignored
			e.HandleEvent(mpv.Event{Name: "pause", Data: true})
			time.Sleep(20 * time.Millisecond)
			So(e.State().PlayerStatus, ShouldEqual, StatusPause)

			So(e.Resume(ctx), ShouldBeNil)
			So(e.State().PlayerStatus, ShouldEqual, StatusPlay)

			Convey("A pause from the player window is picked up", func() {
				e.HandleEvent(mpv.Event{Name: "pause", Data: true})
				So(waitFor(func() bool { return e.State().PlayerStatus == StatusPause }), ShouldBeTrue)
			})
		})

		Convey("Seeking past the end plays the next song", func() {
			next := &song.Song{KID: "next", MediaFile: "local.mp4", Duration: 60}
			e.SetSequencer(SequencerFunc(func(context.Context) (mo.Option[*song.Song], error) {
				return mo.Some(next), nil
			}))

			So(e.Play(ctx, &song.Song{KID: "k1", MediaFile: "local.mp4", Duration: 30}, Modifiers{}, 0), ShouldBeNil)
			So(e.GoTo(ctx, 10), ShouldBeNil)
			So(e.State().TimePosition, ShouldEqual, 10.0)
			So(f.main.sent("seek"), ShouldHaveLength, 1)

			So(e.Seek(ctx, 25), ShouldBeNil)
			So(e.State().CurrentSong.KID, ShouldEqual, "next")
		})

		Convey("The end of the playlist stops the player", func() {
			e.SetSequencer(SequencerFunc(func(context.Context) (mo.Option[*song.Song], error) {
				return mo.None[*song.Song](), nil
			}))
			So(e.Next(ctx), ShouldBeNil)
			So(e.State().PlayerStatus, ShouldEqual, StatusStop)
			So(e.Messages(), ShouldContainSubstring, "End of playlist")
		})

		Convey("Setters mirror the state and emit minimal diffs", func() {
			So(e.SetVolume(ctx, 150), ShouldBeNil)
			So(e.State().Volume, ShouldEqual, 100)
			So(f.emitter.diffs(), ShouldContain, map[string]any{"volume": 100})

			So(e.SetBlind(ctx, BlindBlack), ShouldBeNil)
			So(e.State().Blind, ShouldEqual, BlindBlack)
			So(e.SetBlind(ctx, "purple"), ShouldNotBeNil)

			So(e.ToggleFullscreen(ctx), ShouldBeNil)
			So(e.State().Fullscreen, ShouldBeTrue)

			So(e.SetMute(ctx, true), ShouldBeNil)
			So(f.main.sent("set_property"), ShouldContain, []any{"set_property", "mute", true})
		})

		Convey("Messages are pushed as an overlay", func() {
			e.Message(CategoryInfo, "Hello", 0)
			So(waitFor(func() bool { return len(namedOverlays(f.main)) > 0 }), ShouldBeTrue)
		})

		Convey("Time position follows the player", func() {
			e.HandleEvent(mpv.Event{Name: "time-pos", Data: 12.7})
			So(e.State().TimePosition, ShouldEqual, 12.0)
		})

		Convey("Nothing is sent after quitting", func() {
			So(e.Quit(ctx), ShouldBeNil)
			So(e.State().PlayerRunning, ShouldBeFalse)
			So(errors.Is(e.SetVolume(ctx, 10), ErrShuttingDown), ShouldBeTrue)
		})
	})
}

func TestEnsureRunning(t *testing.T) {
	Convey("Given an engine without monitor", t, func() {
		monitor := false
		f := newFixture(Options{MonitorEnabled: func() bool { return monitor }})
		e := f.engine
		ctx := context.Background()

		Convey("The missing monitor is reported", func() {
			state, err := e.EnsureRunning(ctx, constant.MonitorPlayer)
			So(err, ShouldBeNil)
			So(state, ShouldEqual, NoInstance)
		})

		Convey("A crashed output is recreated", func() {
			f.main.mu.Lock()
			f.main.running = false
			f.main.mu.Unlock()

			state, err := e.EnsureRunning(ctx, "")
			So(err, ShouldBeNil)
			So(state, ShouldEqual, Restarted)

			state, _ = e.EnsureRunning(ctx, "")
			So(state, ShouldEqual, Running)
		})

		Convey("Restart creates the monitor once enabled", func() {
			monitor = true
			So(e.Restart(ctx), ShouldBeNil)
			So(f.transports, ShouldContainKey, constant.MonitorPlayer)
			So(e.State().MonitorRunning, ShouldBeTrue)
			So(f.transports[constant.MonitorPlayer].sent("set_property"), ShouldContain, []any{"set_property", "mute", true})

			monitor = false
			So(e.Restart(ctx), ShouldBeNil)
			So(e.State().MonitorRunning, ShouldBeFalse)
		})
	})
}

type stubRound struct {
	mu      sync.Mutex
	running bool
	songs   []*song.Song
	times   RoundTimes
	started []string
	skipped []string
	paused  int
	resumed int
}

func (r *stubRound) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *stubRound) NextSong(context.Context) (mo.Option[*song.Song], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.songs) == 0 {
		return mo.None[*song.Song](), nil
	}
	s := r.songs[0]
	r.songs = r.songs[1:]
	return mo.Some(s), nil
}

func (r *stubRound) PrepareRound(*song.Song) RoundPlan { return RoundPlan{Start: 5} }

func (r *stubRound) StartRound(context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, "started")
}

func (r *stubRound) SkipRound(s *song.Song) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skipped = append(r.skipped, s.KID)
}

func (r *stubRound) PauseRound() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused++
}

func (r *stubRound) ResumeRound() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resumed++
}

func (r *stubRound) Times() RoundTimes {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.times
}

func (r *stubRound) set(times RoundTimes) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.times = times
}

func (r *stubRound) snapshot() (started, skipped []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.started...), append([]string(nil), r.skipped...)
}

func TestStreamerPause(t *testing.T) {
	Convey("Given an engine pausing between songs", t, func() {
		f := newFixture(Options{PauseDuration: 300 * time.Millisecond})
		e := f.engine
		ctx := context.Background()

		next := &song.Song{KID: "next", MediaFile: "local.mp4", Duration: 60}
		e.SetSequencer(SequencerFunc(func(context.Context) (mo.Option[*song.Song], error) {
			return mo.Some(next), nil
		}))
		So(e.Play(ctx, &song.Song{KID: "k1", MediaFile: "local.mp4", Duration: 30}, Modifiers{}, 0), ShouldBeNil)

		Convey("The end of a song shows a progress bar, then plays the next one", func() {
			e.HandleEvent(mpv.Event{Name: "end-file", Reason: "eof"})

			So(waitFor(func() bool { return e.State().StreamerPause }), ShouldBeTrue)
			So(e.State().MediaType, ShouldEqual, media.Pause)
			So(waitFor(func() bool { return strings.Contains(e.Messages(), "Next song soon") }), ShouldBeTrue)
			So(waitFor(func() bool { return strings.Contains(e.Messages(), "█") }), ShouldBeTrue)

			So(waitFor(func() bool {
				st := e.State()
				return st.CurrentSong != nil && st.CurrentSong.KID == "next"
			}), ShouldBeTrue)
			So(e.State().StreamerPause, ShouldBeFalse)
			So(e.Messages(), ShouldNotContainSubstring, "Next song soon")
		})

		Convey("Stopping during the pause cancels the next song", func() {
			e.HandleEvent(mpv.Event{Name: "end-file", Reason: "eof"})
			So(waitFor(func() bool { return e.State().StreamerPause }), ShouldBeTrue)

			So(e.Stop(ctx, media.Stop), ShouldBeNil)
			So(e.State().StreamerPause, ShouldBeFalse)
			time.Sleep(500 * time.Millisecond)
			So(e.State().CurrentSong, ShouldBeNil)
		})
	})
}

func TestQuizRounds(t *testing.T) {
	Convey("Given an engine running a quiz", t, func() {
		f := newFixture(Options{})
		e := f.engine
		ctx := context.Background()

		local := &song.Song{KID: "local", MediaFile: "local.mp4", Duration: 90}
		round := &stubRound{running: true, songs: []*song.Song{local}}
		e.SetRoundHook(round)

		Convey("The countdown mirrors the round timers until the round ends", func() {
			round.set(RoundTimes{Active: true, Phase: "guess", Guess: 15 * time.Second, Quick: 5 * time.Second, Reveal: 10 * time.Second})
			So(e.Next(ctx), ShouldBeNil)

			started, _ := round.snapshot()
			So(started, ShouldHaveLength, 1)
			So(e.State().CurrentSong.KID, ShouldEqual, "local")

			So(waitFor(func() bool {
				st := e.State()
				return st.GuessTime == 15 && st.QuickGuess == 5 && st.RevealTime == 10
			}), ShouldBeTrue)
			So(waitFor(func() bool { return strings.Contains(e.Messages(), "Guess! 15 s (quick bonus 5 s)") }), ShouldBeTrue)

			round.set(RoundTimes{Active: true, Phase: "answer", Reveal: 4 * time.Second})
			So(waitFor(func() bool { return e.State().GuessTime == 0 && e.State().RevealTime == 4 }), ShouldBeTrue)
			So(waitFor(func() bool { return strings.Contains(e.Messages(), "Next song in 4 s") }), ShouldBeTrue)

			round.set(RoundTimes{})
			So(waitFor(func() bool { return e.State().RevealTime == 0 }), ShouldBeTrue)
			So(waitFor(func() bool { return !strings.Contains(e.Messages(), "Next song in") }), ShouldBeTrue)
		})

		Convey("A song that cannot be played is skipped for another one", func() {
			ghost := &song.Song{KID: "ghost", Title: "Ghost", MediaFile: "ghost.mp4", Duration: 90}
			round.songs = []*song.Song{ghost, local}

			So(e.Next(ctx), ShouldBeNil)
			started, skipped := round.snapshot()
			So(skipped, ShouldResemble, []string{"ghost"})
			So(started, ShouldHaveLength, 1)
			So(e.State().CurrentSong.KID, ShouldEqual, "local")
		})

		Convey("When no song can be played the player stops", func() {
			round.songs = []*song.Song{{KID: "ghost", MediaFile: "ghost.mp4"}}

			So(e.Next(ctx), ShouldBeNil)
			started, skipped := round.snapshot()
			So(skipped, ShouldResemble, []string{"ghost"})
			So(started, ShouldBeEmpty)
			So(e.State().PlayerStatus, ShouldEqual, StatusStop)
			So(e.Messages(), ShouldContainSubstring, "End of playlist")
		})

		Convey("Pausing pauses the round", func() {
			So(e.Next(ctx), ShouldBeNil)
			So(e.Pause(ctx), ShouldBeNil)
			So(e.Resume(ctx), ShouldBeNil)

			round.mu.Lock()
			defer round.mu.Unlock()
			So(round.paused, ShouldEqual, 1)
			So(round.resumed, ShouldEqual, 1)
		})
	})
}

func TestProgressBar(t *testing.T) {
	Convey("ProgressBar", t, func() {
		So(ProgressBar(10*time.Second, 10*time.Second), ShouldEqual, "░░░░░░░░░░░░░░░░░░░░")
		So(ProgressBar(10*time.Second, 5*time.Second), ShouldEqual, "██████████░░░░░░░░░░")
		So(ProgressBar(10*time.Second, 0), ShouldEqual, "████████████████████")
	})
}

func namedOverlays(f *fakeTransport) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []map[string]any
	for _, c := range f.commands {
		if len(c) == 1 {
			if m, ok := c[0].(map[string]any); ok && m["name"] == "osd-overlay" {
				out = append(out, m)
			}
		}
	}
	return out
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}
