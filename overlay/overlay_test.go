package overlay

import (
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type recorder struct {
	mu    sync.Mutex
	texts []string
}

func (r *recorder) tick(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.texts...)
}

func (r *recorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.texts) == 0 {
		return ""
	}
	return r.texts[len(r.texts)-1]
}

func TestMessages(t *testing.T) {
	Convey("Given a message manager", t, func() {
		rec := &recorder{}
		m := NewMessages(rec.tick, 0)

		Convey("Messages are joined in insertion order", func() {
			m.Add("info", "Title", Infinite)
			m.Add("quiz", "Guess!", Infinite)
			So(m.Text(), ShouldEqual, `Title\NGuess!`)
			So(rec.last(), ShouldEqual, `Title\NGuess!`)
		})

		Convey("Overwriting keeps the position and replaces the text", func() {
			m.Add("info", "Title", Infinite)
			m.Add("quiz", "Guess!", Infinite)
			m.Add("info", "Other", Infinite)
			So(m.Text(), ShouldEqual, `Other\NGuess!`)
		})

		Convey("Identical updates do not tick again", func() {
			m.Add("info", "Title", Infinite)
			m.Add("info", "Title", Infinite)
			So(rec.all(), ShouldHaveLength, 1)
		})

		Convey("Removing a category drops it", func() {
			m.Add("info", "Title", Infinite)
			m.Add("quiz", "Guess!", Infinite)
			m.Add("pause", "Break", Infinite)
			m.RemoveMany("info", "pause")
			So(m.Text(), ShouldEqual, "Guess!")
			So(m.Has("info"), ShouldBeFalse)

			m.Remove("quiz")
			So(m.Text(), ShouldBeEmpty)
			So(rec.last(), ShouldBeEmpty)
		})

		Convey("Timed messages expire on their own", func() {
			m.Add("info", "Title", 30*time.Millisecond)
			So(m.Has("info"), ShouldBeTrue)
			time.Sleep(120 * time.Millisecond)
			So(m.Has("info"), ShouldBeFalse)
			So(rec.last(), ShouldBeEmpty)
		})

		Convey("Overwriting a timed message cancels its expiry", func() {
			m.Add("info", "Title", 30*time.Millisecond)
			m.Add("info", "Sticky", Infinite)
			time.Sleep(120 * time.Millisecond)
			So(m.Text(), ShouldEqual, "Sticky")
		})

		Convey("Clear wipes everything", func() {
			m.Add("info", "Title", 30*time.Millisecond)
			m.Add("quiz", "Guess!", Infinite)
			m.Clear()
			So(m.Text(), ShouldBeEmpty)
		})
	})

	Convey("Given a wrapping manager", t, func() {
		m := NewMessages(nil, 10)
		m.Add("info", "one two three four", Infinite)
		So(strings.Count(m.Text(), LineBreak), ShouldBeGreaterThan, 0)
	})
}

func TestComments(t *testing.T) {
	Convey("Given a comment manager on a narrow canvas", t, func() {
		rec := &recorder{}
		opts := DefaultCommentOptions()
		opts.Interval = 5 * time.Millisecond
		opts.Width = 100
		opts.MinSpeed, opts.MaxSpeed = 20, 20
		opts.FontSize = 10
		opts.Rand = rand.New(rand.NewPCG(1, 2))
		c := NewComments(rec.tick, opts)
		Reset(c.Close)

		Convey("A comment scrolls and then leaves", func() {
			c.Add("hi")
			So(c.Len(), ShouldEqual, 1)

			time.Sleep(200 * time.Millisecond)
			So(c.Len(), ShouldEqual, 0)

			texts := rec.all()
			So(len(texts), ShouldBeGreaterThan, 1)
			So(texts[0], ShouldContainSubstring, "hi")
			So(texts[len(texts)-1], ShouldBeEmpty)
		})

		Convey("The loop restarts after going idle", func() {
			c.Add("first")
			time.Sleep(200 * time.Millisecond)
			c.Add("second")
			time.Sleep(20 * time.Millisecond)
			So(rec.last(), ShouldContainSubstring, "second")
		})
	})
}
