package timer

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestTimer(t *testing.T) {
	Convey("Given an auto started timer", t, func() {
		tm := New(50*time.Millisecond, true)

		Convey("Wait returns once the duration elapsed", func() {
			start := time.Now()
			So(tm.Wait(context.Background()), ShouldBeNil)
			So(time.Since(start), ShouldBeGreaterThanOrEqualTo, 40*time.Millisecond)
			So(tm.TimeLeft(), ShouldEqual, 0)
			So(tm.Cancelled(), ShouldBeFalse)
		})

		Convey("Cancel resolves Wait immediately", func() {
			tm.Cancel()
			So(tm.Wait(context.Background()), ShouldBeNil)
			So(tm.Cancelled(), ShouldBeTrue)
			So(tm.Finished(), ShouldBeTrue)
		})

		Convey("Wait honours the context", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
			defer cancel()
			So(errors.Is(tm.Wait(ctx), context.DeadlineExceeded), ShouldBeTrue)
		})
	})

	Convey("Given a paused timer", t, func() {
		tm := New(200*time.Millisecond, true)
		time.Sleep(20 * time.Millisecond)
		tm.Pause()
		left := tm.TimeLeft()

		Convey("The remaining time is frozen", func() {
			So(left, ShouldBeLessThan, 200*time.Millisecond)
			time.Sleep(30 * time.Millisecond)
			So(tm.TimeLeft(), ShouldEqual, left)
			So(tm.Paused(), ShouldBeTrue)
		})

		Convey("It does not elapse while paused", func() {
			select {
			case <-tm.Done():
				So("elapsed while paused", ShouldBeEmpty)
			case <-time.After(250 * time.Millisecond):
			}
		})

		Convey("Start resumes from the frozen point", func() {
			tm.Start()
			So(tm.Paused(), ShouldBeFalse)
			So(tm.Wait(context.Background()), ShouldBeNil)
		})
	})

	Convey("Given timers that are not auto started", t, func() {
		Convey("A zero timer never resolves until started", func() {
			tm := New(0, false)
			select {
			case <-tm.Done():
				So("resolved without start", ShouldBeEmpty)
			case <-time.After(20 * time.Millisecond):
			}
			tm.Start()
			So(tm.Wait(context.Background()), ShouldBeNil)
		})

		Convey("TimeLeft reports the full duration", func() {
			tm := New(time.Second, false)
			So(tm.TimeLeft(), ShouldEqual, time.Second)
			So(tm.Duration(), ShouldEqual, time.Second)
		})
	})

	Convey("An auto started zero timer is already elapsed", t, func() {
		tm := New(0, true)
		So(tm.Finished(), ShouldBeTrue)
		So(tm.Wait(context.Background()), ShouldBeNil)
	})
}
