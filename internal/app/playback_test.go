package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	service "github.com/okian/capflow/internal/app"
	"github.com/okian/capflow/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPlayback(t *testing.T) {
	Convey("Given a paused playback over [0,1]", t, func() {
		p := service.NewPlayback(model.Window{Lo: 0, Hi: 1}, 0.4)

		So(p.Cursor, ShouldEqual, 0)
		So(p.Playing, ShouldBeFalse)

		Convey("Then ticking while paused does nothing", func() {
			So(p.Tick().Cursor, ShouldEqual, 0)
		})

		Convey("Then playing advances and clamps at the end", func() {
			q := p.Play().Tick().Tick()
			So(q.Cursor, ShouldAlmostEqual, 0.8)
			So(q.Done(), ShouldBeFalse)

			q = q.Tick()
			So(q.Cursor, ShouldEqual, 1)
			So(q.Done(), ShouldBeTrue)
			So(p.Cursor, ShouldEqual, 0)
		})

		Convey("Then reset rewinds and pauses", func() {
			q := p.Play().Tick().Reset()
			So(q.Cursor, ShouldEqual, 0)
			So(q.Playing, ShouldBeFalse)
		})

		Convey("Then seeking is clamped to the window", func() {
			So(p.Seek(5).Cursor, ShouldEqual, 1)
			So(p.Seek(-5).Cursor, ShouldEqual, 0)
			So(p.Seek(0.3).View(model.View{MinWeight: 2}), ShouldResemble, model.View{Cursor: 0.3, MinWeight: 2})
		})
	})
}

func TestRunPlayback(t *testing.T) {
	Convey("Given a playback with three steps", t, func() {
		p := service.NewPlayback(model.Window{Lo: 0, Hi: 1.5}, 0.5)

		Convey("When running to the end", func() {
			var cursors []float64
			final, err := service.RunPlayback(context.Background(), time.Millisecond, p,
				func(_ context.Context, pb service.Playback) error {
					cursors = append(cursors, pb.Cursor)
					return nil
				})

			Convey("Then every cursor is rendered once", func() {
				So(err, ShouldBeNil)
				So(cursors, ShouldResemble, []float64{0, 0.5, 1, 1.5})
				So(final.Done(), ShouldBeTrue)
				So(final.Playing, ShouldBeFalse)
			})
		})

		Convey("When a pass fails", func() {
			boom := errors.New("boom")
			calls := 0
			_, err := service.RunPlayback(context.Background(), time.Millisecond, p,
				func(context.Context, service.Playback) error {
					calls++
					if calls == 2 {
						return boom
					}
					return nil
				})

			So(errors.Is(err, boom), ShouldBeTrue)
			So(calls, ShouldEqual, 2)
		})

		Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			final, err := service.RunPlayback(ctx, time.Hour, p,
				func(context.Context, service.Playback) error {
					cancel()
					return nil
				})

			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			So(final.Cursor, ShouldEqual, 0)
		})

		Convey("When the step is not positive", func() {
			_, err := service.RunPlayback(context.Background(), time.Millisecond,
				service.NewPlayback(model.Window{Hi: 1}, 0), func(context.Context, service.Playback) error { return nil })
			So(errors.Is(err, service.ErrInvalidPlayback), ShouldBeTrue)
		})
	})
}
