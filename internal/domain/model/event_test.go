package model_test

import (
	"testing"

	model "github.com/okian/capflow/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestTable(t *testing.T) {
	convey.Convey("Given a canonical table", t, func() {
		table := model.Table{
			{Timestamp: 0, Source: "A", Target: "B", Type: "ping", Text: "ping: hi"},
			{Timestamp: 1.5, Source: "A", Target: "B", Type: "ping", Text: "ping: again"},
			{Timestamp: 2, Source: "B", Target: "C", Type: "ack", Text: "ack"},
		}

		convey.Convey("Then Types should be distinct and sorted", func() {
			convey.So(table.Types(), convey.ShouldResemble, []string{"ack", "ping"})
		})

		convey.Convey("Then Span should cover the first and last timestamp", func() {
			convey.So(table.Span(), convey.ShouldResemble, model.Window{Lo: 0, Hi: 2})
		})

		convey.Convey("Then MaxPairWeight should count the busiest pair", func() {
			convey.So(table.MaxPairWeight(), convey.ShouldEqual, 2)
		})

		convey.Convey("Then Clone should not share storage", func() {
			c := table.Clone()
			c[0].Source = "Z"
			convey.So(table[0].Source, convey.ShouldEqual, "A")
		})
	})

	convey.Convey("Given an empty table", t, func() {
		var table model.Table

		convey.Convey("Then the helpers should return zero values", func() {
			convey.So(table.Empty(), convey.ShouldBeTrue)
			convey.So(table.Types(), convey.ShouldBeEmpty)
			convey.So(table.Span(), convey.ShouldResemble, model.Window{})
			convey.So(table.MaxPairWeight(), convey.ShouldEqual, 0)
			convey.So(table.Clone(), convey.ShouldBeNil)
		})
	})
}

func TestWindow(t *testing.T) {
	convey.Convey("Given a closed window", t, func() {
		w := model.Window{Lo: 1, Hi: 3}

		convey.Convey("Then both ends should be included", func() {
			convey.So(w.Contains(1), convey.ShouldBeTrue)
			convey.So(w.Contains(3), convey.ShouldBeTrue)
			convey.So(w.Contains(2.5), convey.ShouldBeTrue)
		})

		convey.Convey("Then values outside should be excluded", func() {
			convey.So(w.Contains(0.999), convey.ShouldBeFalse)
			convey.So(w.Contains(3.001), convey.ShouldBeFalse)
		})
	})
}
