package normalize_test

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/okian/capflow/internal/domain/normalize"
	. "github.com/smartystreets/goconvey/convey"
)

const pingPong = `[
 {"topic":"/capabilities/events","msg":{"header":{"stamp":{"secs":10,"nsecs":0}},"source":{"capability":"A"},"target":{"capability":"B","text":"ping: hi"}}},
 {"topic":"/capabilities/events","msg":{"header":{"stamp":{"secs":11,"nsecs":0}},"source":{"capability":"A"},"target":{"capability":"B","text":"ping: hi"}}}
]`

func record(secs, nsecs int, src, tgt, text string) string {
	return `{"topic":"/capabilities/events","msg":{"header":{"stamp":{"secs":` + strconv.Itoa(secs) + `,"nsecs":` + strconv.Itoa(nsecs) +
		`}},"source":{"capability":"` + src + `"},"target":{"capability":"` + tgt + `","text":"` + text + `"}}}`
}

func TestNormalize(t *testing.T) {
	ctx := context.Background()
	n := normalize.New()

	Convey("Given two ping records one second apart", t, func() {
		table, err := n.NormalizeJSON(ctx, []byte(pingPong))

		Convey("Then both rows should be kept with relative timestamps", func() {
			So(err, ShouldBeNil)
			So(table, ShouldHaveLength, 2)
			So(table[0].Timestamp, ShouldEqual, 0.0)
			So(table[1].Timestamp, ShouldEqual, 1.0)
			So(table[0].Type, ShouldEqual, "ping")
			So(table[1].Type, ShouldEqual, "ping")
			So(table[0].Text, ShouldEqual, "ping: hi")
		})
	})

	Convey("Given an empty array", t, func() {
		table, err := n.NormalizeJSON(ctx, []byte(`[]`))

		Convey("Then the result should be empty and not an error", func() {
			So(err, ShouldBeNil)
			So(table, ShouldBeEmpty)
		})
	})

	Convey("Given input that is not a JSON array", t, func() {
		for _, in := range []string{`{"topic":"x"}`, `not json`, `[{"topic":`, ``, `[1,2]`} {
			_, err := n.NormalizeJSON(ctx, []byte(in))
			So(errors.Is(err, normalize.ErrMalformedInput), ShouldBeTrue)
		}
	})

	Convey("Given a matching record without a header", t, func() {
		in := `[{"topic":"/capabilities/events","msg":{"source":{"capability":"A"},"target":{"capability":"B"}}}]`
		_, err := n.NormalizeJSON(ctx, []byte(in))

		Convey("Then it should be reported as malformed with the record index", func() {
			So(errors.Is(err, normalize.ErrMalformedInput), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "record 0")
		})
	})

	Convey("Given records on other topics with arbitrary payloads", t, func() {
		in := `[{"topic":"/rosout","msg":42},{"topic":"/other"},` + record(5, 0, "A", "B", "x") + `]`
		table, err := n.NormalizeJSON(ctx, []byte(in))

		Convey("Then only the capability topic should survive", func() {
			So(err, ShouldBeNil)
			So(table, ShouldHaveLength, 1)
			So(table[0].Source, ShouldEqual, "A")
		})
	})

	Convey("Given records needing cleanup", t, func() {
		in := `[` +
			record(3, 0, "  ", "B", "dropped") + `,` +
			record(4, 0, " A ", "", "") + `,` +
			record(5, 0, "C", " D ", "  status: ok  ") +
			`]`
		table, err := n.NormalizeJSON(ctx, []byte(in))

		Convey("Then empty sources should be dropped and fields defaulted", func() {
			So(err, ShouldBeNil)
			So(table, ShouldHaveLength, 2)

			So(table[0].Source, ShouldEqual, "A")
			So(table[0].Target, ShouldEqual, "A")
			So(table[0].Text, ShouldEqual, "event")
			So(table[0].Type, ShouldEqual, "event")
			So(table[0].Timestamp, ShouldEqual, 0.0)

			So(table[1].Target, ShouldEqual, "D")
			So(table[1].Text, ShouldEqual, "status: ok")
			So(table[1].Type, ShouldEqual, "status")
			So(table[1].Timestamp, ShouldEqual, 1.0)
		})
	})

	Convey("Given a record whose only record has an empty source", t, func() {
		table, err := n.NormalizeJSON(ctx, []byte(`[`+record(1, 0, "", "B", "x")+`]`))

		Convey("Then the result should be empty, not an error", func() {
			So(err, ShouldBeNil)
			So(table, ShouldBeEmpty)
		})
	})

	Convey("Given a very long message without a colon", t, func() {
		long := strings.Repeat("é", 100)
		table, err := n.NormalizeJSON(ctx, []byte(`[`+record(1, 0, "A", "B", long)+`]`))

		Convey("Then the type should be capped at sixty characters", func() {
			So(err, ShouldBeNil)
			So([]rune(table[0].Type), ShouldHaveLength, 60)
			So(table[0].Text, ShouldEqual, long)
		})
	})

	Convey("Given out-of-order records with sub-second stamps", t, func() {
		in := `[` +
			record(1700000002, 250000000, "A", "B", "late") + `,` +
			record(1700000000, 500000000, "A", "B", "first") + `,` +
			record(1700000002, 250000000, "B", "C", "late-tie") + `,` +
			record(1700000001, 1, "B", "A", "middle") +
			`]`
		table, err := n.NormalizeJSON(ctx, []byte(in))

		Convey("Then rows should be time-sorted with stable ties", func() {
			So(err, ShouldBeNil)
			So(table, ShouldHaveLength, 4)
			So(table[0].Text, ShouldEqual, "first")
			So(table[1].Text, ShouldEqual, "middle")
			So(table[2].Text, ShouldEqual, "late")
			So(table[3].Text, ShouldEqual, "late-tie")
		})

		Convey("Then sub-second offsets should be exact", func() {
			So(table[0].Timestamp, ShouldEqual, 0.0)
			So(table[1].Timestamp, ShouldAlmostEqual, 0.500000001, 1e-12)
			So(table[2].Timestamp, ShouldEqual, 1.75)
			So(table[3].Timestamp, ShouldEqual, 1.75)
		})
	})

	Convey("Given float seconds in the stamp", t, func() {
		in := `[{"topic":"/capabilities/events","msg":{"header":{"stamp":{"secs":2.5}},"source":{"capability":"A"},"target":{"capability":"B"}}},` +
			record(3, 0, "A", "B", "x") + `]`
		table, err := n.NormalizeJSON(ctx, []byte(in))

		Convey("Then they should be accepted", func() {
			So(err, ShouldBeNil)
			So(table[1].Timestamp, ShouldEqual, 0.5)
		})
	})

	Convey("Given seconds beyond the nanosecond int64 range", t, func() {
		in := `[` + record(10_000_000_000, 0, "A", "B", "late") + `,` + record(1, 0, "A", "B", "early") + `]`
		table, err := n.NormalizeJSON(ctx, []byte(in))

		Convey("Then order and offsets should still be exact", func() {
			So(err, ShouldBeNil)
			So(table, ShouldHaveLength, 2)
			So(table[0].Text, ShouldEqual, "early")
			So(table[0].Timestamp, ShouldEqual, 0.0)
			So(table[1].Text, ShouldEqual, "late")
			So(table[1].Timestamp, ShouldEqual, 9_999_999_999.0)
		})
	})

	Convey("Given nanoseconds that carry into the seconds", t, func() {
		in := `[` + record(5, 1_500_000_000, "A", "B", "carry") + `,` + record(6, 0, "A", "B", "plain") + `]`
		table, err := n.NormalizeJSON(ctx, []byte(in))

		Convey("Then the carried stamp should sort after the plain one", func() {
			So(err, ShouldBeNil)
			So(table[0].Text, ShouldEqual, "plain")
			So(table[1].Text, ShouldEqual, "carry")
			So(table[1].Timestamp, ShouldEqual, 0.5)
		})
	})

	Convey("Given stamps outside the int64 range", t, func() {
		for _, stamp := range []string{`{"secs":1e30}`, `{"secs":1,"nsecs":-1e300}`, `{"secs":9223372036854775807,"nsecs":1000000000}`} {
			in := `[{"topic":"/capabilities/events","msg":{"header":{"stamp":` + stamp + `},"source":{"capability":"A"},"target":{"capability":"B"}}}]`
			_, err := n.NormalizeJSON(ctx, []byte(in))
			So(errors.Is(err, normalize.ErrMalformedInput), ShouldBeTrue)
		}
	})

	Convey("Given a span wider than int64 seconds", t, func() {
		in := `[{"topic":"/capabilities/events","msg":{"header":{"stamp":{"secs":-9223372036854775808}},"source":{"capability":"A"},"target":{"capability":"B"}}},` +
			`{"topic":"/capabilities/events","msg":{"header":{"stamp":{"secs":9223372036854775807}},"source":{"capability":"A"},"target":{"capability":"B"}}}]`
		_, err := n.NormalizeJSON(ctx, []byte(in))
		So(errors.Is(err, normalize.ErrMalformedInput), ShouldBeTrue)
	})

	Convey("Given a custom topic and type length", t, func() {
		custom := normalize.New(normalize.WithTopic("/custom"), normalize.WithTypeMaxLen(3))
		in := `[{"topic":"/custom","msg":{"header":{"stamp":{"secs":1}},"source":{"capability":"A"},"target":{"capability":"B","text":"abcdef"}}}]`
		table, err := custom.NormalizeJSON(ctx, []byte(in))

		Convey("Then the options should apply", func() {
			So(err, ShouldBeNil)
			So(table, ShouldHaveLength, 1)
			So(table[0].Type, ShouldEqual, "abc")
		})
	})
}

func TestNormalizeProperties(t *testing.T) {
	ctx := context.Background()
	n := normalize.New()

	Convey("Given a mixed batch of records", t, func() {
		in := `[` +
			record(100, 0, "A", "B", "x") + `,` +
			record(50, 10, "B", "", "y: 1") + `,` +
			record(75, 0, "", "C", "z") + `,` +
			`{"topic":"/noise","msg":{}},` +
			record(60, 999999999, "C", "A", "w") +
			`]`
		raw, err := normalize.Parse([]byte(in))
		So(err, ShouldBeNil)

		first, err := n.Normalize(ctx, raw)
		So(err, ShouldBeNil)
		second, err := n.Normalize(ctx, raw)
		So(err, ShouldBeNil)

		Convey("Then the output should never be longer than the input", func() {
			So(len(first), ShouldBeLessThanOrEqualTo, len(raw))
		})

		Convey("Then every timestamp should be non-negative with minimum exactly zero", func() {
			min := first[0].Timestamp
			for _, e := range first {
				So(e.Timestamp, ShouldBeGreaterThanOrEqualTo, 0.0)
				if e.Timestamp < min {
					min = e.Timestamp
				}
			}
			So(min, ShouldEqual, 0.0)
		})

		Convey("Then normalizing twice should give identical output", func() {
			So(second, ShouldResemble, first)
		})
	})
}
