package tracing_test

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/okian/capflow/pkg/logger"
	"github.com/okian/capflow/pkg/tracing"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInit(t *testing.T) {
	_ = logger.Init()

	Convey("Given no endpoint", t, func() {
		shutdown, err := tracing.Init(context.Background(), tracing.Config{ServiceName: "capflow"})

		So(err, ShouldBeNil)
		So(shutdown, ShouldNotBeNil)
		So(shutdown(context.Background()), ShouldBeNil)
	})

	Convey("Given an endpoint", t, func() {
		defer otel.SetTracerProvider(noop.NewTracerProvider())

		shutdown, err := tracing.Init(context.Background(), tracing.Config{
			ServiceName: "capflow",
			Version:     "test",
			Endpoint:    "127.0.0.1:4318",
			SampleRate:  1,
			Insecure:    true,
		})

		So(err, ShouldBeNil)
		So(shutdown, ShouldNotBeNil)

		_, span := otel.Tracer("test").Start(context.Background(), "sample")
		So(span.SpanContext().IsValid(), ShouldBeTrue)
		span.End()

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		So(func() { _ = shutdown(ctx) }, ShouldNotPanic)
	})
}
