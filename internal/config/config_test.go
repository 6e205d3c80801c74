package config_test

import (
	"errors"
	"testing"

	"github.com/okian/capflow/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Topic, convey.ShouldEqual, "/capabilities/events")
			convey.So(cfg.TypeMaxLen, convey.ShouldEqual, 60)
			convey.So(cfg.DefaultMinWeight, convey.ShouldEqual, 1)
			convey.So(cfg.EigenMaxIterations, convey.ShouldEqual, 0)
			convey.So(cfg.EigenTolerance, convey.ShouldEqual, 1e-6)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with out-of-range fields", t, func() {
		cases := map[string]func(*config.Config){
			"addr":                 func(c *config.Config) { c.Addr = "" },
			"topic":                func(c *config.Config) { c.Topic = "" },
			"type_max_len":         func(c *config.Config) { c.TypeMaxLen = 0 },
			"default_min_weight":   func(c *config.Config) { c.DefaultMinWeight = 0 },
			"max_upload_bytes":     func(c *config.Config) { c.MaxUploadBytes = -1 },
			"dataset_capacity":     func(c *config.Config) { c.DatasetCapacity = 0 },
			"eigen_max_iterations": func(c *config.Config) { c.EigenMaxIterations = -1 },
			"eigen_tolerance":      func(c *config.Config) { c.EigenTolerance = 0 },
			"playback_step":        func(c *config.Config) { c.PlaybackStep = 0 },
			"playback_interval_ms": func(c *config.Config) { c.PlaybackIntervalMS = -5 },
			"trace_sample_rate":    func(c *config.Config) { c.TraceSampleRate = 1.5 },
			"log_format":           func(c *config.Config) { c.LogFormat = "xml" },
		}

		for field, mutate := range cases {
			cfg := config.New()
			mutate(cfg)
			err := cfg.Validate()

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, field)
		}
	})
}
