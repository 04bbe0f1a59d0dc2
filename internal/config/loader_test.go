package config_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/okian/pulse/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.ResolveTimeoutMS, convey.ShouldEqual, 2000)
				convey.So(cfg.StoreDriver, convey.ShouldEqual, "memory")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("PULSE_ADDR", ":8080")
			_ = os.Setenv("PULSE_QUEUE_SIZE", "500")
			_ = os.Setenv("PULSE_ACR_THRESHOLD", "0.8")
			_ = os.Setenv("PULSE_CONTENT_SOURCE", "espn")
			_ = os.Setenv("PULSE_DEFAULT_LEAGUES", "NFL,MLB")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 500)
				convey.So(cfg.ACRThreshold, convey.ShouldEqual, 0.8)
				convey.So(cfg.ContentSource, convey.ShouldEqual, "espn")
				convey.So(cfg.DefaultLeagues, convey.ShouldResemble, []string{"NFL", "MLB"})
			})
		})

		convey.Convey("When loading config with a YAML file and env overrides", func() {
			yamlContent := `
addr: ":9090"
worker_count: 3
store_driver: sqlite
store_path: /tmp/pulse-test.sqlite3
fingerprints:
  - hash: abc123
    game_id: nfl-401
    confidence: 0.92
  - hash: def456
    team_name: Seahawks
    league: NFL
    confidence: 0.8
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("PULSE_CONFIG", tmpFile)
			_ = os.Setenv("PULSE_WORKER_COUNT", "7")

			cfg, err := config.Load(ctx)

			convey.Convey("Then env should win over file and file over defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 7)
				convey.So(cfg.StoreDriver, convey.ShouldEqual, "sqlite")
				convey.So(cfg.ResolveTimeoutMS, convey.ShouldEqual, 2000)
				convey.So(len(cfg.Fingerprints), convey.ShouldEqual, 2)
				convey.So(cfg.Fingerprints[0].GameID, convey.ShouldEqual, "nfl-401")
				convey.So(cfg.Fingerprints[1].TeamName, convey.ShouldEqual, "Seahawks")
				convey.So(cfg.Fingerprints[1].Confidence, convey.ShouldEqual, 0.8)
			})
		})

		convey.Convey("When LoadFile is given a path explicitly", func() {
			tmpFile := createTempConfigFile("addr: \":7070\"\nlog_format: json\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("PULSE_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.LoadFile(ctx, tmpFile)

			convey.Convey("Then the explicit path should replace PULSE_CONFIG", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
			})
		})

		convey.Convey("When LoadFile is given an empty path", func() {
			cfg, err := config.LoadFile(ctx, "")

			convey.Convey("Then only defaults and env should apply", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("PULSE_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("PULSE_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("PULSE_QUEUE_SIZE", "not_a_number")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestConfigValidation(t *testing.T) {
	convey.Convey("Given config validation", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		cases := []struct{ name, kv string }{
			{"empty addr", "PULSE_ADDR="},
			{"threshold too high", "PULSE_ACR_THRESHOLD=1.2"},
			{"threshold zero", "PULSE_ACR_THRESHOLD=0"},
			{"unknown store driver", "PULSE_STORE_DRIVER=postgres"},
			{"unknown content", "PULSE_CONTENT_SOURCE=scraper"},
			{"zero resolve timeout", "PULSE_RESOLVE_TIMEOUT_MS=0"},
		}
		for _, tc := range cases {
			key, val := splitKV(tc.kv)
			convey.Convey("When "+tc.name, func() {
				_ = os.Setenv(key, val)

				cfg, err := config.Load(ctx)

				convey.Convey("Then it should be rejected as invalid", func() {
					convey.So(cfg, convey.ShouldBeNil)
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				})
			})
		}

		convey.Convey("When a fingerprint lacks a target", func() {
			cfg := config.New()
			cfg.Fingerprints = []config.Fingerprint{{Hash: "abc"}}

			convey.Convey("Then Validate should fail", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

// Helper functions.

func splitKV(kv string) (string, string) {
	key, val, _ := strings.Cut(kv, "=")
	return key, val
}

func clearConfigEnvVars() {
	envVars := []string{
		"PULSE_CONFIG",
		"PULSE_ADDR",
		"PULSE_QUEUE_SIZE",
		"PULSE_WORKER_COUNT",
		"PULSE_ACR_THRESHOLD",
		"PULSE_CONTENT_SOURCE",
		"PULSE_STORE_DRIVER",
		"PULSE_DEFAULT_LEAGUES",
		"PULSE_RESOLVE_TIMEOUT_MS",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "pulse-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
