package repository

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init(logger.WithWriter(io.Discard))
}

type logLine struct {
	level string
	msg   string
	sql   string
}

type recordingLogger struct {
	mu    sync.Mutex
	lines []logLine
}

func (r *recordingLogger) add(level, msg string, fields []logger.Field) {
	l := logLine{level: level, msg: msg}
	for _, f := range fields {
		if f.Key == "sql" {
			l.sql, _ = f.Value.(string)
		}
	}
	r.mu.Lock()
	r.lines = append(r.lines, l)
	r.mu.Unlock()
}

func (r *recordingLogger) Info(_ context.Context, msg string, f ...logger.Field) {
	r.add("info", msg, f)
}

func (r *recordingLogger) Error(_ context.Context, msg string, f ...logger.Field) {
	r.add("error", msg, f)
}

func (r *recordingLogger) Debug(_ context.Context, msg string, f ...logger.Field) {
	r.add("debug", msg, f)
}

func (r *recordingLogger) Warn(_ context.Context, msg string, f ...logger.Field) {
	r.add("warn", msg, f)
}

func (r *recordingLogger) Fatal(_ context.Context, msg string, f ...logger.Field) {
	r.add("fatal", msg, f)
}

func (r *recordingLogger) Named(string) logger.Logger { return r }

func (r *recordingLogger) reset() {
	r.mu.Lock()
	r.lines = nil
	r.mu.Unlock()
}

func (r *recordingLogger) statements() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, l := range r.lines {
		if l.sql != "" {
			out = append(out, l.sql)
		}
	}
	return out
}

func (r *recordingLogger) levels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.lines))
	for _, l := range r.lines {
		out = append(out, l.level)
	}
	return out
}

func TestSQLiteStatementLogging(t *testing.T) {
	Convey("Given a SQLite store tracing every statement", t, func() {
		rec := &recordingLogger{}
		s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "pulse.db"),
			WithSQLiteLogger(rec),
			WithSQLLogLevel(gormlogger.Info),
		)
		So(err, ShouldBeNil)
		defer s.Close()
		rec.reset()

		user := "fan-1"
		ctx := context.Background()
		for i := 0; i < 3; i++ {
			So(s.Save(ctx, model.PulseEntry{UserID: &user, GameID: "nfl-1", League: "NFL"}), ShouldBeNil)
		}

		Convey("Then inserts should reach the logger", func() {
			inserts := 0
			for _, stmt := range rec.statements() {
				if strings.HasPrefix(stmt, "INSERT") {
					inserts++
				}
			}
			So(inserts, ShouldEqual, 3)
		})

		Convey("Then saving should not count the table", func() {
			for _, stmt := range rec.statements() {
				So(strings.ToLower(stmt), ShouldNotContainSubstring, "count(")
			}
		})

		Convey("Then the in-process count should match the table", func() {
			So(int(s.stored.Load()), ShouldEqual, 3)
			So(s.Count(ctx), ShouldEqual, 3)
		})
	})

	Convey("Given a store reopened over existing rows", t, func() {
		path := filepath.Join(t.TempDir(), "pulse.db")
		first, err := NewSQLiteStore(path)
		So(err, ShouldBeNil)
		So(first.Save(context.Background(), model.PulseEntry{GameID: "nfl-1", League: "NFL"}), ShouldBeNil)
		So(first.Close(), ShouldBeNil)

		second, err := NewSQLiteStore(path)
		So(err, ShouldBeNil)
		defer second.Close()

		So(int(second.stored.Load()), ShouldEqual, 1)
	})
}

func TestGormLog(t *testing.T) {
	Convey("Given the gorm logger at warn level", t, func() {
		rec := &recordingLogger{}
		g := newGormLog(rec, gormlogger.Warn)
		ctx := context.Background()
		stmt := func() (string, int64) { return "SELECT 1", 0 }

		Convey("A failed statement should be logged as an error", func() {
			g.Trace(ctx, time.Now(), stmt, errors.New("disk I/O error"))
			So(rec.levels(), ShouldResemble, []string{"error"})
			So(rec.statements(), ShouldResemble, []string{"SELECT 1"})
		})

		Convey("A missing record should not be logged", func() {
			g.Trace(ctx, time.Now(), stmt, gorm.ErrRecordNotFound)
			So(rec.levels(), ShouldBeEmpty)
		})

		Convey("A slow statement should be logged as a warning", func() {
			g.Trace(ctx, time.Now().Add(-time.Second), stmt, nil)
			So(rec.levels(), ShouldResemble, []string{"warn"})
		})

		Convey("A fast statement should be skipped", func() {
			g.Trace(ctx, time.Now(), stmt, nil)
			So(rec.levels(), ShouldBeEmpty)
		})

		Convey("Silent mode should drop everything", func() {
			g.LogMode(gormlogger.Silent).Trace(ctx, time.Now(), stmt, errors.New("boom"))
			g.LogMode(gormlogger.Silent).Error(ctx, "boom %d", 1)
			So(rec.levels(), ShouldBeEmpty)
		})

		Convey("Formatted messages should respect the level", func() {
			g.Info(ctx, "hidden %s", "info")
			g.Warn(ctx, "shown %s", "warn")
			So(rec.levels(), ShouldResemble, []string{"warn"})
		})
	})
}
