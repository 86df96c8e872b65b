// Copyright 2025 Nguyen Thanh Phuong. All rights reserved.

package speclog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// syncBuffer is a bytes.Buffer that is safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Lines() []string {
	s := strings.TrimSuffix(b.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// failingWriter fails every write.
type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk on fire") }

// newTestLogger builds a logger whose diagnostics are captured by the returned observer.
func newTestLogger(t *testing.T, cfg Config) (*Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.WarnLevel)
	cfg.Diagnostics = zap.New(core)
	if cfg.Stdout == nil {
		cfg.Stdout = io.Discard
	}
	if cfg.Stderr == nil {
		cfg.Stderr = io.Discard
	}
	l, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l, logs
}

func TestRoutingAndLevelFilter(t *testing.T) {
	out := &syncBuffer{}
	l, _ := newTestLogger(t, Config{
		SpecString: "info, db=warn",
		Target:     TargetStdout,
		Stdout:     out,
	})

	ctx := WithModule(context.Background(), "http")
	l.Debug(ctx, "filtered %d", 1)
	l.Info(ctx, "served %s", "/index")
	l.Log(ctx, INFO, "db::pool", "filtered by module")
	l.Log(ctx, WARN, "db::pool", "pool at %d%%", 90)

	require.Equal(t, []string{
		"INFO [http] served /index",
		"WARN [db::pool] pool at 90%",
	}, out.Lines())
	require.Equal(t, int64(2), l.Stats().Written)
}

func TestDefaultTargetIsStderr(t *testing.T) {
	out, errb := &syncBuffer{}, &syncBuffer{}
	l, _ := newTestLogger(t, Config{SpecString: "info", Stdout: out, Stderr: errb, Duplicate: DupAll})
	l.Module("m").Info("hello")
	require.Equal(t, []string{"INFO [m] hello"}, errb.Lines())
	require.Empty(t, out.String())
}

func TestLiteralMessageWithoutArgs(t *testing.T) {
	out := &syncBuffer{}
	l, _ := newTestLogger(t, Config{SpecString: "info", Target: TargetStdout, Stdout: out})
	l.Module("m").Info("100% done")
	require.Equal(t, []string{"INFO [m] 100% done"}, out.Lines())
}

func TestTextFilter(t *testing.T) {
	out := &syncBuffer{}
	l, _ := newTestLogger(t, Config{SpecString: "info/^keep", Target: TargetStdout, Stdout: out})
	m := l.Module("m")
	m.Info("keep %d", 1)
	m.Info("drop %d", 2)
	m.Info("keep %d", 3)
	require.Equal(t, []string{"INFO [m] keep 1", "INFO [m] keep 3"}, out.Lines())
	require.Equal(t, int64(1), l.Stats().TextFiltered)
}

func TestOffSpecLogsNothing(t *testing.T) {
	out := &syncBuffer{}
	l, _ := newTestLogger(t, Config{Target: TargetStdout, Stdout: out})
	l.Module("m").Error("nothing")
	require.Empty(t, out.String())
	require.False(t, l.Enabled(ERROR, "m"))
	require.Equal(t, OFF, l.Stats().MaxLevel)
}

func TestSpecStringProblems(t *testing.T) {
	_, err := New(Config{SpecString: "info, bad-mod=debug", FailOnSpecErrors: true, Stderr: io.Discard})
	var perr *ParseError
	require.True(t, errors.As(err, &perr))

	out := &syncBuffer{}
	l, logs := newTestLogger(t, Config{SpecString: "info, bad-mod=debug", Target: TargetStdout, Stdout: out})
	require.Equal(t, 1, logs.FilterMessage("ignoring invalid parts of the log spec").Len())
	l.Module("m").Info("still works")
	require.Len(t, out.Lines(), 1)
}

func TestConfigValidation(t *testing.T) {
	w := NewIOLogWriter(io.Discard, nil, OFF)
	cases := []struct {
		name string
		cfg  Config
		is   error
	}{
		{name: "writers without multi", cfg: Config{Writers: []NamedWriter{{Name: "a", Writer: w}}}},
		{name: "multi without writers", cfg: Config{Target: TargetMulti}},
		{name: "nil writer", cfg: Config{Target: TargetMulti, Writers: []NamedWriter{{Name: "a"}}}},
		{name: "unnamed writer", cfg: Config{Target: TargetMulti, Writers: []NamedWriter{{Writer: w}}}},
		{
			name: "duplicate names",
			cfg:  Config{Target: TargetMulti, Writers: []NamedWriter{{Name: "a", Writer: w}, {Name: "a", Writer: w}}},
			is:   ErrDuplicateWriterName,
		},
		{
			name: "reserved name",
			cfg: Config{
				Target:   TargetMulti,
				Rotation: RotationConfig{Enable: true, Filename: "x.log"},
				Writers:  []NamedWriter{{Name: FileWriterName, Writer: w}},
			},
			is: ErrReservedWriterName,
		},
		{name: "bad timezone", cfg: Config{Timezone: "Mars/Olympus"}},
		{name: "bad spec file suffix", cfg: Config{SpecFile: "spec.json"}, is: ErrInvalidSpecFile},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.Stderr = io.Discard
			l, err := New(tc.cfg)
			require.Error(t, err)
			require.Nil(t, l)
			if tc.is != nil {
				require.True(t, errors.Is(err, tc.is), "%v", err)
			}
		})
	}
}

func TestTryLogReturnsWriteError(t *testing.T) {
	l, logs := newTestLogger(t, Config{SpecString: "info", Target: TargetStdout, Stdout: failingWriter{}})
	err := l.TryLog(context.Background(), INFO, "m", "lost")
	require.Error(t, err)
	require.NoError(t, l.TryLog(context.Background(), DEBUG, "m", "filtered"))

	s := l.Stats()
	require.Equal(t, int64(1), s.WriteErrors)
	require.Equal(t, int64(0), s.Written)
	require.Equal(t, 1, logs.FilterMessage("log record lost").Len())
}

func TestCloseIsIdempotentAndStopsLogging(t *testing.T) {
	out := &syncBuffer{}
	l, _ := newTestLogger(t, Config{SpecString: "info", Target: TargetStdout, Stdout: out})
	l.Module("m").Info("before")
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	l.Module("m").Info("after")
	require.NoError(t, l.TryLog(context.Background(), ERROR, "m", "after"))
	require.NoError(t, l.Flush())
	require.Equal(t, []string{"INFO [m] before"}, out.Lines())
}

func TestCallerAndTimezone(t *testing.T) {
	out := &syncBuffer{}
	l, _ := newTestLogger(t, Config{
		SpecString:    "trace",
		Target:        TargetStdout,
		Stdout:        out,
		Format:        DetailedFormat,
		IncludeCaller: true,
		Timezone:      "UTC",
	})
	l.Module("m").Debug("where am I")
	l.Trace(WithModule(context.Background(), "n"), "and here")
	lines := out.Lines()
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "+00:00] DEBUG [m] logger_test.go:")
	require.True(t, strings.HasSuffix(lines[0], ": where am I"), lines[0])
	require.Contains(t, lines[1], "TRACE [n] logger_test.go:")
}

func TestAdapter(t *testing.T) {
	out := &syncBuffer{}
	l, _ := newTestLogger(t, Config{SpecString: "warn, svc=trace", Target: TargetStdout, Stdout: out})
	var ext ExtendedLogger = NewAdapter(l.Module("svc"))
	ext.Trace("t")
	ext.Debug("d")
	ext.Info("i")
	ext.Warn("w")
	ext.Error("e")
	other := NewAdapter(l.Module("svc")).WithModule("other")
	other.Info("dropped")
	other.Warn("kept")
	require.Equal(t, []string{
		"TRACE [svc] t", "DEBUG [svc] d", "INFO [svc] i", "WARN [svc] w", "ERROR [svc] e", "WARN [other] kept",
	}, out.Lines())
	require.Equal(t, "other", ModuleFromContext(other.Context()))

	require.Panics(t, func() { NewAdapter(LoggerWithCtx{}) })
}

func TestLoggerWithCtx(t *testing.T) {
	out := &syncBuffer{}
	l, _ := newTestLogger(t, Config{SpecString: "info, a=debug", Target: TargetStdout, Stdout: out})
	ctx := WithModule(context.Background(), "a::b")
	lw := l.WithContext(ctx)
	require.Equal(t, "a::b", lw.ModuleName())
	require.True(t, lw.Enabled(DEBUG))
	require.False(t, lw.WithModule("z").Enabled(DEBUG))
	lw.Debug("one")
	lw.WithModule("z").Log(WARN, "two")
	require.Equal(t, []string{"DEBUG [a::b] one", "WARN [z] two"}, out.Lines())
}

func TestConcurrentLoggingKeepsLinesIntact(t *testing.T) {
	out := &syncBuffer{}
	l, _ := newTestLogger(t, Config{SpecString: "info", Target: TargetStdout, Stdout: out})
	const goroutines, perG = 8, 200
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			m := l.Module("worker")
			for i := 0; i < perG; i++ {
				m.Info("g=%d i=%d", g, i)
			}
		}(g)
	}
	wg.Wait()

	lines := out.Lines()
	require.Len(t, lines, goroutines*perG)
	next := make(map[int]int)
	for _, line := range lines {
		require.True(t, strings.HasPrefix(line, "INFO [worker] g="), line)
		var g, i int
		_, err := fmt.Sscanf(line, "INFO [worker] g=%d i=%d", &g, &i)
		require.NoError(t, err)
		require.Equal(t, next[g], i, "records of one goroutine must keep their order")
		next[g]++
	}
}

func TestWriteFailureReportsAreThrottled(t *testing.T) {
	l, logs := newTestLogger(t, Config{
		SpecString:       "info",
		Target:           TargetStdout,
		Stdout:           failingWriter{},
		DiagnosticsRate:  20,
		DiagnosticsBurst: 2,
	})
	for i := 0; i < 10; i++ {
		l.Module("m").Info("lost %d", i)
	}
	require.Less(t, logs.Len(), 10)
	require.Equal(t, int64(10), l.Stats().WriteErrors)

	time.Sleep(100 * time.Millisecond)
	l.Module("m").Info("lost again")
	entries := logs.FilterMessage("log record lost").All()
	last := entries[len(entries)-1].ContextMap()
	require.Greater(t, last["suppressed"], int64(0))
}
