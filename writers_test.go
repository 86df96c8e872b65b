// Copyright 2025 Nguyen Thanh Phuong. All rights reserved.

package speclog

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

// recordingWriter is a LogWriter that keeps formatted lines and can be told to fail.
type recordingWriter struct {
	mu       sync.Mutex
	lines    []string
	failures   int // number of upcoming writes that fail
	maxLevel   Level
	flushed    int
	closed     bool
	lateWrites int // writes after Close
}

func (w *recordingWriter) Write(_ time.Time, r *Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		w.lateWrites++
	}
	if w.failures > 0 {
		w.failures--
		return errors.New("transient failure")
	}
	w.lines = append(w.lines, fmt.Sprintf("%s %s", r.Level, r.Message()))
	return nil
}

func (w *recordingWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.flushed++
	return nil
}

func (w *recordingWriter) MaxLevel() Level {
	if w.maxLevel == OFF {
		return MaxLevel
	}
	return w.maxLevel
}

func (w *recordingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *recordingWriter) Lines() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.lines...)
}

func emitAllLevels(l *Logger, module string) {
	m := l.Module(module)
	m.Error("e")
	m.Warn("w")
	m.Info("i")
	m.Debug("d")
	m.Trace("t")
}

func TestDuplicationBoundary(t *testing.T) {
	errb := &syncBuffer{}
	w := &recordingWriter{}
	l, _ := newTestLogger(t, Config{
		SpecString: "trace",
		Target:     TargetMulti,
		Duplicate:  DupWarn,
		Stderr:     errb,
		Writers:    []NamedWriter{{Name: "w", Writer: w}},
	})
	emitAllLevels(l, "m")
	require.Len(t, w.Lines(), 5)
	require.Equal(t, []string{"ERROR [m] e", "WARN [m] w"}, errb.Lines())
}

func TestStdoutTargetNeverDuplicates(t *testing.T) {
	out, errb := &syncBuffer{}, &syncBuffer{}
	l, _ := newTestLogger(t, Config{
		SpecString: "trace",
		Target:     TargetStdout,
		Duplicate:  DupAll,
		Stdout:     out,
		Stderr:     errb,
	})
	emitAllLevels(l, "m")
	require.Len(t, out.Lines(), 5)
	require.Empty(t, errb.String())
}

func TestDuplicationErrorIsExact(t *testing.T) {
	errb := &syncBuffer{}
	l, _ := newTestLogger(t, Config{SpecString: "trace", Target: TargetDiscard, Duplicate: DupError, Stderr: errb})
	emitAllLevels(l, "m")
	require.Equal(t, []string{"ERROR [m] e"}, errb.Lines())
}

func TestDiscardTarget(t *testing.T) {
	out, errb := &syncBuffer{}, &syncBuffer{}
	l, _ := newTestLogger(t, Config{SpecString: "trace", Target: TargetDiscard, Stdout: out, Stderr: errb})
	emitAllLevels(l, "m")
	require.Empty(t, out.String())
	require.Empty(t, errb.String())
	require.Equal(t, int64(5), l.Stats().Written)
}

func TestDuplicationFailureIsNotPropagated(t *testing.T) {
	w := &recordingWriter{}
	l, logs := newTestLogger(t, Config{
		SpecString: "info",
		Target:     TargetMulti,
		Duplicate:  DupAll,
		Stderr:     failingWriter{},
		Writers:    []NamedWriter{{Name: "w", Writer: w}},
	})
	require.NoError(t, l.TryLog(context.Background(), ERROR, "m", "still written"))
	require.Equal(t, []string{"ERROR still written"}, w.Lines())
	require.Equal(t, int64(1), l.Stats().DuplicateErrors)
	require.Equal(t, 1, logs.FilterMessage("duplicating record to stderr failed").Len())
}

func TestMultiWriterOrderAndLevels(t *testing.T) {
	all := &recordingWriter{}
	warnOnly := &recordingWriter{maxLevel: WARN}
	l, _ := newTestLogger(t, Config{
		SpecString: "debug",
		Target:     TargetMulti,
		Writers: []NamedWriter{
			{Name: "all", Writer: all},
			{Name: "warn", Writer: warnOnly},
		},
	})
	emitAllLevels(l, "m")
	require.Equal(t, []string{"ERROR e", "WARN w", "INFO i", "DEBUG d"}, all.Lines())
	require.Equal(t, []string{"ERROR e", "WARN w"}, warnOnly.Lines())

	require.NoError(t, l.Flush())
	require.Equal(t, 1, all.flushed)
	require.NoError(t, l.Close())
	require.True(t, all.closed)
	require.True(t, warnOnly.closed)
}

// gatedWriter blocks every write until release is closed.
type gatedWriter struct {
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedWriter) Write(time.Time, *Record) error {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return nil
}

func (g *gatedWriter) Flush() error    { return nil }
func (g *gatedWriter) MaxLevel() Level { return MaxLevel }

func TestCloseWaitsForRecordsBeingWritten(t *testing.T) {
	gate := &gatedWriter{entered: make(chan struct{}), release: make(chan struct{})}
	rec := &recordingWriter{}
	l, _ := newTestLogger(t, Config{
		SpecString: "info",
		Target:     TargetMulti,
		Writers: []NamedWriter{
			{Name: "gate", Writer: gate},
			{Name: "rec", Writer: rec},
		},
	})

	logged := make(chan struct{})
	go func() {
		defer close(logged)
		l.Module("m").Info("in flight")
	}()
	<-gate.entered

	closed := make(chan error, 1)
	go func() { closed <- l.Close() }()
	require.Never(t, func() bool { return len(closed) > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	close(gate.release)
	require.NoError(t, <-closed)
	<-logged
	require.Equal(t, []string{"INFO in flight"}, rec.Lines())
	require.Zero(t, rec.lateWrites)
	require.True(t, rec.closed)

	l.Module("m").Info("after close")
	require.Equal(t, []string{"INFO in flight"}, rec.Lines())
}

func TestMultiWriterErrorPropagates(t *testing.T) {
	broken := &recordingWriter{failures: 100}
	healthy := &recordingWriter{}
	l, _ := newTestLogger(t, Config{
		SpecString: "info",
		Target:     TargetMulti,
		Writers: []NamedWriter{
			{Name: "broken", Writer: broken},
			{Name: "healthy", Writer: healthy},
		},
	})
	err := l.TryLog(context.Background(), INFO, "m", "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), `"broken"`)
	// The failing writer does not keep the others from receiving the record.
	require.Equal(t, []string{"INFO hello"}, healthy.Lines())

	s := l.Stats()
	require.Equal(t, int64(1), s.WriteErrors)
	require.Equal(t, map[string]int64{"broken": 1}, s.WriterErrors)
}

func TestMultiWriterRetry(t *testing.T) {
	flaky := &recordingWriter{failures: 2}
	l, _ := newTestLogger(t, Config{
		SpecString: "info",
		Target:     TargetMulti,
		Retry:      RetryPolicy{MaxRetries: 2, Backoff: time.Millisecond, Exponential: true, Jitter: time.Millisecond},
		Writers:    []NamedWriter{{Name: "flaky", Writer: flaky}},
	})
	require.NoError(t, l.TryLog(context.Background(), WARN, "m", "eventually"))
	require.Equal(t, []string{"WARN eventually"}, flaky.Lines())
	s := l.Stats()
	require.Equal(t, int64(0), s.WriteErrors)
	require.Equal(t, int64(2), s.WriterErrors["flaky"])
}

func TestMultiWriterDuplicates(t *testing.T) {
	errb := &syncBuffer{}
	w := &recordingWriter{}
	l, _ := newTestLogger(t, Config{
		SpecString: "info",
		Target:     TargetMulti,
		Duplicate:  DupInfo,
		Stderr:     errb,
		Writers:    []NamedWriter{{Name: "w", Writer: w}},
	})
	emitAllLevels(l, "m")
	require.Equal(t, []string{"ERROR [m] e", "WARN [m] w", "INFO [m] i"}, errb.Lines())
	require.Len(t, w.Lines(), 3)
}

func TestFileLogWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	l, _ := newTestLogger(t, Config{
		SpecString:     "info",
		Target:         TargetMulti,
		FormatForFiles: JSONFormat,
		Rotation:       RotationConfig{Enable: true, Filename: path, MaxSizeMB: 1},
	})
	l.Module("m").Info("to the file")
	l.Module("m").Debug("not to the file")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], `"message":"to the file"`)
	require.Contains(t, lines[0], `"module":"m"`)
}

func TestFileLogWriterRequiresName(t *testing.T) {
	_, err := NewFileLogWriter(RotationConfig{Enable: true}, nil)
	require.Error(t, err)
}

// selfLogging renders itself by logging through the same logger.
type selfLogging struct {
	l *Logger
}

func (s selfLogging) String() string {
	s.l.Module("inner").Info("nested")
	return "outer-value"
}

func TestReentrantFormatting(t *testing.T) {
	for _, target := range []Target{TargetStdout, TargetMulti} {
		t.Run(target.String(), func(t *testing.T) {
			out := &syncBuffer{}
			cfg := Config{SpecString: "info", Target: target, Stdout: out}
			if target == TargetMulti {
				cfg.Writers = []NamedWriter{{Name: "out", Writer: NewIOLogWriter(out, nil, OFF)}}
			}
			l, _ := newTestLogger(t, cfg)
			l.Module("outer").Info("value=%s", selfLogging{l: l})
			require.Equal(t, []string{"INFO [inner] nested", "INFO [outer] value=outer-value"}, out.Lines())
		})
	}
}

func TestScratchPoolFallsBackWhenBusy(t *testing.T) {
	p := newScratchPool(1)
	first := p.borrow()
	require.NotNil(t, first.slot)
	first.buf.WriteString("outer")

	second := p.borrow()
	require.Nil(t, second.slot)
	second.buf.WriteString("inner")
	require.Equal(t, "outer", first.buf.String())
	require.Equal(t, int64(1), p.fallbacks.Load())

	p.release(second)
	p.release(first)
	third := p.borrow()
	require.NotNil(t, third.slot)
	require.Zero(t, third.buf.Len())
	p.release(third)
}

func TestScratchPoolDropsLargeBuffers(t *testing.T) {
	p := newScratchPool(1)
	s := p.borrow()
	s.buf.Write(make([]byte, scratchMaxCap+1))
	p.release(s)
	require.LessOrEqual(t, p.slots[0].buf.Cap(), scratchMaxCap)
}

func TestIOLogWriterFlushes(t *testing.T) {
	fw := &flushRecorder{}
	w := NewIOLogWriter(fw, DefaultFormat, OFF)
	require.Equal(t, MaxLevel, w.MaxLevel())
	require.NoError(t, w.Write(time.Now(), &Record{Level: INFO, Module: "m", Format: "x"}))
	require.NoError(t, w.Flush())
	require.Equal(t, 1, fw.flushes)
	require.Equal(t, "INFO [m] x\n", fw.String())
}

type flushRecorder struct {
	syncBuffer
	flushes int
}

func (f *flushRecorder) Flush() error {
	f.flushes++
	return nil
}

var _ io.Writer = (*flushRecorder)(nil)
