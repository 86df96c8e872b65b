// Copyright (c) 2025 Nguyễn Thanh Phương
// This source code is licensed under the MIT License found in the LICENSE file.

// Package speclog provides a spec-driven logging front-end for Go applications.
// This file defines the core data structures, types, and interfaces used throughout the library,
// including the main Config struct for initialization.

package speclog

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Level represents the severity of a log record, and the threshold of a module filter.
// Levels are ordered from least to most verbose; a record passes a filter when its
// level is less than or equal to the filter's threshold.
type Level int32

// Log level constants.
const (
	// OFF disables output when used as a threshold. It is never the level of a record.
	OFF Level = iota
	// ERROR level is for error events that might still allow the application to continue running.
	ERROR
	// WARN level is for potentially harmful situations or events that are not errors.
	WARN
	// INFO level is for informational messages that highlight the progress of the application.
	INFO
	// DEBUG level is for detailed information, typically of interest only when diagnosing problems.
	DEBUG
	// TRACE level is for the most fine-grained information.
	TRACE
)

// MaxLevel is the most verbose threshold. It is used when a module filter names no level.
const MaxLevel = TRACE

// String returns the uppercase string representation of the log level.
func (lvl Level) String() string {
	switch lvl {
	case OFF:
		return "OFF"
	case ERROR:
		return "ERROR"
	case WARN:
		return "WARN"
	case INFO:
		return "INFO"
	case DEBUG:
		return "DEBUG"
	case TRACE:
		return "TRACE"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a level name case-insensitively.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off":
		return OFF, nil
	case "error":
		return ERROR, nil
	case "warn":
		return WARN, nil
	case "info":
		return INFO, nil
	case "debug":
		return DEBUG, nil
	case "trace":
		return TRACE, nil
	default:
		return OFF, errors.Newf("unknown level filter: %s", s)
	}
}

// Duplicate selects which records are additionally copied to stderr, next to the
// primary target. It applies to TargetMulti and TargetDiscard only.
type Duplicate int

const (
	// DupNone duplicates nothing.
	DupNone Duplicate = iota
	// DupError duplicates only ERROR records.
	DupError
	// DupWarn duplicates ERROR and WARN records.
	DupWarn
	// DupInfo duplicates ERROR, WARN and INFO records.
	DupInfo
	// DupDebug duplicates everything but TRACE records.
	DupDebug
	// DupTrace duplicates every record.
	DupTrace
	// DupAll is the same as DupTrace.
	DupAll
)

// Matches reports whether a record of the given level is to be duplicated.
func (d Duplicate) Matches(lvl Level) bool {
	if lvl <= OFF || lvl > TRACE {
		return false
	}
	switch d {
	case DupError:
		return lvl == ERROR
	case DupWarn:
		return lvl <= WARN
	case DupInfo:
		return lvl <= INFO
	case DupDebug:
		return lvl <= DEBUG
	case DupTrace, DupAll:
		return true
	default:
		return false
	}
}

// String returns the lowercase name of the duplication setting.
func (d Duplicate) String() string {
	switch d {
	case DupNone:
		return "none"
	case DupError:
		return "error"
	case DupWarn:
		return "warn"
	case DupInfo:
		return "info"
	case DupDebug:
		return "debug"
	case DupTrace:
		return "trace"
	case DupAll:
		return "all"
	default:
		return fmt.Sprintf("Duplicate(%d)", int(d))
	}
}

// ParseDuplicate parses the name of a duplication setting.
func ParseDuplicate(s string) (Duplicate, error) {
	for d := DupNone; d <= DupAll; d++ {
		if strings.EqualFold(strings.TrimSpace(s), d.String()) {
			return d, nil
		}
	}
	return DupNone, errors.Newf("unknown duplication setting: %s", s)
}

// Target selects the primary destination of accepted records.
type Target int

const (
	// TargetStderr writes to Config.Stderr. It is the default.
	TargetStderr Target = iota
	// TargetStdout writes to Config.Stdout.
	TargetStdout
	// TargetMulti writes to the rotating file (if enabled) and every Config.Writers entry.
	TargetMulti
	// TargetDiscard drops every record, apart from what is duplicated to stderr.
	TargetDiscard
)

// String returns the lowercase name of the target.
func (t Target) String() string {
	switch t {
	case TargetStderr:
		return "stderr"
	case TargetStdout:
		return "stdout"
	case TargetMulti:
		return "multi"
	case TargetDiscard:
		return "discard"
	default:
		return fmt.Sprintf("Target(%d)", int(t))
	}
}

// ParseTarget parses the name of a target.
func ParseTarget(s string) (Target, error) {
	for t := TargetStderr; t <= TargetDiscard; t++ {
		if strings.EqualFold(strings.TrimSpace(s), t.String()) {
			return t, nil
		}
	}
	return TargetStderr, errors.Newf("unknown target: %s", s)
}

// Record is one log event as it flows from the call site to the writers.
// A Record is only valid for the duration of the Write call it is passed to.
type Record struct {
	Level  Level
	Module string
	File   string // Empty unless Config.IncludeCaller is set.
	Line   int
	Format string
	Args   []any
	Ctx    context.Context

	// TraceID and SpanID are filled from the OpenTelemetry span in Ctx when
	// Config.EnableOTel is set.
	TraceID string
	SpanID  string

	msg      string
	rendered bool
}

// Message renders the record's message. The result is cached, so the arguments'
// formatting methods run at most once through this path.
func (r *Record) Message() string {
	if !r.rendered {
		if len(r.Args) == 0 {
			r.msg = r.Format
		} else {
			r.msg = fmt.Sprintf(r.Format, r.Args...)
		}
		r.rendered = true
	}
	return r.msg
}

// WriteMessage writes the rendered message to w without building an intermediate string,
// unless the message has already been rendered by Message.
func (r *Record) WriteMessage(w io.Writer) error {
	var err error
	switch {
	case r.rendered || len(r.Args) == 0:
		_, err = io.WriteString(w, r.Message())
	default:
		_, err = fmt.Fprintf(w, r.Format, r.Args...)
	}
	return err
}

// FormatFunc renders a record into w. The dispatcher appends the trailing newline.
type FormatFunc func(w io.Writer, now time.Time, r *Record) error

// LogWriter is an additional, named destination used by TargetMulti.
// Implementations must serialize their own output; Write may be called concurrently.
type LogWriter interface {
	// Write formats and emits a single record.
	Write(now time.Time, r *Record) error
	// Flush pushes buffered output to the underlying medium.
	Flush() error
	// MaxLevel is the most verbose level this writer wants to receive.
	MaxLevel() Level
}

// NamedWriter pairs a LogWriter with the name used for error statistics.
type NamedWriter struct {
	Name   string
	Writer LogWriter
}

// RetryPolicy configures the retry behavior for transient errors during writes to a LogWriter.
type RetryPolicy struct {
	// MaxRetries is the maximum number of times to retry a failed write.
	// If 0, no retries will be attempted. Defaults to 0.
	MaxRetries int
	// Backoff is the base duration to wait before the first retry.
	// Defaults to 0.
	Backoff time.Duration
	// Jitter adds a random duration up to this value to the backoff, preventing thundering herd issues.
	// Defaults to 0.
	Jitter time.Duration
	// Exponential, if true, doubles the backoff duration after each failed retry.
	// Defaults to false.
	Exponential bool
}

// RotationConfig configures the rotating file writer built on the lumberjack library.
type RotationConfig struct {
	// Enable adds the rotating file as the writer named "file" when the target is TargetMulti.
	Enable bool
	// Filename is the path to the log file. Required if rotation is enabled.
	Filename string
	// MaxSizeMB is the maximum size in megabytes a log file can reach before it is rotated.
	MaxSizeMB int
	// MaxAge is the maximum number of days to retain old log files.
	MaxAge int
	// MaxBackups is the maximum number of old log files to keep.
	MaxBackups int
	// Compress determines if rotated log files should be compressed using gzip.
	Compress bool
	// LocalTime uses local time in the names of rotated files instead of UTC.
	LocalTime bool
	// MaxLevel is the most verbose level written to the file. Defaults to TRACE.
	MaxLevel Level
}

// Config is the central configuration struct for creating a new Logger instance with New.
type Config struct {
	// Spec is the initial log specification. If nil, SpecString is parsed instead.
	Spec *LogSpec
	// SpecString is parsed when Spec is nil. An empty string means nothing is logged.
	SpecString string
	// FailOnSpecErrors makes New fail if SpecString has problems, instead of
	// reporting them and using the rules that could be parsed.
	FailOnSpecErrors bool

	// Target is the primary destination. Defaults to TargetStderr.
	Target Target
	// Duplicate selects which records are also copied to Stderr by TargetMulti and
	// TargetDiscard. Defaults to DupNone.
	Duplicate Duplicate

	// Format is used for stdout and as the fallback of the other two formats.
	// Defaults to DefaultFormat.
	Format FormatFunc
	// FormatForStderr is used for TargetStderr and for duplicated records.
	FormatForStderr FormatFunc
	// FormatForFiles is used for the rotating file writer.
	FormatForFiles FormatFunc

	// Stdout and Stderr default to os.Stdout and os.Stderr.
	Stdout io.Writer
	Stderr io.Writer

	// Rotation configures the optional rotating file writer.
	Rotation RotationConfig
	// Writers are the additional named destinations used by TargetMulti.
	Writers []NamedWriter
	// Retry is applied to writes to the multi-target writers.
	Retry RetryPolicy

	// Timezone is an IANA zone name used for the timestamps passed to formats.
	// Defaults to the local zone.
	Timezone string
	// IncludeCaller captures the file and line of the call site.
	IncludeCaller bool
	// EnableOTel fills Record.TraceID and Record.SpanID from the context.
	EnableOTel bool

	// SpecFile is the path of a TOML file that holds the log specification.
	// It is created from the initial spec if missing and watched for changes.
	SpecFile string
	// SpecFileDebounce is how long the watcher waits for the file to settle
	// before reloading it. Defaults to 800ms.
	SpecFileDebounce time.Duration

	// Diagnostics receives the library's own warnings. Defaults to a console
	// zap logger on Stderr at warn level.
	Diagnostics *zap.Logger
	// DiagnosticsRate and DiagnosticsBurst throttle repeated write failure reports.
	// Default to one per second with a burst of 5.
	DiagnosticsRate  float64
	DiagnosticsBurst int
}

// Logger is the central struct of the library. Its methods are safe for concurrent use.
type Logger struct {
	store    *specStore
	primary  primaryWriter
	handle   *ReconfigurationHandle
	watcher  *specFileWatcher
	diag     *diagnostics
	loc      *time.Location
	specFile string

	includeCaller bool
	enableOTel    bool

	closed    atomicBool
	closeOnce sync.Once
	closeErr  error
	inflight  atomicI64 // Records between the closed check and the end of their write.

	// --- Statistics ---
	writtenCount  atomicI64 // Records accepted by the primary writer.
	writeErrCount atomicI64 // Records the primary writer failed on.
	dupErrCount   atomicI64 // Failed duplications to stderr.
	textFiltered  atomicI64 // Records rejected by the text filter.
	reloadCount   atomicI64 // Successful spec replacements.
	reloadErrs    atomicI64 // Rejected spec updates.
	writerErrs    sync.Map  // Error counts per multi-target writer.
}

// LoggerWithCtx is a lightweight wrapper that binds a *Logger instance to a context.Context
// and a module name.
type LoggerWithCtx struct {
	l      *Logger
	ctx    context.Context
	module string
}

// --- Atomic Wrappers ---

// atomicLevel provides atomic operations for the Level type (int32).
type atomicLevel struct{ v int32 }

func (a *atomicLevel) Load() Level      { return Level(atomic.LoadInt32(&a.v)) }
func (a *atomicLevel) Store(val Level) { atomic.StoreInt32(&a.v, int32(val)) }

// atomicBool provides atomic operations for a boolean.
type atomicBool struct{ v uint32 }

func (a *atomicBool) Load() bool       { return atomic.LoadUint32(&a.v) != 0 }
func (a *atomicBool) TrySetTrue() bool { return atomic.CompareAndSwapUint32(&a.v, 0, 1) }

// atomicI64 provides atomic operations for an int64.
type atomicI64 struct{ v int64 }

func (a *atomicI64) Add(delta int64)      { atomic.AddInt64(&a.v, delta) }
func (a *atomicI64) Load() int64          { return atomic.LoadInt64(&a.v) }
func (a *atomicI64) Swap(val int64) int64 { return atomic.SwapInt64(&a.v, val) }
