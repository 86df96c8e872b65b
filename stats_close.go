// Copyright (c) 2025 Nguyễn Thanh Phương
// This source code is licensed under the MIT License found in the LICENSE file.

// Package speclog provides a spec-driven logging front-end for Go applications.
// This file contains functions for flushing and shutting down a logger instance and
// for retrieving runtime statistics, which are essential for monitoring the
// logger's health.

package speclog

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Stats is a snapshot of a logger's counters.
type Stats struct {
	Written         int64            // Records accepted by the primary writer.
	WriteErrors     int64            // Records the primary writer failed on.
	DuplicateErrors int64            // Failed copies to stderr.
	TextFiltered    int64            // Records rejected by the text filter.
	Reloads         int64            // Spec replacements, from the handle or the spec file.
	ReloadErrors    int64            // Spec updates rejected because of problems.
	WriterErrors    map[string]int64 // Failed write attempts per multi-target writer.
	MaxLevel        Level            // The current max-level marker.
}

// Stats returns a snapshot of the logger's statistics. It is safe for concurrent use.
func (l *Logger) Stats() Stats {
	return Stats{
		Written:         l.writtenCount.Load(),
		WriteErrors:     l.writeErrCount.Load(),
		DuplicateErrors: l.dupErrCount.Load(),
		TextFiltered:    l.textFiltered.Load(),
		Reloads:         l.reloadCount.Load(),
		ReloadErrors:    l.reloadErrs.Load(),
		WriterErrors:    l.getWriterErrorStats(),
		MaxLevel:        l.store.maxLevel.Load(),
	}
}

// Flush pushes buffered output of the primary writer, and of stderr if records
// are duplicated, to the underlying medium.
func (l *Logger) Flush() error {
	if l.closed.Load() {
		return nil
	}
	return l.primary.flush()
}

// Close stops the spec file watcher, waits for records that are being written,
// then flushes and closes the writers. Records emitted afterwards are dropped.
// Close must not be called from a LogWriter or a FormatFunc. It is idempotent;
// later calls return the result of the first one.
func (l *Logger) Close() error {
	l.closeOnce.Do(func() {
		var err error
		if l.watcher != nil {
			err = errors.CombineErrors(err, l.watcher.stop())
		}
		l.closed.TrySetTrue()
		l.waitForInflight()
		err = errors.CombineErrors(err, l.primary.close())
		l.reportFinalStats()
		l.diag.sync()
		l.closeErr = err
	})
	return l.closeErr
}

// waitForInflight blocks until no record is being written. Records that observe
// closed return without touching a writer.
func (l *Logger) waitForInflight() {
	for l.inflight.Load() > 0 {
		time.Sleep(time.Millisecond)
	}
}

// incWriterErr is a thread-safe method to increment the error count for a specific writer.
func (l *Logger) incWriterErr(name string) {
	if c, ok := l.writerErrs.Load(name); ok {
		c.(*atomicI64).Add(1)
		return
	}
	ai := &atomicI64{}
	prev, _ := l.writerErrs.LoadOrStore(name, ai)
	prev.(*atomicI64).Add(1)
}

// getWriterErrorStats safely retrieves a snapshot of the writer error counts.
func (l *Logger) getWriterErrorStats() map[string]int64 {
	stats := make(map[string]int64)
	l.writerErrs.Range(func(key, value any) bool {
		stats[key.(string)] = value.(*atomicI64).Load()
		return true
	})
	return stats
}

// formatWriterErrorStats creates a summary string of writer errors, sorted by name.
func (l *Logger) formatWriterErrorStats() string {
	stats := l.getWriterErrorStats()
	if len(stats) == 0 {
		return ""
	}
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)
	var sb strings.Builder
	for i, name := range names {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprintf("%s=%d", name, stats[name]))
	}
	return sb.String()
}

// reportFinalStats reports write failures to the diagnostics log on shutdown.
func (l *Logger) reportFinalStats() {
	writeErrs := l.writeErrCount.Load()
	perWriter := l.formatWriterErrorStats()
	if writeErrs == 0 && perWriter == "" {
		return
	}
	l.diag.warn("logger closed with write errors",
		zap.Int64("lost_records", writeErrs),
		zap.String("writer_errors", perWriter))
}
