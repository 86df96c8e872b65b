// Copyright (c) 2025 Nguyễn Thanh Phương
// This source code is licensed under the MIT License found in the LICENSE file.

// Package speclog provides a spec-driven logging front-end for Go applications.
// This file implements the dispatch step of the log pipeline. Records that passed
// the spec are written synchronously on the calling goroutine, so records from one
// goroutine reach each destination in the order they were emitted.

package speclog

import (
	"time"

	"go.uber.org/zap"
)

// dispatch hands r to the primary writer and records the outcome. A write error
// is returned to the caller and also reported, throttled, to the diagnostics log.
func (l *Logger) dispatch(now time.Time, r *Record) error {
	// Close sets closed before it waits for inflight to drain, so a record that
	// gets past this check is finished before the writers are closed.
	l.inflight.Add(1)
	defer l.inflight.Add(-1)
	if l.closed.Load() {
		return nil
	}
	if err := l.primary.write(now, r); err != nil {
		l.writeErrCount.Add(1)
		l.diag.throttled("log record lost", zap.String("module", r.Module), zap.Stringer("level", r.Level), zap.Error(err))
		return err
	}
	l.writtenCount.Add(1)
	return nil
}
