// Copyright (c) 2025 Nguyễn Thanh Phương
// This source code is licensed under the MIT License found in the LICENSE file.

// Package speclog provides a spec-driven logging front-end for Go applications.
// This file contains the core logging methods for the Logger struct. These methods
// serve as the entry point into the logging pipeline, where they check the record
// against the active spec and hand accepted records to the primary writer on the
// calling goroutine.

package speclog

import (
	"context"
	"runtime"
	"time"
)

// callerDepth is the runtime.Caller depth of the user's call site as seen from log.
const callerDepth = 2

// Log emits a record for module at the given level. The arguments are only
// formatted if the record passes the active spec.
func (l *Logger) Log(ctx context.Context, level Level, module string, format string, args ...interface{}) {
	_ = l.log(ctx, callerDepth, level, module, format, args)
}

// TryLog is like Log but returns the primary writer's error, if any. A record
// that is filtered out, or emitted after Close, yields nil.
func (l *Logger) TryLog(ctx context.Context, level Level, module string, format string, args ...interface{}) error {
	return l.log(ctx, callerDepth, level, module, format, args)
}

// Error logs a message at the ERROR level for the module carried by ctx.
func (l *Logger) Error(ctx context.Context, format string, args ...interface{}) {
	_ = l.log(ctx, callerDepth, ERROR, ModuleFromContext(ctx), format, args)
}

// Warn logs a message at the WARN level for the module carried by ctx.
func (l *Logger) Warn(ctx context.Context, format string, args ...interface{}) {
	_ = l.log(ctx, callerDepth, WARN, ModuleFromContext(ctx), format, args)
}

// Info logs a message at the INFO level for the module carried by ctx.
func (l *Logger) Info(ctx context.Context, format string, args ...interface{}) {
	_ = l.log(ctx, callerDepth, INFO, ModuleFromContext(ctx), format, args)
}

// Debug logs a message at the DEBUG level for the module carried by ctx.
func (l *Logger) Debug(ctx context.Context, format string, args ...interface{}) {
	_ = l.log(ctx, callerDepth, DEBUG, ModuleFromContext(ctx), format, args)
}

// Trace logs a message at the TRACE level for the module carried by ctx.
func (l *Logger) Trace(ctx context.Context, format string, args ...interface{}) {
	_ = l.log(ctx, callerDepth, TRACE, ModuleFromContext(ctx), format, args)
}

// Enabled reports whether a record of the given level from module would pass the
// module filters of the active spec. The text filter is not consulted.
func (l *Logger) Enabled(level Level, module string) bool {
	if level <= OFF || level > l.store.maxLevel.Load() {
		return false
	}
	ok, _ := l.store.evaluate(level, module)
	return ok
}

// Handle returns the handle for changing the log spec at runtime.
func (l *Logger) Handle() *ReconfigurationHandle {
	return l.handle
}

// log is the central, internal logging method. It is responsible for:
//  1. Performing a fast, atomic check against the max-level marker.
//  2. Deciding the record against the module filters under the store's read lock.
//  3. Applying the text filter of the same spec to the rendered message.
//  4. Passing the record to the dispatch step on the calling goroutine.
func (l *Logger) log(ctx context.Context, depth int, level Level, module string, format string, args []interface{}) error {
	if level <= OFF || level > l.store.maxLevel.Load() {
		return nil
	}
	ok, textFilter := l.store.evaluate(level, module)
	if !ok {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}
	rec := Record{
		Level:  level,
		Module: module,
		Format: format,
		Args:   args,
		Ctx:    ctx,
	}
	if textFilter != nil && !textFilter.MatchString(rec.Message()) {
		l.textFiltered.Add(1)
		return nil
	}
	if l.includeCaller {
		if _, file, line, ok := runtime.Caller(depth); ok {
			rec.File, rec.Line = file, line
		}
	}
	if l.enableOTel {
		attachOTelTrace(&rec)
	}
	return l.dispatch(time.Now().In(l.loc), &rec)
}
