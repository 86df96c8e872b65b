// Copyright (c) 2025 Nguyễn Thanh Phương
// This source code is licensed under the MIT License found in the LICENSE file.

// Package speclog provides a spec-driven logging front-end for Go applications.
// This file implements the logger's own diagnostics channel. Problems the library
// cannot return to a caller, such as a rejected spec file reload or a failed
// duplication to stderr, are reported here through zap. Reports about failed
// writes are rate limited so a broken destination cannot flood the channel.

package speclog

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
)

const (
	defaultDiagnosticsRate  = 1.0
	defaultDiagnosticsBurst = 5
)

type diagnostics struct {
	log        *zap.Logger
	limiter    *rate.Limiter
	suppressed atomicI64
}

func newDiagnostics(lg *zap.Logger, stderr io.Writer, perSecond float64, burst int) *diagnostics {
	if lg == nil {
		enc := zap.NewDevelopmentEncoderConfig()
		core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(stderr), zapcore.WarnLevel)
		lg = zap.New(core)
	}
	if perSecond <= 0 {
		perSecond = defaultDiagnosticsRate
	}
	if burst <= 0 {
		burst = defaultDiagnosticsBurst
	}
	return &diagnostics{
		log:     lg.Named("speclog"),
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (d *diagnostics) warn(msg string, fields ...zap.Field) {
	d.log.Warn(msg, fields...)
}

// throttled reports msg unless the limiter is exhausted. Suppressed reports are
// counted and the count is attached to the next one that gets through.
func (d *diagnostics) throttled(msg string, fields ...zap.Field) {
	if !d.limiter.Allow() {
		d.suppressed.Add(1)
		return
	}
	if n := d.suppressed.Swap(0); n > 0 {
		fields = append(fields, zap.Int64("suppressed", n))
	}
	d.log.Warn(msg, fields...)
}

func (d *diagnostics) sync() {
	_ = d.log.Sync()
}
