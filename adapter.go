// Copyright (c) 2025 Nguyễn Thanh Phương
// This source code is licensed under the MIT License found in the LICENSE file.

// Package speclog - adapter.go
// Cung cấp Adapter bọc LoggerWithCtx để ghi log không cần truyền context ở mỗi lần gọi.
// Hỗ trợ cả interface SimpleLogger tối giản và ExtendedLogger có thêm Trace.

package speclog

import "context"

// SimpleLogger là interface ghi log tối giản cho gói bên ngoài.
type SimpleLogger interface {
	// Debug ghi log cấp DEBUG.
	Debug(format string, args ...interface{})
	// Info ghi log cấp INFO.
	Info(format string, args ...interface{})
	// Warn ghi log cấp WARN.
	Warn(format string, args ...interface{})
	// Error ghi log cấp ERROR.
	Error(format string, args ...interface{})
}

// ExtendedLogger mở rộng SimpleLogger với phương thức Trace.
type ExtendedLogger interface {
	SimpleLogger
	// Trace ghi log cấp TRACE.
	Trace(format string, args ...interface{})
}

var _ ExtendedLogger = (*Adapter)(nil)

// Adapter bọc LoggerWithCtx để giữ module và context khi gọi log ngắn gọn.
type Adapter struct {
	lw LoggerWithCtx
}

// NewAdapter tạo Adapter từ LoggerWithCtx, panic nếu Logger nil.
func NewAdapter(lw LoggerWithCtx) *Adapter {
	if lw.l == nil {
		panic("speclog: NewAdapter received LoggerWithCtx with nil *Logger")
	}
	return &Adapter{lw: lw}
}

// Context trả về context hiện tại của Adapter.
func (a *Adapter) Context() context.Context {
	return a.lw.Context()
}

// WithContext trả về Adapter mới với context thay đổi, dùng chung *Logger và module.
func (a *Adapter) WithContext(ctx context.Context) *Adapter {
	return &Adapter{lw: a.lw.WithContext(ctx)}
}

// WithModule trả về Adapter mới ghi log cho module khác.
func (a *Adapter) WithModule(module string) *Adapter {
	return &Adapter{lw: a.lw.WithModule(module)}
}

// Debug ghi log cấp DEBUG qua Adapter.
func (a *Adapter) Debug(format string, args ...interface{}) {
	_ = a.lw.l.log(a.lw.ctx, callerDepth, DEBUG, a.lw.module, format, args)
}

// Info ghi log cấp INFO qua Adapter.
func (a *Adapter) Info(format string, args ...interface{}) {
	_ = a.lw.l.log(a.lw.ctx, callerDepth, INFO, a.lw.module, format, args)
}

// Warn ghi log cấp WARN qua Adapter.
func (a *Adapter) Warn(format string, args ...interface{}) {
	_ = a.lw.l.log(a.lw.ctx, callerDepth, WARN, a.lw.module, format, args)
}

// Error ghi log cấp ERROR qua Adapter.
func (a *Adapter) Error(format string, args ...interface{}) {
	_ = a.lw.l.log(a.lw.ctx, callerDepth, ERROR, a.lw.module, format, args)
}

// Trace ghi log cấp TRACE qua Adapter.
func (a *Adapter) Trace(format string, args ...interface{}) {
	_ = a.lw.l.log(a.lw.ctx, callerDepth, TRACE, a.lw.module, format, args)
}
