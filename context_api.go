// Copyright (c) 2025 Nguyễn Thanh Phương
// This source code is licensed under the MIT License found in the LICENSE file.

// Package speclog - context_api.go
// Cung cấp các hàm thao tác với module qua context.Context và LoggerWithCtx.
// Cho phép gắn/lấy module và ghi log trực tiếp từ LoggerWithCtx.

package speclog

import "context"

// ctxModuleKey là khóa context để lưu tên module.
type ctxModuleKey struct{}

// WithModule gắn module vào ctx và trả về context mới.
func WithModule(ctx context.Context, module string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxModuleKey{}, module)
}

// ModuleFromContext lấy module đã gắn trong ctx; trả về chuỗi rỗng nếu chưa có.
func ModuleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	module, _ := ctx.Value(ctxModuleKey{}).(string)
	return module
}

// WithContext trả về LoggerWithCtx gắn với ctx; module lấy từ ctx.
func (l *Logger) WithContext(ctx context.Context) LoggerWithCtx {
	if ctx == nil {
		ctx = context.Background()
	}
	return LoggerWithCtx{l: l, ctx: ctx, module: ModuleFromContext(ctx)}
}

// Module trả về LoggerWithCtx ghi log cho module name.
func (l *Logger) Module(name string) LoggerWithCtx {
	return LoggerWithCtx{l: l, ctx: context.Background(), module: name}
}

// Context trả về context bên trong LoggerWithCtx, đã gắn module.
func (lw LoggerWithCtx) Context() context.Context {
	return WithModule(lw.ctx, lw.module)
}

// ModuleName trả về module mà LoggerWithCtx ghi log cho.
func (lw LoggerWithCtx) ModuleName() string {
	return lw.module
}

// WithModule trả về LoggerWithCtx mới với module khác, giữ nguyên context.
func (lw LoggerWithCtx) WithModule(module string) LoggerWithCtx {
	lw.module = module
	return lw
}

// WithContext trả về LoggerWithCtx mới với context khác, giữ nguyên module.
func (lw LoggerWithCtx) WithContext(ctx context.Context) LoggerWithCtx {
	if ctx == nil {
		ctx = context.Background()
	}
	lw.ctx = ctx
	return lw
}

// Enabled cho biết record ở cấp level của module này có được ghi không.
func (lw LoggerWithCtx) Enabled(level Level) bool {
	return lw.l.Enabled(level, lw.module)
}

// ===== Các phương thức ghi log trên LoggerWithCtx =====

func (lw LoggerWithCtx) Error(format string, args ...interface{}) {
	_ = lw.l.log(lw.ctx, callerDepth, ERROR, lw.module, format, args)
}

func (lw LoggerWithCtx) Warn(format string, args ...interface{}) {
	_ = lw.l.log(lw.ctx, callerDepth, WARN, lw.module, format, args)
}

func (lw LoggerWithCtx) Info(format string, args ...interface{}) {
	_ = lw.l.log(lw.ctx, callerDepth, INFO, lw.module, format, args)
}

func (lw LoggerWithCtx) Debug(format string, args ...interface{}) {
	_ = lw.l.log(lw.ctx, callerDepth, DEBUG, lw.module, format, args)
}

func (lw LoggerWithCtx) Trace(format string, args ...interface{}) {
	_ = lw.l.log(lw.ctx, callerDepth, TRACE, lw.module, format, args)
}

// Log ghi log ở cấp level tùy ý.
func (lw LoggerWithCtx) Log(level Level, format string, args ...interface{}) {
	_ = lw.l.log(lw.ctx, callerDepth, level, lw.module, format, args)
}
