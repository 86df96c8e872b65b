// Copyright (c) 2025 Nguyễn Thanh Phương
// This source code is licensed under the MIT License found in the LICENSE file.

// Package speclog - rotation.go
// Cung cấp các LogWriter có sẵn: FileLogWriter ghi vào file xoay vòng (rotation)
// và IOLogWriter bọc một io.Writer bất kỳ.
// Rotation giúp tránh việc file log quá lớn hoặc quá cũ, đồng thời hỗ trợ lưu trữ và quản lý log hiệu quả.
// Sử dụng thư viện lumberjack để xoay file theo dung lượng, thời gian và số lượng file backup.

package speclog

import (
	"io"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileWriterName là tên của writer xoay file khi dùng TargetMulti.
const FileWriterName = "file"

// FileLogWriter ghi record vào file xoay vòng qua lumberjack.
type FileLogWriter struct {
	out      *lumberjack.Logger
	format   FormatFunc
	maxLevel Level
}

var _ LogWriter = (*FileLogWriter)(nil)

// NewFileLogWriter tạo writer xoay file từ cfg; format nil thì dùng DetailedFormat.
// Trả về lỗi nếu thiếu đường dẫn file.
func NewFileLogWriter(cfg RotationConfig, format FormatFunc) (*FileLogWriter, error) {
	if cfg.Filename == "" {
		return nil, errors.New("speclog: rotation requires a file name")
	}
	if format == nil {
		format = DetailedFormat
	}
	maxLevel := cfg.MaxLevel
	if maxLevel == OFF {
		maxLevel = MaxLevel
	}
	return &FileLogWriter{
		out: &lumberjack.Logger{
			Filename:   cfg.Filename,   // Đường dẫn file log
			MaxSize:    cfg.MaxSizeMB,  // Dung lượng tối đa (MB) trước khi xoay
			MaxAge:     cfg.MaxAge,     // Số ngày lưu file log cũ
			MaxBackups: cfg.MaxBackups, // Số file log cũ tối đa
			Compress:   cfg.Compress,   // Nén file log cũ
			LocalTime:  cfg.LocalTime,  // Dùng giờ địa phương trong tên file backup
		},
		format:   format,
		maxLevel: maxLevel,
	}, nil
}

// Write định dạng record và ghi ra file trong một lần gọi Write.
func (f *FileLogWriter) Write(now time.Time, r *Record) error {
	return writeBuffered(f.out, f.format, now, r)
}

// Flush không làm gì: lumberjack ghi thẳng xuống file.
func (f *FileLogWriter) Flush() error { return nil }

// MaxLevel trả về cấp độ chi tiết nhất mà writer nhận.
func (f *FileLogWriter) MaxLevel() Level { return f.maxLevel }

// Rotate xoay file ngay lập tức.
func (f *FileLogWriter) Rotate() error { return f.out.Rotate() }

// Close đóng file hiện tại.
func (f *FileLogWriter) Close() error { return f.out.Close() }

// IOLogWriter bọc một io.Writer; các lần ghi được tuần tự hóa bằng mutex.
type IOLogWriter struct {
	mu       sync.Mutex
	w        io.Writer
	format   FormatFunc
	maxLevel Level
}

var _ LogWriter = (*IOLogWriter)(nil)

// NewIOLogWriter tạo IOLogWriter; format nil thì dùng DefaultFormat, maxLevel OFF thì dùng MaxLevel.
func NewIOLogWriter(w io.Writer, format FormatFunc, maxLevel Level) *IOLogWriter {
	if format == nil {
		format = DefaultFormat
	}
	if maxLevel == OFF {
		maxLevel = MaxLevel
	}
	return &IOLogWriter{w: w, format: format, maxLevel: maxLevel}
}

// Write định dạng record bên ngoài khóa rồi ghi ra io.Writer bên dưới.
// Nhờ vậy một lệnh log lồng nhau phát sinh khi định dạng không bị deadlock.
func (iw *IOLogWriter) Write(now time.Time, r *Record) error {
	s := scratchBuffers.borrow()
	defer scratchBuffers.release(s)
	if err := formatLine(s.buf, iw.format, now, r); err != nil {
		return err
	}
	iw.mu.Lock()
	defer iw.mu.Unlock()
	_, err := iw.w.Write(s.buf.Bytes())
	return err
}

// Flush gọi Flush của io.Writer bên dưới nếu có.
func (iw *IOLogWriter) Flush() error {
	iw.mu.Lock()
	defer iw.mu.Unlock()
	return flushWriter(iw.w)
}

// MaxLevel trả về cấp độ chi tiết nhất mà writer nhận.
func (iw *IOLogWriter) MaxLevel() Level { return iw.maxLevel }
