// Copyright (c) 2025 Nguyễn Thanh Phương
// This source code is licensed under the MIT License found in the LICENSE file.

// Package speclog
//
// speclog là thư viện ghi log điều khiển bằng "log spec": một chuỗi ngắn quyết định
// module nào được ghi ở cấp độ nào, có thể thay đổi khi runtime mà không cần khởi động lại.
//
// Các cấp độ log, từ ít đến nhiều chi tiết:
//   - OFF: Chỉ dùng làm ngưỡng; tắt hoàn toàn.
//   - ERROR: Lỗi nghiêm trọng cần xử lý.
//   - WARN: Cảnh báo bất thường nhưng chưa gây lỗi nghiêm trọng.
//   - INFO: Thông tin chung về tiến trình hoạt động.
//   - DEBUG: Thông tin chi tiết phục vụ debug.
//   - TRACE: Chi tiết nhất.
//
// Cú pháp log spec:
//
//	info, billing=debug, billing::tax=trace, noisy=off /user_[0-9]+
//
// Mỗi phần cách nhau bởi dấu phẩy. Một tên cấp độ đứng một mình đặt ngưỡng mặc định;
// "module=level" đặt ngưỡng cho mọi module có đường dẫn bắt đầu bằng "module";
// "module" không kèm cấp độ nghĩa là TRACE. Luật có tiền tố dài nhất thắng.
// Phần sau dấu "/" là biểu thức chính quy mà message phải khớp.
// Các phần sai cú pháp bị bỏ qua và được báo lại qua *ParseError.
//
// Tính năng chính:
//   - **Reconfiguration**: ReconfigurationHandle thay spec đang chạy một cách nguyên tử.
//   - **Spec file**: File TOML được tạo nếu chưa có và được theo dõi bằng fsnotify; nội dung lỗi bị bỏ qua.
//   - **Targets**: stderr, stdout, multi (file xoay vòng + writer tùy ý) hoặc discard; multi và discard có thể nhân bản sang stderr.
//   - **Rotation**: Xoay file log theo dung lượng hoặc thời gian qua lumberjack.
//   - **OTel integration**: Gắn trace_id/span_id từ OpenTelemetry.
//   - **Metrics**: Collector Prometheus cho các bộ đếm trong Stats.
//   - **Adapter**: Cung cấp interface SimpleLogger/ExtendedLogger để truyền logger vào package bên ngoài.
//
// Ví dụ:
//
//	spec, _ := speclog.SpecFromEnvOr("info, db=warn")
//	l, err := speclog.New(speclog.Config{
//		Spec:      spec,
//		Target:    speclog.TargetMulti,
//		Rotation:  speclog.RotationConfig{Enable: true, Filename: "logs/app.log"},
//		Duplicate: speclog.DupError,
//		SpecFile:  "config/logspec.toml",
//	})
//	if err != nil {
//		panic(err)
//	}
//	defer l.Close()
//
//	db := l.Module("db::pool")
//	db.Warn("pool exhausted after %d waits", 3)
//
//	// Bật debug cho db khi đang chạy.
//	_ = l.Handle().ParseNewSpec("info, db=debug")
package speclog
