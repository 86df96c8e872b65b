// Copyright (c) 2025 Nguyễn Thanh Phương
// This source code is licensed under the MIT License found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/phuonguno98/speclog"
	"go.opentelemetry.io/otel"
)

// auditWriter is a custom LogWriter that only wants warnings and errors.
type auditWriter struct{}

func (auditWriter) Write(_ time.Time, r *speclog.Record) error {
	fmt.Printf("[AUDIT] %s %s: %s\n", r.Level, r.Module, r.Message())
	return nil
}

func (auditWriter) Flush() error             { return nil }
func (auditWriter) MaxLevel() speclog.Level { return speclog.WARN }

// main provides a demonstration of the speclog library's features.
func main() {
	// 1. Initial Configuration
	// The spec comes from $SPECLOG if set; the spec file is created from it on first run.
	spec, err := speclog.SpecFromEnvOr("info, payment=debug, payment::gateway=trace")
	if err != nil {
		fmt.Fprintln(os.Stderr, "ignoring invalid parts of the log spec:", err)
	}
	specFile := filepath.Join("example", "logspec.toml")
	cfg := speclog.Config{
		Spec:           spec,
		Target:         speclog.TargetMulti,
		Duplicate:      speclog.DupWarn,
		Format:         speclog.DefaultFormat,
		FormatForFiles: speclog.DetailedFormat,
		Timezone:       "Asia/Ho_Chi_Minh",
		IncludeCaller:  true,
		EnableOTel:     true,
		Retry:          speclog.RetryPolicy{MaxRetries: 2, Backoff: 80 * time.Millisecond, Exponential: true},
		Rotation: speclog.RotationConfig{
			Enable:    true,
			Filename:  "example/app.log",
			MaxSizeMB: 5,
			Compress:  true,
		},
		Writers: []speclog.NamedWriter{
			{Name: "stdout", Writer: speclog.NewIOLogWriter(os.Stdout, speclog.DefaultFormat, speclog.MaxLevel)},
			{Name: "audit", Writer: auditWriter{}},
		},
		SpecFile:         specFile,
		SpecFileDebounce: 300 * time.Millisecond,
	}
	l, err := speclog.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "cannot create logger:", err)
		os.Exit(1)
	}

	// Defer Close to ensure all writers are flushed before the application exits.
	defer func() {
		fmt.Println("\nClosing logger...")
		if err := l.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Logger close error: %v\n", err)
		}
	}()

	// 2. Module-scoped logging
	ctx := speclog.WithModule(context.Background(), "payment")
	fmt.Println("--- Logging with the initial spec ---")
	l.Info(ctx, "Processing payment for order %d", 1001)
	l.Debug(ctx, "Payment details: amount=%.2f", 99.95)
	l.Warn(ctx, "Payment gateway is slow to respond")

	gateway := l.Module("payment::gateway")
	gateway.Trace("request id %s sent", "req-42")

	db := l.Module("db")
	db.Debug("this debug record is filtered by the default rule")

	// 3. OpenTelemetry Integration
	tracer := otel.Tracer("example-tracer")
	spanCtx, span := tracer.Start(ctx, "checkout")
	l.Info(spanCtx, "inside a span")
	span.End()

	// 4. Reconfiguration at runtime
	fmt.Println("\n--- Switching payment to warn at runtime ---")
	handle := l.Handle()
	if err := handle.ParseNewSpec("info, payment=warn"); err != nil {
		fmt.Fprintln(os.Stderr, "spec rejected:", err)
	}
	l.Info(ctx, "this record is now filtered")
	l.Error(ctx, "Payment failed: %s", "card declined")

	// A spec with problems is rejected as a whole; the previous one stays active.
	if err := handle.ParseNewSpec("info, pay-ment=debug"); err != nil {
		fmt.Println("rejected:", err)
	}
	fmt.Println("active spec:", handle.CurrentSpec())

	// 5. Adapter for packages that want a minimal interface
	var simple speclog.SimpleLogger = speclog.NewAdapter(l.Module("payment::adapter"))
	simple.Warn("logged through the adapter")

	// 6. Statistics
	s := l.Stats()
	fmt.Printf("\nwritten=%d writeErrs=%d reloads=%d writerErrs=%v\n", s.Written, s.WriteErrors, s.Reloads, s.WriterErrors)
	fmt.Printf("edit %s while the program runs to change the spec without a restart\n", specFile)
}
