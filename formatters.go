// Copyright (c) 2025 Nguyễn Thanh Phương
// This source code is licensed under the MIT License found in the LICENSE file.

// Package speclog provides a spec-driven logging front-end for Go applications.
// This file implements the built-in format functions: a compact text format, a
// detailed text format with timestamp and call site, and a machine-readable JSON
// format. All of them write a single line without the trailing newline.

package speclog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"
)

// DetailedTimeFormat is the timestamp layout used by DetailedFormat.
const DetailedTimeFormat = "2006-01-02 15:04:05.000000 -07:00"

// DefaultFormat writes "LEVEL [module] message".
func DefaultFormat(w io.Writer, _ time.Time, r *Record) error {
	if _, err := fmt.Fprintf(w, "%s [%s] ", r.Level, r.Module); err != nil {
		return err
	}
	return r.WriteMessage(w)
}

// DetailedFormat writes the timestamp, the level, the module and the call site in
// front of the message, and appends the trace and span IDs when present:
//
//	[2025-01-02 15:04:05.000000 +07:00] INFO [billing] invoice.go:42: sent trace_id=... span_id=...
func DetailedFormat(w io.Writer, now time.Time, r *Record) error {
	file := "<unknown>"
	if r.File != "" {
		file = filepath.Base(r.File) + ":" + strconv.Itoa(r.Line)
	}
	if _, err := fmt.Fprintf(w, "[%s] %s [%s] %s: ", now.Format(DetailedTimeFormat), r.Level, r.Module, file); err != nil {
		return err
	}
	if err := r.WriteMessage(w); err != nil {
		return err
	}
	if r.TraceID != "" {
		if _, err := fmt.Fprintf(w, " trace_id=%s", r.TraceID); err != nil {
			return err
		}
	}
	if r.SpanID != "" {
		if _, err := fmt.Fprintf(w, " span_id=%s", r.SpanID); err != nil {
			return err
		}
	}
	return nil
}

// jsonEntry defines the structure of the JSON output.
type jsonEntry struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Module  string `json:"module,omitempty"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
	SpanID  string `json:"span_id,omitempty"`
	Message string `json:"message"`
}

// JSONFormat writes the record as a single JSON object.
func JSONFormat(w io.Writer, now time.Time, r *Record) error {
	entry := jsonEntry{
		Time:    now.Format(time.RFC3339Nano),
		Level:   r.Level.String(),
		Module:  r.Module,
		File:    r.File,
		Line:    r.Line,
		TraceID: r.TraceID,
		SpanID:  r.SpanID,
		Message: r.Message(),
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(entry); err != nil {
		return fmt.Errorf("speclog: failed to encode log record to JSON: %w", err)
	}
	// The encoder adds a newline; the dispatcher adds its own.
	_, err := w.Write(bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}))
	return err
}

// FormatByName returns a built-in format function by name: "default", "detailed"
// or "json".
func FormatByName(name string) (FormatFunc, bool) {
	switch name {
	case "default", "":
		return DefaultFormat, true
	case "detailed":
		return DetailedFormat, true
	case "json":
		return JSONFormat, true
	default:
		return nil, false
	}
}
