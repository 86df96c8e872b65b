// Copyright (c) 2025 Nguyễn Thanh Phương
// This source code is licensed under the MIT License found in the LICENSE file.

// Package speclog provides a spec-driven logging front-end for Go applications.
// This file implements the logic for writing accepted records to their final
// destinations. The primary writer is one of a closed set of variants chosen at
// construction; the multi and discard variants may duplicate records to stderr. The
// multi variant fans out to named writers, handles I/O errors with a configurable
// retry mechanism, and tracks per-writer error statistics.

package speclog

import (
	"io"
	"math/rand"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// primaryWriter is implemented by stdStreamWriter, multiWriter and discardWriter.
type primaryWriter interface {
	write(now time.Time, r *Record) error
	flush() error
	close() error
}

// flusher is implemented by buffered destinations such as *bufio.Writer.
type flusher interface {
	Flush() error
}

func flushWriter(w io.Writer) error {
	if f, ok := w.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// duplicator copies matching records to stderr. A failure is reported through
// onErr and never returned, so it cannot affect the primary write.
type duplicator struct {
	dup    Duplicate
	w      io.Writer
	format FormatFunc
	onErr  func(error)
}

func (d *duplicator) maybeWrite(now time.Time, r *Record) {
	if d == nil || !d.dup.Matches(r.Level) {
		return
	}
	if err := writeBuffered(d.w, d.format, now, r); err != nil && d.onErr != nil {
		d.onErr(err)
	}
}

func (d *duplicator) flush() error {
	if d == nil || d.dup == DupNone {
		return nil
	}
	return flushWriter(d.w)
}

// stdStreamWriter writes to stdout or stderr. It never duplicates.
type stdStreamWriter struct {
	w      io.Writer
	format FormatFunc
}

func (s *stdStreamWriter) write(now time.Time, r *Record) error {
	return writeBuffered(s.w, s.format, now, r)
}

func (s *stdStreamWriter) flush() error {
	return flushWriter(s.w)
}

func (s *stdStreamWriter) close() error { return s.flush() }

// discardWriter drops everything but the duplicates.
type discardWriter struct {
	dupl *duplicator
}

func (d *discardWriter) write(now time.Time, r *Record) error {
	d.dupl.maybeWrite(now, r)
	return nil
}

func (d *discardWriter) flush() error { return d.dupl.flush() }

func (d *discardWriter) close() error { return d.flush() }

// multiWriter fans a record out to its named writers in registration order.
type multiWriter struct {
	dupl    *duplicator
	writers []NamedWriter
	retry   RetryPolicy
	// onWriterErr is called once per failed write attempt.
	onWriterErr func(name string, err error)
}

// write hands r to every writer that accepts its level. All writers are tried;
// the first failure is returned.
func (m *multiWriter) write(now time.Time, r *Record) error {
	m.dupl.maybeWrite(now, r)
	var first error
	for _, nw := range m.writers {
		if r.Level > nw.Writer.MaxLevel() {
			continue
		}
		if err := m.tryWrite(nw, now, r); err != nil && first == nil {
			first = errors.Wrapf(err, "speclog: writer %q", nw.Name)
		}
	}
	return first
}

// tryWrite attempts to write a record to a single writer, applying the retry
// policy in case of failure.
func (m *multiWriter) tryWrite(nw NamedWriter, now time.Time, r *Record) error {
	rp := m.retry
	maxRetries := rp.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = nw.Writer.Write(now, r)
		if err == nil {
			return nil
		}
		if m.onWriterErr != nil {
			m.onWriterErr(nw.Name, err)
		}
		if attempt == maxRetries {
			break
		}

		// Calculate backoff duration for the next retry.
		delay := rp.Backoff
		if rp.Exponential {
			delay *= time.Duration(1 << attempt)
		}
		if rp.Jitter > 0 {
			delay += time.Duration(rand.Int63n(int64(rp.Jitter)))
		}
		time.Sleep(delay)
	}
	return err
}

func (m *multiWriter) flush() error {
	var err error
	for _, nw := range m.writers {
		if ferr := nw.Writer.Flush(); ferr != nil {
			err = errors.CombineErrors(err, errors.Wrapf(ferr, "speclog: flushing writer %q", nw.Name))
		}
	}
	return errors.CombineErrors(err, m.dupl.flush())
}

// close flushes all writers and closes those that implement io.Closer.
func (m *multiWriter) close() error {
	err := m.flush()
	for _, nw := range m.writers {
		c, ok := nw.Writer.(io.Closer)
		if !ok {
			continue
		}
		if cerr := c.Close(); cerr != nil {
			err = errors.CombineErrors(err, errors.Wrapf(cerr, "speclog: closing writer %q", nw.Name))
		}
	}
	return err
}

// newPrimaryWriter builds the variant selected by cfg.Target. cfg must already
// carry its defaults.
func (l *Logger) newPrimaryWriter(cfg Config, writers []NamedWriter) primaryWriter {
	dupl := &duplicator{
		dup:    cfg.Duplicate,
		w:      cfg.Stderr,
		format: cfg.FormatForStderr,
		onErr: func(err error) {
			l.dupErrCount.Add(1)
			l.diag.throttled("duplicating record to stderr failed", zap.Error(err))
		},
	}
	switch cfg.Target {
	case TargetStdout:
		return &stdStreamWriter{w: cfg.Stdout, format: cfg.Format}
	case TargetMulti:
		return &multiWriter{
			dupl:    dupl,
			writers: writers,
			retry:   cfg.Retry,
			onWriterErr: func(name string, err error) {
				l.incWriterErr(name)
				l.diag.throttled("log writer failed", zap.String("writer", name), zap.Error(err))
			},
		}
	case TargetDiscard:
		return &discardWriter{dupl: dupl}
	default:
		return &stdStreamWriter{w: cfg.Stderr, format: cfg.FormatForStderr}
	}
}
