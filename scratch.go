// Copyright (c) 2025 Nguyễn Thanh Phương
// This source code is licensed under the MIT License found in the LICENSE file.

// Package speclog provides a spec-driven logging front-end for Go applications.
// This file implements the scratch buffers that records are formatted into before
// they are handed to a destination in a single write.
//
// Buffers live in a fixed ring of slots. A writer claims a slot with TryLock and
// never waits: if every slot is busy, because other goroutines are formatting or
// because a format call has itself triggered a nested log call, a private buffer
// is allocated for that one record. A nested call therefore never writes into the
// buffer of the record that is still being formatted.

package speclog

import (
	"bytes"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
)

const (
	scratchInitialCap = 200
	// Buffers that grew beyond this are dropped on release.
	scratchMaxCap = 64 << 10
)

type scratchSlot struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

type scratchPool struct {
	slots     []scratchSlot
	next      uint32
	fallbacks atomicI64
}

// scratch is a borrowed buffer. slot is nil for a private buffer.
type scratch struct {
	buf  *bytes.Buffer
	slot *scratchSlot
}

// scratchBuffers is shared by every writer of the package.
var scratchBuffers = newScratchPool(0)

func newScratchPool(n int) *scratchPool {
	if n <= 0 {
		n = max(runtime.GOMAXPROCS(0), 4)
	}
	p := &scratchPool{slots: make([]scratchSlot, n)}
	for i := range p.slots {
		p.slots[i].buf.Grow(scratchInitialCap)
	}
	return p
}

func (p *scratchPool) borrow() scratch {
	n := uint32(len(p.slots))
	start := atomic.AddUint32(&p.next, 1)
	for i := uint32(0); i < n; i++ {
		slot := &p.slots[(start+i)%n]
		if slot.mu.TryLock() {
			slot.buf.Reset()
			return scratch{buf: &slot.buf, slot: slot}
		}
	}
	p.fallbacks.Add(1)
	return scratch{buf: bytes.NewBuffer(make([]byte, 0, scratchInitialCap))}
}

func (p *scratchPool) release(s scratch) {
	if s.slot == nil {
		return
	}
	if s.slot.buf.Cap() > scratchMaxCap {
		s.slot.buf = bytes.Buffer{}
	} else {
		s.slot.buf.Reset()
	}
	s.slot.mu.Unlock()
}

// writeBuffered formats r into a scratch buffer and hands the whole line to w in
// one Write call.
func writeBuffered(w io.Writer, format FormatFunc, now time.Time, r *Record) error {
	s := scratchBuffers.borrow()
	defer scratchBuffers.release(s)
	if err := formatLine(s.buf, format, now, r); err != nil {
		return err
	}
	_, err := w.Write(s.buf.Bytes())
	return err
}

// formatLine renders r followed by a newline into buf.
func formatLine(buf *bytes.Buffer, format FormatFunc, now time.Time, r *Record) error {
	if err := format(buf, now, r); err != nil {
		return errors.Wrap(err, "speclog: formatting failed")
	}
	buf.WriteByte('\n')
	return nil
}
