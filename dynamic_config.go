// Copyright (c) 2025 Nguyễn Thanh Phương
// This source code is licensed under the MIT License found in the LICENSE file.

// Package speclog provides a spec-driven logging front-end for Go applications.
// This file holds the active log specification of a Logger and the handle used
// to replace it at runtime, without restarting the application.

package speclog

import (
	"regexp"
	"sync"

	"go.uber.org/zap"
)

// specStore guards the active spec. Evaluation takes the read lock for a single
// pass over the filters; replacement swaps the spec and the max-level marker under
// the write lock, so readers never see one without the other.
type specStore struct {
	mu   sync.RWMutex
	spec *LogSpec
	// maxLevel is read without the lock as a fast pre-filter.
	maxLevel atomicLevel
}

func newSpecStore(spec *LogSpec) *specStore {
	s := &specStore{}
	s.replace(spec)
	return s
}

// replace installs spec; a nil spec is treated as OffSpec.
func (s *specStore) replace(spec *LogSpec) {
	if spec == nil {
		spec = OffSpec()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spec = spec
	s.maxLevel.Store(spec.MaxLevel())
}

// evaluate decides a record against the current spec and returns the text filter
// of that same spec.
func (s *specStore) evaluate(level Level, module string) (bool, *regexp.Regexp) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.spec.Enabled(level, module) {
		return false, nil
	}
	return true, s.spec.textFilter
}

func (s *specStore) current() *LogSpec {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.spec
}

// ReconfigurationHandle replaces the log specification of a running Logger.
// It is safe for concurrent use and stays valid after the Logger is closed, but
// changes made then have no visible effect.
type ReconfigurationHandle struct {
	l *Logger
}

// SetNewSpec atomically replaces the active spec. Records emitted after SetNewSpec
// returns are decided by the new spec; a nil spec switches logging off.
func (h *ReconfigurationHandle) SetNewSpec(spec *LogSpec) {
	h.l.store.replace(spec)
	h.l.reloadCount.Add(1)
}

// ParseNewSpec parses spec and installs it only if it has no problems. On any
// problem the current spec stays active, the problems are reported to the
// diagnostics logger, and the *ParseError is returned.
func (h *ReconfigurationHandle) ParseNewSpec(spec string) error {
	ls, err := ParseLogSpec(spec)
	if err != nil {
		h.l.reloadErrs.Add(1)
		h.l.diag.warn("log spec not applied, keeping the current one", zap.String("spec", spec), zap.Error(err))
		return err
	}
	h.SetNewSpec(ls)
	return nil
}

// CurrentSpec returns the active spec.
func (h *ReconfigurationHandle) CurrentSpec() *LogSpec {
	return h.l.store.current()
}

// Flush flushes the primary writer.
func (h *ReconfigurationHandle) Flush() error {
	return h.l.Flush()
}
