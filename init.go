// Copyright (c) 2025 Nguyễn Thanh Phương
// This source code is licensed under the MIT License found in the LICENSE file.

// Package speclog provides a spec-driven logging front-end for Go applications.
// This file handles the creation of logger instances: applying defaults to the
// Config, validating it, building the primary writer and, if requested, setting
// up the watched spec file.

package speclog

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

var (
	// ErrDuplicateWriterName is returned by New when two writers share a name.
	ErrDuplicateWriterName = errors.New("speclog: duplicate writer name")
	// ErrReservedWriterName is returned by New when a writer uses FileWriterName
	// while rotation is enabled.
	ErrReservedWriterName = errors.New("speclog: reserved writer name")
)

// New creates a Logger from cfg. The returned Logger must be closed with Close.
func New(cfg Config) (*Logger, error) {
	l, err := newLoggerFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// newLoggerFromConfig is the core factory function for creating a Logger instance.
// It takes a user-provided Config, applies defaults and validation, and
// initializes all internal components of the logger.
func newLoggerFromConfig(cfg Config) (*Logger, error) {
	// --- Apply Defaults ---
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	if cfg.Format == nil {
		cfg.Format = DefaultFormat
	}
	if cfg.FormatForStderr == nil {
		cfg.FormatForStderr = cfg.Format
	}
	if cfg.FormatForFiles == nil {
		cfg.FormatForFiles = cfg.Format
	}
	if cfg.SpecFileDebounce <= 0 {
		cfg.SpecFileDebounce = defaultSpecFileDebounce
	}
	loc := time.Local
	if cfg.Timezone != "" {
		var err error
		if loc, err = time.LoadLocation(cfg.Timezone); err != nil {
			return nil, errors.Wrapf(err, "speclog: invalid timezone %q", cfg.Timezone)
		}
	}

	l := &Logger{
		loc:           loc,
		includeCaller: cfg.IncludeCaller,
		enableOTel:    cfg.EnableOTel,
		specFile:      cfg.SpecFile,
	}
	l.diag = newDiagnostics(cfg.Diagnostics, cfg.Stderr, cfg.DiagnosticsRate, cfg.DiagnosticsBurst)
	l.handle = &ReconfigurationHandle{l: l}

	// --- Initial Spec ---
	spec := cfg.Spec
	if spec == nil {
		var err error
		spec, err = ParseLogSpec(cfg.SpecString)
		if err != nil {
			if cfg.FailOnSpecErrors {
				return nil, err
			}
			l.diag.warn("ignoring invalid parts of the log spec", zap.String("spec", cfg.SpecString), zap.Error(err))
		}
	}
	l.store = newSpecStore(spec)

	// --- Initialize Writers ---
	writers, err := buildWriters(cfg)
	if err != nil {
		return nil, err
	}
	l.primary = l.newPrimaryWriter(cfg, writers)

	// --- Spec File ---
	if cfg.SpecFile != "" {
		created, err := ensureSpecFile(cfg.SpecFile, spec)
		if err != nil {
			_ = l.primary.close()
			return nil, err
		}
		l.watcher, err = startSpecFileWatcher(l, cfg.SpecFile, cfg.SpecFileDebounce, !created)
		if err != nil {
			_ = l.primary.close()
			return nil, err
		}
	}
	return l, nil
}

// buildWriters validates cfg.Writers and prepends the rotating file writer if
// rotation is enabled.
func buildWriters(cfg Config) ([]NamedWriter, error) {
	if cfg.Target != TargetMulti {
		if len(cfg.Writers) > 0 || cfg.Rotation.Enable {
			return nil, errors.Newf("speclog: writers and rotation need TargetMulti, got target %s", cfg.Target)
		}
		return nil, nil
	}

	writers := make([]NamedWriter, 0, len(cfg.Writers)+1)
	seen := make(map[string]struct{}, len(cfg.Writers)+1)
	if cfg.Rotation.Enable {
		fw, err := NewFileLogWriter(cfg.Rotation, cfg.FormatForFiles)
		if err != nil {
			return nil, err
		}
		writers = append(writers, NamedWriter{Name: FileWriterName, Writer: fw})
		seen[FileWriterName] = struct{}{}
	}
	for i, nw := range cfg.Writers {
		if nw.Writer == nil {
			return nil, errors.Newf("speclog: writer %d (%q) is nil", i, nw.Name)
		}
		if nw.Name == "" {
			return nil, errors.Newf("speclog: writer %d has no name", i)
		}
		if _, ok := seen[nw.Name]; ok {
			if nw.Name == FileWriterName && cfg.Rotation.Enable {
				return nil, errors.Wrapf(ErrReservedWriterName, "%q is used by the rotating file", nw.Name)
			}
			return nil, errors.Wrapf(ErrDuplicateWriterName, "%q", nw.Name)
		}
		seen[nw.Name] = struct{}{}
		writers = append(writers, nw)
	}
	if len(writers) == 0 {
		return nil, errors.New("speclog: TargetMulti needs at least one writer")
	}
	return writers, nil
}
