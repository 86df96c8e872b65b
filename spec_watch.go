// Copyright (c) 2025 Nguyễn Thanh Phương
// This source code is licensed under the MIT License found in the LICENSE file.

// Package speclog provides a spec-driven logging front-end for Go applications.
// This file watches the spec file and reloads it when it changes. Two goroutines
// cooperate: the first collects file system events for the spec file and waits
// until they have settled for the debounce interval, the second re-reads the file
// and installs the result. A file that cannot be read or has any problem is
// reported and leaves the active spec untouched.

package speclog

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultSpecFileDebounce = 800 * time.Millisecond

type specFileWatcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	signals  chan struct{}
	l        *Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// startSpecFileWatcher watches the directory containing path. If readNow is set
// the file is loaded once, synchronously, after the watch is in place.
func startSpecFileWatcher(l *Logger, path string, debounce time.Duration, readNow bool) (*specFileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "speclog: cannot resolve spec file path %s", path)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "speclog: cannot create spec file watcher")
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, errors.Wrapf(err, "speclog: cannot watch directory of spec file %s", abs)
	}
	if debounce <= 0 {
		debounce = defaultSpecFileDebounce
	}

	ctx, cancel := context.WithCancel(context.Background())
	fw := &specFileWatcher{
		path:     abs,
		debounce: debounce,
		watcher:  w,
		signals:  make(chan struct{}, 1),
		l:        l,
		cancel:   cancel,
	}
	if readNow {
		fw.reload()
	}
	fw.wg.Add(2)
	go fw.collectEvents(ctx)
	go fw.reloadOnSignal(ctx)
	return fw, nil
}

// collectEvents restarts the debounce timer on every write to or creation of the
// spec file, and signals the reloader once the timer fires.
func (fw *specFileWatcher) collectEvents(ctx context.Context) {
	defer fw.wg.Done()
	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != fw.path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(fw.debounce)
			timerC = timer.C
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.l.diag.warn("spec file watcher error", zap.String("file", fw.path), zap.Error(err))
		case <-timerC:
			timer, timerC = nil, nil
			select {
			case fw.signals <- struct{}{}:
			default:
				// A reload is already pending and will pick up the latest content.
			}
		}
	}
}

func (fw *specFileWatcher) reloadOnSignal(ctx context.Context) {
	defer fw.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-fw.signals:
			fw.reload()
		}
	}
}

func (fw *specFileWatcher) reload() {
	spec, err := ReadSpecFile(fw.path)
	if err != nil {
		fw.l.reloadErrs.Add(1)
		fw.l.diag.warn("spec file not applied, continuing with the current log spec",
			zap.String("file", fw.path), zap.Error(err))
		return
	}
	fw.l.handle.SetNewSpec(spec)
}

// stop ends both goroutines and releases the file system watch.
func (fw *specFileWatcher) stop() error {
	fw.cancel()
	err := fw.watcher.Close()
	fw.wg.Wait()
	return err
}
