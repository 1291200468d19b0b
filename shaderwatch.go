package vkframe

import (
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// ShaderWatcher notices when compiled shader files are rewritten, so a demo
// can rebuild its pipeline without restarting. The containing directories are
// watched because shader compilers and editors often replace files by
// renaming over them.
type ShaderWatcher struct {
	watcher *fsnotify.Watcher
	files   map[string]bool
	changed atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// WatchShaders starts watching files.
func WatchShaders(files ...string) (*ShaderWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create shader watcher")
	}
	sw := &ShaderWatcher{
		watcher: watcher,
		files:   make(map[string]bool, len(files)),
		done:    make(chan struct{}),
	}
	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			watcher.Close()
			return nil, errors.Wrapf(err, "shader path %s", f)
		}
		sw.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, errors.Wrapf(err, "watch %s", dir)
		}
	}
	sw.wg.Add(1)
	go sw.loop()
	return sw, nil
}

// ShaderFiles lists stem+kind.Suffix() for each kind, the names
// NewShadersFromStem loads.
func ShaderFiles(stem string, kinds []ShaderKind) []string {
	files := make([]string, len(kinds))
	for i, k := range kinds {
		files[i] = stem + k.Suffix()
	}
	return files
}

func (sw *ShaderWatcher) loop() {
	defer sw.wg.Done()
	for {
		select {
		case <-sw.done:
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if abs, err := filepath.Abs(event.Name); err == nil && sw.files[abs] {
				Logger().Debug("shader changed", "file", event.Name, "op", event.Op.String())
				sw.changed.Store(true)
			}
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			Logger().Warn("shader watcher", "error", err)
		}
	}
}

// Changed reports whether a watched file changed since the last call.
func (sw *ShaderWatcher) Changed() bool {
	return sw.changed.Swap(false)
}

// Close stops watching.
func (sw *ShaderWatcher) Close() error {
	close(sw.done)
	err := sw.watcher.Close()
	sw.wg.Wait()
	return errors.Wrap(err, "close shader watcher")
}
