// watch.go wires github.com/fsnotify/fsnotify into the config layer as an
// additional reload trigger alongside SIGHUP (see pkg/selenia/procmgr),
// grounded on original_source/selenia_core/src/config.rs's reload-on-change
// behavior.
package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads path whenever it (or the directory entry behind it, for
// editors that replace-via-rename) changes, invoking onReload with the
// freshly parsed Config. Parse failures are reported via onError and do not
// replace the previously loaded configuration, matching the "bad config
// never takes down a running server" posture in spec.md §7.
type Watcher struct {
	fsw *fsnotify.Watcher
}

// WatchFile starts watching the directory containing path (fsnotify does
// not reliably see rename-based atomic replace events on the bare file
// itself) and calls onReload/onError on Write or Create events matching
// path's basename.
func WatchFile(path string, onReload func(*Config), onError func(error)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	base := filepath.Base(path)

	go func() {
		for {
			select {
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != base {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := Load(path)
				if err != nil {
					if onError != nil {
						onError(err)
					}
					continue
				}
				if err := cfg.Validate(); err != nil {
					if onError != nil {
						onError(err)
					}
					continue
				}
				if onReload != nil {
					onReload(cfg)
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				if onError != nil {
					onError(err)
				}
			}
		}
	}()

	return &Watcher{fsw: fsw}, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
