package hotwords

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reloads the registry's backing file when it changes on disk, so
// vocabulary edits take effect without a restart. It watches the containing
// directory rather than the file itself to survive atomic replace (editors
// and config tooling write a temp file and rename over the original).
type Watcher struct {
	reg     *Registry
	watcher *fsnotify.Watcher
	done    chan struct{}
	log     zerolog.Logger
}

// Watch starts watching the registry's backing file. Returns an error if
// the registry has no file path or the watch cannot be established.
func Watch(reg *Registry, log zerolog.Logger) (*Watcher, error) {
	if reg.path == "" {
		return nil, fmt.Errorf("hotwords registry has no file path to watch")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create hotwords watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(reg.path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch hotwords dir: %w", err)
	}

	w := &Watcher{
		reg:     reg,
		watcher: fw,
		done:    make(chan struct{}),
		log:     log,
	}
	go w.loop()
	log.Info().Str("path", reg.path).Msg("watching hotwords file")
	return w, nil
}

func (w *Watcher) loop() {
	target := filepath.Clean(w.reg.path)
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := w.reg.LoadFile(w.reg.path); err != nil {
				// Malformed or mid-write file: keep the current terms.
				w.log.Warn().Err(err).Msg("hotwords reload failed, keeping current set")
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("hotwords watcher error")
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
