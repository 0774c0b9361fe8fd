package lsp

import (
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// GrammarWatcher reports changes to the grammar files of a directory.
type GrammarWatcher struct {
	dir      string
	onChange func(name string)
	watcher  *fsnotify.Watcher
	done     chan struct{}
}

// NewGrammarWatcher watches dir and calls onChange with the grammar name of
// every *.spec file that is written, created, removed or renamed.
func NewGrammarWatcher(dir string, onChange func(name string)) (*GrammarWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	return &GrammarWatcher{
		dir:      dir,
		onChange: onChange,
		watcher:  w,
		done:     make(chan struct{}),
	}, nil
}

func (w *GrammarWatcher) Start() {
	go w.run()
}

// Stop ends the watch. It is safe to call once.
func (w *GrammarWatcher) Stop() {
	w.watcher.Close()
	<-w.done
}

func (w *GrammarWatcher) run() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Ext(event.Name) != ".spec" {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				name := strings.TrimSuffix(filepath.Base(event.Name), ".spec")
				log.Debugf("grammar %s changed: %s", name, event.Op)
				w.onChange(name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warningf("watching %s: %v", w.dir, err)
		}
	}
}
