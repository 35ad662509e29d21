package addons

import (
	"context"

	"github.com/fsnotify/fsnotify"

	"voxbar/internal/logger"
)

// Watcher observes the addons root and fires onChange when addon
// directories appear, disappear, or are renamed, so menus refresh
// without a restart.
type Watcher struct {
	watcher  *fsnotify.Watcher
	onChange func()
	log      logger.Logger
}

func NewWatcher(root string, onChange func(), log logger.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(root); err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{
		watcher:  fw,
		onChange: onChange,
		log:      log,
	}, nil
}

// Run dispatches events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.log.D("addons root changed: %s", ev)
				w.onChange()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.W("addons watcher error: %v", err)
		}
	}
}
