package preview

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	defaultOpenPoll = 750 * time.Millisecond
	// launchGrace is how long a viewer may take to report the document
	// open before its absence counts as a cancel.
	launchGrace = 10 * time.Second
	// settleQuiet is how long the previewed file must go without further
	// writes before a save counts as finished.
	settleQuiet = 400 * time.Millisecond
)

// watchSession treats a write to the previewed file as the commit gesture
// and the viewer no longer holding the document as a cancel. The commit is
// reported once the file has been quiet for s.quiet, so a save written in
// several chunks is seen whole.
type watchSession struct {
	path    string
	watcher *fsnotify.Watcher

	// isOpen reports whether the viewer still shows the document. Nil
	// means the viewer cannot be asked, so only ctx ends the wait.
	isOpen   func(ctx context.Context) (bool, error)
	close    func() error
	openPoll time.Duration
	grace    time.Duration
	quiet    time.Duration
}

func newWatchSession(path string, isOpen func(context.Context) (bool, error), closeFn func() error) (*watchSession, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors often save by replacing the file.
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, err
	}
	return &watchSession{
		path:     filepath.Clean(path),
		watcher:  w,
		isOpen:   isOpen,
		close:    closeFn,
		openPoll: defaultOpenPoll,
		grace:    launchGrace,
		quiet:    settleQuiet,
	}, nil
}

func (s *watchSession) Wait(ctx context.Context) (Outcome, error) {
	var tick <-chan time.Time
	if s.isOpen != nil {
		t := time.NewTicker(s.openPoll)
		defer t.Stop()
		tick = t.C
	}
	started := time.Now()
	seenOpen := false

	settled := time.NewTimer(s.quiet)
	settled.Stop()
	defer settled.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return OutcomeCancel, ctx.Err()
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return OutcomeCancel, errors.New("file watcher closed")
			}
			if filepath.Clean(ev.Name) == s.path && (ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				pending = true
				settled.Reset(s.quiet)
			}
		case <-settled.C:
			return OutcomeCommit, nil
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return OutcomeCancel, errors.New("file watcher closed")
			}
			return OutcomeCancel, err
		case <-tick:
			open, err := s.isOpen(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return OutcomeCancel, ctx.Err()
				}
				return OutcomeCancel, err
			}
			if open {
				seenOpen = true
				continue
			}
			// Saved and closed: let the write settle.
			if pending {
				continue
			}
			if seenOpen || time.Since(started) > s.grace {
				return OutcomeCancel, nil
			}
		}
	}
}

func (s *watchSession) Close() error {
	err := s.watcher.Close()
	if s.close != nil {
		err = errors.Join(err, s.close())
	}
	return err
}
