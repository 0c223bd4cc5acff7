package app

import (
	"context"
	"log/slog"
	"sync"

	"lattice/internal/core/watcher"
	"lattice/internal/shared/util"
)

// WatchSession runs continuous rescans while the filesystem changes.
type WatchSession struct {
	app     *App
	watcher *watcher.Watcher
	limiter *util.Limiter

	mu      sync.RWMutex
	latest  *Report
	updates chan *Report
	cancel  context.CancelFunc
}

// StartWatch begins watch mode. Each debounced change batch triggers a
// rescan; reports stream on Updates. The limiter bounds rescan frequency
// when editors produce save storms.
func (a *App) StartWatch(ctx context.Context) (*WatchSession, error) {
	ctx, cancel := context.WithCancel(ctx)

	s := &WatchSession{
		app:     a,
		limiter: util.NewLimiter(2, 1),
		updates: make(chan *Report, 4),
		cancel:  cancel,
	}

	batches := make(chan []string, 16)
	w, err := watcher.New(a.Config.Watch.Debounce, a.Config.Exclude.Dirs, a.Config.Exclude.Files, func(paths []string) {
		select {
		case batches <- paths:
		case <-ctx.Done():
		}
	})
	if err != nil {
		cancel()
		return nil, err
	}
	s.watcher = w

	roots := make([]string, 0, len(a.Config.Paths.Roots))
	for _, root := range a.Config.Paths.Roots {
		roots = append(roots, a.absRoot(root))
	}
	if err := w.Watch(roots); err != nil {
		cancel()
		_ = w.Close()
		return nil, err
	}

	go s.loop(ctx, batches)
	return s, nil
}

func (s *WatchSession) loop(ctx context.Context, batches chan []string) {
	for {
		select {
		case <-ctx.Done():
			return
		case paths := <-batches:
			// Coalesce anything that queued up while we waited for a token.
			if err := s.limiter.Wait(ctx, 1); err != nil {
				return
			}
			for {
				select {
				case more := <-batches:
					paths = append(paths, more...)
					continue
				default:
				}
				break
			}

			report, err := s.app.RunRescan(ctx, paths)
			if err != nil {
				slog.Error("rescan failed", "error", err)
				continue
			}
			s.mu.Lock()
			s.latest = report
			s.mu.Unlock()
			select {
			case s.updates <- report:
			default:
			}
		}
	}
}

// Updates streams rescan reports. The channel drops reports when the
// consumer lags; Latest always holds the newest.
func (s *WatchSession) Updates() <-chan *Report {
	return s.updates
}

// Latest returns the most recent report, or nil before the first rescan.
func (s *WatchSession) Latest() *Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func (s *WatchSession) Close() error {
	s.cancel()
	return s.watcher.Close()
}
