// Package lock provides the per-cycle try-locks that keep two phase
// transitions of the same cycle from running at once.
package lock

import (
	"context"
	"errors"
	"sync"
)

var ErrLocked = errors.New("lock: already held")

// Release frees a lock obtained from a Locker. It is safe to call once.
type Release func()

// Locker acquires a named lock without waiting. A held lock yields ErrLocked.
type Locker interface {
	TryLock(ctx context.Context, key string) (Release, error)
}

// Local is an in-process Locker.
type Local struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocal() *Local {
	return &Local{held: map[string]struct{}{}}
}

func (l *Local) TryLock(_ context.Context, key string) (Release, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]struct{}{}
	}
	if _, ok := l.held[key]; ok {
		return nil, ErrLocked
	}
	l.held[key] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}

// Chain acquires every locker in order and releases them in reverse. A nil
// entry is skipped.
type Chain []Locker

func (c Chain) TryLock(ctx context.Context, key string) (Release, error) {
	releases := make([]Release, 0, len(c))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, l := range c {
		if l == nil {
			continue
		}
		rel, err := l.TryLock(ctx, key)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, rel)
	}
	return releaseAll, nil
}
