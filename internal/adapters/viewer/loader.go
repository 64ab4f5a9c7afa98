// Package viewer provides viewer-engine adapters: lazy engine acquisition
// and a terminal-backed mount target for console use.
package viewer

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/chemcat/chemcat-cli/internal/ports"
)

// LoadFunc performs the actual engine acquisition.
type LoadFunc func(ctx context.Context) (ports.ViewerEngine, error)

// LazyLoader loads the viewer engine on first use. A loaded engine is reused
// immediately on later calls; concurrent callers during the initial load
// share a single in-flight acquisition. Failed loads are not cached, so a
// later mount retries.
type LazyLoader struct {
	load LoadFunc
	sf   singleflight.Group

	mu     sync.Mutex
	engine ports.ViewerEngine
}

var _ ports.EngineLoader = (*LazyLoader)(nil)

// NewLazyLoader wraps an acquisition function.
func NewLazyLoader(load LoadFunc) *LazyLoader {
	if load == nil {
		panic("lazy loader requires a load function")
	}
	return &LazyLoader{load: load}
}

// Load returns the engine, acquiring it if necessary.
func (l *LazyLoader) Load(ctx context.Context) (ports.ViewerEngine, error) {
	l.mu.Lock()
	if l.engine != nil {
		engine := l.engine
		l.mu.Unlock()
		return engine, nil
	}
	l.mu.Unlock()

	v, err, _ := l.sf.Do("engine", func() (any, error) {
		engine, loadErr := l.load(ctx)
		if loadErr != nil {
			return nil, loadErr
		}
		l.mu.Lock()
		l.engine = engine
		l.mu.Unlock()
		return engine, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(ports.ViewerEngine), nil
}

// Static returns a loader that always yields the given engine. Useful when
// the engine needs no asynchronous acquisition.
func Static(engine ports.ViewerEngine) *LazyLoader {
	return NewLazyLoader(func(context.Context) (ports.ViewerEngine, error) {
		return engine, nil
	})
}
