package viewer

// Package viewer contains hand-written test doubles for the viewer ports.

import (
	"context"
	"sync"

	"github.com/chemcat/chemcat-cli/internal/domain/structure"
	"github.com/chemcat/chemcat-cli/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.ViewerEngine = (*FakeEngine)(nil)
	_ ports.Viewer       = (*FakeViewer)(nil)
	_ ports.MountTarget  = (*FakeTarget)(nil)
	_ ports.EngineLoader = (*CountingLoader)(nil)
)

// FakeTarget records mount-target interactions and tracks live resize
// listeners so tests can assert on leaks.
type FakeTarget struct {
	mu sync.Mutex

	Cleared   int
	LastError string
	Errors    []string

	listeners map[int]func()
	observers map[int]func()
	nextID    int

	// DisableObserver makes ObserveSize return nil, mimicking a surface
	// without a resize observer.
	DisableObserver bool
}

// NewFakeTarget creates an empty target.
func NewFakeTarget() *FakeTarget {
	return &FakeTarget{
		listeners: make(map[int]func()),
		observers: make(map[int]func()),
	}
}

func (t *FakeTarget) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Cleared++
}

func (t *FakeTarget) ShowError(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.LastError = reason
	t.Errors = append(t.Errors, reason)
}

func (t *FakeTarget) OnResize(fn func()) (remove func()) {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = fn
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.listeners, id)
			t.mu.Unlock()
		})
	}
}

func (t *FakeTarget) ObserveSize(fn func()) (remove func()) {
	if t.DisableObserver {
		return nil
	}
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.observers[id] = fn
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.observers, id)
			t.mu.Unlock()
		})
	}
}

// LiveListeners returns the number of registered resize listeners plus
// active observers.
func (t *FakeTarget) LiveListeners() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.listeners) + len(t.observers)
}

// FireResize invokes every live resize listener and observer.
func (t *FakeTarget) FireResize() {
	t.mu.Lock()
	fns := make([]func(), 0, len(t.listeners)+len(t.observers))
	for _, fn := range t.listeners {
		fns = append(fns, fn)
	}
	for _, fn := range t.observers {
		fns = append(fns, fn)
	}
	t.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// FakeViewer records viewer calls. Error injection fields make individual
// steps fail.
type FakeViewer struct {
	mu sync.Mutex

	Models       []string
	ModelFormats []structure.Format
	URLLoads     []string
	VolumeLoads  []string
	StyleCalls   int
	ZoomCalls    int
	RenderCalls  int
	ResizeCalls  int
	ClearCalls   int

	AddModelErr        error
	AddModelFromURLErr error
	AddVolumetricErr   error
	// HoldVolumeReady suppresses the isosurface-ready callback; tests invoke
	// ReleaseVolumeReady to fire it later.
	HoldVolumeReady bool

	pendingReady func()
}

func (v *FakeViewer) AddModel(data string, format structure.Format) error {
	if v.AddModelErr != nil {
		return v.AddModelErr
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Models = append(v.Models, data)
	v.ModelFormats = append(v.ModelFormats, format)
	return nil
}

func (v *FakeViewer) AddModelFromURL(_ context.Context, url string, format structure.Format, _ bool) error {
	if v.AddModelFromURLErr != nil {
		return v.AddModelFromURLErr
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.URLLoads = append(v.URLLoads, url)
	v.ModelFormats = append(v.ModelFormats, format)
	return nil
}

func (v *FakeViewer) AddVolumetricData(data string, _ structure.Format, _ ports.VolumeStyle, onReady func()) error {
	if v.AddVolumetricErr != nil {
		return v.AddVolumetricErr
	}
	v.mu.Lock()
	v.VolumeLoads = append(v.VolumeLoads, data)
	hold := v.HoldVolumeReady
	if hold {
		v.pendingReady = onReady
	}
	v.mu.Unlock()
	if !hold && onReady != nil {
		onReady()
	}
	return nil
}

// ReleaseVolumeReady fires a held isosurface-ready callback.
func (v *FakeViewer) ReleaseVolumeReady() {
	v.mu.Lock()
	ready := v.pendingReady
	v.pendingReady = nil
	v.mu.Unlock()
	if ready != nil {
		ready()
	}
}

func (v *FakeViewer) SetDefaultStyle() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.StyleCalls++
}

func (v *FakeViewer) ZoomTo() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ZoomCalls++
}

func (v *FakeViewer) Render() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.RenderCalls++
}

func (v *FakeViewer) Resize() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ResizeCalls++
}

func (v *FakeViewer) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ClearCalls++
}

// FakeEngine hands out FakeViewers, one per CreateViewer call.
type FakeEngine struct {
	mu      sync.Mutex
	Viewers []*FakeViewer

	CreateErr error
	// HoldVolumeReady is copied onto every viewer this engine creates.
	HoldVolumeReady bool
}

func (e *FakeEngine) CreateViewer(ports.MountTarget) (ports.Viewer, error) {
	if e.CreateErr != nil {
		return nil, e.CreateErr
	}
	v := &FakeViewer{HoldVolumeReady: e.HoldVolumeReady}
	e.mu.Lock()
	e.Viewers = append(e.Viewers, v)
	e.mu.Unlock()
	return v, nil
}

// LastViewer returns the most recently created viewer, or nil.
func (e *FakeEngine) LastViewer() *FakeViewer {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Viewers) == 0 {
		return nil
	}
	return e.Viewers[len(e.Viewers)-1]
}

// CountingLoader wraps an engine and counts Load calls.
type CountingLoader struct {
	Engine  ports.ViewerEngine
	LoadErr error

	mu    sync.Mutex
	calls int
}

func (l *CountingLoader) Load(context.Context) (ports.ViewerEngine, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	if l.LoadErr != nil {
		return nil, l.LoadErr
	}
	return l.Engine, nil
}

// Calls returns how many times Load ran.
func (l *CountingLoader) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}
