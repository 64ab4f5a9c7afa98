package viewer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/chemcat/chemcat-cli/internal/domain/structure"
	"github.com/chemcat/chemcat-cli/internal/ports"
)

// TermTarget is a MountTarget backed by a writer. The console has no real
// rendering surface, so it reports viewer activity as text. Resize callbacks
// can be driven manually via FireResize (e.g. from a SIGWINCH handler).
type TermTarget struct {
	w io.Writer

	mu        sync.Mutex
	listeners map[int]func()
	nextID    int
}

var _ ports.MountTarget = (*TermTarget)(nil)

// NewTermTarget creates a terminal mount target writing to w.
func NewTermTarget(w io.Writer) *TermTarget {
	return &TermTarget{w: w, listeners: make(map[int]func())}
}

// Clear empties the target before a new mount.
func (t *TermTarget) Clear() {
	fmt.Fprintln(t.w)
}

// ShowError prints the inline diagnostic.
func (t *TermTarget) ShowError(reason string) {
	fmt.Fprintf(t.w, "  [viewer] %s\n", reason)
}

// OnResize registers a resize callback.
func (t *TermTarget) OnResize(fn func()) (remove func()) {
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

// ObserveSize is unsupported on terminals.
func (t *TermTarget) ObserveSize(func()) (remove func()) { return nil }

// FireResize invokes every registered resize callback.
func (t *TermTarget) FireResize() {
	t.mu.Lock()
	fns := make([]func(), 0, len(t.listeners))
	for _, fn := range t.listeners {
		fns = append(fns, fn)
	}
	t.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// TermEngine is a ViewerEngine that describes loaded content as text rather
// than rendering geometry. It keeps the mount/render/teardown lifecycle
// observable from a console.
type TermEngine struct{}

var _ ports.ViewerEngine = TermEngine{}

// CreateViewer binds a text viewer to the target.
func (TermEngine) CreateViewer(target ports.MountTarget) (ports.Viewer, error) {
	t, ok := target.(*TermTarget)
	if !ok {
		return nil, fmt.Errorf("terminal engine requires a terminal target, got %T", target)
	}
	return &termViewer{target: t}, nil
}

type termViewer struct {
	target *TermTarget

	mu      sync.Mutex
	summary string
}

var _ ports.Viewer = (*termViewer)(nil)

func (v *termViewer) AddModel(data string, format structure.Format) error {
	lines := strings.Count(data, "\n") + 1
	v.setSummary(fmt.Sprintf("model (%s, %d lines)", format, lines))
	return nil
}

func (v *termViewer) AddModelFromURL(_ context.Context, url string, format structure.Format, assembly bool) error {
	v.setSummary(fmt.Sprintf("model (%s, from %s, assembly=%t)", format, url, assembly))
	return nil
}

func (v *termViewer) AddVolumetricData(data string, format structure.Format, style ports.VolumeStyle, onReady func()) error {
	lines := strings.Count(data, "\n") + 1
	v.setSummary(fmt.Sprintf("volume (%s, %d lines, isoval=%g)", format, lines, style.IsoValue))
	if onReady != nil {
		onReady()
	}
	return nil
}

func (v *termViewer) SetDefaultStyle() {}

func (v *termViewer) ZoomTo() {}

func (v *termViewer) Render() {
	v.mu.Lock()
	summary := v.summary
	v.mu.Unlock()
	if summary != "" {
		fmt.Fprintf(v.target.w, "  [viewer] rendered %s\n", summary)
	}
}

func (v *termViewer) Resize() {}

func (v *termViewer) Clear() {
	v.mu.Lock()
	v.summary = ""
	v.mu.Unlock()
}

func (v *termViewer) setSummary(s string) {
	v.mu.Lock()
	v.summary = s
	v.mu.Unlock()
}
