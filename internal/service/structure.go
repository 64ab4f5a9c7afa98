package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/chemcat/chemcat-cli/internal/domain/structure"
	apperrors "github.com/chemcat/chemcat-cli/internal/errors"
	"github.com/chemcat/chemcat-cli/internal/observability/statsd"
	"github.com/chemcat/chemcat-cli/internal/ports"
)

// defaultVolumeStyle is the fixed isosurface configuration for volumetric
// sources.
var defaultVolumeStyle = ports.VolumeStyle{IsoValue: 0.03, Opacity: 0.85, Color: "white"}

// SessionState tracks a viewer session's position in its lifecycle.
type SessionState string

const (
	SessionIdle     SessionState = "idle"
	SessionLoading  SessionState = "loading"
	SessionRendered SessionState = "rendered"
	SessionFailed   SessionState = "failed"
)

// ViewerSession owns one mounted viewer and its registered listeners. Every
// acquired resource is independently nil-checked on release, so disposal is
// safe even after a mount failed partway through.
type ViewerSession struct {
	target ports.MountTarget

	mu             sync.Mutex
	state          SessionState
	viewer         ports.Viewer
	removeResize   func()
	removeObserver func()
	disposed       bool
}

// State returns the session's lifecycle state.
func (vs *ViewerSession) State() SessionState {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return vs.state
}

// Disposed reports whether this session has been superseded or torn down.
// In-flight callbacks check it before every state mutation that follows a
// suspension point.
func (vs *ViewerSession) Disposed() bool {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return vs.disposed
}

// Dispose releases every resource the session acquired: resize listeners are
// removed, the size observer disconnected, and the viewer cleared. Calling it
// again is a no-op.
func (vs *ViewerSession) Dispose() {
	vs.mu.Lock()
	if vs.disposed {
		vs.mu.Unlock()
		return
	}
	vs.disposed = true
	removeResize := vs.removeResize
	removeObserver := vs.removeObserver
	viewer := vs.viewer
	vs.removeResize = nil
	vs.removeObserver = nil
	vs.viewer = nil
	vs.state = SessionIdle
	vs.mu.Unlock()

	if removeResize != nil {
		removeResize()
	}
	if removeObserver != nil {
		removeObserver()
	}
	if viewer != nil {
		viewer.Clear()
	}
}

// StructureResolverOptions groups dependencies for StructureResolver.
type StructureResolverOptions struct {
	// Loader acquires the viewer engine, lazily on first use.
	Loader ports.EngineLoader
	// FetchTimeout bounds structure-file downloads. Zero means 30s.
	FetchTimeout time.Duration
	// Transport overrides the fetch transport (tests).
	Transport http.RoundTripper
	Logger    *slog.Logger
	Metrics   statsd.Sink
}

// StructureResolver classifies structure-file URLs and drives the viewer
// engine through a mount/render/teardown cycle. At most one session is active
// per mount target; mounting a new source first fully disposes the previous
// session.
//
// Structure files are fetched without credentials: they may be served from a
// content origin where the session cookie must not leak, so the resolver
// keeps its own jar-less HTTP client.
type StructureResolver struct {
	loader  ports.EngineLoader
	fetch   *http.Client
	logger  *slog.Logger
	metrics statsd.Sink

	mu       sync.Mutex
	sessions map[ports.MountTarget]*ViewerSession
}

// NewStructureResolver constructs a StructureResolver.
func NewStructureResolver(opts StructureResolverOptions) *StructureResolver {
	if opts.Loader == nil {
		panic("structure resolver requires an engine loader")
	}
	timeout := opts.FetchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &StructureResolver{
		loader: opts.Loader,
		fetch: &http.Client{
			Timeout:   timeout,
			Transport: opts.Transport,
		},
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		sessions: make(map[ports.MountTarget]*ViewerSession),
	}
}

func (r *StructureResolver) log() *slog.Logger {
	if r != nil && r.logger != nil {
		return r.logger
	}
	return slog.Default()
}

// Session returns the active session for a target, or nil.
func (r *StructureResolver) Session(target ports.MountTarget) *ViewerSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[target]
}

// Mount classifies url and renders it into target. Any prior session on the
// same target is disposed first; its still-in-flight callbacks become no-ops.
// On failure the target shows an inline diagnostic and the session is left
// safe and re-mountable; the failure is also returned so callers can log it,
// but it has already been displayed.
func (r *StructureResolver) Mount(ctx context.Context, target ports.MountTarget, url string) error {
	sess := r.begin(target)

	start := time.Now()
	err := r.mount(ctx, sess, target, url)
	if err != nil && !sess.Disposed() {
		r.fail(sess, target, err)
	}
	r.timing(time.Since(start), err == nil)
	return err
}

// begin swaps in a fresh loading session for the target, disposing any prior
// one completely before the new load starts.
func (r *StructureResolver) begin(target ports.MountTarget) *ViewerSession {
	r.mu.Lock()
	prior := r.sessions[target]
	sess := &ViewerSession{target: target, state: SessionLoading}
	r.sessions[target] = sess
	r.mu.Unlock()

	if prior != nil {
		prior.Dispose()
	}
	return sess
}

// Dispose tears down the active session for a target, if any.
func (r *StructureResolver) Dispose(target ports.MountTarget) {
	r.mu.Lock()
	sess := r.sessions[target]
	delete(r.sessions, target)
	r.mu.Unlock()

	if sess != nil {
		sess.Dispose()
	}
}

func (r *StructureResolver) mount(ctx context.Context, sess *ViewerSession, target ports.MountTarget, url string) error {
	engine, err := r.loader.Load(ctx)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to load viewer engine")
	}
	if sess.Disposed() {
		return nil
	}

	target.Clear()
	viewer, err := engine.CreateViewer(target)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to create viewer")
	}
	sess.mu.Lock()
	sess.viewer = viewer
	sess.mu.Unlock()

	src := structure.Detect(url)

	switch src.Kind {
	case structure.KindModel:
		if err := r.loadModel(ctx, sess, viewer, url, src); err != nil {
			return err
		}
		viewer.SetDefaultStyle()
		viewer.ZoomTo()
		viewer.Render()
		sess.mu.Lock()
		if !sess.disposed {
			sess.state = SessionRendered
		}
		sess.mu.Unlock()

	case structure.KindVolume:
		if src.Compressed {
			return apperrors.Unsupported("Compressed volumetric (.cube.gz / .dx.gz) not supported yet")
		}
		text, err := r.fetchText(ctx, url)
		if err != nil {
			return err
		}
		if sess.Disposed() {
			return nil
		}
		onReady := func() {
			if sess.Disposed() {
				return
			}
			viewer.ZoomTo()
			viewer.Render()
			sess.mu.Lock()
			if !sess.disposed {
				sess.state = SessionRendered
			}
			sess.mu.Unlock()
		}
		if err := viewer.AddVolumetricData(text, src.Format, defaultVolumeStyle, onReady); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to load volumetric data")
		}
	}

	if sess.Disposed() {
		return nil
	}
	r.attachResize(sess, target, viewer)
	return nil
}

// loadModel brings a discrete molecular model into the viewer. Compressed
// models go through the engine's own URL-loading path with assembly enabled,
// since client-side decompression is not implemented.
func (r *StructureResolver) loadModel(ctx context.Context, sess *ViewerSession, viewer ports.Viewer, url string, src structure.Source) error {
	if src.Compressed {
		if err := viewer.AddModelFromURL(ctx, url, src.Format, true); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to load model")
		}
		return nil
	}

	text, err := r.fetchText(ctx, url)
	if err != nil {
		return err
	}
	if sess.Disposed() {
		return nil
	}
	if err := viewer.AddModel(text, src.Format); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to load model")
	}
	return nil
}

// fetchText downloads a structure file without credentials and rejects
// non-2xx responses and empty bodies.
func (r *StructureResolver) fetchText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "Invalid structure URL")
	}
	resp, err := r.fetch.Do(req)
	if err != nil {
		return "", apperrors.Transport(err, "Failed to fetch structure file")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apperrors.Backend(fmt.Sprintf("HTTP %d", resp.StatusCode))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.Transport(err, "Failed to read structure file")
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return "", apperrors.Backend("Empty file")
	}
	return text, nil
}

// attachResize registers the resize listener and, when the target supports
// one, a size observer. Both re-fit and re-render, and both are recorded in
// the session for teardown.
func (r *StructureResolver) attachResize(sess *ViewerSession, target ports.MountTarget, viewer ports.Viewer) {
	onResize := func() {
		if sess.Disposed() {
			return
		}
		viewer.Resize()
	}
	removeResize := target.OnResize(onResize)
	removeObserver := target.ObserveSize(onResize)

	sess.mu.Lock()
	if sess.disposed {
		sess.mu.Unlock()
		// Lost the race with a dispose: release immediately.
		if removeResize != nil {
			removeResize()
		}
		if removeObserver != nil {
			removeObserver()
		}
		return
	}
	sess.removeResize = removeResize
	sess.removeObserver = removeObserver
	sess.mu.Unlock()
}

// fail replaces the target's content with an inline diagnostic and leaves the
// session in a safe, re-mountable state.
func (r *StructureResolver) fail(sess *ViewerSession, target ports.MountTarget, err error) {
	reason := apperrors.DisplayMessage(err)
	r.log().Debug("structure mount failed", "reason", reason)

	sess.mu.Lock()
	viewer := sess.viewer
	sess.viewer = nil
	sess.state = SessionFailed
	sess.mu.Unlock()

	if viewer != nil {
		viewer.Clear()
	}
	target.ShowError(fmt.Sprintf("Unable to render the 3D file. Reason: %s. Try the download link instead.", reason))
}

func (r *StructureResolver) timing(d time.Duration, ok bool) {
	if r.metrics == nil {
		return
	}
	tags := map[string]string{"ok": "false"}
	if ok {
		tags["ok"] = "true"
	}
	r.metrics.Timing("viewer.mount", d, tags)
}
