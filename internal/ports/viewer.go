package ports

import (
	"context"

	"github.com/chemcat/chemcat-cli/internal/domain/structure"
)

// VolumeStyle configures isosurface extraction for volumetric data.
type VolumeStyle struct {
	IsoValue float64
	Opacity  float64
	Color    string
}

// Viewer is the narrow surface of a third-party molecular rendering engine
// instance. StructureResolver drives it through a mount/render/teardown cycle
// without knowing anything about the engine's internals.
type Viewer interface {
	// AddModel loads raw structure text in the given format.
	AddModel(data string, format structure.Format) error
	// AddModelFromURL delegates fetching (and decompression, when assembly is
	// enabled) to the engine's own URL-loading path.
	AddModelFromURL(ctx context.Context, url string, format structure.Format, assembly bool) error
	// AddVolumetricData loads a scalar field and invokes onReady once the
	// isosurface computation completes.
	AddVolumetricData(data string, format structure.Format, style VolumeStyle, onReady func()) error
	// SetDefaultStyle applies the stick-and-sphere representation to all
	// loaded models.
	SetDefaultStyle()
	// ZoomTo frames the camera to fit the loaded content.
	ZoomTo()
	// Render triggers a render pass.
	Render()
	// Resize re-fits the canvas to the mount target.
	Resize()
	// Clear releases the viewer's internal state.
	Clear()
}

// ViewerEngine creates viewer instances bound to a mount target.
type ViewerEngine interface {
	CreateViewer(target MountTarget) (Viewer, error)
}

// EngineLoader acquires the viewer engine, loading it lazily on first use.
// Load must be idempotent: an already loaded engine is returned immediately,
// and concurrent callers share a single in-flight load.
type EngineLoader interface {
	Load(ctx context.Context) (ViewerEngine, error)
}

// MountTarget is the surface a viewer renders into. It owns resize delivery:
// OnResize registers a callback and returns a remove function, mirroring the
// window-resize listener and resize-observer pair of the original client.
type MountTarget interface {
	// Clear empties the target before a new mount.
	Clear()
	// ShowError replaces the target's content with an inline diagnostic.
	ShowError(reason string)
	// OnResize registers a resize callback and returns its remover. The
	// remover must be safe to call more than once.
	OnResize(fn func()) (remove func())
	// ObserveSize registers a size observer on the target itself, if the
	// surface supports one. Returns nil when unsupported.
	ObserveSize(fn func()) (remove func())
}
