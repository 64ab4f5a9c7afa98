package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/chemcat/chemcat-cli/internal/errors"
	mockviewer "github.com/chemcat/chemcat-cli/internal/mocks/viewer"
)

const sampleSDF = `
  Caffeine
  24 25  0  0  0  0  0  0  0  0999 V2000
M  END
$$$$
`

// fileServer serves a fixed body for every path, recording nothing.
func fileServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

type resolverFixture struct {
	engine   *mockviewer.FakeEngine
	loader   *mockviewer.CountingLoader
	target   *mockviewer.FakeTarget
	resolver *StructureResolver
}

func newResolverFixture(t *testing.T) *resolverFixture {
	t.Helper()
	engine := &mockviewer.FakeEngine{}
	loader := &mockviewer.CountingLoader{Engine: engine}
	return &resolverFixture{
		engine:   engine,
		loader:   loader,
		target:   mockviewer.NewFakeTarget(),
		resolver: NewStructureResolver(StructureResolverOptions{Loader: loader}),
	}
}

func TestNewStructureResolverPanicsWithoutLoader(t *testing.T) {
	assert.Panics(t, func() {
		NewStructureResolver(StructureResolverOptions{})
	})
}

func TestMountModelRendersAndListens(t *testing.T) {
	f := newResolverFixture(t)
	srv := fileServer(t, http.StatusOK, sampleSDF)

	err := f.resolver.Mount(context.Background(), f.target, srv.URL+"/caffeine.sdf")
	require.NoError(t, err)

	sess := f.resolver.Session(f.target)
	require.NotNil(t, sess)
	assert.Equal(t, SessionRendered, sess.State())

	viewer := f.engine.LastViewer()
	require.NotNil(t, viewer)
	require.Len(t, viewer.Models, 1)
	assert.Equal(t, sampleSDF, viewer.Models[0])
	assert.Equal(t, 1, viewer.StyleCalls)
	assert.Equal(t, 1, viewer.ZoomCalls)
	assert.Equal(t, 1, viewer.RenderCalls)

	// Listener plus observer, both live.
	assert.Equal(t, 2, f.target.LiveListeners())
	f.target.FireResize()
	assert.Equal(t, 2, viewer.ResizeCalls)
}

func TestMountCompressedModelUsesURLPath(t *testing.T) {
	f := newResolverFixture(t)

	err := f.resolver.Mount(context.Background(), f.target, "https://files.example.com/big.pdb.gz")
	require.NoError(t, err)

	viewer := f.engine.LastViewer()
	require.NotNil(t, viewer)
	assert.Empty(t, viewer.Models)
	require.Len(t, viewer.URLLoads, 1)
	assert.Equal(t, "https://files.example.com/big.pdb.gz", viewer.URLLoads[0])
	assert.Equal(t, SessionRendered, f.resolver.Session(f.target).State())
}

func TestMountVolumeRendersAfterReadyCallback(t *testing.T) {
	f := newResolverFixture(t)
	srv := fileServer(t, http.StatusOK, "CPMD CUBE FILE\n")

	err := f.resolver.Mount(context.Background(), f.target, srv.URL+"/density.cube")
	require.NoError(t, err)

	viewer := f.engine.LastViewer()
	require.NotNil(t, viewer)
	require.Len(t, viewer.VolumeLoads, 1)
	assert.Equal(t, 1, viewer.ZoomCalls)
	assert.Equal(t, 1, viewer.RenderCalls)
	assert.Equal(t, SessionRendered, f.resolver.Session(f.target).State())
}

func TestCompressedVolumetricIsRejected(t *testing.T) {
	f := newResolverFixture(t)

	err := f.resolver.Mount(context.Background(), f.target, "https://files.example.com/density.cube.gz")

	require.Error(t, err)
	assert.True(t, apperrors.IsUnsupported(err))
	assert.Equal(t, SessionFailed, f.resolver.Session(f.target).State())
	assert.Contains(t, f.target.LastError, "Unable to render the 3D file. Reason: ")
	assert.Contains(t, f.target.LastError, "Compressed volumetric (.cube.gz / .dx.gz) not supported yet")
	assert.Contains(t, f.target.LastError, "Try the download link instead.")
	// Nothing left listening after a failed mount.
	assert.Equal(t, 0, f.target.LiveListeners())
}

func TestMountFetchFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		reason string
	}{
		{"http error", http.StatusNotFound, "nope", "HTTP 404"},
		{"empty file", http.StatusOK, "   \n", "Empty file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newResolverFixture(t)
			srv := fileServer(t, tt.status, tt.body)

			err := f.resolver.Mount(context.Background(), f.target, srv.URL+"/broken.sdf")

			require.Error(t, err)
			assert.Equal(t, tt.reason, apperrors.DisplayMessage(err))
			assert.Equal(t, SessionFailed, f.resolver.Session(f.target).State())
			assert.Contains(t, f.target.LastError, tt.reason)
		})
	}
}

func TestMountEngineLoadFailure(t *testing.T) {
	f := newResolverFixture(t)
	f.loader.LoadErr = apperrors.Internal("no engine")

	err := f.resolver.Mount(context.Background(), f.target, "https://files.example.com/a.sdf")

	require.Error(t, err)
	assert.Contains(t, f.target.LastError, "Failed to load viewer engine")
	assert.Equal(t, SessionFailed, f.resolver.Session(f.target).State())
}

func TestRemountLeavesExactlyOneListenerSet(t *testing.T) {
	f := newResolverFixture(t)
	srv := fileServer(t, http.StatusOK, sampleSDF)

	require.NoError(t, f.resolver.Mount(context.Background(), f.target, srv.URL+"/first.sdf"))
	first := f.resolver.Session(f.target)
	firstViewer := f.engine.LastViewer()

	require.NoError(t, f.resolver.Mount(context.Background(), f.target, srv.URL+"/second.pdb"))
	second := f.resolver.Session(f.target)

	assert.NotSame(t, first, second)
	assert.True(t, first.Disposed())
	assert.False(t, second.Disposed())
	// The prior viewer is cleared and only the new session's listeners remain.
	assert.Equal(t, 1, firstViewer.ClearCalls)
	assert.Equal(t, 2, f.target.LiveListeners())

	secondViewer := f.engine.LastViewer()
	f.target.FireResize()
	assert.Equal(t, 0, firstViewer.ResizeCalls)
	assert.Equal(t, 2, secondViewer.ResizeCalls)
}

func TestDisposeReleasesEverything(t *testing.T) {
	f := newResolverFixture(t)
	srv := fileServer(t, http.StatusOK, sampleSDF)

	require.NoError(t, f.resolver.Mount(context.Background(), f.target, srv.URL+"/mol.sdf"))
	sess := f.resolver.Session(f.target)
	viewer := f.engine.LastViewer()

	f.resolver.Dispose(f.target)

	assert.Nil(t, f.resolver.Session(f.target))
	assert.True(t, sess.Disposed())
	assert.Equal(t, 0, f.target.LiveListeners())
	assert.Equal(t, 1, viewer.ClearCalls)

	// Second dispose is a no-op in every direction.
	f.resolver.Dispose(f.target)
	sess.Dispose()
	assert.Equal(t, 1, viewer.ClearCalls)
}

func TestHeldVolumeReadyAfterDisposeIsNoOp(t *testing.T) {
	engine := &mockviewer.FakeEngine{HoldVolumeReady: true}
	loader := &mockviewer.CountingLoader{Engine: engine}
	resolver := NewStructureResolver(StructureResolverOptions{Loader: loader})
	target := mockviewer.NewFakeTarget()
	srv := fileServer(t, http.StatusOK, "object 1 class gridpositions\n")

	require.NoError(t, resolver.Mount(context.Background(), target, srv.URL+"/density.dx"))
	held := engine.LastViewer()
	require.NotNil(t, held)
	assert.Equal(t, SessionLoading, resolver.Session(target).State())

	resolver.Dispose(target)
	held.ReleaseVolumeReady()

	// The late callback must not render or resurrect the session.
	assert.Equal(t, 0, held.ZoomCalls)
	assert.Equal(t, 0, held.RenderCalls)
	assert.Nil(t, resolver.Session(target))
}

func TestTargetWithoutObserverRegistersOneListener(t *testing.T) {
	f := newResolverFixture(t)
	f.target.DisableObserver = true
	srv := fileServer(t, http.StatusOK, sampleSDF)

	require.NoError(t, f.resolver.Mount(context.Background(), f.target, srv.URL+"/mol.sdf"))

	// Targets without a size observer register only the plain listener.
	assert.Equal(t, 1, f.target.LiveListeners())
	f.resolver.Dispose(f.target)
	assert.Equal(t, 0, f.target.LiveListeners())
}

func TestResizeAfterDisposeDoesNothing(t *testing.T) {
	f := newResolverFixture(t)
	srv := fileServer(t, http.StatusOK, sampleSDF)

	require.NoError(t, f.resolver.Mount(context.Background(), f.target, srv.URL+"/mol.sdf"))
	viewer := f.engine.LastViewer()

	f.resolver.Dispose(f.target)
	f.target.FireResize()

	assert.Equal(t, 0, viewer.ResizeCalls)
}

func TestResolverDelegatesEngineCaching(t *testing.T) {
	f := newResolverFixture(t)
	srv := fileServer(t, http.StatusOK, sampleSDF)

	require.NoError(t, f.resolver.Mount(context.Background(), f.target, srv.URL+"/a.sdf"))
	require.NoError(t, f.resolver.Mount(context.Background(), f.target, srv.URL+"/b.sdf"))

	// CountingLoader has no cache of its own, so each mount asks it once.
	assert.Equal(t, 2, f.loader.Calls())
}
