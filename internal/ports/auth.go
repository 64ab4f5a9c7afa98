package ports

// Package ports defines interfaces (hexagonal ports) for session and viewer
// behavior. Implementations live in internal/adapters; orchestration in
// internal/service.

import (
	"context"

	domainauth "github.com/chemcat/chemcat-cli/internal/domain/auth"
)

// SnapshotStore persists the last known identity so a freshly started client
// can show a cached user optimistically while the first reconciliation runs.
// Load returns (nil, nil) when no snapshot exists or the stored snapshot is
// unreadable; a stale or corrupt snapshot must never fail construction.
type SnapshotStore interface {
	Load(ctx context.Context) (*domainauth.User, error)
	Save(ctx context.Context, user *domainauth.User) error
	Clear(ctx context.Context) error
}

// SignalKind identifies why a refresh signal fired.
type SignalKind string

const (
	// SignalFocus fires when the client surface regains focus.
	SignalFocus SignalKind = "focus"
	// SignalVisible fires when the client surface becomes visible again.
	SignalVisible SignalKind = "visible"
	// SignalSnapshot fires when another process changed the persisted identity
	// snapshot (the cross-tab storage event of the original design).
	SignalSnapshot SignalKind = "snapshot"
)

// Signal is one external change notification.
type Signal struct {
	Kind SignalKind
}

// ChangeNotifier delivers external change notifications that should trigger a
// session reconciliation. Subscribe returns a channel that is closed when the
// notifier is stopped; implementations must tolerate slow consumers by
// dropping rather than blocking.
type ChangeNotifier interface {
	Subscribe() <-chan Signal
	Close() error
}

// ChangePublisher broadcasts a change notification to other client processes.
// Publishing is best-effort: a failed publish never blocks the local mutation
// that triggered it.
type ChangePublisher interface {
	Publish(ctx context.Context, sig Signal) error
}
