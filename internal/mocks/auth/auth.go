package auth

// Package auth contains simple hand-written test doubles for session ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"sync"

	domainauth "github.com/chemcat/chemcat-cli/internal/domain/auth"
	"github.com/chemcat/chemcat-cli/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.SnapshotStore   = (*MemorySnapshotStore)(nil)
	_ ports.ChangeNotifier  = (*ManualNotifier)(nil)
	_ ports.ChangePublisher = (*RecordingPublisher)(nil)
)

// MemorySnapshotStore is an in-memory SnapshotStore for tests.
type MemorySnapshotStore struct {
	mu   sync.Mutex
	user *domainauth.User

	// Optional error injection.
	LoadErr  error
	SaveErr  error
	ClearErr error
}

// NewMemorySnapshotStore creates an empty snapshot store.
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{}
}

func (m *MemorySnapshotStore) Load(context.Context) (*domainauth.User, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil, nil
	}
	copied := *m.user
	return &copied, nil
}

func (m *MemorySnapshotStore) Save(_ context.Context, user *domainauth.User) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if user == nil {
		m.user = nil
		return nil
	}
	copied := *user
	m.user = &copied
	return nil
}

func (m *MemorySnapshotStore) Clear(context.Context) error {
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = nil
	return nil
}

// Stored returns the current snapshot, or nil.
func (m *MemorySnapshotStore) Stored() *domainauth.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user
}

// ManualNotifier is a ChangeNotifier driven explicitly from tests.
type ManualNotifier struct {
	ch        chan ports.Signal
	closeOnce sync.Once
}

// NewManualNotifier creates a notifier with a small buffer.
func NewManualNotifier() *ManualNotifier {
	return &ManualNotifier{ch: make(chan ports.Signal, 8)}
}

func (n *ManualNotifier) Subscribe() <-chan ports.Signal { return n.ch }

// Fire delivers one signal.
func (n *ManualNotifier) Fire(kind ports.SignalKind) {
	n.ch <- ports.Signal{Kind: kind}
}

func (n *ManualNotifier) Close() error {
	n.closeOnce.Do(func() { close(n.ch) })
	return nil
}

// RecordingPublisher records published signals.
type RecordingPublisher struct {
	mu      sync.Mutex
	signals []ports.Signal

	PublishErr error
}

func (p *RecordingPublisher) Publish(_ context.Context, sig ports.Signal) error {
	if p.PublishErr != nil {
		return p.PublishErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signals = append(p.signals, sig)
	return nil
}

// Published returns a copy of recorded signals.
func (p *RecordingPublisher) Published() []ports.Signal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ports.Signal(nil), p.signals...)
}
