// Package mocks provides mock implementations for testing the chemcat client.
//
// Generated mocks use go.uber.org/mock (gomock); hand-written fakes live in
// the auth and viewer subpackages where richer behavior is needed than an
// expectation-based mock provides.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	mockStore := mockports.NewMockSnapshotStore(ctrl)
//	mockStore.EXPECT().Load(gomock.Any()).Return(nil, nil)
package mocks

// Generate mocks for the session persistence and publishing ports. These back
// failure-injection tests in the service package; the cooperative fakes in
// mocks/auth cover the common happy paths.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=ports -destination=ports/ports.go github.com/chemcat/chemcat-cli/internal/ports SnapshotStore,ChangePublisher
