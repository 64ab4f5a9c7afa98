package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"sync"
	"time"

	"github.com/chemcat/chemcat-cli/internal/api"
	domainauth "github.com/chemcat/chemcat-cli/internal/domain/auth"
	"github.com/chemcat/chemcat-cli/internal/observability/statsd"
	"github.com/chemcat/chemcat-cli/internal/ports"
)

const (
	whoAmIPath         = "/api/auth/me/"
	loginPath          = "/api/auth/login/"
	registerPath       = "/api/auth/register/"
	logoutPath         = "/api/auth/logout/"
	updateProfilePath  = "/api/auth/update-profile/"
	changePasswordPath = "/api/auth/change-password/"
)

// SessionStoreOptions groups dependencies for SessionStore.
type SessionStoreOptions struct {
	Client *api.Client
	// Snapshots persists the last known identity. Optional; nil disables
	// persistence.
	Snapshots ports.SnapshotStore
	// Publisher broadcasts snapshot changes to other client processes.
	// Optional.
	Publisher ports.ChangePublisher
	Logger    *slog.Logger
	Metrics   statsd.Sink
}

// SessionStore is the single source of truth for the current authenticated
// identity. It caches the last reconciled user, notifies subscribers on every
// state change, and mediates CSRF-protected requests through its API client.
//
// The cached user is optimistic UI state only: it is never trusted for
// authorization decisions, which belong to the backend's per-request check.
type SessionStore struct {
	client    *api.Client
	snapshots ports.SnapshotStore
	publisher ports.ChangePublisher
	logger    *slog.Logger
	metrics   statsd.Sink

	mu        sync.Mutex
	state     domainauth.State
	listeners map[int]func(domainauth.State)
	nextID    int
	// lastPersisted is the identity the snapshot was last written with. A
	// persist that lands on the same identity broadcasts nothing, so a
	// signal-triggered reconciliation that confirms the status quo cannot
	// re-trigger other processes (or, via a self-delivering channel, this
	// one).
	lastPersisted *domainauth.User
}

// NewSessionStore constructs a SessionStore seeded from the persisted
// snapshot. The snapshot may be stale or absent; the store starts in the
// loading state until the first reconciliation settles it.
func NewSessionStore(ctx context.Context, opts SessionStoreOptions) *SessionStore {
	if opts.Client == nil {
		panic("session store requires an API client")
	}
	s := &SessionStore{
		client:    opts.Client,
		snapshots: opts.Snapshots,
		publisher: opts.Publisher,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		state:     domainauth.State{Loading: true},
		listeners: make(map[int]func(domainauth.State)),
	}
	if s.snapshots != nil {
		user, err := s.snapshots.Load(ctx)
		if err != nil {
			s.log().WarnContext(ctx, "load identity snapshot failed", "error", err)
		} else {
			s.state.User = user
			s.lastPersisted = user
		}
	}
	return s
}

func (s *SessionStore) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

// State returns a copy of the current cached state. No side effects.
func (s *SessionStore) State() domainauth.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers a listener, invokes it synchronously once with the
// current state, and returns an idempotent unsubscribe function. A listener
// removed during a notification pass is not called again, but removal does
// not interrupt its in-progress invocation.
func (s *SessionStore) Subscribe(fn func(domainauth.State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	current := s.state
	s.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// notify invokes every registered listener with the current state. The
// listener set is snapshotted first, then each entry is re-checked so
// listeners removed mid-pass are skipped.
func (s *SessionStore) notify() {
	s.mu.Lock()
	state := s.state
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.mu.Lock()
		fn, ok := s.listeners[id]
		s.mu.Unlock()
		if ok {
			fn(state)
		}
	}
}

// Reconcile confirms the cached identity against the backend's session
// cookie. Transport failures, non-2xx statuses, and non-JSON bodies all
// degrade to logged-out; Reconcile never returns an error and is a no-op
// while a sign-out is in progress.
func (s *SessionStore) Reconcile(ctx context.Context) {
	s.reconcile(ctx, false)
}

func (s *SessionStore) reconcile(ctx context.Context, force bool) {
	s.mu.Lock()
	if s.state.IsLoggingOut && !force {
		s.mu.Unlock()
		return
	}
	wasLoading := s.state.Loading
	s.state.Loading = true
	s.mu.Unlock()
	// Avoid flicker storms: only announce the loading transition once.
	if !wasLoading {
		s.notify()
	}

	start := time.Now()
	result := s.whoAmI(ctx)
	s.timing("session.reconcile", time.Since(start), result.Authenticated)

	s.mu.Lock()
	if result.Authenticated {
		s.state.User = result.User
	} else {
		s.state.User = nil
	}
	s.state.Loading = false
	s.mu.Unlock()

	s.persist(ctx, result.User)
	s.notify()
}

// whoAmI performs the identity probe. Every failure mode reads as
// unauthenticated; only a 2xx JSON body can authenticate.
func (s *SessionStore) whoAmI(ctx context.Context) domainauth.WhoAmIResult {
	resp, err := s.client.Do(ctx, http.MethodGet, whoAmIPath, nil)
	if err != nil {
		s.log().DebugContext(ctx, "identity probe failed", "error", err)
		return domainauth.WhoAmIResult{}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domainauth.WhoAmIResult{}
	}
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		return domainauth.WhoAmIResult{}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domainauth.WhoAmIResult{}
	}
	return domainauth.DecodeWhoAmI(body)
}

// persist best-effort updates the snapshot and, when the identity actually
// changed, broadcasts it. A nil user clears the snapshot. The cross-tab
// storage event of the original design fires only on a changed stored value;
// the broadcast mirrors that, which keeps reconciliations that confirm the
// status quo silent.
func (s *SessionStore) persist(ctx context.Context, user *domainauth.User) {
	s.mu.Lock()
	changed := !user.Equal(s.lastPersisted)
	s.lastPersisted = user
	s.mu.Unlock()

	if s.snapshots != nil {
		var err error
		if user != nil {
			err = s.snapshots.Save(ctx, user)
		} else {
			err = s.snapshots.Clear(ctx)
		}
		if err != nil {
			s.log().WarnContext(ctx, "persist identity snapshot failed", "error", err)
		}
	}
	if changed && s.publisher != nil {
		if err := s.publisher.Publish(ctx, ports.Signal{Kind: ports.SignalSnapshot}); err != nil {
			s.log().DebugContext(ctx, "publish session signal failed", "error", err)
		}
	}
}

// signInResponse is the login/profile mutation envelope.
type signInResponse struct {
	Message string          `json:"message"`
	User    json.RawMessage `json:"user"`
}

// SignIn performs a CSRF-protected login. On success the returned user is
// stored and persisted immediately, without waiting for a follow-up
// reconciliation. On failure the backend's message is surfaced and state is
// left untouched.
func (s *SessionStore) SignIn(ctx context.Context, creds domainauth.Credentials) error {
	var resp signInResponse
	if err := s.client.DoJSONMessageFirst(ctx, http.MethodPost, loginPath, creds, &resp, "Login failed"); err != nil {
		return err
	}

	user := domainauth.NormalizeUser(resp.User)
	s.mu.Lock()
	s.state.User = user
	s.state.Loading = false
	s.mu.Unlock()

	s.persist(ctx, user)
	s.notify()
	return nil
}

// Register creates a new account. It does not sign the user in; the backend
// expects a follow-up login.
func (s *SessionStore) Register(ctx context.Context, reg domainauth.Registration) error {
	return s.client.DoJSONMessageFirst(ctx, http.MethodPost, registerPath, reg, nil, "Registration failed")
}

// SignOut optimistically clears the cached identity and snapshot, suppresses
// concurrent reconciliation for the duration, best-effort calls the backend
// logout endpoint, then runs one confirming reconciliation pass. The local
// state ends logged out regardless of backend availability.
func (s *SessionStore) SignOut(ctx context.Context) {
	s.mu.Lock()
	s.state.User = nil
	s.state.Loading = false
	s.state.IsLoggingOut = true
	s.mu.Unlock()

	s.persist(ctx, nil)
	s.notify()

	if resp, err := s.client.Do(ctx, http.MethodPost, logoutPath, nil); err != nil {
		s.log().DebugContext(ctx, "backend logout failed", "error", err)
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}

	s.reconcile(ctx, true)

	s.mu.Lock()
	s.state.IsLoggingOut = false
	s.mu.Unlock()
	s.notify()
}

// UpdateProfile mutates the profile. When the backend returns the updated
// user it is adopted directly; otherwise a reconciliation pass fetches it.
func (s *SessionStore) UpdateProfile(ctx context.Context, upd domainauth.ProfileUpdate) error {
	var resp signInResponse
	if err := s.client.DoJSON(ctx, http.MethodPost, updateProfilePath, upd, &resp, "Update failed"); err != nil {
		return err
	}

	if len(resp.User) > 0 && string(resp.User) != "null" {
		user := domainauth.NormalizeUser(resp.User)
		s.mu.Lock()
		s.state.User = user
		s.state.Loading = false
		s.mu.Unlock()
		s.persist(ctx, user)
		s.notify()
		return nil
	}

	s.Reconcile(ctx)
	return nil
}

// ChangePassword mutates the account password. Pass-through: no state change.
func (s *SessionStore) ChangePassword(ctx context.Context, pc domainauth.PasswordChange) error {
	return s.client.DoJSON(ctx, http.MethodPost, changePasswordPath, pc, nil, "Password update failed")
}

// Do issues an authenticated request through the store's API client. Session
// cookies are always attached; mutating methods carry the CSRF header.
func (s *SessionStore) Do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	return s.client.Do(ctx, method, path, body)
}

// DoJSON issues an authenticated request and decodes the JSON response.
func (s *SessionStore) DoJSON(ctx context.Context, method, path string, body, out any, fallback string) error {
	return s.client.DoJSON(ctx, method, path, body, out, fallback)
}

// AttachAutoRefresh consumes refresh signals (focus, visibility, external
// snapshot change) and runs a reconciliation per signal. The returned detach
// function stops consumption; it is idempotent and safe during teardown.
func (s *SessionStore) AttachAutoRefresh(notifier ports.ChangeNotifier) (detach func()) {
	stop := make(chan struct{})
	signals := notifier.Subscribe()

	go func() {
		for {
			select {
			case <-stop:
				return
			case sig, ok := <-signals:
				if !ok {
					return
				}
				s.log().Debug("refresh signal", "kind", sig.Kind)
				s.Reconcile(context.Background())
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(stop) })
	}
}

func (s *SessionStore) timing(name string, d time.Duration, authenticated bool) {
	if s.metrics == nil {
		return
	}
	tags := map[string]string{"authenticated": "false"}
	if authenticated {
		tags["authenticated"] = "true"
	}
	s.metrics.Timing(name, d, tags)
}
