package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/chemcat/chemcat-cli/internal/domain/auth"
	"github.com/chemcat/chemcat-cli/internal/domain/model"
)

const backendCSRFCookie = "csrftoken"

// Backend is an in-memory stand-in for the catalog API used by client tests.
// It issues the csrftoken cookie, enforces the X-CSRFToken header on mutating
// requests, and keeps a small compound table.
type Backend struct {
	Server *httptest.Server

	// Credentials accepted by the login endpoint.
	Email    string
	Password string

	mu         sync.Mutex
	loggedIn   bool
	user       auth.User
	compounds  map[int64]model.Compound
	nextID     int64
	csrfHits   int
	whoAmIHits int
	loginHits  int
	logoutHits int

	// WhoAmIStatus, when non-zero, forces the status of /api/auth/me/.
	WhoAmIStatus int
	// WhoAmIBody, when set, is returned verbatim from /api/auth/me/.
	WhoAmIBody string
	// WhoAmIContentType, when set, overrides the whoami response content type.
	WhoAmIContentType string
}

// NewBackend starts a fake catalog backend with a single known account.
func NewBackend() *Backend {
	b := &Backend{
		Email:    "ada@example.com",
		Password: "s3cret",
		user: auth.User{
			ID:       Int64Ptr(7),
			Email:    StringPtr("ada@example.com"),
			Username: StringPtr("ada"),
			FullName: StringPtr("Ada Lovelace"),
		},
		compounds: make(map[int64]model.Compound),
		nextID:    1,
	}
	role := auth.RoleUser
	b.user.Role = &role

	mux := http.NewServeMux()
	mux.HandleFunc("/api/csrf/", b.handleCSRF)
	mux.HandleFunc("/api/auth/me/", b.handleWhoAmI)
	mux.HandleFunc("/api/auth/login/", b.handleLogin)
	mux.HandleFunc("/api/auth/register/", b.handleRegister)
	mux.HandleFunc("/api/auth/logout/", b.handleLogout)
	mux.HandleFunc("/api/auth/update-profile/", b.handleUpdateProfile)
	mux.HandleFunc("/api/auth/change-password/", b.handleChangePassword)
	mux.HandleFunc("/api/compounds/public/", b.handleList)
	mux.HandleFunc("/api/compounds/private/", b.requireAuth(b.handleList))
	mux.HandleFunc("/api/compounds/add/", b.requireAuth(b.handleAdd))
	mux.HandleFunc("/api/compounds/", b.handleCompoundByID)

	b.Server = httptest.NewServer(mux)
	return b
}

// Close shuts down the underlying test server.
func (b *Backend) Close() { b.Server.Close() }

// URL returns the backend base URL.
func (b *Backend) URL() string { return b.Server.URL }

// CSRFHits reports how many times /api/csrf/ was requested.
func (b *Backend) CSRFHits() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.csrfHits
}

// WhoAmIHits reports how many times /api/auth/me/ was requested.
func (b *Backend) WhoAmIHits() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.whoAmIHits
}

// LoginHits reports how many times the login endpoint was requested.
func (b *Backend) LoginHits() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loginHits
}

// LogoutHits reports how many times the logout endpoint was requested.
func (b *Backend) LogoutHits() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.logoutHits
}

// LoggedIn reports whether the fake session is authenticated.
func (b *Backend) LoggedIn() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loggedIn
}

// SetLoggedIn forces the session state, bypassing the login endpoint.
func (b *Backend) SetLoggedIn(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loggedIn = v
}

// SeedCompound inserts a compound directly and returns its assigned ID.
func (b *Backend) SeedCompound(c model.Compound) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c.ID == 0 {
		c.ID = b.nextID
		b.nextID++
	} else if c.ID >= b.nextID {
		b.nextID = c.ID + 1
	}
	b.compounds[c.ID] = c
	return c.ID
}

// Compound returns a stored compound by ID.
func (b *Backend) Compound(id int64) (model.Compound, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.compounds[id]
	return c, ok
}

func (b *Backend) handleCSRF(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.csrfHits++
	token := fmt.Sprintf("tok-%d", b.csrfHits)
	b.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: backendCSRFCookie, Value: token, Path: "/"})
	writeJSON(w, http.StatusOK, map[string]string{"detail": "CSRF cookie set"})
}

func (b *Backend) handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.whoAmIHits++
	loggedIn := b.loggedIn
	user := b.user
	status := b.WhoAmIStatus
	body := b.WhoAmIBody
	contentType := b.WhoAmIContentType
	b.mu.Unlock()

	if body != "" || status != 0 || contentType != "" {
		if contentType == "" {
			contentType = "application/json"
		}
		if status == 0 {
			status = http.StatusOK
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
		return
	}

	if !loggedIn {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "user": user})
}

// checkCSRF verifies the double-submit token on mutating requests.
func (b *Backend) checkCSRF(w http.ResponseWriter, r *http.Request) bool {
	cookie, err := r.Cookie(backendCSRFCookie)
	if err != nil || cookie.Value == "" || r.Header.Get("X-CSRFToken") != cookie.Value {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "CSRF token missing or invalid"})
		return false
	}
	return true
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.loginHits++
	b.mu.Unlock()

	if !b.checkCSRF(w, r) {
		return
	}
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if creds.Email != b.Email || creds.Password != b.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		return
	}
	b.loggedIn = true
	writeJSON(w, http.StatusOK, map[string]any{"user": b.user})
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !b.checkCSRF(w, r) {
		return
	}
	var reg struct {
		FullName string `json:"full_name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Email = reg.Email
	b.Password = reg.Password
	b.user.Email = StringPtr(reg.Email)
	b.user.FullName = StringPtr(reg.FullName)
	b.loggedIn = true
	writeJSON(w, http.StatusCreated, map[string]any{"user": b.user})
}

func (b *Backend) handleLogout(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.logoutHits++
	b.mu.Unlock()

	if !b.checkCSRF(w, r) {
		return
	}
	b.mu.Lock()
	b.loggedIn = false
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"detail": "Logged out"})
}

func (b *Backend) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	if !b.checkCSRF(w, r) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.loggedIn {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Not authenticated"})
		return
	}
	var upd struct {
		FullName *string `json:"full_name"`
		Email    *string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	if upd.FullName != nil {
		b.user.FullName = upd.FullName
	}
	if upd.Email != nil {
		b.user.Email = upd.Email
		b.Email = *upd.Email
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": b.user})
}

func (b *Backend) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if !b.checkCSRF(w, r) {
		return
	}
	var chg struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&chg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.loggedIn {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Not authenticated"})
		return
	}
	if chg.CurrentPassword != b.Password {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Current password is incorrect"})
		return
	}
	b.Password = chg.NewPassword
	writeJSON(w, http.StatusOK, map[string]string{"detail": "Password updated"})
}

func (b *Backend) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		loggedIn := b.loggedIn
		b.mu.Unlock()
		if !loggedIn {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Not authenticated"})
			return
		}
		next(w, r)
	}
}

func (b *Backend) handleList(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	results := make([]model.Compound, 0, len(b.compounds))
	for _, c := range b.compounds {
		results = append(results, c)
	}
	writeJSON(w, http.StatusOK, model.CompoundPage{
		Total:   len(results),
		Limit:   20,
		Results: results,
	})
}

func (b *Backend) handleAdd(w http.ResponseWriter, r *http.Request) {
	if !b.checkCSRF(w, r) {
		return
	}
	var c model.Compound
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	c.ID = b.nextID
	b.nextID++
	b.compounds[c.ID] = c
	writeJSON(w, http.StatusCreated, map[string]any{"compound": c})
}

// handleCompoundByID serves /api/compounds/{id}/ plus the update and delete verbs.
func (b *Backend) handleCompoundByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/compounds/")
	rest = strings.TrimSuffix(rest, "/")
	parts := strings.Split(rest, "/")
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Compound not found"})
		return
	}

	b.mu.Lock()
	c, ok := b.compounds[id]
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Compound not found"})
		return
	}

	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}
	switch action {
	case "":
		writeJSON(w, http.StatusOK, map[string]any{"compound": c})
	case "update":
		if !b.checkCSRF(w, r) {
			return
		}
		var upd model.Compound
		if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
			return
		}
		upd.ID = id
		b.mu.Lock()
		b.compounds[id] = upd
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"compound": upd})
	case "delete":
		if !b.checkCSRF(w, r) {
			return
		}
		b.mu.Lock()
		delete(b.compounds, id)
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]string{"detail": "Deleted"})
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Unknown action"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
