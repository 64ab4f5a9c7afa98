package auth

// Package auth contains domain-level types for the client-side identity cache.
// It is pure and free of transport/adapter concerns.

// Role represents an application's authorization role as reported by the backend.
// Keep string form for easy persistence in snapshots.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User is the normalized authenticated principal. This is the only user shape
// subscribers and snapshot storage ever see; raw backend payloads are reduced
// to exactly these fields by Normalize.
type User struct {
	ID       *int64  `json:"id"`
	Email    *string `json:"email"`
	Username *string `json:"username"`
	FullName *string `json:"full_name"`
	Role     *Role   `json:"role"`
	IsStaff  bool    `json:"is_staff"`
}

// Equal reports whether two users carry the same identity, field by field.
// Two nil users are equal; nil against non-nil is not.
func (u *User) Equal(other *User) bool {
	if u == nil || other == nil {
		return u == other
	}
	return eqPtr(u.ID, other.ID) &&
		eqPtr(u.Email, other.Email) &&
		eqPtr(u.Username, other.Username) &&
		eqPtr(u.FullName, other.FullName) &&
		eqPtr(u.Role, other.Role) &&
		u.IsStaff == other.IsStaff
}

func eqPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// State is the client's cached belief about the current session.
// User is non-nil only when the most recent successful reconciliation (or
// sign-in) reported an authenticated session. A stale cached user may be shown
// optimistically while Loading is true, but is never authoritative.
type State struct {
	User         *User
	Loading      bool
	IsLoggingOut bool
}

// Authenticated reports whether the cached state believes a user is signed in.
func (s State) Authenticated() bool { return s.User != nil }

// Credentials carry a sign-in request.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration carries an account-creation request.
type Registration struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileUpdate carries a profile mutation.
type ProfileUpdate struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// PasswordChange carries a password mutation.
type PasswordChange struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}
