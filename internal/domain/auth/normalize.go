package auth

import "encoding/json"

// rawUser mirrors the fields we accept from backend user payloads. Extra
// fields are dropped during decoding; absent fields stay nil/false.
type rawUser struct {
	ID       *int64  `json:"id"`
	Email    *string `json:"email"`
	Username *string `json:"username"`
	FullName *string `json:"full_name"`
	Role     *string `json:"role"`
	IsStaff  *bool   `json:"is_staff"`
}

// WhoAmIResponse is the strict boundary schema for the "who am I" endpoint.
// The backend has historically answered in several shapes: a top-level
// authenticated/is_authenticated flag with a nested user object, or the user
// fields at the root. Decode accepts all of them; everything downstream sees
// only the normalized Result.
type WhoAmIResponse struct {
	Authenticated   *bool           `json:"authenticated"`
	IsAuthenticated *bool           `json:"is_authenticated"`
	IsStaff         *bool           `json:"is_staff"`
	User            json.RawMessage `json:"user"`

	root rawUser
}

// WhoAmIResult is the normalized outcome of a reconciliation response.
type WhoAmIResult struct {
	Authenticated bool
	User          *User
}

// DecodeWhoAmI parses a who-am-I response body into a normalized result.
// Any JSON that cannot be decoded yields an unauthenticated result with a nil
// user rather than an error; only the backend's per-request check is
// authoritative, so failing open to logged-out is always safe here.
func DecodeWhoAmI(body []byte) WhoAmIResult {
	var resp WhoAmIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return WhoAmIResult{}
	}
	// The root object may itself be the user record.
	_ = json.Unmarshal(body, &resp.root)

	var raw *rawUser
	switch {
	case len(resp.User) > 0 && string(resp.User) != "null":
		var u rawUser
		if err := json.Unmarshal(resp.User, &u); err == nil {
			raw = &u
		}
	case looksLikeUser(resp.root):
		root := resp.root
		raw = &root
	}

	authenticated := false
	switch {
	case resp.Authenticated != nil:
		authenticated = *resp.Authenticated
	case resp.IsAuthenticated != nil:
		authenticated = *resp.IsAuthenticated
	default:
		authenticated = raw != nil && looksLikeUser(*raw)
	}

	if !authenticated {
		return WhoAmIResult{}
	}

	user := normalize(raw)
	// A top-level is_staff flag wins when the user record carries none.
	if raw != nil && raw.IsStaff == nil && resp.IsStaff != nil {
		user.IsStaff = *resp.IsStaff
	}
	return WhoAmIResult{Authenticated: true, User: user}
}

// NormalizeUser reduces an arbitrary backend user payload to the canonical
// User shape. A nil or undecodable payload yields a zero-valued User, not nil:
// callers have already decided the session is authenticated.
func NormalizeUser(payload json.RawMessage) *User {
	var raw rawUser
	if len(payload) > 0 {
		_ = json.Unmarshal(payload, &raw)
	}
	return normalize(&raw)
}

func normalize(raw *rawUser) *User {
	u := &User{}
	if raw == nil {
		return u
	}
	u.ID = raw.ID
	u.Email = raw.Email
	u.Username = raw.Username
	u.FullName = raw.FullName
	if raw.Role != nil {
		role := Role(*raw.Role)
		u.Role = &role
	}
	if raw.IsStaff != nil {
		u.IsStaff = *raw.IsStaff
	}
	return u
}

func looksLikeUser(r rawUser) bool {
	return r.ID != nil || r.Email != nil || r.Username != nil || r.FullName != nil
}
