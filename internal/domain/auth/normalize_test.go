package auth

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeWhoAmINestedUserShape(t *testing.T) {
	body := []byte(`{"authenticated": true, "user": {"id": 7, "email": "ada@example.com", "username": "ada", "role": "admin", "is_staff": true}}`)

	result := DecodeWhoAmI(body)

	require.True(t, result.Authenticated)
	require.NotNil(t, result.User)
	require.NotNil(t, result.User.ID)
	assert.Equal(t, int64(7), *result.User.ID)
	assert.Equal(t, "ada@example.com", *result.User.Email)
	assert.Equal(t, RoleAdmin, *result.User.Role)
	assert.True(t, result.User.IsStaff)
}

func TestDecodeWhoAmIIsAuthenticatedAlias(t *testing.T) {
	body := []byte(`{"is_authenticated": true, "user": {"id": 3, "email": "u@example.com"}}`)

	result := DecodeWhoAmI(body)

	require.True(t, result.Authenticated)
	require.NotNil(t, result.User)
	assert.Equal(t, int64(3), *result.User.ID)
}

func TestDecodeWhoAmIRootUserShape(t *testing.T) {
	// Some backend versions answer with the user fields at the root and no
	// authenticated flag at all.
	body := []byte(`{"id": 12, "email": "root@example.com", "full_name": "Root Shape"}`)

	result := DecodeWhoAmI(body)

	require.True(t, result.Authenticated)
	require.NotNil(t, result.User)
	assert.Equal(t, int64(12), *result.User.ID)
	assert.Equal(t, "Root Shape", *result.User.FullName)
}

func TestDecodeWhoAmIRootStaffFlagApplies(t *testing.T) {
	body := []byte(`{"authenticated": true, "is_staff": true, "user": {"id": 1, "email": "s@example.com"}}`)

	result := DecodeWhoAmI(body)

	require.True(t, result.Authenticated)
	require.NotNil(t, result.User)
	assert.True(t, result.User.IsStaff)
}

func TestDecodeWhoAmIUserStaffFlagWinsOverRoot(t *testing.T) {
	body := []byte(`{"authenticated": true, "is_staff": true, "user": {"id": 1, "is_staff": false}}`)

	result := DecodeWhoAmI(body)

	require.True(t, result.Authenticated)
	require.NotNil(t, result.User)
	assert.False(t, result.User.IsStaff)
}

func TestDecodeWhoAmIUnauthenticated(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"explicit false", `{"authenticated": false}`},
		{"explicit false with user", `{"authenticated": false, "user": {"id": 1}}`},
		{"empty object", `{}`},
		{"null user only", `{"user": null}`},
		{"malformed json", `{"authenticated": tru`},
		{"array body", `[1, 2, 3]`},
		{"empty body", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DecodeWhoAmI([]byte(tt.body))
			assert.False(t, result.Authenticated)
			assert.Nil(t, result.User)
		})
	}
}

func TestNormalizeUser(t *testing.T) {
	user := NormalizeUser(json.RawMessage(`{"id": 9, "email": "n@example.com", "role": "user"}`))

	require.NotNil(t, user)
	assert.Equal(t, int64(9), *user.ID)
	assert.Equal(t, "n@example.com", *user.Email)
	assert.Equal(t, RoleUser, *user.Role)
	assert.Nil(t, user.FullName)
}

func TestNormalizeUserTolerantOfGarbage(t *testing.T) {
	// Callers have already decided the session is authenticated, so even an
	// unusable payload yields a zero user rather than nil.
	user := NormalizeUser(json.RawMessage(`"not an object"`))
	require.NotNil(t, user)
	assert.Nil(t, user.ID)

	user = NormalizeUser(nil)
	require.NotNil(t, user)
	assert.Nil(t, user.Email)
}

func TestUserEqual(t *testing.T) {
	ada := func() *User {
		return NormalizeUser(json.RawMessage(`{"id": 1, "email": "ada@example.com", "role": "user"}`))
	}

	var nilUser *User
	assert.True(t, nilUser.Equal(nil))
	assert.False(t, nilUser.Equal(ada()))
	assert.False(t, ada().Equal(nil))

	assert.True(t, ada().Equal(ada()))

	other := ada()
	*other.Email = "grace@example.com"
	assert.False(t, ada().Equal(other))

	// A set field against an unset one differs even when zero-valued.
	partial := ada()
	partial.FullName = new(string)
	assert.False(t, ada().Equal(partial))
}

func TestStateAuthenticated(t *testing.T) {
	var state State
	assert.False(t, state.Authenticated())

	state.User = &User{}
	assert.True(t, state.Authenticated())
}
