package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chemcat/chemcat-cli/internal/domain/model"
	apperrors "github.com/chemcat/chemcat-cli/internal/errors"
)

func TestNewAdminServicePanicsWithoutAPI(t *testing.T) {
	assert.Panics(t, func() {
		NewAdminService(AdminServiceOptions{})
	})
}

func TestAdminListUsers(t *testing.T) {
	doer := &stubDoer{response: `{"total": 2, "results": [{"id": 1, "email": "a@example.com"}, {"id": 2, "email": "b@example.com"}]}`}
	svc := NewAdminService(AdminServiceOptions{API: doer})

	page, err := svc.ListUsers(context.Background(), model.AdminListOptions{Q: "example"})

	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, doer.method)
	assert.Equal(t, "/api/admin/users/?limit=50&offset=0&q=example", doer.path)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Results, 2)
}

func TestAdminListUsersClampsLimit(t *testing.T) {
	doer := &stubDoer{response: `{"total": 0, "results": []}`}
	svc := NewAdminService(AdminServiceOptions{API: doer})

	_, err := svc.ListUsers(context.Background(), model.AdminListOptions{Limit: 1000})

	require.NoError(t, err)
	assert.Equal(t, "/api/admin/users/?limit=200&offset=0", doer.path)
}

func TestSetAdmin(t *testing.T) {
	doer := &stubDoer{}
	svc := NewAdminService(AdminServiceOptions{API: doer})

	require.NoError(t, svc.SetAdmin(context.Background(), 12, true))

	assert.Equal(t, http.MethodPost, doer.method)
	assert.Equal(t, "/api/admin/users/12/set_admin/", doer.path)
	assert.Equal(t, map[string]bool{"is_admin": true}, doer.body)
}

func TestSetActive(t *testing.T) {
	doer := &stubDoer{}
	svc := NewAdminService(AdminServiceOptions{API: doer})

	require.NoError(t, svc.SetActive(context.Background(), 12, false))

	assert.Equal(t, "/api/admin/users/12/set_active/", doer.path)
	assert.Equal(t, map[string]bool{"is_active": false}, doer.body)
}

func TestAdminListCompounds(t *testing.T) {
	doer := &stubDoer{response: `{"total": 1, "results": [{"id": 4, "name": "Toluene", "is_public": false}]}`}
	svc := NewAdminService(AdminServiceOptions{API: doer})

	page, err := svc.ListCompounds(context.Background(), model.AdminListOptions{})

	require.NoError(t, err)
	assert.Equal(t, "/api/admin/compounds/?limit=50&offset=0", doer.path)
	require.Len(t, page.Results, 1)
	assert.False(t, page.Results[0].IsPublic)
}

func TestAdminUpdateCompound(t *testing.T) {
	doer := &stubDoer{response: `{"compound": {"id": 4, "name": "Toluene"}}`}
	svc := NewAdminService(AdminServiceOptions{API: doer})

	compound, err := svc.UpdateCompound(context.Background(), 4, model.CompoundInput{Name: "Toluene", Formula: "C7H8"})

	require.NoError(t, err)
	assert.Equal(t, "/api/admin/compounds/4/update/", doer.path)
	require.NotNil(t, compound)
	assert.Equal(t, "Toluene", compound.Name)
}

func TestAdminUpdateCompoundValidatesFirst(t *testing.T) {
	doer := &stubDoer{}
	svc := NewAdminService(AdminServiceOptions{API: doer})

	_, err := svc.UpdateCompound(context.Background(), 4, model.CompoundInput{})

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, 0, doer.calls)
}

func TestAdminDeleteCompound(t *testing.T) {
	doer := &stubDoer{}
	svc := NewAdminService(AdminServiceOptions{API: doer})

	require.NoError(t, svc.DeleteCompound(context.Background(), 4))

	assert.Equal(t, http.MethodPost, doer.method)
	assert.Equal(t, "/api/admin/compounds/4/delete/", doer.path)
}

func TestAdminUnauthorizedPropagates(t *testing.T) {
	doer := &stubDoer{err: apperrors.Unauthorized("Admin access required")}
	svc := NewAdminService(AdminServiceOptions{API: doer})

	_, err := svc.ListUsers(context.Background(), model.AdminListOptions{})

	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))
}
