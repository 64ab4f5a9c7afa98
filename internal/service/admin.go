package service

import (
	"context"
	"fmt"
	"net/http"

	"github.com/chemcat/chemcat-cli/internal/domain/model"
)

// AdminServiceOptions groups dependencies for AdminService.
type AdminServiceOptions struct {
	API APIDoer
}

// AdminService exposes the administrator console surface: user and compound
// moderation. The backend enforces staff authorization per request; this
// client performs no authorization decisions of its own.
type AdminService struct {
	api APIDoer
}

// NewAdminService constructs an AdminService.
func NewAdminService(opts AdminServiceOptions) *AdminService {
	if opts.API == nil {
		panic("admin service requires an API doer")
	}
	return &AdminService{api: opts.API}
}

// ListUsers returns a page of all accounts.
func (s *AdminService) ListUsers(ctx context.Context, opts model.AdminListOptions) (*model.AdminUserPage, error) {
	opts.Sanitize()
	var page model.AdminUserPage
	path := "/api/admin/users/?" + listQuery(opts.Q, opts.Limit, opts.Offset)
	if err := s.api.DoJSON(ctx, http.MethodGet, path, nil, &page, "Failed to load users"); err != nil {
		return nil, err
	}
	return &page, nil
}

// SetAdmin grants or revokes the admin role for a user.
func (s *AdminService) SetAdmin(ctx context.Context, id int64, isAdmin bool) error {
	path := fmt.Sprintf("/api/admin/users/%d/set_admin/", id)
	body := map[string]bool{"is_admin": isAdmin}
	return s.api.DoJSON(ctx, http.MethodPost, path, body, nil, "Failed to update role")
}

// SetActive activates or deactivates a user account.
func (s *AdminService) SetActive(ctx context.Context, id int64, isActive bool) error {
	path := fmt.Sprintf("/api/admin/users/%d/set_active/", id)
	body := map[string]bool{"is_active": isActive}
	return s.api.DoJSON(ctx, http.MethodPost, path, body, nil, "Failed to update status")
}

// ListCompounds returns a page of every compound in the catalog, public or
// not.
func (s *AdminService) ListCompounds(ctx context.Context, opts model.AdminListOptions) (*model.CompoundPage, error) {
	opts.Sanitize()
	var page model.CompoundPage
	path := "/api/admin/compounds/?" + listQuery(opts.Q, opts.Limit, opts.Offset)
	if err := s.api.DoJSON(ctx, http.MethodGet, path, nil, &page, "Failed to load compounds"); err != nil {
		return nil, err
	}
	return &page, nil
}

// UpdateCompound edits any compound, regardless of owner.
func (s *AdminService) UpdateCompound(ctx context.Context, id int64, in model.CompoundInput) (*model.Compound, error) {
	payload, err := buildPayload(&in)
	if err != nil {
		return nil, err
	}
	var env compoundEnvelope
	path := fmt.Sprintf("/api/admin/compounds/%d/update/", id)
	if err := s.api.DoJSON(ctx, http.MethodPost, path, payload, &env, "Failed to update compound"); err != nil {
		return nil, err
	}
	return env.Compound, nil
}

// DeleteCompound removes any compound, regardless of owner.
func (s *AdminService) DeleteCompound(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/api/admin/compounds/%d/delete/", id)
	return s.api.DoJSON(ctx, http.MethodPost, path, nil, nil, "Failed to delete compound")
}
