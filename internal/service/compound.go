package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/chemcat/chemcat-cli/internal/domain/model"
)

// APIDoer issues authenticated JSON requests. SessionStore satisfies it, and
// tests substitute a stub.
type APIDoer interface {
	DoJSON(ctx context.Context, method, path string, body, out any, fallback string) error
}

// CompoundServiceOptions groups dependencies for CompoundService.
type CompoundServiceOptions struct {
	API APIDoer
}

// CompoundService exposes the catalog CRUD surface. All requests go through
// the session store's authenticated client, so mutations carry the CSRF
// header automatically.
type CompoundService struct {
	api APIDoer
}

// NewCompoundService constructs a CompoundService.
func NewCompoundService(opts CompoundServiceOptions) *CompoundService {
	if opts.API == nil {
		panic("compound service requires an API doer")
	}
	return &CompoundService{api: opts.API}
}

func listQuery(q string, limit, offset int) string {
	params := url.Values{}
	if q != "" {
		params.Set("q", q)
	}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	return params.Encode()
}

// ListPublic returns a page of the public catalog. No authentication needed,
// but the session cookie rides along when present.
func (s *CompoundService) ListPublic(ctx context.Context, opts model.CompoundListOptions) (*model.CompoundPage, error) {
	opts.Sanitize()
	var page model.CompoundPage
	path := "/api/compounds/public/?" + listQuery(opts.Q, opts.Limit, opts.Offset)
	if err := s.api.DoJSON(ctx, http.MethodGet, path, nil, &page, "Failed to load compounds"); err != nil {
		return nil, err
	}
	return &page, nil
}

// ListPrivate returns a page of the caller's own compounds.
func (s *CompoundService) ListPrivate(ctx context.Context, opts model.CompoundListOptions) (*model.CompoundPage, error) {
	opts.Sanitize()
	var page model.CompoundPage
	path := "/api/compounds/private/?" + listQuery(opts.Q, opts.Limit, opts.Offset)
	if err := s.api.DoJSON(ctx, http.MethodGet, path, nil, &page, "Failed to load private compounds"); err != nil {
		return nil, err
	}
	return &page, nil
}

// compoundEnvelope wraps single-compound responses.
type compoundEnvelope struct {
	Compound *model.Compound `json:"compound"`
}

// Get fetches one compound by ID.
func (s *CompoundService) Get(ctx context.Context, id int64) (*model.Compound, error) {
	var env compoundEnvelope
	path := fmt.Sprintf("/api/compounds/%d/", id)
	if err := s.api.DoJSON(ctx, http.MethodGet, path, nil, &env, fmt.Sprintf("Failed to load compound #%d", id)); err != nil {
		return nil, err
	}
	return env.Compound, nil
}

// compoundPayload is the mutation body. MolecularWeight is the parsed value
// from validation; nil means unknown.
type compoundPayload struct {
	Name            string   `json:"name"`
	Formula         string   `json:"formula"`
	SMILES          string   `json:"smiles"`
	MolecularWeight *float64 `json:"molecular_weight"`
	Description     string   `json:"description"`
	IsPublic        bool     `json:"is_public"`
}

func buildPayload(in *model.CompoundInput) (*compoundPayload, error) {
	weight, err := in.Validate()
	if err != nil {
		return nil, err
	}
	return &compoundPayload{
		Name:            in.Name,
		Formula:         in.Formula,
		SMILES:          in.SMILES,
		MolecularWeight: weight,
		Description:     in.Description,
		IsPublic:        in.IsPublic,
	}, nil
}

// Add creates a compound. Input is validated before any network call.
func (s *CompoundService) Add(ctx context.Context, in model.CompoundInput) (*model.Compound, error) {
	payload, err := buildPayload(&in)
	if err != nil {
		return nil, err
	}
	var env compoundEnvelope
	if err := s.api.DoJSON(ctx, http.MethodPost, "/api/compounds/add/", payload, &env, "Failed to create compound"); err != nil {
		return nil, err
	}
	return env.Compound, nil
}

// Update edits an existing compound. Input is validated before any network call.
func (s *CompoundService) Update(ctx context.Context, id int64, in model.CompoundInput) (*model.Compound, error) {
	payload, err := buildPayload(&in)
	if err != nil {
		return nil, err
	}
	var env compoundEnvelope
	path := fmt.Sprintf("/api/compounds/%d/update/", id)
	if err := s.api.DoJSON(ctx, http.MethodPost, path, payload, &env, "Failed to update compound"); err != nil {
		return nil, err
	}
	return env.Compound, nil
}

// Delete removes a compound.
func (s *CompoundService) Delete(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/api/compounds/%d/delete/", id)
	return s.api.DoJSON(ctx, http.MethodPost, path, nil, nil, "Failed to delete compound")
}
