package model

import (
	"strconv"
	"strings"
	"time"

	apperrors "github.com/chemcat/chemcat-cli/internal/errors"
)

const (
	maxCompoundNameLen    = 100
	maxCompoundFormulaLen = 100
)

// Owner identifies the account a compound belongs to.
type Owner struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Compound is a catalog record as served by the backend.
type Compound struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	Formula          string     `json:"formula"`
	SMILES           string     `json:"smiles,omitempty"`
	MolecularWeight  *float64   `json:"molecular_weight,omitempty"`
	Description      string     `json:"description,omitempty"`
	IsPublic         bool       `json:"is_public"`
	StructureFileURL string     `json:"structure_file_url,omitempty"`
	Owner            *Owner     `json:"owner,omitempty"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}

// CompoundInput carries the fields a user may set when creating or editing a
// compound. MolecularWeight stays textual until Validate parses it, so form
// input can round-trip unchanged.
type CompoundInput struct {
	Name            string `json:"name"`
	Formula         string `json:"formula"`
	SMILES          string `json:"smiles"`
	MolecularWeight string `json:"-"`
	Description     string `json:"description"`
	IsPublic        bool   `json:"is_public"`
}

// Validate checks required fields and numeric constraints before any network
// call. Violations are reported as validation errors, handled identically to
// backend rejections by callers.
func (in *CompoundInput) Validate() (*float64, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Formula = strings.TrimSpace(in.Formula)
	in.SMILES = strings.TrimSpace(in.SMILES)

	if in.Name == "" {
		return nil, apperrors.ValidationField("name", "Name is required")
	}
	if len(in.Name) > maxCompoundNameLen {
		return nil, apperrors.ValidationField("name", "Name is too long")
	}
	if in.Formula == "" {
		return nil, apperrors.ValidationField("formula", "Formula is required")
	}
	if len(in.Formula) > maxCompoundFormulaLen {
		return nil, apperrors.ValidationField("formula", "Formula is too long")
	}

	raw := strings.TrimSpace(in.MolecularWeight)
	if raw == "" {
		return nil, nil
	}
	weight, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperrors.ValidationField("molecular_weight", "Molecular weight must be a number")
	}
	if weight < 0 {
		return nil, apperrors.ValidationField("molecular_weight", "Molecular weight must not be negative")
	}
	return &weight, nil
}

// CompoundListOptions controls paging and filtering for compound listings.
// Q matches name/formula substrings server-side.
type CompoundListOptions struct {
	Q      string
	Limit  int
	Offset int
}

// Sanitize clamps paging values to the ranges the backend accepts.
func (o *CompoundListOptions) Sanitize() {
	if o.Limit <= 0 {
		o.Limit = 20
	}
	if o.Limit > 100 {
		o.Limit = 100
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
}

// CompoundPage is one page of compound results.
type CompoundPage struct {
	Total   int        `json:"total"`
	Offset  int        `json:"offset"`
	Limit   int        `json:"limit"`
	Results []Compound `json:"results"`
}
