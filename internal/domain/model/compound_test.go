package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/chemcat/chemcat-cli/internal/errors"
)

func TestCompoundInputValidate(t *testing.T) {
	in := CompoundInput{
		Name:            "  Caffeine  ",
		Formula:         " C8H10N4O2 ",
		MolecularWeight: "194.19",
	}

	weight, err := in.Validate()

	require.NoError(t, err)
	require.NotNil(t, weight)
	assert.InDelta(t, 194.19, *weight, 0.001)
	assert.Equal(t, "Caffeine", in.Name)
	assert.Equal(t, "C8H10N4O2", in.Formula)
}

func TestCompoundInputValidateNameAtLimit(t *testing.T) {
	// The backend caps name at 100 characters; the boundary value passes.
	in := CompoundInput{Name: strings.Repeat("x", 100), Formula: "H2O"}

	_, err := in.Validate()

	require.NoError(t, err)
}

func TestCompoundInputValidateOptionalWeight(t *testing.T) {
	in := CompoundInput{Name: "Water", Formula: "H2O"}

	weight, err := in.Validate()

	require.NoError(t, err)
	assert.Nil(t, weight)
}

func TestCompoundInputValidateRejections(t *testing.T) {
	tests := []struct {
		name  string
		in    CompoundInput
		field string
	}{
		{
			name:  "missing name",
			in:    CompoundInput{Formula: "H2O"},
			field: "name",
		},
		{
			name:  "whitespace name",
			in:    CompoundInput{Name: "   ", Formula: "H2O"},
			field: "name",
		},
		{
			name:  "name too long",
			in:    CompoundInput{Name: strings.Repeat("x", 101), Formula: "H2O"},
			field: "name",
		},
		{
			name:  "missing formula",
			in:    CompoundInput{Name: "Water"},
			field: "formula",
		},
		{
			name:  "formula too long",
			in:    CompoundInput{Name: "Water", Formula: strings.Repeat("C", 101)},
			field: "formula",
		},
		{
			name:  "non-numeric weight",
			in:    CompoundInput{Name: "Water", Formula: "H2O", MolecularWeight: "heavy"},
			field: "molecular_weight",
		},
		{
			name:  "negative weight",
			in:    CompoundInput{Name: "Water", Formula: "H2O", MolecularWeight: "-1"},
			field: "molecular_weight",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.in.Validate()
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Equal(t, tt.field, apperrors.GetField(err))
		})
	}
}

func TestCompoundListOptionsSanitize(t *testing.T) {
	opts := CompoundListOptions{}
	opts.Sanitize()
	assert.Equal(t, 20, opts.Limit)
	assert.Equal(t, 0, opts.Offset)

	opts = CompoundListOptions{Limit: 10000, Offset: -5}
	opts.Sanitize()
	assert.Equal(t, 100, opts.Limit)
	assert.Equal(t, 0, opts.Offset)
}

func TestAdminListOptionsSanitize(t *testing.T) {
	opts := AdminListOptions{}
	opts.Sanitize()
	assert.Equal(t, 50, opts.Limit)

	opts = AdminListOptions{Limit: 1000}
	opts.Sanitize()
	assert.Equal(t, 200, opts.Limit)
}
