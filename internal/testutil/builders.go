package testutil

import (
	"github.com/chemcat/chemcat-cli/internal/domain/auth"
	"github.com/chemcat/chemcat-cli/internal/domain/model"
)

// CompoundBuilder provides a fluent interface for building Compound fixtures.
type CompoundBuilder struct {
	c model.Compound
}

// NewCompound creates a CompoundBuilder with sensible defaults.
func NewCompound() *CompoundBuilder {
	return &CompoundBuilder{
		c: model.Compound{
			Name:            "Caffeine",
			Formula:         "C8H10N4O2",
			MolecularWeight: Float64Ptr(194.19),
			IsPublic:        true,
		},
	}
}

// WithID sets the compound ID.
func (b *CompoundBuilder) WithID(id int64) *CompoundBuilder {
	b.c.ID = id
	return b
}

// WithName sets the compound name.
func (b *CompoundBuilder) WithName(name string) *CompoundBuilder {
	b.c.Name = name
	return b
}

// WithFormula sets the molecular formula.
func (b *CompoundBuilder) WithFormula(formula string) *CompoundBuilder {
	b.c.Formula = formula
	return b
}

// WithWeight sets the molecular weight.
func (b *CompoundBuilder) WithWeight(w float64) *CompoundBuilder {
	b.c.MolecularWeight = Float64Ptr(w)
	return b
}

// WithStructureURL sets the structure file URL.
func (b *CompoundBuilder) WithStructureURL(url string) *CompoundBuilder {
	b.c.StructureFileURL = url
	return b
}

// Private marks the compound as non-public.
func (b *CompoundBuilder) Private() *CompoundBuilder {
	b.c.IsPublic = false
	return b
}

// Build returns the constructed compound.
func (b *CompoundBuilder) Build() model.Compound {
	return b.c
}

// UserBuilder provides a fluent interface for building User fixtures.
type UserBuilder struct {
	u auth.User
}

// NewUser creates a UserBuilder with sensible defaults.
func NewUser() *UserBuilder {
	role := auth.RoleUser
	return &UserBuilder{
		u: auth.User{
			ID:       Int64Ptr(1),
			Email:    StringPtr("user@example.com"),
			Username: StringPtr("user"),
			Role:     &role,
		},
	}
}

// WithID sets the user ID.
func (b *UserBuilder) WithID(id int64) *UserBuilder {
	b.u.ID = Int64Ptr(id)
	return b
}

// WithEmail sets the email address.
func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.u.Email = StringPtr(email)
	return b
}

// WithUsername sets the username.
func (b *UserBuilder) WithUsername(name string) *UserBuilder {
	b.u.Username = StringPtr(name)
	return b
}

// Admin gives the user the admin role and staff flag.
func (b *UserBuilder) Admin() *UserBuilder {
	role := auth.RoleAdmin
	b.u.Role = &role
	b.u.IsStaff = true
	return b
}

// BuildPtr returns a pointer to the constructed user.
func (b *UserBuilder) BuildPtr() *auth.User {
	u := b.u
	return &u
}

// Build returns the constructed user.
func (b *UserBuilder) Build() auth.User {
	return b.u
}
