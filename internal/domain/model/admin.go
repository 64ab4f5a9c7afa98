package model

// AdminUser is a user record as served by the administrator console endpoints.
type AdminUser struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
	FullName string `json:"full_name,omitempty"`
	IsAdmin  bool   `json:"is_admin"`
	IsActive bool   `json:"is_active"`
}

// AdminUserPage is one page of user results from the admin listing.
type AdminUserPage struct {
	Total   int         `json:"total"`
	Offset  int         `json:"offset"`
	Limit   int         `json:"limit"`
	Results []AdminUser `json:"results"`
}

// AdminListOptions controls paging and filtering for admin listings.
type AdminListOptions struct {
	Q      string
	Limit  int
	Offset int
}

// Sanitize clamps paging values. Admin tables page larger than the public
// catalog views.
func (o *AdminListOptions) Sanitize() {
	if o.Limit <= 0 {
		o.Limit = 50
	}
	if o.Limit > 200 {
		o.Limit = 200
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
}
