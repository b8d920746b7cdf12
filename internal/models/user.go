package models

import "time"

// User is the authentication principal. Teacher and Student profiles link to it one-to-one.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	FirstName    string     `db:"first_name" json:"first_name"`
	IsStaff      bool       `db:"is_staff" json:"is_staff"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// Page size bounds for listings.
const (
	DefaultPageSize = 25
	MaxPageSize     = 100
)

// ListOptions carries the paging and ordering knobs shared by every listing.
type ListOptions struct {
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Normalized clamps Page to at least 1 and PageSize into [1, MaxPageSize].
func (o ListOptions) Normalized() ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.PageSize > MaxPageSize {
		o.PageSize = MaxPageSize
	}
	return o
}

// Pagination builds the response metadata for a page of total rows.
func (o ListOptions) Pagination(total int) *Pagination {
	n := o.Normalized()
	return &Pagination{Page: n.Page, PageSize: n.PageSize, TotalCount: total}
}
