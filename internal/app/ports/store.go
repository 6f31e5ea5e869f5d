// Package ports defines storage contracts used by the route and service layers.
package ports

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// AppStore defines storage operations used by route/application layer.
// It is intentionally backend-agnostic: the sqlite adapter implements it
// today, a Postgres adapter can implement it later.
type AppStore interface {
	CreateOrganization(ctx context.Context, org Organization) error
	GetOrganizationByID(ctx context.Context, id string) (Organization, error)

	UpsertUser(ctx context.Context, user User) error
	GetUserByID(ctx context.Context, id string) (User, error)

	UpsertMembership(ctx context.Context, m Membership) error
	DeleteMembership(ctx context.Context, organizationID, userID string) error
	GetMembership(ctx context.Context, organizationID, userID string) (Membership, error)
	ListMembershipsByUser(ctx context.Context, userID string) ([]Membership, error)
	ListMembers(ctx context.Context, organizationID string) ([]Member, error)
	CountMembersWithRole(ctx context.Context, organizationID, role string) (int64, error)

	CreatePost(ctx context.Context, p Post) error
	GetPostByID(ctx context.Context, organizationID, id string) (Post, error)
	ListPosts(ctx context.Context, organizationID string, limit, offset int) ([]Post, error)
	UpdatePost(ctx context.Context, p Post) error
	DeletePost(ctx context.Context, organizationID, id string) error

	CreateComment(ctx context.Context, c Comment) error
	GetCommentByID(ctx context.Context, organizationID, id string) (Comment, error)
	ListCommentsByPost(ctx context.Context, organizationID, postID string) ([]Comment, error)
	DeleteComment(ctx context.Context, organizationID, id string) error

	CreateForm(ctx context.Context, f Form) error
	GetFormByID(ctx context.Context, organizationID, id string) (Form, error)
	ListForms(ctx context.Context, organizationID string) ([]Form, error)
	UpdateForm(ctx context.Context, f Form) error
	DeleteForm(ctx context.Context, organizationID, id string) error

	CreateFormField(ctx context.Context, f FormField) error
	GetFormFieldByID(ctx context.Context, organizationID, id string) (FormField, error)
	ListFormFields(ctx context.Context, organizationID, formID string) ([]FormField, error)
	DeleteFormField(ctx context.Context, organizationID, id string) error
}

type Organization struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

type User struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
}

// Membership grants a user a role within one organization.
type Membership struct {
	OrganizationID string
	UserID         string
	Role           string
	CreatedAt      time.Time
}

// Member is a membership joined with the user's profile for listings.
type Member struct {
	OrganizationID string
	UserID         string
	Role           string
	Email          string
	Name           string
}

type Post struct {
	ID             string
	OrganizationID string
	AuthorID       string
	Title          string
	Body           string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Comment struct {
	ID             string
	OrganizationID string
	PostID         string
	AuthorID       string
	Body           string
	CreatedAt      time.Time
}

type Form struct {
	ID             string
	OrganizationID string
	Name           string
	Description    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type FormField struct {
	ID             string
	OrganizationID string
	FormID         string
	Label          string
	Kind           string
	Required       bool
	Position       int
}
