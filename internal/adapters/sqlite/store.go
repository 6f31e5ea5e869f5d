// Package sqlite implements the application storage contracts on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/fieldline-io/fieldline/internal/app/ports"
	"github.com/fieldline-io/fieldline/internal/idempotency"
)

// Store implements ports.AppStore and idempotency.RecordStore.
type Store struct {
	db *sql.DB
}

// New builds a store over an open connection.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	switch serr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	default:
		return false
	}
}

func (s *Store) CreateOrganization(ctx context.Context, org ports.Organization) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO organizations (id, name, created_at) VALUES (?, ?, ?)`,
		org.ID, org.Name, org.CreatedAt)
	if err != nil {
		return fmt.Errorf("create organization: %w", err)
	}
	return nil
}

func (s *Store) GetOrganizationByID(ctx context.Context, id string) (ports.Organization, error) {
	var org ports.Organization
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM organizations WHERE id = ?`, id).
		Scan(&org.ID, &org.Name, &org.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.Organization{}, ports.ErrNotFound
	}
	if err != nil {
		return ports.Organization{}, fmt.Errorf("get organization: %w", err)
	}
	return org, nil
}

func (s *Store) UpsertUser(ctx context.Context, user ports.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET email = excluded.email, name = excluded.name`,
		user.ID, user.Email, user.Name, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (ports.User, error) {
	var user ports.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, created_at FROM users WHERE id = ?`, id).
		Scan(&user.ID, &user.Email, &user.Name, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.User{}, ports.ErrNotFound
	}
	if err != nil {
		return ports.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *Store) UpsertMembership(ctx context.Context, m ports.Membership) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memberships (organization_id, user_id, role, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (organization_id, user_id) DO UPDATE SET role = excluded.role`,
		m.OrganizationID, m.UserID, m.Role, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert membership: %w", err)
	}
	return nil
}

func (s *Store) DeleteMembership(ctx context.Context, organizationID, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM memberships WHERE organization_id = ? AND user_id = ?`,
		organizationID, userID)
	if err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	return requireAffected(res)
}

func (s *Store) GetMembership(ctx context.Context, organizationID, userID string) (ports.Membership, error) {
	var m ports.Membership
	err := s.db.QueryRowContext(ctx,
		`SELECT organization_id, user_id, role, created_at FROM memberships
		 WHERE organization_id = ? AND user_id = ?`, organizationID, userID).
		Scan(&m.OrganizationID, &m.UserID, &m.Role, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.Membership{}, ports.ErrNotFound
	}
	if err != nil {
		return ports.Membership{}, fmt.Errorf("get membership: %w", err)
	}
	return m, nil
}

func (s *Store) ListMembershipsByUser(ctx context.Context, userID string) ([]ports.Membership, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT organization_id, user_id, role, created_at FROM memberships
		 WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()

	var out []ports.Membership
	for rows.Next() {
		var m ports.Membership
		if err := rows.Scan(&m.OrganizationID, &m.UserID, &m.Role, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) ListMembers(ctx context.Context, organizationID string) ([]ports.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.organization_id, m.user_id, m.role, u.email, u.name
		 FROM memberships m JOIN users u ON u.id = m.user_id
		 WHERE m.organization_id = ? ORDER BY m.created_at`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []ports.Member
	for rows.Next() {
		var m ports.Member
		if err := rows.Scan(&m.OrganizationID, &m.UserID, &m.Role, &m.Email, &m.Name); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) CountMembersWithRole(ctx context.Context, organizationID, role string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memberships WHERE organization_id = ? AND role = ?`,
		organizationID, role).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return count, nil
}

func (s *Store) CreatePost(ctx context.Context, p ports.Post) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO posts (id, organization_id, author_id, title, body, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.OrganizationID, p.AuthorID, p.Title, p.Body, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

func (s *Store) GetPostByID(ctx context.Context, organizationID, id string) (ports.Post, error) {
	var p ports.Post
	err := s.db.QueryRowContext(ctx,
		`SELECT id, organization_id, author_id, title, body, created_at, updated_at
		 FROM posts WHERE organization_id = ? AND id = ?`, organizationID, id).
		Scan(&p.ID, &p.OrganizationID, &p.AuthorID, &p.Title, &p.Body, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.Post{}, ports.ErrNotFound
	}
	if err != nil {
		return ports.Post{}, fmt.Errorf("get post: %w", err)
	}
	return p, nil
}

func (s *Store) ListPosts(ctx context.Context, organizationID string, limit, offset int) ([]ports.Post, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, organization_id, author_id, title, body, created_at, updated_at
		 FROM posts WHERE organization_id = ?
		 ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, organizationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var out []ports.Post
	for rows.Next() {
		var p ports.Post
		if err := rows.Scan(&p.ID, &p.OrganizationID, &p.AuthorID, &p.Title, &p.Body, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpdatePost(ctx context.Context, p ports.Post) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE posts SET title = ?, body = ?, updated_at = ?
		 WHERE organization_id = ? AND id = ?`,
		p.Title, p.Body, p.UpdatedAt, p.OrganizationID, p.ID)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return requireAffected(res)
}

func (s *Store) DeletePost(ctx context.Context, organizationID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM posts WHERE organization_id = ? AND id = ?`, organizationID, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return requireAffected(res)
}

func (s *Store) CreateComment(ctx context.Context, c ports.Comment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO comments (id, organization_id, post_id, author_id, body, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.OrganizationID, c.PostID, c.AuthorID, c.Body, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

func (s *Store) GetCommentByID(ctx context.Context, organizationID, id string) (ports.Comment, error) {
	var c ports.Comment
	err := s.db.QueryRowContext(ctx,
		`SELECT id, organization_id, post_id, author_id, body, created_at
		 FROM comments WHERE organization_id = ? AND id = ?`, organizationID, id).
		Scan(&c.ID, &c.OrganizationID, &c.PostID, &c.AuthorID, &c.Body, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.Comment{}, ports.ErrNotFound
	}
	if err != nil {
		return ports.Comment{}, fmt.Errorf("get comment: %w", err)
	}
	return c, nil
}

func (s *Store) ListCommentsByPost(ctx context.Context, organizationID, postID string) ([]ports.Comment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, organization_id, post_id, author_id, body, created_at
		 FROM comments WHERE organization_id = ? AND post_id = ?
		 ORDER BY created_at, id`, organizationID, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var out []ports.Comment
	for rows.Next() {
		var c ports.Comment
		if err := rows.Scan(&c.ID, &c.OrganizationID, &c.PostID, &c.AuthorID, &c.Body, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) DeleteComment(ctx context.Context, organizationID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM comments WHERE organization_id = ? AND id = ?`, organizationID, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return requireAffected(res)
}

func (s *Store) CreateForm(ctx context.Context, f ports.Form) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO forms (id, organization_id, name, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		f.ID, f.OrganizationID, f.Name, f.Description, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create form: %w", err)
	}
	return nil
}

func (s *Store) GetFormByID(ctx context.Context, organizationID, id string) (ports.Form, error) {
	var f ports.Form
	err := s.db.QueryRowContext(ctx,
		`SELECT id, organization_id, name, description, created_at, updated_at
		 FROM forms WHERE organization_id = ? AND id = ?`, organizationID, id).
		Scan(&f.ID, &f.OrganizationID, &f.Name, &f.Description, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.Form{}, ports.ErrNotFound
	}
	if err != nil {
		return ports.Form{}, fmt.Errorf("get form: %w", err)
	}
	return f, nil
}

func (s *Store) ListForms(ctx context.Context, organizationID string) ([]ports.Form, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, organization_id, name, description, created_at, updated_at
		 FROM forms WHERE organization_id = ? ORDER BY created_at DESC, id`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list forms: %w", err)
	}
	defer rows.Close()

	var out []ports.Form
	for rows.Next() {
		var f ports.Form
		if err := rows.Scan(&f.ID, &f.OrganizationID, &f.Name, &f.Description, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan form: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) UpdateForm(ctx context.Context, f ports.Form) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE forms SET name = ?, description = ?, updated_at = ?
		 WHERE organization_id = ? AND id = ?`,
		f.Name, f.Description, f.UpdatedAt, f.OrganizationID, f.ID)
	if err != nil {
		return fmt.Errorf("update form: %w", err)
	}
	return requireAffected(res)
}

func (s *Store) DeleteForm(ctx context.Context, organizationID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM forms WHERE organization_id = ? AND id = ?`, organizationID, id)
	if err != nil {
		return fmt.Errorf("delete form: %w", err)
	}
	return requireAffected(res)
}

func (s *Store) CreateFormField(ctx context.Context, f ports.FormField) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO form_fields (id, organization_id, form_id, label, kind, required, position, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.OrganizationID, f.FormID, f.Label, f.Kind, f.Required, f.Position, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("create form field: %w", err)
	}
	return nil
}

func (s *Store) GetFormFieldByID(ctx context.Context, organizationID, id string) (ports.FormField, error) {
	var f ports.FormField
	err := s.db.QueryRowContext(ctx,
		`SELECT id, organization_id, form_id, label, kind, required, position
		 FROM form_fields WHERE organization_id = ? AND id = ?`, organizationID, id).
		Scan(&f.ID, &f.OrganizationID, &f.FormID, &f.Label, &f.Kind, &f.Required, &f.Position)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.FormField{}, ports.ErrNotFound
	}
	if err != nil {
		return ports.FormField{}, fmt.Errorf("get form field: %w", err)
	}
	return f, nil
}

func (s *Store) ListFormFields(ctx context.Context, organizationID, formID string) ([]ports.FormField, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, organization_id, form_id, label, kind, required, position
		 FROM form_fields WHERE organization_id = ? AND form_id = ?
		 ORDER BY position, id`, organizationID, formID)
	if err != nil {
		return nil, fmt.Errorf("list form fields: %w", err)
	}
	defer rows.Close()

	var out []ports.FormField
	for rows.Next() {
		var f ports.FormField
		if err := rows.Scan(&f.ID, &f.OrganizationID, &f.FormID, &f.Label, &f.Kind, &f.Required, &f.Position); err != nil {
			return nil, fmt.Errorf("scan form field: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) DeleteFormField(ctx context.Context, organizationID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM form_fields WHERE organization_id = ? AND id = ?`, organizationID, id)
	if err != nil {
		return fmt.Errorf("delete form field: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

var _ ports.AppStore = (*Store)(nil)
var _ idempotency.RecordStore = (*Store)(nil)
