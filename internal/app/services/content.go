package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fieldline-io/fieldline/internal/app/ports"
	"github.com/fieldline-io/fieldline/internal/outbox"
)

// ContentService handles posts, comments, forms, and form fields within one
// organization. Every operation is scoped by the caller's organization id.
type ContentService struct {
	store  ports.AppStore
	events *outbox.Emitter
}

// NewContentService constructs the content service.
func NewContentService(store ports.AppStore, events *outbox.Emitter) *ContentService {
	return &ContentService{store: store, events: events}
}

func (s *ContentService) CreatePost(ctx context.Context, organizationID, authorID, title, body string) (ports.Post, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return ports.Post{}, errors.Join(ErrValidation, errors.New("title is required"))
	}

	now := time.Now().UTC()
	post := ports.Post{
		ID:             uuid.NewString(),
		OrganizationID: organizationID,
		AuthorID:       authorID,
		Title:          title,
		Body:           body,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreatePost(ctx, post); err != nil {
		return ports.Post{}, err
	}
	s.events.Emit(ctx, "post.created", map[string]string{
		"organization_id": organizationID,
		"post_id":         post.ID,
		"author_id":       authorID,
	})
	return post, nil
}

func (s *ContentService) GetPost(ctx context.Context, organizationID, id string) (ports.Post, error) {
	return s.store.GetPostByID(ctx, organizationID, id)
}

func (s *ContentService) ListPosts(ctx context.Context, organizationID string, limit, offset int) ([]ports.Post, error) {
	return s.store.ListPosts(ctx, organizationID, limit, offset)
}

func (s *ContentService) UpdatePost(ctx context.Context, organizationID, id, title, body string) (ports.Post, error) {
	post, err := s.store.GetPostByID(ctx, organizationID, id)
	if err != nil {
		return ports.Post{}, err
	}
	if title = strings.TrimSpace(title); title != "" {
		post.Title = title
	}
	if body != "" {
		post.Body = body
	}
	post.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdatePost(ctx, post); err != nil {
		return ports.Post{}, err
	}
	s.events.Emit(ctx, "post.updated", map[string]string{
		"organization_id": organizationID,
		"post_id":         post.ID,
	})
	return post, nil
}

func (s *ContentService) DeletePost(ctx context.Context, organizationID, id string) error {
	if err := s.store.DeletePost(ctx, organizationID, id); err != nil {
		return err
	}
	s.events.Emit(ctx, "post.deleted", map[string]string{
		"organization_id": organizationID,
		"post_id":         id,
	})
	return nil
}

func (s *ContentService) CreateComment(ctx context.Context, organizationID, postID, authorID, body string) (ports.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return ports.Comment{}, errors.Join(ErrValidation, errors.New("body is required"))
	}
	// The post must resolve within the caller's organization.
	if _, err := s.store.GetPostByID(ctx, organizationID, postID); err != nil {
		return ports.Comment{}, err
	}

	comment := ports.Comment{
		ID:             uuid.NewString(),
		OrganizationID: organizationID,
		PostID:         postID,
		AuthorID:       authorID,
		Body:           body,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return ports.Comment{}, err
	}
	s.events.Emit(ctx, "comment.created", map[string]string{
		"organization_id": organizationID,
		"post_id":         postID,
		"comment_id":      comment.ID,
	})
	return comment, nil
}

func (s *ContentService) ListComments(ctx context.Context, organizationID, postID string) ([]ports.Comment, error) {
	if _, err := s.store.GetPostByID(ctx, organizationID, postID); err != nil {
		return nil, err
	}
	return s.store.ListCommentsByPost(ctx, organizationID, postID)
}

func (s *ContentService) DeleteComment(ctx context.Context, organizationID, id string) error {
	if err := s.store.DeleteComment(ctx, organizationID, id); err != nil {
		return err
	}
	s.events.Emit(ctx, "comment.deleted", map[string]string{
		"organization_id": organizationID,
		"comment_id":      id,
	})
	return nil
}

func (s *ContentService) CreateForm(ctx context.Context, organizationID, name, description string) (ports.Form, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ports.Form{}, errors.Join(ErrValidation, errors.New("name is required"))
	}

	now := time.Now().UTC()
	form := ports.Form{
		ID:             uuid.NewString(),
		OrganizationID: organizationID,
		Name:           name,
		Description:    description,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateForm(ctx, form); err != nil {
		return ports.Form{}, err
	}
	s.events.Emit(ctx, "form.created", map[string]string{
		"organization_id": organizationID,
		"form_id":         form.ID,
	})
	return form, nil
}

func (s *ContentService) GetForm(ctx context.Context, organizationID, id string) (ports.Form, error) {
	return s.store.GetFormByID(ctx, organizationID, id)
}

func (s *ContentService) ListForms(ctx context.Context, organizationID string) ([]ports.Form, error) {
	return s.store.ListForms(ctx, organizationID)
}

func (s *ContentService) UpdateForm(ctx context.Context, organizationID, id, name, description string) (ports.Form, error) {
	form, err := s.store.GetFormByID(ctx, organizationID, id)
	if err != nil {
		return ports.Form{}, err
	}
	if name = strings.TrimSpace(name); name != "" {
		form.Name = name
	}
	if description != "" {
		form.Description = description
	}
	form.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateForm(ctx, form); err != nil {
		return ports.Form{}, err
	}
	s.events.Emit(ctx, "form.updated", map[string]string{
		"organization_id": organizationID,
		"form_id":         form.ID,
	})
	return form, nil
}

func (s *ContentService) DeleteForm(ctx context.Context, organizationID, id string) error {
	if err := s.store.DeleteForm(ctx, organizationID, id); err != nil {
		return err
	}
	s.events.Emit(ctx, "form.deleted", map[string]string{
		"organization_id": organizationID,
		"form_id":         id,
	})
	return nil
}

func (s *ContentService) CreateFormField(ctx context.Context, organizationID, formID, label, kind string, required bool, position int) (ports.FormField, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return ports.FormField{}, errors.Join(ErrValidation, errors.New("label is required"))
	}
	if kind = strings.TrimSpace(kind); kind == "" {
		kind = "text"
	}
	if _, err := s.store.GetFormByID(ctx, organizationID, formID); err != nil {
		return ports.FormField{}, err
	}

	field := ports.FormField{
		ID:             uuid.NewString(),
		OrganizationID: organizationID,
		FormID:         formID,
		Label:          label,
		Kind:           kind,
		Required:       required,
		Position:       position,
	}
	if err := s.store.CreateFormField(ctx, field); err != nil {
		return ports.FormField{}, err
	}
	s.events.Emit(ctx, "form_field.created", map[string]string{
		"organization_id": organizationID,
		"form_id":         formID,
		"field_id":        field.ID,
	})
	return field, nil
}

func (s *ContentService) ListFormFields(ctx context.Context, organizationID, formID string) ([]ports.FormField, error) {
	if _, err := s.store.GetFormByID(ctx, organizationID, formID); err != nil {
		return nil, err
	}
	return s.store.ListFormFields(ctx, organizationID, formID)
}

func (s *ContentService) DeleteFormField(ctx context.Context, organizationID, id string) error {
	if err := s.store.DeleteFormField(ctx, organizationID, id); err != nil {
		return err
	}
	s.events.Emit(ctx, "form_field.deleted", map[string]string{
		"organization_id": organizationID,
		"field_id":        id,
	})
	return nil
}
