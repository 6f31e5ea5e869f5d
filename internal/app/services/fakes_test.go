package services

import (
	"context"
	"sync"

	"github.com/fieldline-io/fieldline/internal/app/ports"
)

type membershipKey struct{ org, user string }

// fakeStore is an in-memory ports.AppStore for service tests.
type fakeStore struct {
	mu          sync.Mutex
	orgs        map[string]ports.Organization
	users       map[string]ports.User
	memberships map[membershipKey]ports.Membership
	posts       map[string]ports.Post
	comments    map[string]ports.Comment
	forms       map[string]ports.Form
	fields      map[string]ports.FormField
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orgs:        map[string]ports.Organization{},
		users:       map[string]ports.User{},
		memberships: map[membershipKey]ports.Membership{},
		posts:       map[string]ports.Post{},
		comments:    map[string]ports.Comment{},
		forms:       map[string]ports.Form{},
		fields:      map[string]ports.FormField{},
	}
}

func (f *fakeStore) CreateOrganization(_ context.Context, org ports.Organization) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orgs[org.ID] = org
	return nil
}

func (f *fakeStore) GetOrganizationByID(_ context.Context, id string) (ports.Organization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	org, ok := f.orgs[id]
	if !ok {
		return ports.Organization{}, ports.ErrNotFound
	}
	return org, nil
}

func (f *fakeStore) UpsertUser(_ context.Context, user ports.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (ports.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return ports.User{}, ports.ErrNotFound
	}
	return user, nil
}

func (f *fakeStore) UpsertMembership(_ context.Context, m ports.Membership) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memberships[membershipKey{m.OrganizationID, m.UserID}] = m
	return nil
}

func (f *fakeStore) DeleteMembership(_ context.Context, organizationID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := membershipKey{organizationID, userID}
	if _, ok := f.memberships[key]; !ok {
		return ports.ErrNotFound
	}
	delete(f.memberships, key)
	return nil
}

func (f *fakeStore) GetMembership(_ context.Context, organizationID, userID string) (ports.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.memberships[membershipKey{organizationID, userID}]
	if !ok {
		return ports.Membership{}, ports.ErrNotFound
	}
	return m, nil
}

func (f *fakeStore) ListMembershipsByUser(_ context.Context, userID string) ([]ports.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ports.Membership
	for _, m := range f.memberships {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) ListMembers(_ context.Context, organizationID string) ([]ports.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ports.Member
	for _, m := range f.memberships {
		if m.OrganizationID == organizationID {
			user := f.users[m.UserID]
			out = append(out, ports.Member{
				OrganizationID: m.OrganizationID,
				UserID:         m.UserID,
				Role:           m.Role,
				Email:          user.Email,
				Name:           user.Name,
			})
		}
	}
	return out, nil
}

func (f *fakeStore) CountMembersWithRole(_ context.Context, organizationID, role string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, m := range f.memberships {
		if m.OrganizationID == organizationID && m.Role == role {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) CreatePost(_ context.Context, p ports.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts[p.ID] = p
	return nil
}

func (f *fakeStore) GetPostByID(_ context.Context, organizationID, id string) (ports.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok || p.OrganizationID != organizationID {
		return ports.Post{}, ports.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) ListPosts(_ context.Context, organizationID string, limit, offset int) ([]ports.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ports.Post
	for _, p := range f.posts {
		if p.OrganizationID == organizationID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdatePost(_ context.Context, p ports.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.posts[p.ID]
	if !ok || existing.OrganizationID != p.OrganizationID {
		return ports.ErrNotFound
	}
	f.posts[p.ID] = p
	return nil
}

func (f *fakeStore) DeletePost(_ context.Context, organizationID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok || p.OrganizationID != organizationID {
		return ports.ErrNotFound
	}
	delete(f.posts, id)
	return nil
}

func (f *fakeStore) CreateComment(_ context.Context, c ports.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.comments[c.ID] = c
	return nil
}

func (f *fakeStore) GetCommentByID(_ context.Context, organizationID, id string) (ports.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.comments[id]
	if !ok || c.OrganizationID != organizationID {
		return ports.Comment{}, ports.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) ListCommentsByPost(_ context.Context, organizationID, postID string) ([]ports.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ports.Comment
	for _, c := range f.comments {
		if c.OrganizationID == organizationID && c.PostID == postID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteComment(_ context.Context, organizationID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.comments[id]
	if !ok || c.OrganizationID != organizationID {
		return ports.ErrNotFound
	}
	delete(f.comments, id)
	return nil
}

func (f *fakeStore) CreateForm(_ context.Context, form ports.Form) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forms[form.ID] = form
	return nil
}

func (f *fakeStore) GetFormByID(_ context.Context, organizationID, id string) (ports.Form, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	form, ok := f.forms[id]
	if !ok || form.OrganizationID != organizationID {
		return ports.Form{}, ports.ErrNotFound
	}
	return form, nil
}

func (f *fakeStore) ListForms(_ context.Context, organizationID string) ([]ports.Form, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ports.Form
	for _, form := range f.forms {
		if form.OrganizationID == organizationID {
			out = append(out, form)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateForm(_ context.Context, form ports.Form) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.forms[form.ID]
	if !ok || existing.OrganizationID != form.OrganizationID {
		return ports.ErrNotFound
	}
	f.forms[form.ID] = form
	return nil
}

func (f *fakeStore) DeleteForm(_ context.Context, organizationID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	form, ok := f.forms[id]
	if !ok || form.OrganizationID != organizationID {
		return ports.ErrNotFound
	}
	delete(f.forms, id)
	return nil
}

func (f *fakeStore) CreateFormField(_ context.Context, field ports.FormField) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields[field.ID] = field
	return nil
}

func (f *fakeStore) GetFormFieldByID(_ context.Context, organizationID, id string) (ports.FormField, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	field, ok := f.fields[id]
	if !ok || field.OrganizationID != organizationID {
		return ports.FormField{}, ports.ErrNotFound
	}
	return field, nil
}

func (f *fakeStore) ListFormFields(_ context.Context, organizationID, formID string) ([]ports.FormField, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ports.FormField
	for _, field := range f.fields {
		if field.OrganizationID == organizationID && field.FormID == formID {
			out = append(out, field)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteFormField(_ context.Context, organizationID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	field, ok := f.fields[id]
	if !ok || field.OrganizationID != organizationID {
		return ports.ErrNotFound
	}
	delete(f.fields, id)
	return nil
}

var _ ports.AppStore = (*fakeStore)(nil)

// capturingPublisher records emitted topics.
type capturingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *capturingPublisher) Publish(_ context.Context, topic string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func (p *capturingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}
