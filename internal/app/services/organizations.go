// Package services holds the application layer between HTTP routes and storage.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fieldline-io/fieldline/internal/app/ports"
	"github.com/fieldline-io/fieldline/internal/authz"
	"github.com/fieldline-io/fieldline/internal/outbox"
)

// ErrValidation is returned for rejected input. Routes map it to a 400.
var ErrValidation = errors.New("validation failed")

// ErrLastAdmin is returned when a role change or removal would leave the
// organization without an admin.
var ErrLastAdmin = errors.New("cannot demote or remove the last admin")

// OrganizationService handles organization and membership lifecycle.
type OrganizationService struct {
	store  ports.AppStore
	events *outbox.Emitter
}

// NewOrganizationService constructs the organization service.
func NewOrganizationService(store ports.AppStore, events *outbox.Emitter) *OrganizationService {
	return &OrganizationService{store: store, events: events}
}

// CreateOrganization creates an organization and grants the creator the admin
// role so the new tenant is never orphaned.
func (s *OrganizationService) CreateOrganization(ctx context.Context, name string, creator authz.Identity) (ports.Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ports.Organization{}, errors.Join(ErrValidation, errors.New("name is required"))
	}

	now := time.Now().UTC()
	org := ports.Organization{ID: uuid.NewString(), Name: name, CreatedAt: now}
	if err := s.store.CreateOrganization(ctx, org); err != nil {
		return ports.Organization{}, err
	}

	if creator.UserID != "" {
		if err := s.store.UpsertUser(ctx, ports.User{
			ID:        creator.UserID,
			Email:     creator.Email,
			Name:      creator.Name,
			CreatedAt: now,
		}); err != nil {
			return ports.Organization{}, err
		}
		if err := s.store.UpsertMembership(ctx, ports.Membership{
			OrganizationID: org.ID,
			UserID:         creator.UserID,
			Role:           string(authz.RoleOrgAdmin),
			CreatedAt:      now,
		}); err != nil {
			return ports.Organization{}, err
		}
	}

	s.events.Emit(ctx, "organization.created", map[string]string{
		"organization_id": org.ID,
		"name":            org.Name,
		"created_by":      creator.UserID,
	})
	return org, nil
}

// GetOrganization returns one organization.
func (s *OrganizationService) GetOrganization(ctx context.Context, id string) (ports.Organization, error) {
	return s.store.GetOrganizationByID(ctx, id)
}

// ListMembers returns the organization roster.
func (s *OrganizationService) ListMembers(ctx context.Context, organizationID string) ([]ports.Member, error) {
	return s.store.ListMembers(ctx, organizationID)
}

// AddMember grants a user a role in the organization, creating the user row
// when it does not exist yet.
func (s *OrganizationService) AddMember(ctx context.Context, organizationID, userID, email, name, role string) error {
	parsed, ok := authz.ParseRole(role)
	if !ok {
		return errors.Join(ErrValidation, errors.New("invalid role"))
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		userID = uuid.NewString()
	}

	now := time.Now().UTC()
	if err := s.store.UpsertUser(ctx, ports.User{ID: userID, Email: email, Name: name, CreatedAt: now}); err != nil {
		return err
	}
	if err := s.store.UpsertMembership(ctx, ports.Membership{
		OrganizationID: organizationID,
		UserID:         userID,
		Role:           string(parsed),
		CreatedAt:      now,
	}); err != nil {
		return err
	}

	s.events.Emit(ctx, "membership.granted", map[string]string{
		"organization_id": organizationID,
		"user_id":         userID,
		"role":            string(parsed),
	})
	return nil
}

// UpdateMemberRole changes a member's role with last-admin protection.
func (s *OrganizationService) UpdateMemberRole(ctx context.Context, organizationID, userID, role string) error {
	parsed, ok := authz.ParseRole(role)
	if !ok {
		return errors.Join(ErrValidation, errors.New("invalid role"))
	}

	current, err := s.store.GetMembership(ctx, organizationID, userID)
	if err != nil {
		return err
	}
	if current.Role == string(authz.RoleOrgAdmin) && parsed != authz.RoleOrgAdmin {
		if err := s.requireAnotherAdmin(ctx, organizationID); err != nil {
			return err
		}
	}

	if err := s.store.UpsertMembership(ctx, ports.Membership{
		OrganizationID: organizationID,
		UserID:         userID,
		Role:           string(parsed),
		CreatedAt:      time.Now().UTC(),
	}); err != nil {
		return err
	}

	s.events.Emit(ctx, "membership.role_changed", map[string]string{
		"organization_id": organizationID,
		"user_id":         userID,
		"role":            string(parsed),
	})
	return nil
}

// RemoveMember deletes a membership with last-admin protection.
func (s *OrganizationService) RemoveMember(ctx context.Context, organizationID, userID string) error {
	current, err := s.store.GetMembership(ctx, organizationID, userID)
	if err != nil {
		return err
	}
	if current.Role == string(authz.RoleOrgAdmin) {
		if err := s.requireAnotherAdmin(ctx, organizationID); err != nil {
			return err
		}
	}

	if err := s.store.DeleteMembership(ctx, organizationID, userID); err != nil {
		return err
	}

	s.events.Emit(ctx, "membership.revoked", map[string]string{
		"organization_id": organizationID,
		"user_id":         userID,
	})
	return nil
}

func (s *OrganizationService) requireAnotherAdmin(ctx context.Context, organizationID string) error {
	count, err := s.store.CountMembersWithRole(ctx, organizationID, string(authz.RoleOrgAdmin))
	if err != nil {
		return err
	}
	if count <= 1 {
		return ErrLastAdmin
	}
	return nil
}
