package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledgerline/ledgerline/internal/shared"
)

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("rbac: not found")

// Service orchestrates RBAC operations.
type Service struct {
	store Store
}

// NewService constructs a Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Seed makes sure every known permission exists and that the admin role holds all of them.
func (s *Service) Seed(ctx context.Context) (Role, error) {
	role, err := s.store.UpsertRole(ctx, AdminRole, "Full access")
	if err != nil {
		return Role{}, fmt.Errorf("rbac: seed role: %w", err)
	}
	for _, name := range shared.AllPermissions() {
		perm, err := s.store.UpsertPermission(ctx, name, permissionDescriptions[name])
		if err != nil {
			return Role{}, fmt.Errorf("rbac: seed permission %s: %w", name, err)
		}
		if err := s.store.AttachPermission(ctx, role.ID, perm.ID); err != nil {
			return Role{}, fmt.Errorf("rbac: attach %s: %w", name, err)
		}
	}
	return role, nil
}

// GrantRole assigns the named role to a user.
func (s *Service) GrantRole(ctx context.Context, userID int64, roleName string) error {
	role, err := s.store.RoleByName(ctx, roleName)
	if err != nil {
		return err
	}
	return s.store.AssignRole(ctx, userID, role.ID)
}

// ListPermissions returns all permissions ordered by name.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.store.ListPermissions(ctx)
}

// EffectivePermissions returns deduplicated, lower-cased permission names for a user.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.store.UserPermissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(rows))
	perms := make([]string, 0, len(rows))
	for _, p := range rows {
		p = strings.ToLower(strings.TrimSpace(p))
		if _, dup := seen[p]; dup || p == "" {
			continue
		}
		seen[p] = struct{}{}
		perms = append(perms, p)
	}
	return perms, nil
}
