package service

import (
	"context"
	"strings"

	"github.com/Skotchmaster/community_shop/internal/models"
	"github.com/Skotchmaster/community_shop/internal/repo"
)

type UserPatch struct {
	FirstName *string `json:"first_name" form:"first_name"`
	LastName  *string `json:"last_name"  form:"last_name"`
	Username  *string `json:"username"   form:"username"`
	Email     *string `json:"email"      form:"email"`
	Role      *string `json:"role"       form:"role"`
}

func (s *AuthService) ListUsers(ctx context.Context, offset, limit int) (int64, []models.User, error) {
	return s.Repo.ListUsers(ctx, offset, limit)
}

func (s *AuthService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	u, err := s.Repo.UserByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

func setNonEmpty(dst *string, v *string, field string) error {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return validationf("%s must not be empty", field)
	}
	*dst = t
	return nil
}

// UpdateUser overwrites the provided fields.
func (s *AuthService) UpdateUser(ctx context.Context, id uint, patch UserPatch) (*models.User, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	for _, f := range []struct {
		dst  *string
		v    *string
		name string
	}{
		{&u.FirstName, patch.FirstName, "first name"},
		{&u.LastName, patch.LastName, "last name"},
		{&u.Username, patch.Username, "username"},
		{&u.Email, patch.Email, "email"},
		{&u.Role, patch.Role, "role"},
	} {
		if err := setNonEmpty(f.dst, f.v, f.name); err != nil {
			return nil, err
		}
	}
	u.Email = strings.ToLower(u.Email)
	if u.Role != models.RoleUser && u.Role != models.RoleAdmin {
		return nil, validationf("role must be %q or %q", models.RoleUser, models.RoleAdmin)
	}

	taken, err := s.Repo.IdentityTaken(ctx, u.Username, u.Email, u.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDuplicateIdentity
	}
	if err := s.Repo.SaveUser(ctx, u); err != nil {
		if repo.IsUniqueViolation(err) {
			return nil, ErrDuplicateIdentity
		}
		return nil, err
	}
	return u, nil
}

func (s *AuthService) DeleteUser(ctx context.Context, id uint) error {
	if err := s.Repo.DeleteUser(ctx, id); err != nil {
		return notFound(err, "user")
	}
	return nil
}
