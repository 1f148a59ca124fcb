package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"fabricstore/internal/auth"
	"fabricstore/internal/domain"
	"fabricstore/internal/repository"
)

// UpdateUserInput is a partial update; nil fields are left untouched and a
// non-nil Password is rehashed.
type UpdateUserInput struct {
	Email     *string
	FirstName *string
	LastName  *string
	Role      *domain.Role
	IsActive  *bool
	Password  *string
}

func (s *Service) ListUsers(ctx context.Context, actor domain.Principal, filter repository.UserFilter) ([]domain.User, error) {
	if err := authorize(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if filter.Role != nil && !filter.Role.Valid() {
		return nil, domain.InvalidField("role", "unknown staff role %q", *filter.Role)
	}
	var users []domain.User
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		users, err = tx.ListUsers(ctx, filter)
		return err
	})
	if err != nil {
		s.logInternal("ListUsers", nil, err)
		return nil, err
	}
	return users, nil
}

func (s *Service) GetUser(ctx context.Context, actor domain.Principal, id int64) (*domain.User, error) {
	if err := authorize(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	var user *domain.User
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		user, err = tx.GetUser(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUser edits a staff account. Admins cannot change their own role or
// deactivate themselves.
func (s *Service) UpdateUser(ctx context.Context, actor domain.Principal, id int64, in UpdateUserInput) (*domain.User, error) {
	if err := authorize(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	var hashed string
	if in.Password != nil {
		if len(*in.Password) < 6 {
			return nil, domain.InvalidField("password", "must be at least 6 characters")
		}
		var err error
		if hashed, err = auth.HashPassword(*in.Password); err != nil {
			return nil, err
		}
	}

	var updated *domain.User
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		user, err := tx.GetUser(ctx, id)
		if err != nil {
			return err
		}
		if in.Email != nil {
			email := strings.ToLower(strings.TrimSpace(*in.Email))
			if email == "" {
				return domain.InvalidField("email", "cannot be empty")
			}
			user.Email = email
		}
		if in.FirstName != nil {
			user.FirstName = strings.TrimSpace(*in.FirstName)
		}
		if in.LastName != nil {
			user.LastName = strings.TrimSpace(*in.LastName)
		}
		if in.Role != nil {
			if !in.Role.Valid() {
				return domain.InvalidField("role", "unknown staff role %q", *in.Role)
			}
			if user.ID == actor.ID && *in.Role != user.Role {
				return domain.InvalidField("role", "you cannot change your own role")
			}
			user.Role = *in.Role
		}
		if in.IsActive != nil {
			if user.ID == actor.ID && !*in.IsActive {
				return domain.InvalidField("is_active", "you cannot deactivate your own account")
			}
			user.IsActive = *in.IsActive
		}
		if hashed != "" {
			user.PasswordHash = hashed
		}
		if err := tx.UpdateUser(ctx, *user); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		s.logInternal("UpdateUser", map[string]any{"user_id": id}, err)
		return nil, err
	}
	return updated, nil
}

// DeleteUser removes a staff account. Accounts that created invoices or
// ledger rows must be deactivated instead.
func (s *Service) DeleteUser(ctx context.Context, actor domain.Principal, id int64) error {
	if err := authorize(actor, domain.RoleAdmin); err != nil {
		return err
	}
	if id == actor.ID {
		return domain.InvalidField("id", "you cannot delete your own account")
	}
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		return tx.DeleteUser(ctx, id)
	})
	if err != nil {
		s.logInternal("DeleteUser", map[string]any{"user_id": id}, err)
		return err
	}
	s.log.WithFields(logrus.Fields{"user_id": id, "actor": actor.ID}).Info("user deleted")
	return nil
}
