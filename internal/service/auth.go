package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"fabricstore/internal/auth"
	"fabricstore/internal/domain"
	"fabricstore/internal/repository"
)

// ErrInvalidCredentials covers unknown accounts, wrong passwords and
// inactive users alike so callers cannot tell which one failed.
var ErrInvalidCredentials = errors.New("invalid credentials")

type Session struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Principal domain.Principal `json:"principal"`
	User      *domain.User     `json:"user,omitempty"`
	Customer  *domain.Customer `json:"customer,omitempty"`
}

type CreateUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      domain.Role
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	var user *domain.User
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		user, err = tx.GetUserByEmail(ctx, email)
		return err
	})
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		s.logInternal("Login", nil, err)
		return nil, err
	}
	if !user.IsActive || auth.ComparePassword(user.PasswordHash, password) != nil {
		return nil, ErrInvalidCredentials
	}
	principal := domain.Principal{ID: user.ID, Role: user.Role}
	token, expires, err := s.tokens.Issue(principal)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expires, Principal: principal, User: user}, nil
}

// CustomerLogin authenticates the customer panel by phone. Customers without
// a password set cannot log in.
func (s *Service) CustomerLogin(ctx context.Context, phone, password string) (*Session, error) {
	var customer *domain.Customer
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		customer, err = tx.GetCustomerByPhone(ctx, strings.TrimSpace(phone))
		return err
	})
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		s.logInternal("CustomerLogin", nil, err)
		return nil, err
	}
	if customer.PasswordHash == "" || auth.ComparePassword(customer.PasswordHash, password) != nil {
		return nil, ErrInvalidCredentials
	}
	principal := domain.Principal{ID: customer.ID, Role: domain.RoleCustomer}
	token, expires, err := s.tokens.Issue(principal)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expires, Principal: principal, Customer: customer}, nil
}

// Authenticate resolves a bearer token and confirms the account still exists
// and, for staff, is active.
func (s *Service) Authenticate(ctx context.Context, token string) (domain.Principal, error) {
	principal, err := s.tokens.Parse(token)
	if err != nil {
		return domain.Principal{}, err
	}
	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		if principal.IsCustomer() {
			_, err := tx.GetCustomer(ctx, principal.ID)
			return err
		}
		user, err := tx.GetUser(ctx, principal.ID)
		if err != nil {
			return err
		}
		if !user.IsActive || user.Role != principal.Role {
			return auth.ErrInvalidToken
		}
		return nil
	})
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.Principal{}, auth.ErrInvalidToken
		}
		return domain.Principal{}, err
	}
	return principal, nil
}

func (s *Service) CreateUser(ctx context.Context, actor domain.Principal, in CreateUserInput) (*domain.User, error) {
	if err := authorize(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email == "" {
		return nil, domain.InvalidField("email", "is required")
	}
	if !in.Role.Valid() {
		return nil, domain.InvalidField("role", "unknown role %q", in.Role)
	}
	if len(in.Password) < 6 {
		return nil, domain.InvalidField("password", "must be at least 6 characters")
	}
	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	var created domain.User
	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		created, err = tx.CreateUser(ctx, domain.User{
			Email:        in.Email,
			FirstName:    strings.TrimSpace(in.FirstName),
			LastName:     strings.TrimSpace(in.LastName),
			Role:         in.Role,
			IsActive:     true,
			PasswordHash: hashed,
		})
		return err
	})
	if err != nil {
		s.logInternal("CreateUser", map[string]any{"email": in.Email}, err)
		return nil, err
	}
	return &created, nil
}

func (s *Service) Me(ctx context.Context, actor domain.Principal) (any, error) {
	var out any
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		if actor.IsCustomer() {
			customer, err := tx.GetCustomer(ctx, actor.ID)
			out = customer
			return err
		}
		user, err := tx.GetUser(ctx, actor.ID)
		out = user
		return err
	})
	return out, err
}

// EnsureDefaultAdmin creates the bootstrap admin account when no admin exists
// and credentials are configured.
func (s *Service) EnsureDefaultAdmin(ctx context.Context) error {
	email := strings.TrimSpace(s.opts.DefaultAdminEmail)
	if email == "" || s.opts.DefaultAdminPassword == "" {
		return nil
	}
	created := false
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		count, err := tx.CountUsersByRole(ctx, domain.RoleAdmin)
		if err != nil || count > 0 {
			return err
		}
		hashed, err := auth.HashPassword(s.opts.DefaultAdminPassword)
		if err != nil {
			return err
		}
		_, err = tx.CreateUser(ctx, domain.User{
			Email:        email,
			FirstName:    "Admin",
			Role:         domain.RoleAdmin,
			IsActive:     true,
			PasswordHash: hashed,
		})
		created = err == nil
		return err
	})
	if err != nil {
		return err
	}
	if created {
		s.log.WithField("email", email).Info("default admin created")
	}
	return nil
}
