package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicore/clinicore/internal/platform/apperror"
	"github.com/clinicore/clinicore/internal/platform/auth"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates a new account with the user role. Emails are stored
// lowercased so uniqueness is case-insensitive.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	if msgs := in.validate(); len(msgs) > 0 {
		return nil, apperror.Validation(msgs...)
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))

	// Pre-check so the common case fails cleanly; the unique index still
	// catches concurrent registrations.
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, apperror.Duplicate(errors.New("email already registered"))
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &User{
		Name:         in.Name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         RoleUser,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate checks credentials and returns the account. An unknown email
// and a wrong password produce the same failure.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.Unauthenticated("Invalid credentials")
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, apperror.Unauthenticated("Invalid credentials")
	}
	return u, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// ResolveIdentity implements auth.IdentityResolver. A subject that no longer
// maps to an account resolves to nil rather than an error, so stale sessions
// reach the handler and get a proper not-found response.
func (s *Service) ResolveIdentity(ctx context.Context, userID string) (*auth.Identity, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, nil
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &auth.Identity{
		ID:    u.ID.String(),
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}, nil
}
