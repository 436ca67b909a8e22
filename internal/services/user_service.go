// Package services – UserService
//
// Registration, login, profile edits, and balance reads. Passwords are kept
// as given; authentication hardening is out of scope for this service. The
// balance read reports the same derived figures the request lifecycle uses.
package services

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-tutor-backend/internal/domain"
	"github.com/tbourn/go-tutor-backend/internal/repo"
)

// RegisterInput holds the fields accepted at registration.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// UserService manages user accounts.
type UserService struct {
	DB *gorm.DB
}

// NewUserService constructs a UserService.
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

// Register creates a user with a zero balance. The display name is
// "LastName FirstName".
func (s *UserService) Register(ctx context.Context, in RegisterInput) (_ *domain.User, err error) {
	ctx, span := otel.Tracer("services/UserService").Start(ctx, "Register")
	defer func() { endSpan(span, err) }()

	email := foldEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, ErrInvalidInput
	}
	first, last := normalizeText(in.FirstName), normalizeText(in.LastName)
	u := &domain.User{
		FirstName: first,
		LastName:  last,
		Name:      strings.TrimSpace(last + " " + first),
		Email:     email,
		Password:  in.Password,
	}
	if err := repo.CreateUser(ctx, s.DB, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	span.SetAttributes(attribute.String("user.id", u.ID))
	return u, nil
}

// Login returns the user whose email and password match.
func (s *UserService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	email = foldEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidInput
	}
	u, err := repo.GetUserByEmail(ctx, s.DB, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if u.Password != password {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := repo.GetUser(ctx, s.DB, id)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return u, nil
}

// UpdateProfile applies profile edits and returns the updated user. When
// Name is not supplied but a first or last name is, Name is rebuilt.
func (s *UserService) UpdateProfile(ctx context.Context, id string, p repo.ProfileUpdate) (*domain.User, error) {
	ctx, span := otel.Tracer("services/UserService").Start(ctx, "UpdateProfile",
		trace.WithAttributes(attribute.String("user.id", id)),
	)
	defer span.End()

	var out *domain.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := repo.GetUser(ctx, tx, id)
		if err != nil {
			return notFound(err, ErrUserNotFound)
		}
		if p.Name == nil && (p.FirstName != nil || p.LastName != nil) {
			first, last := cur.FirstName, cur.LastName
			if p.FirstName != nil {
				first = normalizeText(*p.FirstName)
			}
			if p.LastName != nil {
				last = normalizeText(*p.LastName)
			}
			name := strings.TrimSpace(last + " " + first)
			p.Name = &name
		}
		if err := repo.UpdateUserProfile(ctx, tx, id, p); err != nil {
			return notFound(err, ErrUserNotFound)
		}
		out, err = repo.GetUser(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Balance reports the user's stored, reserved, and available skillpoints.
func (s *UserService) Balance(ctx context.Context, id string) (Balance, error) {
	u, err := repo.GetUser(ctx, s.DB, id)
	if err != nil {
		return Balance{}, notFound(err, ErrUserNotFound)
	}
	return balanceOf(ctx, s.DB, u)
}
