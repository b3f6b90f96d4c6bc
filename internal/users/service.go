package users

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/angelmondragon/roasapp-backend/pkg/db"
	"github.com/angelmondragon/roasapp-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/roasapp-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{2,31}$`)

// NormalizeUsername lowercases and trims a username and checks its shape.
func NormalizeUsername(raw string) (string, error) {
	username := strings.ToLower(strings.TrimSpace(raw))
	if !usernamePattern.MatchString(username) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid username").
			WithDetails(map[string]string{"username": "3-32 characters: letters, digits, dot, dash or underscore"})
	}
	return username, nil
}

type userStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateUsername(ctx context.Context, id uuid.UUID, username string) error
}

// Service exposes the signed-in user's profile.
type Service interface {
	Profile(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	UpdateUsername(ctx context.Context, userID uuid.UUID, username string) (*UserDTO, error)
}

type service struct {
	repo userStore
}

// NewService builds the profile service.
func NewService(repo userStore) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Profile(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) UpdateUsername(ctx context.Context, userID uuid.UUID, raw string) (*UserDTO, error) {
	username, err := NormalizeUsername(raw)
	if err != nil {
		return nil, err
	}
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Username == username {
		return FromModel(user), nil
	}

	if existing, err := s.repo.FindByUsername(ctx, username); err == nil && existing.ID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "username already taken")
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check username")
	}

	if err := s.repo.UpdateUsername(ctx, userID, username); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "username already taken")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update username")
	}
	user.Username = username
	return FromModel(user), nil
}

func (s *service) load(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}
