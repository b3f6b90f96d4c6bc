package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/roasapp-backend/internal/users"
	pkgAuth "github.com/angelmondragon/roasapp-backend/pkg/auth"
	"github.com/angelmondragon/roasapp-backend/pkg/auth/session"
	"github.com/angelmondragon/roasapp-backend/pkg/config"
	"github.com/angelmondragon/roasapp-backend/pkg/db"
	"github.com/angelmondragon/roasapp-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/roasapp-backend/pkg/errors"
	"github.com/angelmondragon/roasapp-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controller.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*RefreshResponse, error)
	Logout(ctx context.Context, accessToken string) error
}

type service struct {
	users       userRepository
	session     sessionManager
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	now         func() time.Time
}

type userRepository interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type sessionManager interface {
	Generate(ctx context.Context, userID uuid.UUID, accessID string) (string, error)
	Rotate(ctx context.Context, userID uuid.UUID, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, userID uuid.UUID, accessID string) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo       userRepository
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	return &service{
		users:       params.UserRepo,
		session:     params.SessionManager,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	username, err := users.NormalizeUsername(req.Username)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "username already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check username")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.users.Create(ctx, users.CreateUserDTO{Username: username, PasswordHash: passwordHash})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "username already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}
	return users.FromModel(user), nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now

	accessToken, refreshToken, err := s.issue(ctx, user, now)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         users.FromModel(user),
	}, nil
}

// issue opens a new session for the user and returns its access and refresh tokens.
func (s *service) issue(ctx context.Context, user *models.User, now time.Time) (string, string, error) {
	accessID := session.NewAccessID()
	accessToken, err := s.mint(user, accessID, now)
	if err != nil {
		return "", "", err
	}
	refreshToken, err := s.session.Generate(ctx, user.ID, accessID)
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refresh token")
	}
	return accessToken, refreshToken, nil
}

// sessionClaims reads the session identity from an access token that may already be expired.
func (s *service) sessionClaims(accessToken string) (*pkgAuth.AccessTokenClaims, error) {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	return claims, nil
}

// Refresh accepts an expired access token so its jti can be matched against the stored session.
// The new token carries the user's current username and role.
func (s *service) Refresh(ctx context.Context, accessToken, refreshToken string) (*RefreshResponse, error) {
	claims, err := s.sessionClaims(accessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account no longer exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	newAccessID, newRefreshToken, err := s.session.Rotate(ctx, user.ID, claims.ID, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rotate session")
	}

	token, err := s.mint(user, newAccessID, s.now())
	if err != nil {
		return nil, err
	}
	return &RefreshResponse{AccessToken: token, RefreshToken: newRefreshToken}, nil
}

func (s *service) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.sessionClaims(accessToken)
	if err != nil {
		return err
	}
	if err := s.session.Revoke(ctx, claims.UserID, claims.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke session")
	}
	return nil
}

func (s *service) mint(user *models.User, accessID string, now time.Time) (string, error) {
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		JTI:      accessID,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return token, nil
}

func (s *service) authenticate(ctx context.Context, username, password string) (*models.User, error) {
	input := strings.ToLower(strings.TrimSpace(username))
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByUsername(ctx, input)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	if security.NeedsRehash(user.PasswordHash, s.passwordCfg) {
		s.upgradeHash(ctx, user, password)
	}
	return user, nil
}

// upgradeHash re-encodes the password with the current argon2 parameters. Failures keep the old
// hash, which still verifies.
func (s *service) upgradeHash(ctx context.Context, user *models.User, password string) {
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return
	}
	user.PasswordHash = hash
}
