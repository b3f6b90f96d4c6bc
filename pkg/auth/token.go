package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/roasapp-backend/pkg/config"
	"github.com/angelmondragon/roasapp-backend/pkg/enums"
)

var signingMethod = jwt.SigningMethodHS256

// AccessTokenPayload is what the auth service knows about a user when it mints a token.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	Username string
	Role     enums.UserRole
	// JTI doubles as the session id the token is bound to. Empty means a random id.
	JTI string
}

// AccessTokenClaims is the JWT body handed to clients.
type AccessTokenClaims struct {
	UserID   uuid.UUID      `json:"user_id"`
	Username string         `json:"username"`
	Role     enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// MintAccessToken signs an HS256 token that expires cfg.ExpirationMinutes after now.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	switch {
	case cfg.Secret == "" || cfg.Issuer == "":
		return "", errors.New("jwt secret and issuer are required")
	case cfg.ExpirationMinutes <= 0:
		return "", errors.New("jwt expiration minutes must be positive")
	case payload.UserID == uuid.Nil:
		return "", errors.New("user id is required")
	case !payload.Role.IsValid():
		return "", fmt.Errorf("invalid user role %q", payload.Role)
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}
	ttl := time.Duration(cfg.ExpirationMinutes) * time.Minute

	signed, err := jwt.NewWithClaims(signingMethod, AccessTokenClaims{
		UserID:   payload.UserID,
		Username: payload.Username,
		Role:     payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    cfg.Issuer,
			Subject:   payload.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies signature, issuer and expiry.
func ParseAccessToken(cfg config.JWTConfig, tokenString string) (*AccessTokenClaims, error) {
	return parse(cfg, tokenString)
}

// ParseAccessTokenAllowExpired verifies signature and issuer only, so refresh and logout
// can still read the jti of an expired token.
func ParseAccessTokenAllowExpired(cfg config.JWTConfig, tokenString string) (*AccessTokenClaims, error) {
	return parse(cfg, tokenString, jwt.WithoutClaimsValidation())
}

func parse(cfg config.JWTConfig, tokenString string, extra ...jwt.ParserOption) (*AccessTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	opts := append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
	}, extra...)

	claims := &AccessTokenClaims{}
	if _, err := jwt.NewParser(opts...).ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}); err != nil {
		return nil, err
	}
	return claims, nil
}
