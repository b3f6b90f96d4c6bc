package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/roasapp-backend/pkg/config"
	"github.com/angelmondragon/roasapp-backend/pkg/enums"
	"github.com/google/uuid"
)

func testJWTConfig(minutes int) config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "roasapp",
		ExpirationMinutes: minutes,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig(30)
	now := time.Now().UTC()
	userID := uuid.New()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{
		UserID:   userID,
		Username: "rina",
		Role:     enums.UserRoleAdmin,
		JTI:      "jti-1",
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}

	if claims.UserID != userID {
		t.Fatalf("expected user_id %s, got %s", userID, claims.UserID)
	}
	if claims.Username != "rina" {
		t.Fatalf("unexpected username %q", claims.Username)
	}
	if claims.Role != enums.UserRoleAdmin {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if claims.ID != "jti-1" {
		t.Fatalf("expected jti to be preserved, got %q", claims.ID)
	}
	if claims.Subject != userID.String() {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}

	exp := now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)
	diff := claims.ExpiresAt.Sub(exp)
	if diff < 0 {
		diff = -diff
	}
	if diff >= time.Second {
		t.Fatalf("expected exp roughly %v, got %v (diff %v)", exp.UTC(), claims.ExpiresAt.UTC(), diff)
	}
}

func TestMintAccessTokenGeneratesJTI(t *testing.T) {
	cfg := testJWTConfig(5)
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleUser})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if _, err := uuid.Parse(claims.ID); err != nil {
		t.Fatalf("expected generated uuid jti, got %q", claims.ID)
	}
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	cfg := testJWTConfig(10)
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleUser})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	if _, err = ParseAccessToken(cfg, token+"x"); err == nil {
		t.Fatal("expected invalid signature error")
	}

	other := cfg
	other.Secret = "different"
	if _, err = ParseAccessToken(other, token); err == nil {
		t.Fatal("expected error for token signed with another secret")
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := testJWTConfig(15)
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleUser})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	_, err = ParseAccessToken(cfg, token)
	if err == nil {
		t.Fatal("expected expiration error")
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := ParseAccessTokenAllowExpired(cfg, token)
	if err != nil {
		t.Fatalf("allow-expired parse failed: %v", err)
	}
	if claims.ID == "" {
		t.Fatal("expected jti on expired token")
	}
}

func TestMintAccessTokenRejectsBadPayload(t *testing.T) {
	cfg := testJWTConfig(5)
	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: ""}); err == nil {
		t.Fatal("expected invalid role error")
	}
	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{Role: enums.UserRoleUser}); err == nil {
		t.Fatal("expected missing user id error")
	}
}

func TestParseAccessTokenRejectsForeignIssuer(t *testing.T) {
	cfg := testJWTConfig(5)
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleUser})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	other := cfg
	other.Issuer = "someone-else"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected issuer mismatch error")
	}
}
