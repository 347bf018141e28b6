package service

import (
	"errors"
	"testing"
	"time"

	"persona-board/internal/domain"
)

func testUser() domain.User {
	now := time.Now().UTC()
	return domain.User{
		ID:              "u1",
		Email:           "user@example.com",
		EmailVerifiedAt: &now,
		CreatedAt:       now,
	}
}

func TestJWTGenerateAndParseAccess(t *testing.T) {
	svc := NewJWTService("secret", 15*time.Minute, time.Hour, nil)

	pair, err := svc.GeneratePair(testUser())
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected both tokens, got %+v", pair)
	}

	claims, err := svc.ParseAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if claims.UserID != "u1" || !claims.EmailVerified {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestJWTRejectsRefreshAsAccess(t *testing.T) {
	svc := NewJWTService("secret", 15*time.Minute, time.Hour, nil)

	pair, err := svc.GeneratePair(testUser())
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}
	if _, err := svc.ParseAccessToken(pair.RefreshToken); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid for refresh-as-access, got %v", err)
	}
}

func TestJWTRefreshRotation(t *testing.T) {
	svc := NewJWTService("secret", 15*time.Minute, time.Hour, NewMemoryRefreshTokenStore())

	pair, err := svc.GeneratePair(testUser())
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}

	rotated, err := svc.RefreshPair(pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rotated.AccessToken == "" {
		t.Fatalf("expected new access token")
	}

	// El refresh viejo quedo revocado por la rotacion.
	if _, err := svc.RefreshPair(pair.RefreshToken); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected old refresh rejected, got %v", err)
	}
}

func TestJWTRevokeRefresh(t *testing.T) {
	svc := NewJWTService("secret", 15*time.Minute, time.Hour, NewMemoryRefreshTokenStore())

	pair, err := svc.GeneratePair(testUser())
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}
	if err := svc.RevokeRefresh(pair.RefreshToken); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := svc.RefreshPair(pair.RefreshToken); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected revoked refresh rejected, got %v", err)
	}
}

func TestJWTEmptySecret(t *testing.T) {
	svc := NewJWTService("", 15*time.Minute, time.Hour, nil)
	if _, err := svc.GeneratePair(testUser()); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid without secret, got %v", err)
	}
}

func TestJWTRejectsForeignIssuer(t *testing.T) {
	issuerA := NewJWTService("secret", 15*time.Minute, time.Hour, nil)
	issuerB := NewJWTService("othersecret", 15*time.Minute, time.Hour, nil)

	pair, err := issuerA.GeneratePair(testUser())
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}
	if _, err := issuerB.ParseAccessToken(pair.AccessToken); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid for foreign signature, got %v", err)
	}
}
