package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tasknest/tasknest-go/internal/crypto"
	"github.com/tasknest/tasknest-go/internal/model"
)

func newTestAuthService() (*AuthService, *memUserStore, *memSessionStore) {
	users := newMemUserStore()
	sessions := newMemSessionStore()
	svc := NewAuthService(users, sessions, nil, "test-secret", time.Hour, 10*time.Minute)
	return svc, users, sessions
}

func TestRegister_EmptyEmail(t *testing.T) {
	svc, _, _ := newTestAuthService()

	_, err := svc.Register(context.Background(), model.RegisterRequest{
		Email:    "",
		Password: "password123",
	})

	if !errors.Is(err, ErrEmailRequired) {
		t.Errorf("expected ErrEmailRequired, got %v", err)
	}
}

func TestRegister_InvalidEmail(t *testing.T) {
	svc, _, _ := newTestAuthService()

	_, err := svc.Register(context.Background(), model.RegisterRequest{
		Email:    "not-an-email",
		Password: "password123",
	})

	if !errors.Is(err, ErrEmailInvalid) {
		t.Errorf("expected ErrEmailInvalid, got %v", err)
	}
}

func TestRegister_EmptyPassword(t *testing.T) {
	svc, _, _ := newTestAuthService()

	_, err := svc.Register(context.Background(), model.RegisterRequest{
		Email:    "test@example.com",
		Password: "",
	})

	if !errors.Is(err, ErrPasswordRequired) {
		t.Errorf("expected ErrPasswordRequired, got %v", err)
	}
}

func TestRegister_ShortPassword(t *testing.T) {
	svc, _, _ := newTestAuthService()

	_, err := svc.Register(context.Background(), model.RegisterRequest{
		Email:    "test@example.com",
		Password: "short",
	})

	if !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("expected ErrPasswordTooShort, got %v", err)
	}
}

func TestRegister_Success(t *testing.T) {
	svc, _, _ := newTestAuthService()

	resp, err := svc.Register(context.Background(), model.RegisterRequest{
		Email:    "test@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Register() unexpected error: %v", err)
	}

	if resp.Token == "" {
		t.Error("Register() returned no access token")
	}
	if resp.RefreshToken == "" {
		t.Error("Register() returned no refresh token")
	}
	if resp.User.ID == "" {
		t.Error("Register() returned no user ID")
	}

	// The token subject must be the new user's ID.
	claims, err := crypto.ValidateToken(resp.Token, "test-secret")
	if err != nil {
		t.Fatalf("ValidateToken() unexpected error: %v", err)
	}
	if claims.Subject != resp.User.ID {
		t.Errorf("token subject = %q, want %q", claims.Subject, resp.User.ID)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _ := newTestAuthService()

	req := model.RegisterRequest{Email: "test@example.com", Password: "password123"}
	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("first Register() unexpected error: %v", err)
	}

	_, err := svc.Register(context.Background(), req)
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
}

func TestLogin_Success(t *testing.T) {
	svc, _, _ := newTestAuthService()

	reg, err := svc.Register(context.Background(), model.RegisterRequest{
		Email:    "test@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Register() unexpected error: %v", err)
	}

	resp, err := svc.Login(context.Background(), model.LoginRequest{
		Email:    "test@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Login() unexpected error: %v", err)
	}
	if resp.User.ID != reg.User.ID {
		t.Errorf("Login() user ID = %q, want %q", resp.User.ID, reg.User.ID)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _, _ := newTestAuthService()

	if _, err := svc.Register(context.Background(), model.RegisterRequest{
		Email:    "test@example.com",
		Password: "password123",
	}); err != nil {
		t.Fatalf("Register() unexpected error: %v", err)
	}

	_, err := svc.Login(context.Background(), model.LoginRequest{
		Email:    "test@example.com",
		Password: "wrong-password",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc, _, _ := newTestAuthService()

	_, err := svc.Login(context.Background(), model.LoginRequest{
		Email:    "nobody@example.com",
		Password: "password123",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestRefresh_RotatesToken(t *testing.T) {
	svc, _, sessions := newTestAuthService()

	reg, err := svc.Register(context.Background(), model.RegisterRequest{
		Email:    "test@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Register() unexpected error: %v", err)
	}

	resp, err := svc.Refresh(context.Background(), reg.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() unexpected error: %v", err)
	}
	if resp.RefreshToken == "" || resp.RefreshToken == reg.RefreshToken {
		t.Error("Refresh() did not rotate the refresh token")
	}

	// The old token must be dead after rotation.
	if _, err := sessions.Resolve(context.Background(), reg.RefreshToken); err == nil {
		t.Error("old refresh token still resolves after rotation")
	}
	if _, err := svc.Refresh(context.Background(), reg.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Errorf("expected ErrRefreshInvalid for rotated token, got %v", err)
	}
}

func TestRefresh_UnknownToken(t *testing.T) {
	svc, _, _ := newTestAuthService()

	_, err := svc.Refresh(context.Background(), "no-such-token")
	if !errors.Is(err, ErrRefreshInvalid) {
		t.Errorf("expected ErrRefreshInvalid, got %v", err)
	}
}

func TestRefresh_SessionsDisabled(t *testing.T) {
	svc := NewAuthService(newMemUserStore(), nil, nil, "test-secret", time.Hour, 10*time.Minute)

	_, err := svc.Refresh(context.Background(), "anything")
	if !errors.Is(err, ErrSessionsDisabled) {
		t.Errorf("expected ErrSessionsDisabled, got %v", err)
	}
}

func TestLogout_UnknownTokenIsNoop(t *testing.T) {
	svc, _, _ := newTestAuthService()

	if err := svc.Logout(context.Background(), "no-such-token"); err != nil {
		t.Errorf("Logout() unexpected error: %v", err)
	}
}

func TestDeleteAccount_RevokesSessions(t *testing.T) {
	svc, users, sessions := newTestAuthService()

	reg, err := svc.Register(context.Background(), model.RegisterRequest{
		Email:    "test@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Register() unexpected error: %v", err)
	}

	if err := svc.DeleteAccount(context.Background(), reg.User.ID); err != nil {
		t.Fatalf("DeleteAccount() unexpected error: %v", err)
	}

	if _, err := users.GetByID(context.Background(), reg.User.ID); err == nil {
		t.Error("user still exists after DeleteAccount()")
	}
	if _, err := sessions.Resolve(context.Background(), reg.RefreshToken); err == nil {
		t.Error("refresh token still resolves after DeleteAccount()")
	}
}

func TestSessionInfo(t *testing.T) {
	svc, _, _ := newTestAuthService()

	token, err := crypto.GenerateToken("u1", "", "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() unexpected error: %v", err)
	}

	info, err := svc.SessionInfo(token)
	if err != nil {
		t.Fatalf("SessionInfo() unexpected error: %v", err)
	}
	if info.UserID != "u1" {
		t.Errorf("SessionInfo() UserID = %q, want %q", info.UserID, "u1")
	}
	if info.NearingExpiry {
		t.Error("hour-long token reported as nearing expiry with a 10m threshold")
	}
	if info.ExpiresIn <= 0 {
		t.Errorf("SessionInfo() ExpiresIn = %d, want > 0", info.ExpiresIn)
	}
}

func TestSessionInfo_MissingExpiry(t *testing.T) {
	svc, _, _ := newTestAuthService()

	claims := crypto.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   "tasknest",
			Audience: jwt.ClaimStrings{"tasknest-api"},
			Subject:  "u1",
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("SignedString() unexpected error: %v", err)
	}

	if _, err := svc.SessionInfo(token); err == nil {
		t.Error("SessionInfo() accepted a token without an expiration claim")
	}
}

func TestSessionInfo_NearingExpiry(t *testing.T) {
	svc, _, _ := newTestAuthService()

	token, err := crypto.GenerateToken("u1", "", "test-secret", 5*time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken() unexpected error: %v", err)
	}

	info, err := svc.SessionInfo(token)
	if err != nil {
		t.Fatalf("SessionInfo() unexpected error: %v", err)
	}
	if !info.NearingExpiry {
		t.Error("5m token not reported as nearing expiry with a 10m threshold")
	}
}
