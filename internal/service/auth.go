package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/tasknest/tasknest-go/internal/crypto"
	"github.com/tasknest/tasknest-go/internal/mailer"
	"github.com/tasknest/tasknest-go/internal/model"
	"github.com/tasknest/tasknest-go/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailRequired      = errors.New("email is required")
	ErrEmailInvalid       = errors.New("email is not a valid address")
	ErrPasswordRequired   = errors.New("password is required")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrEmailTaken         = errors.New("email already taken")
	ErrSessionsDisabled   = errors.New("refresh sessions are not enabled")
	ErrRefreshInvalid     = errors.New("invalid or expired refresh token")
)

// UserStore is the persistence surface AuthService needs.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	Delete(ctx context.Context, id string) error
}

// SessionStore is the refresh-token surface AuthService needs.
type SessionStore interface {
	Create(ctx context.Context, userID string) (string, error)
	Resolve(ctx context.Context, token string) (string, error)
	Revoke(ctx context.Context, token string) error
	RevokeAll(ctx context.Context, userID string) error
}

// AuthService handles registration, login, and session lifecycle.
type AuthService struct {
	users         UserStore
	sessions      SessionStore
	mail          *mailer.Mailer
	jwtSecret     string
	jwtExpiry     time.Duration
	warnThreshold time.Duration
}

// NewAuthService creates a new AuthService. sessions may be nil, in which
// case refresh and logout are unavailable. m may be nil to disable email.
func NewAuthService(users UserStore, sessions SessionStore, m *mailer.Mailer, secret string, expiry, warnThreshold time.Duration) *AuthService {
	return &AuthService{
		users:         users,
		sessions:      sessions,
		mail:          m,
		jwtSecret:     secret,
		jwtExpiry:     expiry,
		warnThreshold: warnThreshold,
	}
}

// Register creates a new user account and returns an auth token. The user
// ID is minted here; it becomes the token subject and the owner of every
// task the user creates.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.AuthResponse, error) {
	if req.Email == "" {
		return model.AuthResponse{}, ErrEmailRequired
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return model.AuthResponse{}, ErrEmailInvalid
	}
	if req.Password == "" {
		return model.AuthResponse{}, ErrPasswordRequired
	}
	if len(req.Password) < 8 {
		return model.AuthResponse{}, ErrPasswordTooShort
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		return model.AuthResponse{}, err
	}

	user := &model.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return model.AuthResponse{}, ErrEmailTaken
		}
		return model.AuthResponse{}, err
	}

	go func(email string) {
		if err := s.mail.SendWelcome(email); err != nil {
			slog.Warn("welcome email failed", "error", err)
		}
	}(user.Email)

	return s.issueTokens(ctx, user)
}

// Login authenticates a user and returns an auth token.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.AuthResponse{}, ErrInvalidCredentials
		}
		return model.AuthResponse{}, err
	}

	if !crypto.VerifyPassword(req.Password, user.PasswordHash) {
		return model.AuthResponse{}, ErrInvalidCredentials
	}

	return s.issueTokens(ctx, user)
}

// Refresh exchanges a refresh token for a fresh access token, rotating the
// refresh token in the process.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (model.AuthResponse, error) {
	if s.sessions == nil {
		return model.AuthResponse{}, ErrSessionsDisabled
	}

	userID, err := s.sessions.Resolve(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return model.AuthResponse{}, ErrRefreshInvalid
		}
		return model.AuthResponse{}, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.AuthResponse{}, ErrRefreshInvalid
		}
		return model.AuthResponse{}, err
	}

	if err := s.sessions.Revoke(ctx, refreshToken); err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		return model.AuthResponse{}, err
	}

	return s.issueTokens(ctx, user)
}

// Logout revokes a refresh token. Revoking an unknown token is not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if s.sessions == nil {
		return ErrSessionsDisabled
	}

	err := s.sessions.Revoke(ctx, refreshToken)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil
	}
	return err
}

// GetUser retrieves a user by ID and returns safe user data.
func (s *AuthService) GetUser(ctx context.Context, userID string) (model.UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.UserResponse{}, err
	}

	return model.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}, nil
}

// DeleteAccount removes the user. Tasks cascade at the database level and
// any outstanding refresh tokens are revoked.
func (s *AuthService) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}

	if s.sessions != nil {
		if err := s.sessions.RevokeAll(ctx, userID); err != nil {
			slog.Warn("revoking sessions after account deletion failed", "user_id", userID, "error", err)
		}
	}
	return nil
}

// SessionInfo reports how long the presented token remains valid and
// whether it is close enough to expiry that the client should refresh.
func (s *AuthService) SessionInfo(tokenString string) (model.SessionResponse, error) {
	claims, err := crypto.ValidateToken(tokenString, s.jwtSecret)
	if err != nil {
		return model.SessionResponse{}, err
	}
	if claims.ExpiresAt == nil {
		return model.SessionResponse{}, crypto.ErrTokenInvalid
	}

	expiresAt := claims.ExpiresAt.Time
	remaining := time.Until(expiresAt)
	if remaining < 0 {
		remaining = 0
	}

	return model.SessionResponse{
		UserID:        claims.Subject,
		ExpiresAt:     expiresAt,
		ExpiresIn:     int64(remaining.Seconds()),
		NearingExpiry: remaining <= s.warnThreshold,
	}, nil
}

// issueTokens builds the auth response for a verified user. The refresh
// token is omitted when sessions are disabled.
func (s *AuthService) issueTokens(ctx context.Context, user *model.User) (model.AuthResponse, error) {
	token, err := crypto.GenerateToken(user.ID, user.Email, s.jwtSecret, s.jwtExpiry)
	if err != nil {
		return model.AuthResponse{}, err
	}

	resp := model.AuthResponse{
		Token: token,
		User: model.UserResponse{
			ID:        user.ID,
			Email:     user.Email,
			CreatedAt: user.CreatedAt,
		},
	}

	if s.sessions != nil {
		refresh, err := s.sessions.Create(ctx, user.ID)
		if err != nil {
			return model.AuthResponse{}, err
		}
		resp.RefreshToken = refresh
	}

	return resp, nil
}
