package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/community_shop/internal/events"
	"github.com/Skotchmaster/community_shop/internal/hash"
	"github.com/Skotchmaster/community_shop/internal/models"
	"github.com/Skotchmaster/community_shop/internal/repo"
	"github.com/Skotchmaster/community_shop/pkg/logging"
	"github.com/Skotchmaster/community_shop/pkg/tokens"
)

type AuthService struct {
	Repo          *repo.GormRepo
	Events        events.Publisher
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
	SessionID    string
	User         *models.User
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	in.normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	u, err := s.createUser(ctx, in, models.RoleUser)
	if err != nil {
		return nil, err
	}
	l.Info("user_registered", "user_id", u.ID, "username", u.Username)
	return u, nil
}

func (s *AuthService) createUser(ctx context.Context, in RegisterInput, role string) (*models.User, error) {
	taken, err := s.Repo.IdentityTaken(ctx, in.Username, in.Email, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDuplicateIdentity
	}

	pwHash, err := hash.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: pwHash,
		Role:         role,
	}
	if err := s.Repo.CreateUser(ctx, u); err != nil {
		if repo.IsUniqueViolation(err) {
			return nil, ErrDuplicateIdentity
		}
		return nil, err
	}

	publish(ctx, s.Events, events.TopicUsers, strconv.FormatUint(uint64(u.ID), 10), "user_registered", map[string]any{
		"user_id":  u.ID,
		"username": u.Username,
		"role":     u.Role,
	})
	return u, nil
}

// EnsureUser creates the user when the username is free, otherwise makes sure it has the role.
func (s *AuthService) EnsureUser(ctx context.Context, in RegisterInput, role string) (*models.User, bool, error) {
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, false, validationf("unknown role %q", role)
	}
	in.normalize()

	existing, err := s.Repo.UserByUsername(ctx, in.Username)
	switch {
	case err == nil:
		if existing.Role != role {
			existing.Role = role
			if err := s.Repo.SaveUser(ctx, existing); err != nil {
				return nil, false, err
			}
		}
		return existing, false, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, err
	}

	if in.Confirm == "" {
		in.Confirm = in.Password
	}
	if err := in.Validate(); err != nil {
		return nil, false, err
	}
	u, err := s.createUser(ctx, in, role)
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}

// Authenticate does not distinguish an unknown username from a wrong password.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, validationf("username and password are required")
	}

	u, err := s.Repo.UserByUsername(ctx, username)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		hash.BurnCompare(password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !hash.CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "username", username)

	u, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	res, rec, err := s.issue(u, uuid.NewString())
	if err != nil {
		return nil, err
	}
	if err := s.Repo.CreateRefreshToken(ctx, rec); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	l.Info("login_successful", "user_id", u.ID, "session_id", res.SessionID)
	return res, nil
}

func (s *AuthService) issue(u *models.User, sessionID string) (*LoginResult, *models.RefreshToken, error) {
	now := time.Now()
	sub := strconv.FormatUint(uint64(u.ID), 10)

	accessExp := now.Add(s.AccessTTL)
	access, err := tokens.NewAccessToken(sub, u.Role, u.Username, sessionID, accessExp, s.AccessSecret)
	if err != nil {
		return nil, nil, fmt.Errorf("sign access token: %w", err)
	}

	jti := tokens.NewJTI()
	refreshExp := now.Add(s.RefreshTTL)
	refresh, err := tokens.NewRefreshToken(sub, sessionID, jti, refreshExp, s.RefreshSecret)
	if err != nil {
		return nil, nil, fmt.Errorf("sign refresh token: %w", err)
	}

	rec := &models.RefreshToken{
		UserID:    u.ID,
		SessionID: sessionID,
		TokenHash: tokens.Sha256Hex(refresh),
		JTI:       jti,
		ExpiresAt: refreshExp.Unix(),
	}
	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
		SessionID:    sessionID,
		User:         u,
	}, rec, nil
}

// Refresh rotates the refresh token; the session id (and therefore the cart) carries over.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	claims, err := tokens.RefreshClaimsFromToken(refreshToken, s.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRefreshToken, err)
	}
	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	u, err := s.Repo.UserByID(ctx, uint(userID))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, err
	}

	res, rec, err := s.issue(u, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.RotateRefreshToken(ctx, claims.ID, tokens.Sha256Hex(refreshToken), rec); err != nil {
		if errors.Is(err, repo.ErrRefreshRejected) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	return res, nil
}

// LogOut ends the session: its refresh tokens are revoked and its cart is dropped.
func (s *AuthService) LogOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.Repo.RevokeSession(ctx, sessionID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if err := s.Repo.ClearCart(ctx, sessionID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
