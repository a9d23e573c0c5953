package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sketchroom/internal/core/domain"
	"sketchroom/internal/core/ports"
	"sketchroom/pkg/utils"
	"sketchroom/pkg/validation"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload of the session cookie. The JWT id is the server-side
// session id, so deleting the session revokes the token.
type Claims struct {
	UserID   domain.UserID `json:"user_id"`
	Username string        `json:"username"`
	jwt.RegisteredClaims
}

type AuthConfig struct {
	Secret     string
	SessionTTL time.Duration
	// HashCost is the bcrypt cost; zero means bcrypt.DefaultCost.
	HashCost int
}

type authService struct {
	users    ports.UserRepository
	sessions ports.SessionRepository
	secret   []byte
	ttl      time.Duration
	hashCost int
	now      func() time.Time
	logger   *zap.SugaredLogger
}

func NewAuthService(
	users ports.UserRepository,
	sessions ports.SessionRepository,
	cfg AuthConfig,
	logger *zap.SugaredLogger,
) ports.AuthService {
	cost := cfg.HashCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &authService{
		users:    users,
		sessions: sessions,
		secret:   []byte(cfg.Secret),
		ttl:      cfg.SessionTTL,
		hashCost: cost,
		now:      time.Now,
		logger:   logger,
	}
}

func (s *authService) Register(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if err := validation.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, storageErr("lookup user", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:           domain.UserID(utils.GenerateUserID()),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, storageErr("create user", err)
	}

	s.logger.Infow("user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

func (s *authService) Login(ctx context.Context, username, password string) (*domain.User, string, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, "", domain.ErrInvalidCredentials
		}
		return nil, "", storageErr("lookup user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", domain.ErrInvalidCredentials
	}

	now := s.now()
	session := &domain.Session{
		ID:        domain.SessionID(utils.GenerateSessionID()),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, "", storageErr("create session", err)
	}

	token, err := s.signToken(user, session)
	if err != nil {
		return nil, "", err
	}

	s.logger.Infow("user logged in", "user_id", user.ID, "session_id", session.ID)
	return user, token, nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}
	claims, err := s.parseToken(token, true)
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}

	session, err := s.sessions.GetByID(ctx, domain.SessionID(claims.ID))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, storageErr("lookup session", err)
	}
	if session.UserID != claims.UserID || session.Expired(s.now()) {
		return nil, domain.ErrUnauthenticated
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, storageErr("lookup user", err)
	}
	return user, nil
}

// Logout deletes the session behind the token. Unknown, expired or
// malformed tokens are not an error.
func (s *authService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := s.parseToken(token, false)
	if err != nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, domain.SessionID(claims.ID)); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return storageErr("delete session", err)
	}
	s.logger.Infow("user logged out", "user_id", claims.UserID, "session_id", claims.ID)
	return nil
}

func (s *authService) signToken(user *domain.User, session *domain.Session) (string, error) {
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        string(session.ID),
			Subject:   string(user.ID),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			NotBefore: jwt.NewNumericDate(session.CreatedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *authService) parseToken(tokenString string, validateClaims bool) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if !validateClaims {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
