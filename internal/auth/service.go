package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"realestate/server/internal/apperr"
	"realestate/server/internal/database"
	"realestate/server/internal/models"
)

const MinPasswordLength = 8

var ErrInvalidCredentials = apperr.Unauthorized("invalid email or password")

// UserStore is the part of the entity store accounts need
type UserStore interface {
	CreateUserWithProfile(ctx context.Context, u *models.User) (*models.Profile, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUser(ctx context.Context, id uint) (*models.User, error)
}

type RegisterRequest struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type Service struct {
	store  UserStore
	secret string
	ttl    time.Duration
	logger *logrus.Logger
}

func NewService(store UserStore, secret string, ttl time.Duration, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Service{store: store, secret: secret, ttl: ttl, logger: logger}
}

// Register creates a user together with its profile
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*models.User, *models.Profile, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	var problems []string
	if req.Username == "" {
		problems = append(problems, "username is required")
	}
	if req.FirstName == "" {
		problems = append(problems, "first_name is required")
	}
	if req.LastName == "" {
		problems = append(problems, "last_name is required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil || req.Email == "" {
		problems = append(problems, "a valid email is required")
	}
	if len(req.Password) < MinPasswordLength {
		problems = append(problems, "password must be at least 8 characters")
	}
	if len(problems) > 0 {
		return nil, nil, apperr.Validation(strings.Join(problems, "; "))
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, nil, apperr.Dependency("failed to register user", err)
	}

	user := &models.User{
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: hash,
		IsActive:     true,
	}
	profile, err := s.store.CreateUserWithProfile(ctx, user)
	if err != nil {
		return nil, nil, apperr.Classify(err, "failed to register user")
	}

	s.logger.WithField("user_id", user.ID).Info("User registered")
	return user, profile, nil
}

// Login checks the credentials and issues a signed token
func (s *Service) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, database.ErrUserNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, apperr.Classify(err, "failed to log in")
	}
	if !user.IsActive || !CheckPasswordHash(password, user.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := GenerateJWT(user.ID, user.IsStaff, s.secret, s.ttl)
	if err != nil {
		return "", nil, apperr.Dependency("failed to log in", err)
	}
	return token, user, nil
}

// Authenticate resolves a bearer token into its claims. The token's user
// must still exist and be active; the staff flag is taken from the account
// rather than from the token.
func (s *Service) Authenticate(ctx context.Context, token string) (*Claims, error) {
	claims, err := ValidateJWT(token, s.secret)
	if err != nil {
		return nil, &apperr.Error{Kind: apperr.KindUnauthorized, Message: "invalid or expired token", Err: err}
	}

	user, err := s.store.GetUser(ctx, claims.UserID)
	if errors.Is(err, database.ErrUserNotFound) {
		return nil, apperr.Unauthorized("account no longer exists")
	}
	if err != nil {
		return nil, apperr.Classify(err, "failed to authenticate")
	}
	if !user.IsActive {
		s.logger.WithField("user_id", user.ID).Warn("Rejected token of inactive user")
		return nil, apperr.Unauthorized("account is inactive")
	}

	claims.IsStaff = user.IsStaff
	return claims, nil
}
