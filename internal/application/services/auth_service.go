package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskmaster/todolist/internal/domain/entities"
	"github.com/taskmaster/todolist/internal/infrastructure/config"
	"github.com/taskmaster/todolist/internal/infrastructure/logger"
	"github.com/taskmaster/todolist/internal/ports"
)

// tokenClaims is the JWT payload: the caller's id and role plus the
// registered claims.
type tokenClaims struct {
	UserID int64             `json:"userId"`
	Role   entities.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// AuthService handles registration, login and bearer tokens
type AuthService struct {
	userRepo   ports.UserRepository
	jwtConfig  config.JWTConfig
	logger     *logger.Logger
	bcryptCost int
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo ports.UserRepository, jwtConfig config.JWTConfig, logger *logger.Logger) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtConfig:  jwtConfig,
		logger:     logger.WithComponent("auth"),
		bcryptCost: bcrypt.DefaultCost,
	}
}

// HashPassword returns the bcrypt hash of password
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Register creates a user with the default role and returns a short-lived token
func (s *AuthService) Register(ctx context.Context, req ports.RegisterRequest) (*ports.TokenResponse, error) {
	user, err := s.CreateUser(ctx, req, entities.UserRoleUser)
	if err != nil {
		return nil, err
	}

	token, err := s.IssueToken(user.ID, user.Role, s.jwtConfig.ExpiresIn)
	if err != nil {
		return nil, err
	}

	return &ports.TokenResponse{Token: token}, nil
}

// CreateUser validates req, hashes the password and stores the account
func (s *AuthService) CreateUser(ctx context.Context, req ports.RegisterRequest, role entities.UserRole) (*entities.User, error) {
	req.Username = entities.NormalizeUsername(req.Username)
	if err := Validate(req); err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, entities.NewValidationError("role", "role must be user or admin")
	}

	hash, err := HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &entities.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, entities.ErrUsernameTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.LogUserAction(user.ID, "register", map[string]interface{}{"username": user.Username})

	return user, nil
}

// Login checks credentials. Remember selects the long token lifetime.
func (s *AuthService) Login(ctx context.Context, req ports.LoginRequest) (*ports.TokenResponse, error) {
	username := entities.NormalizeUsername(req.Username)
	if username == "" || req.Password == "" {
		return nil, entities.ErrMissingCredentials
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, entities.ErrUserNotFound) {
			s.logger.Warnw("Login attempt with unknown username", "username", username)
			return nil, entities.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warnw("Login attempt with invalid password", "user_id", user.ID)
		return nil, entities.ErrInvalidCredentials
	}

	ttl := s.jwtConfig.ExpiresIn
	if req.Remember {
		ttl = s.jwtConfig.RememberExpiresIn
	}

	token, err := s.IssueToken(user.ID, user.Role, ttl)
	if err != nil {
		return nil, err
	}

	s.logger.Infow("User logged in", "user_id", user.ID, "remember", req.Remember)

	return &ports.TokenResponse{Token: token}, nil
}

func (s *AuthService) Me(ctx context.Context, userID int64) (*ports.MeResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, entities.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	return &ports.MeResponse{ID: user.ID, Username: user.Username, Role: user.Role}, nil
}

func (s *AuthService) CountUsers(ctx context.Context) (int64, error) {
	count, err := s.userRepo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]*entities.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// IssueToken signs an HS256 token for the given identity valid for ttl
func (s *AuthService) IssueToken(userID int64, role entities.UserRole, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    s.jwtConfig.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtConfig.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates signature, algorithm, issuer and expiry. There is no
// revocation list and the user row is not consulted.
func (s *AuthService) VerifyToken(tokenString string) (*ports.Claims, error) {
	if tokenString == "" {
		return nil, entities.ErrTokenMissing
	}

	var claims tokenClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.jwtConfig.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.jwtConfig.Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, entities.ErrTokenExpired
		}
		return nil, entities.ErrTokenInvalid
	}

	if claims.UserID <= 0 || !claims.Role.IsValid() {
		return nil, entities.ErrTokenInvalid
	}

	return &ports.Claims{UserID: claims.UserID, Role: claims.Role}, nil
}
