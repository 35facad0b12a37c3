package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskmaster/todolist/internal/domain/entities"
	"github.com/taskmaster/todolist/internal/infrastructure/config"
	"github.com/taskmaster/todolist/internal/infrastructure/logger"
	"github.com/taskmaster/todolist/internal/ports"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		ExpiresIn:         time.Hour,
		RememberExpiresIn: 7 * 24 * time.Hour,
		Issuer:            "todolist-test",
	}
}

func newTestAuthService(users ports.UserRepository) *AuthService {
	svc := NewAuthService(users, testJWTConfig(), logger.NewNop())
	svc.bcryptCost = bcrypt.MinCost
	return svc
}

func expiryOf(t *testing.T, token string) time.Time {
	t.Helper()
	claims := &tokenClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)
	return claims.ExpiresAt.Time
}

func TestAuthService_Tokens(t *testing.T) {
	svc := newTestAuthService(newFakeUsers())

	t.Run("round trip", func(t *testing.T) {
		token, err := svc.IssueToken(7, entities.UserRoleAdmin, time.Hour)
		require.NoError(t, err)

		claims, err := svc.VerifyToken(token)
		require.NoError(t, err)
		assert.Equal(t, int64(7), claims.UserID)
		assert.Equal(t, entities.UserRoleAdmin, claims.Role)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := svc.VerifyToken("")
		assert.ErrorIs(t, err, entities.ErrTokenMissing)
		assert.ErrorIs(t, err, entities.ErrUnauthenticated)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := svc.IssueToken(7, entities.UserRoleUser, -time.Minute)
		require.NoError(t, err)

		_, err = svc.VerifyToken(token)
		assert.ErrorIs(t, err, entities.ErrTokenExpired)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := svc.VerifyToken("not.a.token")
		assert.ErrorIs(t, err, entities.ErrTokenInvalid)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewAuthService(newFakeUsers(), config.JWTConfig{
			Secret:    "another-secret",
			ExpiresIn: time.Hour,
			Issuer:    "todolist-test",
		}, logger.NewNop())
		token, err := other.IssueToken(7, entities.UserRoleUser, time.Hour)
		require.NoError(t, err)

		_, err = svc.VerifyToken(token)
		assert.ErrorIs(t, err, entities.ErrTokenInvalid)
	})

	t.Run("unsigned token is rejected", func(t *testing.T) {
		claims := tokenClaims{
			UserID: 7,
			Role:   entities.UserRoleAdmin,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "todolist-test",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.VerifyToken(token)
		assert.ErrorIs(t, err, entities.ErrTokenInvalid)
	})

	t.Run("tampered payload", func(t *testing.T) {
		token, err := svc.IssueToken(7, entities.UserRoleUser, time.Hour)
		require.NoError(t, err)
		parts := strings.Split(token, ".")
		parts[1] = parts[1] + "x"

		_, err = svc.VerifyToken(strings.Join(parts, "."))
		assert.ErrorIs(t, err, entities.ErrTokenInvalid)
	})
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	users := newFakeUsers()
	svc := newTestAuthService(users)

	resp, err := svc.Register(ctx, ports.RegisterRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)

	claims, err := svc.VerifyToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, entities.UserRoleUser, claims.Role)

	stored, err := users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.PasswordHash)

	t.Run("login succeeds", func(t *testing.T) {
		resp, err := svc.Login(ctx, ports.LoginRequest{Username: "alice", Password: "secret1"})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
	})

	t.Run("remember issues a longer token", func(t *testing.T) {
		short, err := svc.Login(ctx, ports.LoginRequest{Username: "alice", Password: "secret1"})
		require.NoError(t, err)
		long, err := svc.Login(ctx, ports.LoginRequest{Username: "alice", Password: "secret1", Remember: true})
		require.NoError(t, err)

		assert.True(t, expiryOf(t, long.Token).After(expiryOf(t, short.Token).Add(24*time.Hour)))
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, ports.LoginRequest{Username: "alice", Password: "wrong"})
		assert.ErrorIs(t, err, entities.ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Login(ctx, ports.LoginRequest{Username: "nobody", Password: "secret1"})
		assert.ErrorIs(t, err, entities.ErrInvalidCredentials)
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := svc.Login(ctx, ports.LoginRequest{Username: "alice"})
		assert.ErrorIs(t, err, entities.ErrMissingCredentials)
		assert.ErrorIs(t, err, entities.ErrValidation)
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, err := svc.Register(ctx, ports.RegisterRequest{Username: "alice", Password: "another1"})
		assert.ErrorIs(t, err, entities.ErrUsernameTaken)
	})

	t.Run("short username and password", func(t *testing.T) {
		_, err := svc.Register(ctx, ports.RegisterRequest{Username: "al", Password: "12345"})
		var verr *entities.ValidationError
		require.ErrorAs(t, err, &verr)

		fields := map[string]bool{}
		for _, f := range verr.Fields {
			fields[f.Field] = true
		}
		assert.True(t, fields["username"])
		assert.True(t, fields["password"])
	})

	t.Run("me", func(t *testing.T) {
		me, err := svc.Me(ctx, stored.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", me.Username)

		_, err = svc.Me(ctx, 999)
		assert.ErrorIs(t, err, entities.ErrNotFound)
	})
}
