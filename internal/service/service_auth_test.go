package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mkamenev/memobox/internal/config"
	"github.com/mkamenev/memobox/internal/logger"
	"github.com/mkamenev/memobox/internal/store"
	"github.com/mkamenev/memobox/models"
)

type fakeUserRepository struct {
	users  map[string]models.User
	nextID int64
}

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{users: make(map[string]models.User), nextID: 1}
}

func (f *fakeUserRepository) CreateUser(_ context.Context, user models.User) (models.User, error) {
	if _, ok := f.users[user.Login]; ok {
		return models.User{}, store.ErrLoginAlreadyExists
	}
	user.UserID = f.nextID
	f.nextID++
	f.users[user.Login] = user
	return user, nil
}

func (f *fakeUserRepository) FindUserByLogin(_ context.Context, login string) (models.User, error) {
	user, ok := f.users[login]
	if !ok {
		return models.User{}, store.ErrNoUserWasFound
	}
	return user, nil
}

func newTestAuthService() (AuthService, *fakeUserRepository) {
	repo := newFakeUserRepository()
	cfg := config.App{
		TokenSignKey:  "test-sign-key",
		TokenIssuer:   "memobox-test",
		TokenDuration: time.Hour,
	}
	return NewAuthService(repo, cfg, logger.Nop()), repo
}

func TestAuthService_RegisterHashesPassword(t *testing.T) {
	svc, repo := newTestAuthService()

	registered, err := svc.RegisterUser(context.Background(), models.User{Login: "alice", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), registered.UserID)
	assert.Empty(t, registered.Password)

	stored := repo.users["alice"]
	assert.NotEqual(t, "s3cret", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cret")))
}

func TestAuthService_RegisterRejectsEmptyCredentials(t *testing.T) {
	svc, _ := newTestAuthService()

	_, err := svc.RegisterUser(context.Background(), models.User{Login: "alice"})
	assert.ErrorIs(t, err, ErrInvalidDataProvided)

	_, err = svc.RegisterUser(context.Background(), models.User{Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidDataProvided)
}

func TestAuthService_Login(t *testing.T) {
	svc, _ := newTestAuthService()
	ctx := context.Background()

	_, err := svc.RegisterUser(ctx, models.User{Login: "alice", Password: "s3cret"})
	require.NoError(t, err)

	user, err := svc.Login(ctx, models.User{Login: "alice", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.UserID)

	_, err = svc.Login(ctx, models.User{Login: "alice", Password: "wrong"})
	assert.ErrorIs(t, err, ErrWrongPassword)

	_, err = svc.Login(ctx, models.User{Login: "nobody", Password: "x"})
	assert.ErrorIs(t, err, store.ErrNoUserWasFound)
}

func TestAuthService_TokenRoundTrip(t *testing.T) {
	svc, _ := newTestAuthService()
	ctx := context.Background()

	token, err := svc.CreateToken(ctx, models.User{UserID: 42})
	require.NoError(t, err)
	require.NotEmpty(t, token.SignedString)

	parsed, err := svc.ValidateToken(ctx, token.SignedString)
	require.NoError(t, err)
	assert.Equal(t, int64(42), parsed.UserID)

	_, err = svc.ValidateToken(ctx, "not-a-token")
	assert.Error(t, err)
}
