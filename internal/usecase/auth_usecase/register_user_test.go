package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"app/internal/domain/model"
	"app/internal/repository"
	auth "app/internal/usecase/auth_usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) FindByID(ctx context.Context, id int64) (model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) FindByUsername(ctx context.Context, username string) (model.User, error) {
	args := m.Called(ctx, username)
	u, _ := args.Get(0).(model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) Create(ctx context.Context, u model.User) (int64, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(int64), args.Error(1)
}

type HasherMock struct{ mock.Mock }

func (m *HasherMock) Hash(plain string) (string, error) {
	args := m.Called(plain)
	return args.String(0), args.Error(1)
}

// テストでは時刻を固定する
type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var testNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func TestRegisterUser_InvalidUsername(t *testing.T) {
	repo := new(UserRepoMock)
	hasher := new(HasherMock)
	uc := auth.NewRegisterUserUsecase(repo, hasher, fixedClock{testNow})

	//trim後に3文字未満
	_, err := uc.Execute(context.Background(), auth.RegisterUserInput{
		Username: "  ab  ",
		Password: "password123",
	})
	assert.ErrorIs(t, err, auth.ErrInvalidUsername)

	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegisterUser_PasswordTooShort(t *testing.T) {
	repo := new(UserRepoMock)
	hasher := new(HasherMock)
	uc := auth.NewRegisterUserUsecase(repo, hasher, fixedClock{testNow})

	_, err := uc.Execute(context.Background(), auth.RegisterUserInput{
		Username: "alice",
		Password: "short",
	})
	assert.ErrorIs(t, err, auth.ErrPasswordTooShort)
}

func TestRegisterUser_UsernameTaken(t *testing.T) {
	repo := new(UserRepoMock)
	hasher := new(HasherMock)
	uc := auth.NewRegisterUserUsecase(repo, hasher, fixedClock{testNow})

	hasher.On("Hash", "password123").Return("hashed-pw", nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(int64(0), repository.ErrUsernameTaken)

	_, err := uc.Execute(context.Background(), auth.RegisterUserInput{
		Username: "alice",
		Password: "password123",
	})
	assert.ErrorIs(t, err, auth.ErrUsernameAlreadyExists)
}

func TestRegisterUser_Success(t *testing.T) {
	repo := new(UserRepoMock)
	hasher := new(HasherMock)
	uc := auth.NewRegisterUserUsecase(repo, hasher, fixedClock{testNow})

	hasher.On("Hash", "password123").Return("hashed-pw", nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(u model.User) bool {
		return u.Username == "alice" &&
			u.PasswordHash == "hashed-pw" &&
			u.Role == model.RoleUser &&
			u.IsActive
	})).Return(int64(7), nil)

	out, err := uc.Execute(context.Background(), auth.RegisterUserInput{
		Username: " alice ",
		Password: "password123",
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(7), out.User.ID)
	assert.Equal(t, "alice", out.User.Username)
	//ハッシュは外に出さない
	assert.Equal(t, "", out.User.PasswordHash)

	repo.AssertExpectations(t)
	hasher.AssertExpectations(t)
}

func TestRegisterUser_HasherError(t *testing.T) {
	repo := new(UserRepoMock)
	hasher := new(HasherMock)
	uc := auth.NewRegisterUserUsecase(repo, hasher, fixedClock{testNow})

	hasher.On("Hash", "password123").Return("", errors.New("bcrypt failed"))

	_, err := uc.Execute(context.Background(), auth.RegisterUserInput{
		Username: "alice",
		Password: "password123",
	})
	assert.Error(t, err)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestBcryptPasswordHasher_RoundTrip(t *testing.T) {
	hasher := auth.NewBcryptPasswordHasher(4)
	verifier := auth.NewBcryptPasswordVerifier()

	hashed, err := hasher.Hash("password123")
	assert.NoError(t, err)
	assert.NotEqual(t, "password123", hashed)

	assert.True(t, verifier.Verify("password123", hashed))
	assert.False(t, verifier.Verify("wrong-password", hashed))
}
