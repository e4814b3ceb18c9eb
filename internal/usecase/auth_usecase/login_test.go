package auth_test

import (
	"context"
	"testing"
	"time"

	"app/internal/domain/model"
	"app/internal/repository"
	auth "app/internal/usecase/auth_usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type VerifierMock struct{ mock.Mock }

func (m *VerifierMock) Verify(plain string, hashed string) bool {
	args := m.Called(plain, hashed)
	return args.Bool(0)
}

type IssuerMock struct{ mock.Mock }

func (m *IssuerMock) Issue(userID int64, role model.Role, now time.Time) (string, time.Time, error) {
	args := m.Called(userID, role, now)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func TestLogin_UnknownUser(t *testing.T) {
	repo := new(UserRepoMock)
	verifier := new(VerifierMock)
	issuer := new(IssuerMock)
	uc := auth.NewLoginUsecase(repo, verifier, issuer, fixedClock{testNow})

	repo.On("FindByUsername", mock.Anything, "nobody").Return(model.User{}, repository.ErrUserNotFound)

	_, err := uc.Execute(context.Background(), auth.LoginInput{Username: "nobody", Password: "password123"})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLogin_WrongPassword(t *testing.T) {
	repo := new(UserRepoMock)
	verifier := new(VerifierMock)
	issuer := new(IssuerMock)
	uc := auth.NewLoginUsecase(repo, verifier, issuer, fixedClock{testNow})

	repo.On("FindByUsername", mock.Anything, "alice").Return(model.User{
		ID: 7, Username: "alice", PasswordHash: "hashed-pw", Role: model.RoleUser, IsActive: true,
	}, nil)
	verifier.On("Verify", "wrong", "hashed-pw").Return(false)

	_, err := uc.Execute(context.Background(), auth.LoginInput{Username: "alice", Password: "wrong"})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	issuer.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_InactiveUser(t *testing.T) {
	repo := new(UserRepoMock)
	verifier := new(VerifierMock)
	issuer := new(IssuerMock)
	uc := auth.NewLoginUsecase(repo, verifier, issuer, fixedClock{testNow})

	repo.On("FindByUsername", mock.Anything, "alice").Return(model.User{
		ID: 7, Username: "alice", PasswordHash: "hashed-pw", IsActive: false,
	}, nil)

	_, err := uc.Execute(context.Background(), auth.LoginInput{Username: "alice", Password: "password123"})
	assert.ErrorIs(t, err, auth.ErrUserInactive)

	//停止ユーザーはパスワード照合前に弾く
	verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
}

func TestLogin_Success(t *testing.T) {
	repo := new(UserRepoMock)
	verifier := new(VerifierMock)
	issuer := new(IssuerMock)
	uc := auth.NewLoginUsecase(repo, verifier, issuer, fixedClock{testNow})

	repo.On("FindByUsername", mock.Anything, "alice").Return(model.User{
		ID: 7, Username: "alice", PasswordHash: "hashed-pw", Role: model.RoleAdmin, IsActive: true,
	}, nil)
	verifier.On("Verify", "password123", "hashed-pw").Return(true)
	issuer.On("Issue", int64(7), model.RoleAdmin, testNow).
		Return("signed.jwt.token", testNow.Add(15*time.Minute), nil)

	out, err := uc.Execute(context.Background(), auth.LoginInput{Username: "alice", Password: "password123"})
	assert.NoError(t, err)
	assert.Equal(t, "signed.jwt.token", out.Token.AccessToken)
	assert.Equal(t, 15*60, out.Token.ExpiresIn)
	assert.Equal(t, int64(7), out.User.ID)
	//レスポンスにハッシュを含めない
	assert.Equal(t, "", out.User.PasswordHash)

	repo.AssertExpectations(t)
	verifier.AssertExpectations(t)
	issuer.AssertExpectations(t)
}
