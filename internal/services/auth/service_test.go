package auth

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	apperrors "vaultledger/internal/errors"
	"vaultledger/internal/models"
	"vaultledger/internal/repositories/memory"
	"vaultledger/internal/services/reward"
	"vaultledger/internal/utils"
)

const testSecret = "test-secret"

type MockRewards struct {
	mock.Mock
}

func (m *MockRewards) CreditReferralReward(ctx context.Context, accountID uint) (*reward.ReferralResult, error) {
	args := m.Called(ctx, accountID)
	res, _ := args.Get(0).(*reward.ReferralResult)
	return res, args.Error(1)
}

func (m *MockRewards) CheckSpinCooldown(ctx context.Context, accountID uint) (*reward.Availability, error) {
	args := m.Called(ctx, accountID)
	res, _ := args.Get(0).(*reward.Availability)
	return res, args.Error(1)
}

func (m *MockRewards) CreditSpinReward(ctx context.Context, req reward.SpinRequest) (*reward.SpinResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*reward.SpinResult)
	return res, args.Error(1)
}

func newTestService(t *testing.T) (Service, *memory.LedgerRepository, *MockRewards) {
	t.Helper()
	repo := memory.NewLedgerRepository()
	rewards := new(MockRewards)
	return NewService(repo, rewards, testSecret, nil), repo, rewards
}

func TestRegister(t *testing.T) {
	svc, repo, rewards := newTestService(t)
	ctx := context.Background()
	rewards.On("CreditReferralReward", mock.Anything, mock.AnythingOfType("uint")).
		Return(&reward.ReferralResult{Outcome: reward.OutcomeWelcome}, nil).Once()

	session, err := svc.Register(ctx, RegisterRequest{
		Name:         "Ada",
		Email:        " Ada@Example.com ",
		Password:     "s3cret!pass",
		ReferralCode: "FRIEND01",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
	assert.NotEmpty(t, session.RefreshToken)

	stored, err := repo.GetAccountByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "FRIEND01", stored.ReferredBy)
	assert.Len(t, stored.ReferralCode, 8)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cret!pass")))
	rewards.AssertExpectations(t)
}

func TestRegisterRejectsBadInput(t *testing.T) {
	svc, _, rewards := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{"missing email", RegisterRequest{Name: "Ada", Password: "s3cret!pass"}},
		{"bad email", RegisterRequest{Name: "Ada", Email: "nope", Password: "s3cret!pass"}},
		{"weak password", RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "password"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.req)
			assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
		})
	}
	rewards.AssertNotCalled(t, "CreditReferralReward", mock.Anything, mock.Anything)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, rewards := newTestService(t)
	ctx := context.Background()
	rewards.On("CreditReferralReward", mock.Anything, mock.Anything).Return(&reward.ReferralResult{}, nil)

	req := RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "s3cret!pass"}
	_, err := svc.Register(ctx, req)
	require.NoError(t, err)

	_, err = svc.Register(ctx, req)
	assert.True(t, stderrors.Is(err, apperrors.ErrEmailTaken))
}

func TestRegisterSurvivesRewardFailure(t *testing.T) {
	svc, _, rewards := newTestService(t)
	rewards.On("CreditReferralReward", mock.Anything, mock.Anything).
		Return(nil, apperrors.ErrPersistence)

	session, err := svc.Register(context.Background(), RegisterRequest{
		Name: "Ada", Email: "ada@example.com", Password: "s3cret!pass",
	})
	require.NoError(t, err)
	assert.False(t, session.Account.ReferralRewarded)
}

func TestLogin(t *testing.T) {
	svc, _, rewards := newTestService(t)
	ctx := context.Background()
	rewards.On("CreditReferralReward", mock.Anything, mock.Anything).Return(&reward.ReferralResult{}, nil)

	_, err := svc.Register(ctx, RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "s3cret!pass"})
	require.NoError(t, err)

	session, err := svc.Login(ctx, "ADA@example.com", "s3cret!pass")
	require.NoError(t, err)

	_, claims, err := utils.ParseToken(testSecret, session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, session.Account.ID, claims.UserID)
	assert.Equal(t, models.RoleUser, claims.Role)

	_, err = svc.Login(ctx, "ada@example.com", "wrong!pass")
	assert.True(t, stderrors.Is(err, apperrors.ErrInvalidCredentials))

	_, err = svc.Login(ctx, "nobody@example.com", "s3cret!pass")
	assert.True(t, stderrors.Is(err, apperrors.ErrInvalidCredentials))
}

func TestLogoutInvalidatesRefreshToken(t *testing.T) {
	svc, _, rewards := newTestService(t)
	ctx := context.Background()
	rewards.On("CreditReferralReward", mock.Anything, mock.Anything).Return(&reward.ReferralResult{}, nil)

	session, err := svc.Register(ctx, RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "s3cret!pass"})
	require.NoError(t, err)

	_, _, err = svc.RefreshTokens(ctx, session.RefreshToken)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, session.Account.ID))
	version, err := svc.GetTokenVersion(ctx, session.Account.ID)
	require.NoError(t, err)
	assert.Equal(t, session.Account.TokenVersion+1, version)

	_, _, err = svc.RefreshTokens(ctx, session.RefreshToken)
	assert.True(t, stderrors.Is(err, apperrors.ErrInvalidToken))

	_, _, err = svc.RefreshTokens(ctx, "garbage")
	assert.True(t, stderrors.Is(err, apperrors.ErrInvalidToken))
}

func TestChangePassword(t *testing.T) {
	svc, _, rewards := newTestService(t)
	ctx := context.Background()
	rewards.On("CreditReferralReward", mock.Anything, mock.Anything).Return(&reward.ReferralResult{}, nil)

	session, err := svc.Register(ctx, RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "s3cret!pass"})
	require.NoError(t, err)
	id := session.Account.ID

	err = svc.ChangePassword(ctx, id, "wrong!pass", "n3w!password")
	assert.True(t, stderrors.Is(err, apperrors.ErrInvalidCredentials))

	err = svc.ChangePassword(ctx, id, "s3cret!pass", "short")
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	require.NoError(t, svc.ChangePassword(ctx, id, "s3cret!pass", "n3w!password"))
	_, err = svc.Login(ctx, "ada@example.com", "n3w!password")
	assert.NoError(t, err)
}
