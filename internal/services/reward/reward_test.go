package reward

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vaultledger/internal/config"
	apperrors "vaultledger/internal/errors"
	"vaultledger/internal/models"
	"vaultledger/internal/repositories/memory"
	"vaultledger/internal/services/notification"
	"vaultledger/internal/services/wallet"
)

type MockPrices struct {
	mock.Mock
}

func (m *MockPrices) Price(ctx context.Context, asset models.Asset) (decimal.Decimal, error) {
	args := m.Called(ctx, asset)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, msg notification.Message) {
	m.Called(ctx, msg)
}

type fixture struct {
	svc      *service
	repo     *memory.LedgerRepository
	prices   *MockPrices
	notifier *MockNotifier
	clock    time.Time
}

func newFixture(t *testing.T, lossRestarts bool) *fixture {
	t.Helper()
	repo := memory.NewLedgerRepository()
	prices := new(MockPrices)
	prices.On("Price", mock.Anything, models.AssetUSDTBnb).Return(decimal.NewFromInt(1), nil).Maybe()
	notifier := new(MockNotifier)
	notifier.On("Notify", mock.Anything, mock.Anything).Return()

	ws := wallet.NewService(repo, prices, wallet.RandomAddresses{}, notifier, config.Templates{}, nil, nil)
	f := &fixture{
		repo:     repo,
		prices:   prices,
		notifier: notifier,
		clock:    time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(repo, ws, prices, Config{
		Asset:                models.AssetUSDTBnb,
		WelcomeBonus:         decimal.NewFromInt(25),
		ReferralBonus:        decimal.NewFromInt(50),
		SpinCooldown:         84 * time.Hour,
		LossRestartsCooldown: lossRestarts,
		Templates: config.Templates{
			WelcomeBonus:   "tpl-welcome",
			ReferralReward: "tpl-referral",
			SpinReward:     "tpl-spin",
		},
	}, nil, nil).(*service)
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) account(t *testing.T, email, code, referredBy string) *models.Account {
	t.Helper()
	a := &models.Account{Email: email, Name: email, ReferralCode: code, ReferredBy: referredBy}
	require.NoError(t, f.repo.CreateAccount(context.Background(), a))
	return a
}

func (f *fixture) reload(t *testing.T, id uint) *models.Account {
	t.Helper()
	a, err := f.repo.GetAccount(context.Background(), id)
	require.NoError(t, err)
	return a
}

func TestWelcomeBonusWithoutReferralCode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	a := f.account(t, "solo@example.com", "SOLO", "")

	res, err := f.svc.CreditReferralReward(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeWelcome, res.Outcome)
	require.Len(t, res.Entries, 1)

	entry := res.Entries[0]
	assert.Equal(t, models.KindWelcomeBonus, entry.Kind())
	assert.Equal(t, models.DirectionReceive, entry.Direction)
	assert.True(t, entry.Amount.Equal(decimal.NewFromInt(25)))
	assert.True(t, entry.Value.Equal(decimal.NewFromInt(25)))

	stored := f.reload(t, a.ID)
	assert.True(t, stored.ReferralRewarded)
	assert.True(t, stored.Balances.Get(models.AssetUSDTBnb).Equal(decimal.NewFromInt(25)))
	assert.Equal(t, 1, f.repo.EntryCount())

	res, err = f.svc.CreditReferralReward(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNone, res.Outcome)
	assert.True(t, f.reload(t, a.ID).Balances.Get(models.AssetUSDTBnb).Equal(decimal.NewFromInt(25)))
	assert.Equal(t, 1, f.repo.EntryCount())
}

func TestReferralBonusCreditsBothOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	referrer := f.account(t, "ref@example.com", "REFCODE", "")
	referred := f.account(t, "new@example.com", "NEWCODE", "REFCODE")

	res, err := f.svc.CreditReferralReward(ctx, referred.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeReferral, res.Outcome)
	require.Len(t, res.Entries, 2)
	for _, e := range res.Entries {
		assert.Equal(t, models.KindReferralReward, e.Kind())
		assert.True(t, e.Amount.Equal(decimal.NewFromInt(50)))
	}

	fifty := decimal.NewFromInt(50)
	assert.True(t, f.reload(t, referrer.ID).Balances.Get(models.AssetUSDTBnb).Equal(fifty))
	assert.True(t, f.reload(t, referred.ID).Balances.Get(models.AssetUSDTBnb).Equal(fifty))
	assert.True(t, f.reload(t, referred.ID).ReferralRewarded)
	assert.False(t, f.reload(t, referrer.ID).ReferralRewarded)

	rewards := f.repo.ReferralRewards()
	require.Len(t, rewards, 1)
	assert.Equal(t, "ref@example.com", rewards[0].ReferrerEmail)
	assert.Equal(t, "new@example.com", rewards[0].ReferredEmail)

	res, err = f.svc.CreditReferralReward(ctx, referred.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNone, res.Outcome)
	assert.Equal(t, 2, f.repo.EntryCount())
	assert.True(t, f.reload(t, referrer.ID).Balances.Get(models.AssetUSDTBnb).Equal(fifty))
}

func TestConcurrentReferralCreditsOnce(t *testing.T) {
	f := newFixture(t, true)
	referrer := f.account(t, "ref@example.com", "REFCODE", "")
	referred := f.account(t, "new@example.com", "NEWCODE", "REFCODE")

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreditReferralReward(context.Background(), referred.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, f.repo.EntryCount())
	assert.Len(t, f.repo.ReferralRewards(), 1)
	assert.True(t, f.reload(t, referrer.ID).Balances.Get(models.AssetUSDTBnb).Equal(decimal.NewFromInt(50)))
}

func TestUnknownReferralCodeIsNoop(t *testing.T) {
	f := newFixture(t, true)
	a := f.account(t, "lost@example.com", "LOST", "NOBODY")

	res, err := f.svc.CreditReferralReward(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNone, res.Outcome)
	assert.Equal(t, 0, f.repo.EntryCount())
	assert.False(t, f.reload(t, a.ID).ReferralRewarded)
	assert.True(t, f.reload(t, a.ID).Balances.Get(models.AssetUSDTBnb).IsZero())
}

func TestSpinWinConvertsAtLivePrice(t *testing.T) {
	f := newFixture(t, true)
	a := f.account(t, "spin@example.com", "SPIN", "")
	f.prices.On("Price", mock.Anything, models.AssetBTC).Return(decimal.NewFromInt(50000), nil)

	res, err := f.svc.CreditSpinReward(context.Background(), SpinRequest{AccountID: a.ID, USDAmount: "10", PrizeLabel: "$10"})
	require.NoError(t, err)
	assert.True(t, res.Won)
	assert.True(t, res.Credited.Equal(decimal.RequireFromString("0.0002")))
	assert.True(t, res.TotalBalance.Equal(decimal.RequireFromString("0.0002")))
	require.NotNil(t, res.Entry)
	assert.Equal(t, models.KindSpinReward, res.Entry.Kind())
	assert.Equal(t, wallet.SpinCounterparty, res.Entry.FromAddress)
	assert.Equal(t, "50000", res.Entry.Metadata.String("btcPriceAtReward"))
	assert.Equal(t, "$10", res.Entry.Metadata.String("prizeLabel"))
	assert.True(t, res.Entry.Value.Equal(decimal.NewFromInt(10)))
	require.NotNil(t, res.LastSpinTime)
	assert.Equal(t, f.clock, *res.LastSpinTime)
}

func TestSpinCooldown(t *testing.T) {
	tests := []struct {
		name         string
		lossRestarts bool
		first        string
		elapsed      time.Duration
		wantErr      bool
		wantMsg      string
	}{
		{"win after win inside window", true, "5", time.Hour, true, "Please wait 83 hours before spinning again"},
		{"win after loss inside window", true, "0", 30 * time.Minute, true, "Please wait 84 hours before spinning again"},
		{"win after loss when losses are free", false, "0", 30 * time.Minute, false, ""},
		{"win after window", true, "5", 84 * time.Hour, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.lossRestarts)
			a := f.account(t, "cool@example.com", "COOL", "")
			f.prices.On("Price", mock.Anything, models.AssetBTC).Return(decimal.NewFromInt(40000), nil)

			_, err := f.svc.CreditSpinReward(context.Background(), SpinRequest{AccountID: a.ID, USDAmount: tt.first})
			require.NoError(t, err)
			entries := f.repo.EntryCount()

			f.clock = f.clock.Add(tt.elapsed)
			_, err = f.svc.CreditSpinReward(context.Background(), SpinRequest{AccountID: a.ID, USDAmount: "4"})
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, apperrors.ErrSpinCooldown)
				assert.Equal(t, tt.wantMsg, err.Error())
				assert.Equal(t, entries, f.repo.EntryCount())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, entries+1, f.repo.EntryCount())
		})
	}
}

func TestLosingSpinWithinWindowIsAccepted(t *testing.T) {
	f := newFixture(t, true)
	a := f.account(t, "loser@example.com", "LOSER", "")
	f.prices.On("Price", mock.Anything, models.AssetBTC).Return(decimal.NewFromInt(40000), nil)

	_, err := f.svc.CreditSpinReward(context.Background(), SpinRequest{AccountID: a.ID, USDAmount: "5"})
	require.NoError(t, err)
	f.clock = f.clock.Add(time.Hour)

	res, err := f.svc.CreditSpinReward(context.Background(), SpinRequest{AccountID: a.ID, USDAmount: "0"})
	require.NoError(t, err)
	assert.False(t, res.Won)
	assert.Nil(t, res.Entry)
	assert.Equal(t, f.clock, *f.reload(t, a.ID).LastSpinAt)
}

func TestSpinPriceOutageLeavesAccountUntouched(t *testing.T) {
	f := newFixture(t, true)
	a := f.account(t, "outage@example.com", "OUTAGE", "")
	f.prices.On("Price", mock.Anything, models.AssetBTC).Return(decimal.Zero, stderrors.New("timeout"))

	_, err := f.svc.CreditSpinReward(context.Background(), SpinRequest{AccountID: a.ID, USDAmount: "10"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrPriceUnavailable)
	assert.Equal(t, apperrors.KindDependencyUnavailable, apperrors.KindOf(err))

	stored := f.reload(t, a.ID)
	assert.Nil(t, stored.LastSpinAt)
	assert.Equal(t, 0, f.repo.EntryCount())
}

func TestSpinRejectsBadPrize(t *testing.T) {
	f := newFixture(t, true)
	a := f.account(t, "bad@example.com", "BAD", "")
	for _, amt := range []string{"-1", "lots", ""} {
		_, err := f.svc.CreditSpinReward(context.Background(), SpinRequest{AccountID: a.ID, USDAmount: amt})
		assert.ErrorIs(t, err, apperrors.ErrInvalidPrize, amt)
	}
}

func TestCheckSpinCooldown(t *testing.T) {
	f := newFixture(t, true)
	a := f.account(t, "check@example.com", "CHECK", "")

	av, err := f.svc.CheckSpinCooldown(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, av.CanSpin)
	assert.Nil(t, av.TimeRemaining)
	assert.Nil(t, av.LastSpinTime)

	_, err = f.svc.CreditSpinReward(context.Background(), SpinRequest{AccountID: a.ID, USDAmount: "0"})
	require.NoError(t, err)
	f.clock = f.clock.Add(4 * time.Hour)

	av, err = f.svc.CheckSpinCooldown(context.Background(), a.ID)
	require.NoError(t, err)
	assert.False(t, av.CanSpin)
	require.NotNil(t, av.TimeRemaining)
	assert.Equal(t, (80 * time.Hour).Milliseconds(), *av.TimeRemaining)

	_, err = f.svc.CheckSpinCooldown(context.Background(), 999)
	assert.ErrorIs(t, err, apperrors.ErrAccountNotFound)
}
