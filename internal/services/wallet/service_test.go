package wallet

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vaultledger/internal/config"
	apperrors "vaultledger/internal/errors"
	"vaultledger/internal/models"
	"vaultledger/internal/repositories"
	"vaultledger/internal/repositories/memory"
	"vaultledger/internal/services/notification"
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

type fixedAddresses struct{}

func (fixedAddresses) Address(asset models.Asset) string { return "EXT-" + string(asset) }
func (fixedAddresses) TxHash() string                    { return "0xhash" }

var templates = config.Templates{
	AdminBalanceCredit: "tpl-credit",
	AdminBalanceDebit:  "tpl-debit",
}

func newTestService(t *testing.T) (*service, *memory.LedgerRepository, *MockPrices, *MockNotifier) {
	t.Helper()
	repo := memory.NewLedgerRepository()
	prices := new(MockPrices)
	notifier := new(MockNotifier)
	svc := NewService(repo, prices, fixedAddresses{}, notifier, templates, nil, nil).(*service)
	return svc, repo, prices, notifier
}

func createAccount(t *testing.T, repo repositories.LedgerRepository, email string) *models.Account {
	t.Helper()
	acct := &models.Account{Email: email, Name: "Ada", ReferralCode: "RC-" + email}
	require.NoError(t, repo.CreateAccount(context.Background(), acct))
	return acct
}

func TestAdjustBalance(t *testing.T) {
	tests := []struct {
		name      string
		initial   string
		amount    string
		wantDir   models.Direction
		wantAmt   string
		wantTpl   string
		wantEntry bool
	}{
		{"debit from 100 to 80", "100", "80", models.DirectionSend, "20", "tpl-debit", true},
		{"credit from 0 to 2.5", "0", "2.5", models.DirectionReceive, "2.5", "tpl-credit", true},
		{"same amount is a no-op", "7", "7", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc, repo, prices, notifier := newTestService(t)
			acct := createAccount(t, repo, "adjust@example.com")

			prices.On("Price", mock.Anything, models.AssetETH).Return(decimal.NewFromInt(2000), nil)
			notifier.On("Notify", mock.Anything, mock.Anything).Return()

			if tt.initial != "0" {
				_, err := svc.AdjustBalance(ctx, AdjustRequest{AccountID: acct.ID, Asset: "eth", Amount: tt.initial})
				require.NoError(t, err)
			}
			before := repo.EntryCount()
			notifier.Calls = nil

			res, err := svc.AdjustBalance(ctx, AdjustRequest{AccountID: acct.ID, Asset: "ETH", Amount: tt.amount})
			require.NoError(t, err)

			stored, err := repo.GetAccount(ctx, acct.ID)
			require.NoError(t, err)
			assert.True(t, stored.Balances.Get(models.AssetETH).Equal(decimal.RequireFromString(tt.amount)))

			if !tt.wantEntry {
				assert.Nil(t, res.Entry)
				assert.Equal(t, before, repo.EntryCount())
				notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
				return
			}

			require.NotNil(t, res.Entry)
			assert.Equal(t, before+1, repo.EntryCount())
			assert.Equal(t, tt.wantDir, res.Entry.Direction)
			assert.True(t, res.Entry.Amount.Equal(decimal.RequireFromString(tt.wantAmt)))
			assert.Equal(t, models.KindAdminAdjustment, res.Entry.Kind())
			assert.Equal(t, models.StatusCompleted, res.Entry.Status)
			assert.True(t, res.Entry.Value.Equal(res.Entry.Amount.Mul(decimal.NewFromInt(2000))))

			require.Len(t, notifier.Calls, 1)
			msg := notifier.Calls[0].Arguments.Get(1).(notification.Message)
			assert.Equal(t, tt.wantTpl, msg.Template)
			assert.Equal(t, "adjust@example.com", msg.Email)
			assert.Equal(t, tt.amount, msg.Variables["newBalance"])
		})
	}
}

func TestAdjustBalanceRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		asset   string
		amount  string
		wantErr error
	}{
		{"unknown asset", "dot", "1", apperrors.ErrInvalidAsset},
		{"non numeric", "btc", "ten", apperrors.ErrInvalidAmount},
		{"negative", "btc", "-1", apperrors.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _, _ := newTestService(t)
			acct := createAccount(t, repo, "bad@example.com")

			_, err := svc.AdjustBalance(context.Background(), AdjustRequest{AccountID: acct.ID, Asset: tt.asset, Amount: tt.amount})
			assert.True(t, stderrors.Is(err, tt.wantErr))
			assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
			assert.Equal(t, 0, repo.EntryCount())
		})
	}
}

func TestAdjustBalanceUnknownAccount(t *testing.T) {
	svc, _, prices, _ := newTestService(t)
	prices.On("Price", mock.Anything, models.AssetBTC).Return(decimal.NewFromInt(1), nil)

	_, err := svc.AdjustBalance(context.Background(), AdjustRequest{AccountID: 404, Asset: "btc", Amount: "1"})
	assert.True(t, stderrors.Is(err, apperrors.ErrAccountNotFound))
}

func TestAdjustBalanceToleratesMissingPrice(t *testing.T) {
	svc, repo, prices, notifier := newTestService(t)
	acct := createAccount(t, repo, "noprice@example.com")
	prices.On("Price", mock.Anything, models.AssetSOL).Return(decimal.Zero, stderrors.New("upstream down"))
	notifier.On("Notify", mock.Anything, mock.Anything).Return()

	res, err := svc.AdjustBalance(context.Background(), AdjustRequest{AccountID: acct.ID, Asset: "sol", Amount: "3"})
	require.NoError(t, err)
	require.NotNil(t, res.Entry)
	assert.True(t, res.Entry.Value.IsZero())
	assert.True(t, res.Entry.Price.IsZero())
}

func TestEveryMutationHasOneMatchingEntry(t *testing.T) {
	ctx := context.Background()
	svc, repo, prices, notifier := newTestService(t)
	acct := createAccount(t, repo, "invariant@example.com")
	prices.On("Price", mock.Anything, mock.Anything).Return(decimal.NewFromInt(10), nil)
	notifier.On("Notify", mock.Anything, mock.Anything).Return()

	targets := []string{"5", "5", "12.75", "0", "0.000001", "100"}
	for _, target := range targets {
		before, err := repo.GetAccount(ctx, acct.ID)
		require.NoError(t, err)
		count := repo.EntryCount()

		res, err := svc.AdjustBalance(ctx, AdjustRequest{AccountID: acct.ID, Asset: "ltc", Amount: target})
		require.NoError(t, err)

		delta := res.Account.Balances.Get(models.AssetLTC).Sub(before.Balances.Get(models.AssetLTC))
		if delta.IsZero() {
			assert.Nil(t, res.Entry)
			assert.Equal(t, count, repo.EntryCount())
			continue
		}
		require.NotNil(t, res.Entry)
		assert.Equal(t, count+1, repo.EntryCount())
		assert.True(t, delta.Equal(res.Entry.SignedAmount()), "delta %s entry %s", delta, res.Entry.SignedAmount())
	}
}

func TestApplyRejectsOverdraftWithoutSideEffects(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _ := newTestService(t)
	acct := createAccount(t, repo, "overdraft@example.com")

	err := repo.ExecuteInTransaction(ctx, func(tx repositories.LedgerRepository) error {
		locked, err := tx.LockAccount(ctx, acct.ID)
		require.NoError(t, err)
		_, err = svc.Apply(ctx, tx, locked, Mutation{Asset: models.AssetBTC, Delta: decimal.NewFromInt(-1), Kind: models.KindAdminAdjustment})
		return err
	})
	assert.True(t, stderrors.Is(err, apperrors.ErrInsufficientBalance))
	assert.Equal(t, 0, repo.EntryCount())
}

func TestApplyRecordsAddressesByDirection(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _ := newTestService(t)
	acct := createAccount(t, repo, "addr@example.com")

	var credit, debit *models.LedgerEntry
	err := repo.ExecuteInTransaction(ctx, func(tx repositories.LedgerRepository) error {
		locked, err := tx.LockAccount(ctx, acct.ID)
		if err != nil {
			return err
		}
		credit, err = svc.Apply(ctx, tx, locked, Mutation{Asset: models.AssetDOGE, Delta: decimal.NewFromInt(3), Kind: models.KindSpinReward, Counterparty: SpinCounterparty})
		if err != nil {
			return err
		}
		debit, err = svc.Apply(ctx, tx, locked, Mutation{Asset: models.AssetDOGE, Delta: decimal.NewFromInt(-1), Kind: models.KindAdminAdjustment})
		return err
	})
	require.NoError(t, err)

	stored, err := repo.GetAccount(ctx, acct.ID)
	require.NoError(t, err)
	own := stored.Addresses[models.AssetDOGE]
	assert.Equal(t, "EXT-doge", own)

	assert.Equal(t, SpinCounterparty, credit.FromAddress)
	assert.Equal(t, own, credit.ToAddress)
	assert.Equal(t, own, debit.FromAddress)
	assert.True(t, stored.Balances.Get(models.AssetDOGE).Equal(decimal.NewFromInt(2)))
}

func TestConcurrentCreditsAreSerialized(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _ := newTestService(t)
	acct := createAccount(t, repo, "race@example.com")

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.ExecuteInTransaction(ctx, func(tx repositories.LedgerRepository) error {
				locked, err := tx.LockAccount(ctx, acct.ID)
				if err != nil {
					return err
				}
				_, err = svc.Apply(ctx, tx, locked, Mutation{Asset: models.AssetTRX, Delta: decimal.NewFromInt(1), Kind: models.KindSpinReward})
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := repo.GetAccount(ctx, acct.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balances.Get(models.AssetTRX).Equal(decimal.NewFromInt(25)))
	assert.Equal(t, 25, repo.EntryCount())
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	svc, repo, prices, notifier := newTestService(t)
	acct := createAccount(t, repo, "history@example.com")
	prices.On("Price", mock.Anything, mock.Anything).Return(decimal.NewFromInt(1), nil)
	notifier.On("Notify", mock.Anything, mock.Anything).Return()

	for _, amt := range []string{"10", "4", "9"} {
		_, err := svc.AdjustBalance(ctx, AdjustRequest{AccountID: acct.ID, Asset: "bnb", Amount: amt})
		require.NoError(t, err)
	}

	page, err := svc.History(ctx, HistoryQuery{AccountID: acct.ID, Type: "sent"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	page, err = svc.History(ctx, HistoryQuery{AccountID: acct.ID, Asset: "BNB", Type: "received"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	_, err = svc.History(ctx, HistoryQuery{AccountID: acct.ID, Type: "weird"})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	overview, err := svc.GetOverview(ctx, acct.ID)
	require.NoError(t, err)
	assert.Len(t, overview.Balances, len(models.Assets))
	assert.True(t, overview.Balances.Get(models.AssetBNB).Equal(decimal.NewFromInt(9)))
}

func TestGetEntryIsOwnerScoped(t *testing.T) {
	ctx := context.Background()
	svc, repo, prices, notifier := newTestService(t)
	owner := createAccount(t, repo, "owner@example.com")
	other := createAccount(t, repo, "other@example.com")
	prices.On("Price", mock.Anything, mock.Anything).Return(decimal.NewFromInt(1), nil)
	notifier.On("Notify", mock.Anything, mock.Anything).Return()

	res, err := svc.AdjustBalance(ctx, AdjustRequest{AccountID: owner.ID, Asset: "eth", Amount: "3"})
	require.NoError(t, err)
	require.NotNil(t, res.Entry)

	entry, err := svc.GetEntry(ctx, owner.ID, res.Entry.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Entry.Reference, entry.Reference)

	_, err = svc.GetEntry(ctx, other.ID, res.Entry.ID)
	assert.ErrorIs(t, err, apperrors.ErrEntryNotFound)

	_, err = svc.GetEntry(ctx, owner.ID, res.Entry.ID+100)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	svc, repo, prices, notifier := newTestService(t)
	acct := createAccount(t, repo, "stats@example.com")
	other := createAccount(t, repo, "bystander@example.com")
	prices.On("Price", mock.Anything, mock.Anything).Return(decimal.NewFromInt(2), nil)
	notifier.On("Notify", mock.Anything, mock.Anything).Return()

	for _, amt := range []string{"10", "4"} {
		_, err := svc.AdjustBalance(ctx, AdjustRequest{AccountID: acct.ID, Asset: "bnb", Amount: amt})
		require.NoError(t, err)
	}
	_, err := svc.AdjustBalance(ctx, AdjustRequest{AccountID: other.ID, Asset: "bnb", Amount: "50"})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, acct.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.Recent)
	assert.Equal(t, int64(0), stats.Pending)
	require.Len(t, stats.Today.Received, 1)
	assert.Equal(t, models.AssetBNB, stats.Today.Received[0].Asset)
	assert.True(t, stats.Today.Received[0].Amount.Equal(decimal.NewFromInt(10)))
	assert.True(t, stats.Today.Received[0].Value.Equal(decimal.NewFromInt(20)))
	require.Len(t, stats.Today.Sent, 1)
	assert.Equal(t, int64(1), stats.Today.Sent[0].Count)
	assert.True(t, stats.Today.Sent[0].Amount.Equal(decimal.NewFromInt(6)))
}
