package withdrawal

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "vaultledger/internal/errors"
	"vaultledger/internal/models"
	"vaultledger/internal/repositories/memory"
)

func TestSweepRemovesOnlyExpiredRequests(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewLedgerRepository()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	var ids []uint
	for _, email := range []string{"a@example.com", "b@example.com"} {
		acct := &models.Account{Email: email, Name: email, ReferralCode: email}
		require.NoError(t, repo.CreateAccount(ctx, acct))
		ids = append(ids, acct.ID)
	}
	stage := func(id uint, expires time.Time) {
		require.NoError(t, repo.ReplaceStagedWithdrawal(ctx, &models.StagedWithdrawal{
			AccountID: id,
			Channel:   models.ChannelPaypal,
			CodeHash:  "h",
			ExpiresAt: expires,
			Asset:     models.AssetBTC,
			Amount:    decimal.NewFromInt(1),
		}))
	}
	stage(ids[0], now.Add(-time.Second))
	stage(ids[1], now.Add(time.Minute))

	sweeper, err := NewSweeper(repo, time.Minute, nil)
	require.NoError(t, err)
	defer sweeper.Stop()
	sweeper.now = func() time.Time { return now }

	n, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.TakeStagedWithdrawal(ctx, ids[0])
	assert.ErrorIs(t, err, apperrors.ErrNoStagedWithdrawal)
	_, err = repo.TakeStagedWithdrawal(ctx, ids[1])
	assert.NoError(t, err)
}
