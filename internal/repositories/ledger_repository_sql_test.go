package repositories

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"vaultledger/internal/models"
)

// sqlRecorder is a gorm logger that keeps every statement it is shown.
type sqlRecorder struct {
	mu    sync.Mutex
	stmts []string
}

func (r *sqlRecorder) LogMode(logger.LogLevel) logger.Interface      { return r }
func (r *sqlRecorder) Info(context.Context, string, ...interface{})  {}
func (r *sqlRecorder) Warn(context.Context, string, ...interface{})  {}
func (r *sqlRecorder) Error(context.Context, string, ...interface{}) {}

func (r *sqlRecorder) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	sql, _ := fc()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stmts = append(r.stmts, sql)
}

func (r *sqlRecorder) last(t *testing.T) string {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.stmts)
	return r.stmts[len(r.stmts)-1]
}

// newDryRunRepository builds the postgres store on a session that renders
// SQL without a server.
func newDryRunRepository(t *testing.T) (*ledgerRepository, *sqlRecorder) {
	t.Helper()
	rec := &sqlRecorder{}
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=vault password=vault dbname=vault port=5432 sslmode=disable",
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               rec,
	})
	require.NoError(t, err)
	return NewLedgerRepository(db, nil, zap.NewNop()).(*ledgerRepository), rec
}

func TestLockAccountSelectsForUpdate(t *testing.T) {
	repo, rec := newDryRunRepository(t)
	_, _ = repo.LockAccount(context.Background(), 42)

	sql := rec.last(t)
	assert.Contains(t, sql, `FROM "accounts"`)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(sql), "FOR UPDATE"), sql)
}

func TestLockEntrySelectsForUpdate(t *testing.T) {
	repo, rec := newDryRunRepository(t)
	_, _ = repo.LockEntry(context.Background(), 7)

	sql := rec.last(t)
	assert.Contains(t, sql, `FROM "ledger_entries"`)
	assert.Contains(t, sql, "FOR UPDATE")
}

func TestTakeStagedWithdrawalDeletesReturning(t *testing.T) {
	repo, rec := newDryRunRepository(t)
	_, _ = repo.TakeStagedWithdrawal(context.Background(), 9)

	sql := rec.last(t)
	assert.True(t, strings.HasPrefix(sql, `DELETE FROM "staged_withdrawals"`), sql)
	assert.Contains(t, sql, "account_id = 9")
	assert.Contains(t, sql, "RETURNING")
}

func TestReplaceStagedWithdrawalUpserts(t *testing.T) {
	repo, rec := newDryRunRepository(t)
	err := repo.ReplaceStagedWithdrawal(context.Background(), &models.StagedWithdrawal{
		AccountID: 9,
		Channel:   models.ChannelPaypal,
		CodeHash:  "hash",
		ExpiresAt: time.Date(2026, 1, 1, 0, 10, 0, 0, time.UTC),
		Asset:     models.AssetBNB,
		Amount:    decimal.NewFromInt(1),
	})
	require.NoError(t, err)

	sql := rec.last(t)
	assert.True(t, strings.HasPrefix(sql, `INSERT INTO "staged_withdrawals"`), sql)
	assert.Contains(t, sql, `ON CONFLICT ("account_id") DO UPDATE`)
	assert.Contains(t, sql, `"code_hash"="excluded"."code_hash"`)
}
