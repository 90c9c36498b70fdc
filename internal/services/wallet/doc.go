/*
Package wallet owns every balance change in the system.

The Service is the only writer of Account.Balances. Each non-zero change is
persisted together with exactly one LedgerEntry whose signed amount equals the
change, inside the caller's store transaction:

	err := repo.ExecuteInTransaction(ctx, func(tx repositories.LedgerRepository) error {
	    acct, err := tx.LockAccount(ctx, id)
	    if err != nil {
	        return err
	    }
	    _, err = svc.Apply(ctx, tx, acct, wallet.Mutation{
	        Asset: models.AssetBTC,
	        Delta: decimal.NewFromInt(1),
	        Kind:  models.KindSpinReward,
	    })
	    return err
	})

A zero delta is a successful no-op and records nothing.

Admin balance edits go through AdjustBalance, which takes an absolute target
amount and derives the delta under the account's row lock.

Prices are quoted before the transaction starts. A missing price records a
zero quote value rather than failing the mutation. Notifications are handed to
a non-blocking Notifier after commit.
*/
package wallet
