// Package ledger owns the canonical in-memory collections and every mutation
// over them. Account balances are never patched incrementally: after each
// change to the transaction log the full log is replayed against the
// accounts' initial balances.
package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/avetrov/ledgerkeep/internal/model"
)

// Recompute replays the transaction log against the accounts' initial
// balances and returns new account values with derived balances. It is pure
// and order-independent: only commutative additions and subtractions are
// applied, so any permutation of the log yields the same result.
// Transactions referencing an unknown account contribute nothing.
func Recompute(accounts []model.Account, transactions []model.Transaction) []model.Account {
	out := make([]model.Account, len(accounts))
	index := make(map[string]int, len(accounts))
	for i, acc := range accounts {
		acc.Balance = acc.InitialBalance
		out[i] = acc
		index[acc.ID] = i
	}

	for _, tx := range transactions {
		switch tx.Type {
		case model.TxIncome, model.TxAdjust:
			// Adjust entries carry a signed delta, so addition covers both
			// upward and downward corrections.
			if i, ok := index[tx.AccountID]; ok {
				out[i].Balance = out[i].Balance.Add(tx.Amount)
			}
		case model.TxExpense:
			if i, ok := index[tx.AccountID]; ok {
				out[i].Balance = out[i].Balance.Sub(tx.Amount)
			}
		case model.TxTransfer:
			if i, ok := index[tx.AccountID]; ok {
				out[i].Balance = out[i].Balance.Sub(tx.Amount)
			}
			if i, ok := index[tx.ToAccountID]; ok {
				out[i].Balance = out[i].Balance.Add(tx.Amount)
			}
		}
	}
	return out
}

// replayedBalance computes a single account's balance from its initial
// balance and the transactions touching it. Used by the balance-correction
// path to find the delta an adjust entry must carry.
func replayedBalance(account model.Account, transactions []model.Transaction) decimal.Decimal {
	balance := account.InitialBalance
	for _, tx := range transactions {
		switch tx.Type {
		case model.TxIncome, model.TxAdjust:
			if tx.AccountID == account.ID {
				balance = balance.Add(tx.Amount)
			}
		case model.TxExpense:
			if tx.AccountID == account.ID {
				balance = balance.Sub(tx.Amount)
			}
		case model.TxTransfer:
			if tx.AccountID == account.ID {
				balance = balance.Sub(tx.Amount)
			}
			if tx.ToAccountID == account.ID {
				balance = balance.Add(tx.Amount)
			}
		}
	}
	return balance
}
