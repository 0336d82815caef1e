package ledger

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger/internal/models"
	"wallet-ledger/internal/storage"

	"github.com/shopspring/decimal"
)

type sourceState struct {
	amount  decimal.Decimal
	version int64
}

func (l *Ledger) loadSource(ctx context.Context, tx *storage.Tx, userID string, ref models.SourceRef) (*sourceState, error) {
	switch ref.Kind() {
	case models.SourceBank:
		b, err := tx.GetBankAccount(ctx, userID, ref.ID())
		if err != nil {
			return nil, sourceErr(ref, err)
		}
		return &sourceState{amount: b.Balance, version: b.Version}, nil
	case models.SourceCreditCard:
		c, err := tx.GetCreditCard(ctx, userID, ref.ID())
		if err != nil {
			return nil, sourceErr(ref, err)
		}
		return &sourceState{amount: c.DueAmount, version: c.Version}, nil
	case models.SourceCash:
		w, err := tx.EnsureCashWallet(ctx, userID, l.now())
		if err != nil {
			return nil, err
		}
		return &sourceState{amount: w.Balance, version: w.Version}, nil
	}
	return nil, fmt.Errorf("%w: no payment source given", models.ErrMissingSourceSelection)
}

func sourceErr(ref models.SourceRef, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", models.ErrSourceNotFound, ref)
	}
	return err
}

// GetBalance returns the balance of a bank account or the cash wallet, or
// the due amount of a credit card.
func (l *Ledger) GetBalance(ctx context.Context, tx *storage.Tx, userID string, ref models.SourceRef) (decimal.Decimal, error) {
	s, err := l.loadSource(ctx, tx, userID, ref)
	if err != nil {
		return decimal.Zero, err
	}
	return s.amount, nil
}

// balanceChange describes why AdjustBalance is being called.
type balanceChange struct {
	action    models.BalanceAction
	expenseID string
}

// AdjustBalance adds delta to a source inside tx and returns the new amount.
// Bank and cash balances refuse a negative delta that would leave them below
// zero. Credit card due amounts are clamped at zero instead. A zero delta
// only checks that the source exists.
func (l *Ledger) AdjustBalance(ctx context.Context, tx *storage.Tx, userID string, ref models.SourceRef, delta decimal.Decimal, why balanceChange) (decimal.Decimal, error) {
	s, err := l.loadSource(ctx, tx, userID, ref)
	if err != nil {
		return decimal.Zero, err
	}
	if delta.IsZero() {
		return s.amount, nil
	}

	next, err := applyDelta(ref, s.amount, delta)
	if err != nil {
		return s.amount, err
	}

	now := l.now()
	if err := tx.SetSourceAmount(ctx, userID, ref, next, s.version, now); err != nil {
		return s.amount, err
	}
	err = tx.InsertBalanceChange(ctx, userID, &models.BalanceChange{
		Source:    ref,
		Action:    why.action,
		Amount:    next.Sub(s.amount),
		Before:    s.amount,
		After:     next,
		ExpenseID: why.expenseID,
		CreatedAt: now,
	})
	if err != nil {
		return s.amount, err
	}
	return next, nil
}

func applyDelta(ref models.SourceRef, current, delta decimal.Decimal) (decimal.Decimal, error) {
	next := current.Add(delta)
	if ref.Debits() {
		if delta.IsNegative() && next.IsNegative() {
			return current, fmt.Errorf("%w: %s has %s, needs %s",
				models.ErrInsufficientFunds, ref, current.StringFixed(2), delta.Neg().StringFixed(2))
		}
		return next, nil
	}
	if next.IsNegative() {
		return decimal.Zero, nil
	}
	return next, nil
}

// spendDelta is the change an expense of amount makes to ref: balances go
// down, card dues go up.
func spendDelta(ref models.SourceRef, amount decimal.Decimal) decimal.Decimal {
	if ref.Debits() {
		return amount.Neg()
	}
	return amount
}
