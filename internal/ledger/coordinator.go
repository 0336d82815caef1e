package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wallet-ledger/internal/events"
	"wallet-ledger/internal/models"
	"wallet-ledger/internal/storage"

	"github.com/google/uuid"
)

func expenseErr(id string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", models.ErrExpenseNotFound, id)
	}
	return err
}

// CreateExpense records a new expense and charges it to its payment source.
// Either both happen or neither does.
func (l *Ledger) CreateExpense(ctx context.Context, userID string, draft models.ExpenseDraft) (*models.Expense, error) {
	if err := models.Validate(draft); err != nil {
		return nil, err
	}
	ref, err := draft.Source()
	if err != nil {
		return nil, err
	}

	now := l.now().UTC()
	e := &models.Expense{
		ID:          uuid.NewString(),
		Amount:      draft.Amount,
		Currency:    l.currencyOr(draft.Currency),
		Category:    draft.Category,
		Purpose:     strings.TrimSpace(draft.Purpose),
		Source:      ref,
		Date:        now,
		Attachments: attachmentsOf(draft.Attachments),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if !draft.Date.IsZero() {
		e.Date = draft.Date.UTC()
	}

	err = l.db.WithTx(ctx, func(tx *storage.Tx) error {
		why := balanceChange{action: models.ActionCreate, expenseID: e.ID}
		if _, err := l.AdjustBalance(ctx, tx, userID, ref, spendDelta(ref, e.Amount), why); err != nil {
			return err
		}
		return tx.InsertExpense(ctx, userID, e)
	})
	if err != nil {
		return nil, l.fail("create expense", err)
	}

	l.logger.Info("expense created", "user_id", userID, "expense_id", e.ID, "source", ref.String(), "amount", e.Amount.String())
	l.publish(ctx, events.ExpenseCreated, userID, e.ID)
	l.publish(ctx, events.WalletChanged, userID, ref.String())
	return e, nil
}

// UpdateExpense replaces the editable fields of an expense and moves its
// balance effect. When the source is unchanged a single net delta is applied
// to it. Otherwise the old source is refunded and the new one is charged,
// and a failure on the new source undoes the refund.
func (l *Ledger) UpdateExpense(ctx context.Context, userID, id string, draft models.ExpenseDraft) (*models.Expense, error) {
	if err := models.Validate(draft); err != nil {
		return nil, err
	}
	ref, err := draft.Source()
	if err != nil {
		return nil, err
	}

	var (
		updated *models.Expense
		oldRef  models.SourceRef
	)
	err = l.db.WithTx(ctx, func(tx *storage.Tx) error {
		old, err := tx.GetExpense(ctx, userID, id)
		if err != nil {
			return expenseErr(id, err)
		}
		oldRef = old.Source

		why := balanceChange{action: models.ActionUpdate, expenseID: id}
		if old.Source == ref {
			delta := spendDelta(ref, draft.Amount).Sub(spendDelta(ref, old.Amount))
			if _, err := l.AdjustBalance(ctx, tx, userID, ref, delta, why); err != nil {
				return err
			}
		} else {
			if _, err := l.AdjustBalance(ctx, tx, userID, old.Source, spendDelta(old.Source, old.Amount).Neg(), why); err != nil {
				return err
			}
			if _, err := l.AdjustBalance(ctx, tx, userID, ref, spendDelta(ref, draft.Amount), why); err != nil {
				return err
			}
		}

		updated = &models.Expense{
			ID:          old.ID,
			Amount:      draft.Amount,
			Currency:    old.Currency,
			Category:    draft.Category,
			Purpose:     strings.TrimSpace(draft.Purpose),
			Source:      ref,
			Date:        old.Date,
			Attachments: attachmentsOf(draft.Attachments),
			CreatedAt:   old.CreatedAt,
			UpdatedAt:   l.now().UTC(),
		}
		if draft.Currency != "" {
			updated.Currency = strings.ToUpper(draft.Currency)
		}
		if !draft.Date.IsZero() {
			updated.Date = draft.Date.UTC()
		}
		return tx.UpdateExpense(ctx, userID, updated)
	})
	if err != nil {
		return nil, l.fail("update expense", err)
	}

	l.logger.Info("expense updated", "user_id", userID, "expense_id", id, "source", ref.String(), "amount", updated.Amount.String())
	l.publish(ctx, events.ExpenseUpdated, userID, id)
	l.publish(ctx, events.WalletChanged, userID, ref.String())
	if oldRef != ref {
		l.publish(ctx, events.WalletChanged, userID, oldRef.String())
	}
	return updated, nil
}

// DeleteExpense removes an expense and reverses its balance effect.
func (l *Ledger) DeleteExpense(ctx context.Context, userID, id string) error {
	var ref models.SourceRef
	err := l.db.WithTx(ctx, func(tx *storage.Tx) error {
		old, err := tx.GetExpense(ctx, userID, id)
		if err != nil {
			return expenseErr(id, err)
		}
		ref = old.Source

		why := balanceChange{action: models.ActionDelete, expenseID: id}
		if _, err := l.AdjustBalance(ctx, tx, userID, ref, spendDelta(ref, old.Amount).Neg(), why); err != nil {
			return err
		}
		return expenseErr(id, tx.DeleteExpense(ctx, userID, id))
	})
	if err != nil {
		return l.fail("delete expense", err)
	}

	l.logger.Info("expense deleted", "user_id", userID, "expense_id", id)
	l.publish(ctx, events.ExpenseDeleted, userID, id)
	l.publish(ctx, events.WalletChanged, userID, ref.String())
	return nil
}

// GetExpense returns a single expense.
func (l *Ledger) GetExpense(ctx context.Context, userID, id string) (*models.Expense, error) {
	e, err := l.db.GetExpense(ctx, userID, id)
	if err != nil {
		return nil, l.fail("get expense", expenseErr(id, err))
	}
	return e, nil
}

// ListExpenses returns the expenses matching f, newest first.
func (l *Ledger) ListExpenses(ctx context.Context, userID string, f models.ExpenseFilter) ([]models.Expense, error) {
	expenses, err := l.db.ListExpenses(ctx, userID, f)
	if err != nil {
		return nil, l.fail("list expenses", err)
	}
	return expenses, nil
}

func (l *Ledger) currencyOr(code string) string {
	if code == "" {
		return l.currency
	}
	return strings.ToUpper(code)
}

func attachmentsOf(urls []string) []string {
	if urls == nil {
		return []string{}
	}
	out := make([]string, len(urls))
	copy(out, urls)
	return out
}
