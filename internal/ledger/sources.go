package ledger

import (
	"context"
	"strings"

	"wallet-ledger/internal/events"
	"wallet-ledger/internal/models"
	"wallet-ledger/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallets returns every payment source of a user with the overall totals.
// TotalBalance sums bank accounts and cash, TotalDue sums credit cards.
func (l *Ledger) Wallets(ctx context.Context, userID string) (*models.Wallets, error) {
	banks, err := l.db.ListBankAccounts(ctx, userID)
	if err != nil {
		return nil, l.fail("list bank accounts", err)
	}
	cards, err := l.db.ListCreditCards(ctx, userID)
	if err != nil {
		return nil, l.fail("list credit cards", err)
	}
	cash, err := l.db.GetCashWallet(ctx, userID)
	if err != nil {
		return nil, l.fail("get cash wallet", err)
	}

	w := &models.Wallets{
		Banks:        banks,
		Cards:        cards,
		Cash:         *cash,
		TotalBalance: cash.Balance,
		TotalDue:     decimal.Zero,
	}
	for _, b := range banks {
		w.TotalBalance = w.TotalBalance.Add(b.Balance)
	}
	for _, c := range cards {
		w.TotalDue = w.TotalDue.Add(c.DueAmount)
	}
	return w, nil
}

// recordSet logs a direct edit of a source amount in its history.
func (l *Ledger) recordSet(ctx context.Context, tx *storage.Tx, userID string, ref models.SourceRef, before, after decimal.Decimal) error {
	if before.Equal(after) {
		return nil
	}
	return tx.InsertBalanceChange(ctx, userID, &models.BalanceChange{
		Source:    ref,
		Action:    models.ActionSet,
		Amount:    after.Sub(before),
		Before:    before,
		After:     after,
		CreatedAt: l.now(),
	})
}

// AddBankAccount opens a bank account with a starting balance.
func (l *Ledger) AddBankAccount(ctx context.Context, userID string, draft models.BankAccountDraft) (*models.BankAccount, error) {
	if err := models.Validate(draft); err != nil {
		return nil, err
	}
	b := &models.BankAccount{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(draft.Name),
		Balance:     draft.Balance,
		LastUpdated: l.now().UTC(),
	}
	err := l.db.WithTx(ctx, func(tx *storage.Tx) error {
		if err := tx.InsertBankAccount(ctx, userID, b); err != nil {
			return err
		}
		return l.recordSet(ctx, tx, userID, models.BankRef(b.ID), decimal.Zero, b.Balance)
	})
	if err != nil {
		return nil, l.fail("add bank account", err)
	}
	l.publish(ctx, events.WalletChanged, userID, models.BankRef(b.ID).String())
	return b, nil
}

// UpdateBankAccount renames a bank account and sets its balance.
func (l *Ledger) UpdateBankAccount(ctx context.Context, userID, id string, draft models.BankAccountDraft) (*models.BankAccount, error) {
	if err := models.Validate(draft); err != nil {
		return nil, err
	}
	ref := models.BankRef(id)
	var b *models.BankAccount
	err := l.db.WithTx(ctx, func(tx *storage.Tx) error {
		var err error
		b, err = tx.GetBankAccount(ctx, userID, id)
		if err != nil {
			return sourceErr(ref, err)
		}
		before := b.Balance
		b.Name = strings.TrimSpace(draft.Name)
		b.Balance = draft.Balance
		b.LastUpdated = l.now().UTC()
		if err := tx.UpdateBankAccount(ctx, userID, b); err != nil {
			return sourceErr(ref, err)
		}
		return l.recordSet(ctx, tx, userID, ref, before, b.Balance)
	})
	if err != nil {
		return nil, l.fail("update bank account", err)
	}
	l.publish(ctx, events.WalletChanged, userID, ref.String())
	return b, nil
}

// DeleteBankAccount removes a bank account. Expenses charged to it are kept.
func (l *Ledger) DeleteBankAccount(ctx context.Context, userID, id string) error {
	ref := models.BankRef(id)
	err := l.db.WithTx(ctx, func(tx *storage.Tx) error {
		return sourceErr(ref, tx.DeleteBankAccount(ctx, userID, id))
	})
	if err != nil {
		return l.fail("delete bank account", err)
	}
	l.publish(ctx, events.WalletChanged, userID, ref.String())
	return nil
}

// AddCreditCard registers a credit card with a starting due amount.
func (l *Ledger) AddCreditCard(ctx context.Context, userID string, draft models.CreditCardDraft) (*models.CreditCard, error) {
	if err := models.Validate(draft); err != nil {
		return nil, err
	}
	c := &models.CreditCard{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(draft.Name),
		DueAmount:   draft.DueAmount,
		BillDueDay:  draft.BillDueDay,
		LastUpdated: l.now().UTC(),
	}
	err := l.db.WithTx(ctx, func(tx *storage.Tx) error {
		if err := tx.InsertCreditCard(ctx, userID, c); err != nil {
			return err
		}
		return l.recordSet(ctx, tx, userID, models.CardRef(c.ID), decimal.Zero, c.DueAmount)
	})
	if err != nil {
		return nil, l.fail("add credit card", err)
	}
	l.publish(ctx, events.WalletChanged, userID, models.CardRef(c.ID).String())
	return c, nil
}

// UpdateCreditCard edits a credit card, including its due amount.
func (l *Ledger) UpdateCreditCard(ctx context.Context, userID, id string, draft models.CreditCardDraft) (*models.CreditCard, error) {
	if err := models.Validate(draft); err != nil {
		return nil, err
	}
	ref := models.CardRef(id)
	var c *models.CreditCard
	err := l.db.WithTx(ctx, func(tx *storage.Tx) error {
		var err error
		c, err = tx.GetCreditCard(ctx, userID, id)
		if err != nil {
			return sourceErr(ref, err)
		}
		before := c.DueAmount
		c.Name = strings.TrimSpace(draft.Name)
		c.DueAmount = draft.DueAmount
		c.BillDueDay = draft.BillDueDay
		c.LastUpdated = l.now().UTC()
		if err := tx.UpdateCreditCard(ctx, userID, c); err != nil {
			return sourceErr(ref, err)
		}
		return l.recordSet(ctx, tx, userID, ref, before, c.DueAmount)
	})
	if err != nil {
		return nil, l.fail("update credit card", err)
	}
	l.publish(ctx, events.WalletChanged, userID, ref.String())
	return c, nil
}

// DeleteCreditCard removes a credit card. Expenses charged to it are kept.
func (l *Ledger) DeleteCreditCard(ctx context.Context, userID, id string) error {
	ref := models.CardRef(id)
	err := l.db.WithTx(ctx, func(tx *storage.Tx) error {
		return sourceErr(ref, tx.DeleteCreditCard(ctx, userID, id))
	})
	if err != nil {
		return l.fail("delete credit card", err)
	}
	l.publish(ctx, events.WalletChanged, userID, ref.String())
	return nil
}

// SetCash overwrites the cash balance, creating the wallet if needed.
func (l *Ledger) SetCash(ctx context.Context, userID string, draft models.CashDraft) (*models.CashWallet, error) {
	if err := models.Validate(draft); err != nil {
		return nil, err
	}
	ref := models.CashRef()
	var w *models.CashWallet
	err := l.db.WithTx(ctx, func(tx *storage.Tx) error {
		now := l.now()
		var err error
		w, err = tx.EnsureCashWallet(ctx, userID, now)
		if err != nil {
			return err
		}
		before := w.Balance
		if err := tx.SetSourceAmount(ctx, userID, ref, draft.Balance, w.Version, now); err != nil {
			return err
		}
		w.Balance = draft.Balance
		w.Version++
		w.LastUpdated = now.UTC()
		return l.recordSet(ctx, tx, userID, ref, before, draft.Balance)
	})
	if err != nil {
		return nil, l.fail("set cash", err)
	}
	l.publish(ctx, events.WalletChanged, userID, ref.String())
	return w, nil
}

// History returns the latest balance changes of one source, newest first.
func (l *Ledger) History(ctx context.Context, userID string, ref models.SourceRef, limit int) ([]models.BalanceChange, error) {
	var err error
	switch ref.Kind() {
	case models.SourceBank:
		_, err = l.db.GetBankAccount(ctx, userID, ref.ID())
	case models.SourceCreditCard:
		_, err = l.db.GetCreditCard(ctx, userID, ref.ID())
	}
	if err != nil {
		return nil, l.fail("balance history", sourceErr(ref, err))
	}

	changes, err := l.db.ListBalanceChanges(ctx, userID, ref, limit)
	if err != nil {
		return nil, l.fail("balance history", err)
	}
	return changes, nil
}
