// Package savings keeps a PIN-protected record of money set aside outside
// the wallet: a cash amount and balances in savings bank accounts. Nothing
// here touches payment source balances.
package savings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"wallet-ledger/internal/auth"
	"wallet-ledger/internal/events"
	"wallet-ledger/internal/models"
	"wallet-ledger/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// MaxPINAttempts is how many wrong PINs in a row lock the savings.
	MaxPINAttempts = 5
	// LockoutDuration is how long the savings stay locked.
	LockoutDuration = 15 * time.Minute
)

// Vault guards a user's savings behind a bcrypt-hashed PIN.
type Vault struct {
	db     *storage.DB
	events events.Publisher
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Vault that publishes a SavingsChanged event after every
// committed change.
func New(db *storage.DB, pub events.Publisher, logger *slog.Logger) *Vault {
	return &Vault{db: db, events: pub, logger: logger, now: time.Now}
}

// SetClock overrides the time source used for timestamps and lockouts.
func (v *Vault) SetClock(now func() time.Time) {
	v.now = now
}

func (v *Vault) fail(op string, err error) error {
	if models.IsDomainError(err) {
		return err
	}
	v.logger.Error("savings transaction failed", "op", op, "error", err)
	return fmt.Errorf("%s: %w: %w", op, models.ErrTransactionFailed, err)
}

func (v *Vault) publish(ctx context.Context, userID, id string) {
	if v.events == nil {
		return
	}
	ev := events.Event{Kind: events.SavingsChanged, UserID: userID, EntityID: id, At: v.now().UTC()}
	if err := v.events.Publish(ctx, ev); err != nil {
		v.logger.Warn("failed to publish change event", "kind", ev.Kind, "user_id", userID, "error", err)
	}
}

// Status reports whether a PIN is set and whether the savings are locked.
func (v *Vault) Status(ctx context.Context, userID string) (*models.SavingsStatus, error) {
	s, err := v.db.GetSavings(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return &models.SavingsStatus{}, nil
	}
	if err != nil {
		return nil, v.fail("savings status", err)
	}
	status := &models.SavingsStatus{PINSet: true}
	if s.LockedUntil != nil && v.now().Before(*s.LockedUntil) {
		status.LockedUntil = s.LockedUntil
	}
	return status, nil
}

// SetPIN creates the savings record with a zero cash amount. The PIN can
// only be set once; ChangePIN replaces it.
func (v *Vault) SetPIN(ctx context.Context, userID string, draft models.PINDraft) error {
	if err := models.Validate(draft); err != nil {
		return err
	}
	hash, err := auth.HashPassword(draft.PIN)
	if err != nil {
		return v.fail("set savings pin", err)
	}
	now := v.now().UTC()
	err = v.db.WithTx(ctx, func(tx *storage.Tx) error {
		_, err := tx.GetSavings(ctx, userID)
		switch {
		case err == nil:
			return models.ErrPINAlreadySet
		case !errors.Is(err, storage.ErrNotFound):
			return err
		}
		return tx.InsertSavings(ctx, userID, &models.Savings{
			PINHash:       hash,
			Cash:          decimal.Zero,
			LastUpdatedAt: now,
			CreatedAt:     now,
		})
	})
	if err != nil {
		return v.fail("set savings pin", err)
	}
	v.logger.Info("savings pin set", "user_id", userID)
	v.publish(ctx, userID, "")
	return nil
}

// ChangePIN replaces the PIN after checking the current one.
func (v *Vault) ChangePIN(ctx context.Context, userID string, draft models.PINChangeDraft) error {
	if err := models.Validate(draft); err != nil {
		return err
	}
	hash, err := auth.HashPassword(draft.NewPIN)
	if err != nil {
		return v.fail("change savings pin", err)
	}
	return v.unlocked(ctx, "change savings pin", userID, draft.CurrentPIN, func(tx *storage.Tx, s *models.Savings) error {
		s.PINHash = hash
		return nil
	})
}

// Open checks the PIN and returns the savings with their accounts and
// total. A successful open records the access time.
func (v *Vault) Open(ctx context.Context, userID, pin string) (*models.Savings, error) {
	var out *models.Savings
	err := v.unlocked(ctx, "open savings", userID, pin, func(tx *storage.Tx, s *models.Savings) error {
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetCash replaces the cash savings amount.
func (v *Vault) SetCash(ctx context.Context, userID, pin string, draft models.SavingsCashDraft) (*models.Savings, error) {
	if err := models.Validate(draft); err != nil {
		return nil, err
	}
	var out *models.Savings
	err := v.unlocked(ctx, "set savings cash", userID, pin, func(tx *storage.Tx, s *models.Savings) error {
		s.Cash = draft.Amount
		s.LastUpdatedAt = v.now().UTC()
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	v.publish(ctx, userID, "")
	return out, nil
}

// AddAccount adds a savings bank account.
func (v *Vault) AddAccount(ctx context.Context, userID, pin string, draft models.SavingsAccountDraft) (*models.SavingsAccount, error) {
	draft.BankName = strings.TrimSpace(draft.BankName)
	if err := models.Validate(draft); err != nil {
		return nil, err
	}
	now := v.now().UTC()
	a := &models.SavingsAccount{
		ID:          uuid.NewString(),
		BankName:    draft.BankName,
		Amount:      draft.Amount,
		LastUpdated: now,
	}
	err := v.unlocked(ctx, "add savings account", userID, pin, func(tx *storage.Tx, s *models.Savings) error {
		s.LastUpdatedAt = now
		return tx.InsertSavingsAccount(ctx, userID, a)
	})
	if err != nil {
		return nil, err
	}
	v.publish(ctx, userID, a.ID)
	return a, nil
}

// UpdateAccount changes the bank name and amount of a savings account.
func (v *Vault) UpdateAccount(ctx context.Context, userID, pin, id string, draft models.SavingsAccountDraft) (*models.SavingsAccount, error) {
	draft.BankName = strings.TrimSpace(draft.BankName)
	if err := models.Validate(draft); err != nil {
		return nil, err
	}
	var a *models.SavingsAccount
	err := v.unlocked(ctx, "update savings account", userID, pin, func(tx *storage.Tx, s *models.Savings) error {
		var err error
		if a, err = tx.GetSavingsAccount(ctx, userID, id); err != nil {
			return accountNotFound(err)
		}
		now := v.now().UTC()
		a.BankName = draft.BankName
		a.Amount = draft.Amount
		a.LastUpdated = now
		s.LastUpdatedAt = now
		return accountNotFound(tx.UpdateSavingsAccount(ctx, userID, a))
	})
	if err != nil {
		return nil, err
	}
	v.publish(ctx, userID, id)
	return a, nil
}

// DeleteAccount removes a savings bank account.
func (v *Vault) DeleteAccount(ctx context.Context, userID, pin, id string) error {
	err := v.unlocked(ctx, "delete savings account", userID, pin, func(tx *storage.Tx, s *models.Savings) error {
		s.LastUpdatedAt = v.now().UTC()
		return accountNotFound(tx.DeleteSavingsAccount(ctx, userID, id))
	})
	if err != nil {
		return err
	}
	v.publish(ctx, userID, id)
	return nil
}

func accountNotFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return models.ErrSavingsAccountNotFound
	}
	return err
}

// unlocked checks pin and runs fn in the same transaction. A wrong PIN is
// counted and committed, and the savings lock for LockoutDuration once
// MaxPINAttempts wrong PINs arrive in a row. On success fn may change s,
// which is written back with its accounts and total filled in.
func (v *Vault) unlocked(ctx context.Context, op, userID, pin string, fn func(tx *storage.Tx, s *models.Savings) error) error {
	var denied error
	err := v.db.WithTx(ctx, func(tx *storage.Tx) error {
		denied = nil
		s, err := tx.GetSavings(ctx, userID)
		if errors.Is(err, storage.ErrNotFound) {
			return models.ErrPINNotSet
		}
		if err != nil {
			return err
		}

		now := v.now().UTC()
		if s.LockedUntil != nil && now.Before(*s.LockedUntil) {
			denied = fmt.Errorf("%w until %s", models.ErrSavingsLocked, s.LockedUntil.UTC().Format(time.RFC3339))
			return nil
		}
		if !auth.CheckPassword(pin, s.PINHash) {
			s.FailedAttempts++
			denied = models.ErrIncorrectPIN
			if s.FailedAttempts >= MaxPINAttempts {
				until := now.Add(LockoutDuration)
				s.LockedUntil = &until
				s.FailedAttempts = 0
				denied = fmt.Errorf("%w until %s", models.ErrSavingsLocked, until.Format(time.RFC3339))
				v.logger.Warn("savings locked", "user_id", userID, "until", until)
			}
			return tx.UpdateSavings(ctx, userID, s)
		}

		s.FailedAttempts = 0
		s.LockedUntil = nil
		s.LastAccessedAt = &now
		if err := fn(tx, s); err != nil {
			return err
		}
		if err := tx.UpdateSavings(ctx, userID, s); err != nil {
			return err
		}
		if s.Accounts, err = tx.ListSavingsAccounts(ctx, userID); err != nil {
			return err
		}
		s.Total = Total(s)
		return nil
	})
	if err != nil {
		return v.fail(op, err)
	}
	return denied
}

// Total is the cash savings plus every savings account.
func Total(s *models.Savings) decimal.Decimal {
	total := s.Cash
	for _, a := range s.Accounts {
		total = total.Add(a.Amount)
	}
	return total
}
