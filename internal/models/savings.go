package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Savings is a user's PIN-protected savings record: cash set aside plus
// balances held in savings bank accounts. It never feeds the wallet.
type Savings struct {
	PINHash        string           `json:"-"`
	FailedAttempts int              `json:"-"`
	LockedUntil    *time.Time       `json:"-"`
	Cash           decimal.Decimal  `json:"cashSavings"`
	Accounts       []SavingsAccount `json:"bankAccounts"`
	Total          decimal.Decimal  `json:"total"`
	LastAccessedAt *time.Time       `json:"lastAccessedAt,omitempty"`
	LastUpdatedAt  time.Time        `json:"lastUpdatedAt"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// SavingsAccount is a bank account holding savings.
type SavingsAccount struct {
	ID          string          `json:"id"`
	BankName    string          `json:"bankName"`
	Amount      decimal.Decimal `json:"amount"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

// SavingsStatus is what can be read without the PIN.
type SavingsStatus struct {
	PINSet      bool       `json:"pinSet"`
	LockedUntil *time.Time `json:"lockedUntil,omitempty"`
}

// PINDraft sets the savings PIN for the first time.
type PINDraft struct {
	PIN string `json:"pin" validate:"required,len=4,numeric"`
}

// PINChangeDraft replaces the savings PIN.
type PINChangeDraft struct {
	CurrentPIN string `json:"currentPin" validate:"required"`
	NewPIN     string `json:"newPin" validate:"required,len=4,numeric"`
}

type SavingsCashDraft struct {
	Amount decimal.Decimal `json:"amount" validate:"gte=0"`
}

type SavingsAccountDraft struct {
	BankName string          `json:"bankName" validate:"required,max=100"`
	Amount   decimal.Decimal `json:"amount" validate:"gte=0"`
}
