package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SourceKind is the type of a payment source.
type SourceKind string

const (
	SourceBank       SourceKind = "bank"
	SourceCreditCard SourceKind = "creditCard"
	SourceCash       SourceKind = "cash"
)

// CashSourceID is the id stored for the per-user cash singleton.
const CashSourceID = "cash"

// SourceRef identifies the payment source an expense is charged to. Bank
// accounts and credit cards always carry an id, cash never does. The zero
// value is not a valid reference; build one with BankRef, CardRef, CashRef
// or ParseSourceRef.
type SourceRef struct {
	kind SourceKind
	id   string
}

// BankRef references a bank account.
func BankRef(id string) SourceRef { return SourceRef{kind: SourceBank, id: id} }

// CardRef references a credit card.
func CardRef(id string) SourceRef { return SourceRef{kind: SourceCreditCard, id: id} }

// CashRef references the cash wallet.
func CashRef() SourceRef { return SourceRef{kind: SourceCash} }

// ParseSourceRef builds a reference from its loose wire form. A bank or
// credit card reference without an id fails with ErrMissingSourceSelection.
func ParseSourceRef(kind, id string) (SourceRef, error) {
	id = strings.TrimSpace(id)
	switch SourceKind(kind) {
	case SourceBank, SourceCreditCard:
		if id == "" {
			return SourceRef{}, fmt.Errorf("%w: %s requires an id", ErrMissingSourceSelection, kind)
		}
		return SourceRef{kind: SourceKind(kind), id: id}, nil
	case SourceCash:
		if id != "" && id != CashSourceID {
			return SourceRef{}, fmt.Errorf("%w: cash does not take an id", ErrInvalidDraft)
		}
		return CashRef(), nil
	default:
		return SourceRef{}, fmt.Errorf("%w: payment source type %q", ErrUnrecognizedValue, kind)
	}
}

// Kind returns the type of the referenced source.
func (r SourceRef) Kind() SourceKind { return r.kind }

// ID returns the source id, or CashSourceID for the cash wallet.
func (r SourceRef) ID() string {
	if r.kind == SourceCash {
		return CashSourceID
	}
	return r.id
}

// IsZero reports whether r references no source.
func (r SourceRef) IsZero() bool { return r.kind == "" }

// Debits reports whether spending lowers the source's amount. Bank accounts
// and cash hold balances; credit cards hold a due amount that grows.
func (r SourceRef) Debits() bool { return r.kind == SourceBank || r.kind == SourceCash }

func (r SourceRef) String() string {
	if r.kind == SourceCash {
		return string(SourceCash)
	}
	return string(r.kind) + "/" + r.id
}

type sourceRefJSON struct {
	Type SourceKind `json:"type"`
	ID   string     `json:"id,omitempty"`
}

// MarshalJSON encodes r as {"type", "id"}. Cash has no id.
func (r SourceRef) MarshalJSON() ([]byte, error) {
	out := sourceRefJSON{Type: r.kind}
	if r.kind != SourceCash {
		out.ID = r.id
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes and checks the wire form through ParseSourceRef.
func (r *SourceRef) UnmarshalJSON(data []byte) error {
	var in sourceRefJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	ref, err := ParseSourceRef(string(in.Type), in.ID)
	if err != nil {
		return err
	}
	*r = ref
	return nil
}

// BankAccount is a bank account whose balance decreases on expenses.
type BankAccount struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Balance     decimal.Decimal `json:"balance"`
	Version     int64           `json:"-"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

// CreditCard is a card whose due amount increases on expenses.
type CreditCard struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	DueAmount   decimal.Decimal `json:"dueAmount"`
	BillDueDay  *int            `json:"billDueDayOfMonth,omitempty"`
	Version     int64           `json:"-"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

// CashWallet is the per-user cash singleton.
type CashWallet struct {
	Balance     decimal.Decimal `json:"balance"`
	Version     int64           `json:"-"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

// Wallets is the overview of every payment source a user holds.
type Wallets struct {
	Banks        []BankAccount   `json:"banks"`
	Cards        []CreditCard    `json:"cards"`
	Cash         CashWallet      `json:"cash"`
	TotalBalance decimal.Decimal `json:"totalBalance"`
	TotalDue     decimal.Decimal `json:"totalDue"`
}

// BankAccountDraft holds the editable fields of a bank account.
type BankAccountDraft struct {
	Name    string          `json:"name" validate:"required,max=100"`
	Balance decimal.Decimal `json:"balance" validate:"gte=0"`
}

// CreditCardDraft holds the editable fields of a credit card.
type CreditCardDraft struct {
	Name       string          `json:"name" validate:"required,max=100"`
	DueAmount  decimal.Decimal `json:"dueAmount" validate:"gte=0"`
	BillDueDay *int            `json:"billDueDayOfMonth" validate:"omitempty,min=1,max=31"`
}

// CashDraft sets the cash balance directly.
type CashDraft struct {
	Balance decimal.Decimal `json:"balance" validate:"gte=0"`
}

// BalanceAction names what caused a balance change.
type BalanceAction string

const (
	ActionCreate BalanceAction = "create"
	ActionUpdate BalanceAction = "update"
	ActionDelete BalanceAction = "delete"
	ActionSet    BalanceAction = "set"
)

// BalanceChange records one adjustment of a payment source.
type BalanceChange struct {
	ID        int64           `json:"id"`
	Source    SourceRef       `json:"source"`
	Action    BalanceAction   `json:"action"`
	Amount    decimal.Decimal `json:"amount"`
	Before    decimal.Decimal `json:"before"`
	After     decimal.Decimal `json:"after"`
	ExpenseID string          `json:"expenseId,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}
