package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AdvanceStatus is the lifecycle state of money lent out.
type AdvanceStatus string

const (
	AdvanceOutstanding AdvanceStatus = "outstanding"
	AdvanceReturned    AdvanceStatus = "returned"
)

// ParseAdvanceStatus decodes a stored status, rejecting unknown values.
func ParseAdvanceStatus(s string) (AdvanceStatus, error) {
	switch AdvanceStatus(s) {
	case AdvanceOutstanding, AdvanceReturned:
		return AdvanceStatus(s), nil
	}
	return "", fmt.Errorf("%w: advance status %q", ErrUnrecognizedValue, s)
}

// RefundStatus is the lifecycle state of money owed to the user.
type RefundStatus string

const (
	RefundPending  RefundStatus = "pending"
	RefundReceived RefundStatus = "received"
)

// ParseRefundStatus decodes a stored status, rejecting unknown values.
func ParseRefundStatus(s string) (RefundStatus, error) {
	switch RefundStatus(s) {
	case RefundPending, RefundReceived:
		return RefundStatus(s), nil
	}
	return "", fmt.Errorf("%w: refund status %q", ErrUnrecognizedValue, s)
}

// Advance is money the user lent to someone.
type Advance struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	Purpose   string          `json:"purpose"`
	Status    AdvanceStatus   `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Refund is money someone owes the user.
type Refund struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Amount        decimal.Decimal `json:"amount"`
	Purpose       string          `json:"purpose"`
	ContactNumber string          `json:"contactNumber,omitempty"`
	Status        RefundStatus    `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// AdvanceDraft is the user-editable part of an advance.
type AdvanceDraft struct {
	Name    string          `json:"name" validate:"required,max=100"`
	Amount  decimal.Decimal `json:"amount" validate:"gt=0"`
	Purpose string          `json:"purpose" validate:"required,max=500"`
}

// RefundDraft is the user-editable part of a refund.
type RefundDraft struct {
	Name          string          `json:"name" validate:"required,max=100"`
	Amount        decimal.Decimal `json:"amount" validate:"gt=0"`
	Purpose       string          `json:"purpose" validate:"required,max=500"`
	ContactNumber string          `json:"contactNumber" validate:"omitempty,max=20"`
}

// AdvanceTotals partitions advances by status.
type AdvanceTotals struct {
	Outstanding decimal.Decimal `json:"totalOutstanding"`
	Returned    decimal.Decimal `json:"totalReturned"`
}

// RefundTotals partitions refunds by status.
type RefundTotals struct {
	Pending  decimal.Decimal `json:"totalPending"`
	Received decimal.Decimal `json:"totalReceived"`
}
