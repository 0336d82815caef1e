package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Category is the closed set of expense categories.
type Category string

const (
	CategoryGroceries      Category = "Groceries"
	CategoryDining         Category = "Dining"
	CategoryTransportation Category = "Transportation"
	CategoryEntertainment  Category = "Entertainment"
	CategoryShopping       Category = "Shopping"
	CategoryHealth         Category = "Health"
	CategoryBills          Category = "Bills"
	CategoryEducation      Category = "Education"
	CategoryTravel         Category = "Travel"
	CategoryOther          Category = "Other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryGroceries,
	CategoryDining,
	CategoryTransportation,
	CategoryEntertainment,
	CategoryShopping,
	CategoryHealth,
	CategoryBills,
	CategoryEducation,
	CategoryTravel,
	CategoryOther,
}

// ParseCategory decodes a stored category, rejecting unknown values.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: category %q", ErrUnrecognizedValue, s)
}

// Expense represents a financial expense record.
type Expense struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Category    Category        `json:"category"`
	Purpose     string          `json:"purpose"`
	Source      SourceRef       `json:"paymentSource"`
	Date        time.Time       `json:"date"`
	Attachments []string        `json:"attachments"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ExpenseDraft is the user-editable part of an expense.
type ExpenseDraft struct {
	Amount            decimal.Decimal `json:"amount" validate:"gt=0"`
	Currency          string          `json:"currency" validate:"omitempty,len=3,alpha"`
	Category          Category        `json:"category" validate:"required,oneof=Groceries Dining Transportation Entertainment Shopping Health Bills Education Travel Other"`
	Purpose           string          `json:"purpose" validate:"required,max=500"`
	PaymentSourceType string          `json:"paymentSourceType" validate:"required,oneof=bank creditCard cash"`
	PaymentSourceID   string          `json:"paymentSourceId"`
	Date              time.Time       `json:"date"`
	Attachments       []string        `json:"attachments" validate:"max=10,dive,url"`
}

// Source resolves the draft's payment source selection.
func (d ExpenseDraft) Source() (SourceRef, error) {
	return ParseSourceRef(d.PaymentSourceType, d.PaymentSourceID)
}

// ExpenseFilter narrows an expense listing. Zero fields do not filter.
type ExpenseFilter struct {
	From     time.Time
	To       time.Time
	Source   *SourceRef
	Category Category
	Limit    int
}

// User represents a user account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Session represents a user session.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}
