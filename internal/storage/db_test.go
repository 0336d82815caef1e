package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"wallet-ledger/internal/auth"
	"wallet-ledger/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

var day = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

// DBTestSuite covers the ledger tables.
type DBTestSuite struct {
	suite.Suite
	db  *DB
	ctx context.Context
	uid string
}

// SetupTest runs before each test
func (suite *DBTestSuite) SetupTest() {
	db, err := NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
	suite.ctx = context.Background()

	user, err := db.CreateUser(suite.ctx, "alice", "hash")
	require.NoError(suite.T(), err)
	suite.uid = user.ID
}

// TearDownTest runs after each test
func (suite *DBTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *DBTestSuite) tx(fn func(tx *Tx) error) {
	require.NoError(suite.T(), suite.db.WithTx(suite.ctx, fn))
}

func (suite *DBTestSuite) insertExpense(id string, amount int64, category models.Category, ref models.SourceRef, date time.Time) {
	e := &models.Expense{
		ID:        id,
		Amount:    decimal.NewFromInt(amount),
		Currency:  "INR",
		Category:  category,
		Purpose:   "purpose " + id,
		Source:    ref,
		Date:      date,
		CreatedAt: date,
		UpdatedAt: date,
	}
	suite.tx(func(tx *Tx) error { return tx.InsertExpense(suite.ctx, suite.uid, e) })
}

func (suite *DBTestSuite) TestExpenseRoundTrip() {
	e := &models.Expense{
		ID:          "e1",
		Amount:      decimal.RequireFromString("12.50"),
		Currency:    "INR",
		Category:    models.CategoryDining,
		Purpose:     "Lunch",
		Source:      models.CardRef("c1"),
		Date:        day,
		Attachments: []string{"https://media.example/receipt.png"},
		CreatedAt:   day,
		UpdatedAt:   day,
	}
	suite.tx(func(tx *Tx) error { return tx.InsertExpense(suite.ctx, suite.uid, e) })

	got, err := suite.db.GetExpense(suite.ctx, suite.uid, "e1")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), got.Amount.Equal(e.Amount))
	assert.Equal(suite.T(), models.CategoryDining, got.Category)
	assert.Equal(suite.T(), models.CardRef("c1"), got.Source)
	assert.True(suite.T(), got.Date.Equal(day))
	assert.Equal(suite.T(), e.Attachments, got.Attachments)
}

func (suite *DBTestSuite) TestExpenseWithoutAttachmentsListsEmpty() {
	suite.insertExpense("e1", 10, models.CategoryOther, models.CashRef(), day)

	got, err := suite.db.GetExpense(suite.ctx, suite.uid, "e1")
	require.NoError(suite.T(), err)
	assert.NotNil(suite.T(), got.Attachments)
	assert.Empty(suite.T(), got.Attachments)
	assert.Equal(suite.T(), models.CashRef(), got.Source)
}

func (suite *DBTestSuite) TestGetExpenseOtherUser() {
	suite.insertExpense("e1", 10, models.CategoryOther, models.CashRef(), day)

	_, err := suite.db.GetExpense(suite.ctx, "someone-else", "e1")
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestUpdateAndDeleteExpense() {
	suite.insertExpense("e1", 10, models.CategoryOther, models.CashRef(), day)

	suite.tx(func(tx *Tx) error {
		e, err := tx.GetExpense(suite.ctx, suite.uid, "e1")
		if err != nil {
			return err
		}
		e.Amount = decimal.NewFromInt(25)
		e.Source = models.BankRef("b1")
		e.UpdatedAt = day.Add(time.Hour)
		return tx.UpdateExpense(suite.ctx, suite.uid, e)
	})

	got, err := suite.db.GetExpense(suite.ctx, suite.uid, "e1")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), got.Amount.Equal(decimal.NewFromInt(25)))
	assert.Equal(suite.T(), models.BankRef("b1"), got.Source)
	assert.True(suite.T(), got.CreatedAt.Equal(day), "creation time is kept")

	suite.tx(func(tx *Tx) error { return tx.DeleteExpense(suite.ctx, suite.uid, "e1") })

	err = suite.db.WithTx(suite.ctx, func(tx *Tx) error { return tx.DeleteExpense(suite.ctx, suite.uid, "e1") })
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestListExpenses() {
	suite.insertExpense("bus", 20, models.CategoryTransportation, models.BankRef("b1"), day.Add(time.Minute))
	suite.insertExpense("coffee", 5, models.CategoryDining, models.CashRef(), day.Add(2*time.Minute))
	suite.insertExpense("snack", 15, models.CategoryDining, models.BankRef("b1"), day.Add(3*time.Minute))
	suite.insertExpense("old", 99, models.CategoryDining, models.BankRef("b1"), day.AddDate(0, -1, 0))

	result, err := suite.db.ListExpenses(suite.ctx, suite.uid, models.ExpenseFilter{})
	require.NoError(suite.T(), err)
	require.Len(suite.T(), result, 4)
	assert.Equal(suite.T(), "snack", result[0].ID, "latest first")
	assert.Equal(suite.T(), "old", result[3].ID)

	bank := models.BankRef("b1")
	tests := []struct {
		name   string
		filter models.ExpenseFilter
		want   []string
	}{
		{"range", models.ExpenseFilter{From: day, To: day.Add(time.Hour)}, []string{"snack", "coffee", "bus"}},
		{"end is exclusive", models.ExpenseFilter{From: day, To: day.Add(2 * time.Minute)}, []string{"bus"}},
		{"source", models.ExpenseFilter{Source: &bank, From: day}, []string{"snack", "bus"}},
		{"category", models.ExpenseFilter{Category: models.CategoryDining}, []string{"snack", "coffee", "old"}},
		{"limit", models.ExpenseFilter{Limit: 2}, []string{"snack", "coffee"}},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			result, err := suite.db.ListExpenses(suite.ctx, suite.uid, tt.filter)
			require.NoError(suite.T(), err)
			ids := make([]string, len(result))
			for i, e := range result {
				ids[i] = e.ID
			}
			assert.Equal(suite.T(), tt.want, ids)
		})
	}
}

func (suite *DBTestSuite) TestSourceVersioning() {
	b := &models.BankAccount{ID: "b1", Name: "Checking", Balance: decimal.NewFromInt(100), LastUpdated: day}
	suite.tx(func(tx *Tx) error { return tx.InsertBankAccount(suite.ctx, suite.uid, b) })
	assert.Equal(suite.T(), int64(1), b.Version)

	suite.tx(func(tx *Tx) error {
		return tx.SetSourceAmount(suite.ctx, suite.uid, models.BankRef("b1"), decimal.NewFromInt(60), 1, day)
	})

	got, err := suite.db.GetBankAccount(suite.ctx, suite.uid, "b1")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), got.Balance.Equal(decimal.NewFromInt(60)))
	assert.Equal(suite.T(), int64(2), got.Version)

	// A writer holding the old version loses.
	suite.db.SetTxAttempts(1)
	err = suite.db.WithTx(suite.ctx, func(tx *Tx) error {
		return tx.SetSourceAmount(suite.ctx, suite.uid, models.BankRef("b1"), decimal.NewFromInt(10), 1, day)
	})
	assert.ErrorIs(suite.T(), err, ErrConflict)

	got, err = suite.db.GetBankAccount(suite.ctx, suite.uid, "b1")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), got.Balance.Equal(decimal.NewFromInt(60)))
}

func (suite *DBTestSuite) TestCreditCardDueDay() {
	dueDay := 5
	suite.tx(func(tx *Tx) error {
		if err := tx.InsertCreditCard(suite.ctx, suite.uid, &models.CreditCard{ID: "c1", Name: "Visa", DueAmount: decimal.Zero, BillDueDay: &dueDay, LastUpdated: day}); err != nil {
			return err
		}
		return tx.InsertCreditCard(suite.ctx, suite.uid, &models.CreditCard{ID: "c2", Name: "Amex", DueAmount: decimal.Zero, LastUpdated: day})
	})

	cards, err := suite.db.ListCreditCards(suite.ctx, suite.uid)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), cards, 2)
	assert.Equal(suite.T(), "Amex", cards[0].Name, "ordered by name")
	assert.Nil(suite.T(), cards[0].BillDueDay)
	require.NotNil(suite.T(), cards[1].BillDueDay)
	assert.Equal(suite.T(), 5, *cards[1].BillDueDay)
}

func (suite *DBTestSuite) TestDeleteMissingSource() {
	err := suite.db.WithTx(suite.ctx, func(tx *Tx) error { return tx.DeleteBankAccount(suite.ctx, suite.uid, "nope") })
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	_, err = suite.db.GetCreditCard(suite.ctx, suite.uid, "nope")
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestCashWallet() {
	w, err := suite.db.GetCashWallet(suite.ctx, suite.uid)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), w.Balance.IsZero(), "untouched cash reads as zero")

	suite.tx(func(tx *Tx) error {
		w, err := tx.EnsureCashWallet(suite.ctx, suite.uid, day)
		if err != nil {
			return err
		}
		return tx.SetSourceAmount(suite.ctx, suite.uid, models.CashRef(), decimal.NewFromInt(40), w.Version, day)
	})

	// A second ensure leaves the balance alone.
	suite.tx(func(tx *Tx) error {
		w, err := tx.EnsureCashWallet(suite.ctx, suite.uid, day)
		if err == nil {
			assert.True(suite.T(), w.Balance.Equal(decimal.NewFromInt(40)))
		}
		return err
	})
}

func (suite *DBTestSuite) TestBalanceChanges() {
	ref := models.BankRef("b1")
	suite.tx(func(tx *Tx) error {
		for i, after := range []int64{100, 80, 95} {
			c := &models.BalanceChange{
				Source:    ref,
				Action:    models.ActionUpdate,
				Amount:    decimal.NewFromInt(after),
				After:     decimal.NewFromInt(after),
				CreatedAt: day.Add(time.Duration(i) * time.Minute),
			}
			if err := tx.InsertBalanceChange(suite.ctx, suite.uid, c); err != nil {
				return err
			}
		}
		return tx.InsertBalanceChange(suite.ctx, suite.uid, &models.BalanceChange{
			Source: models.CashRef(), Action: models.ActionSet, CreatedAt: day,
		})
	})

	changes, err := suite.db.ListBalanceChanges(suite.ctx, suite.uid, ref, 2)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), changes, 2)
	assert.True(suite.T(), changes[0].After.Equal(decimal.NewFromInt(95)), "newest first")
	assert.True(suite.T(), changes[1].After.Equal(decimal.NewFromInt(80)))
	assert.Equal(suite.T(), ref, changes[0].Source)

	cash, err := suite.db.ListBalanceChanges(suite.ctx, suite.uid, models.CashRef(), 0)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), cash, 1)
}

func (suite *DBTestSuite) TestObligations() {
	suite.tx(func(tx *Tx) error {
		if err := tx.InsertAdvance(suite.ctx, suite.uid, &models.Advance{
			ID: "a1", Name: "Ravi", Amount: decimal.NewFromInt(500), Purpose: "rent",
			Status: models.AdvanceOutstanding, CreatedAt: day, UpdatedAt: day,
		}); err != nil {
			return err
		}
		return tx.InsertAdvance(suite.ctx, suite.uid, &models.Advance{
			ID: "a2", Name: "Meera", Amount: decimal.NewFromInt(200), Purpose: "tickets",
			Status: models.AdvanceOutstanding, CreatedAt: day.Add(time.Hour), UpdatedAt: day.Add(time.Hour),
		})
	})

	suite.tx(func(tx *Tx) error {
		a, err := tx.GetAdvance(suite.ctx, suite.uid, "a1")
		if err != nil {
			return err
		}
		a.Status = models.AdvanceReturned
		return tx.UpdateAdvance(suite.ctx, suite.uid, a)
	})

	advances, err := suite.db.ListAdvances(suite.ctx, suite.uid)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), advances, 2)
	assert.Equal(suite.T(), "a2", advances[0].ID, "newest first")
	assert.Equal(suite.T(), models.AdvanceReturned, advances[1].Status)

	suite.tx(func(tx *Tx) error {
		return tx.InsertRefund(suite.ctx, suite.uid, &models.Refund{
			ID: "r1", Name: "Store", Amount: decimal.NewFromInt(40), Purpose: "return",
			ContactNumber: "555-0100", Status: models.RefundPending, CreatedAt: day, UpdatedAt: day,
		})
	})
	suite.tx(func(tx *Tx) error { return tx.DeleteRefund(suite.ctx, suite.uid, "r1") })

	refunds, err := suite.db.ListRefunds(suite.ctx, suite.uid)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), refunds)

	err = suite.db.WithTx(suite.ctx, func(tx *Tx) error {
		_, err := tx.GetRefund(suite.ctx, suite.uid, "r1")
		return err
	})
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestStoredValuesAreChecked() {
	suite.insertExpense("e1", 10, models.CategoryGroceries, models.BankRef("b1"), day)
	suite.tx(func(tx *Tx) error {
		return tx.InsertAdvance(suite.ctx, suite.uid, &models.Advance{
			ID: "a1", Name: "Ravi", Amount: decimal.NewFromInt(500), Purpose: "rent",
			Status: models.AdvanceOutstanding, CreatedAt: day, UpdatedAt: day,
		})
	})
	suite.tx(func(tx *Tx) error {
		return tx.InsertRefund(suite.ctx, suite.uid, &models.Refund{
			ID: "r1", Name: "Store", Amount: decimal.NewFromInt(40), Purpose: "return",
			Status: models.RefundPending, CreatedAt: day, UpdatedAt: day,
		})
	})

	tests := []struct {
		name    string
		corrupt string
		read    func() error
	}{
		{
			name:    "advance status",
			corrupt: "UPDATE advances SET status = 'settled' WHERE id = 'a1'",
			read: func() error {
				_, err := suite.db.ListAdvances(suite.ctx, suite.uid)
				return err
			},
		},
		{
			name:    "advance status inside a transaction",
			corrupt: "UPDATE advances SET status = 'settled' WHERE id = 'a1'",
			read: func() error {
				return suite.db.WithTx(suite.ctx, func(tx *Tx) error {
					_, err := tx.GetAdvance(suite.ctx, suite.uid, "a1")
					return err
				})
			},
		},
		{
			name:    "refund status",
			corrupt: "UPDATE refunds SET status = 'maybe' WHERE id = 'r1'",
			read: func() error {
				_, err := suite.db.ListRefunds(suite.ctx, suite.uid)
				return err
			},
		},
		{
			name:    "expense category",
			corrupt: "UPDATE expenses SET category = 'Gambling' WHERE id = 'e1'",
			read: func() error {
				_, err := suite.db.GetExpense(suite.ctx, suite.uid, "e1")
				return err
			},
		},
		{
			name:    "expense source type",
			corrupt: "UPDATE expenses SET source_type = 'crypto' WHERE id = 'e1'",
			read: func() error {
				_, err := suite.db.ListExpenses(suite.ctx, suite.uid, models.ExpenseFilter{})
				return err
			},
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := suite.db.conn.ExecContext(suite.ctx, tt.corrupt)
			require.NoError(suite.T(), err)
			defer suite.restoreRows()

			err = tt.read()
			assert.ErrorIs(suite.T(), err, models.ErrUnrecognizedValue)
		})
	}
}

func (suite *DBTestSuite) restoreRows() {
	for _, q := range []string{
		"UPDATE advances SET status = 'outstanding'",
		"UPDATE refunds SET status = 'pending'",
		"UPDATE expenses SET category = 'Groceries', source_type = 'bank'",
	} {
		_, err := suite.db.conn.ExecContext(suite.ctx, q)
		require.NoError(suite.T(), err)
	}
}

func (suite *DBTestSuite) TestSavings() {
	suite.tx(func(tx *Tx) error {
		return tx.InsertSavings(suite.ctx, suite.uid, &models.Savings{
			PINHash: "hash", Cash: decimal.NewFromInt(100), LastUpdatedAt: day, CreatedAt: day,
		})
	})

	s, err := suite.db.GetSavings(suite.ctx, suite.uid)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), s.Cash.Equal(decimal.NewFromInt(100)))
	assert.Nil(suite.T(), s.LockedUntil)
	assert.Nil(suite.T(), s.LastAccessedAt)

	locked := day.Add(15 * time.Minute)
	suite.tx(func(tx *Tx) error {
		s.LockedUntil = &locked
		s.LastAccessedAt = &day
		s.FailedAttempts = 2
		return tx.UpdateSavings(suite.ctx, suite.uid, s)
	})
	s, err = suite.db.GetSavings(suite.ctx, suite.uid)
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), s.LockedUntil)
	assert.True(suite.T(), s.LockedUntil.Equal(locked))
	assert.True(suite.T(), s.LastAccessedAt.Equal(day))
	assert.Equal(suite.T(), 2, s.FailedAttempts)

	suite.tx(func(tx *Tx) error {
		if err := tx.InsertSavingsAccount(suite.ctx, suite.uid, &models.SavingsAccount{ID: "s1", BankName: "HDFC", Amount: decimal.NewFromInt(5), LastUpdated: day}); err != nil {
			return err
		}
		return tx.InsertSavingsAccount(suite.ctx, suite.uid, &models.SavingsAccount{ID: "s0", BankName: "SBI", Amount: decimal.NewFromInt(7), LastUpdated: day})
	})
	suite.tx(func(tx *Tx) error {
		accounts, err := tx.ListSavingsAccounts(suite.ctx, suite.uid)
		require.NoError(suite.T(), err)
		require.Len(suite.T(), accounts, 2)
		assert.Equal(suite.T(), "s1", accounts[0].ID, "insertion order")
		return tx.DeleteSavingsAccount(suite.ctx, suite.uid, "s1")
	})

	err = suite.db.WithTx(suite.ctx, func(tx *Tx) error {
		return tx.DeleteSavingsAccount(suite.ctx, suite.uid, "s1")
	})
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	_, err = suite.db.GetSavings(suite.ctx, "someone-else")
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestNotes() {
	for _, title := range []string{"first", "second"} {
		n := &models.Note{ID: title, Title: title, CreatedAt: day, UpdatedAt: day}
		suite.tx(func(tx *Tx) error { return tx.InsertNote(suite.ctx, suite.uid, n) })
	}
	other := &models.Note{ID: "theirs", Title: "theirs", CreatedAt: day, UpdatedAt: day}
	suite.tx(func(tx *Tx) error { return tx.InsertNote(suite.ctx, "someone-else", other) })
	assert.Equal(suite.T(), 0, other.Order, "positions are per user")

	suite.tx(func(tx *Tx) error {
		n, err := tx.GetNote(suite.ctx, suite.uid, "first")
		if err != nil {
			return err
		}
		n.Done = true
		return tx.UpdateNote(suite.ctx, suite.uid, n)
	})

	notes, err := suite.db.ListNotes(suite.ctx, suite.uid)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), notes, 2)
	assert.Equal(suite.T(), "first", notes[0].ID)
	assert.True(suite.T(), notes[0].Done)
	assert.Equal(suite.T(), 1, notes[1].Order)

	err = suite.db.WithTx(suite.ctx, func(tx *Tx) error {
		return tx.DeleteNote(suite.ctx, suite.uid, "theirs")
	})
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestFailedTxRollsBack() {
	boom := errors.New("boom")
	err := suite.db.WithTx(suite.ctx, func(tx *Tx) error {
		if err := tx.InsertBankAccount(suite.ctx, suite.uid, &models.BankAccount{ID: "b1", Name: "Checking", Balance: decimal.NewFromInt(1), LastUpdated: day}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(suite.T(), err, boom)

	accounts, err := suite.db.ListBankAccounts(suite.ctx, suite.uid)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), accounts)
}

// SessionTestSuite provides a test suite for session operations
type SessionTestSuite struct {
	suite.Suite
	db   *DB
	ctx  context.Context
	user *models.User
}

// SetupTest runs before each test
func (suite *SessionTestSuite) SetupTest() {
	db, err := NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
	suite.ctx = context.Background()

	password, err := auth.HashPassword("testpass")
	require.NoError(suite.T(), err, "failed to hash password")

	user, err := suite.db.CreateUser(suite.ctx, "testuser", password)
	require.NoError(suite.T(), err, "failed to create test user")
	suite.user = user
}

// TearDownTest runs after each test
func (suite *SessionTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *SessionTestSuite) newSession(expiresAt time.Time) string {
	token, err := auth.GenerateSessionToken()
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), suite.db.CreateSession(suite.ctx, token, suite.user.ID, expiresAt))
	return token
}

func (suite *SessionTestSuite) TestCreateAndValidateSession() {
	expiresAt := time.Now().Add(30 * 24 * time.Hour)
	token := suite.newSession(expiresAt)

	info, err := suite.db.ValidateSessionWithInfo(suite.ctx, token)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "testuser", info.User.Username)
	assert.Equal(suite.T(), suite.user.ID, info.User.ID)
	assert.WithinDuration(suite.T(), expiresAt, info.ExpiresAt, time.Second)

	timeSinceActivity := time.Since(info.LastActivity)
	assert.Less(suite.T(), timeSinceActivity, 5*time.Second, "LastActivity should be recent")
}

func (suite *SessionTestSuite) TestUnknownSession() {
	_, err := suite.db.ValidateSessionWithInfo(suite.ctx, "never-issued")
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *SessionTestSuite) TestExpiredSession() {
	token := suite.newSession(time.Now().Add(-time.Minute))

	_, err := suite.db.ValidateSessionWithInfo(suite.ctx, token)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *SessionTestSuite) TestRenewSession() {
	token := suite.newSession(time.Now().Add(30 * 24 * time.Hour))

	// Wait a moment to ensure timestamps differ
	time.Sleep(10 * time.Millisecond)

	originalInfo, err := suite.db.ValidateSessionWithInfo(suite.ctx, token)
	require.NoError(suite.T(), err)

	newExpiry := time.Now().Add(60 * 24 * time.Hour)
	require.NoError(suite.T(), suite.db.RenewSession(suite.ctx, token, newExpiry))

	updatedInfo, err := suite.db.ValidateSessionWithInfo(suite.ctx, token)
	require.NoError(suite.T(), err)

	assert.True(suite.T(), updatedInfo.LastActivity.After(originalInfo.LastActivity),
		"LastActivity should be updated after renewal")
	assert.True(suite.T(), updatedInfo.ExpiresAt.After(originalInfo.ExpiresAt),
		"ExpiresAt should be extended after renewal")
}

func (suite *SessionTestSuite) TestDeleteSession() {
	token := suite.newSession(time.Now().Add(30 * 24 * time.Hour))

	_, err := suite.db.ValidateSessionWithInfo(suite.ctx, token)
	require.NoError(suite.T(), err, "session should exist before deletion")

	require.NoError(suite.T(), suite.db.DeleteSession(suite.ctx, token))

	_, err = suite.db.ValidateSessionWithInfo(suite.ctx, token)
	assert.Error(suite.T(), err, "expected error after deleting session")
}

func (suite *SessionTestSuite) TestCleanExpiredSessions() {
	live := suite.newSession(time.Now().Add(time.Hour))
	suite.newSession(time.Now().Add(-time.Hour))

	require.NoError(suite.T(), suite.db.CleanExpiredSessions(suite.ctx))

	var count int
	require.NoError(suite.T(), suite.db.conn.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&count))
	assert.Equal(suite.T(), 1, count)

	_, err := suite.db.ValidateSessionWithInfo(suite.ctx, live)
	assert.NoError(suite.T(), err)
}

func (suite *SessionTestSuite) TestDuplicateUsername() {
	_, err := suite.db.CreateUser(suite.ctx, "testuser", "other")
	assert.Error(suite.T(), err)

	count, err := suite.db.UserCount(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, count)
}

// Test suite runners
func TestDBSuite(t *testing.T) {
	suite.Run(t, new(DBTestSuite))
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionTestSuite))
}

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewWithConn(conn), mock
}

func TestWithTx_RetriesConflict(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectCommit()

	calls := 0
	err := db.WithTx(context.Background(), func(tx *Tx) error {
		calls++
		if calls == 1 {
			return ErrConflict
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_GivesUpAfterAttempts(t *testing.T) {
	db, mock := newMockDB(t)
	db.SetTxAttempts(2)
	for i := 0; i < 2; i++ {
		mock.ExpectBegin()
		mock.ExpectRollback()
	}

	calls := 0
	err := db.WithTx(context.Background(), func(tx *Tx) error {
		calls++
		return ErrConflict
	})

	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 2, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_DoesNotRetryOtherErrors(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	calls := 0
	err := db.WithTx(context.Background(), func(tx *Tx) error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_CommitFailure(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("disk I/O error"))

	err := db.WithTx(context.Background(), func(tx *Tx) error { return nil })

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDSN(t *testing.T) {
	assert.Equal(t, ":memory:", dsn(":memory:"))
	assert.Equal(t, "x.db?mode=ro", dsn("x.db?mode=ro"))
	assert.Contains(t, dsn("wallet.db"), "busy_timeout")
}
