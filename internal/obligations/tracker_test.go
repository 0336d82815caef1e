package obligations

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"wallet-ledger/internal/models"
	"wallet-ledger/internal/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const testUser = "user-1"

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type TrackerTestSuite struct {
	suite.Suite
	db      *storage.DB
	tracker *Tracker
	ctx     context.Context
	now     time.Time
}

func (suite *TrackerTestSuite) SetupTest() {
	db, err := storage.NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
	suite.tracker = New(db, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	suite.now = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	// Each call moves the clock forward so creation order is observable.
	suite.tracker.SetClock(func() time.Time {
		suite.now = suite.now.Add(time.Minute)
		return suite.now
	})
	suite.ctx = context.Background()
}

func (suite *TrackerTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *TrackerTestSuite) TestAdvanceLifecycle() {
	a, err := suite.tracker.AddAdvance(suite.ctx, testUser, models.AdvanceDraft{Name: "Ravi", Amount: dec("500"), Purpose: "train ticket"})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.AdvanceOutstanding, a.Status)

	list, err := suite.tracker.ListAdvances(suite.ctx, testUser)
	require.NoError(suite.T(), err)
	totals := AdvanceTotals(list)
	assert.True(suite.T(), totals.Outstanding.Equal(dec("500")))
	assert.True(suite.T(), totals.Returned.IsZero())

	returned, err := suite.tracker.MarkReturned(suite.ctx, testUser, a.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.AdvanceReturned, returned.Status)
	assert.True(suite.T(), returned.UpdatedAt.After(a.UpdatedAt))

	list, err = suite.tracker.ListAdvances(suite.ctx, testUser)
	require.NoError(suite.T(), err)
	totals = AdvanceTotals(list)
	assert.True(suite.T(), totals.Outstanding.IsZero())
	assert.True(suite.T(), totals.Returned.Equal(dec("500")))
}

func (suite *TrackerTestSuite) TestMarkReturnedTwice() {
	a, err := suite.tracker.AddAdvance(suite.ctx, testUser, models.AdvanceDraft{Name: "Ravi", Amount: dec("20"), Purpose: "lunch"})
	require.NoError(suite.T(), err)

	_, err = suite.tracker.MarkReturned(suite.ctx, testUser, a.ID)
	require.NoError(suite.T(), err)
	again, err := suite.tracker.MarkReturned(suite.ctx, testUser, a.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.AdvanceReturned, again.Status)

	list, err := suite.tracker.ListAdvances(suite.ctx, testUser)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), AdvanceTotals(list).Returned.Equal(dec("20")))
}

func (suite *TrackerTestSuite) TestEditKeepsStatus() {
	a, err := suite.tracker.AddAdvance(suite.ctx, testUser, models.AdvanceDraft{Name: "Ravi", Amount: dec("20"), Purpose: "lunch"})
	require.NoError(suite.T(), err)
	_, err = suite.tracker.MarkReturned(suite.ctx, testUser, a.ID)
	require.NoError(suite.T(), err)

	edited, err := suite.tracker.EditAdvance(suite.ctx, testUser, a.ID, models.AdvanceDraft{Name: "Ravi K", Amount: dec("25"), Purpose: "lunch and tea"})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.AdvanceReturned, edited.Status)
	assert.Equal(suite.T(), "Ravi K", edited.Name)
	assert.True(suite.T(), edited.Amount.Equal(dec("25")))
}

func (suite *TrackerTestSuite) TestRefundLifecycle() {
	r, err := suite.tracker.AddRefund(suite.ctx, testUser, models.RefundDraft{
		Name: "Store", Amount: dec("80"), Purpose: "returned shoes", ContactNumber: "555-0100",
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.RefundPending, r.Status)

	_, err = suite.tracker.MarkReceived(suite.ctx, testUser, r.ID)
	require.NoError(suite.T(), err)

	edited, err := suite.tracker.EditRefund(suite.ctx, testUser, r.ID, models.RefundDraft{Name: "Store", Amount: dec("75"), Purpose: "returned shoes"})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.RefundReceived, edited.Status)
	assert.Empty(suite.T(), edited.ContactNumber)

	list, err := suite.tracker.ListRefunds(suite.ctx, testUser)
	require.NoError(suite.T(), err)
	totals := RefundTotals(list)
	assert.True(suite.T(), totals.Pending.IsZero())
	assert.True(suite.T(), totals.Received.Equal(dec("75")))

	require.NoError(suite.T(), suite.tracker.DeleteRefund(suite.ctx, testUser, r.ID))
	list, err = suite.tracker.ListRefunds(suite.ctx, testUser)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), list)
}

func (suite *TrackerTestSuite) TestListNewestFirst() {
	for _, name := range []string{"first", "second", "third"} {
		_, err := suite.tracker.AddAdvance(suite.ctx, testUser, models.AdvanceDraft{Name: name, Amount: dec("1"), Purpose: "p"})
		require.NoError(suite.T(), err)
	}
	list, err := suite.tracker.ListAdvances(suite.ctx, testUser)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), list, 3)
	assert.Equal(suite.T(), "third", list[0].Name)
	assert.Equal(suite.T(), "first", list[2].Name)
}

func (suite *TrackerTestSuite) TestUnknownObligation() {
	_, err := suite.tracker.MarkReturned(suite.ctx, testUser, "missing")
	assert.ErrorIs(suite.T(), err, models.ErrObligationNotFound)
	_, err = suite.tracker.MarkReceived(suite.ctx, testUser, "missing")
	assert.ErrorIs(suite.T(), err, models.ErrObligationNotFound)
	assert.ErrorIs(suite.T(), suite.tracker.DeleteAdvance(suite.ctx, testUser, "missing"), models.ErrObligationNotFound)
	assert.ErrorIs(suite.T(), suite.tracker.DeleteRefund(suite.ctx, testUser, "missing"), models.ErrObligationNotFound)
}

func (suite *TrackerTestSuite) TestOtherUsersAreInvisible() {
	a, err := suite.tracker.AddAdvance(suite.ctx, testUser, models.AdvanceDraft{Name: "Ravi", Amount: dec("5"), Purpose: "tea"})
	require.NoError(suite.T(), err)

	_, err = suite.tracker.MarkReturned(suite.ctx, "intruder", a.ID)
	assert.ErrorIs(suite.T(), err, models.ErrObligationNotFound)

	list, err := suite.tracker.ListAdvances(suite.ctx, "intruder")
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), list)
}

func (suite *TrackerTestSuite) TestInvalidDraft() {
	_, err := suite.tracker.AddRefund(suite.ctx, testUser, models.RefundDraft{Name: "", Amount: dec("-1"), Purpose: "x"})
	assert.ErrorIs(suite.T(), err, models.ErrInvalidDraft)
}

func TestTrackerSuite(t *testing.T) {
	suite.Run(t, new(TrackerTestSuite))
}

func TestTotalsIgnoreOtherStatus(t *testing.T) {
	refunds := []models.Refund{
		{Amount: dec("10"), Status: models.RefundPending},
		{Amount: dec("2.5"), Status: models.RefundPending},
		{Amount: dec("4"), Status: models.RefundReceived},
	}
	totals := RefundTotals(refunds)
	assert.True(t, totals.Pending.Equal(dec("12.5")))
	assert.True(t, totals.Received.Equal(dec("4")))

	empty := AdvanceTotals(nil)
	assert.True(t, empty.Outstanding.IsZero())
	assert.True(t, empty.Returned.IsZero())
}
