// Package summary derives spending totals from stored expenses. Every total
// is recomputed on read and grouped by the expense date in a fixed location.
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"wallet-ledger/internal/models"
	"wallet-ledger/internal/storage"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// MaxDays bounds the span of a single daily or weekly query.
const MaxDays = 732

// DayTotal is the spending of one calendar day.
type DayTotal struct {
	Date  string          `json:"date"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// WeekTotal is the spending of one Monday-to-Sunday week.
type WeekTotal struct {
	WeekStart string          `json:"weekStart"`
	Total     decimal.Decimal `json:"total"`
	Count     int             `json:"count"`
}

// CategoryTotal is the spending of one category within a month.
type CategoryTotal struct {
	Category   models.Category `json:"category"`
	Total      decimal.Decimal `json:"total"`
	Count      int             `json:"count"`
	Percentage float64         `json:"percentage"`
}

// MonthSummary is everything spent in one calendar month.
type MonthSummary struct {
	Year       int              `json:"year"`
	Month      int              `json:"month"`
	Total      decimal.Decimal  `json:"total"`
	Expenses   []models.Expense `json:"expenses"`
	ByCategory []CategoryTotal  `json:"byCategory"`
}

// Aggregator computes totals for a user's expenses.
type Aggregator struct {
	db     *storage.DB
	loc    *time.Location
	logger *slog.Logger
}

// New returns an Aggregator that buckets days in loc. A nil loc means UTC.
func New(db *storage.DB, loc *time.Location, logger *slog.Logger) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{db: db, loc: loc, logger: logger}
}

// Location returns the time zone used for day boundaries.
func (a *Aggregator) Location() *time.Location {
	return a.loc
}

func (a *Aggregator) day(t time.Time) time.Time {
	t = t.In(a.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, a.loc)
}

func weekStart(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// span returns the first day and the day after the last day of [start, end].
func (a *Aggregator) span(start, end time.Time) (time.Time, time.Time, error) {
	from, last := a.day(start), a.day(end)
	if last.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end %s is before start %s",
			models.ErrInvalidDraft, last.Format(dateLayout), from.Format(dateLayout))
	}
	if last.Sub(from) > MaxDays*24*time.Hour {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: range longer than %d days", models.ErrInvalidDraft, MaxDays)
	}
	return from, last.AddDate(0, 0, 1), nil
}

func (a *Aggregator) expenses(ctx context.Context, userID string, from, to time.Time) ([]models.Expense, error) {
	expenses, err := a.db.ListExpenses(ctx, userID, models.ExpenseFilter{From: from, To: to})
	if err != nil {
		a.logger.Error("summary query failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: %w", models.ErrTransactionFailed, err)
	}
	return expenses, nil
}

// DailyTotals returns one entry per calendar day from start to end
// inclusive. Days without expenses have a zero total.
func (a *Aggregator) DailyTotals(ctx context.Context, userID string, start, end time.Time) ([]DayTotal, error) {
	from, to, err := a.span(start, end)
	if err != nil {
		return nil, err
	}
	expenses, err := a.expenses(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	var days []DayTotal
	index := map[string]int{}
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		key := d.Format(dateLayout)
		index[key] = len(days)
		days = append(days, DayTotal{Date: key, Total: decimal.Zero})
	}
	for _, e := range expenses {
		i, ok := index[a.day(e.Date).Format(dateLayout)]
		if !ok {
			continue
		}
		days[i].Total = days[i].Total.Add(e.Amount)
		days[i].Count++
	}
	return days, nil
}

// WeeklyTotals returns one entry per week touching [start, end]. Weeks
// start on Monday and are zero-filled; expenses outside the range are not
// counted even when they share a week with it.
func (a *Aggregator) WeeklyTotals(ctx context.Context, userID string, start, end time.Time) ([]WeekTotal, error) {
	from, to, err := a.span(start, end)
	if err != nil {
		return nil, err
	}
	expenses, err := a.expenses(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	var weeks []WeekTotal
	index := map[string]int{}
	for w := weekStart(from); w.Before(to); w = w.AddDate(0, 0, 7) {
		key := w.Format(dateLayout)
		index[key] = len(weeks)
		weeks = append(weeks, WeekTotal{WeekStart: key, Total: decimal.Zero})
	}
	for _, e := range expenses {
		i, ok := index[weekStart(a.day(e.Date)).Format(dateLayout)]
		if !ok {
			continue
		}
		weeks[i].Total = weeks[i].Total.Add(e.Amount)
		weeks[i].Count++
	}
	return weeks, nil
}

// MonthlyTotal returns the expenses of one month with their total and a
// per-category breakdown, largest category first.
func (a *Aggregator) MonthlyTotal(ctx context.Context, userID string, year int, month time.Month) (*MonthSummary, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("%w: month %d", models.ErrInvalidDraft, month)
	}
	from := time.Date(year, month, 1, 0, 0, 0, 0, a.loc)
	expenses, err := a.expenses(ctx, userID, from, from.AddDate(0, 1, 0))
	if err != nil {
		return nil, err
	}

	s := &MonthSummary{
		Year:       year,
		Month:      int(month),
		Total:      decimal.Zero,
		Expenses:   expenses,
		ByCategory: []CategoryTotal{},
	}
	byCategory := map[models.Category]*CategoryTotal{}
	for _, e := range expenses {
		s.Total = s.Total.Add(e.Amount)
		ct, ok := byCategory[e.Category]
		if !ok {
			ct = &CategoryTotal{Category: e.Category, Total: decimal.Zero}
			byCategory[e.Category] = ct
		}
		ct.Total = ct.Total.Add(e.Amount)
		ct.Count++
	}
	for _, ct := range byCategory {
		if s.Total.IsPositive() {
			ct.Percentage = ct.Total.Div(s.Total).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
		}
		s.ByCategory = append(s.ByCategory, *ct)
	}
	sort.Slice(s.ByCategory, func(i, j int) bool {
		if c := s.ByCategory[i].Total.Cmp(s.ByCategory[j].Total); c != 0 {
			return c > 0
		}
		return s.ByCategory[i].Category < s.ByCategory[j].Category
	})
	return s, nil
}

// RangeTotal sums every expense dated from start to end inclusive.
func (a *Aggregator) RangeTotal(ctx context.Context, userID string, start, end time.Time) (decimal.Decimal, error) {
	from, last := a.day(start), a.day(end)
	if last.Before(from) {
		return decimal.Zero, fmt.Errorf("%w: end %s is before start %s",
			models.ErrInvalidDraft, last.Format(dateLayout), from.Format(dateLayout))
	}
	expenses, err := a.expenses(ctx, userID, from, last.AddDate(0, 0, 1))
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total, nil
}

// ParseDay reads a YYYY-MM-DD date in the aggregator's location.
func (a *Aggregator) ParseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, a.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", models.ErrInvalidDraft, s)
	}
	return t, nil
}
