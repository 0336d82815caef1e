package handlers

import (
	"net/http"
	"strconv"
	"time"

	"wallet-ledger/internal/models"
	"wallet-ledger/internal/summary"

	"github.com/shopspring/decimal"
)

// dayRange reads ?start= and ?end= (YYYY-MM-DD). Missing values default to
// the span of days ending today.
func (h *Handlers) dayRange(r *http.Request, days int) (time.Time, time.Time, error) {
	today := h.now().In(h.summary.Location())
	end, start := today, today.AddDate(0, 0, -(days - 1))

	if s := r.URL.Query().Get("end"); s != "" {
		t, err := h.summary.ParseDay(s)
		if err != nil {
			return start, end, err
		}
		end = t
		start = end.AddDate(0, 0, -(days - 1))
	}
	if s := r.URL.Query().Get("start"); s != "" {
		t, err := h.summary.ParseDay(s)
		if err != nil {
			return start, end, err
		}
		start = t
	}
	return start, end, nil
}

// DailySummary returns zero-filled daily totals, the last 7 days by default.
func (h *Handlers) DailySummary(w http.ResponseWriter, r *http.Request) {
	start, end, err := h.dayRange(r, 7)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	days, err := h.summary.DailyTotals(r.Context(), userID(r), start, end)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

// WeeklySummary returns Monday-based weekly totals, the last 4 weeks by default.
func (h *Handlers) WeeklySummary(w http.ResponseWriter, r *http.Request) {
	start, end, err := h.dayRange(r, 28)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	weeks, err := h.summary.WeeklyTotals(r.Context(), userID(r), start, end)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, weeks)
}

type monthResponse struct {
	*summary.MonthSummary
	MonthName      string `json:"monthName"`
	PrevYear       int    `json:"prevYear"`
	PrevMonth      int    `json:"prevMonth"`
	NextYear       int    `json:"nextYear"`
	NextMonth      int    `json:"nextMonth"`
	IsCurrentMonth bool   `json:"isCurrentMonth"`
}

// MonthlySummary returns one month with a per-category breakdown. Year and
// month default to the current month.
func (h *Handlers) MonthlySummary(w http.ResponseWriter, r *http.Request) {
	now := h.now().In(h.summary.Location())
	year := now.Year()
	month := int(now.Month())

	if s := r.URL.Query().Get("year"); s != "" {
		if y, err := strconv.Atoi(s); err == nil {
			year = y
		}
	}
	if s := r.URL.Query().Get("month"); s != "" {
		if m, err := strconv.Atoi(s); err == nil && m >= 1 && m <= 12 {
			month = m
		}
	}

	s, err := h.summary.MonthlyTotal(r.Context(), userID(r), year, time.Month(month))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	prev, next := first.AddDate(0, -1, 0), first.AddDate(0, 1, 0)
	writeJSON(w, http.StatusOK, monthResponse{
		MonthSummary:   s,
		MonthName:      time.Month(month).String(),
		PrevYear:       prev.Year(),
		PrevMonth:      int(prev.Month()),
		NextYear:       next.Year(),
		NextMonth:      int(next.Month()),
		IsCurrentMonth: year == now.Year() && month == int(now.Month()),
	})
}

type rangeResponse struct {
	Start string          `json:"start"`
	End   string          `json:"end"`
	Total decimal.Decimal `json:"total"`
}

// RangeSummary totals the expenses between ?start= and ?end=, both required.
func (h *Handlers) RangeSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("start") == "" || q.Get("end") == "" {
		h.fail(w, r, &models.ValidationError{Fields: map[string]string{
			"start": "required", "end": "required",
		}})
		return
	}
	start, end, err := h.dayRange(r, 1)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	total, err := h.summary.RangeTotal(r.Context(), userID(r), start, end)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rangeResponse{
		Start: start.Format("2006-01-02"),
		End:   end.Format("2006-01-02"),
		Total: total,
	})
}
