package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes returns the /api/v1 router. Every route except login is behind
// AuthMiddleware; everything but the event stream is bounded by timeout.
func (h *Handlers) Routes(timeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Post("/auth/login", h.Login)
	r.Post("/auth/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(h.AuthMiddleware)

		r.Get("/events", h.Events)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(timeout))

			r.Get("/auth/me", h.Me)

			r.Route("/wallets", func(r chi.Router) {
				r.Get("/", h.Wallets)
				r.Post("/banks", h.AddBankAccount)
				r.Put("/banks/{id}", h.UpdateBankAccount)
				r.Delete("/banks/{id}", h.DeleteBankAccount)
				r.Post("/cards", h.AddCreditCard)
				r.Put("/cards/{id}", h.UpdateCreditCard)
				r.Delete("/cards/{id}", h.DeleteCreditCard)
				r.Put("/cash", h.SetCash)
				r.Get("/history/{kind}", h.History)
			})

			r.Route("/expenses", func(r chi.Router) {
				r.Get("/", h.ListExpenses)
				r.Post("/", h.CreateExpense)
				r.Get("/{id}", h.GetExpense)
				r.Put("/{id}", h.UpdateExpense)
				r.Delete("/{id}", h.DeleteExpense)
			})

			r.Post("/attachments", h.UploadAttachment)

			r.Route("/advances", func(r chi.Router) {
				r.Get("/", h.ListAdvances)
				r.Post("/", h.AddAdvance)
				r.Put("/{id}", h.EditAdvance)
				r.Delete("/{id}", h.DeleteAdvance)
				r.Post("/{id}/return", h.MarkReturned)
			})

			r.Route("/refunds", func(r chi.Router) {
				r.Get("/", h.ListRefunds)
				r.Post("/", h.AddRefund)
				r.Put("/{id}", h.EditRefund)
				r.Delete("/{id}", h.DeleteRefund)
				r.Post("/{id}/receive", h.MarkReceived)
			})

			r.Route("/savings", func(r chi.Router) {
				r.Get("/", h.OpenSavings)
				r.Get("/status", h.SavingsStatus)
				r.Post("/pin", h.SetSavingsPIN)
				r.Put("/pin", h.ChangeSavingsPIN)
				r.Put("/cash", h.SetSavingsCash)
				r.Post("/accounts", h.AddSavingsAccount)
				r.Put("/accounts/{id}", h.UpdateSavingsAccount)
				r.Delete("/accounts/{id}", h.DeleteSavingsAccount)
			})

			r.Route("/notes", func(r chi.Router) {
				r.Get("/", h.ListNotes)
				r.Post("/", h.AddNote)
				r.Put("/{id}", h.EditNote)
				r.Delete("/{id}", h.DeleteNote)
				r.Post("/{id}/toggle", h.ToggleNote)
			})

			r.Route("/summary", func(r chi.Router) {
				r.Get("/daily", h.DailySummary)
				r.Get("/weekly", h.WeeklySummary)
				r.Get("/monthly", h.MonthlySummary)
				r.Get("/range", h.RangeSummary)
			})
		})
	})

	return r
}
