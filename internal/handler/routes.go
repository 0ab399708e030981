package handler

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts account endpoints
func (h *AccountHandler) RegisterRoutes(r chi.Router) {
	r.Route("/accounts", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Get("/balance", h.GetBalance)
			r.Get("/transactions", h.ListTransactions)
			r.Get("/transfers", h.ListTransfers)
			r.Get("/holds", h.ListHolds)
			r.Get("/schedules", h.ListSchedules)
			r.Post("/close", h.Close)
			r.Post("/suspend", h.Suspend)
			r.Post("/reactivate", h.Reactivate)
			r.Post("/interest", h.ApplyInterest)
		})
	})
}

// RegisterRoutes mounts deposit, withdrawal and reversal endpoints
func (h *TransactionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/transactions", func(r chi.Router) {
		r.Post("/deposit", h.Deposit)
		r.Post("/withdraw", h.Withdraw)
		r.Get("/{id}", h.Get)
		r.Post("/{id}/reverse", h.Reverse)
	})
}

// RegisterRoutes mounts transfer endpoints
func (h *TransferHandler) RegisterRoutes(r chi.Router) {
	r.Route("/transfers", func(r chi.Router) {
		r.Post("/internal", h.CreateInternal)
		r.Post("/external", h.CreateExternal)
		r.Post("/currency", h.CreateCurrency)
		r.Get("/{id}", h.Get)
		r.Post("/{id}/cancel", h.Cancel)
	})
}

// RegisterRoutes mounts currency reference and conversion endpoints
func (h *CurrencyHandler) RegisterRoutes(r chi.Router) {
	r.Route("/currency", func(r chi.Router) {
		r.Get("/currencies", h.List)
		r.Get("/rates", h.ListRates)
		r.Post("/convert", h.Convert)
	})
}

// RegisterRoutes mounts schedule endpoints
func (h *ScheduleHandler) RegisterRoutes(r chi.Router) {
	r.Route("/schedules", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Post("/{id}/pause", h.Pause)
		r.Post("/{id}/resume", h.Resume)
		r.Post("/{id}/cancel", h.Cancel)
	})
}

// RegisterRoutes mounts hold endpoints
func (h *HoldHandler) RegisterRoutes(r chi.Router) {
	r.Route("/holds", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Post("/{id}/release", h.Release)
	})
}
