package handler

import (
	"github.com/go-chi/chi/v5"
)

// Handlers groups every inventory endpoint handler
type Handlers struct {
	Inventory    *InventoryHandler
	Distribution *DistributionHandler
	Stock        *StockHandler
	Report       *ReportHandler
}

// Mount registers the inventory routes on r. Static paths are registered
// alongside /{id}; chi matches them first.
func (h *Handlers) Mount(r chi.Router) {
	r.Post("/", h.Inventory.Create)
	r.Get("/", h.Inventory.List)
	r.Post("/bulk", h.Inventory.BulkCreate)

	r.Get("/summary", h.Report.Summary)
	r.Get("/low-stock", h.Report.LowStock)
	r.Get("/stats", h.Report.Stats)
	r.Get("/export", h.Report.Export)
	r.Route("/reports", func(r chi.Router) {
		r.Get("/daily", h.Report.Insights)
		r.Get("/day", h.Report.Day)
	})

	// pad batch ids contain slashes
	r.Get("/batch/*", h.Inventory.GetByPadBatchID)

	r.Post("/distribute", h.Distribution.Checkout)
	r.Route("/student/{studentUserId}", func(r chi.Router) {
		r.Get("/history", h.Distribution.History)
		r.Get("/eligibility", h.Distribution.Eligibility)
	})

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Inventory.Get)
		r.Put("/", h.Inventory.Update)
		r.Delete("/", h.Inventory.Delete)
		r.Post("/distribute", h.Distribution.Distribute)
		r.Post("/adjust", h.Stock.Adjust)
	})
}
