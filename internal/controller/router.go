package controller

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/unclebandit/crowdfund-backend/internal/auth"
	"github.com/unclebandit/crowdfund-backend/internal/handler"
)

// NewRouter mounts the read routes openly and the ledger mutations behind
// signer verification.
func NewRouter(ctrl *CampaignController, h *handler.CampaignHandler, verifier auth.Verifier) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/campaigns", ctrl.ListCampaigns)
	r.Get("/campaigns/{address}", h.GetCampaignHandlerWithStats)
	r.Get("/campaigns/{address}/audit", h.AuditCampaignHandler)
	if h.Service.Events != nil {
		r.Get("/campaigns/{address}/events", h.CampaignEventsHandler)
	}
	r.Get("/campaigns/{address}/contributions/{contributor}", ctrl.GetContribution)
	r.Get("/accounts/{address}/balance", ctrl.GetBalance)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireSigner(verifier))

		r.Post("/campaigns", ctrl.CreateCampaign)
		r.Post("/campaigns/{address}/fund", ctrl.FundCampaign)
		r.Post("/campaigns/{address}/withdraw", ctrl.WithdrawFunds)
		r.Post("/campaigns/{address}/refund", ctrl.RefundContribution)
		if ctrl.FaucetEnabled {
			r.Post("/faucet", ctrl.Faucet)
		}
	})

	return r
}
