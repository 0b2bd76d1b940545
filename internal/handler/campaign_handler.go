// internal/handler/campaign_handler.go
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/unclebandit/crowdfund-backend/internal/service"
)

// CampaignHandler serves the read-only campaign views
type CampaignHandler struct {
	Service *service.CampaignService
}

func NewCampaignHandler(svc *service.CampaignService) *CampaignHandler {
	return &CampaignHandler{Service: svc}
}

// GetCampaignHandlerWithStats returns a campaign plus its derived stats
func (h *CampaignHandler) GetCampaignHandlerWithStats(w http.ResponseWriter, r *http.Request) {
	addr, ok := AddressParam(r, "address")
	if !ok {
		WriteError(w, http.StatusBadRequest, "InvalidAddress", "invalid campaign address")
		return
	}

	slog.DebugContext(r.Context(), "📥 campaign details requested", "campaign", addr.String())

	details, err := h.Service.GetCampaignDetailsWithStats(r.Context(), addr)
	if err != nil {
		WriteLedgerError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, details)
}

// AuditCampaignHandler reports whether escrow, total and contributions agree
func (h *CampaignHandler) AuditCampaignHandler(w http.ResponseWriter, r *http.Request) {
	addr, ok := AddressParam(r, "address")
	if !ok {
		WriteError(w, http.StatusBadRequest, "InvalidAddress", "invalid campaign address")
		return
	}

	report, err := h.Service.AuditCampaign(r.Context(), addr)
	if err != nil {
		WriteLedgerError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, report)
}

// CampaignEventsHandler lists the recorded events of a campaign
func (h *CampaignHandler) CampaignEventsHandler(w http.ResponseWriter, r *http.Request) {
	addr, ok := AddressParam(r, "address")
	if !ok {
		WriteError(w, http.StatusBadRequest, "InvalidAddress", "invalid campaign address")
		return
	}

	events, err := h.Service.CampaignEvents(r.Context(), addr)
	if errors.Is(err, service.ErrEventLogUnavailable) {
		WriteError(w, http.StatusNotFound, "EventLogUnavailable", err.Error())
		return
	}
	if err != nil {
		WriteLedgerError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"data": events})
}
