// internal/controller/campaign_controller.go
package controller

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/unclebandit/crowdfund-backend/internal/address"
	"github.com/unclebandit/crowdfund-backend/internal/auth"
	"github.com/unclebandit/crowdfund-backend/internal/handler"
	"github.com/unclebandit/crowdfund-backend/internal/ledger"
	"github.com/unclebandit/crowdfund-backend/internal/service"
)

type CampaignController struct {
	CampaignService *service.CampaignService
	FaucetEnabled   bool
}

type amountBody struct {
	Amount json.Number `json:"amount"`
}

type createCampaignBody struct {
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	TargetAmount json.Number `json:"target_amount"`
	Deadline     int64       `json:"deadline"`
}

// toUint64 reads a JSON number as an amount. Anything outside uint64 reads
// as zero, which the ledger rejects under the field's own error code.
func toUint64(n json.Number) uint64 {
	v, err := strconv.ParseUint(n.String(), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// decode reads a JSON body into dst. An empty body is allowed when optional.
func decode(r *http.Request, dst any, optional bool) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if optional && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// signer returns the verified caller, or writes 401 when the route was
// mounted without RequireSigner.
func signer(w http.ResponseWriter, r *http.Request) (address.Address, bool) {
	s, ok := auth.SignerFrom(r.Context())
	if !ok {
		handler.WriteError(w, http.StatusUnauthorized, "Unauthorized", "a signer is required")
	}
	return s, ok
}

func campaignParam(w http.ResponseWriter, r *http.Request) (address.Address, bool) {
	addr, ok := handler.AddressParam(r, "address")
	if !ok {
		handler.WriteError(w, http.StatusBadRequest, "InvalidAddress", "invalid campaign address")
	}
	return addr, ok
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	creator, ok := signer(w, r)
	if !ok {
		return
	}

	var body createCampaignBody
	if err := decode(r, &body, false); err != nil {
		handler.WriteError(w, http.StatusBadRequest, "InvalidBody", "invalid body")
		return
	}

	campaign, err := c.CampaignService.CreateCampaign(r.Context(), creator, ledger.NewCampaign{
		Title:        body.Title,
		Description:  body.Description,
		TargetAmount: toUint64(body.TargetAmount),
		Deadline:     body.Deadline,
	})
	if err != nil {
		handler.WriteLedgerError(w, r, err)
		return
	}

	handler.WriteJSON(w, http.StatusCreated, campaign)
}

func (c *CampaignController) FundCampaign(w http.ResponseWriter, r *http.Request) {
	contributor, ok := signer(w, r)
	if !ok {
		return
	}
	campaignAddr, ok := campaignParam(w, r)
	if !ok {
		return
	}

	var body amountBody
	if err := decode(r, &body, false); err != nil {
		handler.WriteError(w, http.StatusBadRequest, "InvalidBody", "amount must be a number")
		return
	}

	res, err := c.CampaignService.FundCampaign(r.Context(), campaignAddr, contributor, toUint64(body.Amount))
	if err != nil {
		handler.WriteLedgerError(w, r, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, res)
}

func (c *CampaignController) WithdrawFunds(w http.ResponseWriter, r *http.Request) {
	caller, ok := signer(w, r)
	if !ok {
		return
	}
	campaignAddr, ok := campaignParam(w, r)
	if !ok {
		return
	}

	res, err := c.CampaignService.WithdrawFunds(r.Context(), campaignAddr, caller)
	if err != nil {
		handler.WriteLedgerError(w, r, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, res)
}

func (c *CampaignController) RefundContribution(w http.ResponseWriter, r *http.Request) {
	caller, ok := signer(w, r)
	if !ok {
		return
	}
	campaignAddr, ok := campaignParam(w, r)
	if !ok {
		return
	}

	var body struct {
		Contributor string `json:"contributor"`
	}
	if err := decode(r, &body, true); err != nil {
		handler.WriteError(w, http.StatusBadRequest, "InvalidBody", "invalid body")
		return
	}
	var contributor address.Address
	if body.Contributor != "" {
		parsed, err := address.Parse(body.Contributor)
		if err != nil {
			handler.WriteError(w, http.StatusBadRequest, "InvalidAddress", err.Error())
			return
		}
		contributor = parsed
	}

	res, err := c.CampaignService.RefundContribution(r.Context(), campaignAddr, contributor, caller)
	if err != nil {
		handler.WriteLedgerError(w, r, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, res)
}

// Faucet credits the signer. Mounted only when FaucetEnabled is set.
func (c *CampaignController) Faucet(w http.ResponseWriter, r *http.Request) {
	if !c.FaucetEnabled {
		handler.WriteError(w, http.StatusNotFound, "NotFound", "faucet is disabled")
		return
	}
	account, ok := signer(w, r)
	if !ok {
		return
	}

	var body amountBody
	if err := decode(r, &body, false); err != nil {
		handler.WriteError(w, http.StatusBadRequest, "InvalidBody", "amount must be a number")
		return
	}

	balance, err := c.CampaignService.Deposit(r.Context(), account, toUint64(body.Amount))
	if err != nil {
		handler.WriteLedgerError(w, r, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, map[string]any{
		"account": account,
		"balance": balance,
	})
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	// Parse query parameters
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	campaigns, pagination, err := c.CampaignService.ListCampaigns(r.Context(), page, pageSize)
	if err != nil {
		handler.WriteLedgerError(w, r, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"data":       campaigns,
		"pagination": pagination, // already contains total_count, total_pages, page, page_size
	})
}

func (c *CampaignController) GetContribution(w http.ResponseWriter, r *http.Request) {
	campaignAddr, ok := campaignParam(w, r)
	if !ok {
		return
	}
	contributor, ok := handler.AddressParam(r, "contributor")
	if !ok {
		handler.WriteError(w, http.StatusBadRequest, "InvalidAddress", "invalid contributor address")
		return
	}

	contribution, err := c.CampaignService.GetContribution(r.Context(), campaignAddr, contributor)
	if err != nil {
		handler.WriteLedgerError(w, r, err)
		return
	}
	if contribution == nil {
		handler.WriteError(w, http.StatusNotFound, "ContributionNotFound",
			"contribution "+address.Contribution(campaignAddr, contributor).String()+" not found")
		return
	}

	handler.WriteJSON(w, http.StatusOK, contribution)
}

func (c *CampaignController) GetBalance(w http.ResponseWriter, r *http.Request) {
	account, ok := handler.AddressParam(r, "address")
	if !ok {
		handler.WriteError(w, http.StatusBadRequest, "InvalidAddress", "invalid account address")
		return
	}

	balance, err := c.CampaignService.Balance(r.Context(), account)
	if err != nil {
		handler.WriteLedgerError(w, r, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, map[string]any{
		"account": account,
		"balance": balance,
	})
}
