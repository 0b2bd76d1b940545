// internal/ledger/audit.go
package ledger

import (
	"context"

	"github.com/unclebandit/crowdfund-backend/internal/address"
	"github.com/unclebandit/crowdfund-backend/internal/model"
	"github.com/unclebandit/crowdfund-backend/internal/repository"
)

// AuditReport compares a campaign's total against its escrow balance and its
// contribution records.
type AuditReport struct {
	Campaign          address.Address     `json:"campaign"`
	State             model.CampaignState `json:"state"`
	CurrentAmount     uint64              `json:"current_amount"`
	EscrowBalance     uint64              `json:"escrow_balance"`
	ContributionTotal uint64              `json:"contribution_total"`
	Contributions     int                 `json:"contributions"`
	Balanced          bool                `json:"balanced"`
}

// Audit checks conservation. While active, escrow, current_amount and the sum
// of contributions agree; once closed, escrow and current_amount are zero and
// the remaining contributions are history.
func Audit(ctx context.Context, tx repository.LedgerTx, campaignAddr address.Address, now int64) (*AuditReport, error) {
	campaign, err := tx.GetCampaign(ctx, campaignAddr)
	if err != nil {
		return nil, err
	}
	escrow, err := tx.Balance(ctx, campaign.Address)
	if err != nil {
		return nil, err
	}
	contributions, err := tx.ListContributions(ctx, campaign.Address)
	if err != nil {
		return nil, err
	}

	report := &AuditReport{
		Campaign:      campaign.Address,
		State:         campaign.State(now),
		CurrentAmount: campaign.CurrentAmount,
		EscrowBalance: escrow,
		Contributions: len(contributions),
	}
	overflow := false
	for _, c := range contributions {
		sum, err := checkedAdd(report.ContributionTotal, c.Amount)
		if err != nil {
			overflow = true
			break
		}
		report.ContributionTotal = sum
	}

	if campaign.IsActive {
		report.Balanced = !overflow && escrow == campaign.CurrentAmount && report.ContributionTotal == campaign.CurrentAmount
	} else {
		report.Balanced = escrow == 0 && campaign.CurrentAmount == 0
	}
	return report, nil
}
