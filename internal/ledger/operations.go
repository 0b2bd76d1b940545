// internal/ledger/operations.go
package ledger

import (
	"context"
	"fmt"

	"github.com/unclebandit/crowdfund-backend/internal/address"
	"github.com/unclebandit/crowdfund-backend/internal/auth"
	appErrors "github.com/unclebandit/crowdfund-backend/internal/errors"
	"github.com/unclebandit/crowdfund-backend/internal/model"
	"github.com/unclebandit/crowdfund-backend/internal/repository"
)

// Each operation below must run inside a single repository Update so that a
// failure at any step discards every write made before it.

// Fund records the contribution and moves the funds into escrow.
func Fund(ctx context.Context, tx repository.LedgerTx, campaignAddr, contributor address.Address, amount uint64, now int64) (*model.Campaign, *model.Contribution, error) {
	if err := auth.Authorize(auth.OpFundCampaign, contributor, nil, nil); err != nil {
		return nil, nil, err
	}
	if amount == 0 {
		return nil, nil, appErrors.ErrInvalidAmount
	}
	campaign, err := tx.GetCampaign(ctx, campaignAddr)
	if err != nil {
		return nil, nil, err
	}
	contribution, err := RecordContribution(ctx, tx, campaign, contributor, amount, now)
	if err != nil {
		return nil, nil, err
	}
	if err := (Escrow{Tx: tx}).Inbound(ctx, contributor, campaign, amount); err != nil {
		return nil, nil, err
	}
	return campaign, contribution, nil
}

// Withdraw releases the escrow of a succeeded campaign to its creator and
// closes the campaign. A replay finds the campaign closed.
func Withdraw(ctx context.Context, tx repository.LedgerTx, campaignAddr, signer address.Address, now int64) (*model.Campaign, uint64, error) {
	campaign, err := tx.GetCampaign(ctx, campaignAddr)
	if err != nil {
		return nil, 0, err
	}
	if err := auth.Authorize(auth.OpWithdrawFunds, signer, campaign, nil); err != nil {
		return nil, 0, err
	}
	if !campaign.IsActive {
		return nil, 0, appErrors.ErrCampaignNotActive
	}
	if !campaign.State(now).CanWithdraw() {
		return nil, 0, appErrors.ErrWithdrawalNotAllowed
	}

	amount, err := (Escrow{Tx: tx}).ToCreator(ctx, campaign)
	if err != nil {
		return nil, 0, err
	}
	campaign.CurrentAmount = 0
	campaign.IsActive = false
	if err := tx.UpdateCampaign(ctx, campaign); err != nil {
		return nil, 0, err
	}
	return campaign, amount, nil
}

// Refund returns one contribution of a failed campaign and destroys the
// record, so a replay finds nothing to refund. The campaign stays active for
// the remaining contributors.
func Refund(ctx context.Context, tx repository.LedgerTx, campaignAddr, contributor, signer address.Address, now int64) (*model.Campaign, *model.Contribution, error) {
	if signer.IsZero() {
		return nil, nil, appErrors.ErrUnauthorizedSigner
	}
	campaign, err := tx.GetCampaign(ctx, campaignAddr)
	if err != nil {
		return nil, nil, err
	}
	contributionAddr := address.Contribution(campaign.Address, contributor)
	contribution, err := tx.GetContribution(ctx, contributionAddr)
	if err != nil {
		return nil, nil, err
	}
	if contribution == nil {
		return nil, nil, appErrors.NewContributionNotFound(contributionAddr.String())
	}
	if !campaign.State(now).CanRefund() {
		return nil, nil, appErrors.ErrRefundNotAllowed
	}
	if err := auth.Authorize(auth.OpRefundContribution, signer, campaign, contribution); err != nil {
		return nil, nil, err
	}
	if campaign.CurrentAmount < contribution.Amount {
		return nil, nil, fmt.Errorf("campaign %s total %d is below contribution %d", campaign.Address, campaign.CurrentAmount, contribution.Amount)
	}

	if err := (Escrow{Tx: tx}).ToContributor(ctx, campaign, contribution); err != nil {
		return nil, nil, err
	}
	campaign.CurrentAmount -= contribution.Amount
	if err := tx.UpdateCampaign(ctx, campaign); err != nil {
		return nil, nil, err
	}
	if err := tx.DeleteContribution(ctx, contribution.Address); err != nil {
		return nil, nil, err
	}
	return campaign, contribution, nil
}

// Deposit credits an account from outside the ledger.
func Deposit(ctx context.Context, tx repository.LedgerTx, account address.Address, amount uint64) (uint64, error) {
	if err := auth.Authorize(auth.OpDeposit, account, nil, nil); err != nil {
		return 0, err
	}
	return (Escrow{Tx: tx}).Deposit(ctx, account, amount)
}
