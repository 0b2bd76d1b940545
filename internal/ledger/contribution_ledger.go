// internal/ledger/contribution_ledger.go
package ledger

import (
	"context"
	"math/bits"

	"github.com/unclebandit/crowdfund-backend/internal/address"
	appErrors "github.com/unclebandit/crowdfund-backend/internal/errors"
	"github.com/unclebandit/crowdfund-backend/internal/model"
	"github.com/unclebandit/crowdfund-backend/internal/repository"
)

// RecordContribution upserts contributor's record and raises the campaign
// total by the same amount within tx. campaign must have been read from tx.
func RecordContribution(ctx context.Context, tx repository.LedgerTx, campaign *model.Campaign, contributor address.Address, amount uint64, now int64) (*model.Contribution, error) {
	if amount == 0 {
		return nil, appErrors.ErrInvalidAmount
	}
	state := campaign.State(now)
	if state == model.StateClosed {
		return nil, appErrors.ErrCampaignNotActive
	}
	if !state.CanFund() || campaign.Expired(now) {
		return nil, appErrors.ErrCampaignExpired
	}

	total, err := checkedAdd(campaign.CurrentAmount, amount)
	if err != nil {
		return nil, err
	}

	addr := address.Contribution(campaign.Address, contributor)
	contribution, err := tx.GetContribution(ctx, addr)
	if err != nil {
		return nil, err
	}
	if contribution == nil {
		contribution = &model.Contribution{
			Address:     addr,
			Contributor: contributor,
			Campaign:    campaign.Address,
		}
	}
	if contribution.Amount, err = checkedAdd(contribution.Amount, amount); err != nil {
		return nil, err
	}
	contribution.Timestamp = now

	if err := tx.PutContribution(ctx, contribution); err != nil {
		return nil, err
	}
	campaign.CurrentAmount = total
	if err := tx.UpdateCampaign(ctx, campaign); err != nil {
		return nil, err
	}
	return contribution, nil
}

func checkedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, appErrors.ErrAmountOverflow
	}
	return sum, nil
}
