// internal/auth/guard.go
package auth

import (
	"fmt"

	"github.com/unclebandit/crowdfund-backend/internal/address"
	appErrors "github.com/unclebandit/crowdfund-backend/internal/errors"
	"github.com/unclebandit/crowdfund-backend/internal/model"
)

// Operation is a mutating ledger call subject to the guard.
type Operation string

const (
	OpCreateCampaign     Operation = "create_campaign"
	OpFundCampaign       Operation = "fund_campaign"
	OpWithdrawFunds      Operation = "withdraw_funds"
	OpRefundContribution Operation = "refund_contribution"
	OpDeposit            Operation = "deposit"
)

// Authorize decides whether caller may perform op against the given records.
// It only compares identities; state preconditions are checked elsewhere.
func Authorize(op Operation, caller address.Address, campaign *model.Campaign, contribution *model.Contribution) error {
	if caller.IsZero() {
		return appErrors.ErrUnauthorizedSigner
	}
	switch op {
	case OpCreateCampaign, OpFundCampaign, OpDeposit:
		return nil
	case OpWithdrawFunds:
		if campaign == nil || campaign.Creator != caller {
			return appErrors.ErrUnauthorizedWithdrawal
		}
		return nil
	case OpRefundContribution:
		if contribution == nil || contribution.Contributor != caller {
			return appErrors.ErrUnauthorizedRefund
		}
		return nil
	default:
		return fmt.Errorf("unknown operation %q", op)
	}
}
