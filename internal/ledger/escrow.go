// internal/ledger/escrow.go
package ledger

import (
	"context"

	"github.com/unclebandit/crowdfund-backend/internal/address"
	appErrors "github.com/unclebandit/crowdfund-backend/internal/errors"
	"github.com/unclebandit/crowdfund-backend/internal/model"
	"github.com/unclebandit/crowdfund-backend/internal/repository"
)

// Escrow moves value between accounts. A campaign's escrow is the balance
// held by the campaign's own address.
type Escrow struct {
	Tx repository.LedgerTx
}

// Inbound moves amount from the contributor to the campaign escrow.
func (e Escrow) Inbound(ctx context.Context, contributor address.Address, campaign *model.Campaign, amount uint64) error {
	return e.transfer(ctx, contributor, campaign.Address, amount)
}

// ToCreator releases the whole escrow, which equals current_amount, to the
// creator and returns the amount moved.
func (e Escrow) ToCreator(ctx context.Context, campaign *model.Campaign) (uint64, error) {
	amount := campaign.CurrentAmount
	if err := e.transfer(ctx, campaign.Address, campaign.Creator, amount); err != nil {
		return 0, err
	}
	return amount, nil
}

// ToContributor returns exactly the contribution's amount to its contributor.
func (e Escrow) ToContributor(ctx context.Context, campaign *model.Campaign, contribution *model.Contribution) error {
	return e.transfer(ctx, campaign.Address, contribution.Contributor, contribution.Amount)
}

// Deposit credits value entering the ledger from outside.
func (e Escrow) Deposit(ctx context.Context, account address.Address, amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, appErrors.ErrInvalidAmount
	}
	balance, err := e.Tx.Balance(ctx, account)
	if err != nil {
		return 0, err
	}
	next, err := checkedAdd(balance, amount)
	if err != nil {
		return 0, err
	}
	if err := e.Tx.SetBalance(ctx, account, next); err != nil {
		return 0, err
	}
	return next, nil
}

func (e Escrow) transfer(ctx context.Context, from, to address.Address, amount uint64) error {
	if amount == 0 || from == to {
		return nil
	}
	fromBalance, err := e.Tx.Balance(ctx, from)
	if err != nil {
		return err
	}
	if fromBalance < amount {
		return appErrors.NewInsufficientFunds(from.String(), fromBalance, amount)
	}
	toBalance, err := e.Tx.Balance(ctx, to)
	if err != nil {
		return err
	}
	credited, err := checkedAdd(toBalance, amount)
	if err != nil {
		return err
	}
	if err := e.Tx.SetBalance(ctx, from, fromBalance-amount); err != nil {
		return err
	}
	return e.Tx.SetBalance(ctx, to, credited)
}
