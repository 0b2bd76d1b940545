// internal/repository/repository.go
package repository

import (
	"context"

	"github.com/unclebandit/crowdfund-backend/internal/address"
	"github.com/unclebandit/crowdfund-backend/internal/model"
)

// LedgerTx is the view of the ledger inside one atomic unit. Everything read
// and written through a LedgerTx commits together or not at all.
type LedgerTx interface {
	// Campaigns
	GetCampaign(ctx context.Context, addr address.Address) (*model.Campaign, error)
	InsertCampaign(ctx context.Context, c *model.Campaign) error
	// UpdateCampaign persists c if the stored version still equals c.Version,
	// then bumps c.Version.
	UpdateCampaign(ctx context.Context, c *model.Campaign) error

	// Contributions. GetContribution returns nil, nil when absent.
	GetContribution(ctx context.Context, addr address.Address) (*model.Contribution, error)
	PutContribution(ctx context.Context, c *model.Contribution) error
	DeleteContribution(ctx context.Context, addr address.Address) error
	ListContributions(ctx context.Context, campaign address.Address) ([]*model.Contribution, error)

	// Balances. Unknown accounts hold zero.
	Balance(ctx context.Context, account address.Address) (uint64, error)
	SetBalance(ctx context.Context, account address.Address, amount uint64) error
}

type LedgerRepositoryInterface interface {
	// Update runs fn in a read-write transaction, committing only if fn
	// returns nil.
	Update(ctx context.Context, fn func(tx LedgerTx) error) error
	// View runs fn against a consistent read-only snapshot.
	View(ctx context.Context, fn func(tx LedgerTx) error) error
	// ListCampaigns returns campaigns newest first plus the total count.
	ListCampaigns(ctx context.Context, offset, limit int) ([]*model.Campaign, int, error)
	Close() error
}
