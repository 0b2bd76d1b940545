// internal/ledger/campaign_store.go
package ledger

import (
	"context"
	"unicode/utf8"

	"github.com/unclebandit/crowdfund-backend/internal/address"
	"github.com/unclebandit/crowdfund-backend/internal/auth"
	appErrors "github.com/unclebandit/crowdfund-backend/internal/errors"
	"github.com/unclebandit/crowdfund-backend/internal/model"
	"github.com/unclebandit/crowdfund-backend/internal/repository"
)

// NewCampaign holds the creator-supplied fields of a campaign.
type NewCampaign struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	TargetAmount uint64 `json:"target_amount"`
	Deadline     int64  `json:"deadline"`
}

// Validate checks creation preconditions in a fixed order; the first
// violation is returned.
func (p NewCampaign) Validate(now int64) error {
	if err := checkLength("title", p.Title, model.MaxTitleLength, appErrors.ErrTitleTooLong); err != nil {
		return err
	}
	if err := checkLength("description", p.Description, model.MaxDescriptionLength, appErrors.ErrDescriptionTooLong); err != nil {
		return err
	}
	if p.TargetAmount == 0 {
		return appErrors.ErrInvalidTargetAmount
	}
	if p.Deadline <= now {
		return appErrors.ErrInvalidDeadline
	}
	return nil
}

// checkLength counts characters, not bytes. Empty and invalid UTF-8 values
// are reported under the same code as overlong ones.
func checkLength(field, value string, limit int, tooLong *appErrors.LedgerError) error {
	if !utf8.ValidString(value) {
		return appErrors.New(tooLong.Code, "%s must be valid UTF-8", field)
	}
	n := utf8.RuneCountInString(value)
	if n == 0 {
		return appErrors.New(tooLong.Code, "%s is required", field)
	}
	if n > limit {
		return tooLong
	}
	return nil
}

// CreateCampaign registers a campaign at the address derived from creator
// and title. The address is the only uniqueness check: a second campaign
// with the same pair fails and leaves the first untouched.
func CreateCampaign(ctx context.Context, tx repository.LedgerTx, creator address.Address, p NewCampaign, now int64) (*model.Campaign, error) {
	if err := auth.Authorize(auth.OpCreateCampaign, creator, nil, nil); err != nil {
		return nil, err
	}
	if err := p.Validate(now); err != nil {
		return nil, err
	}

	c := &model.Campaign{
		Address:       address.Campaign(creator, p.Title),
		Creator:       creator,
		Title:         p.Title,
		Description:   p.Description,
		TargetAmount:  p.TargetAmount,
		CurrentAmount: 0,
		Deadline:      p.Deadline,
		CreatedAt:     now,
		IsActive:      true,
		Version:       1,
	}
	if err := tx.InsertCampaign(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
