// internal/model/campaign.go
package model

import "github.com/unclebandit/crowdfund-backend/internal/address"

const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
)

// Campaign is the authoritative fundraising record. Timestamps are unix seconds.
type Campaign struct {
	Address       address.Address `json:"address"`
	Creator       address.Address `json:"creator"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	TargetAmount  uint64          `json:"target_amount"`
	CurrentAmount uint64          `json:"current_amount"`
	Deadline      int64           `json:"deadline"`
	CreatedAt     int64           `json:"created_at"`
	IsActive      bool            `json:"is_active"`
	Version       uint64          `json:"version"`
}

// State derives the lifecycle state at now.
func (c *Campaign) State(now int64) CampaignState {
	return StateAt(c.IsActive, c.CurrentAmount, c.TargetAmount, c.Deadline, now)
}

// Expired reports whether funding is closed by time.
func (c *Campaign) Expired(now int64) bool {
	return now > c.Deadline
}

// ProgressPercent is current/target as a whole percentage, capped at 100.
func (c *Campaign) ProgressPercent() int {
	if c.TargetAmount == 0 {
		return 0
	}
	if c.CurrentAmount >= c.TargetAmount {
		return 100
	}
	return int(float64(c.CurrentAmount) / float64(c.TargetAmount) * 100)
}
