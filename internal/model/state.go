// internal/model/state.go
package model

type CampaignState string

const (
	StateOngoing   CampaignState = "ongoing"
	StateSucceeded CampaignState = "succeeded"
	StateFailed    CampaignState = "failed"
	StateClosed    CampaignState = "closed"
)

// StateAt computes the campaign state from its fields. Closed wins over
// everything, then a reached target, then a passed deadline.
func StateAt(isActive bool, current, target uint64, deadline, now int64) CampaignState {
	switch {
	case !isActive:
		return StateClosed
	case current >= target:
		return StateSucceeded
	case now > deadline:
		return StateFailed
	default:
		return StateOngoing
	}
}

// CanFund reports whether the state accepts new contributions at all.
// The deadline is checked separately because a succeeded campaign may be
// past it.
func (s CampaignState) CanFund() bool {
	return s == StateOngoing || s == StateSucceeded
}

func (s CampaignState) CanWithdraw() bool {
	return s == StateSucceeded
}

func (s CampaignState) CanRefund() bool {
	return s == StateFailed
}
