// internal/model/ledger_event.go
package model

import "time"

type EventType string

const (
	EventCampaignCreated      EventType = "campaign.created"
	EventCampaignFunded       EventType = "campaign.funded"
	EventCampaignWithdrawn    EventType = "campaign.withdrawn"
	EventContributionRefunded EventType = "contribution.refunded"
	EventAccountDeposited     EventType = "account.deposited"
)

// LedgerEvent is published after a ledger operation commits.
type LedgerEvent struct {
	ID         string    `db:"id" json:"id"`
	Type       EventType `db:"type" json:"type"`
	Campaign   string    `db:"campaign" json:"campaign,omitempty"`
	Actor      string    `db:"actor" json:"actor"`
	Amount     uint64    `db:"amount" json:"amount"`
	OccurredAt time.Time `db:"occurred_at" json:"occurred_at"`
}
