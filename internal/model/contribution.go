// internal/model/contribution.go
package model

import "github.com/unclebandit/crowdfund-backend/internal/address"

// Contribution is the cumulative amount one contributor escrowed in one campaign.
type Contribution struct {
	Address     address.Address `json:"address"`
	Contributor address.Address `json:"contributor"`
	Campaign    address.Address `json:"campaign"`
	Amount      uint64          `json:"amount"`
	Timestamp   int64           `json:"timestamp"`
}
