//cmd/seeder/main.go
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/unclebandit/crowdfund-backend/internal/address"
	"github.com/unclebandit/crowdfund-backend/internal/config"
	"github.com/unclebandit/crowdfund-backend/internal/ledger"
	"github.com/unclebandit/crowdfund-backend/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	credits, err := cfg.SeedCredits()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	// Opening a Postgres ledger applies the schema.
	repo, _, err := repository.Open(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer repo.Close()

	for _, credit := range credits {
		account, err := address.Parse(credit.Account)
		if err != nil {
			log.Fatalf("invalid seed account %s: %v", credit.Account, err)
		}

		var balance uint64
		err = repo.Update(ctx, func(tx repository.LedgerTx) error {
			var err error
			balance, err = ledger.Deposit(ctx, tx, account, credit.Amount)
			return err
		})
		if err != nil {
			log.Fatalf("failed to credit %s: %v", account, err)
		}
		fmt.Printf("Seeded: %s balance=%d\n", account, balance)
	}

	fmt.Printf("Ledger seeding completed successfully! (%s backend)\n", cfg.LedgerBackend)
}
