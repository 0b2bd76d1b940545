package repository_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/unclebandit/crowdfund-backend/internal/address"
	"github.com/unclebandit/crowdfund-backend/internal/db"
	appErrors "github.com/unclebandit/crowdfund-backend/internal/errors"
	"github.com/unclebandit/crowdfund-backend/internal/model"
	"github.com/unclebandit/crowdfund-backend/internal/repository"
)

// Runs against a real database only when TEST_DATABASE_URL is set.
func postgresRepo(t *testing.T) *repository.PostgresRepository {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	conn, err := db.Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Migrate(ctx, conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &repository.PostgresRepository{DB: conn}
}

func TestPostgresRepositoryLedger(t *testing.T) {
	repo := postgresRepo(t)
	ctx := context.Background()
	c := newCampaign("pg-"+uuid.NewString(), time.Now().Unix())
	alice := address.Derive([]byte(uuid.NewString()))

	err := repo.Update(ctx, func(tx repository.LedgerTx) error {
		if err := tx.InsertCampaign(ctx, c); err != nil {
			return err
		}
		if err := tx.SetBalance(ctx, alice, ^uint64(0)); err != nil {
			return err
		}
		c.CurrentAmount = 40
		if err := tx.UpdateCampaign(ctx, c); err != nil {
			return err
		}
		return tx.PutContribution(ctx, &model.Contribution{
			Address:     address.Contribution(c.Address, alice),
			Contributor: alice,
			Campaign:    c.Address,
			Amount:      40,
			Timestamp:   c.CreatedAt,
		})
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	err = repo.Update(ctx, func(tx repository.LedgerTx) error {
		return tx.InsertCampaign(ctx, c)
	})
	var inUse *appErrors.ErrAddressInUse
	if !errors.As(err, &inUse) {
		t.Fatalf("expected address in use, got %v", err)
	}

	err = repo.View(ctx, func(tx repository.LedgerTx) error {
		got, err := tx.GetCampaign(ctx, c.Address)
		if err != nil {
			return err
		}
		if got.CurrentAmount != 40 || got.Version != 2 {
			t.Errorf("unexpected campaign %+v", got)
		}
		b, err := tx.Balance(ctx, alice)
		if err != nil {
			return err
		}
		if b != ^uint64(0) {
			t.Errorf("uint64 balance did not round trip: %d", b)
		}
		list, err := tx.ListContributions(ctx, c.Address)
		if err != nil {
			return err
		}
		if len(list) != 1 || list[0].Amount != 40 {
			t.Errorf("unexpected contributions %+v", list)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}

	stale := *c
	stale.Version = 1
	err = repo.Update(ctx, func(tx repository.LedgerTx) error {
		return tx.UpdateCampaign(ctx, &stale)
	})
	if !errors.Is(err, appErrors.ErrConcurrentUpdate) {
		t.Fatalf("expected concurrent update, got %v", err)
	}
}

func TestEventRepositoryRecordAndList(t *testing.T) {
	events := &repository.EventRepository{DB: postgresRepo(t).DB}
	ctx := context.Background()
	campaign := address.Derive([]byte(uuid.NewString())).String()
	at := time.Unix(1_700_000_000, 0).UTC()

	funded := &model.LedgerEvent{ID: uuid.NewString(), Type: model.EventCampaignFunded, Campaign: campaign, Actor: "alice", Amount: ^uint64(0), OccurredAt: at.Add(time.Second)}
	created := &model.LedgerEvent{ID: uuid.NewString(), Type: model.EventCampaignCreated, Campaign: campaign, Actor: "creator", Amount: 100, OccurredAt: at}

	for _, e := range []*model.LedgerEvent{funded, created} {
		written, err := events.Record(ctx, e)
		if err != nil || !written {
			t.Fatalf("record %s: written=%v err=%v", e.ID, written, err)
		}
	}
	written, err := events.Record(ctx, funded)
	if err != nil || written {
		t.Fatalf("expected duplicate to be ignored, written=%v err=%v", written, err)
	}

	list, err := events.ListByCampaign(ctx, campaign)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 events, got %d", len(list))
	}
	if list[0].ID != created.ID || list[1].ID != funded.ID {
		t.Errorf("expected events in occurrence order, got %s, %s", list[0].Type, list[1].Type)
	}
	if list[1].Amount != ^uint64(0) {
		t.Errorf("uint64 amount did not round trip: %d", list[1].Amount)
	}
}
