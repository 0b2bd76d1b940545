package repository_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/unclebandit/crowdfund-backend/internal/address"
	appErrors "github.com/unclebandit/crowdfund-backend/internal/errors"
	"github.com/unclebandit/crowdfund-backend/internal/model"
	"github.com/unclebandit/crowdfund-backend/internal/repository"
)

func newCampaign(title string, createdAt int64) *model.Campaign {
	creator := address.Derive([]byte("creator"))
	return &model.Campaign{
		Address:      address.Campaign(creator, title),
		Creator:      creator,
		Title:        title,
		Description:  "desc",
		TargetAmount: 100,
		Deadline:     createdAt + 3600,
		CreatedAt:    createdAt,
		IsActive:     true,
		Version:      1,
	}
}

func memoryRepo(t *testing.T) *repository.LevelRepository {
	t.Helper()
	repo, err := repository.NewMemoryRepository()
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestLevelRepositoryInsertAndGet(t *testing.T) {
	repo := memoryRepo(t)
	ctx := context.Background()
	c := newCampaign("bees", 10)

	if err := repo.Update(ctx, func(tx repository.LedgerTx) error {
		return tx.InsertCampaign(ctx, c)
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	err := repo.Update(ctx, func(tx repository.LedgerTx) error {
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
		if got.Title != "bees" || got.Creator != c.Creator || !got.IsActive {
			t.Errorf("unexpected campaign %+v", got)
		}
		_, err = tx.GetCampaign(ctx, address.Derive([]byte("missing")))
		var notFound *appErrors.ErrCampaignNotFound
		if !errors.As(err, &notFound) {
			t.Errorf("expected not found, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestLevelRepositoryVersionCheck(t *testing.T) {
	repo := memoryRepo(t)
	ctx := context.Background()
	c := newCampaign("bees", 10)

	err := repo.Update(ctx, func(tx repository.LedgerTx) error {
		if err := tx.InsertCampaign(ctx, c); err != nil {
			return err
		}
		c.CurrentAmount = 5
		if err := tx.UpdateCampaign(ctx, c); err != nil {
			return err
		}
		if c.Version != 2 {
			t.Errorf("expected version 2, got %d", c.Version)
		}
		stale := *c
		stale.Version = 1
		return tx.UpdateCampaign(ctx, &stale)
	})
	if !errors.Is(err, appErrors.ErrConcurrentUpdate) {
		t.Fatalf("expected concurrent update, got %v", err)
	}

	// the failed transaction must leave nothing behind
	err = repo.View(ctx, func(tx repository.LedgerTx) error {
		_, err := tx.GetCampaign(ctx, c.Address)
		return err
	})
	var notFound *appErrors.ErrCampaignNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected rolled back insert, got %v", err)
	}
}

func TestLevelRepositoryContributions(t *testing.T) {
	repo := memoryRepo(t)
	ctx := context.Background()
	c := newCampaign("bees", 10)
	other := newCampaign("ants", 11)
	alice := address.Derive([]byte("alice"))
	bob := address.Derive([]byte("bob"))

	err := repo.Update(ctx, func(tx repository.LedgerTx) error {
		for _, campaign := range []*model.Campaign{c, other} {
			if err := tx.InsertCampaign(ctx, campaign); err != nil {
				return err
			}
		}
		for i, who := range []address.Address{alice, bob} {
			if err := tx.PutContribution(ctx, &model.Contribution{
				Address:     address.Contribution(c.Address, who),
				Contributor: who,
				Campaign:    c.Address,
				Amount:      uint64(i + 1),
			}); err != nil {
				return err
			}
		}
		return tx.PutContribution(ctx, &model.Contribution{
			Address:     address.Contribution(other.Address, alice),
			Contributor: alice,
			Campaign:    other.Address,
			Amount:      7,
		})
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	err = repo.Update(ctx, func(tx repository.LedgerTx) error {
		list, err := tx.ListContributions(ctx, c.Address)
		if err != nil {
			return err
		}
		if len(list) != 2 {
			t.Errorf("expected 2 contributions, got %d", len(list))
		}
		if err := tx.DeleteContribution(ctx, address.Contribution(c.Address, alice)); err != nil {
			return err
		}
		list, err = tx.ListContributions(ctx, c.Address)
		if err != nil {
			return err
		}
		if len(list) != 1 || list[0].Contributor != bob {
			t.Errorf("expected only bob left, got %+v", list)
		}
		got, err := tx.GetContribution(ctx, address.Contribution(c.Address, alice))
		if err != nil {
			return err
		}
		if got != nil {
			t.Errorf("deleted contribution still readable: %+v", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	err = repo.Update(ctx, func(tx repository.LedgerTx) error {
		return tx.DeleteContribution(ctx, address.Contribution(c.Address, alice))
	})
	var notFound *appErrors.ErrContributionNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected contribution not found, got %v", err)
	}
}

func TestLevelRepositoryBalances(t *testing.T) {
	repo := memoryRepo(t)
	ctx := context.Background()
	alice := address.Derive([]byte("alice"))

	err := repo.View(ctx, func(tx repository.LedgerTx) error {
		b, err := tx.Balance(ctx, alice)
		if err != nil {
			return err
		}
		if b != 0 {
			t.Errorf("unknown account must hold zero, got %d", b)
		}
		if err := tx.SetBalance(ctx, alice, 1); err == nil {
			t.Error("view transaction accepted a write")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}

	const huge = ^uint64(0)
	if err := repo.Update(ctx, func(tx repository.LedgerTx) error {
		return tx.SetBalance(ctx, alice, huge)
	}); err != nil {
		t.Fatalf("set balance: %v", err)
	}
	_ = repo.View(ctx, func(tx repository.LedgerTx) error {
		b, err := tx.Balance(ctx, alice)
		if err != nil || b != huge {
			t.Errorf("expected %d, got %d (%v)", huge, b, err)
		}
		return nil
	})
}

func TestLevelRepositoryListCampaigns(t *testing.T) {
	repo := memoryRepo(t)
	ctx := context.Background()

	err := repo.Update(ctx, func(tx repository.LedgerTx) error {
		for i := 0; i < 5; i++ {
			if err := tx.InsertCampaign(ctx, newCampaign(fmt.Sprintf("campaign-%d", i), int64(100+i))); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	page, total, err := repo.ListCampaigns(ctx, 0, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 5 || len(page) != 2 {
		t.Fatalf("expected 2 of 5, got %d of %d", len(page), total)
	}
	if page[0].Title != "campaign-4" || page[1].Title != "campaign-3" {
		t.Errorf("expected newest first, got %s, %s", page[0].Title, page[1].Title)
	}

	page, _, _ = repo.ListCampaigns(ctx, 4, 2)
	if len(page) != 1 || page[0].Title != "campaign-0" {
		t.Errorf("unexpected last page %+v", page)
	}
	page, _, _ = repo.ListCampaigns(ctx, 10, 2)
	if len(page) != 0 {
		t.Errorf("expected empty page past the end, got %d", len(page))
	}

	page, _, err = repo.ListCampaigns(ctx, -3, 2)
	if err != nil || len(page) != 2 || page[0].Title != "campaign-4" {
		t.Errorf("negative offset should read from the start, got %d (%v)", len(page), err)
	}
	page, _, err = repo.ListCampaigns(ctx, 1, math.MaxInt)
	if err != nil || len(page) != 4 {
		t.Errorf("expected the remaining 4 campaigns, got %d (%v)", len(page), err)
	}
}

func TestLevelRepositoryPersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	c := newCampaign("bees", 10)

	repo, err := repository.OpenLevelRepository(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := repo.Update(ctx, func(tx repository.LedgerTx) error {
		return tx.InsertCampaign(ctx, c)
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	repo.Close()

	repo, err = repository.OpenLevelRepository(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()
	_, total, err := repo.ListCampaigns(ctx, 0, 10)
	if err != nil || total != 1 {
		t.Fatalf("expected 1 persisted campaign, got %d (%v)", total, err)
	}
}
