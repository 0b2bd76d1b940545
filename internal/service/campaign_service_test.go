package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/unclebandit/crowdfund-backend/internal/address"
	appErrors "github.com/unclebandit/crowdfund-backend/internal/errors"
	"github.com/unclebandit/crowdfund-backend/internal/ledger"
	"github.com/unclebandit/crowdfund-backend/internal/model"
	"github.com/unclebandit/crowdfund-backend/internal/repository"
	"github.com/unclebandit/crowdfund-backend/internal/service"
)

// Mock queue capturing every published payload
type MockQueue struct {
	mu     sync.Mutex
	topics []string
	events []model.LedgerEvent
	fail   bool
}

func (q *MockQueue) Publish(topic string, payload any) error {
	if q.fail {
		return errors.New("broker down")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.topics = append(q.topics, topic)
	q.events = append(q.events, payload.(model.LedgerEvent))
	return nil
}

func (q *MockQueue) Subscribe(topic string, handler func(payload any) error) error {
	return nil
}

var (
	creator = address.Derive([]byte("creator"))
	alice   = address.Derive([]byte("alice"))
	bob     = address.Derive([]byte("bob"))
	epoch   = time.Unix(1_700_000_000, 0)
)

func newService(t *testing.T) (*service.CampaignService, *MockQueue, *service.FixedClock) {
	t.Helper()
	repo, err := repository.NewMemoryRepository()
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	q := &MockQueue{}
	clock := service.NewFixedClock(epoch)
	return &service.CampaignService{Repo: repo, Queue: q, Clock: clock}, q, clock
}

func createCampaign(t *testing.T, svc *service.CampaignService, target uint64, ttl time.Duration) *model.Campaign {
	t.Helper()
	c, err := svc.CreateCampaign(context.Background(), creator, ledger.NewCampaign{
		Title:        "Save the bees",
		Description:  "Pollinator habitat",
		TargetAmount: target,
		Deadline:     epoch.Add(ttl).Unix(),
	})
	if err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	return c
}

func TestServiceSuccessfulCampaign(t *testing.T) {
	svc, q, clock := newService(t)
	ctx := context.Background()

	for _, who := range []address.Address{alice, bob} {
		if _, err := svc.Deposit(ctx, who, 1_000_000_000); err != nil {
			t.Fatalf("deposit: %v", err)
		}
	}
	c := createCampaign(t, svc, 1_000_000_000, time.Hour)

	for _, who := range []address.Address{alice, bob} {
		clock.Advance(time.Second)
		if _, err := svc.FundCampaign(ctx, c.Address, who, 500_000_000); err != nil {
			t.Fatalf("fund: %v", err)
		}
	}

	details, err := svc.GetCampaignDetailsWithStats(ctx, c.Address)
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	if details.Stats.State != model.StateSucceeded || details.Stats.Contributors != 2 || details.Stats.ProgressPercent != 100 {
		t.Errorf("unexpected stats %+v", details.Stats)
	}
	if details.Stats.EscrowBalance != 1_000_000_000 || details.Stats.Expired {
		t.Errorf("unexpected escrow stats %+v", details.Stats)
	}

	res, err := svc.WithdrawFunds(ctx, c.Address, creator)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if res.Amount != 1_000_000_000 || res.Campaign.IsActive {
		t.Errorf("unexpected withdrawal %+v", res)
	}
	balance, _ := svc.Balance(ctx, creator)
	if balance != 1_000_000_000 {
		t.Errorf("expected creator balance 1e9, got %d", balance)
	}

	report, err := svc.AuditCampaign(ctx, c.Address)
	if err != nil || !report.Balanced {
		t.Errorf("expected balanced audit, got %+v (%v)", report, err)
	}

	want := []model.EventType{
		model.EventAccountDeposited,
		model.EventAccountDeposited,
		model.EventCampaignCreated,
		model.EventCampaignFunded,
		model.EventCampaignFunded,
		model.EventCampaignWithdrawn,
	}
	if len(q.events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(q.events))
	}
	seen := map[string]bool{}
	for i, e := range q.events {
		if e.Type != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], e.Type)
		}
		if e.ID == "" || seen[e.ID] {
			t.Errorf("event %d has missing or repeated id %q", i, e.ID)
		}
		seen[e.ID] = true
		if q.topics[i] != service.DefaultEventTopic {
			t.Errorf("event %d published on %s", i, q.topics[i])
		}
	}
	if last := q.events[len(q.events)-1]; last.Campaign != c.Address.String() || last.Amount != 1_000_000_000 {
		t.Errorf("unexpected withdrawal event %+v", last)
	}
}

func TestServiceRefundDefaultsToSigner(t *testing.T) {
	svc, _, clock := newService(t)
	ctx := context.Background()

	if _, err := svc.Deposit(ctx, alice, 1_000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	c := createCampaign(t, svc, 1_000_000_000, 2*time.Second)
	if _, err := svc.FundCampaign(ctx, c.Address, alice, 500); err != nil {
		t.Fatalf("fund: %v", err)
	}

	clock.Advance(3 * time.Second)
	res, err := svc.RefundContribution(ctx, c.Address, address.Zero, alice)
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if res.Contribution.Amount != 500 || res.Campaign.CurrentAmount != 0 {
		t.Errorf("unexpected refund %+v", res)
	}
	if b, _ := svc.Balance(ctx, alice); b != 1_000 {
		t.Errorf("expected alice made whole, got %d", b)
	}

	contribution, err := svc.GetContribution(ctx, c.Address, alice)
	if err != nil || contribution != nil {
		t.Errorf("expected refunded contribution gone, got %+v (%v)", contribution, err)
	}

	var notFound *appErrors.ErrContributionNotFound
	if _, err := svc.RefundContribution(ctx, c.Address, alice, alice); !errors.As(err, &notFound) {
		t.Errorf("expected replay to find nothing, got %v", err)
	}
}

func TestServiceRejectionPublishesNothing(t *testing.T) {
	svc, q, _ := newService(t)
	ctx := context.Background()
	c := createCampaign(t, svc, 100, time.Hour)
	published := len(q.events)

	if _, err := svc.FundCampaign(ctx, c.Address, alice, 10); err == nil {
		t.Fatal("expected insufficient funds")
	}
	if _, err := svc.WithdrawFunds(ctx, c.Address, alice); !errors.Is(err, appErrors.ErrUnauthorizedWithdrawal) {
		t.Errorf("expected unauthorized withdrawal, got %v", err)
	}
	if len(q.events) != published {
		t.Errorf("rejected operations published %d events", len(q.events)-published)
	}
}

func TestServiceSurvivesPublishFailure(t *testing.T) {
	svc, q, _ := newService(t)
	q.fail = true

	c := createCampaign(t, svc, 100, time.Hour)
	got, err := svc.GetCampaign(context.Background(), c.Address)
	if err != nil {
		t.Fatalf("committed campaign missing after publish failure: %v", err)
	}
	if got.Title != "Save the bees" {
		t.Errorf("unexpected campaign %+v", got)
	}
}

func TestServiceDetailsAfterDeadline(t *testing.T) {
	svc, _, clock := newService(t)
	c := createCampaign(t, svc, 100, time.Minute)
	clock.Advance(2 * time.Minute)

	details, err := svc.GetCampaignDetailsWithStats(context.Background(), c.Address)
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	if details.Stats.State != model.StateFailed || !details.Stats.Expired || details.Stats.RemainingSeconds != 0 {
		t.Errorf("unexpected stats %+v", details.Stats)
	}

	var notFound *appErrors.ErrCampaignNotFound
	if _, err := svc.GetCampaignDetailsWithStats(context.Background(), alice); !errors.As(err, &notFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
