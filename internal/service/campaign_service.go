// internal/service/campaign_service.go
package service

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/unclebandit/crowdfund-backend/internal/address"
	"github.com/unclebandit/crowdfund-backend/internal/ledger"
	"github.com/unclebandit/crowdfund-backend/internal/model"
	"github.com/unclebandit/crowdfund-backend/internal/queue"
	"github.com/unclebandit/crowdfund-backend/internal/repository"
)

const DefaultEventTopic = "ledger_events"

// CampaignService runs every ledger operation in one repository transaction
// and announces what committed on the event queue.
type CampaignService struct {
	Repo   repository.LedgerRepositoryInterface
	Queue  queue.Queue
	Clock  Clock
	Logger *slog.Logger
	Tracer trace.Tracer
	// Topic defaults to DefaultEventTopic.
	Topic string
	// Events is the recorded event log; nil when no event table is configured.
	Events EventLog
}

// EventLog reads back recorded ledger events.
type EventLog interface {
	ListByCampaign(ctx context.Context, campaign string) ([]*model.LedgerEvent, error)
}

var ErrEventLogUnavailable = errors.New("event log is not configured")

type WithdrawResult struct {
	Campaign *model.Campaign `json:"campaign"`
	Amount   uint64          `json:"amount"`
}

type ContributionResult struct {
	Campaign     *model.Campaign     `json:"campaign"`
	Contribution *model.Contribution `json:"contribution"`
}

// CampaignStats are derived at read time and never stored.
type CampaignStats struct {
	State            model.CampaignState `json:"state"`
	Contributors     int                 `json:"contributors"`
	ProgressPercent  int                 `json:"progress_percent"`
	Expired          bool                `json:"expired"`
	RemainingSeconds int64               `json:"remaining_seconds"`
	EscrowBalance    uint64              `json:"escrow_balance"`
}

type CampaignDetails struct {
	Address       address.Address `json:"address"`
	Creator       address.Address `json:"creator"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	TargetAmount  uint64          `json:"target_amount"`
	CurrentAmount uint64          `json:"current_amount"`
	Deadline      int64           `json:"deadline"`
	CreatedAt     int64           `json:"created_at"`
	IsActive      bool            `json:"is_active"`
	Stats         CampaignStats   `json:"stats"`
}

func (s *CampaignService) now() int64 {
	if s.Clock == nil {
		return SystemClock{}.Now().Unix()
	}
	return s.Clock.Now().Unix()
}

func (s *CampaignService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *CampaignService) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := s.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/unclebandit/crowdfund-backend/internal/service")
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// publish runs after commit. A lost event never undoes a committed operation,
// so failures are only logged.
func (s *CampaignService) publish(ctx context.Context, eventType model.EventType, campaign *address.Address, actor address.Address, amount uint64) {
	if s.Queue == nil {
		return
	}
	event := model.LedgerEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Actor:      actor.String(),
		Amount:     amount,
		OccurredAt: SystemClock{}.Now().UTC(),
	}
	if s.Clock != nil {
		event.OccurredAt = s.Clock.Now().UTC()
	}
	if campaign != nil {
		event.Campaign = campaign.String()
	}

	topic := s.Topic
	if topic == "" {
		topic = DefaultEventTopic
	}
	if err := s.Queue.Publish(topic, event); err != nil {
		s.logger().WarnContext(ctx, "failed to publish ledger event",
			"event", event.ID, "type", event.Type, "campaign", event.Campaign, "error", err)
	}
}

// ====================== Mutations ======================

func (s *CampaignService) CreateCampaign(ctx context.Context, creator address.Address, p ledger.NewCampaign) (c *model.Campaign, err error) {
	ctx, span := s.startSpan(ctx, "CampaignService.CreateCampaign", attribute.String("creator", creator.String()))
	defer func() { endSpan(span, err) }()

	now := s.now()
	err = s.Repo.Update(ctx, func(tx repository.LedgerTx) error {
		var err error
		c, err = ledger.CreateCampaign(ctx, tx, creator, p, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger().InfoContext(ctx, "campaign created",
		"campaign", c.Address.String(), "actor", creator.String(), "amount", c.TargetAmount)
	s.publish(ctx, model.EventCampaignCreated, &c.Address, creator, c.TargetAmount)
	return c, nil
}

func (s *CampaignService) FundCampaign(ctx context.Context, campaignAddr, contributor address.Address, amount uint64) (res *ContributionResult, err error) {
	ctx, span := s.startSpan(ctx, "CampaignService.FundCampaign",
		attribute.String("campaign", campaignAddr.String()),
		attribute.String("contributor", contributor.String()),
		attribute.Int64("amount", int64(amount)))
	defer func() { endSpan(span, err) }()

	now := s.now()
	res = &ContributionResult{}
	err = s.Repo.Update(ctx, func(tx repository.LedgerTx) error {
		var err error
		res.Campaign, res.Contribution, err = ledger.Fund(ctx, tx, campaignAddr, contributor, amount, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger().InfoContext(ctx, "campaign funded",
		"campaign", campaignAddr.String(), "actor", contributor.String(), "amount", amount,
		"current_amount", res.Campaign.CurrentAmount)
	s.publish(ctx, model.EventCampaignFunded, &campaignAddr, contributor, amount)
	return res, nil
}

func (s *CampaignService) WithdrawFunds(ctx context.Context, campaignAddr, signer address.Address) (res *WithdrawResult, err error) {
	ctx, span := s.startSpan(ctx, "CampaignService.WithdrawFunds", attribute.String("campaign", campaignAddr.String()))
	defer func() { endSpan(span, err) }()

	now := s.now()
	res = &WithdrawResult{}
	err = s.Repo.Update(ctx, func(tx repository.LedgerTx) error {
		var err error
		res.Campaign, res.Amount, err = ledger.Withdraw(ctx, tx, campaignAddr, signer, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger().InfoContext(ctx, "💸 funds withdrawn",
		"campaign", campaignAddr.String(), "actor", signer.String(), "amount", res.Amount)
	s.publish(ctx, model.EventCampaignWithdrawn, &campaignAddr, signer, res.Amount)
	return res, nil
}

// RefundContribution refunds contributor's record. A zero contributor means
// the signer is refunding their own contribution.
func (s *CampaignService) RefundContribution(ctx context.Context, campaignAddr, contributor, signer address.Address) (res *ContributionResult, err error) {
	if contributor.IsZero() {
		contributor = signer
	}
	ctx, span := s.startSpan(ctx, "CampaignService.RefundContribution",
		attribute.String("campaign", campaignAddr.String()),
		attribute.String("contributor", contributor.String()))
	defer func() { endSpan(span, err) }()

	now := s.now()
	res = &ContributionResult{}
	err = s.Repo.Update(ctx, func(tx repository.LedgerTx) error {
		var err error
		res.Campaign, res.Contribution, err = ledger.Refund(ctx, tx, campaignAddr, contributor, signer, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger().InfoContext(ctx, "contribution refunded",
		"campaign", campaignAddr.String(), "actor", contributor.String(), "amount", res.Contribution.Amount)
	s.publish(ctx, model.EventContributionRefunded, &campaignAddr, contributor, res.Contribution.Amount)
	return res, nil
}

// Deposit credits account from outside the ledger and returns its new balance.
func (s *CampaignService) Deposit(ctx context.Context, account address.Address, amount uint64) (balance uint64, err error) {
	ctx, span := s.startSpan(ctx, "CampaignService.Deposit", attribute.String("account", account.String()))
	defer func() { endSpan(span, err) }()

	err = s.Repo.Update(ctx, func(tx repository.LedgerTx) error {
		var err error
		balance, err = ledger.Deposit(ctx, tx, account, amount)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger().InfoContext(ctx, "account credited", "actor", account.String(), "amount", amount, "balance", balance)
	s.publish(ctx, model.EventAccountDeposited, nil, account, amount)
	return balance, nil
}

// ====================== Queries ======================

func (s *CampaignService) GetCampaign(ctx context.Context, addr address.Address) (*model.Campaign, error) {
	var c *model.Campaign
	err := s.Repo.View(ctx, func(tx repository.LedgerTx) error {
		var err error
		c, err = tx.GetCampaign(ctx, addr)
		return err
	})
	return c, err
}

// GetContribution returns nil, nil when contributor holds nothing in the campaign.
func (s *CampaignService) GetContribution(ctx context.Context, campaignAddr, contributor address.Address) (*model.Contribution, error) {
	var c *model.Contribution
	err := s.Repo.View(ctx, func(tx repository.LedgerTx) error {
		if _, err := tx.GetCampaign(ctx, campaignAddr); err != nil {
			return err
		}
		var err error
		c, err = tx.GetContribution(ctx, address.Contribution(campaignAddr, contributor))
		return err
	})
	return c, err
}

func (s *CampaignService) Balance(ctx context.Context, account address.Address) (uint64, error) {
	var b uint64
	err := s.Repo.View(ctx, func(tx repository.LedgerTx) error {
		var err error
		b, err = tx.Balance(ctx, account)
		return err
	})
	return b, err
}

// ListCampaigns fetches campaigns newest first with pagination
func (s *CampaignService) ListCampaigns(ctx context.Context, page, pageSize int) ([]model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	// past this page the offset would overflow int
	if maxPage := math.MaxInt / pageSize; page > maxPage {
		page = maxPage
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.Repo.ListCampaigns(ctx, offset, pageSize)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}

	return campaigns, pagination, nil
}

func (s *CampaignService) GetCampaignDetailsWithStats(ctx context.Context, addr address.Address) (*CampaignDetails, error) {
	now := s.now()
	var details *CampaignDetails
	err := s.Repo.View(ctx, func(tx repository.LedgerTx) error {
		c, err := tx.GetCampaign(ctx, addr)
		if err != nil {
			return err
		}
		contributions, err := tx.ListContributions(ctx, addr)
		if err != nil {
			return err
		}
		escrow, err := tx.Balance(ctx, addr)
		if err != nil {
			return err
		}

		remaining := c.Deadline - now
		if remaining < 0 {
			remaining = 0
		}
		details = &CampaignDetails{
			Address:       c.Address,
			Creator:       c.Creator,
			Title:         c.Title,
			Description:   c.Description,
			TargetAmount:  c.TargetAmount,
			CurrentAmount: c.CurrentAmount,
			Deadline:      c.Deadline,
			CreatedAt:     c.CreatedAt,
			IsActive:      c.IsActive,
			Stats: CampaignStats{
				State:            c.State(now),
				Contributors:     len(contributions),
				ProgressPercent:  c.ProgressPercent(),
				Expired:          c.Expired(now),
				RemainingSeconds: remaining,
				EscrowBalance:    escrow,
			},
		}
		return nil
	})
	if err != nil {
		s.logger().DebugContext(ctx, "failed to fetch campaign details", "campaign", addr.String(), "error", err)
		return nil, err
	}
	return details, nil
}

func (s *CampaignService) AuditCampaign(ctx context.Context, addr address.Address) (*ledger.AuditReport, error) {
	now := s.now()
	var report *ledger.AuditReport
	err := s.Repo.View(ctx, func(tx repository.LedgerTx) error {
		var err error
		report, err = ledger.Audit(ctx, tx, addr, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !report.Balanced {
		s.logger().ErrorContext(ctx, "⚠️ campaign ledger is unbalanced",
			"campaign", addr.String(), "current_amount", report.CurrentAmount,
			"escrow", report.EscrowBalance, "contributions", report.ContributionTotal)
	}
	return report, nil
}

// CampaignEvents returns what happened to a campaign, oldest first. Events
// land in the log asynchronously, so the newest operation may be missing.
func (s *CampaignService) CampaignEvents(ctx context.Context, addr address.Address) ([]*model.LedgerEvent, error) {
	if s.Events == nil {
		return nil, ErrEventLogUnavailable
	}
	if _, err := s.GetCampaign(ctx, addr); err != nil {
		return nil, err
	}
	return s.Events.ListByCampaign(ctx, addr.String())
}
