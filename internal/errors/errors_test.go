package appErrors_test

import (
	"errors"
	"fmt"
	"testing"

	appErrors "github.com/unclebandit/crowdfund-backend/internal/errors"
)

func TestLedgerErrorMatchesByCode(t *testing.T) {
	err := appErrors.New(appErrors.CodeTitleTooLong, "title is required")
	if !errors.Is(err, appErrors.ErrTitleTooLong) {
		t.Fatalf("expected %v to match ErrTitleTooLong", err)
	}
	if errors.Is(err, appErrors.ErrDescriptionTooLong) {
		t.Fatal("codes must not cross-match")
	}

	wrapped := fmt.Errorf("create campaign: %w", appErrors.ErrInvalidDeadline)
	if !errors.Is(wrapped, appErrors.ErrInvalidDeadline) {
		t.Fatal("wrapped sentinel lost its code")
	}
}

func TestTypedErrors(t *testing.T) {
	err := fmt.Errorf("load: %w", appErrors.NewCampaignNotFound("abc"))
	var notFound *appErrors.ErrCampaignNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrCampaignNotFound, got %T", err)
	}
	if notFound.Address != "abc" {
		t.Errorf("expected address abc, got %s", notFound.Address)
	}

	var funds *appErrors.ErrInsufficientFunds
	if !errors.As(appErrors.NewInsufficientFunds("acct", 5, 9), &funds) {
		t.Fatal("expected ErrInsufficientFunds")
	}
	if funds.Balance != 5 || funds.Amount != 9 {
		t.Errorf("unexpected fields %+v", funds)
	}
}
