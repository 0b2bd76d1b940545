// internal/errors/errors.go
package appErrors

import "fmt"

// Code names a ledger failure kind. Codes are part of the HTTP contract.
type Code string

const (
	CodeTitleTooLong           Code = "TitleTooLong"
	CodeDescriptionTooLong     Code = "DescriptionTooLong"
	CodeInvalidTargetAmount    Code = "InvalidTargetAmount"
	CodeInvalidDeadline        Code = "InvalidDeadline"
	CodeInvalidAmount          Code = "InvalidAmount"
	CodeCampaignNotActive      Code = "CampaignNotActive"
	CodeCampaignExpired        Code = "CampaignExpired"
	CodeWithdrawalNotAllowed   Code = "WithdrawalNotAllowed"
	CodeUnauthorizedWithdrawal Code = "UnauthorizedWithdrawal"
	CodeRefundNotAllowed       Code = "RefundNotAllowed"
	CodeUnauthorizedRefund     Code = "UnauthorizedRefund"
	CodeUnauthorizedSigner     Code = "UnauthorizedSigner"
	CodeAmountOverflow         Code = "AmountOverflow"
	CodeConcurrentUpdate       Code = "ConcurrentUpdate"
)

// LedgerError is a terminal, never partially applied, operation failure.
// Two LedgerErrors match under errors.Is when their codes match.
type LedgerError struct {
	Code    Code
	Message string
}

func (e *LedgerError) Error() string {
	return e.Message
}

func (e *LedgerError) Is(target error) bool {
	t, ok := target.(*LedgerError)
	return ok && t.Code == e.Code
}

func New(code Code, format string, args ...any) error {
	return &LedgerError{Code: code, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrTitleTooLong           = &LedgerError{Code: CodeTitleTooLong, Message: "title is too long"}
	ErrDescriptionTooLong     = &LedgerError{Code: CodeDescriptionTooLong, Message: "description is too long"}
	ErrInvalidTargetAmount    = &LedgerError{Code: CodeInvalidTargetAmount, Message: "invalid target amount"}
	ErrInvalidDeadline        = &LedgerError{Code: CodeInvalidDeadline, Message: "invalid deadline"}
	ErrInvalidAmount          = &LedgerError{Code: CodeInvalidAmount, Message: "invalid amount"}
	ErrCampaignNotActive      = &LedgerError{Code: CodeCampaignNotActive, Message: "campaign is not active"}
	ErrCampaignExpired        = &LedgerError{Code: CodeCampaignExpired, Message: "campaign has expired"}
	ErrWithdrawalNotAllowed   = &LedgerError{Code: CodeWithdrawalNotAllowed, Message: "withdrawal not allowed"}
	ErrUnauthorizedWithdrawal = &LedgerError{Code: CodeUnauthorizedWithdrawal, Message: "unauthorized withdrawal"}
	ErrRefundNotAllowed       = &LedgerError{Code: CodeRefundNotAllowed, Message: "refund not allowed"}
	ErrUnauthorizedRefund     = &LedgerError{Code: CodeUnauthorizedRefund, Message: "unauthorized refund"}
	ErrUnauthorizedSigner     = &LedgerError{Code: CodeUnauthorizedSigner, Message: "a signer is required"}
	ErrAmountOverflow         = &LedgerError{Code: CodeAmountOverflow, Message: "amount overflows 64 bits"}
	ErrConcurrentUpdate       = &LedgerError{Code: CodeConcurrentUpdate, Message: "record was modified concurrently"}
)

// ErrCampaignNotFound is returned when no campaign occupies an address.
type ErrCampaignNotFound struct {
	Address string
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign %s not found", e.Address)
}

func NewCampaignNotFound(address string) error {
	return &ErrCampaignNotFound{Address: address}
}

// ErrContributionNotFound covers both never-funded and already-refunded records.
type ErrContributionNotFound struct {
	Address string
}

func (e *ErrContributionNotFound) Error() string {
	return fmt.Sprintf("contribution %s not found", e.Address)
}

func NewContributionNotFound(address string) error {
	return &ErrContributionNotFound{Address: address}
}

// ErrAddressInUse reports a derived-address collision at creation time.
type ErrAddressInUse struct {
	Address string
}

func (e *ErrAddressInUse) Error() string {
	return fmt.Sprintf("address %s is already in use", e.Address)
}

func NewAddressInUse(address string) error {
	return &ErrAddressInUse{Address: address}
}

type ErrInsufficientFunds struct {
	Account string
	Balance uint64
	Amount  uint64
}

func (e *ErrInsufficientFunds) Error() string {
	return fmt.Sprintf("account %s holds %d, cannot debit %d", e.Account, e.Balance, e.Amount)
}

func NewInsufficientFunds(account string, balance, amount uint64) error {
	return &ErrInsufficientFunds{Account: account, Balance: balance, Amount: amount}
}
