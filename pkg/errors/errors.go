// Package errors provides common, reusable error values and helpers.
package errors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")

	// OTP errors
	ErrOTPInvalid            = errors.New("invalid or expired otp code")
	ErrOTPNotRequested       = errors.New("no otp requested for this phone")
	ErrProviderUnavailable   = errors.New("upstream provider unavailable")
	ErrInvalidWebhookPayload = errors.New("invalid webhook payload")
	ErrBadSignature          = errors.New("webhook signature verification failed")

	// Wallet and ledger errors
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrWalletAlreadyExists = errors.New("wallet already exists")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrLedgerEntryNotFound = errors.New("ledger entry not found")

	// Payout errors
	ErrPayoutNotFound     = errors.New("payout not found")
	ErrPayoutNotPending   = errors.New("payout is not pending approval")
	ErrPayoutNotQueued    = errors.New("payout is not queued")
	ErrDuplicateApproval  = errors.New("payout already approved by this admin")
	ErrPayoutTerminal     = errors.New("payout is in a terminal state")
	ErrNoPayoutsSelected  = errors.New("no payouts selected")
	ErrApproverNotAllowed = errors.New("approver is not permitted to approve this payout")

	// Reconciliation errors
	ErrRunNotFound          = errors.New("reconciliation run not found")
	ErrRunCompleted         = errors.New("reconciliation run already completed")
	ErrRunHasPendingItems   = errors.New("reconciliation run still has pending items")
	ErrItemNotFound         = errors.New("reconciliation item not found")
	ErrItemNotPending       = errors.New("reconciliation item is not pending")
	ErrEmptyStatement       = errors.New("statement contains no usable rows")
	ErrUnknownSource        = errors.New("unknown statement source")
	ErrMissingAmountColumn  = errors.New("statement is missing an Amount column")
	ErrSuggestionStale      = errors.New("match suggestion references non-pending items")

	// Payment gateway errors
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentNotSuccessful = errors.New("payment was not successful")
	ErrGatewayRejected      = errors.New("payment gateway rejected the request")

	// KYC errors
	ErrKYCProfileNotFound    = errors.New("kyc profile not found")
	ErrKYCAlreadyVerified    = errors.New("kyc already verified")
	ErrInvalidKYCTransition  = errors.New("invalid kyc status transition")
	ErrKYCSubmissionRequired = errors.New("kyc submission required")

	// Notification errors
	ErrNotificationNotFound = errors.New("notification not found")
	ErrUnknownChannel       = errors.New("unknown notification channel")
	ErrMessageNotFound      = errors.New("outbound message not found")

	// Support and chat errors
	ErrTicketNotFound          = errors.New("support ticket not found")
	ErrTicketClosed            = errors.New("support ticket is closed")
	ErrInvalidTicketTransition = errors.New("invalid ticket status transition")
	ErrThreadNotFound          = errors.New("chat thread not found")
	ErrNotThreadParticipant    = errors.New("user is not a participant of this thread")

	ErrDuplicateRequest = errors.New("duplicate request")
)

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
