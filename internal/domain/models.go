// Package domain defines the core entities shared across services.
//
// Monetary amounts are stored as signed int64 kobo (minor currency units)
// so arithmetic stays exact end to end.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Currency represents ISO 4217 currency codes
type Currency string

const (
	NGN Currency = "NGN" // Nigerian Naira
	GHS Currency = "GHS" // Ghanaian Cedi
	KES Currency = "KES" // Kenyan Shilling
)

// User represents a platform user.
type User struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	Email         string     `json:"email" db:"email"`
	Phone         string     `json:"phone" db:"phone"`
	PasswordHash  string     `json:"-" db:"password_hash"`
	FirstName     string     `json:"first_name" db:"first_name"`
	LastName      string     `json:"last_name" db:"last_name"`
	Role          UserRole   `json:"role" db:"role"`
	KYCStatus     KYCStatus  `json:"kyc_status" db:"kyc_status"`
	CountryCode   string     `json:"country_code" db:"country_code"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	PhoneVerified bool       `json:"phone_verified" db:"phone_verified"`
	EmailVerified bool       `json:"email_verified" db:"email_verified"`
	LastLogin     *time.Time `json:"last_login,omitempty" db:"last_login"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// UserRole is the server-side authorization role. Admin rights come from this
// column, never from matching on email domains.
type UserRole string

const (
	RoleMember  UserRole = "member"
	RoleAgent   UserRole = "agent"
	RoleSupport UserRole = "support"
	RoleAdmin   UserRole = "admin"
)

type KYCStatus string

const (
	KYCStatusPending    KYCStatus = "pending"
	KYCStatusProcessing KYCStatus = "processing"
	KYCStatusVerified   KYCStatus = "verified"
	KYCStatusRejected   KYCStatus = "rejected"
)

// Wallet represents a user's currency wallet.
type Wallet struct {
	ID                uuid.UUID    `json:"id" db:"id"`
	UserID            uuid.UUID    `json:"user_id" db:"user_id"`
	Currency          Currency     `json:"currency" db:"currency"`
	AvailableKobo     int64        `json:"available_kobo" db:"available_kobo"`
	LedgerKobo        int64        `json:"ledger_kobo" db:"ledger_kobo"`
	Status            WalletStatus `json:"status" db:"status"`
	LastTransactionAt *time.Time   `json:"last_transaction_at,omitempty" db:"last_transaction_at"`
	CreatedAt         time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at" db:"updated_at"`
}

type WalletStatus string

const (
	WalletStatusActive    WalletStatus = "active"
	WalletStatusSuspended WalletStatus = "suspended"
	WalletStatusClosed    WalletStatus = "closed"
)

// Payout represents a disbursement from a pool wallet to a member.
type Payout struct {
	ID          uuid.UUID    `json:"id" db:"id"`
	WalletID    uuid.UUID    `json:"wallet_id" db:"wallet_id"`
	RecipientID uuid.UUID    `json:"recipient_id" db:"recipient_id"`
	AmountKobo  int64        `json:"amount_kobo" db:"amount_kobo"`
	Currency    Currency     `json:"currency" db:"currency"`
	Status      PayoutStatus `json:"status" db:"status"`
	Approvals   int          `json:"approvals" db:"approvals"`
	SplitCode   *string      `json:"split_code,omitempty" db:"split_code"`
	Reference   string       `json:"reference" db:"reference"`
	QueuedAt    *time.Time   `json:"queued_at,omitempty" db:"queued_at"`
	SettledAt   *time.Time   `json:"settled_at,omitempty" db:"settled_at"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
}

// PayoutStatus only advances pending -> queued once the approval count
// reaches the threshold; paid and failed are terminal.
type PayoutStatus string

const (
	PayoutStatusPending PayoutStatus = "pending"
	PayoutStatusQueued  PayoutStatus = "queued"
	PayoutStatusPaid    PayoutStatus = "paid"
	PayoutStatusFailed  PayoutStatus = "failed"
)

// PayoutApproval records one admin's approval of a payout.
type PayoutApproval struct {
	ID         uuid.UUID `json:"id" db:"id"`
	PayoutID   uuid.UUID `json:"payout_id" db:"payout_id"`
	ApproverID uuid.UUID `json:"approver_id" db:"approver_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// LedgerEntry is an append-only audit record of balance movement.
type LedgerEntry struct {
	ID         uuid.UUID `json:"id" db:"id"`
	WalletID   uuid.UUID `json:"wallet_id" db:"wallet_id"`
	AmountKobo int64     `json:"amount_kobo" db:"amount_kobo"` // signed: credit > 0, debit < 0
	Currency   Currency  `json:"currency" db:"currency"`
	Code       string    `json:"code" db:"code"`
	Reference  string    `json:"reference" db:"reference"`
	BalanceAfter int64   `json:"balance_after" db:"balance_after"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Ledger entry codes.
const (
	LedgerCodeContribution  = "contribution"
	LedgerCodeDeposit       = "deposit"
	LedgerCodePayoutHold    = "payout_hold"
	LedgerCodePayoutRelease = "payout_release"
	LedgerCodePayoutSettle  = "payout_settle"
	LedgerCodeAdjustment    = "adjustment"
)

// ReconciliationRun is a bounded batch of imported and matched financial
// records for one operating period.
type ReconciliationRun struct {
	ID          uuid.UUID `json:"id" db:"id"`
	OrgID       uuid.UUID `json:"org_id" db:"org_id"`
	Status      RunStatus `json:"status" db:"status"`
	StartedAt   time.Time `json:"started_at" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedBy   uuid.UUID `json:"created_by" db:"created_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusCompleted RunStatus = "completed"
)

// ItemSource tags where a reconciliation item was imported from.
type ItemSource string

const (
	SourcePSP    ItemSource = "psp"
	SourceBank   ItemSource = "bank"
	SourceLedger ItemSource = "ledger"
)

// ReconciliationItem is a normalized statement line belonging to exactly one
// run and one source.
type ReconciliationItem struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	RunID      uuid.UUID  `json:"run_id" db:"run_id"`
	Source     ItemSource `json:"source" db:"source"`
	Reference  string     `json:"reference" db:"reference"`
	AmountKobo int64      `json:"amount_kobo" db:"amount_kobo"` // signed
	Currency   Currency   `json:"currency" db:"currency"`
	EntryDate  *time.Time `json:"entry_date,omitempty" db:"entry_date"`
	Status     ItemStatus `json:"status" db:"status"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

type ItemStatus string

const (
	ItemStatusPending    ItemStatus = "pending"
	ItemStatusMatched    ItemStatus = "matched"
	ItemStatusMismatched ItemStatus = "mismatched"
	ItemStatusResolved   ItemStatus = "resolved"
)

// KYCProfile tracks an identity verification submission with a provider.
type KYCProfile struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	Provider    string    `json:"provider" db:"provider"`
	ProviderRef string    `json:"provider_ref" db:"provider_ref"`
	Status      KYCStatus `json:"status" db:"status"`
	Reason      string    `json:"reason" db:"reason"`
	Payload     Metadata  `json:"payload" db:"payload"`
	SubmittedAt time.Time `json:"submitted_at" db:"submitted_at"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty" db:"reviewed_at"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Payment is a gateway-initialized card/bank payment awaiting verification.
type Payment struct {
	ID         uuid.UUID     `json:"id" db:"id"`
	UserID     uuid.UUID     `json:"user_id" db:"user_id"`
	WalletID   uuid.UUID     `json:"wallet_id" db:"wallet_id"`
	Reference  string        `json:"reference" db:"reference"`
	AmountKobo int64         `json:"amount_kobo" db:"amount_kobo"`
	Currency   Currency      `json:"currency" db:"currency"`
	Status     PaymentStatus `json:"status" db:"status"`
	Channel    string        `json:"channel" db:"channel"`
	PaidAt     *time.Time    `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at" db:"updated_at"`
}

type PaymentStatus string

const (
	PaymentStatusInitialized PaymentStatus = "initialized"
	PaymentStatusSuccess     PaymentStatus = "success"
	PaymentStatusFailed      PaymentStatus = "failed"
	PaymentStatusAbandoned   PaymentStatus = "abandoned"
)

// Metadata is a JSON-compatible map
type Metadata map[string]interface{}

func (m Metadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *Metadata) Scan(value interface{}) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, &m)
}
