package shared

// EntryType classifies a ledger entry and fixes the sign of its amount
type EntryType string

const (
	EntryTypeCredit      EntryType = "CREDIT"
	EntryTypeDebit       EntryType = "DEBIT"
	EntryTypeTransferIn  EntryType = "TRANSFER_IN"
	EntryTypeTransferOut EntryType = "TRANSFER_OUT"
	EntryTypePayment     EntryType = "PAYMENT"
	EntryTypeRefund      EntryType = "REFUND"
	EntryTypeWithdrawal  EntryType = "WITHDRAWAL"
	EntryTypeTopUp       EntryType = "TOP_UP"
)

// IsInflow reports whether entries of this type increase the wallet balance
func (t EntryType) IsInflow() bool {
	switch t {
	case EntryTypeCredit, EntryTypeTopUp, EntryTypeTransferIn, EntryTypeRefund:
		return true
	default:
		return false
	}
}

// IsValid reports whether t is one of the known entry types
func (t EntryType) IsValid() bool {
	switch t {
	case EntryTypeCredit, EntryTypeDebit, EntryTypeTransferIn, EntryTypeTransferOut,
		EntryTypePayment, EntryTypeRefund, EntryTypeWithdrawal, EntryTypeTopUp:
		return true
	default:
		return false
	}
}

// EntryStatus defines ledger entry lifecycle states
type EntryStatus string

const (
	EntryStatusPending   EntryStatus = "PENDING"
	EntryStatusCompleted EntryStatus = "COMPLETED"
	EntryStatusFailed    EntryStatus = "FAILED"
	EntryStatusCancelled EntryStatus = "CANCELLED"
	EntryStatusRefunded  EntryStatus = "REFUNDED"
)

// IsApplied reports whether an entry in this status has moved the wallet balance
func (s EntryStatus) IsApplied() bool {
	return s == EntryStatusCompleted || s == EntryStatusRefunded
}

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)

// DefaultCurrency is used when a wallet is opened without an explicit currency
const DefaultCurrency = "PKR"

// Widths of the stored text columns
const (
	MaxReferenceLength      = 32
	MaxOwnerRefLength       = 64
	MaxPaymentMethodLength  = 32
	MaxIdempotencyKeyLength = 128
)
