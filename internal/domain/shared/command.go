package shared

import (
	"errors"
	"time"
)

var ErrInvalidCommand = errors.New("invalid ledger command")

// Operation names a ledger engine operation carried by a LedgerCommand
type Operation string

const (
	OperationCredit     Operation = "CREDIT"
	OperationTopUp      Operation = "TOP_UP"
	OperationDebit      Operation = "DEBIT"
	OperationWithdrawal Operation = "WITHDRAWAL"
	OperationPayment    Operation = "PAYMENT"
	OperationAuthorize  Operation = "AUTHORIZE"
	OperationSettle     Operation = "SETTLE"
	OperationTransfer   Operation = "TRANSFER"
	OperationRefund     Operation = "REFUND"
	OperationCancel     Operation = "CANCEL"
)

// LedgerCommand defines a Kafka message asking the ledger processor to run one operation.
// Amount is a decimal string so no precision is lost on the wire.
type LedgerCommand struct {
	CommandID      string    `json:"command_id"`
	Operation      Operation `json:"operation"`
	WalletRef      string    `json:"wallet_ref,omitempty"`
	DestinationRef string    `json:"destination_ref,omitempty"`
	Amount         string    `json:"amount,omitempty"`
	PaymentMethod  string    `json:"payment_method,omitempty"`
	Description    string    `json:"description,omitempty"`
	TransactionRef string    `json:"transaction_ref,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	RequestID      string    `json:"request_id,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}
