package ledger

import (
	"strings"

	"github.com/google/uuid"
)

const (
	transferOutSuffix = "-OUT"
	transferInSuffix  = "-IN"
)

// NewReference generates a transaction reference such as TXN-1A2B3C4D-5E6F-7
func NewReference() string {
	return "TXN-" + strings.ToUpper(uuid.NewString()[:15])
}

// TransferReferences derives the two leg references of a transfer from its shared base
func TransferReferences(base string) (out string, in string) {
	return base + transferOutSuffix, base + transferInSuffix
}
