package types

import (
	"fmt"

	"github.com/samber/lo"
)

// TransactionType is the payment instrument class
type TransactionType string

const (
	TransactionTypeCC    TransactionType = "cc"
	TransactionTypeACH   TransactionType = "ach"
	TransactionTypeOther TransactionType = "other"
)

func (t TransactionType) String() string {
	return string(t)
}

func (t TransactionType) Validate() error {
	allowed := []TransactionType{
		TransactionTypeCC,
		TransactionTypeACH,
		TransactionTypeOther,
	}
	if !lo.Contains(allowed, t) {
		return fmt.Errorf("invalid transaction type: %s", t)
	}
	return nil
}

// TransactionStatus is the gateway-reported status of a transaction
type TransactionStatus string

const (
	TransactionStatusApproved TransactionStatus = "approved"
	TransactionStatusDeclined TransactionStatus = "declined"
	TransactionStatusVoid     TransactionStatus = "void"
	TransactionStatusError    TransactionStatus = "error"
	TransactionStatusPending  TransactionStatus = "pending"
	TransactionStatusRefunded TransactionStatus = "refunded"
	TransactionStatusReturned TransactionStatus = "returned"
)

func (s TransactionStatus) String() string {
	return string(s)
}

func (s TransactionStatus) Validate() error {
	allowed := []TransactionStatus{
		TransactionStatusApproved,
		TransactionStatusDeclined,
		TransactionStatusVoid,
		TransactionStatusError,
		TransactionStatusPending,
		TransactionStatusRefunded,
		TransactionStatusReturned,
	}
	if !lo.Contains(allowed, s) {
		return fmt.Errorf("invalid transaction status: %s", s)
	}
	return nil
}

// IsSettled reports whether money actually moved
func (s TransactionStatus) IsSettled() bool {
	return s == TransactionStatusApproved
}
