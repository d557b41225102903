// Package payments defines the payment-gateway capability used to charge and
// refund late fees, and a sandbox gateway for local runs.
package payments

import (
	"context"

	"circulation/internal/models"
)

// TransactionPrefix starts every transaction id a gateway hands out.
const TransactionPrefix = "txn_"

type ChargeRequest struct {
	PatronID    string
	Amount      models.Cents
	Description string
}

type ChargeResult struct {
	OK            bool
	TransactionID string
	// Message is the gateway's confirmation or decline reason.
	Message string
}

type RefundRequest struct {
	TransactionID string
	Amount        models.Cents
}

type RefundResult struct {
	OK      bool
	Message string
}

// Gateway is an external payment processor. A declined operation is reported
// through the result; a returned error means the gateway itself failed.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
	Refund(ctx context.Context, req RefundRequest) (RefundResult, error)
}
