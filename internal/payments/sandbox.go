package payments

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"

	"circulation/internal/models"
	"circulation/internal/validation"
)

// MaxSandboxCharge is the largest amount the sandbox accepts in one charge.
const MaxSandboxCharge models.Cents = 100000

// SandboxGateway approves charges and refunds without moving money. It keeps
// the charges it issued so refunds can be checked against them.
type SandboxGateway struct {
	mu      sync.Mutex
	charges map[string]*sandboxCharge
}

type sandboxCharge struct {
	patronID string
	amount   models.Cents
	refunded models.Cents
}

func NewSandboxGateway() *SandboxGateway {
	return &SandboxGateway{charges: make(map[string]*sandboxCharge)}
}

func (g *SandboxGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return ChargeResult{}, err
	}
	switch {
	case req.Amount <= 0:
		return ChargeResult{Message: "Invalid amount: must be greater than 0."}, nil
	case req.Amount > MaxSandboxCharge:
		return ChargeResult{Message: "Payment declined: amount exceeds limit."}, nil
	case !validation.IsPatronID(req.PatronID):
		return ChargeResult{Message: "Invalid patron ID"}, nil
	}

	txnID := TransactionPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]

	g.mu.Lock()
	g.charges[txnID] = &sandboxCharge{patronID: req.PatronID, amount: req.Amount}
	g.mu.Unlock()

	log.Printf("[INFO] SandboxGateway: charged %s to patron %s (%s), txn=%s", req.Amount, req.PatronID, req.Description, txnID)
	return ChargeResult{
		OK:            true,
		TransactionID: txnID,
		Message:       fmt.Sprintf("Charged %s for %s.", req.Amount, req.Description),
	}, nil
}

func (g *SandboxGateway) Refund(ctx context.Context, req RefundRequest) (RefundResult, error) {
	if err := ctx.Err(); err != nil {
		return RefundResult{}, err
	}
	if req.Amount <= 0 {
		return RefundResult{Message: "Invalid refund amount"}, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	charge, ok := g.charges[req.TransactionID]
	if !ok {
		return RefundResult{Message: "Invalid transaction ID"}, nil
	}
	if charge.refunded+req.Amount > charge.amount {
		return RefundResult{Message: "Invalid refund amount"}, nil
	}
	charge.refunded += req.Amount

	log.Printf("[INFO] SandboxGateway: refunded %s on txn=%s", req.Amount, req.TransactionID)
	return RefundResult{
		OK:      true,
		Message: fmt.Sprintf("Refund of %s processed successfully.", req.Amount),
	}, nil
}
