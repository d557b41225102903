package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"circulation/internal/models"
	"circulation/internal/payments"
	"circulation/internal/validation"
)

type PaymentReceipt struct {
	TransactionID string       `json:"transaction_id"`
	Amount        models.Cents `json:"amount_cents"`
	Message       string       `json:"message"`
}

type RefundReceipt struct {
	TransactionID string       `json:"transaction_id"`
	Amount        models.Cents `json:"amount_cents"`
	Message       string       `json:"message"`
}

// PayLateFees charges the late fee accrued on one open loan through gateway.
// The gateway is not called when there is nothing to pay. Gateway failures
// are reported, never retried.
func (s *libraryService) PayLateFees(ctx context.Context, patronID string, bookID uint, gateway payments.Gateway) (*PaymentReceipt, error) {
	if !validation.IsPatronID(patronID) {
		return nil, ErrInvalidPatronID
	}

	fee, err := s.CalculateLateFee(ctx, patronID, bookID)
	if err != nil {
		cause := asServiceError(err, "").(*Error)
		return nil, &Error{
			Kind:    cause.Kind,
			Message: "Unable to calculate late fees. " + cause.Message,
			Err:     cause,
		}
	}

	book, err := getBook(ctx, s.store, "PayLateFees", bookID)
	if err != nil {
		return nil, err
	}
	if fee.Amount == 0 {
		return nil, ErrNoLateFees
	}
	if gateway == nil {
		return nil, ErrGatewayNotConfigured
	}

	res, err := charge(ctx, gateway, payments.ChargeRequest{
		PatronID:    patronID,
		Amount:      fee.Amount,
		Description: fmt.Sprintf("Late fees for '%s'", book.Title),
	})
	if err != nil {
		log.Printf("[ERROR] PayLateFees: gateway error for patron %s / book %d: %v", patronID, bookID, err)
		return nil, &Error{Kind: KindUpstream, Message: "Payment processing error: " + err.Error(), Err: err}
	}
	if !res.OK {
		log.Printf("[WARN] PayLateFees: payment of %s declined for patron %s: %s", fee.Amount, patronID, res.Message)
		return nil, &Error{Kind: KindUpstream, Message: "Payment failed: " + res.Message}
	}

	log.Printf("[INFO] PayLateFees: patron %s paid %s for book %d, txn=%s", patronID, fee.Amount, bookID, res.TransactionID)
	return &PaymentReceipt{
		TransactionID: res.TransactionID,
		Amount:        fee.Amount,
		Message:       "Payment successful! " + res.Message,
	}, nil
}

// RefundLateFeePayment refunds part or all of an earlier late-fee payment.
func (s *libraryService) RefundLateFeePayment(ctx context.Context, transactionID string, amount models.Cents, gateway payments.Gateway) (*RefundReceipt, error) {
	if !strings.HasPrefix(transactionID, payments.TransactionPrefix) || len(transactionID) == len(payments.TransactionPrefix) {
		return nil, ErrInvalidTransactionID
	}
	if amount <= 0 {
		return nil, ErrInvalidRefundAmount
	}
	if amount > MaxLateFeeRefund {
		return nil, ErrRefundAmountTooHigh
	}
	if gateway == nil {
		return nil, ErrGatewayNotConfigured
	}

	res, err := refund(ctx, gateway, payments.RefundRequest{TransactionID: transactionID, Amount: amount})
	if err != nil {
		log.Printf("[ERROR] RefundLateFeePayment: gateway error for txn %s: %v", transactionID, err)
		return nil, &Error{Kind: KindUpstream, Message: "Refund processing error: " + err.Error(), Err: err}
	}
	if !res.OK {
		log.Printf("[WARN] RefundLateFeePayment: refund of %s on txn %s declined: %s", amount, transactionID, res.Message)
		return nil, &Error{Kind: KindUpstream, Message: "Refund failed: " + res.Message}
	}

	log.Printf("[INFO] RefundLateFeePayment: refunded %s on txn %s", amount, transactionID)
	return &RefundReceipt{TransactionID: transactionID, Amount: amount, Message: res.Message}, nil
}

// charge and refund turn a panicking gateway into an ordinary error.

func charge(ctx context.Context, g payments.Gateway, req payments.ChargeRequest) (res payments.ChargeResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return g.Charge(ctx, req)
}

func refund(ctx context.Context, g payments.Gateway, req payments.RefundRequest) (res payments.RefundResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return g.Refund(ctx, req)
}
