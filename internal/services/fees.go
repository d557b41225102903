package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"circulation/internal/models"
	"circulation/internal/repositories"
	"circulation/internal/validation"
)

type LateFee struct {
	PatronID    string       `json:"patron_id"`
	BookID      uint         `json:"book_id"`
	DaysOverdue int          `json:"days_overdue"`
	Amount      models.Cents `json:"amount_cents"`
	Message     string       `json:"message"`
}

// CalculateLateFee reports the fee accrued so far on the patron's open loan of
// the book. It reads only and may be called any number of times.
func (s *libraryService) CalculateLateFee(ctx context.Context, patronID string, bookID uint) (*LateFee, error) {
	if !validation.IsPatronID(patronID) {
		return nil, ErrInvalidPatronID
	}
	book, err := getBook(ctx, s.store, "CalculateLateFee", bookID)
	if err != nil {
		return nil, err
	}
	return s.lateFee(ctx, s.store, patronID, book)
}

// lateFee computes the fee for an already validated patron and book, reading
// open loans through store so it can run inside a transaction.
func (s *libraryService) lateFee(ctx context.Context, store repositories.Store, patronID string, book *models.Book) (*LateFee, error) {
	loans, err := store.BorrowRecords().ListOpenByPatron(ctx, patronID)
	if err != nil {
		log.Printf("[ERROR] CalculateLateFee: failed to list open loans for patron %s: %v", patronID, err)
		return nil, storeError("Database error: could not retrieve borrowed books.", err)
	}

	for _, loan := range loans {
		if loan.BookID != book.ID {
			continue
		}
		fee := feeFor(loan.DueDate, s.now())
		fee.PatronID = patronID
		fee.BookID = book.ID
		return &fee, nil
	}
	return nil, ErrBookNotBorrowed
}

// feeFor charges LateFeePerDay for every full day between due and now.
func feeFor(due, now time.Time) LateFee {
	days := int(now.Sub(due) / (24 * time.Hour))
	if days > 0 {
		return LateFee{
			DaysOverdue: days,
			Amount:      models.Cents(days) * LateFeePerDay,
			Message:     fmt.Sprintf("Book is overdue by: %d day(s)", days),
		}
	}
	return LateFee{Message: "Book is not overdue, no outstanding fees"}
}
