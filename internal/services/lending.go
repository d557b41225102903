package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"circulation/internal/models"
	"circulation/internal/repositories"
	"circulation/internal/validation"
)

type BorrowReceipt struct {
	Record  *models.BorrowRecord `json:"record"`
	Message string               `json:"message"`
}

type ReturnReceipt struct {
	BookID     uint      `json:"book_id"`
	ReturnedAt time.Time `json:"returned_at"`
	LateFee    *LateFee  `json:"late_fee"`
	Message    string    `json:"message"`
}

// ─── Borrow ───────────────────────────────────────────────────────────────────

// BorrowBook lends one copy of a book to a patron.
//
// Steps (all in one transaction):
//  1. Load the book and require an available copy.
//  2. Reject patrons already holding MaxOpenLoans open loans.
//  3. Create the open borrow record, due LoanPeriodDays from now.
//  4. Decrement available copies.
func (s *libraryService) BorrowBook(ctx context.Context, patronID string, bookID uint) (*BorrowReceipt, error) {
	if !validation.IsPatronID(patronID) {
		return nil, ErrInvalidPatronID
	}

	var receipt *BorrowReceipt
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		book, err := getBook(ctx, tx, "BorrowBook", bookID)
		if err != nil {
			return err
		}
		if book.AvailableCopies <= 0 {
			return ErrBookUnavailable
		}

		open, err := tx.BorrowRecords().CountOpenByPatron(ctx, patronID)
		if err != nil {
			return storeError("Database error occurred while counting borrowed books.", err)
		}
		if open >= MaxOpenLoans {
			return ErrBorrowLimitReached
		}

		now := s.now()
		record := &models.BorrowRecord{
			ID:         uuid.New(),
			PatronID:   patronID,
			BookID:     book.ID,
			BorrowDate: now,
			DueDate:    now.AddDate(0, 0, LoanPeriodDays),
		}
		if err := tx.BorrowRecords().Create(ctx, record); err != nil {
			return storeError("Database error occurred while creating borrow record.", err)
		}
		if err := tx.Books().AdjustAvailability(ctx, book.ID, -1); err != nil {
			if errors.Is(err, repositories.ErrAvailabilityConflict) {
				return ErrBookUnavailable
			}
			return storeError("Database error occurred while updating book availability.", err)
		}

		receipt = &BorrowReceipt{
			Record:  record,
			Message: fmt.Sprintf("Successfully borrowed \"%s\". Due date: %s.", book.Title, record.DueDate.Format(dateLayout)),
		}
		return nil
	})
	if err != nil {
		logFailure(fmt.Sprintf("BorrowBook(book=%d, patron=%s)", bookID, patronID), err)
		return nil, asServiceError(err, "Database error occurred while borrowing the book.")
	}

	log.Printf("[INFO] BorrowBook: record %s created for patron %s / book %d, due %s",
		receipt.Record.ID, patronID, bookID, receipt.Record.DueDate.Format(dateLayout))
	return receipt, nil
}

// ─── Return ───────────────────────────────────────────────────────────────────

// ReturnBook closes the patron's open loan of a book.
//
// Steps (all in one transaction):
//  1. Load the book.
//  2. Require the patron to hold at least one open loan of any book.
//  3. Compute the late fee; fails when this book is not open for the patron.
//  4. Set the return date on the oldest matching open record.
//  5. Increment available copies.
func (s *libraryService) ReturnBook(ctx context.Context, patronID string, bookID uint) (*ReturnReceipt, error) {
	if !validation.IsPatronID(patronID) {
		return nil, ErrInvalidPatronID
	}

	var receipt *ReturnReceipt
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		book, err := getBook(ctx, tx, "ReturnBook", bookID)
		if err != nil {
			return err
		}

		open, err := tx.BorrowRecords().CountOpenByPatron(ctx, patronID)
		if err != nil {
			return storeError("Database error occurred while counting borrowed books.", err)
		}
		if open <= 0 {
			return ErrNothingToReturn
		}

		fee, err := s.lateFee(ctx, tx, patronID, book)
		if err != nil {
			return err
		}

		now := s.now()
		if err := tx.BorrowRecords().MarkReturned(ctx, patronID, book.ID, now); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrBookNotBorrowed
			}
			return storeError("Database error occurred while updating the return date.", err)
		}
		if err := tx.Books().AdjustAvailability(ctx, book.ID, +1); err != nil {
			return storeError("Database error occurred while returning book.", err)
		}

		receipt = &ReturnReceipt{
			BookID:     book.ID,
			ReturnedAt: now,
			LateFee:    fee,
			Message: fmt.Sprintf("Successfully returned \"%s\" on %s. Status: %s. Late fee: %s.",
				book.Title, now.Format(dateLayout), fee.Message, fee.Amount),
		}
		return nil
	})
	if err != nil {
		logFailure(fmt.Sprintf("ReturnBook(book=%d, patron=%s)", bookID, patronID), err)
		return nil, asServiceError(err, "Database error occurred while returning book.")
	}

	log.Printf("[INFO] ReturnBook: patron %s returned book %d, fee=%s", patronID, bookID, receipt.LateFee.Amount)
	return receipt, nil
}
