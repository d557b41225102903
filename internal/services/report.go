package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"circulation/internal/models"
	"circulation/internal/validation"
)

type BorrowedBook struct {
	Title  string `json:"title"`
	BookID uint   `json:"book_id"`
}

type LoanDates struct {
	Title      string    `json:"title"`
	BorrowDate time.Time `json:"borrow_date"`
	DueDate    time.Time `json:"due_date"`
	IsOverdue  bool      `json:"is_overdue"`
}

// PatronStatus summarises a patron's open loans and the fees accrued on them.
type PatronStatus struct {
	PatronID      string         `json:"patron_id"`
	BorrowedBooks []BorrowedBook `json:"borrowed_books"`
	DueDates      []LoanDates    `json:"due_dates"`
	TotalFee      models.Cents   `json:"total_fee_cents"`
	Summary       string         `json:"summary"`
}

// PatronStatusReport lists the patron's open loans, their dates and the total
// late fee owed right now.
func (s *libraryService) PatronStatusReport(ctx context.Context, patronID string) (*PatronStatus, error) {
	if !validation.IsPatronID(patronID) {
		return nil, ErrInvalidPatronID
	}

	known, err := s.store.BorrowRecords().HasHistory(ctx, patronID)
	if err != nil {
		log.Printf("[ERROR] PatronStatusReport: failed to look up patron %s: %v", patronID, err)
		return nil, storeError("Database error: could not retrieve borrowed books.", err)
	}
	if !known {
		return nil, ErrPatronNotFound
	}

	loans, err := s.store.BorrowRecords().ListOpenByPatron(ctx, patronID)
	if err != nil {
		log.Printf("[ERROR] PatronStatusReport: failed to list open loans for patron %s: %v", patronID, err)
		return nil, storeError("Database error: could not retrieve borrowed books.", err)
	}
	if len(loans) == 0 {
		return nil, ErrNoBorrowedBooks
	}

	now := s.now()
	status := &PatronStatus{PatronID: patronID}
	for _, loan := range loans {
		status.BorrowedBooks = append(status.BorrowedBooks, BorrowedBook{Title: loan.Title, BookID: loan.BookID})
		status.DueDates = append(status.DueDates, LoanDates{
			Title:      loan.Title,
			BorrowDate: loan.BorrowDate,
			DueDate:    loan.DueDate,
			IsOverdue:  now.After(loan.DueDate),
		})
		status.TotalFee += feeFor(loan.DueDate, now).Amount
	}
	status.Summary = summarize(status)
	return status, nil
}

func summarize(status *PatronStatus) string {
	books := make([]string, 0, len(status.BorrowedBooks))
	for _, b := range status.BorrowedBooks {
		books = append(books, fmt.Sprintf("%s (ID %d)", b.Title, b.BookID))
	}

	dates := make([]string, 0, len(status.DueDates))
	for _, d := range status.DueDates {
		overdue := "not overdue"
		if d.IsOverdue {
			overdue = "overdue"
		}
		dates = append(dates, fmt.Sprintf("%s borrowed %s, due %s, %s",
			d.Title, d.BorrowDate.Format(dateLayout), d.DueDate.Format(dateLayout), overdue))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "List of books currently borrowed: %s\n", strings.Join(books, "; "))
	fmt.Fprintf(&sb, "Borrow dates and due dates: %s\n", strings.Join(dates, "; "))
	fmt.Fprintf(&sb, "Current standing late fee: %s", status.TotalFee)
	return sb.String()
}
