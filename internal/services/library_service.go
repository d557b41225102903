package services

import (
	"context"
	"errors"
	"log"
	"time"

	"circulation/internal/models"
	"circulation/internal/payments"
	"circulation/internal/repositories"
)

// ─── Lending Constants ────────────────────────────────────────────────────────

const (
	// LoanPeriodDays is the number of days a patron may keep a book before it is overdue.
	LoanPeriodDays = 14

	// MaxOpenLoans is the number of open loans a patron may hold at once.
	MaxOpenLoans = 5

	// LateFeePerDay is charged for every full day past the due date.
	LateFeePerDay models.Cents = 100

	// MaxLateFeeRefund caps a single late-fee refund.
	MaxLateFeeRefund models.Cents = 1500

	dateLayout = "2006-01-02"
)

// ─── Service Interface ────────────────────────────────────────────────────────

// LibraryService defines the application-level operations of the library system.
type LibraryService interface {
	AddBook(ctx context.Context, title, author, isbn string, totalCopies int) (*AddBookResult, error)
	ListBooks(ctx context.Context) ([]models.Book, error)
	SearchBooks(ctx context.Context, term, kind string) (*SearchResult, error)

	BorrowBook(ctx context.Context, patronID string, bookID uint) (*BorrowReceipt, error)
	ReturnBook(ctx context.Context, patronID string, bookID uint) (*ReturnReceipt, error)
	CalculateLateFee(ctx context.Context, patronID string, bookID uint) (*LateFee, error)

	PatronStatusReport(ctx context.Context, patronID string) (*PatronStatus, error)

	PayLateFees(ctx context.Context, patronID string, bookID uint, gateway payments.Gateway) (*PaymentReceipt, error)
	RefundLateFeePayment(ctx context.Context, transactionID string, amount models.Cents, gateway payments.Gateway) (*RefundReceipt, error)
}

// ─── Implementation ───────────────────────────────────────────────────────────

type libraryService struct {
	store repositories.Store
	now   func() time.Time
}

// Option configures a LibraryService.
type Option func(*libraryService)

// WithClock replaces the wall clock used for borrow, due and return dates.
func WithClock(now func() time.Time) Option {
	return func(s *libraryService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewLibraryService wires up all dependencies and returns a LibraryService.
func NewLibraryService(store repositories.Store, opts ...Option) LibraryService {
	s := &libraryService{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListBooks returns all books in the catalogue.
func (s *libraryService) ListBooks(ctx context.Context) ([]models.Book, error) {
	books, err := s.store.Books().List(ctx)
	if err != nil {
		log.Printf("[ERROR] ListBooks: %v", err)
		return nil, storeError("Database error: could not retrieve catalog.", err)
	}
	return books, nil
}

// ─── Internal Helpers ─────────────────────────────────────────────────────────

// getBook maps repository lookups onto the not-found and store failures
// shared by the lending operations.
func getBook(ctx context.Context, store repositories.Store, op string, id uint) (*models.Book, error) {
	book, err := store.Books().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrBookNotFound
		}
		log.Printf("[ERROR] %s: failed to load book %d: %v", op, id, err)
		return nil, storeError("Database error occurred while retrieving the book.", err)
	}
	return book, nil
}

// logFailure logs rejected operations at WARN and broken ones at ERROR.
func logFailure(op string, err error) {
	var svcErr *Error
	if errors.As(err, &svcErr) && svcErr.Kind < KindStore {
		log.Printf("[WARN] %s: %v", op, err)
		return
	}
	log.Printf("[ERROR] %s: %v", op, err)
}

// asServiceError returns err unchanged when it already is an *Error and
// wraps it as a store failure otherwise.
func asServiceError(err error, msg string) error {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return storeError(msg, err)
}
