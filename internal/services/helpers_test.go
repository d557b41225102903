package services_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"circulation/internal/models"
	"circulation/internal/payments"
	"circulation/internal/repositories"
	"circulation/internal/services"
)

var t0 = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func days(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }

type fixture struct {
	ctx   context.Context
	store *failingStore
	clock *fakeClock
	svc   services.LibraryService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	bolt, err := repositories.NewBoltStore(filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { bolt.Close() })

	store := &failingStore{Store: bolt}
	clock := &fakeClock{now: t0}
	return &fixture{
		ctx:   context.Background(),
		store: store,
		clock: clock,
		svc:   services.NewLibraryService(store, services.WithClock(clock.Now)),
	}
}

func (f *fixture) addBook(t *testing.T, title, author, isbn string, copies int) *models.Book {
	t.Helper()
	res, err := f.svc.AddBook(f.ctx, title, author, isbn, copies)
	require.NoError(t, err)
	return res.Book
}

func (f *fixture) book(t *testing.T, id uint) *models.Book {
	t.Helper()
	book, err := f.store.Books().GetByID(f.ctx, id)
	require.NoError(t, err)
	return book
}

func (f *fixture) borrow(t *testing.T, patronID string, bookID uint) {
	t.Helper()
	_, err := f.svc.BorrowBook(f.ctx, patronID, bookID)
	require.NoError(t, err)
}

// failingStore injects errors into selected repository calls, including
// calls made inside transactions.
type failingStore struct {
	repositories.Store
	errs *storeErrors
}

type storeErrors struct {
	bookCreate   error
	bookByISBN   error
	bookList     error
	adjust       error
	recordCreate error
	openLoans    error
	history      error
}

func (s *failingStore) fail() *storeErrors {
	if s.errs == nil {
		s.errs = &storeErrors{}
	}
	return s.errs
}

func (s *failingStore) Books() repositories.BookRepository {
	return &failingBooks{BookRepository: s.Store.Books(), errs: s.fail()}
}

func (s *failingStore) BorrowRecords() repositories.BorrowRecordRepository {
	return &failingRecords{BorrowRecordRepository: s.Store.BorrowRecords(), errs: s.fail()}
}

func (s *failingStore) Transaction(ctx context.Context, fn func(tx repositories.Store) error) error {
	return s.Store.Transaction(ctx, func(tx repositories.Store) error {
		return fn(&failingStore{Store: tx, errs: s.fail()})
	})
}

type failingBooks struct {
	repositories.BookRepository
	errs *storeErrors
}

func (r *failingBooks) Create(ctx context.Context, book *models.Book) error {
	if r.errs.bookCreate != nil {
		return r.errs.bookCreate
	}
	return r.BookRepository.Create(ctx, book)
}

func (r *failingBooks) GetByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	if r.errs.bookByISBN != nil {
		return nil, r.errs.bookByISBN
	}
	return r.BookRepository.GetByISBN(ctx, isbn)
}

func (r *failingBooks) List(ctx context.Context) ([]models.Book, error) {
	if r.errs.bookList != nil {
		return nil, r.errs.bookList
	}
	return r.BookRepository.List(ctx)
}

func (r *failingBooks) AdjustAvailability(ctx context.Context, id uint, delta int) error {
	if r.errs.adjust != nil {
		return r.errs.adjust
	}
	return r.BookRepository.AdjustAvailability(ctx, id, delta)
}

type failingRecords struct {
	repositories.BorrowRecordRepository
	errs *storeErrors
}

func (r *failingRecords) Create(ctx context.Context, record *models.BorrowRecord) error {
	if r.errs.recordCreate != nil {
		return r.errs.recordCreate
	}
	return r.BorrowRecordRepository.Create(ctx, record)
}

func (r *failingRecords) ListOpenByPatron(ctx context.Context, patronID string) ([]models.OpenLoan, error) {
	if r.errs.openLoans != nil {
		return nil, r.errs.openLoans
	}
	return r.BorrowRecordRepository.ListOpenByPatron(ctx, patronID)
}

func (r *failingRecords) HasHistory(ctx context.Context, patronID string) (bool, error) {
	if r.errs.history != nil {
		return false, r.errs.history
	}
	return r.BorrowRecordRepository.HasHistory(ctx, patronID)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Charge(ctx context.Context, req payments.ChargeRequest) (payments.ChargeResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(payments.ChargeResult), args.Error(1)
}

func (m *mockGateway) Refund(ctx context.Context, req payments.RefundRequest) (payments.RefundResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(payments.RefundResult), args.Error(1)
}
