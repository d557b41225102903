package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"circulation/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateISBN is returned when a book with the same ISBN is already stored.
	ErrDuplicateISBN = errors.New("isbn already exists")

	// ErrAvailabilityConflict is returned when an availability delta would move
	// available copies outside [0, total copies].
	ErrAvailabilityConflict = errors.New("available copies out of range")
)

type BookRepository interface {
	Create(ctx context.Context, book *models.Book) error
	GetByID(ctx context.Context, id uint) (*models.Book, error)
	GetByISBN(ctx context.Context, isbn string) (*models.Book, error)
	List(ctx context.Context) ([]models.Book, error)
	AdjustAvailability(ctx context.Context, id uint, delta int) error
}

type BorrowRecordRepository interface {
	Create(ctx context.Context, record *models.BorrowRecord) error
	// MarkReturned closes the oldest open record of patronID for bookID.
	MarkReturned(ctx context.Context, patronID string, bookID uint, returnedAt time.Time) error
	ListOpenByPatron(ctx context.Context, patronID string) ([]models.OpenLoan, error)
	CountOpenByPatron(ctx context.Context, patronID string) (int, error)
	// HasHistory reports whether the patron has any borrow record, open or closed.
	HasHistory(ctx context.Context, patronID string) (bool, error)
}

// Store groups the repositories and runs multi-step mutations atomically.
// The Store passed to fn is bound to the transaction; fn's error rolls back
// every write made through it.
type Store interface {
	Books() BookRepository
	BorrowRecords() BorrowRecordRepository
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// Migrate creates or updates the postgres schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.Book{}, &models.BorrowRecord{})
}

// gorm / postgres implementation

type gormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Books() BookRepository {
	return &bookRepository{db: s.db}
}

func (s *gormStore) BorrowRecords() BorrowRecordRepository {
	return &borrowRecordRepository{db: s.db}
}

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

type bookRepository struct {
	db *gorm.DB
}

func (r *bookRepository) Create(ctx context.Context, book *models.Book) error {
	if err := r.db.WithContext(ctx).Create(book).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateISBN
		}
		return err
	}
	return nil
}

func (r *bookRepository) GetByID(ctx context.Context, id uint) (*models.Book, error) {
	var book models.Book
	if err := r.db.WithContext(ctx).First(&book, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &book, nil
}

func (r *bookRepository) GetByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	var book models.Book
	if err := r.db.WithContext(ctx).First(&book, "isbn = ?", isbn).Error; err != nil {
		return nil, translate(err)
	}
	return &book, nil
}

func (r *bookRepository) List(ctx context.Context) ([]models.Book, error) {
	var books []models.Book
	if err := r.db.WithContext(ctx).Order("id").Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *bookRepository) AdjustAvailability(ctx context.Context, id uint, delta int) error {
	res := r.db.WithContext(ctx).Model(&models.Book{}).
		Where("id = ? AND available_copies + ? >= 0 AND available_copies + ? <= total_copies", id, delta, delta).
		UpdateColumn("available_copies", gorm.Expr("available_copies + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrAvailabilityConflict
	}
	return nil
}

type borrowRecordRepository struct {
	db *gorm.DB
}

func (r *borrowRecordRepository) Create(ctx context.Context, record *models.BorrowRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(record).Error
}

func (r *borrowRecordRepository) MarkReturned(ctx context.Context, patronID string, bookID uint, returnedAt time.Time) error {
	db := r.db.WithContext(ctx)

	var record models.BorrowRecord
	err := db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("patron_id = ? AND book_id = ? AND return_date IS NULL", patronID, bookID).
		Order("borrow_date ASC").
		First(&record).Error
	if err != nil {
		return translate(err)
	}
	return db.Model(&models.BorrowRecord{}).
		Where("id = ? AND return_date IS NULL", record.ID).
		Update("return_date", returnedAt).
		Error
}

func (r *borrowRecordRepository) ListOpenByPatron(ctx context.Context, patronID string) ([]models.OpenLoan, error) {
	var loans []models.OpenLoan
	err := r.db.WithContext(ctx).
		Table("borrow_records AS br").
		Select("br.book_id, b.title, br.borrow_date, br.due_date").
		Joins("JOIN books AS b ON b.id = br.book_id").
		Where("br.patron_id = ? AND br.return_date IS NULL", patronID).
		Order("br.borrow_date ASC").
		Scan(&loans).Error
	if err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *borrowRecordRepository) CountOpenByPatron(ctx context.Context, patronID string) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.BorrowRecord{}).
		Where("patron_id = ? AND return_date IS NULL", patronID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *borrowRecordRepository) HasHistory(ctx context.Context, patronID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.BorrowRecord{}).
		Where("patron_id = ?", patronID).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("postgres: %w", err)
}

// isUniqueViolation checks whether a PostgreSQL unique-constraint error occurred.
// PostgreSQL error code 23505 = unique_violation.
func isUniqueViolation(err error) bool {
	return err != nil && (errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "23505"))
}
