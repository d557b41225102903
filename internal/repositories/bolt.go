package repositories

import (
	"context"
	"encoding/binary"
	"errors"
	"slices"
	"time"

	bolt "go.etcd.io/bbolt"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"circulation/internal/models"
)

var (
	booksBucket         = []byte("books")
	booksByISBNBucket   = []byte("books_by_isbn")
	borrowRecordsBucket = []byte("borrow_records")
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// errReadOnly is returned when a write is attempted through a store bound to
// a read-only bolt transaction.
var errReadOnly = errors.New("bolt: write in read-only transaction")

// BoltStore is an embedded Store backed by a single BoltDB file. Every
// Transaction is one bolt read-write transaction, so all of its writes commit
// or roll back together.
type BoltStore struct {
	db *bolt.DB
	tx *bolt.Tx
}

// NewBoltStore opens (or creates) the database at path and ensures all
// buckets exist.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{booksBucket, booksByISBNBucket, borrowRecordsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close releases the database file lock.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Books() BookRepository {
	return &boltBooks{s}
}

func (s *BoltStore) BorrowRecords() BorrowRecordRepository {
	return &boltBorrowRecords{s}
}

func (s *BoltStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.tx != nil {
		return fn(s)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return fn(&BoltStore{db: s.db, tx: tx})
	})
}

func (s *BoltStore) view(ctx context.Context, fn func(tx *bolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.tx != nil {
		return fn(s.tx)
	}
	return s.db.View(fn)
}

func (s *BoltStore) update(ctx context.Context, fn func(tx *bolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.tx != nil {
		if !s.tx.Writable() {
			return errReadOnly
		}
		return fn(s.tx)
	}
	return s.db.Update(fn)
}

type boltBooks struct {
	s *BoltStore
}

func (r *boltBooks) Create(ctx context.Context, book *models.Book) error {
	return r.s.update(ctx, func(tx *bolt.Tx) error {
		byISBN := tx.Bucket(booksByISBNBucket)
		if byISBN.Get([]byte(book.ISBN)) != nil {
			return ErrDuplicateISBN
		}

		b := tx.Bucket(booksBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		stored := *book
		stored.ID = uint(seq)
		if err := putJSON(b, itob(seq), &stored); err != nil {
			return err
		}
		if err := byISBN.Put([]byte(book.ISBN), itob(seq)); err != nil {
			return err
		}
		*book = stored
		return nil
	})
}

func (r *boltBooks) GetByID(ctx context.Context, id uint) (*models.Book, error) {
	var book models.Book
	err := r.s.view(ctx, func(tx *bolt.Tx) error {
		return getBook(tx, uint64(id), &book)
	})
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *boltBooks) GetByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	var book models.Book
	err := r.s.view(ctx, func(tx *bolt.Tx) error {
		key := tx.Bucket(booksByISBNBucket).Get([]byte(isbn))
		if key == nil {
			return ErrNotFound
		}
		return getBook(tx, binary.BigEndian.Uint64(key), &book)
	})
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *boltBooks) List(ctx context.Context) ([]models.Book, error) {
	books := []models.Book{}
	err := r.s.view(ctx, func(tx *bolt.Tx) error {
		return tx.Bucket(booksBucket).ForEach(func(_, v []byte) error {
			var book models.Book
			if err := codec.Unmarshal(v, &book); err != nil {
				return err
			}
			books = append(books, book)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return books, nil
}

func (r *boltBooks) AdjustAvailability(ctx context.Context, id uint, delta int) error {
	return r.s.update(ctx, func(tx *bolt.Tx) error {
		var book models.Book
		if err := getBook(tx, uint64(id), &book); err != nil {
			return err
		}
		next := book.AvailableCopies + delta
		if next < 0 || next > book.TotalCopies {
			return ErrAvailabilityConflict
		}
		book.AvailableCopies = next
		return putJSON(tx.Bucket(booksBucket), itob(uint64(id)), &book)
	})
}

type boltBorrowRecords struct {
	s *BoltStore
}

func (r *boltBorrowRecords) Create(ctx context.Context, record *models.BorrowRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.s.update(ctx, func(tx *bolt.Tx) error {
		if err := getBook(tx, uint64(record.BookID), &models.Book{}); err != nil {
			return err
		}
		return putJSON(tx.Bucket(borrowRecordsBucket), record.ID[:], record)
	})
}

func (r *boltBorrowRecords) MarkReturned(ctx context.Context, patronID string, bookID uint, returnedAt time.Time) error {
	return r.s.update(ctx, func(tx *bolt.Tx) error {
		var oldest *models.BorrowRecord
		err := eachRecord(tx, func(rec *models.BorrowRecord) {
			if rec.PatronID != patronID || rec.BookID != bookID || !rec.Open() {
				return
			}
			if oldest == nil || rec.BorrowDate.Before(oldest.BorrowDate) {
				oldest = rec
			}
		})
		if err != nil {
			return err
		}
		if oldest == nil {
			return ErrNotFound
		}
		oldest.ReturnDate = &returnedAt
		return putJSON(tx.Bucket(borrowRecordsBucket), oldest.ID[:], oldest)
	})
}

func (r *boltBorrowRecords) ListOpenByPatron(ctx context.Context, patronID string) ([]models.OpenLoan, error) {
	loans := []models.OpenLoan{}
	err := r.s.view(ctx, func(tx *bolt.Tx) error {
		var open []*models.BorrowRecord
		err := eachRecord(tx, func(rec *models.BorrowRecord) {
			if rec.PatronID == patronID && rec.Open() {
				open = append(open, rec)
			}
		})
		if err != nil {
			return err
		}
		for _, rec := range open {
			var book models.Book
			if err := getBook(tx, uint64(rec.BookID), &book); err != nil {
				return err
			}
			loans = append(loans, models.OpenLoan{
				BookID:     rec.BookID,
				Title:      book.Title,
				BorrowDate: rec.BorrowDate,
				DueDate:    rec.DueDate,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(loans, func(a, b models.OpenLoan) int {
		return a.BorrowDate.Compare(b.BorrowDate)
	})
	return loans, nil
}

func (r *boltBorrowRecords) CountOpenByPatron(ctx context.Context, patronID string) (int, error) {
	count := 0
	err := r.s.view(ctx, func(tx *bolt.Tx) error {
		return eachRecord(tx, func(rec *models.BorrowRecord) {
			if rec.PatronID == patronID && rec.Open() {
				count++
			}
		})
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *boltBorrowRecords) HasHistory(ctx context.Context, patronID string) (bool, error) {
	found := false
	err := r.s.view(ctx, func(tx *bolt.Tx) error {
		return eachRecord(tx, func(rec *models.BorrowRecord) {
			if rec.PatronID == patronID {
				found = true
			}
		})
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

func eachRecord(tx *bolt.Tx, fn func(rec *models.BorrowRecord)) error {
	return tx.Bucket(borrowRecordsBucket).ForEach(func(_, v []byte) error {
		var rec models.BorrowRecord
		if err := codec.Unmarshal(v, &rec); err != nil {
			return err
		}
		fn(&rec)
		return nil
	})
}

func getBook(tx *bolt.Tx, id uint64, book *models.Book) error {
	v := tx.Bucket(booksBucket).Get(itob(id))
	if v == nil {
		return ErrNotFound
	}
	return codec.Unmarshal(v, book)
}

func putJSON(b *bolt.Bucket, key []byte, v any) error {
	data, err := codec.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put(key, data)
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
