package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Cents is a money amount in US cents.
type Cents int64

// String renders the amount as dollars, e.g. "$3.00".
func (c Cents) String() string {
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s$%d.%02d", sign, c/100, c%100)
}

type Book struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	Title           string `gorm:"size:200;not null" json:"title"`
	Author          string `gorm:"size:100;not null" json:"author"`
	ISBN            string `gorm:"size:13;not null;uniqueIndex" json:"isbn"`
	TotalCopies     int    `gorm:"not null" json:"total_copies"`
	AvailableCopies int    `gorm:"not null;check:available_copies >= 0" json:"available_copies"`
}

type BorrowRecord struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	PatronID   string     `gorm:"size:6;not null;index" json:"patron_id"`
	BookID     uint       `gorm:"not null;index" json:"book_id"`
	Book       Book       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	BorrowDate time.Time  `gorm:"not null" json:"borrow_date"`
	DueDate    time.Time  `gorm:"not null" json:"due_date"`
	ReturnDate *time.Time `json:"return_date"`
}

// Open reports whether the record has not been returned yet.
func (r *BorrowRecord) Open() bool {
	return r.ReturnDate == nil
}

// OpenLoan is the read view of an open borrow record joined with its book.
// Overdue status depends on the caller's clock and is derived in services.
type OpenLoan struct {
	BookID     uint      `json:"book_id"`
	Title      string    `json:"title"`
	BorrowDate time.Time `json:"borrow_date"`
	DueDate    time.Time `json:"due_date"`
}
