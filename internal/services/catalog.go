package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"circulation/internal/models"
	"circulation/internal/repositories"
	"circulation/internal/validation"
)

type SearchKind string

const (
	SearchByTitle  SearchKind = "title"
	SearchByAuthor SearchKind = "author"
	SearchByISBN   SearchKind = "isbn"
)

type AddBookResult struct {
	Book    *models.Book `json:"book"`
	Message string       `json:"message"`
}

type SearchResult struct {
	Books   []models.Book `json:"books"`
	Message string        `json:"message"`
}

// AddBook validates the input and adds a book whose copies are all available.
// Checks run in a fixed order and the first violation is reported.
func (s *libraryService) AddBook(ctx context.Context, title, author, isbn string, totalCopies int) (*AddBookResult, error) {
	title, present, fits := validation.Text(title, validation.MaxTitleLength)
	if !present {
		return nil, ErrTitleRequired
	}
	if !fits {
		return nil, ErrTitleTooLong
	}

	author, present, fits = validation.Text(author, validation.MaxAuthorLength)
	if !present {
		return nil, ErrAuthorRequired
	}
	if !fits {
		return nil, ErrAuthorTooLong
	}

	if !validation.HasISBNLength(isbn) {
		return nil, ErrISBNLength
	}
	if !validation.IsDigits(isbn) {
		return nil, ErrISBNDigits
	}
	if totalCopies <= 0 {
		return nil, ErrInvalidCopies
	}

	book := &models.Book{
		Title:           title,
		Author:          author,
		ISBN:            isbn,
		TotalCopies:     totalCopies,
		AvailableCopies: totalCopies,
	}

	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		if _, err := tx.Books().GetByISBN(ctx, isbn); err == nil {
			return ErrDuplicateISBN
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return err
		}
		return tx.Books().Create(ctx, book)
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateISBN) || errors.Is(err, repositories.ErrDuplicateISBN) {
			log.Printf("[WARN] AddBook: isbn %s already cataloged", isbn)
			return nil, ErrDuplicateISBN
		}
		log.Printf("[ERROR] AddBook: failed to add book %q: %v", title, err)
		return nil, storeError("Database error occurred while adding the book.", err)
	}

	log.Printf("[INFO] AddBook: added book %q (id=%d) with %d copies", book.Title, book.ID, book.TotalCopies)
	return &AddBookResult{
		Book:    book,
		Message: fmt.Sprintf("Book \"%s\" has been successfully added to the catalog.", book.Title),
	}, nil
}

// SearchBooks looks up books by exact ISBN or by case-insensitive substring of
// title or author. A query that matches nothing succeeds with no books.
func (s *libraryService) SearchBooks(ctx context.Context, term, kind string) (*SearchResult, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, ErrEmptySearchTerm
	}

	var books []models.Book
	switch SearchKind(strings.ToLower(strings.TrimSpace(kind))) {
	case SearchByISBN:
		if !validation.IsISBN(term) {
			return nil, ErrInvalidSearchISBN
		}
		book, err := s.store.Books().GetByISBN(ctx, term)
		switch {
		case err == nil:
			books = append(books, *book)
		case !errors.Is(err, repositories.ErrNotFound):
			log.Printf("[ERROR] SearchBooks: isbn lookup failed: %v", err)
			return nil, storeError("Database error: could not retrieve catalog.", err)
		}

	case SearchByTitle:
		matches, err := s.matchCatalog(ctx, term, func(b *models.Book) string { return b.Title })
		if err != nil {
			return nil, err
		}
		books = matches

	case SearchByAuthor:
		matches, err := s.matchCatalog(ctx, term, func(b *models.Book) string { return b.Author })
		if err != nil {
			return nil, err
		}
		books = matches

	default:
		return nil, ErrInvalidSearchType
	}

	if len(books) == 0 {
		return &SearchResult{Books: []models.Book{}, Message: "No matching books are found."}, nil
	}
	return &SearchResult{
		Books:   books,
		Message: fmt.Sprintf("List of books found: %d result(s).", len(books)),
	}, nil
}

func (s *libraryService) matchCatalog(ctx context.Context, term string, field func(*models.Book) string) ([]models.Book, error) {
	catalog, err := s.store.Books().List(ctx)
	if err != nil {
		log.Printf("[ERROR] SearchBooks: failed to list catalog: %v", err)
		return nil, storeError("Database error: could not retrieve catalog.", err)
	}

	needle := strings.ToLower(term)
	var matches []models.Book
	for i := range catalog {
		if strings.Contains(strings.ToLower(field(&catalog[i])), needle) {
			matches = append(matches, catalog[i])
		}
	}
	return matches, nil
}
