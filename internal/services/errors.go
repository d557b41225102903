package services

// ErrorKind groups failures by cause. Lower values win when more than one
// could apply.
type ErrorKind int

const (
	KindInvalidInput ErrorKind = iota + 1
	KindNotFound
	KindBusinessRule
	KindStore
	KindUpstream
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	case KindBusinessRule:
		return "business_rule"
	case KindStore:
		return "store"
	case KindUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// Error is the failure result of every LibraryService operation. Message is
// safe to show to a patron; Err keeps the underlying cause, if any.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same kind and message, so the sentinels
// below work with errors.Is even after a cause has been attached.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == e.Message
}

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func storeError(msg string, err error) *Error {
	return &Error{Kind: KindStore, Message: msg, Err: err}
}

// ─── Sentinel Errors ──────────────────────────────────────────────────────────

var (
	ErrInvalidPatronID = newError(KindInvalidInput, "Invalid patron ID. Must be exactly 6 digits.")

	ErrTitleRequired  = newError(KindInvalidInput, "Title is required.")
	ErrTitleTooLong   = newError(KindInvalidInput, "Title must be less than 200 characters.")
	ErrAuthorRequired = newError(KindInvalidInput, "Author is required.")
	ErrAuthorTooLong  = newError(KindInvalidInput, "Author must be less than 100 characters.")
	ErrISBNLength     = newError(KindInvalidInput, "ISBN must be exactly 13 digits.")
	ErrISBNDigits     = newError(KindInvalidInput, "ISBN must contain only digits.")
	ErrInvalidCopies  = newError(KindInvalidInput, "Total copies must be a positive integer.")

	ErrEmptySearchTerm   = newError(KindInvalidInput, "Search input must not be empty.")
	ErrInvalidSearchType = newError(KindInvalidInput, "Invalid search type. Valid types are title, author and isbn.")
	ErrInvalidSearchISBN = newError(KindInvalidInput, "Invalid ISBN.")

	ErrInvalidTransactionID = newError(KindInvalidInput, "Invalid transaction ID.")
	ErrInvalidRefundAmount  = newError(KindInvalidInput, "Refund amount must be greater than 0.")

	ErrBookNotFound    = newError(KindNotFound, "Book not found.")
	ErrPatronNotFound  = newError(KindNotFound, "Patron not existent.")
	ErrBookNotBorrowed = newError(KindNotFound, "This book is not borrowed by the patron.")

	ErrDuplicateISBN       = newError(KindBusinessRule, "A book with this ISBN already exists.")
	ErrBookUnavailable     = newError(KindBusinessRule, "This book is currently not available.")
	ErrBorrowLimitReached  = newError(KindBusinessRule, "You have reached the maximum borrowing limit of 5 books.")
	ErrNothingToReturn     = newError(KindBusinessRule, "There are no books to return.")
	ErrNoBorrowedBooks     = newError(KindBusinessRule, "Patron does not have any borrowed books.")
	ErrNoLateFees          = newError(KindBusinessRule, "No late fees to pay for this book.")
	ErrRefundAmountTooHigh = newError(KindBusinessRule, "Refund amount exceeds maximum late fee.")

	ErrGatewayNotConfigured = newError(KindUpstream, "Payment gateway is not configured.")
)
