package bookstore

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// MaxFieldLength is the maximum number of characters allowed for a title or an author.
const MaxFieldLength = 255

var ErrInvalidBook = errors.New("invalid book")
var ErrEmptyTitle = errors.New("title must not be empty")
var ErrEmptyAuthor = errors.New("author must not be empty")
var ErrTitleTooLong = errors.New("title must not exceed 255 characters")
var ErrAuthorTooLong = errors.New("author must not exceed 255 characters")
var ErrMalformedTitle = errors.New("title must be valid UTF-8 without NUL characters")
var ErrMalformedAuthor = errors.New("author must be valid UTF-8 without NUL characters")

// Books is an alias type for a slice of Book.
type Books = []Book

// Book is a persisted book.
//
// The ID is assigned by the store on creation and is never zero for a Book returned by a store.
type Book struct {
	ID     BookID `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

// BookDraft holds the data to create a Book, it has no ID yet.
//
// While its properties are exported, it should only be constructed with BuildBookDraft,
// which trims and validates the input.
type BookDraft struct {
	Title  string
	Author string
}

// BuildBookDraft is a factory method for BookDraft.
//
// Surrounding whitespace is trimmed from title and author.
// Returns an error joined with ErrInvalidBook if either is empty, longer than MaxFieldLength characters,
// not valid UTF-8 or contains a NUL character.
func BuildBookDraft(title string, author string) (BookDraft, error) {
	draft := BookDraft{
		Title:  strings.TrimSpace(title),
		Author: strings.TrimSpace(author),
	}

	if err := draft.Validate(); err != nil {
		return BookDraft{}, err
	}

	return draft, nil
}

// Validate checks the draft as-is, without trimming.
// All violations are reported, each joined with ErrInvalidBook.
func (d BookDraft) Validate() error {
	var violations []error

	switch {
	case strings.TrimSpace(d.Title) == "":
		violations = append(violations, ErrEmptyTitle)
	case !isStorableText(d.Title):
		violations = append(violations, ErrMalformedTitle)
	case utf8.RuneCountInString(d.Title) > MaxFieldLength:
		violations = append(violations, ErrTitleTooLong)
	}

	switch {
	case strings.TrimSpace(d.Author) == "":
		violations = append(violations, ErrEmptyAuthor)
	case !isStorableText(d.Author):
		violations = append(violations, ErrMalformedAuthor)
	case utf8.RuneCountInString(d.Author) > MaxFieldLength:
		violations = append(violations, ErrAuthorTooLong)
	}

	if len(violations) == 0 {
		return nil
	}

	return errors.Join(append([]error{ErrInvalidBook}, violations...)...)
}

// isStorableText reports whether s can be stored in a PostgreSQL text column.
func isStorableText(s string) bool {
	return utf8.ValidString(s) && !strings.ContainsRune(s, 0)
}

// ToBook builds the Book the store persisted for this draft under the given id.
func (d BookDraft) ToBook(id BookID) Book {
	return Book{
		ID:     id,
		Title:  d.Title,
		Author: d.Author,
	}
}
