// Package bookstore provides the core types for persisting and listing books.
//
// This package defines the Book entity, the BookDraft used to create one,
// the validation rules for drafts, the common error definitions and the
// dependency-free observability interfaces shared by the store engines.
//
// Key types:
//   - Book: a persisted book with its store-assigned ID
//   - BookDraft: the title and author submitted for creation
//   - Books: an ordered collection of Book
//
// Common usage pattern:
//
//	draft, err := bookstore.BuildBookDraft("Learning Domain-Driven Design", "Vlad Khononov")
//	if err != nil {
//		// errors.Is(err, bookstore.ErrInvalidBook)
//	}
//
//	book, err := store.Create(ctx, draft)
//	books, err := store.List(ctx)
package bookstore
