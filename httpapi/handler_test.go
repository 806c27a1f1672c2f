package httpapi_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/book-service-go/bookstore"
	"github.com/AntonStoeckl/book-service-go/httpapi"
)

type fakeStore struct {
	mu        sync.Mutex
	books     bookstore.Books
	createErr error
	listErr   error
	pingErr   error
	panicOn   string
}

func (s *fakeStore) Create(_ context.Context, draft bookstore.BookDraft) (bookstore.Book, error) {
	if s.panicOn == "create" {
		panic("boom")
	}

	if s.createErr != nil {
		return bookstore.Book{}, s.createErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	book := draft.ToBook(bookstore.BookID(len(s.books) + 1))
	s.books = append(s.books, book)

	return book, nil
}

func (s *fakeStore) List(_ context.Context) (bookstore.Books, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return append(bookstore.Books(nil), s.books...), nil
}

func (s *fakeStore) Ping(_ context.Context) error {
	return s.pingErr
}

func serve(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, jsoniter.ConfigFastest.Unmarshal(rec.Body.Bytes(), &v))

	return v
}

func Test_CreateBook(t *testing.T) {
	// arrange
	store := &fakeStore{}
	h := httpapi.New(store, nil)

	// act
	rec := serve(t, h, http.MethodPost, "/books", "{\"title\":\"Dune\",\"author\":\"Frank Herbert\"}\n")

	// assert
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	book := decode[bookstore.Book](t, rec)
	assert.Equal(t, bookstore.Book{ID: 1, Title: "Dune", Author: "Frank Herbert"}, book)
}

func Test_CreateBook_ShouldIgnoreClientSuppliedID(t *testing.T) {
	store := &fakeStore{}
	h := httpapi.New(store, nil)

	rec := serve(t, h, http.MethodPost, "/books", `{"id":999,"title":"Dune","author":"Frank Herbert"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, bookstore.BookID(1), decode[bookstore.Book](t, rec).ID)
}

func Test_CreateBook_ShouldRejectBadInput(t *testing.T) {
	testCases := []struct {
		name            string
		body            string
		expectedMessage string
	}{
		{name: "malformed json", body: `{"title":`, expectedMessage: "invalid request body"},
		{name: "wrong type", body: `{"title":42,"author":"x"}`, expectedMessage: "invalid request body"},
		{name: "empty body", body: ``, expectedMessage: "invalid request body"},
		{name: "trailing data", body: `{"title":"Dune","author":"Frank Herbert"} junk`, expectedMessage: "invalid request body"},
		{name: "second json value", body: `{"title":"Dune","author":"Frank Herbert"}{}`, expectedMessage: "invalid request body"},
		{name: "missing title", body: `{"author":"Frank Herbert"}`, expectedMessage: bookstore.ErrEmptyTitle.Error()},
		{name: "blank author", body: `{"title":"Dune","author":"   "}`, expectedMessage: bookstore.ErrEmptyAuthor.Error()},
		{name: "NUL in title", body: `{"title":"a\u0000b","author":"x"}`, expectedMessage: bookstore.ErrMalformedTitle.Error()},
		{name: "invalid UTF-8 in author", body: "{\"title\":\"Dune\",\"author\":\"a\xff\xfeb\"}", expectedMessage: bookstore.ErrMalformedAuthor.Error()},
		{name: "title too long", body: `{"title":"` + strings.Repeat("x", 256) + `","author":"a"}`, expectedMessage: bookstore.ErrTitleTooLong.Error()},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			store := &fakeStore{}
			h := httpapi.New(store, nil)

			// act
			rec := serve(t, h, http.MethodPost, "/books", tc.body)

			// assert
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decode[httpapi.ErrorResponse](t, rec).Error, tc.expectedMessage)
			assert.Empty(t, store.books)
		})
	}
}

func Test_CreateBook_ShouldReportAllViolations(t *testing.T) {
	h := httpapi.New(&fakeStore{}, nil)

	rec := serve(t, h, http.MethodPost, "/books", `{"title":"","author":""}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t,
		"invalid book: title must not be empty; author must not be empty",
		decode[httpapi.ErrorResponse](t, rec).Error,
	)
}

func Test_CreateBook_ShouldRejectOversizedBody(t *testing.T) {
	h := httpapi.New(&fakeStore{}, nil)
	body := `{"title":"` + strings.Repeat("x", httpapi.MaxRequestBodyBytes) + `","author":"a"}`

	rec := serve(t, h, http.MethodPost, "/books", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_CreateBook_ShouldHideStoreErrors(t *testing.T) {
	// arrange
	var logs bytes.Buffer
	store := &fakeStore{createErr: errors.Join(bookstore.ErrCreatingBookFailed, errors.New("connection refused"))}
	h := httpapi.New(store, slog.New(slog.NewJSONHandler(&logs, nil)))

	// act
	rec := serve(t, h, http.MethodPost, "/books", `{"title":"Dune","author":"Frank Herbert"}`)

	// assert
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decode[httpapi.ErrorResponse](t, rec).Error)
	assert.Contains(t, logs.String(), "connection refused")
}

func Test_ListBooks_ShouldReturnEmptyArray(t *testing.T) {
	h := httpapi.New(&fakeStore{}, nil)

	rec := serve(t, h, http.MethodGet, "/books", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func Test_ListBooks_ShouldReturnBooksInInsertionOrder(t *testing.T) {
	// arrange
	h := httpapi.New(&fakeStore{}, nil)
	serve(t, h, http.MethodPost, "/books", `{"title":"Dune","author":"Frank Herbert"}`)
	serve(t, h, http.MethodPost, "/books", `{"title":"Emma","author":"Jane Austen"}`)

	// act
	rec := serve(t, h, http.MethodGet, "/books", "")

	// assert
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`[{"id":1,"title":"Dune","author":"Frank Herbert"},{"id":2,"title":"Emma","author":"Jane Austen"}]`,
		rec.Body.String(),
	)
}

func Test_ListBooks_ShouldHideStoreErrors(t *testing.T) {
	h := httpapi.New(&fakeStore{listErr: bookstore.ErrListingBooksFailed}, nil)

	rec := serve(t, h, http.MethodGet, "/books", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func Test_Health(t *testing.T) {
	h := httpapi.New(&fakeStore{}, nil)
	rec := serve(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	h = httpapi.New(&fakeStore{pingErr: bookstore.ErrPingingDatabaseFailed}, nil)
	rec = serve(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func Test_UnknownRoutes(t *testing.T) {
	h := httpapi.New(&fakeStore{}, nil)

	assert.Equal(t, http.StatusNotFound, serve(t, h, http.MethodGet, "/authors", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(t, h, http.MethodDelete, "/books", "").Code)
}

func Test_RequestID(t *testing.T) {
	h := httpapi.New(&fakeStore{}, nil)

	t.Run("generated when absent", func(t *testing.T) {
		rec := serve(t, h, http.MethodGet, "/books", "")
		assert.Len(t, rec.Header().Get(httpapi.RequestIDHeader), 36)
	})

	t.Run("propagated when present", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/books", nil)
		req.Header.Set(httpapi.RequestIDHeader, "req-123")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		assert.Equal(t, "req-123", rec.Header().Get(httpapi.RequestIDHeader))
	})
}

func Test_AccessLog(t *testing.T) {
	// arrange
	var logs bytes.Buffer
	h := httpapi.New(&fakeStore{}, slog.New(slog.NewJSONHandler(&logs, nil)))

	// act
	serve(t, h, http.MethodGet, "/books", "")

	// assert
	assert.Contains(t, logs.String(), `"msg":"http request"`)
	assert.Contains(t, logs.String(), `"method":"GET"`)
	assert.Contains(t, logs.String(), `"path":"/books"`)
	assert.Contains(t, logs.String(), `"status":200`)
	assert.Contains(t, logs.String(), `"request_id"`)
}

func Test_PanicsAreRecovered(t *testing.T) {
	var logs bytes.Buffer
	h := httpapi.New(&fakeStore{panicOn: "create"}, slog.New(slog.NewJSONHandler(&logs, nil)))

	rec := serve(t, h, http.MethodPost, "/books", `{"title":"Dune","author":"Frank Herbert"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, logs.String(), "panic while serving request")
}
