package httpapi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/book-service-go/bookstore"
)

// MaxRequestBodyBytes limits the size of accepted request bodies.
const MaxRequestBodyBytes = 1 << 20

const (
	msgInvalidRequestBody = "invalid request body"
	msgInternalError      = "internal server error"
	msgDatabaseDown       = "database unavailable"
	statusOK              = "ok"
)

var json = jsoniter.ConfigFastest

var errEmptyBody = errors.New("request body is empty")

// BookStore defines the store operations needed by the Handler.
type BookStore interface {
	Create(ctx context.Context, draft bookstore.BookDraft) (bookstore.Book, error)
	List(ctx context.Context) (bookstore.Books, error)
	Ping(ctx context.Context) error
}

// CreateBookRequest is the JSON request body for POST /books.
// An id sent by the client is ignored, the store assigns it.
type CreateBookRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

// ErrorResponse is the JSON body of all non-2xx responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON response for GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// Handler serves the book HTTP API.
type Handler struct {
	store   BookStore
	logger  *slog.Logger
	mux     *http.ServeMux
	handler http.Handler
}

// New creates a Handler and wires up all routes and middleware.
// A nil logger discards all log output.
func New(store BookStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	h := &Handler{
		store:  store,
		logger: logger,
		mux:    http.NewServeMux(),
	}
	h.routes()
	h.handler = recoverPanics(logger, withRequestID(accessLog(logger, h.mux)))

	return h
}

// ServeHTTP makes Handler an http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	h.mux.HandleFunc("POST /books", h.handleCreateBook)
	h.mux.HandleFunc("GET /books", h.handleListBooks)
	h.mux.HandleFunc("GET /healthz", h.handleHealth)
}

// handleCreateBook handles POST /books.
// It responds with 200 and the created book, 400 for malformed or invalid input, 500 otherwise.
func (h *Handler) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var req CreateBookRequest

	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodyBytes)
	if err := decodeBody(r.Body, &req); err != nil {
		h.logger.InfoContext(r.Context(), "rejected create book request", "error", err.Error(), "request_id", RequestIDFrom(r.Context()))
		writeError(w, http.StatusBadRequest, msgInvalidRequestBody)
		return
	}

	draft, err := bookstore.BuildBookDraft(req.Title, req.Author)
	if err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	book, err := h.store.Create(r.Context(), draft)
	if err != nil {
		h.writeStoreError(w, r, "creating book failed", err)
		return
	}

	writeJSON(w, http.StatusOK, book)
}

// handleListBooks handles GET /books.
// It responds with a JSON array of all books in insertion order, [] when there are none.
func (h *Handler) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.store.List(r.Context())
	if err != nil {
		h.writeStoreError(w, r, "listing books failed", err)
		return
	}

	if books == nil {
		books = make(bookstore.Books, 0)
	}

	writeJSON(w, http.StatusOK, books)
}

// handleHealth handles GET /healthz.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "health check failed", "error", err.Error())
		writeError(w, http.StatusServiceUnavailable, msgDatabaseDown)
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{Status: statusOK})
}

// writeStoreError maps a store error onto a response, details only go to the log.
func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, message string, err error) {
	if errors.Is(err, bookstore.ErrInvalidBook) {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	h.logger.ErrorContext(r.Context(), message, "error", err.Error(), "request_id", RequestIDFrom(r.Context()))
	writeError(w, http.StatusInternalServerError, msgInternalError)
}

// validationMessage flattens a joined validation error into one line.
func validationMessage(err error) string {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return err.Error()
	}

	causes := make([]string, 0)
	for _, cause := range joined.Unwrap() {
		if cause == bookstore.ErrInvalidBook { //nolint:errorlint // the sentinel itself becomes the prefix
			continue
		}
		causes = append(causes, cause.Error())
	}

	return bookstore.ErrInvalidBook.Error() + ": " + strings.Join(causes, "; ")
}

// decodeBody unmarshals exactly one JSON value, trailing data is rejected.
func decodeBody(body io.Reader, v any) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return errEmptyBody
	}

	return json.Unmarshal(data, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
