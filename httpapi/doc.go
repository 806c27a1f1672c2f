// Package httpapi exposes the book store over HTTP.
//
// Routes:
//
//	POST /books    create a book from {"title", "author"}, responds with the book including its id
//	GET  /books    list all books in insertion order
//	GET  /healthz  database liveness
//
// Malformed and invalid input is answered with 400, store failures with 500.
// All error bodies have the shape {"error": "..."}.
package httpapi
