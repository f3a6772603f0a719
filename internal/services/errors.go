// Package services defines the business logic of the back office: document
// collections and the authoritative user role records. This file centralizes
// service-level error values; translation into HTTP status codes happens in
// the handlers.
package services

import "errors"

// Document errors.
var (
	// ErrUnknownCollection is returned for a collection outside the allow-list.
	ErrUnknownCollection = errors.New("unknown collection")

	// ErrInvalidDocument is returned when a payload is not a JSON object.
	ErrInvalidDocument = errors.New("document must be a JSON object")

	// ErrInvalidID is returned for an empty, oversized or malformed document id.
	ErrInvalidID = errors.New("invalid id")

	// ErrDocumentNotFound indicates that the requested document does not exist.
	ErrDocumentNotFound = errors.New("document not found")
)

// User errors.
var (
	// ErrInvalidRole is returned when a role other than base, staff or admin
	// is assigned.
	ErrInvalidRole = errors.New("invalid role")

	// ErrUserNotFound indicates that no role record exists for the id.
	ErrUserNotFound = errors.New("user not found")
)
