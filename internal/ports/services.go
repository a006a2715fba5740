// Package ports defines interfaces for external dependencies.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete implementations.
//
// Port Design Principles:
//   - Context as first parameter (always) for cancellation and deadlines
//   - Return domain types, never external DTOs or infrastructure types
//   - Error returns use domain error types (ErrNotFound, ErrUnavailable, etc.)
//   - Keep interfaces small and focused
package ports

import (
	"context"

	"github.com/jsamuelsen/quote-generator/internal/domain"
)

// Durable slot keys.
const (
	// SlotQuotes holds the serialized quote list.
	SlotQuotes = "quotes"

	// SlotSelectedCategory holds the last selected category filter.
	SlotSelectedCategory = "selectedCategory"
)

// Session slot keys.
const (
	// SessionSlotLastViewed holds the most recently rendered quote.
	SessionSlotLastViewed = "lastViewedQuote"

	// SessionSlotFlash holds a one-shot user message shown on the next page render.
	SessionSlotFlash = "flash"
)

// SlotStore is durable key/value storage that survives restarts.
// Values are opaque bytes; callers own the encoding.
type SlotStore interface {
	// Get returns the value stored under key.
	// Returns domain.ErrNotFound if the slot has never been written.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put overwrites the value stored under key.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes the slot. Deleting an absent slot is not an error.
	Delete(ctx context.Context, key string) error
}

// SessionStore is per-visitor key/value storage scoped to one browsing session.
// Slots disappear when the session expires.
type SessionStore interface {
	// Get returns the value of a session slot.
	// Returns domain.ErrNotFound if the session or slot does not exist.
	Get(ctx context.Context, sessionID, key string) ([]byte, error)

	// Put writes a session slot, creating the session if needed.
	Put(ctx context.Context, sessionID, key string, value []byte) error

	// Delete removes a session slot. Deleting an absent slot is not an error.
	Delete(ctx context.Context, sessionID, key string) error
}

// RemoteQuoteSource fetches the server-side representation of the quote list.
// Implementations translate the remote schema into domain quotes.
type RemoteQuoteSource interface {
	// FetchQuotes performs one request against the remote endpoint.
	// Returns domain.ErrUnavailable for transport failures and domain.ErrParse
	// for responses that are not a well-formed quote list.
	FetchQuotes(ctx context.Context) ([]domain.Quote, error)
}
