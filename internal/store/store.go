package store

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/acp-checkout/domain"
	"github.com/google/uuid"
)

const DefaultCurrency = "USD"

var ErrSessionNotFound = errors.New("checkout session not found")

// SessionStore is the contract every session backend implements. Get returns
// a copy; callers mutate it and write it back with Set.
type SessionStore interface {
	// Create assigns a fresh id and persists the session. A new session starts
	// as draft unless initial is already awaiting_payment.
	Create(ctx context.Context, initial *domain.Session) (*domain.Session, error)

	// Get returns ErrSessionNotFound when the id is unknown.
	Get(ctx context.Context, id string) (*domain.Session, error)

	// Set replaces the stored session with the same id.
	Set(ctx context.Context, session *domain.Session) error
}

// Lister is implemented by backends that can enumerate sessions for diagnostics.
type Lister interface {
	List(ctx context.Context) ([]*domain.Session, error)
}

func newSession(initial *domain.Session, now time.Time) *domain.Session {
	s := initial.Clone()
	if s == nil {
		s = &domain.Session{}
	}
	s.ID = uuid.NewString()
	if !s.Status.IsMutable() {
		s.Status = domain.CheckoutStatusDraft
	}
	if s.Items == nil {
		s.Items = []domain.CheckoutItem{}
	}
	if s.Currency == "" {
		s.Currency = DefaultCurrency
	}
	s.CreatedAt = now
	s.UpdatedAt = now
	return s
}
