package service

import (
	"context"

	"github.com/fjod/acp-checkout/domain"
	"github.com/fjod/acp-checkout/internal/store"
)

// Sessions lists every stored session for diagnostics.
func (s *CheckoutServiceImpl) Sessions(ctx context.Context) ([]*domain.Session, error) {
	lister, ok := s.store.(store.Lister)
	if !ok {
		return nil, ErrListingUnsupported
	}
	return lister.List(ctx)
}
