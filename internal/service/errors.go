package service

import "errors"

var (
	ErrListingUnsupported  = errors.New("session store cannot list sessions")
	IllegalTransitionError = errors.New("illegal transition of checkout status")
)
