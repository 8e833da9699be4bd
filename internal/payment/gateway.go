package payment

import (
	"context"
	"errors"
)

var ErrNotConfigured = errors.New("payment gateway is not configured")

type LineItem struct {
	Name       string
	UnitAmount int64 // minor currency units
	Quantity   int64
}

type SessionRequest struct {
	ClientReference string
	Currency        string
	CustomerEmail   string
	SuccessURL      string
	CancelURL       string
	Items           []LineItem
}

type Session struct {
	ID              string
	URL             string
	ClientReference string
	Paid            bool
}

type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	RetrieveSession(ctx context.Context, id string) (*Session, error)
}

// Disabled rejects every call; used when no secret key is configured.
type Disabled struct{}

func (Disabled) CreateSession(context.Context, SessionRequest) (*Session, error) {
	return nil, ErrNotConfigured
}

func (Disabled) RetrieveSession(context.Context, string) (*Session, error) {
	return nil, ErrNotConfigured
}
