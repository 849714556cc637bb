package repository

import (
	"context"
	"time"

	"membership-marketplace/internal/domain/model"
)

type OrderRepository interface {
	// Save inserts an order. The unique index on payment.intent_id means a
	// duplicate fulfillment surfaces as domain.ErrConflict instead of a
	// second order.
	Save(ctx context.Context, tx Tx, o *model.Order) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Order, error)
	FindByIntent(ctx context.Context, tx Tx, intentID string) (*model.Order, error)
	// ExpirePending marks pending orders past their expiry as ignored and
	// returns how many were transitioned.
	ExpirePending(ctx context.Context, tx Tx, now time.Time) (int, error)
}

type CartRepository interface {
	FindByActor(ctx context.Context, tx Tx, actor model.Actor) (*model.Cart, error)
	Save(ctx context.Context, tx Tx, c *model.Cart) error
	Clear(ctx context.Context, tx Tx, actor model.Actor) error
}

type ProviderRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Provider, error)
}
