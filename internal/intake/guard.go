package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/printbridge-backend/pkg/redis"
)

// DeliveryGuard remembers delivery ids so exact sender retries short-circuit.
// A nil guard lets every delivery through.
type DeliveryGuard struct {
	store redis.DeliveryStore
	ttl   time.Duration
}

func NewDeliveryGuard(store redis.DeliveryStore, ttl time.Duration) (*DeliveryGuard, error) {
	if store == nil {
		return nil, errors.New("delivery store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &DeliveryGuard{store: store, ttl: ttl}, nil
}

// CheckAndMark reports whether the delivery was seen before, marking it seen
// otherwise. Deliveries without an id are never treated as duplicates.
func (g *DeliveryGuard) CheckAndMark(ctx context.Context, platform, deliveryID string) (bool, error) {
	if g == nil || deliveryID == "" {
		return false, nil
	}
	claimed, err := g.store.ClaimDelivery(ctx, platform, deliveryID, g.ttl)
	if err != nil {
		return false, fmt.Errorf("claim delivery: %w", err)
	}
	return !claimed, nil
}

// Release forgets the delivery so the sender's retry is processed again.
func (g *DeliveryGuard) Release(ctx context.Context, platform, deliveryID string) error {
	if g == nil || deliveryID == "" {
		return nil
	}
	return g.store.ReleaseDelivery(ctx, platform, deliveryID)
}
