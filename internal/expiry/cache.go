package expiry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// DashboardCache fronts Service.Dashboard with a short-lived Redis entry.
// The dashboard aggregates a join per request and tolerates staleness up to
// the TTL; Acknowledge invalidates early so the vendor sees their own action.
type DashboardCache struct {
	service *Service
	client  *goredis.Client
	ttl     time.Duration
	logger  *slog.Logger
}

func NewDashboardCache(service *Service, client *goredis.Client, ttl time.Duration, logger *slog.Logger) *DashboardCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DashboardCache{service: service, client: client, ttl: ttl, logger: logger}
}

func dashboardKey(supplierID uuid.UUID) string {
	return "vendorhub:dashboard:" + supplierID.String()
}

// Dashboard returns the cached summary when present, falling through to the
// service on miss or on any Redis failure. Cache trouble never fails the
// request.
func (c *DashboardCache) Dashboard(ctx context.Context, supplierID uuid.UUID) (DashboardSummary, error) {
	if c.client == nil {
		return c.service.Dashboard(ctx, supplierID)
	}

	key := dashboardKey(supplierID)
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var summary DashboardSummary
		if err := json.Unmarshal(raw, &summary); err == nil {
			return summary, nil
		}
		// Undecodable entry: drop it and recompute.
		c.client.Del(ctx, key)
	} else if !errors.Is(err, goredis.Nil) {
		c.logger.WarnContext(ctx, "dashboard cache read failed", "error", err)
	}

	summary, err := c.service.Dashboard(ctx, supplierID)
	if err != nil {
		return DashboardSummary{}, err
	}

	if encoded, err := json.Marshal(summary); err == nil {
		if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
			c.logger.WarnContext(ctx, "dashboard cache write failed", "error", err)
		}
	}
	return summary, nil
}

// Invalidate drops the cached summary for one supplier.
func (c *DashboardCache) Invalidate(ctx context.Context, supplierID uuid.UUID) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, dashboardKey(supplierID)).Err(); err != nil {
		c.logger.WarnContext(ctx, "dashboard cache invalidation failed", "error", err)
	}
}

// Acknowledge forwards to the service and invalidates the owner's dashboard
// on success.
func (c *DashboardCache) Acknowledge(ctx context.Context, alertID, supplierID uuid.UUID) (bool, error) {
	found, err := c.service.Acknowledge(ctx, alertID, supplierID)
	if err != nil {
		return false, fmt.Errorf("acknowledge through cache: %w", err)
	}
	if found {
		c.Invalidate(ctx, supplierID)
	}
	return found, nil
}
