// Package delivery sends notifications and replies to owners over the
// transport selected by DELIVERY_MODE.
package delivery

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"basegraph.app/nudge/core/config"
	"basegraph.app/nudge/internal/model"
)

type Deliverer interface {
	Deliver(ctx context.Context, d model.Delivery) error
}

// New builds the deliverer for cfg.Mode. rdb is only used by stream mode and
// hub only by websocket mode.
func New(cfg config.DeliveryConfig, rdb redis.Cmdable, hub *Hub) (Deliverer, error) {
	switch cfg.Mode {
	case "", config.DeliveryModeLog:
		return NewLogDeliverer(), nil
	case config.DeliveryModeWebhook:
		return NewWebhookDeliverer(cfg.WebhookURL, cfg.Timeout), nil
	case config.DeliveryModeStream:
		if rdb == nil {
			return nil, fmt.Errorf("stream delivery needs a redis client")
		}
		return NewStreamDeliverer(rdb, cfg.Stream), nil
	case config.DeliveryModeWebsocket:
		if hub == nil {
			return nil, fmt.Errorf("websocket delivery needs a hub")
		}
		return hub, nil
	default:
		return nil, fmt.Errorf("unknown delivery mode %q", cfg.Mode)
	}
}
