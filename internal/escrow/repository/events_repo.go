package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/crowdvault/escrow-backend/internal/escrow/domain"
	"github.com/redis/go-redis/v9"
)

const (
	eventChannelPrefix = "escrow:events:"   // Pub/Sub channel per campaign: escrow:events:{campaign_id}
	lastEventKeyPrefix = "escrow:last:"     // Latest event per campaign: escrow:last:{campaign_id}
	lastEventTTL       = 7 * 24 * time.Hour
)

// EventPublisher pushes engine events to Redis so the presentation layer can
// subscribe instead of polling every query. The engine never reads any of
// these keys back; the in-memory store stays authoritative.
type EventPublisher struct {
	client *redis.Client
}

// NewEventPublisher creates a new EventPublisher.
func NewEventPublisher(client *redis.Client) *EventPublisher {
	return &EventPublisher{client: client}
}

// Record publishes the event on the campaign's channel and caches it as the
// campaign's latest event.
func (p *EventPublisher) Record(ctx context.Context, ev domain.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	channel := fmt.Sprintf("%s%d", eventChannelPrefix, ev.CampaignID)
	lastKey := fmt.Sprintf("%s%d", lastEventKeyPrefix, ev.CampaignID)

	pipe := p.client.Pipeline()
	pipe.Publish(ctx, channel, payload)
	pipe.Set(ctx, lastKey, payload, lastEventTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// LastEvent returns the most recent event recorded for a campaign, or nil if
// none is cached.
func (p *EventPublisher) LastEvent(ctx context.Context, campaignID int64) (*domain.Event, error) {
	lastKey := fmt.Sprintf("%s%d", lastEventKeyPrefix, campaignID)

	payload, err := p.client.Get(ctx, lastKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read last event: %w", err)
	}

	var ev domain.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return &ev, nil
}
