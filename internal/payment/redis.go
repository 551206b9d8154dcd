package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const DefaultChannel = "payment:requests"

type request struct {
	Kind          string    `json:"kind"` // charge | refund
	AppointmentID uuid.UUID `json:"appointment_id"`
	RequesterID   uuid.UUID `json:"requester_id,omitempty"`
	Amount        string    `json:"amount"`
	RequestedAt   time.Time `json:"requested_at"`
}

// RedisEmitter publishes charge/refund requests on a Redis channel consumed
// by the payment worker.
type RedisEmitter struct {
	client  *redis.Client
	channel string
}

func NewRedisEmitter(client *redis.Client, channel string) *RedisEmitter {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisEmitter{client: client, channel: channel}
}

func (e *RedisEmitter) publish(ctx context.Context, req request) error {
	req.RequestedAt = time.Now()

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal payment request: %w", err)
	}
	if err := e.client.Publish(ctx, e.channel, data).Err(); err != nil {
		return fmt.Errorf("publish payment request: %w", err)
	}
	return nil
}

func (e *RedisEmitter) RequestCharge(ctx context.Context, appointmentID, requesterID uuid.UUID, amount decimal.Decimal) error {
	return e.publish(ctx, request{
		Kind:          "charge",
		AppointmentID: appointmentID,
		RequesterID:   requesterID,
		Amount:        amount.StringFixed(2),
	})
}

func (e *RedisEmitter) RequestRefund(ctx context.Context, appointmentID uuid.UUID, amount decimal.Decimal) error {
	return e.publish(ctx, request{
		Kind:          "refund",
		AppointmentID: appointmentID,
		Amount:        amount.StringFixed(2),
	})
}
