package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/luckypool/go/internal/countdown"
	"github.com/mcdev12/luckypool/go/internal/models"
)

// PoolEvent is the envelope of every message pushed to websocket clients
type PoolEvent struct {
	ID        string          `json:"id"`
	PoolID    string          `json:"pool_id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// EventType represents the type of pool event
type EventType string

const (
	EventTypePoolSnapshot  EventType = "PoolSnapshot"
	EventTypePoolUpdated   EventType = "PoolUpdated"
	EventTypeCountdownTick EventType = "CountdownTick"
)

// CountdownTickPayload carries one countdown refresh
type CountdownTickPayload struct {
	State    countdown.State   `json:"state"`
	Changed  countdown.Changed `json:"changed"`
	TickedAt time.Time         `json:"ticked_at"`
}

// PoolUpdatedPayload carries a pool after an external mutation
type PoolUpdatedPayload struct {
	Pool   models.LotteryPool `json:"pool"`
	Source string             `json:"source"`
}

// NewPoolEvent marshals data into a new event
func NewPoolEvent(poolID string, eventType EventType, at time.Time, data interface{}) (*PoolEvent, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &PoolEvent{
		ID:        uuid.New().String(),
		PoolID:    poolID,
		Type:      eventType,
		Timestamp: at,
		Data:      raw,
	}, nil
}
