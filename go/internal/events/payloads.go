package events

import (
	"encoding/json"
	"time"

	"github.com/mcdev12/luckypool/go/internal/models"
)

// Pool mutation events published by the external settlement side.
const (
	TypePoolUpserted     = "PoolUpserted"
	TypeTicketsPurchased = "TicketsPurchased"
	TypePoolPaused       = "PoolPaused"
	TypePoolResumed      = "PoolResumed"
	TypeWinnerDrawn      = "WinnerDrawn"
)

// Envelope wraps every event on the bus
type Envelope struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	PoolID    string          `json:"poolId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// PoolUpsertedPayload carries a full pool record
type PoolUpsertedPayload struct {
	Pool models.LotteryPool `json:"pool"`
}

// TicketsPurchasedPayload is the payload for a TicketsPurchased event
type TicketsPurchasedPayload struct {
	Buyer       string    `json:"buyer"`
	Count       int       `json:"count"`
	PurchasedAt time.Time `json:"purchased_at"`
}

// PoolPausedPayload is the payload for a PoolPaused event
type PoolPausedPayload struct {
	PausedAt time.Time `json:"paused_at"`
	Reason   string    `json:"reason"`
}

// PoolResumedPayload is the payload for a PoolResumed event
type PoolResumedPayload struct {
	ResumedAt time.Time `json:"resumed_at"`
}

// WinnerDrawnPayload is the payload for a WinnerDrawn event
type WinnerDrawnPayload struct {
	Winner  string    `json:"winner"`
	TxHash  string    `json:"tx_hash,omitempty"`
	DrawnAt time.Time `json:"drawn_at"`
}
