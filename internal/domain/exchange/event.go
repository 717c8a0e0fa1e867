package exchange

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies an exchange lifecycle transition
type EventType string

const (
	EventCreated   EventType = "exchange.created"
	EventAccepted  EventType = "exchange.accepted"
	EventRejected  EventType = "exchange.rejected"
	EventCancelled EventType = "exchange.cancelled"
	EventExpired   EventType = "exchange.expired"
)

// Event is the message published for every lifecycle transition. The
// notification collaborator consumes these; accepted events additionally
// feed the exchange history read model.
type Event struct {
	Type        EventType `json:"type"`
	ExchangeID  uuid.UUID `json:"exchange_id"`
	CardID      uuid.UUID `json:"card_id"`
	RequesterID uuid.UUID `json:"requester_id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	CoinAmount  int64     `json:"coin_amount"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewEvent builds an event for a transition on req occurring now.
func NewEvent(t EventType, req *Request) *Event {
	return &Event{
		Type:        t,
		ExchangeID:  req.ID,
		CardID:      req.CardID,
		RequesterID: req.RequesterID,
		OwnerID:     req.OwnerID,
		CoinAmount:  req.CoinAmount,
		OccurredAt:  time.Now().UTC(),
	}
}

// ToRecord converts an accepted event into a history record.
func (e *Event) ToRecord() *Record {
	return &Record{
		ExchangeID:  e.ExchangeID,
		CardID:      e.CardID,
		FromUserID:  e.OwnerID,
		ToUserID:    e.RequesterID,
		CoinAmount:  e.CoinAmount,
		CompletedAt: e.OccurredAt,
	}
}
