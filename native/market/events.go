package market

import (
	"encoding/hex"
	"strconv"

	"otcmarket/core/types"
)

const (
	EventTypeSaleCreated   = "market.sale.created"
	EventTypeSaleConcluded = "market.sale.concluded"
	EventTypeSaleAborted   = "market.sale.aborted"
)

type marketEvent struct {
	evt *types.Event
}

func (e marketEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e marketEvent) Event() *types.Event { return e.evt }

// NewSaleCreatedEvent returns the canonical payload for a newly escrowed
// sale.
func NewSaleCreatedEvent(s *Sale) *types.Event { return newSaleEvent(EventTypeSaleCreated, s) }

// NewSaleConcludedEvent returns the canonical payload emitted when the buyer
// settles a sale.
func NewSaleConcludedEvent(s *Sale) *types.Event { return newSaleEvent(EventTypeSaleConcluded, s) }

// NewSaleAbortedEvent returns the canonical payload emitted when the seller
// reclaims an escrowed bundle.
func NewSaleAbortedEvent(s *Sale) *types.Event { return newSaleEvent(EventTypeSaleAborted, s) }

func newSaleEvent(eventType string, s *Sale) *types.Event {
	attrs := make(map[string]string)
	if s == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	sanitized, err := SanitizeSale(s)
	if err != nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["saleId"] = sanitized.ID.String()
	attrs["seller"] = hex.EncodeToString(sanitized.Seller[:])
	attrs["buyer"] = hex.EncodeToString(sanitized.Buyer[:])
	attrs["assets"] = strconv.Itoa(len(sanitized.Assets))
	attrs["prices"] = strconv.Itoa(len(sanitized.Prices))
	return &types.Event{Type: eventType, Attributes: attrs}
}
