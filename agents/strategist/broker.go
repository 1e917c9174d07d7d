// Package strategist combines technical and sentiment analysis into final
// trading decisions and places an order for the top pick when confidence is
// high enough.
package strategist

import (
	"context"
	"fmt"

	"github.com/swingdesk/swingdesk/logger"
	"github.com/swingdesk/swingdesk/observability"
)

// Order describes one placed (or simulated) order.
type Order struct {
	OrderID         string  `json:"order_id"`
	Symbol          string  `json:"symbol"`
	Quantity        int     `json:"quantity"`
	OrderType       string  `json:"order_type"`
	TransactionType string  `json:"transaction_type"`
	Price           float64 `json:"price,omitempty"`
}

// Broker places orders. The production binding would talk to a real broker
// API; the default is paper trading.
type Broker interface {
	// PlaceOrder places a market buy/sell order and returns its details.
	PlaceOrder(ctx context.Context, symbol string, quantity int, transactionType string) (*Order, error)
}

// PaperBroker simulates order execution without touching an exchange.
type PaperBroker struct {
	log *logger.Logger
}

// NewPaperBroker creates a simulated broker.
func NewPaperBroker(log *logger.Logger) *PaperBroker {
	return &PaperBroker{log: log.WithComponent("broker.paper")}
}

// PlaceOrder records a simulated fill.
func (b *PaperBroker) PlaceOrder(_ context.Context, symbol string, quantity int, transactionType string) (*Order, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("broker: invalid quantity %d", quantity)
	}
	order := &Order{
		OrderID:         fmt.Sprintf("PAPER_%s_%d", symbol, quantity),
		Symbol:          symbol,
		Quantity:        quantity,
		OrderType:       "MARKET",
		TransactionType: transactionType,
	}
	b.log.Info("simulated order placed", logger.Fields(
		logger.FieldSymbol, symbol,
		"order_id", order.OrderID,
		"quantity", quantity,
		"transaction_type", transactionType,
	))
	return order, nil
}

// CheckHealth reports the broker binding.
func (b *PaperBroker) CheckHealth(_ context.Context) observability.Health {
	return observability.Health{
		Name:    "broker",
		Status:  observability.HealthStatusUp,
		Details: map[string]string{"mode": "paper"},
	}
}

var _ Broker = (*PaperBroker)(nil)
