// Package order turns the caller's current cart into a placed order.
package order

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/models"
)

type Store interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	ListOrders(ctx context.Context, accountID uuid.UUID) ([]models.Order, error)
}

type Service struct {
	Repo    Store
	Carts   *cart.Service
	Events  events.Publisher
	Metrics *metrics.Metrics
}

// Customer is the contact and shipping block of a checkout.
type Customer struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	Zip       string `json:"zip"`
}

type Placed struct {
	OrderID     string  `json:"orderId"`
	OrderNumber string  `json:"orderNumber"`
	Total       float64 `json:"total"`
}

func NewNumber() string {
	return "ORD-" + ulid.Make().String()
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Checkout prices the current cart, stores the order and empties the cart.
func (s *Service) Checkout(ctx context.Context, o cart.Owner, c Customer) (*Placed, error) {
	l := logging.FromContext(ctx).With("svc", "order.checkout")

	sum, err := s.Carts.Cart(ctx, o)
	if err != nil {
		return nil, err
	}
	if len(sum.Items) == 0 {
		return nil, apperr.Validation("Cart is empty")
	}

	ord := &models.Order{
		Number:        NewNumber(),
		Status:        models.OrderStatusPending,
		Subtotal:      sum.Subtotal,
		Shipping:      sum.Shipping,
		Total:         sum.Total,
		Currency:      models.CurrencyUSD,
		CustomerName:  strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName)),
		CustomerEmail: optional(c.Email),
		CustomerPhone: optional(c.Phone),
		Address:       optional(c.Address),
		City:          optional(c.City),
		Zip:           optional(c.Zip),
		Items:         make([]models.OrderItem, 0, len(sum.Items)),
	}
	if id, ok := o.Identity.Account(); ok {
		ord.AccountID = &id
	}
	for _, it := range sum.Items {
		ord.Items = append(ord.Items, models.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal,
		})
	}

	if err := s.Repo.CreateOrder(ctx, ord); err != nil {
		l.Error("checkout_error", "status", 500, "error", err)
		return nil, err
	}

	if ord.AccountID == nil && o.SessionID != "" {
		if err := s.Carts.Sessions.ClearCart(ctx, o.SessionID); err != nil {
			l.Warn("clear_session_cart_error", "order_number", ord.Number, "error", err)
		}
	}

	if s.Metrics != nil {
		s.Metrics.OrdersPlaced.Inc()
	}
	if s.Events != nil {
		ev := events.New("order.placed", map[string]any{
			"orderId":     ord.ID.String(),
			"orderNumber": ord.Number,
			"total":       ord.Total,
			"items":       len(ord.Items),
		})
		if err := s.Events.Publish(ctx, events.TopicOrder, ord.Number, ev); err != nil {
			l.Warn("publish_order_event_error", "error", err)
		}
	}
	l.Info("order_placed", "order_number", ord.Number, "total", ord.Total)

	return &Placed{OrderID: ord.ID.String(), OrderNumber: ord.Number, Total: ord.Total}, nil
}

func (s *Service) List(ctx context.Context, accountID uuid.UUID) ([]models.Order, error) {
	return s.Repo.ListOrders(ctx, accountID)
}
