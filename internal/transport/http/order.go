package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/order"
	"github.com/Skotchmaster/storefront/internal/session"
)

type OrderHTTP struct {
	Svc     *order.Service
	Handles *session.Handles
}

func (h *OrderHTTP) Checkout(c echo.Context) error {
	ctx := c.Request().Context()

	var req order.Customer
	if err := c.Bind(&req); err != nil {
		logging.FromContext(ctx).With("handler", "order_checkout").
			Warn("bind_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	o, err := ownerOf(c, h.Handles, false)
	if err != nil {
		return err
	}
	placed, err := h.Svc.Checkout(ctx, o, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, placed)
}

func (h *OrderHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	accountID, ok := identity.FromContext(ctx).Account()
	if !ok {
		return apperr.Unauthenticated("Unauthorized")
	}
	orders, err := h.Svc.List(ctx, accountID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"items": orders})
}
