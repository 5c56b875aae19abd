package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/session"
)

type CartHTTP struct {
	Svc     *cart.Service
	Handles *session.Handles
}

func (h *CartHTTP) owner(c echo.Context, write bool) (cart.Owner, error) {
	return ownerOf(c, h.Handles, write)
}

// ownerOf builds the target of a cart operation. Anonymous writes get a
// session id issued on first use; anonymous reads never create one.
func ownerOf(c echo.Context, handles *session.Handles, write bool) (cart.Owner, error) {
	req := c.Request()
	o := cart.Owner{Identity: identity.FromContext(req.Context())}
	if !o.Identity.IsAnonymous() {
		return o, nil
	}
	if !write {
		o.SessionID = handles.ID(req)
		return o, nil
	}
	sid, err := handles.EnsureID(c.Response(), req)
	if err != nil {
		return o, err
	}
	o.SessionID = sid
	return o, nil
}

type cartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity"`
}

func (h *CartHTTP) bindItem(c echo.Context, handler string) (cartItemRequest, error) {
	var req cartItemRequest
	if err := c.Bind(&req); err != nil {
		logging.FromContext(c.Request().Context()).With("handler", handler).
			Warn("bind_error", "status", 400, "error", err)
		return req, echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	return req, nil
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	o, err := h.owner(c, false)
	if err != nil {
		return err
	}
	sum, err := h.Svc.Cart(c.Request().Context(), o)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sum)
}

func (h *CartHTTP) AddToCart(c echo.Context) error {
	req, err := h.bindItem(c, "cart_add")
	if err != nil {
		return err
	}
	o, err := h.owner(c, true)
	if err != nil {
		return err
	}
	sum, err := h.Svc.Add(c.Request().Context(), o, req.ProductID, req.Quantity)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sum)
}

func (h *CartHTTP) UpdateCart(c echo.Context) error {
	req, err := h.bindItem(c, "cart_update")
	if err != nil {
		return err
	}
	o, err := h.owner(c, true)
	if err != nil {
		return err
	}
	sum, err := h.Svc.Update(c.Request().Context(), o, req.ProductID, req.Quantity)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sum)
}

func (h *CartHTTP) RemoveFromCart(c echo.Context) error {
	o, err := h.owner(c, false)
	if err != nil {
		return err
	}
	sum, err := h.Svc.Remove(c.Request().Context(), o, c.Param("productId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sum)
}

func (h *CartHTTP) ClearCart(c echo.Context) error {
	o, err := h.owner(c, false)
	if err != nil {
		return err
	}
	sum, err := h.Svc.Clear(c.Request().Context(), o)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sum)
}

func (h *CartHTTP) GetWishlist(c echo.Context) error {
	o, err := h.owner(c, false)
	if err != nil {
		return err
	}
	wl, err := h.Svc.Wishlist(c.Request().Context(), o)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, wl)
}

func (h *CartHTTP) AddToWishlist(c echo.Context) error {
	req, err := h.bindItem(c, "wishlist_add")
	if err != nil {
		return err
	}
	o, err := h.owner(c, true)
	if err != nil {
		return err
	}
	wl, err := h.Svc.AddToWishlist(c.Request().Context(), o, req.ProductID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, wl)
}

func (h *CartHTTP) RemoveFromWishlist(c echo.Context) error {
	o, err := h.owner(c, false)
	if err != nil {
		return err
	}
	wl, err := h.Svc.RemoveFromWishlist(c.Request().Context(), o, c.Param("productId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, wl)
}

func (h *CartHTTP) ClearWishlist(c echo.Context) error {
	o, err := h.owner(c, false)
	if err != nil {
		return err
	}
	wl, err := h.Svc.ClearWishlist(c.Request().Context(), o)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, wl)
}
