package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/admin"
	"github.com/Skotchmaster/storefront/internal/logging"
)

type AdminHTTP struct {
	Svc *admin.Service
}

func intQuery(c echo.Context, name string) int {
	n, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return 0
	}
	return n
}

func bindAdmin(c echo.Context, handler string, dst any) error {
	if err := c.Bind(dst); err != nil {
		logging.FromContext(c.Request().Context()).With("handler", handler).
			Warn("bind_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	return nil
}

func okResponse(c echo.Context, ok bool, err error) error {
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": ok})
}

func (h *AdminHTTP) Health(c echo.Context) error {
	counts, err := h.Svc.Counts(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "users": counts.Users})
}

func (h *AdminHTTP) ListProducts(c echo.Context) error {
	list, err := h.Svc.ListProducts(c.Request().Context(),
		c.QueryParam("q"), c.QueryParam("status"), intQuery(c, "page"), intQuery(c, "limit"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

func (h *AdminHTTP) CreateProduct(c echo.Context) error {
	var req admin.ProductInput
	if err := bindAdmin(c, "admin_create_product", &req); err != nil {
		return err
	}
	p, err := h.Svc.CreateProduct(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"id": p.ID.String()})
}

func (h *AdminHTTP) PatchProduct(c echo.Context) error {
	var req admin.ProductPatchInput
	if err := bindAdmin(c, "admin_patch_product", &req); err != nil {
		return err
	}
	ok, err := h.Svc.PatchProduct(c.Request().Context(), c.Param("id"), req)
	return okResponse(c, ok, err)
}

func (h *AdminHTTP) DeleteProduct(c echo.Context) error {
	ok, err := h.Svc.DeleteProduct(c.Request().Context(), c.Param("id"))
	return okResponse(c, ok, err)
}

func (h *AdminHTTP) ListCategories(c echo.Context) error {
	cats, err := h.Svc.ListCategories(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cats)
}

func (h *AdminHTTP) CreateCategory(c echo.Context) error {
	var req admin.CategoryInput
	if err := bindAdmin(c, "admin_create_category", &req); err != nil {
		return err
	}
	cat, err := h.Svc.CreateCategory(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"id": cat.ID.String()})
}

func (h *AdminHTTP) PatchCategory(c echo.Context) error {
	var req admin.CategoryPatchInput
	if err := bindAdmin(c, "admin_patch_category", &req); err != nil {
		return err
	}
	ok, err := h.Svc.PatchCategory(c.Request().Context(), c.Param("id"), req)
	return okResponse(c, ok, err)
}

func (h *AdminHTTP) DeleteCategory(c echo.Context) error {
	ok, err := h.Svc.DeleteCategory(c.Request().Context(), c.Param("id"))
	return okResponse(c, ok, err)
}

func (h *AdminHTTP) ListUsers(c echo.Context) error {
	list, err := h.Svc.ListUsers(c.Request().Context(),
		c.QueryParam("q"), intQuery(c, "page"), intQuery(c, "limit"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

func (h *AdminHTTP) PatchUser(c echo.Context) error {
	var req admin.UserPatchInput
	if err := bindAdmin(c, "admin_patch_user", &req); err != nil {
		return err
	}
	ok, err := h.Svc.PatchUser(c.Request().Context(), c.Param("id"), req)
	return okResponse(c, ok, err)
}

func (h *AdminHTTP) DeleteUser(c echo.Context) error {
	ok, err := h.Svc.DeleteUser(c.Request().Context(), c.Param("id"))
	return okResponse(c, ok, err)
}
