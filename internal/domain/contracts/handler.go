package contracts

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/labadmin/labadmin/internal/domain/catalog"
	"github.com/labadmin/labadmin/internal/platform/apperr"
	"github.com/labadmin/labadmin/pkg/pagination"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/contracts", h.create)
	g.GET("/contracts", h.list)
	g.GET("/contracts/:id", h.get)
	g.PUT("/contracts/:id/discounts", h.updateDiscounts)
	g.GET("/contracts/:id/overrides", h.listOverrides)
	g.PUT("/contracts/:id/overrides", h.setOverride)
	g.DELETE("/contracts/:id/overrides", h.removeOverride)
}

func (h *Handler) create(c echo.Context) error {
	var in CreateContractInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	contract, err := h.service.Create(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, contract)
}

func (h *Handler) list(c echo.Context) error {
	p := pagination.FromContext(c)
	contracts, total, err := h.service.List(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(contracts, total, p))
}

func (h *Handler) get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid contract id")
	}
	contract, err := h.service.GetByID(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, contract)
}

func (h *Handler) updateDiscounts(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid contract id")
	}
	var in UpdateDiscountsInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	contract, err := h.service.UpdateDiscounts(c.Request().Context(), id, in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, contract)
}

func (h *Handler) listOverrides(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid contract id")
	}
	overrides, err := h.service.ListOverrides(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, overrides)
}

type overrideRequest struct {
	ItemKind catalog.ItemKind `json:"item_kind"`
	ItemID   uuid.UUID        `json:"item_id"`
	Pct      decimal.Decimal  `json:"pct"`
}

func (h *Handler) setOverride(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid contract id")
	}
	var in overrideRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	o, err := h.service.SetOverride(c.Request().Context(), id, in.ItemKind, in.ItemID, in.Pct)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) removeOverride(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid contract id")
	}
	var in overrideRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.service.RemoveOverride(c.Request().Context(), id, in.ItemKind, in.ItemID); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}
