package invoicing

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/labadmin/labadmin/internal/platform/apperr"
	"github.com/labadmin/labadmin/internal/platform/auth"
	"github.com/labadmin/labadmin/pkg/pagination"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/orders/:id/invoice", h.issue)
	g.GET("/orders/:id/invoice", h.getByOrder)
	g.GET("/invoices", h.list)
	g.GET("/invoices/:id", h.get)
	g.GET("/invoices/number/:number", h.getByNumber)
}

func (h *Handler) issue(c echo.Context) error {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	var in IssueInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	actor, err := auth.RequireActor(c)
	if err != nil {
		return err
	}
	inv, err := h.service.Issue(ctx, actor, orderID, in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, inv)
}

func (h *Handler) getByOrder(c echo.Context) error {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	inv, err := h.service.GetByOrder(c.Request().Context(), orderID)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) list(c echo.Context) error {
	p := pagination.FromContext(c)
	list, total, err := h.service.List(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(list, total, p))
}

func (h *Handler) get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid invoice id")
	}
	inv, err := h.service.GetByID(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) getByNumber(c echo.Context) error {
	inv, err := h.service.GetByNumber(c.Request().Context(), c.Param("number"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, inv)
}
