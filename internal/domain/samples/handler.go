package samples

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/labadmin/labadmin/internal/platform/apperr"
	"github.com/labadmin/labadmin/internal/platform/auth"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/orders/:id/samples", h.register)
	g.GET("/orders/:id/samples", h.list)
	g.GET("/orders/:id/samples/status", h.status)
}

func orderID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	return id, nil
}

func (h *Handler) register(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	var in RegisterInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	actor, err := auth.RequireActor(c)
	if err != nil {
		return err
	}
	out, err := h.service.Register(c.Request().Context(), actor, id, in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *Handler) list(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	list, err := h.service.ListByOrder(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) status(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	st, err := h.service.Status(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, st)
}
