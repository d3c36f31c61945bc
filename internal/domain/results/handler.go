package results

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
	g.GET("/orders/:id/result", h.get)
	g.PUT("/orders/:id/result/values", h.enterValue)
	g.PUT("/orders/:id/result/observations", h.setObservations)
	g.POST("/orders/:id/result/submit", h.submit)
	g.POST("/orders/:id/result/reject", h.reject)
	g.POST("/orders/:id/result/validate", h.validate)
}

func orderID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	return id, nil
}

func (h *Handler) get(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	report, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) enterValue(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	var in EnterInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	actor, err := auth.RequireActor(c)
	if err != nil {
		return err
	}
	if err := h.service.EnterValue(ctx, actor, id, in); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type observationsRequest struct {
	Observations string `json:"observations"`
}

func (h *Handler) setObservations(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	var in observationsRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	actor, err := auth.RequireActor(c)
	if err != nil {
		return err
	}
	if err := h.service.SetObservations(ctx, actor, id, in.Observations); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) submit(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	actor, err := auth.RequireActor(c)
	if err != nil {
		return err
	}
	res, err := h.service.Submit(ctx, actor, id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) reject(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	var in rejectRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	actor, err := auth.RequireActor(c)
	if err != nil {
		return err
	}
	res, err := h.service.Reject(ctx, actor, id, in.Reason)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) validate(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	actor, err := auth.RequireActor(c)
	if err != nil {
		return err
	}
	res, err := h.service.Validate(ctx, actor, id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}
