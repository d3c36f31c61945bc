package orders

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
	g.POST("/orders", h.create)
	g.GET("/orders", h.list)
	g.GET("/orders/:id", h.get)
	g.POST("/orders/:id/items", h.addItem)
	g.DELETE("/orders/:id/items", h.removeItem)
	g.PUT("/orders/:id/contract", h.setContract)
	g.POST("/orders/:id/payments", h.recordPayment)
	g.POST("/orders/:id/cancel", h.cancel)
	g.POST("/orders/:id/recompute", h.recompute)
}

func orderID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	return id, nil
}

func (h *Handler) create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	actor, err := auth.RequireActor(c)
	if err != nil {
		return err
	}
	o, err := h.service.Create(c.Request().Context(), actor, in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) list(c echo.Context) error {
	p := pagination.FromContext(c)
	var f ListFilter
	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = &id
	}
	if v := c.QueryParam("contract_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid contract_id")
		}
		f.ContractID = &id
	}
	if v := c.QueryParam("status"); v != "" {
		st := Status(v)
		f.Status = &st
	}
	list, total, err := h.service.List(c.Request().Context(), f, p.Limit, p.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(list, total, p))
}

func (h *Handler) get(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	d, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) addItem(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	var ref ItemRef
	if err := c.Bind(&ref); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	actor, err := auth.RequireActor(c)
	if err != nil {
		return err
	}
	o, err := h.service.AddItem(c.Request().Context(), actor, id, ref)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) removeItem(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	var ref ItemRef
	if err := c.Bind(&ref); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	actor, err := auth.RequireActor(c)
	if err != nil {
		return err
	}
	o, err := h.service.RemoveItem(c.Request().Context(), actor, id, ref)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, o)
}

type setContractRequest struct {
	ContractID *uuid.UUID `json:"contract_id"`
}

func (h *Handler) setContract(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	var in setContractRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	actor, err := auth.RequireActor(c)
	if err != nil {
		return err
	}
	o, err := h.service.SetContract(c.Request().Context(), actor, id, in.ContractID)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) recordPayment(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	var in PaymentInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	actor, err := auth.RequireActor(c)
	if err != nil {
		return err
	}
	o, err := h.service.RecordPayment(c.Request().Context(), actor, id, in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) cancel(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	actor, err := auth.RequireActor(c)
	if err != nil {
		return err
	}
	o, err := h.service.Cancel(c.Request().Context(), actor, id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) recompute(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	o, err := h.service.Recompute(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, o)
}
