package catalog

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/labadmin/labadmin/internal/platform/apperr"
	"github.com/labadmin/labadmin/pkg/pagination"
)

// Handler serves the read-only catalog endpoints.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/exams", h.listExams)
	g.GET("/exams/:id", h.getExam)
	g.GET("/exams/:id/parameters", h.listParameters)
	g.GET("/packages", h.listPackages)
	g.GET("/packages/:id", h.getPackage)
}

func (h *Handler) listExams(c echo.Context) error {
	p := pagination.FromContext(c)
	exams, total, err := h.service.ListExams(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(exams, total, p))
}

func (h *Handler) getExam(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid exam id")
	}
	exam, err := h.service.GetExam(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, exam)
}

func (h *Handler) listParameters(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid exam id")
	}
	params, err := h.service.ParametersByExam(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, params)
}

func (h *Handler) listPackages(c echo.Context) error {
	p := pagination.FromContext(c)
	pkgs, total, err := h.service.ListPackages(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(pkgs, total, p))
}

type packageDetail struct {
	*Package
	Exams []*Exam `json:"exams"`
}

func (h *Handler) getPackage(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid package id")
	}
	ctx := c.Request().Context()
	pkg, err := h.service.GetPackage(ctx, id)
	if err != nil {
		return apperr.HTTP(err)
	}
	exams, err := h.service.PackageExams(ctx, id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, packageDetail{Package: pkg, Exams: exams})
}
