package clinic

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinova/emr/internal/platform/apperr"
	"github.com/clinova/emr/internal/platform/auth"
	"github.com/clinova/emr/pkg/pagination"
)

type Handler struct {
	svc *Service
	log zerolog.Logger
}

func NewHandler(svc *Service, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/clinics")
	g.GET("", h.List, auth.Require(h.log, auth.ActionList, auth.KindClinic))
	g.POST("", h.Create, auth.Require(h.log, auth.ActionCreate, auth.KindClinic))
	g.GET("/:id", h.Get, auth.Require(h.log, auth.ActionRead, auth.KindClinic))
	g.PUT("/:id", h.Update, auth.Require(h.log, auth.ActionUpdate, auth.KindClinic))
	g.PATCH("/:id/status", h.SetStatus, auth.Require(h.log, auth.ActionUpdate, auth.KindClinic))
	g.DELETE("/:id", h.Delete, auth.Require(h.log, auth.ActionDelete, auth.KindClinic))
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request", map[string]string{"body": "malformed request body"})
	}
	clinic, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, clinic)
}

func (h *Handler) Get(c echo.Context) error {
	p, _ := auth.FromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid request", map[string]string{"id": "invalid clinic id"})
	}
	clinic, err := h.svc.Get(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, clinic)
}

func (h *Handler) List(c echo.Context) error {
	p, _ := auth.FromContext(c.Request().Context())
	pg := pagination.FromContext(c)
	clinics, total, err := h.svc.List(c.Request().Context(), p, pg.Limit(), pg.Offset())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(clinics, pg, total))
}

func (h *Handler) Update(c echo.Context) error {
	p, _ := auth.FromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid request", map[string]string{"id": "invalid clinic id"})
	}
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request", map[string]string{"body": "malformed request body"})
	}
	clinic, err := h.svc.Update(c.Request().Context(), p, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, clinic)
}

func (h *Handler) SetStatus(c echo.Context) error {
	p, _ := auth.FromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid request", map[string]string{"id": "invalid clinic id"})
	}
	var in struct {
		IsActive *bool `json:"is_active"`
	}
	if err := c.Bind(&in); err != nil || in.IsActive == nil {
		return apperr.Validation("invalid request", map[string]string{"is_active": "is_active is required"})
	}
	clinic, err := h.svc.SetActive(c.Request().Context(), p, id, *in.IsActive)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, clinic)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid request", map[string]string{"id": "invalid clinic id"})
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
