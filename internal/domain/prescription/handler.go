package prescription

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
	g := api.Group("/prescriptions")
	g.GET("", h.List, auth.Require(h.log, auth.ActionList, auth.KindPrescription))
	g.POST("", h.Create, auth.Require(h.log, auth.ActionCreate, auth.KindPrescription))
	g.GET("/:id", h.Get, auth.Require(h.log, auth.ActionRead, auth.KindPrescription))
	g.PUT("/:id", h.Update, auth.Require(h.log, auth.ActionUpdate, auth.KindPrescription))
	g.PATCH("/:id/dispense", h.Dispense, auth.Require(h.log, auth.ActionUpdate, auth.KindPrescription))
	g.PATCH("/:id/cancel", h.Cancel, auth.Require(h.log, auth.ActionUpdate, auth.KindPrescription))
	g.DELETE("/:id", h.Delete, auth.Require(h.log, auth.ActionDelete, auth.KindPrescription))
}

func (h *Handler) Create(c echo.Context) error {
	p, _ := auth.FromContext(c.Request().Context())
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request", map[string]string{"body": "malformed request body"})
	}
	rx, err := h.svc.Create(c.Request().Context(), p, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rx)
}

func (h *Handler) Get(c echo.Context) error {
	p, _ := auth.FromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid request", map[string]string{"id": "invalid prescription id"})
	}
	rx, err := h.svc.Get(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rx)
}

func (h *Handler) List(c echo.Context) error {
	p, _ := auth.FromContext(c.Request().Context())
	pg := pagination.FromContext(c)
	f := ListFilter{
		Status: Status(c.QueryParam("status")),
		Limit:  pg.Limit(),
		Offset: pg.Offset(),
	}
	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperr.Validation("invalid request", map[string]string{"patient_id": "invalid patient id"})
		}
		f.PatientID = &id
	}
	if v := c.QueryParam("doctor_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperr.Validation("invalid request", map[string]string{"doctor_id": "invalid doctor id"})
		}
		f.DoctorID = &id
	}
	rxs, total, err := h.svc.List(c.Request().Context(), p, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(rxs, pg, total))
}

func (h *Handler) Update(c echo.Context) error {
	p, _ := auth.FromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid request", map[string]string{"id": "invalid prescription id"})
	}
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request", map[string]string{"body": "malformed request body"})
	}
	rx, err := h.svc.Update(c.Request().Context(), p, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rx)
}

func (h *Handler) Dispense(c echo.Context) error {
	p, _ := auth.FromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid request", map[string]string{"id": "invalid prescription id"})
	}
	rx, err := h.svc.Dispense(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rx)
}

func (h *Handler) Cancel(c echo.Context) error {
	p, _ := auth.FromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid request", map[string]string{"id": "invalid prescription id"})
	}
	rx, err := h.svc.Cancel(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rx)
}

func (h *Handler) Delete(c echo.Context) error {
	p, _ := auth.FromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid request", map[string]string{"id": "invalid prescription id"})
	}
	if err := h.svc.Delete(c.Request().Context(), p, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
